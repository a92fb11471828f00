package main

import (
	"errors"
	"log"
	"strings"
	"sync"
	"unicode/utf8"
)

const maxNameLen = 16

var errorText = map[int]string{
	CodeBadRequest:       "Bad request",
	CodeNotAllowed:       "Operation not allowed",
	CodeGameDoesNotExist: "Game does not exist",
	CodeGameClosed:       "Game closed",
	CodeGameFull:         "Game full",
	CodeGameExists:       "A game with the specified id already exist.",
	CodeTooManyRooms:     "Too many rooms",
}

// ErrLinkClosed is returned for frames handled after Detach
var ErrLinkClosed = errors.New("relay link closed")

// Endpoint receives frames for one attached participant. Deliver is called
// with the relay lock held and must not block.
type Endpoint interface {
	Deliver(f Frame)
}

// Link is the relay side of one participant connection
type Link struct {
	relay  *Relay
	ep     Endpoint
	name   string
	hello  bool
	room   *Room
	actor  int
	closed bool
}

// Name returns the nickname sent in the hello frame
func (l *Link) Name() string {
	l.relay.mu.Lock()
	defer l.relay.mu.Unlock()
	return l.name
}

// Relay is a plain fan-out relay. It hosts rooms, assigns actor numbers,
// elects the master, forwards property writes and RPCs, and caches
// properties for late joiners. It never simulates the game.
type Relay struct {
	mu    sync.Mutex
	rooms *RoomManager
	clock Clock
	links map[*Link]bool
}

// NewRelay creates a relay stamping pongs with clock
func NewRelay(clock Clock, roomLimit int) *Relay {
	if clock == nil {
		clock = NewSystemClock()
	}
	return &Relay{
		rooms: NewRoomManager(roomLimit),
		clock: clock,
		links: make(map[*Link]bool),
	}
}

// Attach registers a new participant connection
func (r *Relay) Attach(ep Endpoint) *Link {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := &Link{relay: r, ep: ep}
	r.links[l] = true
	return l
}

// Links returns the number of attached connections
func (r *Relay) Links() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}

// ListRooms returns the open and visible rooms
func (r *Relay) ListRooms() []RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms.List()
}

// Detach removes a connection, leaving its room first
func (l *Link) Detach() {
	r := l.relay
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.closed {
		return
	}
	r.leave(l)
	l.closed = true
	delete(r.links, l)
}

// Handle processes one frame from the participant
func (l *Link) Handle(f Frame) error {
	r := l.relay
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.closed {
		return ErrLinkClosed
	}

	switch f.Kind {
	case FrameHello:
		var msg HelloMsg
		if err := f.Decode(&msg); err != nil {
			r.fail(l, CodeBadRequest, "")
			return err
		}
		name := cleanName(msg.Name, maxNameLen)
		if name == "" {
			r.fail(l, CodeBadRequest, "Name cannot empty")
			return nil
		}
		l.name = name
		l.hello = true
		r.deliver(l, FrameConnected, HelloMsg{Name: name}, 0)
	case FrameList:
		r.deliver(l, FrameRooms, RoomsMsg{Rooms: r.rooms.List()}, 0)
	case FrameCreate, FrameJoin:
		var msg RoomMsg
		if len(f.Body) > 0 {
			if err := f.Decode(&msg); err != nil {
				r.fail(l, CodeBadRequest, "")
				return err
			}
		}
		if f.Kind == FrameCreate {
			r.create(l, msg.Room)
		} else {
			r.join(l, msg.Room)
		}
	case FrameLeaveRoom:
		if l.room == nil {
			r.fail(l, CodeNotAllowed, "not in a room")
			return nil
		}
		room := l.room.Name
		r.leave(l)
		r.deliver(l, FrameLeft, RoomMsg{Room: room}, 0)
	case FramePing:
		var msg PingMsg
		if err := f.Decode(&msg); err != nil {
			return err
		}
		r.deliver(l, FramePong, PongMsg{Client: msg.Client, Server: r.clock.Now()}, 0)
	case FrameProps:
		return r.props(l, f)
	case FrameRPC, FrameTransform:
		if l.room == nil {
			r.fail(l, CodeNotAllowed, "not in a room")
			return nil
		}
		to := f.To
		if f.Kind == FrameTransform && to == TargetAll {
			to = TargetOthers
		}
		r.forward(l, f, to)
	case FrameLoadLevel:
		if l.room == nil || l.room.master != l.actor {
			r.fail(l, CodeNotAllowed, "only the master loads levels")
			return nil
		}
		r.forward(l, f, TargetAll)
	default:
		r.fail(l, CodeBadRequest, "unknown frame")
	}
	return nil
}

func (r *Relay) create(l *Link, name string) {
	if !l.hello || l.room != nil {
		r.fail(l, CodeNotAllowed, "")
		return
	}
	name = cleanName(name, maxRoomLen)
	if name == "" {
		r.fail(l, CodeBadRequest, "Room Name cannot empty")
		return
	}
	room, code := r.rooms.Create(name)
	if room == nil {
		r.fail(l, code, "")
		return
	}
	log.Printf("relay: room %q created by %s", name, l.name)
	r.enter(l, room)
}

func (r *Relay) join(l *Link, name string) {
	if !l.hello || l.room != nil {
		r.fail(l, CodeNotAllowed, "")
		return
	}
	room := r.rooms.Get(cleanName(name, maxRoomLen))
	switch {
	case room == nil:
		r.fail(l, CodeGameDoesNotExist, "")
	case !room.Open():
		r.fail(l, CodeGameClosed, "")
	case room.Full():
		r.fail(l, CodeGameFull, "")
	default:
		r.enter(l, room)
	}
}

func (r *Relay) enter(l *Link, room *Room) {
	actor := room.freeActor()
	room.members[actor] = l
	l.room = room
	l.actor = actor
	if room.master == 0 {
		room.master = actor
	}
	r.deliver(l, FrameJoined, room.snapshot(actor), 0)
	presence := PresenceMsg{Member: Member{Actor: actor, Name: l.name}, Master: room.master}
	for _, a := range room.actors() {
		if a != actor {
			r.deliver(room.members[a], FrameEntered, presence, 0)
		}
	}
}

func (r *Relay) leave(l *Link) {
	room := l.room
	if room == nil {
		return
	}
	actor := l.actor
	delete(room.members, actor)
	delete(room.players, actor)
	l.room = nil
	l.actor = 0

	if len(room.members) == 0 {
		r.rooms.Remove(room.Name)
		log.Printf("relay: room %q closed", room.Name)
		return
	}
	if room.master == actor {
		room.electMaster()
	}
	presence := PresenceMsg{Member: Member{Actor: actor, Name: l.name}, Master: room.master}
	for _, a := range room.actors() {
		r.deliver(room.members[a], FrameExited, presence, 0)
	}
}

// props validates the writer, updates the cache and echoes the normalized
// write to the whole room, writer included.
func (r *Relay) props(l *Link, f Frame) error {
	if l.room == nil {
		r.fail(l, CodeNotAllowed, "not in a room")
		return nil
	}
	var u PropsUpdate
	if err := f.Decode(&u); err != nil {
		r.fail(l, CodeBadRequest, "")
		return err
	}
	if !u.Valid() {
		r.fail(l, CodeBadRequest, "malformed property update")
		return nil
	}
	room := l.room
	if u.Scope.IsRoom() {
		if room.master != l.actor {
			r.fail(l, CodeNotAllowed, ErrNotAuthority.Error())
			return nil
		}
		p := u.Room.normalized()
		u.Room = &p
		room.props.merge(p)
	} else {
		if u.Scope.Actor != l.actor {
			r.fail(l, CodeNotAllowed, ErrNotOwner.Error())
			return nil
		}
		p := u.Player.normalized()
		u.Player = &p
		cached, ok := room.players[l.actor]
		if !ok {
			cached = &PlayerProps{}
			room.players[l.actor] = cached
		}
		cached.merge(p)
	}
	out, err := NewFrame(FrameProps, u)
	if err != nil {
		return err
	}
	out.Sent = f.Sent
	r.forward(l, out, TargetAll)
	return nil
}

func (r *Relay) forward(from *Link, f Frame, to Target) {
	room := from.room
	f.From = from.actor
	f.To = to
	switch {
	case to == TargetAll:
		for _, a := range room.actors() {
			room.members[a].ep.Deliver(f)
		}
	case to == TargetOthers:
		for _, a := range room.actors() {
			if a != from.actor {
				room.members[a].ep.Deliver(f)
			}
		}
	default:
		if target, ok := room.members[int(to)]; ok {
			target.ep.Deliver(f)
		}
	}
}

func (r *Relay) deliver(l *Link, kind FrameKind, body interface{}, from int) {
	f, err := NewFrame(kind, body)
	if err != nil {
		log.Printf("relay: %v", err)
		return
	}
	f.From = from
	l.ep.Deliver(f)
}

func (r *Relay) fail(l *Link, code int, msg string) {
	if msg == "" {
		msg = errorText[code]
	}
	r.deliver(l, FrameError, ErrorMsg{Code: code, Msg: msg}, 0)
}

// cleanName trims whitespace and caps the length in runes
func cleanName(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > limit {
		s = string([]rune(s)[:limit])
	}
	return s
}
