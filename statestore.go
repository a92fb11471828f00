package main

import (
	"errors"
	"sort"
)

var (
	ErrNotOwner     = errors.New("participant properties are written by their owner only")
	ErrNotAuthority = errors.New("room properties are written by the master only")
	ErrBadScope     = errors.New("update does not match its scope")
)

// Publisher sends a property write to the relay. Delivery is fire-and-forget.
type Publisher interface {
	Publish(u PropsUpdate) error
}

// Change is passed to listeners once per applied update
type Change struct {
	Scope Scope
	Keys  []Key
}

// Has reports whether the change touched key
func (c Change) Has(key Key) bool {
	for _, k := range c.Keys {
		if k == key {
			return true
		}
	}
	return false
}

type listener struct {
	id int
	fn func(Change)
}

// Store is one participant's replica of the room and participant
// properties. Writes go out through the publisher and land in the replica
// when the relay echoes them back, so the writer is notified like everyone
// else. Store is owned by the participant loop and is not safe for
// concurrent use.
type Store struct {
	local     int
	master    int
	room      RoomProps
	players   map[int]*PlayerProps
	pub       Publisher
	listeners []listener
	nextID    int
}

// NewStore creates an empty replica publishing through pub
func NewStore(pub Publisher) *Store {
	return &Store{
		players: make(map[int]*PlayerProps),
		pub:     pub,
	}
}

// SetLocal records the actor this replica writes as
func (s *Store) SetLocal(actor int) { s.local = actor }

// Local returns the local actor, 0 outside a room
func (s *Store) Local() int { return s.local }

// SetMaster records the current session authority
func (s *Store) SetMaster(actor int) { s.master = actor }

// Master returns the session authority
func (s *Store) Master() int { return s.master }

// IsMaster reports whether the local participant is the authority
func (s *Store) IsMaster() bool { return s.local != 0 && s.local == s.master }

// SetRoom publishes a room-scope write. Only the master may write.
func (s *Store) SetRoom(p RoomProps) error {
	if !s.IsMaster() {
		return ErrNotAuthority
	}
	p = p.normalized()
	return s.pub.Publish(PropsUpdate{Scope: RoomScope, Room: &p})
}

// SetPlayer publishes a write to actor's scope. Only actor itself may write.
func (s *Store) SetPlayer(actor int, p PlayerProps) error {
	if actor == 0 || actor != s.local {
		return ErrNotOwner
	}
	p = p.normalized()
	return s.pub.Publish(PropsUpdate{Scope: PlayerScope(actor), Player: &p})
}

// Apply merges an update observed from the relay and notifies listeners.
// It returns the keys that were written.
func (s *Store) Apply(u PropsUpdate) ([]Key, error) {
	if !u.Valid() {
		return nil, ErrBadScope
	}
	var keys []Key
	if u.Scope.IsRoom() {
		keys = s.room.merge(u.Room.normalized())
	} else {
		p, ok := s.players[u.Scope.Actor]
		if !ok {
			p = &PlayerProps{}
			s.players[u.Scope.Actor] = p
		}
		keys = p.merge(u.Player.normalized())
	}
	if len(keys) > 0 {
		s.notify(Change{Scope: u.Scope, Keys: keys})
	}
	return keys, nil
}

// Load replaces the replica with a room snapshot and notifies each scope
func (s *Store) Load(room RoomProps, players map[int]PlayerProps) {
	s.room = RoomProps{}
	s.players = make(map[int]*PlayerProps, len(players))
	if keys := s.room.merge(room.normalized()); len(keys) > 0 {
		s.notify(Change{Scope: RoomScope, Keys: keys})
	}
	actors := make([]int, 0, len(players))
	for a := range players {
		actors = append(actors, a)
	}
	sort.Ints(actors)
	for _, a := range actors {
		p := &PlayerProps{}
		s.players[a] = p
		if keys := p.merge(players[a].normalized()); len(keys) > 0 {
			s.notify(Change{Scope: PlayerScope(a), Keys: keys})
		}
	}
}

// Get reads one property. Absent keys return ok == false, never an error.
func (s *Store) Get(scope Scope, key Key) (interface{}, bool) {
	if scope.IsRoom() {
		return s.room.get(key)
	}
	p, ok := s.players[scope.Actor]
	if !ok {
		return nil, false
	}
	return p.get(key)
}

// ExpectedCount returns expectedPlayerCount if it has been written
func (s *Store) ExpectedCount() (int, bool) {
	if s.room.ExpectedCount == nil {
		return 0, false
	}
	return *s.room.ExpectedCount, true
}

// ExpectedCountOr returns expectedPlayerCount or def when unset
func (s *Store) ExpectedCountOr(def int) int {
	if n, ok := s.ExpectedCount(); ok {
		return n
	}
	return def
}

// IsOpen returns the room's isOpen flag if written
func (s *Store) IsOpen() (bool, bool) {
	if s.room.IsOpen == nil {
		return false, false
	}
	return *s.room.IsOpen, true
}

// IsVisible returns the room's isVisible flag if written
func (s *Store) IsVisible() (bool, bool) {
	if s.room.IsVisible == nil {
		return false, false
	}
	return *s.room.IsVisible, true
}

// Health returns actor's playerHealth if written
func (s *Store) Health(actor int) (int, bool) {
	p, ok := s.players[actor]
	if !ok || p.Health == nil {
		return 0, false
	}
	return *p.Health, true
}

// IsReady returns actor's isPlayerReady if written
func (s *Store) IsReady(actor int) (bool, bool) {
	p, ok := s.players[actor]
	if !ok || p.IsReady == nil {
		return false, false
	}
	return *p.IsReady, true
}

// Remove drops the scope of a participant that left
func (s *Store) Remove(actor int) {
	delete(s.players, actor)
}

// Reset clears the replica when the local participant leaves the room
func (s *Store) Reset() {
	s.room = RoomProps{}
	s.players = make(map[int]*PlayerProps)
	s.local = 0
	s.master = 0
}

// OnChange registers fn for every applied update. The returned func
// unregisters it.
func (s *Store) OnChange(fn func(Change)) func() {
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	return func() {
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(c Change) {
	// Listeners may unregister themselves while being notified.
	ls := make([]listener, len(s.listeners))
	copy(ls, s.listeners)
	for _, l := range ls {
		l.fn(c)
	}
}
