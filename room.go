package main

import (
	"sort"
	"sync"
)

const (
	maxRooms   = 100
	maxRoomLen = 30
)

// Room is one relay room: its members and the cached properties that late
// joiners receive in their snapshot.
type Room struct {
	Name    string
	members map[int]*Link
	master  int
	props   RoomProps
	players map[int]*PlayerProps
}

func newRoom(name string) *Room {
	return &Room{
		Name:    name,
		members: make(map[int]*Link),
		players: make(map[int]*PlayerProps),
	}
}

// Open reports whether the room admits joiners. Unset means open.
func (r *Room) Open() bool { return r.props.IsOpen == nil || *r.props.IsOpen }

// Visible reports whether the room is listed. Unset means visible.
func (r *Room) Visible() bool { return r.props.IsVisible == nil || *r.props.IsVisible }

// Full reports whether every actor slot is taken
func (r *Room) Full() bool { return len(r.members) >= MaxPlayer }

// freeActor returns the lowest unused actor number
func (r *Room) freeActor() int {
	for a := 1; a <= MaxPlayer; a++ {
		if _, ok := r.members[a]; !ok {
			return a
		}
	}
	return 0
}

// actors returns member actor numbers in order
func (r *Room) actors() []int {
	out := make([]int, 0, len(r.members))
	for a := range r.members {
		out = append(out, a)
	}
	sort.Ints(out)
	return out
}

func (r *Room) memberList() []Member {
	out := make([]Member, 0, len(r.members))
	for _, a := range r.actors() {
		out = append(out, Member{Actor: a, Name: r.members[a].name})
	}
	return out
}

func (r *Room) snapshot(actor int) JoinedMsg {
	players := make(map[int]PlayerProps, len(r.players))
	for a, p := range r.players {
		players[a] = *p
	}
	return JoinedMsg{
		Room:    r.Name,
		Actor:   actor,
		Master:  r.master,
		Members: r.memberList(),
		Props:   r.props,
		Players: players,
	}
}

// electMaster picks the lowest actor still in the room
func (r *Room) electMaster() {
	r.master = 0
	if as := r.actors(); len(as) > 0 {
		r.master = as[0]
	}
}

// RoomManager handles creation and lookup of rooms
type RoomManager struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	limit int
}

// NewRoomManager creates a manager holding at most limit rooms
func NewRoomManager(limit int) *RoomManager {
	if limit <= 0 {
		limit = maxRooms
	}
	return &RoomManager{
		rooms: make(map[string]*Room),
		limit: limit,
	}
}

// Create adds an empty room. It fails with a relay error code when the
// name is taken or the limit is reached.
func (rm *RoomManager) Create(name string) (*Room, int) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if _, ok := rm.rooms[name]; ok {
		return nil, CodeGameExists
	}
	if len(rm.rooms) >= rm.limit {
		return nil, CodeTooManyRooms
	}
	room := newRoom(name)
	rm.rooms[name] = room
	return room, 0
}

// Get returns a room by name
func (rm *RoomManager) Get(name string) *Room {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.rooms[name]
}

// Remove drops a room once its last member left
func (rm *RoomManager) Remove(name string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	delete(rm.rooms, name)
}

// Count returns the number of rooms
func (rm *RoomManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.rooms)
}

// List returns open and visible rooms sorted by name. Callers must hold
// the relay lock, which guards room contents.
func (rm *RoomManager) List() []RoomInfo {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	list := make([]RoomInfo, 0, len(rm.rooms))
	for _, room := range rm.rooms {
		if !room.Open() || !room.Visible() {
			continue
		}
		list = append(list, RoomInfo{
			Name:       room.Name,
			Players:    len(room.members),
			MaxPlayers: MaxPlayer,
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
