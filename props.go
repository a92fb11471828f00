package main

import "fmt"

const (
	MaxPlayer = 4 // participants per room
	MaxHealth = 5 // hits a participant can take
)

// Key names a replicated property. The strings match what clients
// already persist and display, so they are part of the wire format.
type Key string

const (
	KeyExpectedCount Key = "expectedPlayerCount"
	KeyIsOpen        Key = "isOpen"
	KeyIsVisible     Key = "isVisible"
	KeyIsReady       Key = "isPlayerReady"
	KeyHealth        Key = "playerHealth"
)

// Scope selects room-level properties (Actor == 0) or one participant's
// properties (Actor > 0).
type Scope struct {
	Actor int `msgpack:"a,omitempty"`
}

// RoomScope addresses the room-level properties
var RoomScope = Scope{}

// PlayerScope addresses the properties owned by one participant
func PlayerScope(actor int) Scope { return Scope{Actor: actor} }

func (s Scope) IsRoom() bool { return s.Actor == 0 }

func (s Scope) String() string {
	if s.IsRoom() {
		return "room"
	}
	return fmt.Sprintf("player:%d", s.Actor)
}

// RoomProps is the typed room record. Nil fields are absent.
type RoomProps struct {
	ExpectedCount *int  `msgpack:"expectedPlayerCount,omitempty"`
	IsOpen        *bool `msgpack:"isOpen,omitempty"`
	IsVisible     *bool `msgpack:"isVisible,omitempty"`
}

// PlayerProps is the typed per-participant record. Nil fields are absent.
type PlayerProps struct {
	Health  *int  `msgpack:"playerHealth,omitempty"`
	IsReady *bool `msgpack:"isPlayerReady,omitempty"`
}

// Int returns a pointer to v, for building partial records
func Int(v int) *int { return &v }

// Bool returns a pointer to v, for building partial records
func Bool(v bool) *bool { return &v }

// normalized clamps fields to their documented ranges
func (p RoomProps) normalized() RoomProps {
	if p.ExpectedCount != nil {
		p.ExpectedCount = Int(ClampInt(*p.ExpectedCount, 0, MaxPlayer))
	}
	return p
}

func (p PlayerProps) normalized() PlayerProps {
	if p.Health != nil {
		p.Health = Int(ClampInt(*p.Health, 0, MaxHealth))
	}
	return p
}

// merge copies the present fields of u into p and returns their keys
func (p *RoomProps) merge(u RoomProps) []Key {
	var keys []Key
	if u.ExpectedCount != nil {
		p.ExpectedCount = Int(*u.ExpectedCount)
		keys = append(keys, KeyExpectedCount)
	}
	if u.IsOpen != nil {
		p.IsOpen = Bool(*u.IsOpen)
		keys = append(keys, KeyIsOpen)
	}
	if u.IsVisible != nil {
		p.IsVisible = Bool(*u.IsVisible)
		keys = append(keys, KeyIsVisible)
	}
	return keys
}

func (p *PlayerProps) merge(u PlayerProps) []Key {
	var keys []Key
	if u.Health != nil {
		p.Health = Int(*u.Health)
		keys = append(keys, KeyHealth)
	}
	if u.IsReady != nil {
		p.IsReady = Bool(*u.IsReady)
		keys = append(keys, KeyIsReady)
	}
	return keys
}

func (p RoomProps) get(k Key) (interface{}, bool) {
	switch k {
	case KeyExpectedCount:
		if p.ExpectedCount != nil {
			return *p.ExpectedCount, true
		}
	case KeyIsOpen:
		if p.IsOpen != nil {
			return *p.IsOpen, true
		}
	case KeyIsVisible:
		if p.IsVisible != nil {
			return *p.IsVisible, true
		}
	}
	return nil, false
}

func (p PlayerProps) get(k Key) (interface{}, bool) {
	switch k {
	case KeyHealth:
		if p.Health != nil {
			return *p.Health, true
		}
	case KeyIsReady:
		if p.IsReady != nil {
			return *p.IsReady, true
		}
	}
	return nil, false
}

// PropsUpdate is one partial write to a single scope. Exactly one of Room
// or Player is set, matching Scope.
type PropsUpdate struct {
	Scope  Scope        `msgpack:"s"`
	Room   *RoomProps   `msgpack:"r,omitempty"`
	Player *PlayerProps `msgpack:"p,omitempty"`
}

// Valid reports whether the record kind matches the scope
func (u PropsUpdate) Valid() bool {
	if u.Scope.IsRoom() {
		return u.Room != nil && u.Player == nil
	}
	return u.Scope.Actor > 0 && u.Player != nil && u.Room == nil
}

// Keys lists the properties the update writes
func (u PropsUpdate) Keys() []Key {
	var scratch RoomProps
	var pscratch PlayerProps
	if u.Room != nil {
		return scratch.merge(*u.Room)
	}
	if u.Player != nil {
		return pscratch.merge(*u.Player)
	}
	return nil
}
