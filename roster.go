package main

import (
	"log"
	"sort"
)

// Roster tracks who is in the room and keeps the expected participant
// count in step with departures.
type Roster struct {
	store   *Store
	members map[int]*Participant
	unsub   func()
}

// NewRoster mirrors participant properties from store into the roster
func NewRoster(store *Store) *Roster {
	r := &Roster{
		store:   store,
		members: make(map[int]*Participant),
	}
	r.unsub = store.OnChange(r.onChange)
	return r
}

// Join registers a participant with full health and not ready. The local
// participant publishes its own initial properties.
func (r *Roster) Join(actor int, name string, local bool) *Participant {
	p := &Participant{
		ID:        actor,
		Name:      name,
		IsLocal:   local,
		Health:    MaxHealth,
		Connected: true,
	}
	// late joiners see values cached by the relay
	if h, ok := r.store.Health(actor); ok {
		p.Health = h
	}
	if ready, ok := r.store.IsReady(actor); ok {
		p.IsReady = ready
	}
	r.members[actor] = p
	if local {
		err := r.store.SetPlayer(actor, PlayerProps{Health: Int(MaxHealth), IsReady: Bool(false)})
		if err != nil {
			log.Printf("roster: initial properties for %d: %v", actor, err)
		}
	}
	return p
}

// Leave removes a participant. The master lowers the expected count when
// one was established.
func (r *Roster) Leave(actor int) (*Participant, bool) {
	p, ok := r.members[actor]
	if !ok {
		return nil, false
	}
	p.Connected = false
	delete(r.members, actor)
	r.store.Remove(actor)

	if n, ok := r.store.ExpectedCount(); ok && r.store.IsMaster() {
		if err := r.store.SetRoom(RoomProps{ExpectedCount: Int(max(0, n-1))}); err != nil {
			log.Printf("roster: expected count after %d left: %v", actor, err)
		}
	}
	return p, true
}

// Get returns a participant by actor number
func (r *Roster) Get(actor int) (*Participant, bool) {
	p, ok := r.members[actor]
	return p, ok
}

// Members returns participants ordered by actor number
func (r *Roster) Members() []*Participant {
	out := make([]*Participant, 0, len(r.members))
	for _, p := range r.members {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of participants in the room
func (r *Roster) Count() int { return len(r.members) }

// AllReady reports whether every participant flagged ready
func (r *Roster) AllReady() bool {
	if len(r.members) == 0 {
		return false
	}
	for _, p := range r.members {
		if !p.IsReady {
			return false
		}
	}
	return true
}

// Clear forgets every participant when the local one leaves the room
func (r *Roster) Clear() {
	r.members = make(map[int]*Participant)
}

// Close stops mirroring the store
func (r *Roster) Close() {
	if r.unsub != nil {
		r.unsub()
		r.unsub = nil
	}
}

func (r *Roster) onChange(c Change) {
	if c.Scope.IsRoom() {
		return
	}
	p, ok := r.members[c.Scope.Actor]
	if !ok {
		return
	}
	if h, ok := r.store.Health(p.ID); ok && c.Has(KeyHealth) {
		p.Health = h
	}
	if ready, ok := r.store.IsReady(p.ID); ok && c.Has(KeyIsReady) {
		p.IsReady = ready
	}
}

// Survivors returns the actors of snapshot that are still alive
func Survivors(snapshot []int, alive func(actor int) bool) []int {
	var out []int
	for _, a := range snapshot {
		if alive(a) {
			out = append(out, a)
		}
	}
	return out
}
