package main

import "fmt"

// Room and match screen labels
const (
	labelReady        = "Ready!"
	labelReadyPrompt  = "Ready?"
	labelNotReady     = "Not ready yet"
	labelEmptySlot    = "Waiting for other player..."
	labelStart        = "Start"
	labelStartAsIs    = "Start as is"
	labelNotAllReady  = "Not all players ready..."
	labelWaitingHost  = "Waiting for host to start"
	labelWaitingSpawn = "Waiting for other players"
	labelPlayAgain    = "Play Again"
	labelWaitingReset = "Waiting for host..."
)

// SlotView is one of the MaxPlayer seats of the room screen
type SlotView struct {
	Actor     int
	Name      string
	Label     string
	Occupied  bool
	CanToggle bool // only the local participant can flag itself ready, once
}

// RoomView is what the room screen shows
type RoomView struct {
	Name     string
	Slots    [MaxPlayer]SlotView
	Start    string
	CanStart bool
	AllReady bool
	IsMaster bool
}

// BuildRoomView computes the room screen from the roster
func BuildRoomView(room string, members []*Participant, isMaster bool) RoomView {
	v := RoomView{Name: room, IsMaster: isMaster, AllReady: true}
	for i := 0; i < MaxPlayer; i++ {
		if i >= len(members) {
			v.Slots[i] = SlotView{Name: labelEmptySlot}
			continue
		}
		p := members[i]
		s := SlotView{Actor: p.ID, Name: p.Name, Occupied: true}
		switch {
		case p.IsReady:
			s.Label = labelReady
		case p.IsLocal:
			s.Label = labelReadyPrompt
			s.CanToggle = true
		default:
			s.Label = labelNotReady
		}
		if !p.IsReady {
			v.AllReady = false
		}
		v.Slots[i] = s
	}
	if len(members) == 0 {
		v.AllReady = false
	}

	v.CanStart = v.AllReady && isMaster
	switch {
	case isMaster && v.AllReady && len(members) == MaxPlayer:
		v.Start = labelStart
	case isMaster && v.AllReady:
		v.Start = labelStartAsIs
	case !isMaster && v.AllReady:
		v.Start = labelWaitingHost
	default:
		v.Start = labelNotAllReady
	}
	return v
}

// RoomView returns the room screen for the peer's current room
func (p *Peer) RoomView() RoomView {
	return BuildRoomView(p.room, p.roster.Members(), p.store.IsMaster())
}

// ReadyText is the ready panel line for a countdown event
func ReadyText(e Event) string {
	switch e.Kind {
	case EvtWaiting:
		return labelWaitingSpawn
	case EvtCountdown:
		if e.Value == 0 {
			return "Go!"
		}
		return fmt.Sprintf("Start in %d...", e.Value)
	}
	return ""
}

// RestartLabel is the result screen button label
func RestartLabel(isMaster bool) string {
	if isMaster {
		return labelPlayAgain
	}
	return labelWaitingReset
}
