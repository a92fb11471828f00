package main

import "fmt"

// EventKind classifies what the presentation layer is told
type EventKind int

const (
	EvtStage     EventKind = iota // Menu / Lobby / Room / Match
	EvtNotice                     // user-visible failure
	EvtPresence                   // someone entered or left the room
	EvtWaiting                    // waiting for the others to spawn
	EvtCountdown                  // 3, 2, 1, then 0 for "Go!"
	EvtPhase
	EvtSpawn
	EvtShot
	EvtHit
	EvtDeath
	EvtResult
)

var eventNames = map[EventKind]string{
	EvtStage:     "stage",
	EvtNotice:    "notice",
	EvtPresence:  "presence",
	EvtWaiting:   "waiting",
	EvtCountdown: "countdown",
	EvtPhase:     "phase",
	EvtSpawn:     "spawn",
	EvtShot:      "shot",
	EvtHit:       "hit",
	EvtDeath:     "death",
	EvtResult:    "result",
}

func (k EventKind) String() string {
	if s, ok := eventNames[k]; ok {
		return s
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is one notification for the presentation layer
type Event struct {
	Kind  EventKind
	Actor int
	Value int
	Text  string
}

func (e Event) String() string {
	if e.Text != "" {
		return fmt.Sprintf("%s actor=%d %s", e.Kind, e.Actor, e.Text)
	}
	return fmt.Sprintf("%s actor=%d value=%d", e.Kind, e.Actor, e.Value)
}

// EventSink receives events on the participant loop
type EventSink interface {
	Emit(e Event)
}

// EventFunc adapts a function to EventSink
type EventFunc func(e Event)

func (f EventFunc) Emit(e Event) { f(e) }

type discardSink struct{}

func (discardSink) Emit(Event) {}
