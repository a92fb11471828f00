package main

import (
	"fmt"
	"sort"
	"strings"
)

// CountdownSeconds is announced 3, 2, 1 before gameplay starts
const CountdownSeconds = 3

// GamePhase is the lifecycle of one session instance
type GamePhase int

const (
	PhaseReady    GamePhase = 0
	PhaseGameplay GamePhase = 1
	PhaseResult   GamePhase = 2
)

func (p GamePhase) String() string {
	switch p {
	case PhaseReady:
		return "ready"
	case PhaseGameplay:
		return "gameplay"
	case PhaseResult:
		return "result"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// TiePolicy decides what happens when nobody is left alive
type TiePolicy int

const (
	TieWait TiePolicy = iota // keep waiting for a single survivor
	TieDraw                  // end the match without a winner
)

func (p TiePolicy) String() string {
	if p == TieDraw {
		return "draw"
	}
	return "wait"
}

// ParseTiePolicy reads "wait" or "draw"
func ParseTiePolicy(s string) (TiePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "wait":
		return TieWait, nil
	case "draw":
		return TieDraw, nil
	}
	return TieWait, fmt.Errorf("unknown tie policy %q", s)
}

// UnmarshalText lets the env parser fill TiePolicy fields
func (p *TiePolicy) UnmarshalText(b []byte) error {
	v, err := ParseTiePolicy(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// PhaseHooks receives phase controller notifications. Nil hooks are skipped.
type PhaseHooks struct {
	Countdown func(n int) // 3, 2, 1, then 0 for "Go!"
	Enter     func(p GamePhase)
}

// PhaseController drives Ready -> Gameplay -> Result. Transitions only
// move forward; a rematch builds a new controller.
type PhaseController struct {
	phase    GamePhase
	policy   TiePolicy
	sched    *Scheduler
	hooks    PhaseHooks
	counting bool
	snapshot []int
	timers   []*Timer
	winner   int
	draw     bool
}

// NewPhaseController starts in Ready
func NewPhaseController(sched *Scheduler, policy TiePolicy, hooks PhaseHooks) *PhaseController {
	return &PhaseController{
		phase:  PhaseReady,
		policy: policy,
		sched:  sched,
		hooks:  hooks,
	}
}

// Phase returns the current phase
func (pc *PhaseController) Phase() GamePhase { return pc.phase }

// CountingDown reports whether the ready countdown is running
func (pc *PhaseController) CountingDown() bool { return pc.counting && pc.phase == PhaseReady }

// Snapshot returns the participants counted for the win check
func (pc *PhaseController) Snapshot() []int {
	out := make([]int, len(pc.snapshot))
	copy(out, pc.snapshot)
	return out
}

// Winner returns the winning actor once in Result
func (pc *PhaseController) Winner() (int, bool) {
	if pc.phase != PhaseResult || pc.draw {
		return 0, false
	}
	return pc.winner, true
}

// Draw reports a Result reached with nobody alive
func (pc *PhaseController) Draw() bool { return pc.phase == PhaseResult && pc.draw }

// CheckReady starts the countdown the first time the spawned participants
// reach expected. The snapshot of playable participants is taken here.
func (pc *PhaseController) CheckReady(spawned []int, expected int) bool {
	if pc.phase != PhaseReady || pc.counting {
		return false
	}
	if expected < 1 {
		expected = 1
	}
	if len(spawned) < expected {
		return false
	}
	pc.counting = true
	pc.snapshot = append([]int(nil), spawned...)
	sort.Ints(pc.snapshot)

	for i := 0; i < CountdownSeconds; i++ {
		n := CountdownSeconds - i
		pc.timers = append(pc.timers, pc.sched.After(float64(i), func() {
			if pc.hooks.Countdown != nil {
				pc.hooks.Countdown(n)
			}
		}))
	}
	pc.timers = append(pc.timers, pc.sched.After(CountdownSeconds, func() {
		if pc.hooks.Countdown != nil {
			pc.hooks.Countdown(0)
		}
		pc.enter(PhaseGameplay)
	}))
	return true
}

// Remove drops a participant that left before gameplay from the snapshot.
// Once gameplay starts the snapshot is fixed.
func (pc *PhaseController) Remove(actor int) {
	if pc.phase != PhaseReady {
		return
	}
	for i, a := range pc.snapshot {
		if a == actor {
			pc.snapshot = append(pc.snapshot[:i], pc.snapshot[i+1:]...)
			return
		}
	}
}

// CheckWinner evaluates the snapshot after a death. It enters Result when
// exactly one participant is alive, or with a draw when none are and the
// policy allows it.
func (pc *PhaseController) CheckWinner(alive func(actor int) bool) bool {
	if pc.phase != PhaseGameplay {
		return false
	}
	survivors := Survivors(pc.snapshot, alive)
	switch {
	case len(survivors) == 1:
		pc.winner = survivors[0]
	case len(survivors) == 0 && pc.policy == TieDraw:
		pc.draw = true
	default:
		return false
	}
	pc.enter(PhaseResult)
	return true
}

// Stop cancels the countdown
func (pc *PhaseController) Stop() {
	for _, t := range pc.timers {
		t.Cancel()
	}
	pc.timers = nil
}

func (pc *PhaseController) enter(p GamePhase) {
	if p <= pc.phase {
		return
	}
	pc.phase = p
	if pc.hooks.Enter != nil {
		pc.hooks.Enter(p)
	}
}
