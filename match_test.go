package main

import (
	"strings"
	"testing"
)

// aimAt fires continuously at target once both avatars exist
func aimAt(target int) func(p *Peer) Input {
	return func(p *Peer) Input {
		m := p.Match()
		if m == nil {
			return Input{}
		}
		me, ok := m.Avatar(p.Store().Local())
		them, ok2 := m.Avatar(target)
		if !ok || !ok2 {
			return Input{}
		}
		return Input{Aim: DirYaw(them.Pos.Sub(me.Pos)), Fire: true}
	}
}

func TestMatchSpawnAndCountdown(t *testing.T) {
	n := newTestNet(t)
	a := n.peer("Alice")
	b := n.peer("Bob")
	n.start(a, b)

	n.run(0.9)
	if _, ok := a.Match().Avatar(1); ok {
		t.Error("avatar should not spawn before the spawn delay")
	}
	n.run(0.3)
	for _, p := range []*Peer{a, b} {
		if len(p.Match().Avatars()) != 2 {
			t.Fatalf("%s: expected both avatars, got %d", p.Name(), len(p.Match().Avatars()))
		}
		if !p.Match().PhaseController().CountingDown() {
			t.Errorf("%s: expected countdown running", p.Name())
		}
	}
	pos, _ := SpawnPoint(2)
	if av, _ := a.Match().Avatar(2); av.Pos != pos {
		t.Errorf("expected Bob at %v, got %v", pos, av.Pos)
	}

	// spawned at ~1s, countdown lasts 3s
	n.run(2.6)
	if a.Match().Phase() != PhaseReady {
		t.Error("gameplay must not start before the countdown ends")
	}
	n.run(0.5)
	for _, p := range []*Peer{a, b} {
		if p.Match().Phase() != PhaseGameplay {
			t.Errorf("%s: expected gameplay, got %s", p.Name(), p.Match().Phase())
		}
		var got []int
		for _, e := range n.eventsOf(p, EvtCountdown) {
			got = append(got, e.Value)
		}
		if len(got) != 4 || got[0] != 3 || got[3] != 0 {
			t.Errorf("%s: expected countdown 3 2 1 0, got %v", p.Name(), got)
		}
		if len(n.eventsOf(p, EvtWaiting)) == 0 {
			t.Errorf("%s: expected a waiting notification", p.Name())
		}
	}
}

func TestMatchWinnerAfterFiveHits(t *testing.T) {
	n := newTestNet(t)
	a := n.peer("Alice")
	b := n.peer("Bob")
	n.play(a, b)

	for i := 1; i <= MaxHealth; i++ {
		n.hit(b, 1, ProjectileID(2, i))
		if i == 2 {
			// the same projectile reported twice
			n.hit(b, 1, ProjectileID(2, i))
		}
		n.run(testDt * 3)
		if i < MaxHealth && a.Match().Phase() != PhaseGameplay {
			t.Fatalf("match ended after %d hits", i)
		}
	}
	n.run(0.1)

	if a.Match().Health() != 0 {
		t.Errorf("expected Alice at 0 health, got %d", a.Match().Health())
	}
	for _, p := range []*Peer{a, b} {
		m := p.Match()
		if m.Phase() != PhaseResult {
			t.Fatalf("%s: expected result, got %s", p.Name(), m.Phase())
		}
		if w, ok := m.PhaseController().Winner(); !ok || w != 2 {
			t.Errorf("%s: expected Bob to win, got %d", p.Name(), w)
		}
		res := n.eventsOf(p, EvtResult)
		if len(res) != 1 || res[0].Text != "Bob is the winner!" {
			t.Errorf("%s: unexpected result events %v", p.Name(), res)
		}
		if av, _ := m.Avatar(1); !av.Dead {
			t.Errorf("%s: Alice should be dead", p.Name())
		}
	}
	if r := a.Results(); len(r) != 1 || r[0].LocalWon() || r[0].WinnerName != "Bob" {
		t.Errorf("unexpected summary for Alice %+v", r)
	}
	if r := b.Results(); len(r) != 1 || !r[0].LocalWon() || len(r[0].Participants) != 2 {
		t.Errorf("unexpected summary for Bob %+v", r)
	}
	if a.Match().Weapon().Charge != 0 {
		t.Error("a dead participant has no charge")
	}
}

func TestMatchIgnoresHitsBeforeGameplay(t *testing.T) {
	n := newTestNet(t)
	a := n.peer("Alice")
	b := n.peer("Bob")
	n.start(a, b)
	n.run(1.5)
	n.hit(b, 1, ProjectileID(2, 1))
	n.run(0.1)
	if a.Match().Health() != MaxHealth {
		t.Errorf("expected full health during the countdown, got %d", a.Match().Health())
	}
	if h, _ := b.Store().Health(1); h != MaxHealth {
		t.Errorf("expected replicated health %d, got %d", MaxHealth, h)
	}
}

func TestMatchCombatEndToEnd(t *testing.T) {
	n := newTestNet(t)
	a := n.peer("Alice")
	b := n.peer("Bob")
	n.inputs[b] = aimAt(1)
	n.play(a, b)

	ok := n.runUntil(20, func() bool {
		return a.Match().Phase() == PhaseResult && b.Match().Phase() == PhaseResult
	})
	if !ok {
		h, _ := b.Store().Health(1)
		t.Fatalf("no result after sustained fire, Alice at %d", h)
	}
	if w, _ := a.Match().PhaseController().Winner(); w != 2 {
		t.Errorf("expected Bob to win, got %d", w)
	}
	if len(n.eventsOf(a, EvtShot)) == 0 || len(n.eventsOf(b, EvtHit)) == 0 {
		t.Error("expected shots and hits to be reported")
	}
	if h, _ := a.Store().Health(2); h != MaxHealth {
		t.Errorf("Bob should be untouched, got %d", h)
	}
}

func TestMatchRematch(t *testing.T) {
	n := newTestNet(t)
	a := n.peer("Alice")
	b := n.peer("Bob")
	n.play(a, b)
	for i := 1; i <= MaxHealth; i++ {
		n.hit(b, 1, ProjectileID(2, i))
	}
	n.run(0.2)
	if a.Match().Phase() != PhaseResult {
		t.Fatalf("expected result, got %s", a.Match().Phase())
	}

	if err := b.PlayAgain(); err != ErrNotMaster {
		t.Errorf("expected ErrNotMaster, got %v", err)
	}
	if RestartLabel(b.Store().IsMaster()) != "Waiting for host..." {
		t.Error("unexpected restart label for a guest")
	}
	oldA, oldB := a.Match().ID, b.Match().ID
	if err := a.PlayAgain(); err != nil {
		t.Fatalf("play again: %v", err)
	}
	n.run(testDt)
	if a.Match().ID == oldA || b.Match().ID == oldB {
		t.Error("a rematch builds a new session instance")
	}
	if a.Match().Phase() != PhaseReady || b.Match().Phase() != PhaseReady {
		t.Error("a rematch starts in ready")
	}

	ok := n.runUntil(10, func() bool {
		return a.Match().Phase() == PhaseGameplay && b.Match().Phase() == PhaseGameplay
	})
	if !ok {
		t.Fatal("rematch never reached gameplay")
	}
	if a.Match().Health() != MaxHealth {
		t.Errorf("expected Alice back at %d, got %d", MaxHealth, a.Match().Health())
	}
	if h, _ := b.Store().Health(1); h != MaxHealth {
		t.Errorf("expected replicated health reset, got %d", h)
	}
	if a.Match().Weapon().Charge != DefaultWeapon().MaxCharge {
		t.Error("charge should be full after respawning")
	}
}

func TestMatchLeaveBeforeGameplay(t *testing.T) {
	n := newTestNet(t)
	a := n.peer("Alice")
	b := n.peer("Bob")
	c := n.peer("Carol")
	n.start(a, b, c)
	c.Disconnect()

	if !n.runUntil(10, func() bool {
		return a.Match().Phase() == PhaseGameplay && b.Match().Phase() == PhaseGameplay
	}) {
		t.Fatal("remaining participants should start without the leaver")
	}
	if got := b.Store().ExpectedCountOr(0); got != 2 {
		t.Errorf("expected count lowered to 2, got %d", got)
	}
	if s := a.Match().PhaseController().Snapshot(); len(s) != 2 {
		t.Errorf("expected snapshot of 2, got %v", s)
	}
}

func TestMatchLeaverStaysInWinCheck(t *testing.T) {
	n := newTestNet(t)
	a := n.peer("Alice")
	b := n.peer("Bob")
	c := n.peer("Carol")
	n.play(a, b, c)

	c.Disconnect()
	n.run(0.1)
	if av, ok := a.Match().Avatar(3); !ok || !av.Left {
		t.Fatal("a leaver keeps its avatar, marked left")
	}
	for i := 1; i <= MaxHealth; i++ {
		n.hit(b, 1, ProjectileID(2, i))
	}
	n.run(0.2)
	if a.Match().Phase() != PhaseGameplay {
		t.Errorf("Carol left alive, so nobody has won yet: got %s", a.Match().Phase())
	}
	if got := a.Store().ExpectedCountOr(0); got != 2 {
		t.Errorf("expected count lowered to 2, got %d", got)
	}
}

func TestMatchWaitingText(t *testing.T) {
	n := newTestNet(t)
	a := n.peer("Alice")
	b := n.peer("Bob")
	n.start(a, b)
	n.run(0.5)
	w := n.eventsOf(a, EvtWaiting)
	if len(w) != 1 || w[0].Value != 2 {
		t.Fatalf("expected a single waiting event for 2, got %v", w)
	}
	if ReadyText(w[0]) != "Waiting for other players" {
		t.Errorf("unexpected ready text %q", ReadyText(w[0]))
	}
	n.run(4)
	var texts []string
	for _, e := range n.eventsOf(a, EvtCountdown) {
		texts = append(texts, ReadyText(e))
	}
	if got := strings.Join(texts, ","); got != "Start in 3...,Start in 2...,Start in 1...,Go!" {
		t.Errorf("unexpected countdown texts %s", got)
	}
}

func TestMatchAvatarsBlockEachOther(t *testing.T) {
	me := &Avatar{Actor: 1, Pos: Vec3{X: 0.8}}
	other := &Avatar{Actor: 2}
	m := &Match{avatars: map[int]*Avatar{1: me, 2: other}}
	if !m.blocked(me, Vec3{X: 1.2}) {
		t.Error("moving into another avatar should be blocked")
	}
	if m.blocked(me, Vec3{X: 0.5}) {
		t.Error("moving apart should be allowed")
	}
	other.Dead = true
	if m.blocked(me, Vec3{X: 1.2}) {
		t.Error("dead avatars do not block")
	}
}
