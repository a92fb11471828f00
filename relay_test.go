package main

import "testing"

// mockEndpoint collects every frame the relay delivers
type mockEndpoint struct {
	frames []Frame
}

func (m *mockEndpoint) Deliver(f Frame) { m.frames = append(m.frames, f) }

func (m *mockEndpoint) last() Frame {
	if len(m.frames) == 0 {
		return Frame{}
	}
	return m.frames[len(m.frames)-1]
}

func (m *mockEndpoint) count(kind FrameKind) int {
	n := 0
	for _, f := range m.frames {
		if f.Kind == kind {
			n++
		}
	}
	return n
}

func mustFrame(t *testing.T, kind FrameKind, body interface{}) Frame {
	t.Helper()
	f, err := NewFrame(kind, body)
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	return f
}

func attachNamed(t *testing.T, r *Relay, name string) (*Link, *mockEndpoint) {
	t.Helper()
	ep := &mockEndpoint{}
	l := r.Attach(ep)
	l.Handle(mustFrame(t, FrameHello, HelloMsg{Name: name}))
	if ep.last().Kind != FrameConnected {
		t.Fatalf("expected connected for %s, got %d", name, ep.last().Kind)
	}
	return l, ep
}

func expectError(t *testing.T, ep *mockEndpoint, code int) ErrorMsg {
	t.Helper()
	f := ep.last()
	if f.Kind != FrameError {
		t.Fatalf("expected error frame, got %d", f.Kind)
	}
	var e ErrorMsg
	if err := f.Decode(&e); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if e.Code != code {
		t.Errorf("expected code %d, got %d (%s)", code, e.Code, e.Msg)
	}
	return e
}

func joined(t *testing.T, ep *mockEndpoint) JoinedMsg {
	t.Helper()
	for i := len(ep.frames) - 1; i >= 0; i-- {
		if ep.frames[i].Kind == FrameJoined {
			var msg JoinedMsg
			if err := ep.frames[i].Decode(&msg); err != nil {
				t.Fatalf("decode joined: %v", err)
			}
			return msg
		}
	}
	t.Fatal("no joined frame")
	return JoinedMsg{}
}

func TestRelayHelloRejectsEmptyName(t *testing.T) {
	r := NewRelay(&ManualClock{}, 0)
	ep := &mockEndpoint{}
	l := r.Attach(ep)
	l.Handle(mustFrame(t, FrameHello, HelloMsg{Name: "   "}))
	e := expectError(t, ep, CodeBadRequest)
	if e.Msg != "Name cannot empty" {
		t.Errorf("unexpected message %q", e.Msg)
	}
}

func TestRelayCreateAndJoin(t *testing.T) {
	r := NewRelay(&ManualClock{}, 0)
	a, epA := attachNamed(t, r, "Alice")
	b, epB := attachNamed(t, r, "Bob")

	a.Handle(mustFrame(t, FrameCreate, RoomMsg{Room: "arena"}))
	ja := joined(t, epA)
	if ja.Actor != 1 || ja.Master != 1 {
		t.Errorf("expected creator to be actor 1 and master, got %d/%d", ja.Actor, ja.Master)
	}

	b.Handle(mustFrame(t, FrameJoin, RoomMsg{Room: "arena"}))
	jb := joined(t, epB)
	if jb.Actor != 2 || jb.Master != 1 || len(jb.Members) != 2 {
		t.Errorf("unexpected snapshot %+v", jb)
	}
	if epA.last().Kind != FrameEntered {
		t.Errorf("expected creator to see entered, got %d", epA.last().Kind)
	}
}

func TestRelayAdmissionCodes(t *testing.T) {
	r := NewRelay(&ManualClock{}, 0)
	host, _ := attachNamed(t, r, "Host")
	host.Handle(mustFrame(t, FrameCreate, RoomMsg{Room: "arena"}))

	l, ep := attachNamed(t, r, "Late")
	l.Handle(mustFrame(t, FrameJoin, RoomMsg{Room: "nowhere"}))
	expectError(t, ep, CodeGameDoesNotExist)

	l.Handle(mustFrame(t, FrameCreate, RoomMsg{Room: "arena"}))
	e := expectError(t, ep, CodeGameExists)
	if e.Msg != "A game with the specified id already exist." {
		t.Errorf("unexpected message %q", e.Msg)
	}

	l.Handle(mustFrame(t, FrameCreate, RoomMsg{Room: ""}))
	e = expectError(t, ep, CodeBadRequest)
	if e.Msg != "Room Name cannot empty" {
		t.Errorf("unexpected message %q", e.Msg)
	}

	for i := 0; i < MaxPlayer-1; i++ {
		p, _ := attachNamed(t, r, "P")
		p.Handle(mustFrame(t, FrameJoin, RoomMsg{Room: "arena"}))
	}
	l.Handle(mustFrame(t, FrameJoin, RoomMsg{Room: "arena"}))
	expectError(t, ep, CodeGameFull)
}

func TestRelayClosedRoom(t *testing.T) {
	r := NewRelay(&ManualClock{}, 0)
	host, _ := attachNamed(t, r, "Host")
	host.Handle(mustFrame(t, FrameCreate, RoomMsg{Room: "arena"}))
	host.Handle(mustFrame(t, FrameProps, PropsUpdate{Scope: RoomScope, Room: &RoomProps{IsOpen: Bool(false)}}))

	l, ep := attachNamed(t, r, "Late")
	l.Handle(mustFrame(t, FrameJoin, RoomMsg{Room: "arena"}))
	expectError(t, ep, CodeGameClosed)
	if len(r.ListRooms()) != 0 {
		t.Error("closed rooms must not be listed")
	}
}

func TestRelayTooManyRooms(t *testing.T) {
	r := NewRelay(&ManualClock{}, 1)
	a, _ := attachNamed(t, r, "A")
	a.Handle(mustFrame(t, FrameCreate, RoomMsg{Room: "one"}))
	b, ep := attachNamed(t, r, "B")
	b.Handle(mustFrame(t, FrameCreate, RoomMsg{Room: "two"}))
	expectError(t, ep, CodeTooManyRooms)
}

func TestRelayListHidesInvisible(t *testing.T) {
	r := NewRelay(&ManualClock{}, 0)
	a, _ := attachNamed(t, r, "A")
	a.Handle(mustFrame(t, FrameCreate, RoomMsg{Room: "beta"}))
	b, _ := attachNamed(t, r, "B")
	b.Handle(mustFrame(t, FrameCreate, RoomMsg{Room: "alpha"}))

	list := r.ListRooms()
	if len(list) != 2 || list[0].Name != "alpha" || list[1].Players != 1 {
		t.Fatalf("unexpected list %+v", list)
	}
	b.Handle(mustFrame(t, FrameProps, PropsUpdate{Scope: RoomScope, Room: &RoomProps{IsVisible: Bool(false)}}))
	list = r.ListRooms()
	if len(list) != 1 || list[0].Name != "beta" {
		t.Errorf("expected only beta listed, got %+v", list)
	}
}

func TestRelayPropsWriterEnforced(t *testing.T) {
	r := NewRelay(&ManualClock{}, 0)
	a, epA := attachNamed(t, r, "A")
	a.Handle(mustFrame(t, FrameCreate, RoomMsg{Room: "arena"}))
	b, epB := attachNamed(t, r, "B")
	b.Handle(mustFrame(t, FrameJoin, RoomMsg{Room: "arena"}))

	b.Handle(mustFrame(t, FrameProps, PropsUpdate{Scope: RoomScope, Room: &RoomProps{ExpectedCount: Int(2)}}))
	expectError(t, epB, CodeNotAllowed)

	b.Handle(mustFrame(t, FrameProps, PropsUpdate{Scope: PlayerScope(1), Player: &PlayerProps{Health: Int(0)}}))
	expectError(t, epB, CodeNotAllowed)
	if epA.count(FrameProps) != 0 {
		t.Error("rejected writes must not be relayed")
	}

	b.Handle(mustFrame(t, FrameProps, PropsUpdate{Scope: PlayerScope(2), Player: &PlayerProps{IsReady: Bool(true)}}))
	if epA.count(FrameProps) != 1 || epB.count(FrameProps) != 1 {
		t.Fatal("accepted writes are echoed to everyone, writer included")
	}
	f := epA.last()
	if f.From != 2 {
		t.Errorf("expected sender stamped as 2, got %d", f.From)
	}
}

func TestRelayLateJoinerSnapshot(t *testing.T) {
	r := NewRelay(&ManualClock{}, 0)
	a, _ := attachNamed(t, r, "A")
	a.Handle(mustFrame(t, FrameCreate, RoomMsg{Room: "arena"}))
	a.Handle(mustFrame(t, FrameProps, PropsUpdate{Scope: RoomScope, Room: &RoomProps{ExpectedCount: Int(7)}}))
	a.Handle(mustFrame(t, FrameProps, PropsUpdate{Scope: PlayerScope(1), Player: &PlayerProps{Health: Int(3), IsReady: Bool(true)}}))

	b, epB := attachNamed(t, r, "B")
	b.Handle(mustFrame(t, FrameJoin, RoomMsg{Room: "arena"}))
	j := joined(t, epB)
	if j.Props.ExpectedCount == nil || *j.Props.ExpectedCount != MaxPlayer {
		t.Errorf("expected cached count clamped to %d, got %v", MaxPlayer, j.Props.ExpectedCount)
	}
	p, ok := j.Players[1]
	if !ok || p.Health == nil || *p.Health != 3 || p.IsReady == nil || !*p.IsReady {
		t.Errorf("expected cached participant properties, got %+v", j.Players)
	}
}

func TestRelayMasterReelection(t *testing.T) {
	r := NewRelay(&ManualClock{}, 0)
	a, _ := attachNamed(t, r, "A")
	a.Handle(mustFrame(t, FrameCreate, RoomMsg{Room: "arena"}))
	b, epB := attachNamed(t, r, "B")
	b.Handle(mustFrame(t, FrameJoin, RoomMsg{Room: "arena"}))
	c, epC := attachNamed(t, r, "C")
	c.Handle(mustFrame(t, FrameJoin, RoomMsg{Room: "arena"}))

	a.Detach()
	var msg PresenceMsg
	if err := epC.last().Decode(&msg); err != nil {
		t.Fatalf("decode presence: %v", err)
	}
	if epC.last().Kind != FrameExited || msg.Member.Actor != 1 || msg.Master != 2 {
		t.Errorf("expected actor 1 exited and master 2, got %+v", msg)
	}

	// the freed slot is reused
	d, epD := attachNamed(t, r, "D")
	d.Handle(mustFrame(t, FrameJoin, RoomMsg{Room: "arena"}))
	if j := joined(t, epD); j.Actor != 1 || j.Master != 2 {
		t.Errorf("expected actor 1 under master 2, got %d/%d", j.Actor, j.Master)
	}
	if epB.count(FrameEntered) != 2 {
		t.Errorf("expected B to see two arrivals, got %d", epB.count(FrameEntered))
	}
}

func TestRelayEmptyRoomRemoved(t *testing.T) {
	r := NewRelay(&ManualClock{}, 0)
	a, epA := attachNamed(t, r, "A")
	a.Handle(mustFrame(t, FrameCreate, RoomMsg{Room: "arena"}))
	a.Handle(Frame{Kind: FrameLeaveRoom})
	if epA.last().Kind != FrameLeft {
		t.Errorf("expected left, got %d", epA.last().Kind)
	}
	if len(r.ListRooms()) != 0 {
		t.Error("empty room should be removed")
	}
	a.Detach()
	if r.Links() != 0 {
		t.Errorf("expected no links, got %d", r.Links())
	}
	if err := a.Handle(Frame{Kind: FrameLeaveRoom}); err != ErrLinkClosed {
		t.Errorf("expected ErrLinkClosed, got %v", err)
	}
}

func TestRelayRPCTargets(t *testing.T) {
	r := NewRelay(&ManualClock{}, 0)
	a, epA := attachNamed(t, r, "A")
	a.Handle(mustFrame(t, FrameCreate, RoomMsg{Room: "arena"}))
	b, epB := attachNamed(t, r, "B")
	b.Handle(mustFrame(t, FrameJoin, RoomMsg{Room: "arena"}))
	c, epC := attachNamed(t, r, "C")
	c.Handle(mustFrame(t, FrameJoin, RoomMsg{Room: "arena"}))

	f, _ := NewRPCFrame(RPCHealthDecrement, TargetActor(3), HitArgs{Projectile: "2:1"})
	b.Handle(f)
	if epC.count(FrameRPC) != 1 || epA.count(FrameRPC) != 0 || epB.count(FrameRPC) != 0 {
		t.Error("targeted RPC should reach only its target")
	}

	f, _ = NewRPCFrame(RPCFire, TargetOthers, FireArgs{Seq: 1})
	a.Handle(f)
	if epA.count(FrameRPC) != 0 || epB.count(FrameRPC) != 1 || epC.count(FrameRPC) != 2 {
		t.Error("others RPC should skip the sender")
	}

	tf := mustFrame(t, FrameTransform, TransformMsg{Yaw: 90})
	c.Handle(tf)
	if epC.count(FrameTransform) != 0 || epA.count(FrameTransform) != 1 {
		t.Error("transforms never echo to the sender")
	}

	b.Handle(mustFrame(t, FrameLoadLevel, LevelMsg{Scene: DefaultScene}))
	expectError(t, epB, CodeNotAllowed)
	a.Handle(mustFrame(t, FrameLoadLevel, LevelMsg{Scene: DefaultScene}))
	if epA.count(FrameLoadLevel) != 1 || epC.count(FrameLoadLevel) != 1 {
		t.Error("master level load should reach everyone")
	}
}

func TestRelayPong(t *testing.T) {
	clock := &ManualClock{T: 42}
	r := NewRelay(clock, 0)
	a, ep := attachNamed(t, r, "A")
	a.Handle(mustFrame(t, FramePing, PingMsg{Client: 1.5}))
	var pong PongMsg
	if err := ep.last().Decode(&pong); err != nil {
		t.Fatalf("decode pong: %v", err)
	}
	if pong.Client != 1.5 || pong.Server != 42 {
		t.Errorf("unexpected pong %+v", pong)
	}
}

func TestCleanName(t *testing.T) {
	if got := cleanName("  Zoë  ", 16); got != "Zoë" {
		t.Errorf("expected trimmed name, got %q", got)
	}
	if got := cleanName("abcdefghijklmnopqrstuvwxyz", 16); len([]rune(got)) != 16 {
		t.Errorf("expected 16 runes, got %q", got)
	}
}
