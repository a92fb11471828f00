package main

import "testing"

func TestFrameWireRoundTrip(t *testing.T) {
	f, err := NewRPCFrame(RPCFire, TargetOthers, FireArgs{Origin: Vec3{X: 1, Y: 1.2, Z: -3}, Yaw: 45, Seq: 7})
	if err != nil {
		t.Fatalf("rpc frame: %v", err)
	}
	f.From = 3
	f.Sent = 12.5
	data, err := MarshalFrame(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := UnmarshalFrame(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Kind != FrameRPC || got.From != 3 || got.To != TargetOthers || got.Sent != 12.5 {
		t.Errorf("unexpected envelope %+v", got)
	}
	var msg RPCMsg
	if err := got.Decode(&msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var args FireArgs
	if err := msg.DecodeArgs(&args); err != nil {
		t.Fatalf("args: %v", err)
	}
	if msg.Method != RPCFire || args.Seq != 7 || args.Origin.Z != -3 {
		t.Errorf("unexpected call %s %+v", msg.Method, args)
	}
}

func TestFrameEmptyBody(t *testing.T) {
	f, _ := NewFrame(FrameList, nil)
	var v HelloMsg
	if err := f.Decode(&v); err == nil {
		t.Error("expected an error decoding an empty body")
	}
	if err := (RPCMsg{Method: RPCSpawn}).DecodeArgs(&v); err == nil {
		t.Error("expected an error for missing args")
	}
}

func TestPropsUpdateValid(t *testing.T) {
	cases := []struct {
		u    PropsUpdate
		want bool
	}{
		{PropsUpdate{Scope: RoomScope, Room: &RoomProps{}}, true},
		{PropsUpdate{Scope: PlayerScope(2), Player: &PlayerProps{}}, true},
		{PropsUpdate{Scope: RoomScope, Player: &PlayerProps{}}, false},
		{PropsUpdate{Scope: PlayerScope(2), Room: &RoomProps{}}, false},
		{PropsUpdate{Scope: PlayerScope(-1), Player: &PlayerProps{}}, false},
	}
	for i, c := range cases {
		if got := c.u.Valid(); got != c.want {
			t.Errorf("case %d: expected %v, got %v", i, c.want, got)
		}
	}
	u := PropsUpdate{Scope: PlayerScope(1), Player: &PlayerProps{Health: Int(2), IsReady: Bool(true)}}
	if keys := u.Keys(); len(keys) != 2 || keys[0] != KeyHealth {
		t.Errorf("unexpected keys %v", keys)
	}
}
