package main

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// FrameKind tags every binary websocket message
type FrameKind uint8

// Participant -> relay
const (
	FrameHello     FrameKind = 1 // set nickname, enter lobby
	FrameList      FrameKind = 2 // list open rooms
	FrameCreate    FrameKind = 3 // create room and join it
	FrameJoin      FrameKind = 4 // join existing room
	FrameLeaveRoom FrameKind = 5
	FramePing      FrameKind = 6
)

// Relay -> participant
const (
	FrameConnected FrameKind = 20
	FrameRooms     FrameKind = 21
	FrameJoined    FrameKind = 22 // local participant entered a room, with snapshot
	FrameEntered   FrameKind = 23 // another participant entered
	FrameExited    FrameKind = 24 // another participant left
	FrameLeft      FrameKind = 25 // local participant left the room
	FrameError     FrameKind = 26
	FramePong      FrameKind = 27
)

// Both directions, relayed inside a room
const (
	FrameProps     FrameKind = 40
	FrameRPC       FrameKind = 41
	FrameTransform FrameKind = 42
	FrameLoadLevel FrameKind = 43
)

// Target selects the receivers of a relayed frame
type Target int

const (
	TargetAll    Target = 0  // everyone in the room, sender included, in relay order
	TargetOthers Target = -1 // everyone but the sender
)

// TargetActor addresses a single participant
func TargetActor(actor int) Target { return Target(actor) }

// RPC method names
const (
	RPCFire            = "requestFire"
	RPCHealthDecrement = "requestHealthDecrement"
	RPCRematch         = "requestRematch"
	RPCSpawn           = "announceSpawn"
)

// Relay error codes. The room codes follow the values clients of the
// original relay already map to messages.
const (
	CodeBadRequest       = -2
	CodeNotAllowed       = -3
	CodeGameDoesNotExist = 32758
	CodeGameClosed       = 32764
	CodeGameFull         = 32765
	CodeGameExists       = 32766
	CodeTooManyRooms     = 32767
)

// Frame is the envelope for every message. Body holds the msgpack-encoded
// payload, decoded once the kind is known.
type Frame struct {
	Kind FrameKind          `msgpack:"k"`
	From int                `msgpack:"f,omitempty"`  // sender actor, stamped by the relay
	To   Target             `msgpack:"t,omitempty"`  // receivers of a relayed frame
	Sent float64            `msgpack:"st,omitempty"` // sender's estimate of server time
	Body msgpack.RawMessage `msgpack:"b,omitempty"`
}

// NewFrame builds a frame with an encoded body (nil body allowed)
func NewFrame(kind FrameKind, body interface{}) (Frame, error) {
	f := Frame{Kind: kind}
	if body == nil {
		return f, nil
	}
	b, err := msgpack.Marshal(body)
	if err != nil {
		return f, fmt.Errorf("encode frame %d: %w", kind, err)
	}
	f.Body = b
	return f, nil
}

// Decode unpacks the frame body into v
func (f Frame) Decode(v interface{}) error {
	if len(f.Body) == 0 {
		return fmt.Errorf("frame %d: empty body", f.Kind)
	}
	if err := msgpack.Unmarshal(f.Body, v); err != nil {
		return fmt.Errorf("decode frame %d: %w", f.Kind, err)
	}
	return nil
}

// MarshalFrame encodes a frame for the wire
func MarshalFrame(f Frame) ([]byte, error) {
	return msgpack.Marshal(&f)
}

// UnmarshalFrame decodes one wire message
func UnmarshalFrame(data []byte) (Frame, error) {
	var f Frame
	err := msgpack.Unmarshal(data, &f)
	return f, err
}

// HelloMsg is sent once after connecting
type HelloMsg struct {
	Name string `msgpack:"n"`
}

// RoomMsg names a room to create or join
type RoomMsg struct {
	Room string `msgpack:"r"`
}

// Member is one participant of a room
type Member struct {
	Actor int    `msgpack:"a"`
	Name  string `msgpack:"n"`
}

// JoinedMsg carries the room snapshot to a participant that just joined
type JoinedMsg struct {
	Room    string              `msgpack:"r"`
	Actor   int                 `msgpack:"a"`
	Master  int                 `msgpack:"m"`
	Members []Member            `msgpack:"ms"`
	Props   RoomProps           `msgpack:"rp"`
	Players map[int]PlayerProps `msgpack:"pp,omitempty"`
}

// PresenceMsg announces another participant entering or leaving, with the
// (possibly re-elected) master
type PresenceMsg struct {
	Member Member `msgpack:"mb"`
	Master int    `msgpack:"m"`
}

// ErrorMsg reports a rejected operation
type ErrorMsg struct {
	Code int    `msgpack:"c"`
	Msg  string `msgpack:"m"`
}

// RoomInfo is used in the room list
type RoomInfo struct {
	Name       string `json:"name" msgpack:"n"`
	Players    int    `json:"players" msgpack:"p"`
	MaxPlayers int    `json:"maxPlayers" msgpack:"mp"`
}

// RoomsMsg is the lobby room list
type RoomsMsg struct {
	Rooms []RoomInfo `msgpack:"r"`
}

// RPCMsg is a fire-and-forget remote call
type RPCMsg struct {
	Method string             `msgpack:"m"`
	Args   msgpack.RawMessage `msgpack:"a,omitempty"`
}

// FireArgs spawns one projectile on every observer
type FireArgs struct {
	Origin Vec3    `msgpack:"o"`
	Yaw    float64 `msgpack:"y"`
	Seq    int     `msgpack:"s"` // per-shooter shot counter, forms the projectile id
}

// HitArgs asks the hit participant to take one point of damage
type HitArgs struct {
	Projectile string `msgpack:"p"`
}

// RematchArgs asks the others to reload a scene
type RematchArgs struct {
	Scene string `msgpack:"s"`
}

// SpawnArgs announces a freshly spawned avatar
type SpawnArgs struct {
	Pos Vec3    `msgpack:"p"`
	Yaw float64 `msgpack:"y"`
}

// TransformMsg is the periodic avatar pose
type TransformMsg struct {
	Pos Vec3    `msgpack:"p"`
	Yaw float64 `msgpack:"y"`
}

// LevelMsg orders every participant to load a scene
type LevelMsg struct {
	Scene string `msgpack:"s"`
}

// PingMsg / PongMsg estimate the server clock
type PingMsg struct {
	Client float64 `msgpack:"c"`
}

type PongMsg struct {
	Client float64 `msgpack:"c"`
	Server float64 `msgpack:"s"`
}

// NewRPCFrame encodes an RPC call to target
func NewRPCFrame(method string, target Target, args interface{}) (Frame, error) {
	msg := RPCMsg{Method: method}
	if args != nil {
		b, err := msgpack.Marshal(args)
		if err != nil {
			return Frame{}, fmt.Errorf("encode %s args: %w", method, err)
		}
		msg.Args = b
	}
	f, err := NewFrame(FrameRPC, msg)
	f.To = target
	return f, err
}

// DecodeArgs unpacks RPC arguments into v
func (m RPCMsg) DecodeArgs(v interface{}) error {
	if len(m.Args) == 0 {
		return fmt.Errorf("%s: missing args", m.Method)
	}
	if err := msgpack.Unmarshal(m.Args, v); err != nil {
		return fmt.Errorf("%s: %w", m.Method, err)
	}
	return nil
}
