package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	TickRate     = 60 // participant ticks per second
	TickDuration = time.Second / TickRate
	pingEvery    = 1.0 // seconds between clock sync pings
)

// Notice texts shown by the menu and lobby screens
const (
	msgEmptyName = "Name cannot empty"
	msgEmptyRoom = "Room Name cannot empty"
	msgLoading   = "Loading ..."
)

var (
	ErrEmptyName    = errors.New("empty name")
	ErrEmptyRoom    = errors.New("empty room name")
	ErrNotConnected = errors.New("not connected")
	ErrNotInRoom    = errors.New("not in a room")
	ErrNotMaster    = errors.New("only the master can do this")
	ErrNotAllReady  = errors.New("not all participants are ready")
	ErrNoResult     = errors.New("match has not finished")
	ErrDisconnected = errors.New("disconnected")
)

// Stage is where the local participant is in the app flow
type Stage int

const (
	StageMenu  Stage = 0 // entry screen, not connected
	StageLobby Stage = 1 // connected, picking a room
	StageRoom  Stage = 2 // in a room, readying up
	StageMatch Stage = 3 // a game scene is loaded
)

func (s Stage) String() string {
	switch s {
	case StageMenu:
		return "menu"
	case StageLobby:
		return "lobby"
	case StageRoom:
		return "room"
	case StageMatch:
		return "match"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Notice is a user-visible failure with a machine-readable code
type Notice struct {
	Code        int
	Msg         string
	Dismissable bool
}

func (n Notice) String() string {
	if n.Code == 0 {
		return n.Msg
	}
	return fmt.Sprintf("%d - %s", n.Code, n.Msg)
}

// MatchRecorder stores finished matches
type MatchRecorder interface {
	RecordMatch(ctx context.Context, s MatchSummary) error
}

// PeerConfig holds settings for a participant process
type PeerConfig struct {
	Scene   string
	Tie     TiePolicy
	Weapon  WeaponConfig
	Seed    uint64 // 0 seeds from the runtime
	Clock   Clock  // nil uses the system clock
	History MatchRecorder
	Sink    EventSink
}

// Peer is one participant process: its relay connection, its replica of
// the room state, the roster and the current session instance. All methods
// must be called from the goroutine that runs Step.
type Peer struct {
	cfg     PeerConfig
	dial    Dialer
	conn    Conn
	stage   Stage
	status  string
	name    string
	room    string
	rooms   []RoomInfo
	store   *Store
	roster  *Roster
	clock   *ServerClock
	rng     *rand.Rand
	match   *Match
	results []MatchSummary
	notice  *Notice
	pingAcc float64
}

// NewPeer creates a participant in the menu stage
func NewPeer(cfg PeerConfig, dial Dialer) *Peer {
	if cfg.Clock == nil {
		cfg.Clock = NewSystemClock()
	}
	if cfg.Sink == nil {
		cfg.Sink = discardSink{}
	}
	if cfg.Scene == "" {
		cfg.Scene = DefaultScene
	}
	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	p := &Peer{
		cfg:   cfg,
		dial:  dial,
		clock: NewServerClock(cfg.Clock),
		rng:   rng,
	}
	p.store = NewStore(outbox{p})
	p.roster = NewRoster(p.store)
	return p
}

// Stage returns the current stage
func (p *Peer) Stage() Stage { return p.stage }

// Status returns the progress text shown while connecting
func (p *Peer) Status() string { return p.status }

// Name returns the nickname accepted by the relay
func (p *Peer) Name() string { return p.name }

// Room returns the current room name
func (p *Peer) Room() string { return p.room }

// Rooms returns the last room list received in the lobby
func (p *Peer) Rooms() []RoomInfo { return p.rooms }

// Store returns the property replica
func (p *Peer) Store() *Store { return p.store }

// Roster returns the room members
func (p *Peer) Roster() *Roster { return p.roster }

// Match returns the current session instance, nil outside a match
func (p *Peer) Match() *Match { return p.match }

// Results returns every match finished by this process
func (p *Peer) Results() []MatchSummary { return p.results }

// Clock returns the server clock estimate
func (p *Peer) Clock() *ServerClock { return p.clock }

// Notice returns the last notice, nil once dismissed
func (p *Peer) Notice() *Notice { return p.notice }

// DismissNotice clears a dismissable notice
func (p *Peer) DismissNotice() {
	if p.notice != nil && p.notice.Dismissable {
		p.notice = nil
	}
}

// Connect dials the relay and introduces the participant
func (p *Peer) Connect(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		p.raise(Notice{Msg: msgEmptyName, Dismissable: true})
		return ErrEmptyName
	}
	if p.conn != nil {
		return nil
	}
	p.status = msgLoading
	conn, err := p.dial(ctx)
	if err != nil {
		p.status = ""
		p.raise(Notice{Msg: fmt.Sprintf("connect: %v", err), Dismissable: true})
		return fmt.Errorf("dial relay: %w", err)
	}
	p.conn = conn
	f, err := NewFrame(FrameHello, HelloMsg{Name: name})
	if err != nil {
		return err
	}
	return p.send(f)
}

// ListRooms asks the relay for the open rooms
func (p *Peer) ListRooms() error {
	if p.stage != StageLobby {
		return ErrNotConnected
	}
	f, _ := NewFrame(FrameList, nil)
	return p.send(f)
}

// CreateRoom creates a room and joins it as master
func (p *Peer) CreateRoom(name string) error {
	return p.roomRequest(FrameCreate, name)
}

// JoinRoom joins an existing room
func (p *Peer) JoinRoom(name string) error {
	return p.roomRequest(FrameJoin, name)
}

func (p *Peer) roomRequest(kind FrameKind, name string) error {
	if p.stage != StageLobby {
		return ErrNotConnected
	}
	name = strings.TrimSpace(name)
	if name == "" {
		p.raise(Notice{Msg: msgEmptyRoom, Dismissable: true})
		return ErrEmptyRoom
	}
	f, err := NewFrame(kind, RoomMsg{Room: name})
	if err != nil {
		return err
	}
	return p.send(f)
}

// LeaveRoom returns to the lobby
func (p *Peer) LeaveRoom() error {
	if p.stage != StageRoom && p.stage != StageMatch {
		return ErrNotInRoom
	}
	f, _ := NewFrame(FrameLeaveRoom, nil)
	return p.send(f)
}

// SetReady flags the local participant ready
func (p *Peer) SetReady() error {
	if p.stage != StageRoom {
		return ErrNotInRoom
	}
	return p.store.SetPlayer(p.store.Local(), PlayerProps{IsReady: Bool(true)})
}

// StartGame closes the room and orders everyone to load the game scene.
// Only the master may start and only when every participant is ready.
func (p *Peer) StartGame() error {
	if p.stage != StageRoom {
		return ErrNotInRoom
	}
	if !p.store.IsMaster() {
		return ErrNotMaster
	}
	if !p.roster.AllReady() {
		return ErrNotAllReady
	}
	if err := p.store.SetRoom(RoomProps{ExpectedCount: Int(p.roster.Count())}); err != nil {
		return err
	}
	if err := p.store.SetRoom(RoomProps{IsOpen: Bool(false), IsVisible: Bool(false)}); err != nil {
		return err
	}
	f, err := NewFrame(FrameLoadLevel, LevelMsg{Scene: p.cfg.Scene})
	if err != nil {
		return err
	}
	f.To = TargetAll
	return p.send(f)
}

// PlayAgain starts a rematch once the match reached Result. The master
// asks the others to reload and reloads itself.
func (p *Peer) PlayAgain() error {
	if p.match == nil || p.match.Phase() != PhaseResult {
		return ErrNoResult
	}
	if !p.store.IsMaster() {
		return ErrNotMaster
	}
	scene := p.match.Config.Scene
	f, err := NewRPCFrame(RPCRematch, TargetOthers, RematchArgs{Scene: scene})
	if err != nil {
		return err
	}
	if err := p.send(f); err != nil {
		return err
	}
	p.loadScene(scene)
	return nil
}

// Disconnect closes the connection and returns to the menu
func (p *Peer) Disconnect() {
	if p.conn == nil {
		return
	}
	p.teardown("Disconnected")
}

// Step pumps relay frames and advances the current match by dt seconds
func (p *Peer) Step(dt float64, in Input) {
	p.Pump()
	if p.conn == nil {
		return
	}
	p.pingAcc += dt
	if p.pingAcc >= pingEvery {
		p.pingAcc = 0
		p.ping()
	}
	if p.match != nil {
		p.match.Tick(dt, in)
	}
}

// Pump handles every frame already received without blocking
func (p *Peer) Pump() {
	for p.conn != nil {
		select {
		case f, ok := <-p.conn.Frames():
			if !ok {
				p.teardown("Connection lost")
				return
			}
			p.handle(f)
		default:
			return
		}
	}
}

// Run drives the participant at TickRate until ctx is done or the
// connection drops. input is polled once per tick.
func (p *Peer) Run(ctx context.Context, input func(p *Peer) Input) error {
	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()
	dt := TickDuration.Seconds()
	for {
		select {
		case <-ctx.Done():
			p.Disconnect()
			return ctx.Err()
		case <-ticker.C:
			var in Input
			if input != nil {
				in = input(p)
			}
			p.Step(dt, in)
			if p.conn == nil {
				return ErrDisconnected
			}
		}
	}
}

func (p *Peer) handle(f Frame) {
	switch f.Kind {
	case FrameConnected:
		var msg HelloMsg
		if err := f.Decode(&msg); err == nil {
			p.name = msg.Name
		}
		p.status = ""
		p.setStage(StageLobby)
		p.ping()
		if err := p.ListRooms(); err != nil {
			log.Printf("peer: list rooms: %v", err)
		}
	case FrameRooms:
		var msg RoomsMsg
		if err := f.Decode(&msg); err != nil {
			log.Printf("peer: %v", err)
			return
		}
		p.rooms = msg.Rooms
	case FrameJoined:
		var msg JoinedMsg
		if err := f.Decode(&msg); err != nil {
			log.Printf("peer: %v", err)
			return
		}
		p.enterRoom(msg)
	case FrameEntered:
		var msg PresenceMsg
		if err := f.Decode(&msg); err != nil {
			log.Printf("peer: %v", err)
			return
		}
		p.store.SetMaster(msg.Master)
		p.roster.Join(msg.Member.Actor, msg.Member.Name, false)
		p.cfg.Sink.Emit(Event{Kind: EvtPresence, Actor: msg.Member.Actor, Value: 1, Text: msg.Member.Name})
	case FrameExited:
		var msg PresenceMsg
		if err := f.Decode(&msg); err != nil {
			log.Printf("peer: %v", err)
			return
		}
		// the new master must be known before the roster lowers the count
		p.store.SetMaster(msg.Master)
		if p.match != nil {
			p.match.OnLeave(msg.Member.Actor)
		}
		p.roster.Leave(msg.Member.Actor)
		p.cfg.Sink.Emit(Event{Kind: EvtPresence, Actor: msg.Member.Actor, Value: -1, Text: msg.Member.Name})
	case FrameLeft:
		p.leaveRoom()
	case FrameError:
		var msg ErrorMsg
		if err := f.Decode(&msg); err != nil {
			log.Printf("peer: %v", err)
			return
		}
		p.raise(Notice{Code: msg.Code, Msg: msg.Msg, Dismissable: true})
	case FramePong:
		var msg PongMsg
		if err := f.Decode(&msg); err != nil {
			return
		}
		p.clock.Sync(msg.Client, msg.Server)
	case FrameProps:
		var u PropsUpdate
		if err := f.Decode(&u); err != nil {
			log.Printf("peer: %v", err)
			return
		}
		if _, err := p.store.Apply(u); err != nil {
			log.Printf("peer: apply %s: %v", u.Scope, err)
		}
	case FrameRPC:
		var msg RPCMsg
		if err := f.Decode(&msg); err != nil {
			log.Printf("peer: %v", err)
			return
		}
		if msg.Method == RPCRematch {
			var args RematchArgs
			if err := msg.DecodeArgs(&args); err != nil {
				log.Printf("peer: %v", err)
				return
			}
			p.loadScene(args.Scene)
			return
		}
		if p.match != nil {
			p.match.HandleRPC(f, msg)
		}
	case FrameTransform:
		var msg TransformMsg
		if err := f.Decode(&msg); err != nil {
			return
		}
		if p.match != nil {
			p.match.HandleTransform(f.From, msg)
		}
	case FrameLoadLevel:
		var msg LevelMsg
		if err := f.Decode(&msg); err != nil {
			log.Printf("peer: %v", err)
			return
		}
		p.loadScene(msg.Scene)
	}
}

func (p *Peer) enterRoom(msg JoinedMsg) {
	p.closeMatch()
	p.store.Reset()
	p.roster.Clear()
	p.room = msg.Room
	p.store.SetLocal(msg.Actor)
	p.store.SetMaster(msg.Master)
	p.store.Load(msg.Props, msg.Players)
	for _, m := range msg.Members {
		p.roster.Join(m.Actor, m.Name, m.Actor == msg.Actor)
	}
	p.setStage(StageRoom)
}

func (p *Peer) leaveRoom() {
	p.closeMatch()
	p.store.Reset()
	p.roster.Clear()
	p.room = ""
	p.setStage(StageLobby)
	if err := p.ListRooms(); err != nil {
		log.Printf("peer: list rooms: %v", err)
	}
}

func (p *Peer) loadScene(scene string) {
	if p.store.Local() == 0 {
		return
	}
	p.closeMatch()
	if scene == "" {
		scene = p.cfg.Scene
	}
	p.match = NewMatch(MatchConfig{
		Room:   p.room,
		Scene:  scene,
		Tie:    p.cfg.Tie,
		Weapon: p.cfg.Weapon,
	}, MatchEnv{
		Store:  p.store,
		Roster: p.roster,
		Clock:  p.clock,
		Send:   p.send,
		Sink:   p.cfg.Sink,
		Rng:    p.rng,
		Result: p.recordResult,
	})
	p.setStage(StageMatch)
}

func (p *Peer) closeMatch() {
	if p.match != nil {
		p.match.Close()
		p.match = nil
	}
}

func (p *Peer) recordResult(s MatchSummary) {
	p.results = append(p.results, s)
	if p.cfg.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := p.cfg.History.RecordMatch(ctx, s); err != nil {
		log.Printf("peer: record match %s: %v", s.ID, err)
	}
}

func (p *Peer) teardown(cause string) {
	p.closeMatch()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
	p.store.Reset()
	p.roster.Clear()
	p.room = ""
	p.status = ""
	p.setStage(StageMenu)
	p.raise(Notice{Msg: cause})
}

func (p *Peer) ping() {
	f, err := NewFrame(FramePing, PingMsg{Client: p.clock.Local()})
	if err != nil {
		return
	}
	if err := p.send(f); err != nil {
		log.Printf("peer: ping: %v", err)
	}
}

func (p *Peer) setStage(s Stage) {
	if p.stage == s {
		return
	}
	p.stage = s
	p.cfg.Sink.Emit(Event{Kind: EvtStage, Value: int(s), Text: s.String()})
}

func (p *Peer) raise(n Notice) {
	p.notice = &n
	p.cfg.Sink.Emit(Event{Kind: EvtNotice, Value: n.Code, Text: n.String()})
}

// send stamps in-room frames with the estimated server time
func (p *Peer) send(f Frame) error {
	if p.conn == nil {
		return ErrNotConnected
	}
	if p.clock.Synced() && f.Kind >= FrameProps {
		f.Sent = p.clock.Now()
	}
	return p.conn.Send(f)
}

// outbox publishes store writes on the peer's connection
type outbox struct{ p *Peer }

func (o outbox) Publish(u PropsUpdate) error {
	f, err := NewFrame(FrameProps, u)
	if err != nil {
		return err
	}
	return o.p.send(f)
}
