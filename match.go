package main

import (
	"fmt"
	"log"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultScene   = "Game-0"
	SpawnDelay     = 1.0 // seconds between scene load and spawn
	TransformRate  = 20  // pose updates per second
	transformEvery = 1.0 / TransformRate
)

// MatchConfig holds settings for a session instance
type MatchConfig struct {
	Room   string
	Scene  string
	Tie    TiePolicy
	Weapon WeaponConfig
}

// MatchEnv is what a session instance borrows from its participant
type MatchEnv struct {
	Store  *Store
	Roster *Roster
	Clock  *ServerClock
	Send   func(f Frame) error
	Sink   EventSink
	Rng    *rand.Rand
	Result func(s MatchSummary)
}

// ParticipantResult is one snapshot participant at the end of a match
type ParticipantResult struct {
	Actor  int
	Name   string
	Health int
	Left   bool
}

// MatchSummary describes a finished match
type MatchSummary struct {
	ID           string
	Room         string
	Scene        string
	Started      time.Time
	Duration     time.Duration
	Winner       int
	WinnerName   string
	Draw         bool
	Local        int
	Participants []ParticipantResult
}

// LocalWon reports whether the local participant won
func (s MatchSummary) LocalWon() bool {
	return !s.Draw && s.Winner != 0 && s.Winner == s.Local
}

// Match is one session instance: it spawns the local avatar, runs the ready
// countdown, simulates combat and detects the winner. Every method runs on
// the participant loop.
type Match struct {
	ID     string
	Config MatchConfig

	env     MatchEnv
	local   int
	sched   *Scheduler
	phase   *PhaseController
	weapon  *Weapon
	combat  *Combat
	health  *Health
	avatars map[int]*Avatar
	seq     int
	syncAcc float64
	waiting int
	started time.Time
	playAt  float64
	unsub   func()
	closed  bool
}

// NewMatch builds a session instance for the scene that was just loaded.
// The local avatar spawns after SpawnDelay.
func NewMatch(cfg MatchConfig, env MatchEnv) *Match {
	if cfg.Scene == "" {
		cfg.Scene = DefaultScene
	}
	if cfg.Weapon.Burst == 0 {
		cfg.Weapon = DefaultWeapon()
	}
	if env.Sink == nil {
		env.Sink = discardSink{}
	}
	if env.Rng == nil {
		env.Rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	m := &Match{
		ID:      uuid.NewString(),
		Config:  cfg,
		env:     env,
		local:   env.Store.Local(),
		sched:   NewScheduler(),
		health:  NewHealth(),
		avatars: make(map[int]*Avatar),
		waiting: -1,
		started: time.Now(),
	}
	m.phase = NewPhaseController(m.sched, cfg.Tie, PhaseHooks{
		Countdown: m.onCountdown,
		Enter:     m.onPhase,
	})
	m.weapon = NewWeapon(cfg.Weapon, m.sched, env.Rng, m.shoot)
	m.weapon.Kill() // no charge until spawned
	m.combat = NewCombat(m.requestHit)
	m.unsub = env.Store.OnChange(m.onChange)
	m.sched.After(SpawnDelay, m.spawnLocal)
	return m
}

// Phase returns the current phase
func (m *Match) Phase() GamePhase { return m.phase.Phase() }

// PhaseController exposes the phase state for inspection
func (m *Match) PhaseController() *PhaseController { return m.phase }

// Weapon returns the local weapon
func (m *Match) Weapon() *Weapon { return m.weapon }

// Combat returns the projectile resolver
func (m *Match) Combat() *Combat { return m.combat }

// Health returns the local participant's health
func (m *Match) Health() int { return m.health.Value }

// Avatar returns the avatar of actor if spawned
func (m *Match) Avatar(actor int) (*Avatar, bool) {
	a, ok := m.avatars[actor]
	return a, ok
}

// Avatars returns spawned avatars ordered by actor number
func (m *Match) Avatars() []*Avatar {
	out := make([]*Avatar, 0, len(m.avatars))
	for _, a := range m.avatars {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Actor < out[j].Actor })
	return out
}

// Tick advances the session by dt seconds with the local input
func (m *Match) Tick(dt float64, in Input) {
	if m.closed {
		return
	}
	m.sched.Advance(dt)
	if m.closed {
		return
	}
	if m.phase.Phase() == PhaseReady {
		m.checkReady()
	}

	if me, ok := m.avatars[m.local]; ok && !me.Dead && m.phase.Phase() == PhaseGameplay {
		m.weapon.Regen(dt)
		if in.Fire {
			// rejections are expected while the trigger is held
			_ = m.weapon.Fire(me.Muzzle)
		}
		prev := me.Pos
		me.Move(in, m.weapon.Firing(), dt)
		if m.blocked(me, prev) {
			me.Pos = prev
		}
	}

	m.combat.Step(dt, m.Avatars())

	m.syncAcc += dt
	if m.syncAcc >= transformEvery {
		m.syncAcc = 0
		m.sendTransform()
	}
}

// HandleRPC applies a relayed remote call
func (m *Match) HandleRPC(f Frame, msg RPCMsg) {
	if m.closed {
		return
	}
	switch msg.Method {
	case RPCFire:
		var args FireArgs
		if err := msg.DecodeArgs(&args); err != nil {
			log.Printf("match: %v", err)
			return
		}
		id := ProjectileID(f.From, args.Seq)
		lag := m.env.Clock.Lag(f.Sent)
		if m.combat.Spawn(SpawnProjectile(id, f.From, args.Origin, YawDir(args.Yaw), lag)) {
			m.env.Sink.Emit(Event{Kind: EvtShot, Actor: f.From, Value: args.Seq})
		}
	case RPCHealthDecrement:
		var args HitArgs
		if err := msg.DecodeArgs(&args); err != nil {
			log.Printf("match: %v", err)
			return
		}
		m.takeHit(args.Projectile)
	case RPCSpawn:
		var args SpawnArgs
		if err := msg.DecodeArgs(&args); err != nil {
			log.Printf("match: %v", err)
			return
		}
		m.addAvatar(f.From, args.Pos, args.Yaw)
	}
}

// HandleTransform stores the latest pose of a remote avatar
func (m *Match) HandleTransform(from int, t TransformMsg) {
	if m.closed || from == m.local {
		return
	}
	if a, ok := m.avatars[from]; ok && !a.Left {
		a.Pos = t.Pos
		a.Yaw = t.Yaw
	}
}

// OnLeave handles a participant leaving the room. Before gameplay the
// avatar is removed; afterwards it stays in the win check with its last
// known status.
func (m *Match) OnLeave(actor int) {
	if m.closed {
		return
	}
	a, ok := m.avatars[actor]
	if m.phase.Phase() == PhaseReady {
		delete(m.avatars, actor)
		m.phase.Remove(actor)
		return
	}
	if ok {
		a.Left = true
	}
}

// Close cancels every pending timer and stops listening to the store
func (m *Match) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.sched.Stop()
	m.phase.Stop()
	m.combat.Clear()
	if m.unsub != nil {
		m.unsub()
	}
}

func (m *Match) spawnLocal() {
	if m.local == 0 {
		return
	}
	pos, yaw := SpawnPoint(m.local)
	m.health.Reset()
	if err := m.env.Store.SetPlayer(m.local, PlayerProps{Health: Int(MaxHealth)}); err != nil {
		log.Printf("match: reset health: %v", err)
	}
	m.weapon.Revive()
	m.addAvatar(m.local, pos, yaw)
	f, err := NewRPCFrame(RPCSpawn, TargetOthers, SpawnArgs{Pos: pos, Yaw: yaw})
	if err != nil {
		log.Printf("match: %v", err)
		return
	}
	m.send(f)
}

func (m *Match) addAvatar(actor int, pos Vec3, yaw float64) {
	if _, ok := m.avatars[actor]; ok || actor == 0 {
		return
	}
	if m.phase.Phase() != PhaseReady {
		// the snapshot is fixed, late spawns are not playable
		return
	}
	name := fmt.Sprintf("Player %d", actor)
	if p, ok := m.env.Roster.Get(actor); ok {
		name = p.Name
	}
	m.avatars[actor] = &Avatar{Actor: actor, Name: name, Pos: pos, Yaw: yaw, Health: MaxHealth}
	m.env.Sink.Emit(Event{Kind: EvtSpawn, Actor: actor, Text: name})
	m.checkReady()
}

func (m *Match) checkReady() {
	expected := m.env.Store.ExpectedCountOr(1)
	spawned := make([]int, 0, len(m.avatars))
	for a := range m.avatars {
		spawned = append(spawned, a)
	}
	if m.phase.CheckReady(spawned, expected) || m.phase.CountingDown() {
		return
	}
	if missing := expected - len(spawned); missing != m.waiting {
		m.waiting = missing
		m.env.Sink.Emit(Event{Kind: EvtWaiting, Value: missing})
	}
}

func (m *Match) shoot(s Shot) {
	m.seq++
	f, err := NewRPCFrame(RPCFire, TargetAll, FireArgs{Origin: s.Origin, Yaw: s.Yaw, Seq: m.seq})
	if err != nil {
		log.Printf("match: %v", err)
		return
	}
	m.send(f)
}

func (m *Match) requestHit(h HitRequest) {
	m.env.Sink.Emit(Event{Kind: EvtHit, Actor: h.Target, Text: h.Projectile})
	f, err := NewRPCFrame(RPCHealthDecrement, TargetActor(h.Target), HitArgs{Projectile: h.Projectile})
	if err != nil {
		log.Printf("match: %v", err)
		return
	}
	m.send(f)
}

func (m *Match) takeHit(projectile string) {
	if m.phase.Phase() != PhaseGameplay {
		return
	}
	if !m.health.Hit(projectile) {
		return
	}
	if err := m.env.Store.SetPlayer(m.local, PlayerProps{Health: Int(m.health.Value)}); err != nil {
		log.Printf("match: write health: %v", err)
	}
}

func (m *Match) sendTransform() {
	me, ok := m.avatars[m.local]
	if !ok {
		return
	}
	f, err := NewFrame(FrameTransform, TransformMsg{Pos: me.Pos, Yaw: me.Yaw})
	if err != nil {
		log.Printf("match: %v", err)
		return
	}
	f.To = TargetOthers
	m.send(f)
}

func (m *Match) send(f Frame) {
	if err := m.env.Send(f); err != nil {
		log.Printf("match: send %d: %v", f.Kind, err)
	}
}

func (m *Match) onChange(c Change) {
	if c.Scope.IsRoom() || !c.Has(KeyHealth) {
		return
	}
	actor := c.Scope.Actor
	h, ok := m.env.Store.Health(actor)
	if !ok {
		return
	}
	a, ok := m.avatars[actor]
	if !ok || a.Dead {
		return
	}
	a.Health = h
	if h > 0 {
		return
	}
	a.Dead = true
	if actor == m.local {
		m.weapon.Kill()
	}
	m.env.Sink.Emit(Event{Kind: EvtDeath, Actor: actor, Text: a.Name})
	m.phase.CheckWinner(m.alive)
}

// blocked reports whether moving from prev pushed me into another live
// avatar. Moving apart is always allowed.
func (m *Match) blocked(me *Avatar, prev Vec3) bool {
	for _, a := range m.avatars {
		if a == me || a.Dead || a.Left {
			continue
		}
		if Overlaps(me.Pos, a.Pos, AvatarRadius, AvatarRadius) &&
			me.Pos.Sub(a.Pos).Len() < prev.Sub(a.Pos).Len() {
			return true
		}
	}
	return false
}

func (m *Match) alive(actor int) bool {
	a, ok := m.avatars[actor]
	return ok && !a.Dead
}

func (m *Match) onCountdown(n int) {
	text := fmt.Sprintf("%d", n)
	if n == 0 {
		text = "Go!"
	}
	m.env.Sink.Emit(Event{Kind: EvtCountdown, Value: n, Text: text})
}

func (m *Match) onPhase(p GamePhase) {
	m.env.Sink.Emit(Event{Kind: EvtPhase, Value: int(p), Text: p.String()})
	switch p {
	case PhaseGameplay:
		m.playAt = m.sched.Now()
	case PhaseResult:
		s := m.summary()
		text := "Draw"
		if !s.Draw {
			text = fmt.Sprintf("%s is the winner!", s.WinnerName)
		}
		m.env.Sink.Emit(Event{Kind: EvtResult, Actor: s.Winner, Text: text})
		if m.env.Result != nil {
			m.env.Result(s)
		}
	}
}

func (m *Match) summary() MatchSummary {
	s := MatchSummary{
		ID:       m.ID,
		Room:     m.Config.Room,
		Scene:    m.Config.Scene,
		Started:  m.started,
		Duration: time.Duration((m.sched.Now() - m.playAt) * float64(time.Second)),
		Draw:     m.phase.Draw(),
		Local:    m.local,
	}
	if w, ok := m.phase.Winner(); ok {
		s.Winner = w
		if a, ok := m.avatars[w]; ok {
			s.WinnerName = a.Name
		}
	}
	for _, actor := range m.phase.Snapshot() {
		r := ParticipantResult{Actor: actor}
		if a, ok := m.avatars[actor]; ok {
			r.Name = a.Name
			r.Health = a.Health
			r.Left = a.Left
		}
		s.Participants = append(s.Participants, r)
	}
	return s
}
