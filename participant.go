package main

const (
	WalkSpeed     = 3.0 // meters/s
	SprintMul     = 2.0
	MuzzleHeight  = 1.2
	MuzzleForward = 0.6 // muzzle distance from avatar center
	ArenaHalfSize = 12.0
)

// Participant is one connected player as the roster sees it
type Participant struct {
	ID        int
	Name      string
	IsLocal   bool
	Health    int
	IsReady   bool
	Connected bool
}

// IsDead is derived from health
func (p *Participant) IsDead() bool {
	return p.Health <= 0
}

// DecrementHealth returns h reduced by one hit, floored at zero
func DecrementHealth(h int) int {
	if h <= 0 {
		return 0
	}
	return ClampInt(h-1, 0, MaxHealth)
}

// Input is one tick of player intent from the input layer
type Input struct {
	Move   Vec3    // desired direction on XZ, length <= 1
	Aim    float64 // yaw in degrees
	Fire   bool
	Sprint bool
}

// Muzzle is where a shot leaves the avatar
type Muzzle struct {
	Origin Vec3
	Yaw    float64
}

// Avatar is the in-match body of a participant, spawned by the match
type Avatar struct {
	Actor  int
	Name   string
	Pos    Vec3
	Yaw    float64
	Health int // last value observed in the store
	Dead   bool
	Left   bool // disconnected mid-match, still counted for the win check
}

// Muzzle returns the current shot origin and facing
func (a *Avatar) Muzzle() Muzzle {
	fwd := YawDir(a.Yaw)
	origin := a.Pos.Add(fwd.Scale(MuzzleForward))
	origin.Y = MuzzleHeight
	return Muzzle{Origin: origin, Yaw: a.Yaw}
}

// Move applies one tick of input. Sprint is ignored while firing.
func (a *Avatar) Move(in Input, firing bool, dt float64) {
	if a.Dead {
		return
	}
	a.Yaw = NormalizeYaw(in.Aim)
	dir := Vec3{X: in.Move.X, Z: in.Move.Z}
	if dir.Len() > 1 {
		dir = dir.Normalized()
	}
	speed := WalkSpeed
	if in.Sprint && !firing {
		speed *= SprintMul
	}
	a.Pos = a.Pos.Add(dir.Scale(speed * dt))
	a.Pos.X = Clamp(a.Pos.X, -ArenaHalfSize, ArenaHalfSize)
	a.Pos.Z = Clamp(a.Pos.Z, -ArenaHalfSize, ArenaHalfSize)
}

var spawners = [MaxPlayer]Vec3{
	{X: -8, Z: -8},
	{X: 8, Z: 8},
	{X: -8, Z: 8},
	{X: 8, Z: -8},
}

// SpawnPoint returns the spawner of an actor and a yaw facing the arena
// center. Actor numbers start at 1.
func SpawnPoint(actor int) (Vec3, float64) {
	i := ClampInt(actor-1, 0, MaxPlayer-1)
	pos := spawners[i]
	return pos, DirYaw(Vec3{}.Sub(pos))
}
