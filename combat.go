package main

import (
	"errors"
	"math/rand/v2"
)

var (
	ErrBurstInProgress = errors.New("burst in progress")
	ErrNoCharge        = errors.New("no charge")
	ErrDead            = errors.New("dead participants cannot fire")
)

// WeaponConfig tunes the burst rifle
type WeaponConfig struct {
	Burst     int     // shots per trigger
	Interval  float64 // seconds between shots of a burst
	Recoil    float64 // max yaw perturbation in degrees, scaled by shot index
	MaxCharge float64
	Cooldown  float64 // seconds to regenerate one unit
}

// DefaultWeapon returns the rifle every participant carries
func DefaultWeapon() WeaponConfig {
	return WeaponConfig{
		Burst:     3,
		Interval:  0.15,
		Recoil:    1.5,
		MaxCharge: 7,
		Cooldown:  1.0,
	}
}

// Shot is one projectile request produced by a burst
type Shot struct {
	Origin Vec3
	Yaw    float64
	Index  int // position within the burst
}

// Weapon tracks charge and the firing lock of the local participant
type Weapon struct {
	Config WeaponConfig
	Charge float64

	firing bool
	dead   bool
	sched  *Scheduler
	rng    *rand.Rand
	timers []*Timer
	shoot  func(Shot)
}

// NewWeapon creates a weapon at full charge. shoot is called from the
// scheduler for every shot of a burst.
func NewWeapon(cfg WeaponConfig, sched *Scheduler, rng *rand.Rand, shoot func(Shot)) *Weapon {
	return &Weapon{
		Config: cfg,
		Charge: cfg.MaxCharge,
		sched:  sched,
		rng:    rng,
		shoot:  shoot,
	}
}

// Firing reports whether a burst holds the lock
func (w *Weapon) Firing() bool { return w.firing }

// Fire starts a burst from the muzzle returned by aim. aim is read again
// for every shot so the burst follows the avatar.
func (w *Weapon) Fire(aim func() Muzzle) error {
	if w.dead {
		return ErrDead
	}
	if w.firing {
		return ErrBurstInProgress
	}
	if w.Charge < 1 {
		return ErrNoCharge
	}
	w.Charge--
	w.firing = true
	w.timers = w.timers[:0]
	for i := 0; i < w.Config.Burst; i++ {
		w.timers = append(w.timers, w.sched.After(float64(i)*w.Config.Interval, func() {
			m := aim()
			spread := (w.rng.Float64()*2 - 1) * w.Config.Recoil * float64(i)
			w.shoot(Shot{Origin: m.Origin, Yaw: NormalizeYaw(m.Yaw + spread), Index: i})
		}))
	}
	w.timers = append(w.timers, w.sched.After(float64(w.Config.Burst)*w.Config.Interval, func() {
		w.firing = false
	}))
	return nil
}

// Regen adds charge for dt seconds. Charge is frozen while dead.
func (w *Weapon) Regen(dt float64) {
	if w.dead || w.Config.Cooldown <= 0 {
		return
	}
	w.Charge = Clamp(w.Charge+dt/w.Config.Cooldown, 0, w.Config.MaxCharge)
}

// Kill empties the charge, cancels the rest of a running burst and freezes
// regeneration.
func (w *Weapon) Kill() {
	w.dead = true
	w.Charge = 0
	w.cancel()
}

// Revive refills the charge for a fresh spawn
func (w *Weapon) Revive() {
	w.cancel()
	w.dead = false
	w.Charge = w.Config.MaxCharge
}

func (w *Weapon) cancel() {
	for _, t := range w.timers {
		t.Cancel()
	}
	w.timers = w.timers[:0]
	w.firing = false
}

// HitRequest asks the owner of Target to take one point of damage
type HitRequest struct {
	Target     int
	Projectile string
}

// Combat simulates every projectile a participant observes and reports hits
type Combat struct {
	projectiles []*Projectile
	index       map[string]*Projectile
	hit         func(HitRequest)
}

// NewCombat creates an empty resolver. hit is called once per detected
// collision.
func NewCombat(hit func(HitRequest)) *Combat {
	return &Combat{
		index: make(map[string]*Projectile),
		hit:   hit,
	}
}

// Spawn adds a projectile observed through a fire RPC. A repeated id is
// ignored.
func (c *Combat) Spawn(p *Projectile) bool {
	if _, ok := c.index[p.ID]; ok {
		return false
	}
	c.projectiles = append(c.projectiles, p)
	c.index[p.ID] = p
	return true
}

// Projectiles returns the live projectiles in spawn order
func (c *Combat) Projectiles() []*Projectile {
	return c.projectiles
}

// Step advances every projectile and resolves collisions against the
// avatars. A projectile never hits its owner, dead avatars or avatars that
// left the match.
func (c *Combat) Step(dt float64, avatars []*Avatar) {
	alive := c.projectiles[:0]
	for _, p := range c.projectiles {
		p.Update(dt)
		if p.Alive {
			for _, a := range avatars {
				if a.Actor == p.OwnerID || a.Dead || a.Left {
					continue
				}
				if SweepHit(p.Prev, p.Pos, a.Pos, AvatarRadius+ProjectileRadius) {
					p.Alive = false
					c.hit(HitRequest{Target: a.Actor, Projectile: p.ID})
					break
				}
			}
		}
		// dead ids stay in the index so a late duplicate RPC cannot respawn them
		if p.Alive {
			alive = append(alive, p)
		}
	}
	for i := len(alive); i < len(c.projectiles); i++ {
		c.projectiles[i] = nil
	}
	c.projectiles = alive
}

// Clear drops every projectile
func (c *Combat) Clear() {
	c.projectiles = nil
	c.index = make(map[string]*Projectile)
}

// Health is the self-authoritative health of the local participant. Only
// the owner's process applies damage to it.
type Health struct {
	Value int
	seen  map[string]bool
}

// NewHealth creates a full health bar
func NewHealth() *Health {
	return &Health{Value: MaxHealth, seen: make(map[string]bool)}
}

// Hit applies one decrement for a projectile and reports whether health
// changed. Several observers may report the same projectile; only the
// first report counts. A hit at zero is a no-op.
func (h *Health) Hit(projectile string) bool {
	if projectile != "" {
		if h.seen[projectile] {
			return false
		}
		h.seen[projectile] = true
	}
	if h.Value <= 0 {
		return false
	}
	h.Value = DecrementHealth(h.Value)
	return true
}

// Reset refills health for a fresh spawn
func (h *Health) Reset() {
	h.Value = MaxHealth
	h.seen = make(map[string]bool)
}
