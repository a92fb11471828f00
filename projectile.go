package main

import "fmt"

const (
	ProjectileSpeed    = 50.0 // meters/s
	ProjectileLifetime = 3.0  // seconds
	ProjectileRadius   = 0.1
)

// Projectile is a visible bullet simulated by every participant
type Projectile struct {
	ID      string
	OwnerID int
	Pos     Vec3
	Prev    Vec3 // position before the last Update, for sweep tests
	Dir     Vec3
	Speed   float64
	Life    float64
	Alive   bool
}

// ProjectileID names the seq-th shot of a shooter. Every participant derives
// the same id from the fire RPC.
func ProjectileID(owner, seq int) string {
	return fmt.Sprintf("%d:%d", owner, seq)
}

// SpawnProjectile creates a projectile that has already travelled lag
// seconds from origin along dir. The lifetime is not shortened by lag.
func SpawnProjectile(id string, owner int, origin, dir Vec3, lag float64) *Projectile {
	if lag < 0 {
		lag = 0
	}
	dir = dir.Normalized()
	pos := origin.Add(dir.Scale(ProjectileSpeed * lag))
	return &Projectile{
		ID:      id,
		OwnerID: owner,
		Pos:     pos,
		Prev:    pos,
		Dir:     dir,
		Speed:   ProjectileSpeed,
		Life:    ProjectileLifetime,
		Alive:   true,
	}
}

// Update moves the projectile one tick
func (p *Projectile) Update(dt float64) {
	if !p.Alive {
		return
	}
	p.Prev = p.Pos
	p.Pos = p.Pos.Add(p.Dir.Scale(p.Speed * dt))
	p.Life -= dt

	if p.Life <= 0 {
		p.Alive = false
	}
}
