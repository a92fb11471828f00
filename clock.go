package main

import "time"

// MaxLag bounds the fire-time compensation applied to remote shots
const MaxLag = 1.0

// Clock returns seconds on some monotonic timeline
type Clock interface {
	Now() float64
}

type systemClock struct{ start time.Time }

// NewSystemClock returns a clock counting seconds since its creation
func NewSystemClock() Clock {
	return systemClock{start: time.Now()}
}

func (c systemClock) Now() float64 { return time.Since(c.start).Seconds() }

// ManualClock is advanced by hand, used by tests and the tick loop
type ManualClock struct {
	T float64
}

func (c *ManualClock) Now() float64 { return c.T }

// Advance moves the clock forward by dt seconds
func (c *ManualClock) Advance(dt float64) { c.T += dt }

// ServerClock estimates the relay's clock from ping round trips
type ServerClock struct {
	local  Clock
	offset float64
	synced bool
}

// NewServerClock wraps the participant's local clock
func NewServerClock(local Clock) *ServerClock {
	return &ServerClock{local: local}
}

// Now returns the estimated server time, or local time before the first
// pong
func (c *ServerClock) Now() float64 {
	return c.local.Now() + c.offset
}

// Local returns the wrapped local time, used to stamp pings
func (c *ServerClock) Local() float64 { return c.local.Now() }

// Synced reports whether at least one pong was received
func (c *ServerClock) Synced() bool { return c.synced }

// Sync updates the offset from a pong: the server read its clock halfway
// through the round trip.
func (c *ServerClock) Sync(clientSent, server float64) {
	now := c.local.Now()
	rtt := now - clientSent
	if rtt < 0 {
		rtt = 0
	}
	c.offset = server + rtt/2 - now
	c.synced = true
}

// Lag returns how long ago a frame stamped at sent was sent, in seconds.
// Unsynced clocks and clock skew yield zero; the result never exceeds
// MaxLag.
func (c *ServerClock) Lag(sent float64) float64 {
	if !c.synced || sent <= 0 {
		return 0
	}
	return Clamp(c.Now()-sent, 0, MaxLag)
}
