package main

import (
	"context"
	"errors"
	"sync"
)

const memBufSize = 1024

// ErrConnClosed is returned when sending on a closed connection
var ErrConnClosed = errors.New("connection closed")

// Conn is the participant side of a relay connection
type Conn interface {
	Send(f Frame) error
	Frames() <-chan Frame // closed when the connection drops
	Close() error
}

// Dialer opens a relay connection
type Dialer func(ctx context.Context) (Conn, error)

// memConn links a participant to an in-process relay
type memConn struct {
	mu     sync.Mutex
	link   *Link
	in     chan Frame
	closed bool
}

// Deliver queues a frame from the relay. A full buffer drops the
// connection, the way a slow websocket client is dropped.
func (c *memConn) Deliver(f Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.in <- f:
	default:
		c.closed = true
		close(c.in)
	}
}

func (c *memConn) Send(f Frame) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrConnClosed
	}
	return c.link.Handle(f)
}

func (c *memConn) Frames() <-chan Frame { return c.in }

func (c *memConn) Close() error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.in)
	}
	c.mu.Unlock()
	// Detach is idempotent and also covers a connection dropped on overflow
	c.link.Detach()
	return nil
}

// Dialer returns a dialer connecting to this relay in-process
func (r *Relay) Dialer() Dialer {
	return func(ctx context.Context) (Conn, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := &memConn{in: make(chan Frame, memBufSize)}
		c.link = r.Attach(c)
		return c, nil
	}
}
