package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsConn is the participant side of a websocket relay connection
type wsConn struct {
	conn      *websocket.Conn
	in        chan Frame
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// DialRelay connects to a relay websocket endpoint
func DialRelay(ctx context.Context, url string) (Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &wsConn{
		conn: conn,
		in:   make(chan Frame, memBufSize),
		out:  make(chan []byte, sendBufSize),
		done: make(chan struct{}),
	}
	go c.readLoop()
	go c.writeLoop()
	return c, nil
}

// WSDialer returns a Dialer for url
func WSDialer(url string) Dialer {
	return func(ctx context.Context) (Conn, error) {
		return DialRelay(ctx, url)
	}
}

func (c *wsConn) Send(f Frame) error {
	data, err := MarshalFrame(f)
	if err != nil {
		return err
	}
	select {
	case c.out <- data:
		return nil
	case <-c.done:
		return ErrConnClosed
	}
}

func (c *wsConn) Frames() <-chan Frame { return c.in }

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		c.conn.Close()
	})
	return nil
}

func (c *wsConn) readLoop() {
	defer close(c.in)
	c.conn.SetReadLimit(maxMessageSize)
	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("relay read error: %v", err)
				}
			}
			return
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		f, err := UnmarshalFrame(message)
		if err != nil {
			log.Printf("unmarshal error: %v", err)
			continue
		}
		select {
		case c.in <- f:
		case <-c.done:
			return
		}
	}
}

func (c *wsConn) writeLoop() {
	for {
		select {
		case data := <-c.out:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				log.Printf("relay write error: %v", err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
