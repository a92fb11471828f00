package main

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 120
)

// Client represents a WebSocket connection attached to the relay
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	link       *Link
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
	dropOnce   sync.Once
}

// NewClient creates a new Client and attaches it to the hub's relay
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	c := &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
	}
	c.link = hub.relay.Attach(c)
	return c
}

// ReadPump reads frames from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		if msgType != websocket.BinaryMessage {
			continue
		}
		f, err := UnmarshalFrame(message)
		if err != nil {
			log.Printf("unmarshal error: %v", err)
			continue
		}
		if err := c.link.Handle(f); err != nil {
			log.Printf("frame %d from %s: %v", f.Kind, c.remoteAddr, err)
		}
	}
}

// WritePump writes frames to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Deliver queues a relay frame for the client. Called with the relay lock
// held, so it never blocks.
func (c *Client) Deliver(f Frame) {
	data, err := MarshalFrame(f)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendBinary(data)
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, disconnect rather than skip a frame
		c.drop()
	}
}

// drop closes the socket so ReadPump unwinds and the link is detached
func (c *Client) drop() {
	c.dropOnce.Do(func() {
		log.Printf("send buffer full for %s, disconnecting", c.remoteAddr)
		c.conn.Close()
	})
}
