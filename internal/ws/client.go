package ws

import (
	"sync"

	"golang.org/x/net/websocket"
)

const clientBuffer = 64

type Client struct {
	conn *websocket.Conn
	out  chan []byte

	mu       sync.RWMutex
	channels map[string]struct{}
	closed   bool
}

func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		conn:     conn,
		out:      make(chan []byte, clientBuffer),
		channels: map[string]struct{}{},
	}
}

func (c *Client) send(payload []byte) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.out <- payload:
	default:
		if c.conn != nil {
			_ = c.conn.Close()
		}
	}
}

// close stops delivery. Safe to race with send.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.out)
}

func (c *Client) addChannel(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels[channel] = struct{}{}
}

func (c *Client) removeChannel(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channels, channel)
}

func (c *Client) listChannels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.channels))
	for ch := range c.channels {
		out = append(out, ch)
	}
	return out
}
