package server

import (
	"sync"

	"github.com/gorilla/websocket"
)

const clientBuffer = 64

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *wsClient {
	return &wsClient{
		conn: conn,
		send: make(chan []byte, clientBuffer),
		done: make(chan struct{}),
	}
}

// close stops the writer and closes the connection. Safe to call more than once.
func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

// reply queues b unless the client is gone.
func (c *wsClient) reply(b []byte) {
	select {
	case c.send <- b:
	case <-c.done:
	}
}

// writeLoop drains send until the client is closed.
func (c *wsClient) writeLoop() {
	for {
		select {
		case b := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

type wsHub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

func newHub() *wsHub { return &wsHub{clients: make(map[*wsClient]struct{})} }

func (h *wsHub) add(c *wsClient)    { h.mu.Lock(); h.clients[c] = struct{}{}; h.mu.Unlock() }
func (h *wsHub) remove(c *wsClient) { h.mu.Lock(); delete(h.clients, c); h.mu.Unlock() }

func (h *wsHub) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcast drops the frame for clients whose buffer is full.
func (h *wsHub) broadcast(b []byte) {
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
		}
	}
	h.mu.RUnlock()
}

func (h *wsHub) closeAll() {
	h.mu.RLock()
	for c := range h.clients {
		c.close()
	}
	h.mu.RUnlock()
}
