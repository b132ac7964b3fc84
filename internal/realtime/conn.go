package realtime

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
	maxFrameSize   = 512 * 1024
)

// Conn is one live client connection. A reconnect produces a brand-new Conn
// with a fresh id and empty membership; nothing is inherited.
type Conn struct {
	ID     string
	UserID string

	ws       *websocket.Conn
	send     chan *Event
	done     chan struct{}
	mu       sync.Mutex
	isClosed bool
}

func newConn(ws *websocket.Conn, id, userID string) *Conn {
	return &Conn{
		ID:     id,
		UserID: userID,
		ws:     ws,
		send:   make(chan *Event, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// trySend queues an outbound event without blocking. A closed connection or
// a full buffer drops the event; delivery is best-effort and a slow consumer
// must not stall fan-out to others.
func (c *Conn) trySend(ev *Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isClosed {
		return
	}
	c.isClosed = true
	if c.ws != nil {
		c.ws.Close()
	}
}

func (c *Conn) keepAlive() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.isClosed {
				c.mu.Unlock()
				return
			}
			err := c.ws.WriteMessage(websocket.PingMessage, nil)
			c.mu.Unlock()

			if err != nil {
				log.Printf("Ping error for connection %s: %v", c.ID, err)
				return
			}
		}
	}
}

func (c *Conn) writePump() {
	defer c.close()

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.send:
			c.mu.Lock()
			if c.isClosed {
				c.mu.Unlock()
				return
			}
			err := c.ws.WriteJSON(ev)
			c.mu.Unlock()

			if err != nil {
				log.Printf("Error writing to connection %s: %v", c.ID, err)
				return
			}
		}
	}
}

func (c *Conn) readPump(h *Hub) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in readPump: %v", r)
		}

		close(c.done)
		h.Detach(c)
		log.Printf("Connection %s disconnected (user %s)", c.ID, c.UserID)
	}()

	c.ws.SetReadLimit(maxFrameSize)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if closeErr, ok := err.(*websocket.CloseError); ok {
				if closeErr.Code == websocket.CloseNormalClosure ||
					closeErr.Code == websocket.CloseGoingAway ||
					closeErr.Code == websocket.CloseNoStatusReceived {
					break
				}
			}
			log.Printf("Error reading from connection %s: %v", c.ID, err)
			break
		}

		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("Dropping undecodable frame from connection %s: %v", c.ID, err)
			continue
		}

		h.Dispatch(c, &ev)
	}
}
