package share

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 64 << 10

	// DefaultQueue is how many outbound messages a client may fall behind
	// before it is dropped.
	DefaultQueue = 32
)

type outbound struct {
	kind int
	data []byte
}

// Client is one connected browser.
type Client struct {
	ID   string
	hub  *Hub
	conn *websocket.Conn
	send chan outbound
	once sync.Once
}

// Hub tracks every connected client and fans messages out to them. A
// client whose queue is full is disconnected rather than allowed to stall
// the others.
type Hub struct {
	log   *slog.Logger
	queue int

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub returns an empty hub. queue <= 0 means DefaultQueue.
func NewHub(queue int, log *slog.Logger) *Hub {
	if queue <= 0 {
		queue = DefaultQueue
	}
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:     log,
		queue:   queue,
		clients: make(map[string]*Client),
	}
}

// Add registers conn. The caller must start WritePump and ReadPump.
func (h *Hub) Add(conn *websocket.Conn) *Client {
	c := &Client{
		ID:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan outbound, h.queue),
	}
	h.mu.Lock()
	h.clients[c.ID] = c
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("client connected", "client", c.ID, "addr", conn.RemoteAddr().String(), "clients", n)
	return c
}

// Remove unregisters c and closes its queue. It is safe to call twice.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	delete(h.clients, c.ID)
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		c.once.Do(func() { close(c.send) })
		h.log.Info("client disconnected", "client", c.ID, "clients", n)
	}
}

// Len is the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues data for every client.
func (h *Hub) Broadcast(kind int, data []byte) {
	h.mu.RLock()
	var slow []*Client
	for _, c := range h.clients {
		select {
		case c.send <- outbound{kind: kind, data: data}:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow client", "client", c.ID)
		h.Remove(c)
	}
}

// BroadcastJSON encodes m once and queues it for every client.
func (h *Hub) BroadcastJSON(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		h.log.Error("encode message", "type", m.Type, "err", err)
		return
	}
	h.Broadcast(websocket.TextMessage, data)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.RLock()
	all := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		all = append(all, c)
	}
	h.mu.RUnlock()
	for _, c := range all {
		h.Remove(c)
	}
}

// Send queues m for this client only. It reports false when the queue is
// full or the client is gone.
func (c *Client) Send(m Message) bool {
	data, err := json.Marshal(m)
	if err != nil {
		return false
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c.ID]; !ok {
		return false
	}
	select {
	case c.send <- outbound{kind: websocket.TextMessage, data: data}:
		return true
	default:
		return false
	}
}

// WritePump drains the client's queue onto the connection and keeps it
// alive with pings. It returns when the queue is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(msg.kind, msg.data); err != nil {
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

// ReadPump decodes client messages and hands them to handle until the
// connection closes, then unregisters the client.
func (c *Client) ReadPump(handle func(*Client, Message)) {
	defer func() {
		c.hub.Remove(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("read failed", "client", c.ID, "err", err)
			}
			return
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			c.Send(Message{Type: MsgError, Error: "malformed message"})
			continue
		}
		handle(c, m)
	}
}
