package ws

import (
	"sync"
)

// Client is one websocket connection watching a payment reference.
type Client struct {
	Reference string
	Subject   string
	Send      chan []byte
	Hub       *StatusHub
	mu        sync.Mutex
	closed    bool
}

func NewClient(reference, subject string) *Client {
	return &Client{Reference: reference, Subject: subject, Send: make(chan []byte, 16)}
}

// deliver queues msg unless the client is closed or its buffer is full.
func (c *Client) deliver(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.Send)
	c.mu.Unlock()
	if c.Hub != nil {
		c.Hub.unregister(c)
	}
}

// StatusHub fans payment status messages out to the clients watching each reference.
type StatusHub struct {
	mu    sync.RWMutex
	byRef map[string]map[*Client]struct{}
}

func NewStatusHub() *StatusHub {
	return &StatusHub{byRef: make(map[string]map[*Client]struct{})}
}

func (h *StatusHub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Hub = h
	if h.byRef[c.Reference] == nil {
		h.byRef[c.Reference] = make(map[*Client]struct{})
	}
	h.byRef[c.Reference][c] = struct{}{}
}

func (h *StatusHub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byRef[c.Reference]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byRef, c.Reference)
		}
	}
}

// BroadcastTo sends msg to every client watching reference. Slow clients miss the message.
func (h *StatusHub) BroadcastTo(reference string, msg []byte) {
	h.mu.RLock()
	m := h.byRef[reference]
	clients := make([]*Client, 0, len(m))
	for c := range m {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.deliver(msg)
	}
}

func (h *StatusHub) ClientCount(reference string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byRef[reference])
}
