package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"parlour/internal/metrics"
	"parlour/internal/model"
)

// AudienceAdmins receives attendance updates.
const AudienceAdmins = "admins"

// Event names on the wire.
const (
	EventAttendanceUpdate  = "attendance-update"
	EventConnectionSuccess = "connection-success"
	EventError             = "error"
)

// Frame is the JSON envelope of every socket message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EncodeFrame marshals data into a frame for event.
func EncodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event, err)
	}
	return json.Marshal(Frame{Event: event, Data: raw})
}

// Client is one connected socket. Frames are queued on a bounded buffer.
type Client struct {
	ID       string
	Identity *model.Identity

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient creates a client with a send buffer of size frames.
func NewClient(identity *model.Identity, size int) *Client {
	if size <= 0 {
		size = 32
	}
	return &Client{ID: uuid.NewString(), Identity: identity, send: make(chan []byte, size)}
}

// Send queues frame without blocking and reports whether it was accepted.
func (c *Client) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Frames is drained by the connection's writer.
func (c *Client) Frames() <-chan []byte { return c.send }

// Close stops further sends and ends Frames.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub tracks audience membership and delivers broker messages to local clients.
type Hub struct {
	broker Broker

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewHub creates a hub on broker.
func NewHub(broker Broker) *Hub {
	return &Hub{broker: broker, rooms: make(map[string]map[*Client]struct{})}
}

// Join adds c to audience.
func (h *Hub) Join(c *Client, audience string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[audience]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[audience] = room
	}
	room[c] = struct{}{}
}

// Leave removes c from every audience.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for name, room := range h.rooms {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, name)
		}
	}
}

// Members returns the number of clients in audience.
func (h *Hub) Members(audience string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[audience])
}

// Emit publishes event to audience through the broker.
func (h *Hub) Emit(ctx context.Context, audience, event string, data any) error {
	frame, err := EncodeFrame(event, data)
	if err != nil {
		metrics.Notifications.WithLabelValues("publish", "error").Inc()
		return err
	}
	if err := h.broker.Publish(ctx, Message{Audience: audience, Body: frame}); err != nil {
		metrics.Notifications.WithLabelValues("publish", "error").Inc()
		return fmt.Errorf("publish %s to %s: %w", event, audience, err)
	}
	metrics.Notifications.WithLabelValues("publish", "ok").Inc()
	return nil
}

// Start subscribes to the broker and delivers messages until ctx ends.
func (h *Hub) Start(ctx context.Context) error {
	msgs, err := h.broker.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	go func() {
		for msg := range msgs {
			h.deliver(msg)
		}
		slog.Info("notification hub stopped")
	}()
	return nil
}

func (h *Hub) deliver(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[msg.Audience] {
		if c.Send(msg.Body) {
			metrics.Notifications.WithLabelValues("deliver", "ok").Inc()
		} else {
			metrics.Notifications.WithLabelValues("deliver", "dropped").Inc()
			slog.Warn("socket send buffer full, frame dropped", "client", c.ID, "audience", msg.Audience)
		}
	}
}
