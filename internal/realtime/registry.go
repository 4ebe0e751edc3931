// Package realtime tracks live websocket clients and fans events out to them.
package realtime

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/PratikDhanave/realtime-relay/internal/models"
)

// DefaultQueueSize is the outbound queue length of a client.
const DefaultQueueSize = 256

// Client is the handle for one registered real-time channel. It carries no
// user identity.
type Client struct {
	ID   uuid.UUID
	send chan []byte
}

// Send returns the client's outbound queue. It is closed on Unregister.
func (c *Client) Send() <-chan []byte {
	return c.send
}

// Registry is the set of live clients and the broadcast bus over them.
// Publishing never blocks: a client whose queue is full is dropped.
type Registry struct {
	mu        sync.RWMutex
	clients   map[uuid.UUID]*Client
	queueSize int
	logger    zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(queueSize int, logger zerolog.Logger) *Registry {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Registry{
		clients:   make(map[uuid.UUID]*Client),
		queueSize: queueSize,
		logger:    logger.With().Str("component", "Registry").Logger(),
	}
}

// Register adds a new client. The handle is valid until Unregister.
func (r *Registry) Register() *Client {
	c := &Client{
		ID:   uuid.New(),
		send: make(chan []byte, r.queueSize),
	}

	r.mu.Lock()
	r.clients[c.ID] = c
	total := len(r.clients)
	r.mu.Unlock()

	r.logger.Debug().Str("client", c.ID.String()).Int("total", total).Msg("Client registered.")
	return c
}

// Unregister removes the client and closes its outbound queue. Safe to call
// more than once.
func (r *Registry) Unregister(c *Client) {
	if c == nil {
		return
	}

	r.mu.Lock()
	if current, ok := r.clients[c.ID]; !ok || current != c {
		r.mu.Unlock()
		return
	}
	delete(r.clients, c.ID)
	close(c.send)
	total := len(r.clients)
	r.mu.Unlock()

	r.logger.Debug().Str("client", c.ID.String()).Int("total", total).Msg("Client unregistered.")
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// PublishAll delivers the event to every client registered right now.
func (r *Registry) PublishAll(e models.Event) {
	frame, ok := r.encode(e)
	if !ok {
		return
	}

	var full []*Client
	r.mu.RLock()
	recipients := len(r.clients)
	for _, c := range r.clients {
		if !enqueue(c, frame) {
			full = append(full, c)
		}
	}
	r.mu.RUnlock()

	r.dropSlow(full)
	r.logger.Debug().Str("event", string(e.Name())).Int("recipients", recipients-len(full)).Msg("Event broadcast.")
}

// PublishTo delivers the event to one client. Clients that are no longer
// registered are skipped.
func (r *Registry) PublishTo(c *Client, e models.Event) {
	if c == nil {
		return
	}
	frame, ok := r.encode(e)
	if !ok {
		return
	}

	r.mu.RLock()
	current, ok := r.clients[c.ID]
	registered := ok && current == c
	delivered := registered && enqueue(c, frame)
	r.mu.RUnlock()

	if registered && !delivered {
		r.dropSlow([]*Client{c})
	}
}

// Close unregisters every client.
func (r *Registry) Close() {
	r.mu.RLock()
	all := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		all = append(all, c)
	}
	r.mu.RUnlock()

	for _, c := range all {
		r.Unregister(c)
	}
}

func (r *Registry) encode(e models.Event) ([]byte, bool) {
	frame, err := models.Encode(e)
	if err != nil {
		r.logger.Error().Err(err).Str("event", string(e.Name())).Msg("Failed to encode event.")
		return nil, false
	}
	return frame, true
}

func (r *Registry) dropSlow(clients []*Client) {
	for _, c := range clients {
		r.logger.Warn().Str("client", c.ID.String()).Msg("Outbound queue full, dropping client.")
		r.Unregister(c)
	}
}

// enqueue must be called with the registry read lock held so the queue
// cannot be closed underneath it.
func enqueue(c *Client, frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}
