package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/jorgedlr/listening-rooms/internal/proto"
)

// Registry tracks, per room, the set of open connections and fans broadcasts
// out to them. It is owned by the application and injected into the session
// handler; all methods are safe for concurrent use.
type Registry struct {
	log *zerolog.Logger

	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	return &Registry{
		log:   logger,
		rooms: make(map[string]map[*Client]struct{}),
	}
}

// Register adds a client to a room, creating the room entry if absent.
// Registering the same client twice is a no-op.
func (r *Registry) Register(roomID string, c *Client) {
	r.mu.Lock()
	clients := r.rooms[roomID]
	if clients == nil {
		clients = make(map[*Client]struct{})
		r.rooms[roomID] = clients
	}
	clients[c] = struct{}{}
	count := len(clients)
	r.mu.Unlock()

	r.log.Debug().Str("room_id", roomID).Str("client_id", c.ID).Int("active", count).Msg("client registered")
}

// Unregister removes a client from a room if present. The room entry is
// dropped once its last client leaves so idle rooms do not accumulate.
func (r *Registry) Unregister(roomID string, c *Client) {
	r.mu.Lock()
	clients, ok := r.rooms[roomID]
	if ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(r.rooms, roomID)
		}
	}
	count := len(clients)
	r.mu.Unlock()

	r.log.Debug().Str("room_id", roomID).Str("client_id", c.ID).Int("active", count).Msg("client unregistered")
}

// Broadcast delivers a frame to every client currently registered for the
// room, the sender included. Delivery to each client is independent: a client
// whose buffer is full is skipped rather than blocking or failing the rest,
// and dead connections are left for their own session's disconnect cleanup.
// Returns the number of clients the frame was handed to.
func (r *Registry) Broadcast(roomID string, out proto.Outbound) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for c := range r.rooms[roomID] {
		select {
		case c.Events <- out:
			delivered++
		default:
			r.log.Warn().Str("room_id", roomID).Str("client_id", c.ID).Msg("slow consumer, frame dropped")
		}
	}
	return delivered
}

// Count reports how many clients are registered for a room.
func (r *Registry) Count(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}
