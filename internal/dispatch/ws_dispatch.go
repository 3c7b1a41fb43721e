package dispatch

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/transit-assist/internal/models"
)

// WSSession represents one connected live-tracking client. Route is an
// optional filter: empty means all routes.
type WSSession struct {
	conn  *websocket.Conn
	route string
	mu    sync.Mutex
}

func (s *WSSession) send(b models.BusLocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(b)
}

// WSRegistry holds live-tracking subscriber sessions and fans bus updates out
// to them.
type WSRegistry struct {
	mu       sync.RWMutex
	nextID   uint64
	sessions map[uint64]*WSSession
	logger   *slog.Logger
}

func NewWSRegistry(logger *slog.Logger) *WSRegistry {
	return &WSRegistry{sessions: make(map[uint64]*WSSession), logger: logger}
}

// Add registers a connection; the returned id is used to drop it later.
func (r *WSRegistry) Add(conn *websocket.Conn, route string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.sessions[id] = &WSSession{conn: conn, route: route}
	return id
}

func (r *WSRegistry) Remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		_ = s.conn.Close()
		delete(r.sessions, id)
	}
}

// Count returns the number of connected subscribers.
func (r *WSRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Broadcast pushes a bus update to every subscriber whose route filter
// matches. Sessions that fail to write are dropped.
func (r *WSRegistry) Broadcast(b models.BusLocation) {
	r.mu.RLock()
	targets := make(map[uint64]*WSSession, len(r.sessions))
	for id, s := range r.sessions {
		if s.route == "" || s.route == b.RouteNumber {
			targets[id] = s
		}
	}
	r.mu.RUnlock()

	for id, s := range targets {
		if err := s.send(b); err != nil {
			if r.logger != nil {
				r.logger.Warn("ws send failed, dropping session", "session", id, "error", err)
			}
			r.Remove(id)
		}
	}
}
