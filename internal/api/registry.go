package api

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// StreamRegistry tracks the live stream of every client session. A session
// has at most one live stream: registering a new one cancels the previous.
type StreamRegistry struct {
	mu     sync.Mutex
	active map[string]*liveStream
}

type liveStream struct {
	id       string
	cancel   context.CancelFunc
	openedAt time.Time
}

// NewStreamRegistry creates an empty registry.
func NewStreamRegistry() *StreamRegistry {
	return &StreamRegistry{
		active: make(map[string]*liveStream),
	}
}

// Register records streamID as the live stream of sessionID, cancelling any
// stream it replaces.
func (m *StreamRegistry) Register(sessionID, streamID string, cancel context.CancelFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.active[sessionID]; ok && existing.id != streamID {
		existing.cancel()
		slog.Info("Campaign stream replaced", "session_id", sessionID, "stream_id", existing.id, "replaced_by", streamID)
	}

	m.active[sessionID] = &liveStream{id: streamID, cancel: cancel, openedAt: time.Now()}
}

// Unregister removes streamID if it is still the live stream of sessionID.
func (m *StreamRegistry) Unregister(sessionID, streamID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.active[sessionID]; ok && current.id == streamID {
		delete(m.active, sessionID)
	}
}

// Active returns the live stream ID of sessionID, or "" if there is none.
func (m *StreamRegistry) Active(sessionID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.active[sessionID]; ok {
		return s.id
	}
	return ""
}

// Len returns the number of live streams.
func (m *StreamRegistry) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// CloseAll cancels every live stream. Used on server shutdown.
func (m *StreamRegistry) CloseAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for sid, s := range m.active {
		s.cancel()
		slog.Info("Campaign stream closed", "session_id", sid, "stream_id", s.id, "age", time.Since(s.openedAt))
	}
	clear(m.active)
}
