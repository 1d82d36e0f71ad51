package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub is the session directory: user id -> set of live connections.
// It is an owned value; create one per server (or per test).
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[Conn]struct{}
	log      *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		sessions: make(map[string]map[Conn]struct{}),
		log:      log,
	}
}

// Join adds conn to userID's set. Joining twice is a no-op.
func (h *Hub) Join(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.sessions[userID]
	if !ok {
		set = make(map[Conn]struct{})
		h.sessions[userID] = set
	}
	if _, exists := set[conn]; exists {
		return
	}
	set[conn] = struct{}{}
	h.log.Debug("session joined", zap.String("user_id", userID), zap.Int("connections", len(set)))
}

// Leave removes exactly conn. Other connections of the same user are untouched.
func (h *Hub) Leave(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(userID, conn)
}

func (h *Hub) leaveLocked(userID string, conn Conn) bool {
	set, ok := h.sessions[userID]
	if !ok {
		return false
	}
	if _, exists := set[conn]; !exists {
		return false
	}
	delete(set, conn)
	if len(set) == 0 {
		delete(h.sessions, userID)
	}
	h.log.Debug("session left", zap.String("user_id", userID), zap.Int("connections", len(set)))
	return true
}

// Connections returns how many live connections userID has.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[userID])
}

// Broadcast delivers evt to the connections held by this process.
func (h *Hub) Broadcast(_ context.Context, userID string, evt Event) error {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event failed: %w", err)
	}
	h.Deliver(userID, data)
	return nil
}

// Deliver sends a pre-encoded message and returns how many connections accepted it.
// Connections whose buffer is full are dropped from the directory and closed.
func (h *Hub) Deliver(userID string, data []byte) int {
	h.mu.RLock()
	targets := make([]Conn, 0, len(h.sessions[userID]))
	for conn := range h.sessions[userID] {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	delivered := 0
	var slow []Conn
	for _, conn := range targets {
		if conn.Send(data) {
			delivered++
			continue
		}
		slow = append(slow, conn)
	}

	if len(slow) > 0 {
		h.mu.Lock()
		for _, conn := range slow {
			if h.leaveLocked(userID, conn) {
				h.log.Warn("dropping slow connection", zap.String("user_id", userID))
			}
		}
		h.mu.Unlock()
		for _, conn := range slow {
			conn.Close()
		}
	}

	return delivered
}
