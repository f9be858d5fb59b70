package tutor

import (
	"sync"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type historyKey struct {
	userID string
	goalID string
}

// History is an append-only transcript per (user, goal).
type History struct {
	mu       sync.RWMutex
	messages map[historyKey][]Message
}

func NewHistory() *History {
	return &History{messages: make(map[historyKey][]Message)}
}

// Append adds messages in order under one lock so an exchange stays adjacent.
func (h *History) Append(userID, goalID string, msgs ...Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := historyKey{userID: userID, goalID: goalID}
	h.messages[key] = append(h.messages[key], msgs...)
}

func (h *History) List(userID, goalID string) []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	stored := h.messages[historyKey{userID: userID, goalID: goalID}]
	out := make([]Message, len(stored))
	copy(out, stored)
	return out
}

// Forget drops a goal's transcript, used when the goal is deleted.
func (h *History) Forget(userID, goalID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.messages, historyKey{userID: userID, goalID: goalID})
}
