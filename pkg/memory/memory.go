// Package memory implements bounded conversation memory with optional
// SQLite persistence.
package memory

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is one conversation turn.
type Message struct {
	ID        string            `json:"id"`
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Stats summarizes memory usage.
type Stats struct {
	TotalMessages int `json:"total_messages"`
	TotalTurns    int `json:"total_turns"`
	MaxCapacity   int `json:"max_capacity"`
}

// ConversationMemory keeps the most recent messages up to a fixed capacity.
// Appending beyond capacity evicts the oldest message.
type ConversationMemory struct {
	mu       sync.RWMutex
	messages []Message
	capacity int
	store    Store
}

// Option configures a ConversationMemory.
type Option func(*ConversationMemory)

// WithStore attaches a persistence backend. Existing messages are replayed
// into memory on construction.
func WithStore(store Store) Option {
	return func(m *ConversationMemory) {
		m.store = store
	}
}

// New creates a memory holding at most capacity messages (default 10).
func New(capacity int, opts ...Option) (*ConversationMemory, error) {
	if capacity <= 0 {
		capacity = 10
	}

	m := &ConversationMemory{capacity: capacity}
	for _, opt := range opts {
		opt(m)
	}

	if m.store != nil {
		stored, err := m.store.Load(capacity)
		if err != nil {
			return nil, fmt.Errorf("failed to load persisted messages: %w", err)
		}
		m.messages = stored
	}

	return m, nil
}

// AddMessage appends a turn, evicting the oldest when full.
func (m *ConversationMemory) AddMessage(role, content string, metadata map[string]string) (Message, error) {
	msg := Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Metadata:  metadata,
	}

	m.mu.Lock()
	m.messages = append(m.messages, msg)
	if len(m.messages) > m.capacity {
		m.messages = m.messages[len(m.messages)-m.capacity:]
	}
	store := m.store
	m.mu.Unlock()

	if store != nil {
		if err := store.Append(msg); err != nil {
			return msg, fmt.Errorf("failed to persist message: %w", err)
		}
	}

	return msg, nil
}

// GetHistory returns the last n messages, oldest first. n <= 0 returns all.
func (m *ConversationMemory) GetHistory(n int) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n <= 0 || n > len(m.messages) {
		n = len(m.messages)
	}

	out := make([]Message, n)
	copy(out, m.messages[len(m.messages)-n:])
	return out
}

// Context formats the history as "ROLE: content" lines for prompt building.
func (m *ConversationMemory) Context() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.messages) == 0 {
		return ""
	}

	lines := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		lines = append(lines, fmt.Sprintf("%s: %s", strings.ToUpper(msg.Role), msg.Content))
	}
	return strings.Join(lines, "\n")
}

// Contents returns just the message bodies, oldest first.
func (m *ConversationMemory) Contents() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		out = append(out, msg.Content)
	}
	return out
}

// Clear removes all messages, including persisted ones.
func (m *ConversationMemory) Clear() error {
	m.mu.Lock()
	m.messages = nil
	store := m.store
	m.mu.Unlock()

	if store != nil {
		if err := store.Clear(); err != nil {
			return fmt.Errorf("failed to clear persisted messages: %w", err)
		}
	}
	return nil
}

// Stats reports message counts. Turns count user messages only.
func (m *ConversationMemory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	turns := 0
	for _, msg := range m.messages {
		if msg.Role == "user" {
			turns++
		}
	}

	return Stats{
		TotalMessages: len(m.messages),
		TotalTurns:    turns,
		MaxCapacity:   m.capacity,
	}
}
