// Package chat provides the in-memory conversation history keyed by a
// client-supplied session id.
//
// Histories are shared between any connections that present the same session
// id. Appends are serialized per store, but two sessions writing under the
// same id interleave last-writer-wins; that race is accepted behavior for
// this process-local store.
package chat

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// MaxMessages is the retained history depth per session.
const MaxMessages = 50

// Roles in a conversation.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a conversation history.
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"ts"`
}

// Store holds conversation histories for all sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string][]Message
}

// NewStore creates an empty history store.
func NewStore() *Store {
	return &Store{sessions: make(map[string][]Message)}
}

// Append adds a message to a session's history, trimming to MaxMessages.
// An empty session id is a no-op so callers don't need to branch on whether
// history tracking was requested.
func (s *Store) Append(sessionID, role, content string) {
	if sessionID == "" || strings.TrimSpace(content) == "" {
		return
	}

	msg := Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.sessions[sessionID], msg)
	if len(history) > MaxMessages {
		history = history[len(history)-MaxMessages:]
	}
	s.sessions[sessionID] = history
}

// History returns a copy of a session's messages, oldest first.
func (s *Store) History(sessionID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.sessions[sessionID]
	out := make([]Message, len(history))
	copy(out, history)
	return out
}

// Clear removes a session's history.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = nil
}

// BuildPrompt flattens a history into a single prompt transcript for models
// driven with plain text instead of structured chat turns.
func BuildPrompt(systemPrompt string, history []Message) string {
	if systemPrompt == "" {
		systemPrompt = "You are a helpful, concise voice assistant. Keep responses clear and short."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "System: %s\n", systemPrompt)
	for _, msg := range history {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		prefix := "User"
		if msg.Role == RoleAssistant {
			prefix = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", prefix, content)
	}
	b.WriteString("Assistant:")
	return b.String()
}
