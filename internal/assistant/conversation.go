package assistant

import (
	"strings"
	"sync"
	"time"
)

// Turn is one completed user/assistant exchange.
type Turn struct {
	UserText      string    `json:"user_text"`
	AssistantText string    `json:"assistant_text"`
	At            time.Time `json:"at"`
}

// Conversation keeps a bounded history of recent turns. When the cap is
// reached the oldest turn is evicted, so the rendered context cannot
// grow without limit over a long session.
type Conversation struct {
	turns    []Turn
	maxTurns int

	mu sync.RWMutex
}

// NewConversation creates a history bounded to maxTurns entries. A
// non-positive cap falls back to 8.
func NewConversation(maxTurns int) *Conversation {
	if maxTurns <= 0 {
		maxTurns = 8
	}

	return &Conversation{maxTurns: maxTurns}
}

// Append records a completed turn, evicting the oldest when full.
func (c *Conversation) Append(userText, assistantText string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, Turn{
		UserText:      userText,
		AssistantText: assistantText,
		At:            time.Now(),
	})

	if len(c.turns) > c.maxTurns {
		c.turns = append(c.turns[:0], c.turns[len(c.turns)-c.maxTurns:]...)
	}
}

// Context renders the history as alternating "User:"/"Nova:" lines for
// the backend's process endpoint. An empty history yields "".
func (c *Conversation) Context() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.turns) == 0 {
		return ""
	}

	var b strings.Builder
	for i, turn := range c.turns {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("User: ")
		b.WriteString(turn.UserText)
		b.WriteString("\nNova: ")
		b.WriteString(turn.AssistantText)
	}
	return b.String()
}

// Turns returns a copy of the current history.
func (c *Conversation) Turns() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of retained turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// Clear drops the history.
func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}
