package ui

import (
	"fmt"
	"io"
	"sync"
)

// Console writes assistant activity to a terminal-style writer.
type Console struct {
	w  io.Writer
	mu sync.Mutex
}

// NewConsole creates a console bound to the given writer.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// ShowState announces an application state change.
func (c *Console) ShowState(state string) {
	c.printf("[%s]\n", state)
}

// ShowWake announces a wake-phrase detection.
func (c *Console) ShowWake(confidence float64) {
	c.printf("* Wake phrase detected (confidence %.2f), listening...\n", confidence)
}

// ShowTranscript displays what the backend heard.
func (c *Console) ShowTranscript(text string) {
	c.printf("You: %s\n", text)
}

// ShowResponse displays the assistant's reply.
func (c *Console) ShowResponse(text string) {
	c.printf("Nova: %s\n", text)
}

// ShowError displays a recoverable failure.
func (c *Console) ShowError(err error) {
	c.printf("! %v\n", err)
}

func (c *Console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}
