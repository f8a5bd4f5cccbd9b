package audio

import (
	"sync"
	"time"
)

// RollingBuffer accumulates timestamped chunks and discards entries that
// age out of a fixed window. It backs the always-on listening loop, so
// appends and trims stay cheap: chunks arrive in timestamp order and the
// trim walks only the expired prefix.
type RollingBuffer struct {
	chunks []*Chunk
	window time.Duration

	mu sync.RWMutex
}

// RollingBufferStats represents buffer statistics for monitoring.
type RollingBufferStats struct {
	Chunks      int           `json:"chunks"`
	Bytes       int           `json:"bytes"`
	Window      time.Duration `json:"window"`
	OldestChunk time.Time     `json:"oldest_chunk,omitempty"`
	NewestChunk time.Time     `json:"newest_chunk,omitempty"`
}

// NewRollingBuffer creates a buffer that retains at most window worth of
// chunk history. A non-positive window falls back to 30 seconds.
func NewRollingBuffer(window time.Duration) *RollingBuffer {
	if window <= 0 {
		window = 30 * time.Second
	}

	return &RollingBuffer{window: window}
}

// Append adds a chunk to the end of the buffer.
func (b *RollingBuffer) Append(chunk *Chunk) {
	if chunk == nil || len(chunk.Data) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.chunks = append(b.chunks, chunk)
}

// Trim drops every chunk whose timestamp is at or before now minus the
// window. Calling it repeatedly with the same now is a no-op after the
// first call.
func (b *RollingBuffer) Trim(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cutoff := now.Add(-b.window)

	keep := 0
	for keep < len(b.chunks) && !b.chunks[keep].Timestamp.After(cutoff) {
		keep++
	}
	if keep > 0 {
		b.chunks = append(b.chunks[:0], b.chunks[keep:]...)
	}
}

// Merge concatenates all buffered chunk payloads in order. An empty
// buffer yields an empty slice.
func (b *RollingBuffer) Merge() []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, c := range b.chunks {
		total += len(c.Data)
	}

	merged := make([]byte, 0, total)
	for _, c := range b.chunks {
		merged = append(merged, c.Data...)
	}
	return merged
}

// Recent merges only the chunks whose timestamps fall within the given
// duration before now. It returns nil when the buffer is empty or every
// chunk is older than the window, which happens after a capture stall.
func (b *RollingBuffer) Recent(d time.Duration) []byte {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.chunks) == 0 || d <= 0 {
		return nil
	}

	cutoff := time.Now().Add(-d)

	start := len(b.chunks)
	for start > 0 && b.chunks[start-1].Timestamp.After(cutoff) {
		start--
	}
	if start == len(b.chunks) {
		return nil
	}

	total := 0
	for _, c := range b.chunks[start:] {
		total += len(c.Data)
	}

	merged := make([]byte, 0, total)
	for _, c := range b.chunks[start:] {
		merged = append(merged, c.Data...)
	}
	return merged
}

// Len returns the number of buffered chunks.
func (b *RollingBuffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.chunks)
}

// Clear drops all buffered chunks.
func (b *RollingBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = b.chunks[:0]
}

// GetStats returns current buffer statistics.
func (b *RollingBuffer) GetStats() RollingBufferStats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := RollingBufferStats{
		Chunks: len(b.chunks),
		Window: b.window,
	}
	for _, c := range b.chunks {
		stats.Bytes += len(c.Data)
	}
	if len(b.chunks) > 0 {
		stats.OldestChunk = b.chunks[0].Timestamp
		stats.NewestChunk = b.chunks[len(b.chunks)-1].Timestamp
	}
	return stats
}
