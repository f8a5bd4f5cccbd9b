package audio

import (
	"bytes"
	"testing"
	"time"
)

func chunkAt(t *testing.T, data []byte, ts time.Time) *Chunk {
	t.Helper()
	chunk, err := NewChunk(data, ts, 16000)
	if err != nil {
		t.Fatalf("NewChunk failed: %v", err)
	}
	return chunk
}

func TestRollingBufferMerge(t *testing.T) {
	buf := NewRollingBuffer(30 * time.Second)
	now := time.Now()

	buf.Append(chunkAt(t, []byte{1, 2}, now))
	buf.Append(chunkAt(t, []byte{3, 4}, now.Add(time.Second)))
	buf.Append(chunkAt(t, []byte{5, 6}, now.Add(2*time.Second)))

	merged := buf.Merge()
	want := []byte{1, 2, 3, 4, 5, 6}
	if !bytes.Equal(merged, want) {
		t.Errorf("Merge() = %v, want %v", merged, want)
	}
}

func TestRollingBufferMergeEmpty(t *testing.T) {
	buf := NewRollingBuffer(30 * time.Second)
	if merged := buf.Merge(); len(merged) != 0 {
		t.Errorf("Merge() on empty buffer = %v, want empty", merged)
	}
}

func TestRollingBufferTrim(t *testing.T) {
	buf := NewRollingBuffer(30 * time.Second)
	now := time.Now()

	buf.Append(chunkAt(t, []byte{1, 2}, now.Add(-45*time.Second)))
	buf.Append(chunkAt(t, []byte{3, 4}, now.Add(-31*time.Second)))
	buf.Append(chunkAt(t, []byte{5, 6}, now.Add(-10*time.Second)))
	buf.Append(chunkAt(t, []byte{7, 8}, now))

	buf.Trim(now)
	if buf.Len() != 2 {
		t.Fatalf("Len() after trim = %d, want 2", buf.Len())
	}

	merged := buf.Merge()
	want := []byte{5, 6, 7, 8}
	if !bytes.Equal(merged, want) {
		t.Errorf("Merge() after trim = %v, want %v", merged, want)
	}
}

func TestRollingBufferTrimIdempotent(t *testing.T) {
	buf := NewRollingBuffer(30 * time.Second)
	now := time.Now()

	buf.Append(chunkAt(t, []byte{1, 2}, now.Add(-40*time.Second)))
	buf.Append(chunkAt(t, []byte{3, 4}, now))

	buf.Trim(now)
	first := buf.Merge()
	buf.Trim(now)
	second := buf.Merge()

	if !bytes.Equal(first, second) {
		t.Errorf("repeated Trim changed contents: %v then %v", first, second)
	}
}

func TestRollingBufferTrimBoundary(t *testing.T) {
	buf := NewRollingBuffer(30 * time.Second)
	now := time.Now()

	// A chunk exactly at the cutoff is dropped, one just inside survives.
	buf.Append(chunkAt(t, []byte{1, 2}, now.Add(-30*time.Second)))
	buf.Append(chunkAt(t, []byte{3, 4}, now.Add(-30*time.Second+time.Millisecond)))

	buf.Trim(now)
	if buf.Len() != 1 {
		t.Fatalf("Len() after boundary trim = %d, want 1", buf.Len())
	}
	if !bytes.Equal(buf.Merge(), []byte{3, 4}) {
		t.Errorf("wrong chunk survived: %v", buf.Merge())
	}
}

func TestRollingBufferRecent(t *testing.T) {
	buf := NewRollingBuffer(30 * time.Second)
	now := time.Now()

	buf.Append(chunkAt(t, []byte{1, 2}, now.Add(-10*time.Second)))
	buf.Append(chunkAt(t, []byte{3, 4}, now.Add(-4*time.Second)))
	buf.Append(chunkAt(t, []byte{5, 6}, now))

	recent := buf.Recent(5 * time.Second)
	want := []byte{3, 4, 5, 6}
	if !bytes.Equal(recent, want) {
		t.Errorf("Recent(5s) = %v, want %v", recent, want)
	}
}

func TestRollingBufferRecentEmpty(t *testing.T) {
	buf := NewRollingBuffer(30 * time.Second)
	if recent := buf.Recent(5 * time.Second); recent != nil {
		t.Errorf("Recent() on empty buffer = %v, want nil", recent)
	}
}

func TestRollingBufferRecentAllStale(t *testing.T) {
	buf := NewRollingBuffer(30 * time.Second)
	now := time.Now()

	// A stalled capture leaves only old audio behind; none of it falls
	// inside the requested window, even the newest chunk.
	buf.Append(chunkAt(t, []byte{1, 2}, now.Add(-20*time.Second)))
	buf.Append(chunkAt(t, []byte{3, 4}, now.Add(-19*time.Second)))

	if recent := buf.Recent(5 * time.Second); recent != nil {
		t.Errorf("Recent(5s) over stale buffer = %v, want nil", recent)
	}
}

func TestRollingBufferClear(t *testing.T) {
	buf := NewRollingBuffer(30 * time.Second)
	buf.Append(chunkAt(t, []byte{1, 2}, time.Now()))
	buf.Clear()
	if buf.Len() != 0 {
		t.Errorf("Len() after Clear = %d, want 0", buf.Len())
	}
}

func TestRollingBufferStats(t *testing.T) {
	buf := NewRollingBuffer(30 * time.Second)
	now := time.Now()
	buf.Append(chunkAt(t, []byte{1, 2, 3, 4}, now))
	buf.Append(chunkAt(t, []byte{5, 6}, now.Add(time.Second)))

	stats := buf.GetStats()
	if stats.Chunks != 2 {
		t.Errorf("Chunks = %d, want 2", stats.Chunks)
	}
	if stats.Bytes != 6 {
		t.Errorf("Bytes = %d, want 6", stats.Bytes)
	}
	if !stats.NewestChunk.Equal(now.Add(time.Second)) {
		t.Errorf("NewestChunk = %v, want %v", stats.NewestChunk, now.Add(time.Second))
	}
}
