package wakeword

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sayanmdn/project-nova/internal/audio"
)

// fakeChecker scripts wake-word check results and records call order.
type fakeChecker struct {
	mu       sync.Mutex
	payloads [][]byte

	detected   bool
	confidence float64
	err        error
	delay      time.Duration

	inFlight    int32
	maxInFlight int32
}

func (f *fakeChecker) CheckWakeWord(ctx context.Context, pcm []byte, sampleRate int) (bool, float64, error) {
	current := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxInFlight)
		if current <= max || atomic.CompareAndSwapInt32(&f.maxInFlight, max, current) {
			break
		}
	}

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.payloads = append(f.payloads, append([]byte{}, pcm...))
	detected, confidence, err := f.detected, f.confidence, f.err
	f.mu.Unlock()

	return detected, confidence, err
}

func (f *fakeChecker) calls() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.payloads))
	copy(out, f.payloads)
	return out
}

func fastConfig() Config {
	return Config{
		ConfidenceThreshold: 0.8,
		Cooldown:            0,
		PollInterval:        5 * time.Millisecond,
		CheckDelay:          time.Millisecond,
		QueueWindow:         5 * time.Second,
	}
}

func testChunk(t *testing.T, fill byte) *audio.Chunk {
	t.Helper()
	data := []byte{fill, fill, fill, fill}
	chunk, err := audio.NewChunk(data, time.Now(), 16000)
	if err != nil {
		t.Fatalf("NewChunk failed: %v", err)
	}
	return chunk
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestNewSessionValidation(t *testing.T) {
	checker := &fakeChecker{}

	if _, err := NewSession(fastConfig(), nil, nil); err == nil {
		t.Error("expected error for nil checker")
	}

	bad := fastConfig()
	bad.ConfidenceThreshold = 1.5
	if _, err := NewSession(bad, checker, nil); err == nil {
		t.Error("expected error for out-of-range confidence threshold")
	}

	if _, err := NewSession(fastConfig(), checker, nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestChecksRunInArrivalOrder(t *testing.T) {
	checker := &fakeChecker{}
	session, err := NewSession(fastConfig(), checker, nil)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	session.StartListening()
	defer session.StopListening()

	first := testChunk(t, 0xAA)
	second := testChunk(t, 0xBB)
	session.AddChunk(first)
	session.AddChunk(second)

	waitFor(t, time.Second, func() bool { return len(checker.calls()) >= 2 })

	calls := checker.calls()
	if !bytes.Equal(calls[0], first.Data) || !bytes.Equal(calls[1], second.Data) {
		t.Errorf("checks out of order: %v then %v", calls[0], calls[1])
	}
}

func TestAtMostOneCheckInFlight(t *testing.T) {
	checker := &fakeChecker{delay: 10 * time.Millisecond}
	session, err := NewSession(fastConfig(), checker, nil)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	session.StartListening()
	defer session.StopListening()

	for i := 0; i < 5; i++ {
		session.AddChunk(testChunk(t, byte(i)))
	}

	waitFor(t, 2*time.Second, func() bool { return len(checker.calls()) >= 5 })

	if max := atomic.LoadInt32(&checker.maxInFlight); max != 1 {
		t.Errorf("max in-flight checks = %d, want 1", max)
	}
}

func TestDetectionAboveThreshold(t *testing.T) {
	checker := &fakeChecker{detected: true, confidence: 0.95}
	session, err := NewSession(fastConfig(), checker, nil)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	session.StartListening()
	defer session.StopListening()
	session.AddChunk(testChunk(t, 1))

	select {
	case d := <-session.Detections():
		if d.Confidence != 0.95 {
			t.Errorf("confidence = %f, want 0.95", d.Confidence)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for detection")
	}
}

func TestDetectionBelowThresholdIgnored(t *testing.T) {
	checker := &fakeChecker{detected: true, confidence: 0.5}
	session, err := NewSession(fastConfig(), checker, nil)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	session.StartListening()
	defer session.StopListening()
	session.AddChunk(testChunk(t, 1))

	waitFor(t, time.Second, func() bool { return len(checker.calls()) >= 1 })

	select {
	case d := <-session.Detections():
		t.Errorf("unexpected detection at confidence %f", d.Confidence)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCooldownDropsChunks(t *testing.T) {
	checker := &fakeChecker{detected: true, confidence: 0.95}
	config := fastConfig()
	config.Cooldown = time.Hour
	session, err := NewSession(config, checker, nil)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	session.StartListening()
	defer session.StopListening()
	session.AddChunk(testChunk(t, 1))

	select {
	case <-session.Detections():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for detection")
	}

	session.AddChunk(testChunk(t, 2))
	session.AddChunk(testChunk(t, 3))

	stats := session.GetStats()
	if stats.ChunksDropped != 2 {
		t.Errorf("ChunksDropped = %d, want 2", stats.ChunksDropped)
	}
	if stats.QueueLength != 0 {
		t.Errorf("QueueLength = %d, want 0", stats.QueueLength)
	}
}

func TestRestartClearsCooldown(t *testing.T) {
	checker := &fakeChecker{detected: true, confidence: 0.95}
	config := fastConfig()
	config.Cooldown = time.Hour
	session, err := NewSession(config, checker, nil)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	session.StartListening()
	session.AddChunk(testChunk(t, 1))

	select {
	case <-session.Detections():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for detection")
	}

	session.StopListening()

	// A fresh session starts with no cooldown carried over, so its
	// first chunk is queued rather than dropped.
	checker.mu.Lock()
	checker.detected = false
	checker.mu.Unlock()

	session.StartListening()
	defer session.StopListening()

	before := session.GetStats().ChunksDropped
	session.AddChunk(testChunk(t, 2))

	stats := session.GetStats()
	if stats.ChunksDropped != before {
		t.Errorf("ChunksDropped = %d after restart, want %d", stats.ChunksDropped, before)
	}

	waitFor(t, time.Second, func() bool { return len(checker.calls()) >= 2 })
}

func TestQueuePrunesOldChunks(t *testing.T) {
	checker := &fakeChecker{}
	config := fastConfig()
	session, err := NewSession(config, checker, nil)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	session.StartListening()
	defer session.StopListening()

	stale, err := audio.NewChunk([]byte{1, 2}, time.Now().Add(-10*time.Second), 16000)
	if err != nil {
		t.Fatalf("NewChunk failed: %v", err)
	}
	session.AddChunk(stale)

	waitFor(t, time.Second, func() bool { return session.GetStats().ChunksPruned >= 1 })

	if calls := checker.calls(); len(calls) != 0 {
		t.Errorf("stale chunk was checked: %d calls", len(calls))
	}
}

func TestStartListeningTwiceIsNoOp(t *testing.T) {
	checker := &fakeChecker{}
	session, err := NewSession(fastConfig(), checker, nil)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	session.StartListening()
	session.StartListening()
	defer session.StopListening()

	if !session.IsListening() {
		t.Error("session should be listening")
	}
}

func TestStopDiscardsInFlightResult(t *testing.T) {
	checker := &fakeChecker{detected: true, confidence: 0.99, delay: 30 * time.Millisecond}
	session, err := NewSession(fastConfig(), checker, nil)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	session.StartListening()
	session.AddChunk(testChunk(t, 1))

	// Wait until the check is in flight, then stop while it runs.
	waitFor(t, time.Second, func() bool { return atomic.LoadInt32(&checker.inFlight) == 1 })
	session.StopListening()

	select {
	case d := <-session.Detections():
		t.Errorf("detection delivered after stop: %+v", d)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCheckErrorsSurfaced(t *testing.T) {
	checker := &fakeChecker{err: context.DeadlineExceeded}
	session, err := NewSession(fastConfig(), checker, nil)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}

	session.StartListening()
	defer session.StopListening()
	session.AddChunk(testChunk(t, 1))

	select {
	case checkErr := <-session.Errors():
		if checkErr == nil {
			t.Error("nil error on error channel")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for error")
	}
}
