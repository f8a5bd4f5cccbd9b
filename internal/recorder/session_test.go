package recorder

import (
	"bytes"
	"testing"
	"time"

	"github.com/sayanmdn/project-nova/internal/audio"
)

const testSampleRate = 16000

// loudChunk has level 50, well above the -40 threshold magnitude.
func loudChunk(t *testing.T, ts time.Time) *audio.Chunk {
	t.Helper()
	data := make([]byte, 320)
	for i := 0; i < len(data); i += 2 {
		data[i] = 0x00
		data[i+1] = 0x40 // 16384
	}
	chunk, err := audio.NewChunk(data, ts, testSampleRate)
	if err != nil {
		t.Fatalf("NewChunk failed: %v", err)
	}
	return chunk
}

// quietChunk has level 0.
func quietChunk(t *testing.T, ts time.Time) *audio.Chunk {
	t.Helper()
	chunk, err := audio.NewChunk(make([]byte, 320), ts, testSampleRate)
	if err != nil {
		t.Fatalf("NewChunk failed: %v", err)
	}
	return chunk
}

func newTestSession(t *testing.T, silenceDuration, maxDuration time.Duration) *Session {
	t.Helper()
	session, err := NewSession(Config{
		SilenceThreshold: -40,
		SilenceDuration:  silenceDuration,
		MaxDuration:      maxDuration,
	}, nil)
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	return session
}

func drainEvents(s *Session) []Event {
	var events []Event
	for {
		select {
		case e := <-s.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func TestNewSessionValidation(t *testing.T) {
	tests := []struct {
		name      string
		config    Config
		expectErr bool
	}{
		{
			name:   "valid",
			config: Config{SilenceThreshold: -40, SilenceDuration: 2 * time.Second},
		},
		{
			name:      "positive threshold",
			config:    Config{SilenceThreshold: 40, SilenceDuration: 2 * time.Second},
			expectErr: true,
		},
		{
			name:      "zero silence duration",
			config:    Config{SilenceThreshold: -40},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSession(tt.config, nil)
			if tt.expectErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSilenceElapsedSignalledOnce(t *testing.T) {
	session := newTestSession(t, 2*time.Second, time.Hour)
	session.Start()
	defer session.Stop()

	base := time.Now()
	session.AddChunk(loudChunk(t, base))

	// Silent chunks every 300ms starting at 300ms. The silence run
	// begins at the 300ms chunk, so the 2s threshold is crossed by the
	// chunk at 2400ms.
	crossing := base.Add(2400 * time.Millisecond)
	for i := 0; i < 8; i++ {
		ts := base.Add(time.Duration(300+i*300) * time.Millisecond)
		if err := session.AddChunk(quietChunk(t, ts)); err != nil {
			t.Fatalf("AddChunk failed: %v", err)
		}
	}

	elapsed := 0
	for _, e := range drainEvents(session) {
		if e.Kind == EventSilenceElapsed {
			elapsed++
			if !e.Timestamp.Equal(crossing) {
				t.Errorf("silence signalled at %v, want the crossing chunk at %v", e.Timestamp, crossing)
			}
		}
	}
	if elapsed != 1 {
		t.Errorf("EventSilenceElapsed count = %d, want exactly 1", elapsed)
	}
}

func TestSilenceNotSignalledBeforeThreshold(t *testing.T) {
	session := newTestSession(t, 2*time.Second, time.Hour)
	session.Start()
	defer session.Stop()

	base := time.Now()
	session.AddChunk(quietChunk(t, base))
	session.AddChunk(quietChunk(t, base.Add(500*time.Millisecond)))
	session.AddChunk(quietChunk(t, base.Add(time.Second)))

	for _, e := range drainEvents(session) {
		if e.Kind == EventSilenceElapsed {
			t.Fatal("silence signalled before threshold elapsed")
		}
	}
}

func TestSpeechResumedResetsSilenceRun(t *testing.T) {
	session := newTestSession(t, 2*time.Second, time.Hour)
	session.Start()
	defer session.Stop()

	base := time.Now()
	session.AddChunk(quietChunk(t, base))
	session.AddChunk(quietChunk(t, base.Add(time.Second)))
	session.AddChunk(loudChunk(t, base.Add(1500*time.Millisecond)))
	// New silence run starts here; crossing needs a fresh 2s.
	session.AddChunk(quietChunk(t, base.Add(2*time.Second)))
	session.AddChunk(quietChunk(t, base.Add(3*time.Second)))

	var resumed, elapsed int
	for _, e := range drainEvents(session) {
		switch e.Kind {
		case EventSpeechResumed:
			resumed++
		case EventSilenceElapsed:
			elapsed++
		}
	}
	if resumed != 1 {
		t.Errorf("EventSpeechResumed count = %d, want 1", resumed)
	}
	if elapsed != 0 {
		t.Errorf("EventSilenceElapsed count = %d, want 0 (run was reset)", elapsed)
	}

	// Completing the new run signals once.
	session.AddChunk(quietChunk(t, base.Add(4*time.Second)))
	for _, e := range drainEvents(session) {
		if e.Kind == EventSilenceElapsed {
			elapsed++
		}
	}
	if elapsed != 1 {
		t.Errorf("EventSilenceElapsed after new run = %d, want 1", elapsed)
	}
}

func TestMaxDurationFromChunkTimestamps(t *testing.T) {
	session := newTestSession(t, 2*time.Second, 30*time.Second)
	session.Start()
	defer session.Stop()

	base := time.Now()
	session.AddChunk(loudChunk(t, base))
	session.AddChunk(loudChunk(t, base.Add(31*time.Second)))

	found := 0
	for _, e := range drainEvents(session) {
		if e.Kind == EventMaxDurationReached {
			found++
		}
	}
	if found != 1 {
		t.Errorf("EventMaxDurationReached count = %d, want 1", found)
	}
}

func TestMaxDurationWallClockTimer(t *testing.T) {
	session := newTestSession(t, 2*time.Second, 20*time.Millisecond)
	session.Start()
	defer session.Stop()

	select {
	case e := <-session.Events():
		if e.Kind != EventMaxDurationReached {
			t.Errorf("event kind = %v, want max_duration_reached", e.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for max duration event")
	}
}

func TestStopReturnsMergedAudio(t *testing.T) {
	session := newTestSession(t, 2*time.Second, time.Hour)
	session.Start()

	base := time.Now()
	first := loudChunk(t, base)
	second := quietChunk(t, base.Add(time.Second))
	session.AddChunk(first)
	session.AddChunk(second)

	merged := session.Stop()
	want := append(append([]byte{}, first.Data...), second.Data...)
	if !bytes.Equal(merged, want) {
		t.Errorf("Stop() returned %d bytes, want %d matching chunk order", len(merged), len(want))
	}
}

func TestStopWithoutChunksReturnsNil(t *testing.T) {
	session := newTestSession(t, 2*time.Second, time.Hour)
	session.Start()
	if merged := session.Stop(); merged != nil {
		t.Errorf("Stop() = %v, want nil", merged)
	}
}

func TestAddChunkAfterStopFails(t *testing.T) {
	session := newTestSession(t, 2*time.Second, time.Hour)
	session.Start()
	session.Stop()

	if err := session.AddChunk(loudChunk(t, time.Now())); err == nil {
		t.Error("expected error adding chunk to stopped session")
	}
}
