package recorder

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sayanmdn/project-nova/internal/audio"
)

// EventKind identifies a recording session event.
type EventKind int

const (
	// EventSilenceElapsed fires once per silence run, at the chunk where
	// the accumulated silence crosses the configured duration.
	EventSilenceElapsed EventKind = iota
	// EventSpeechResumed fires when a non-silent chunk follows silence.
	EventSpeechResumed
	// EventMaxDurationReached fires once when the recording hits its
	// hard ceiling.
	EventMaxDurationReached
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventSilenceElapsed:
		return "silence_elapsed"
	case EventSpeechResumed:
		return "speech_resumed"
	case EventMaxDurationReached:
		return "max_duration_reached"
	default:
		return "unknown"
	}
}

// Event describes a state change observed while recording.
type Event struct {
	Kind      EventKind
	Level     float64
	Timestamp time.Time
}

// Config contains recording session configuration.
type Config struct {
	SilenceThreshold float64       // Negative dB-style threshold, e.g. -40
	SilenceDuration  time.Duration // Silence run that ends an utterance
	MaxDuration      time.Duration // Hard recording ceiling
}

// Session captures an utterance chunk by chunk and reports silence
// endpointing events. It is created per recording; a stopped session is
// not reusable.
type Session struct {
	config   Config
	analyzer *audio.Analyzer
	logger   *slog.Logger

	chunks    []*audio.Chunk
	recording bool
	startTime time.Time

	// Silence tracking
	silenceStart     time.Time
	silenceSignalled bool
	maxSignalled     bool

	maxTimer *time.Timer
	events   chan Event

	mu sync.Mutex
}

// SessionStats represents recording session statistics.
type SessionStats struct {
	Recording     bool          `json:"recording"`
	Chunks        int           `json:"chunks"`
	Bytes         int           `json:"bytes"`
	Elapsed       time.Duration `json:"elapsed"`
	SilenceActive bool          `json:"silence_active"`
}

// NewSession creates a recording session.
func NewSession(config Config, logger *slog.Logger) (*Session, error) {
	if config.SilenceThreshold >= 0 {
		return nil, fmt.Errorf("silence threshold must be negative, got %g", config.SilenceThreshold)
	}
	if config.SilenceDuration <= 0 {
		return nil, fmt.Errorf("silence duration must be positive, got %v", config.SilenceDuration)
	}
	if config.MaxDuration <= 0 {
		config.MaxDuration = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	analyzer, err := audio.NewAnalyzer(config.SilenceThreshold)
	if err != nil {
		return nil, err
	}

	return &Session{
		config:   config,
		analyzer: analyzer,
		logger:   logger,
		events:   make(chan Event, 16),
	}, nil
}

// Start begins capturing. The hard ceiling runs on the wall clock so a
// stalled chunk source cannot leave the session recording forever.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.recording {
		s.logger.Warn("recording session already started")
		return
	}

	s.recording = true
	s.startTime = time.Now()
	s.maxTimer = time.AfterFunc(s.config.MaxDuration, s.onMaxDuration)

	s.logger.Debug("recording started",
		slog.Duration("max_duration", s.config.MaxDuration),
		slog.Duration("silence_duration", s.config.SilenceDuration))
}

// AddChunk appends an audio chunk and updates the silence tracker.
func (s *Session) AddChunk(chunk *audio.Chunk) error {
	result := s.analyzer.Analyze(chunk)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording {
		return fmt.Errorf("session is not recording")
	}

	s.chunks = append(s.chunks, chunk)

	if result.Silent {
		if s.silenceStart.IsZero() {
			s.silenceStart = chunk.Timestamp
		}

		if !s.silenceSignalled && chunk.Timestamp.Sub(s.silenceStart) >= s.config.SilenceDuration {
			s.silenceSignalled = true
			s.emit(Event{Kind: EventSilenceElapsed, Level: result.Level, Timestamp: chunk.Timestamp})
		}
	} else {
		if !s.silenceStart.IsZero() {
			s.emit(Event{Kind: EventSpeechResumed, Level: result.Level, Timestamp: chunk.Timestamp})
		}
		s.silenceStart = time.Time{}
		s.silenceSignalled = false
	}

	if !s.maxSignalled && chunk.Timestamp.Sub(s.startTime) >= s.config.MaxDuration {
		s.maxSignalled = true
		s.emit(Event{Kind: EventMaxDurationReached, Level: result.Level, Timestamp: chunk.Timestamp})
	}

	return nil
}

// Stop ends the recording and returns the merged PCM bytes, or nil when
// nothing was captured.
func (s *Session) Stop() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxTimer != nil {
		s.maxTimer.Stop()
		s.maxTimer = nil
	}

	if !s.recording {
		return nil
	}
	s.recording = false

	if len(s.chunks) == 0 {
		return nil
	}

	total := 0
	for _, c := range s.chunks {
		total += len(c.Data)
	}

	merged := make([]byte, 0, total)
	for _, c := range s.chunks {
		merged = append(merged, c.Data...)
	}

	s.logger.Debug("recording stopped",
		slog.Int("chunks", len(s.chunks)),
		slog.Int("bytes", len(merged)),
		slog.Duration("elapsed", time.Since(s.startTime)))

	return merged
}

// Events returns the session event channel.
func (s *Session) Events() <-chan Event {
	return s.events
}

// IsRecording reports whether the session is still capturing.
func (s *Session) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recording
}

// GetStats returns current session statistics.
func (s *Session) GetStats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	bytes := 0
	for _, c := range s.chunks {
		bytes += len(c.Data)
	}

	elapsed := time.Duration(0)
	if !s.startTime.IsZero() {
		elapsed = time.Since(s.startTime)
	}

	return SessionStats{
		Recording:     s.recording,
		Chunks:        len(s.chunks),
		Bytes:         bytes,
		Elapsed:       elapsed,
		SilenceActive: !s.silenceStart.IsZero(),
	}
}

// onMaxDuration handles the wall-clock ceiling firing.
func (s *Session) onMaxDuration() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.recording || s.maxSignalled {
		return
	}
	s.maxSignalled = true
	s.emit(Event{Kind: EventMaxDurationReached, Timestamp: time.Now()})
}

// emit delivers an event without ever blocking the caller. The channel
// is buffered; a full channel means the consumer is gone, so the event
// is dropped with a warning.
func (s *Session) emit(event Event) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("recorder event dropped, channel full",
			slog.String("kind", event.Kind.String()))
	}
}
