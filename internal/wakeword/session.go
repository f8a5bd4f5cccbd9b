package wakeword

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sayanmdn/project-nova/internal/audio"
)

// RemoteChecker runs a single wake-phrase check against the inference
// backend for one chunk of PCM audio.
type RemoteChecker interface {
	CheckWakeWord(ctx context.Context, pcm []byte, sampleRate int) (detected bool, confidence float64, err error)
}

// Detection reports a confirmed wake-phrase hit.
type Detection struct {
	Confidence float64
	Timestamp  time.Time
}

// Config contains wake-word session configuration.
type Config struct {
	ConfidenceThreshold float64       // Minimum confidence to accept a hit
	Cooldown            time.Duration // Drop window after a detection
	PollInterval        time.Duration // Queue poll cadence
	CheckDelay          time.Duration // Pause between consecutive checks
	QueueWindow         time.Duration // Maximum age of a queued chunk
	CheckTimeout        time.Duration // Per-check remote call budget
}

// Session watches a queue of audio chunks for the wake phrase. Chunks
// are checked strictly in arrival order with at most one remote check in
// flight; a stop discards the queue and the result of any check still
// running.
type Session struct {
	config  Config
	checker RemoteChecker
	logger  *slog.Logger

	queue         []*audio.Chunk
	listening     bool
	generation    uint64
	lastDetection time.Time

	detections chan Detection
	errors     chan error
	stopCh     chan struct{}
	wg         sync.WaitGroup

	// Statistics
	chunksQueued   uint64
	chunksDropped  uint64
	chunksPruned   uint64
	checksTotal    uint64
	checksFailed   uint64
	detectionCount uint64

	mu sync.Mutex
}

// SessionStats represents wake-word session statistics.
type SessionStats struct {
	Listening      bool   `json:"listening"`
	QueueLength    int    `json:"queue_length"`
	ChunksQueued   uint64 `json:"chunks_queued"`
	ChunksDropped  uint64 `json:"chunks_dropped"`
	ChunksPruned   uint64 `json:"chunks_pruned"`
	ChecksTotal    uint64 `json:"checks_total"`
	ChecksFailed   uint64 `json:"checks_failed"`
	DetectionCount uint64 `json:"detection_count"`
}

// NewSession creates a wake-word session.
func NewSession(config Config, checker RemoteChecker, logger *slog.Logger) (*Session, error) {
	if checker == nil {
		return nil, fmt.Errorf("remote checker cannot be nil")
	}
	if config.ConfidenceThreshold < 0 || config.ConfidenceThreshold > 1 {
		return nil, fmt.Errorf("confidence threshold must be between 0 and 1, got %g", config.ConfidenceThreshold)
	}
	if config.Cooldown < 0 {
		return nil, fmt.Errorf("cooldown must not be negative, got %v", config.Cooldown)
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 100 * time.Millisecond
	}
	if config.CheckDelay <= 0 {
		config.CheckDelay = 50 * time.Millisecond
	}
	if config.QueueWindow <= 0 {
		config.QueueWindow = 5 * time.Second
	}
	if config.CheckTimeout <= 0 {
		config.CheckTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		config:     config,
		checker:    checker,
		logger:     logger,
		detections: make(chan Detection, 4),
		errors:     make(chan error, 8),
	}, nil
}

// StartListening begins queue processing with a fresh queue and no
// cooldown carried over from an earlier session. Calling it while
// already listening logs a warning and changes nothing.
func (s *Session) StartListening() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listening {
		s.logger.Warn("wake-word session already listening")
		return
	}

	s.listening = true
	s.generation++
	s.queue = nil
	s.lastDetection = time.Time{}
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go s.run(s.generation, s.stopCh)

	s.logger.Debug("wake-word session started",
		slog.Float64("confidence_threshold", s.config.ConfidenceThreshold),
		slog.Duration("cooldown", s.config.Cooldown))
}

// StopListening halts processing, drops queued chunks, and arranges for
// the result of an in-flight check to be discarded. The check itself is
// not aborted.
func (s *Session) StopListening() {
	s.mu.Lock()
	if !s.listening {
		s.mu.Unlock()
		return
	}

	s.listening = false
	s.generation++
	s.queue = nil
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Debug("wake-word session stopped")
}

// AddChunk queues a chunk for checking. Chunks arriving during the
// post-detection cooldown are dropped, and queued chunks older than the
// queue window are pruned.
func (s *Session) AddChunk(chunk *audio.Chunk) {
	if chunk == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.listening {
		return
	}

	if !s.lastDetection.IsZero() && time.Since(s.lastDetection) < s.config.Cooldown {
		s.chunksDropped++
		return
	}

	s.queue = append(s.queue, chunk)
	s.chunksQueued++
	s.pruneLocked(time.Now())
}

// Detections returns the detection event channel.
func (s *Session) Detections() <-chan Detection {
	return s.detections
}

// Errors returns the check failure channel.
func (s *Session) Errors() <-chan error {
	return s.errors
}

// IsListening reports whether the session is active.
func (s *Session) IsListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// GetStats returns current session statistics.
func (s *Session) GetStats() SessionStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SessionStats{
		Listening:      s.listening,
		QueueLength:    len(s.queue),
		ChunksQueued:   s.chunksQueued,
		ChunksDropped:  s.chunksDropped,
		ChunksPruned:   s.chunksPruned,
		ChecksTotal:    s.checksTotal,
		ChecksFailed:   s.checksFailed,
		DetectionCount: s.detectionCount,
	}
}

// run is the session processing loop. It owns all remote checks, so at
// most one is ever in flight.
func (s *Session) run(gen uint64, stopCh chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		for {
			chunk := s.nextChunk(gen)
			if chunk == nil {
				break
			}

			s.check(gen, chunk)

			select {
			case <-stopCh:
				return
			case <-time.After(s.config.CheckDelay):
			}
		}
	}
}

// nextChunk pops the oldest queued chunk, or nil when the queue is
// empty, the generation moved on, or the session is cooling down.
func (s *Session) nextChunk(gen uint64) *audio.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.listening || s.generation != gen {
		return nil
	}

	s.pruneLocked(time.Now())

	if len(s.queue) == 0 {
		return nil
	}
	if !s.lastDetection.IsZero() && time.Since(s.lastDetection) < s.config.Cooldown {
		return nil
	}

	chunk := s.queue[0]
	s.queue = s.queue[1:]
	return chunk
}

// check runs one remote wake-phrase check and applies its result unless
// the session moved on while the call was in flight.
func (s *Session) check(gen uint64, chunk *audio.Chunk) {
	// The call gets its own context so a cooperative stop never aborts
	// it mid-request; the stale result is simply discarded below.
	ctx, cancel := context.WithTimeout(context.Background(), s.config.CheckTimeout)
	defer cancel()

	detected, confidence, err := s.checker.CheckWakeWord(ctx, chunk.Data, chunk.SampleRate)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.checksTotal++

	if !s.listening || s.generation != gen {
		s.logger.Debug("discarding stale wake-word check result")
		return
	}

	if err != nil {
		s.checksFailed++
		s.emitError(fmt.Errorf("wake-word check failed: %w", err))
		return
	}

	if !detected || confidence < s.config.ConfidenceThreshold {
		return
	}

	s.detectionCount++
	s.lastDetection = time.Now()
	s.queue = nil

	s.logger.Info("wake phrase detected",
		slog.Float64("confidence", confidence))

	select {
	case s.detections <- Detection{Confidence: confidence, Timestamp: chunk.Timestamp}:
	default:
		s.logger.Warn("wake-word detection dropped, channel full")
	}
}

// pruneLocked drops queued chunks older than the queue window. Callers
// must hold the mutex.
func (s *Session) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.config.QueueWindow)

	keep := 0
	for keep < len(s.queue) && s.queue[keep].Timestamp.Before(cutoff) {
		keep++
	}
	if keep > 0 {
		s.chunksPruned += uint64(keep)
		s.queue = append(s.queue[:0], s.queue[keep:]...)
	}
}

// emitError delivers a check failure without blocking. Callers must
// hold the mutex.
func (s *Session) emitError(err error) {
	select {
	case s.errors <- err:
	default:
		s.logger.Warn("wake-word error dropped, channel full",
			slog.String("error", err.Error()))
	}
}
