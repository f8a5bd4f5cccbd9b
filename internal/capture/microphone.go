package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/sayanmdn/project-nova/internal/audio"
	"github.com/sayanmdn/project-nova/internal/metrics"
)

// Source emits a continuous stream of audio chunks.
type Source interface {
	Start(ctx context.Context) error
	Stop() error
	Chunks() <-chan *audio.Chunk
}

// Config contains microphone capture configuration.
type Config struct {
	SampleRate    int
	ChunkDuration float64 // Seconds of audio per chunk
	QueueSize     int     // Chunk channel capacity
}

// Microphone reads mono PCM-16 audio from the default input device and
// delivers it as fixed-duration chunks. A slow consumer never blocks the
// device read loop; overflow chunks are dropped and counted.
type Microphone struct {
	config  Config
	metrics *metrics.Metrics
	logger  *slog.Logger

	stream *portaudio.Stream
	frames []int16
	chunks chan *audio.Chunk

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Statistics
	chunksProduced uint64
	chunksDropped  uint64
	readErrors     uint64

	mu sync.RWMutex
}

// MicrophoneStats represents capture statistics.
type MicrophoneStats struct {
	ChunksProduced uint64 `json:"chunks_produced"`
	ChunksDropped  uint64 `json:"chunks_dropped"`
	ReadErrors     uint64 `json:"read_errors"`
	QueueLength    int    `json:"queue_length"`
}

// NewMicrophone creates a microphone source. The metrics argument may
// be nil.
func NewMicrophone(config Config, m *metrics.Metrics, logger *slog.Logger) (*Microphone, error) {
	if config.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}
	if config.ChunkDuration <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %g", config.ChunkDuration)
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 16
	}
	if logger == nil {
		logger = slog.Default()
	}

	framesPerChunk := int(float64(config.SampleRate) * config.ChunkDuration)
	if framesPerChunk <= 0 {
		return nil, fmt.Errorf("chunk of %g seconds at %d Hz holds no samples",
			config.ChunkDuration, config.SampleRate)
	}

	return &Microphone{
		config:  config,
		metrics: m,
		logger:  logger,
		frames:  make([]int16, framesPerChunk),
		chunks:  make(chan *audio.Chunk, config.QueueSize),
	}, nil
}

// Start opens the default input device and begins producing chunks.
func (m *Microphone) Start(ctx context.Context) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.config.SampleRate), len(m.frames), m.frames)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	m.stream = stream

	if err := m.stream.Start(); err != nil {
		m.stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	m.ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go m.readLoop()

	m.logger.Info("microphone capture started",
		slog.Int("sample_rate", m.config.SampleRate),
		slog.Int("frames_per_chunk", len(m.frames)))

	return nil
}

// Stop halts capture and releases the device.
func (m *Microphone) Stop() error {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()

	if m.stream != nil {
		if err := m.stream.Stop(); err != nil {
			m.logger.Warn("error stopping input stream", slog.String("error", err.Error()))
		}
		if err := m.stream.Close(); err != nil {
			m.logger.Warn("error closing input stream", slog.String("error", err.Error()))
		}
		m.stream = nil
	}

	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate portaudio: %w", err)
	}

	m.logger.Info("microphone capture stopped")
	return nil
}

// Chunks returns the chunk output channel.
func (m *Microphone) Chunks() <-chan *audio.Chunk {
	return m.chunks
}

// GetStats returns current capture statistics.
func (m *Microphone) GetStats() MicrophoneStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MicrophoneStats{
		ChunksProduced: m.chunksProduced,
		ChunksDropped:  m.chunksDropped,
		ReadErrors:     m.readErrors,
		QueueLength:    len(m.chunks),
	}
}

// readLoop blocks on the device and converts each filled frame buffer
// into a chunk.
func (m *Microphone) readLoop() {
	defer m.wg.Done()

	for {
		if m.ctx.Err() != nil {
			return
		}

		if err := m.stream.Read(); err != nil {
			if m.ctx.Err() != nil {
				return
			}

			m.mu.Lock()
			m.readErrors++
			m.mu.Unlock()

			if m.metrics != nil {
				m.metrics.RecordCaptureError()
			}
			m.logger.Warn("microphone read failed", slog.String("error", err.Error()))
			continue
		}

		data := make([]byte, len(m.frames)*2)
		for i, sample := range m.frames {
			data[i*2] = byte(uint16(sample))
			data[i*2+1] = byte(uint16(sample) >> 8)
		}

		chunk, err := audio.NewChunk(data, time.Now(), m.config.SampleRate)
		if err != nil {
			m.logger.Warn("discarding invalid capture frame", slog.String("error", err.Error()))
			continue
		}

		select {
		case m.chunks <- chunk:
			m.mu.Lock()
			m.chunksProduced++
			m.mu.Unlock()
		default:
			m.mu.Lock()
			m.chunksDropped++
			dropped := m.chunksDropped
			m.mu.Unlock()

			if m.metrics != nil {
				m.metrics.RecordChunkDropped()
			}
			if dropped%10 == 1 {
				m.logger.Warn("chunk queue full, dropping audio",
					slog.Uint64("total_dropped", dropped))
			}
		}
	}
}
