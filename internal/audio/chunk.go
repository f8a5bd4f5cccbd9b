package audio

import (
	"fmt"
	"time"
)

// Chunk represents a contiguous block of PCM-16 mono audio captured at a
// known time. Data holds little-endian 16-bit samples.
type Chunk struct {
	Data       []byte
	Timestamp  time.Time
	SampleRate int
}

// NewChunk creates a chunk after validating the payload. The byte length
// must be even since every sample occupies two bytes.
func NewChunk(data []byte, timestamp time.Time, sampleRate int) (*Chunk, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("chunk data must not be empty")
	}
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("chunk data length must be even (got %d bytes)", len(data))
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return &Chunk{
		Data:       data,
		Timestamp:  timestamp,
		SampleRate: sampleRate,
	}, nil
}

// NumSamples returns the number of 16-bit samples in the chunk.
func (c *Chunk) NumSamples() int {
	return len(c.Data) / 2
}

// Duration returns the playback duration of the chunk.
func (c *Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.NumSamples()) * time.Second / time.Duration(c.SampleRate)
}

// Samples decodes the little-endian payload into int16 samples.
func (c *Chunk) Samples() []int16 {
	samples := make([]int16, c.NumSamples())
	for i := range samples {
		samples[i] = int16(c.Data[i*2]) | int16(c.Data[i*2+1])<<8
	}
	return samples
}
