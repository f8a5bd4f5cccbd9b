package audio

import (
	"fmt"
	"sync"
	"time"
)

// Analyzer classifies audio chunks as silent or voiced based on their
// average level. The threshold is expressed in negative dB-style units
// (e.g. -40); only its magnitude participates in the comparison, so a
// chunk is silent when its level falls below |threshold|.
type Analyzer struct {
	threshold float64

	// Statistics
	totalChunks  uint64
	silentChunks uint64
	lastLevel    float64
	lastAnalyzed time.Time

	mu sync.RWMutex
}

// LevelResult represents the outcome of analyzing a single chunk.
type LevelResult struct {
	Level     float64   `json:"level"`
	Silent    bool      `json:"silent"`
	Timestamp time.Time `json:"timestamp"`
}

// AnalyzerStats represents analyzer statistics for monitoring.
type AnalyzerStats struct {
	Threshold         float64   `json:"threshold"`
	TotalChunks       uint64    `json:"total_chunks"`
	SilentChunks      uint64    `json:"silent_chunks"`
	SilentPercentage  float64   `json:"silent_percentage"`
	LastLevel         float64   `json:"last_level"`
	LastAnalyzed      time.Time `json:"last_analyzed"`
}

// NewAnalyzer creates a level analyzer. The threshold must be negative,
// matching the convention of silence thresholds such as -40.
func NewAnalyzer(threshold float64) (*Analyzer, error) {
	if threshold >= 0 {
		return nil, fmt.Errorf("silence threshold must be negative, got %g", threshold)
	}

	return &Analyzer{threshold: threshold}, nil
}

// Level computes the loudness of raw PCM-16 data on a 0-100 scale: the
// mean absolute sample magnitude divided by 32768, times 100, clamped
// to 100. Empty input yields 0.
func Level(data []byte) float64 {
	numSamples := len(data) / 2
	if numSamples == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < numSamples; i++ {
		sample := int16(data[i*2]) | int16(data[i*2+1])<<8
		mag := float64(sample)
		if mag < 0 {
			mag = -mag
		}
		sum += mag
	}

	level := sum / float64(numSamples) / 32768 * 100
	if level > 100 {
		level = 100
	}
	return level
}

// Analyze computes the chunk level and classifies it against the
// configured threshold.
func (a *Analyzer) Analyze(chunk *Chunk) *LevelResult {
	level := Level(chunk.Data)
	silent := a.IsSilent(level)

	a.mu.Lock()
	a.totalChunks++
	if silent {
		a.silentChunks++
	}
	a.lastLevel = level
	a.lastAnalyzed = time.Now()
	a.mu.Unlock()

	return &LevelResult{
		Level:     level,
		Silent:    silent,
		Timestamp: chunk.Timestamp,
	}
}

// IsSilent reports whether a level is below the threshold magnitude.
func (a *Analyzer) IsSilent(level float64) bool {
	a.mu.RLock()
	threshold := a.threshold
	a.mu.RUnlock()

	magnitude := threshold
	if magnitude < 0 {
		magnitude = -magnitude
	}
	return level < magnitude
}

// UpdateThreshold replaces the silence threshold.
func (a *Analyzer) UpdateThreshold(threshold float64) error {
	if threshold >= 0 {
		return fmt.Errorf("silence threshold must be negative, got %g", threshold)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.threshold = threshold
	return nil
}

// GetThreshold returns the current silence threshold.
func (a *Analyzer) GetThreshold() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.threshold
}

// GetStats returns current analyzer statistics.
func (a *Analyzer) GetStats() AnalyzerStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	silentPercentage := float64(0)
	if a.totalChunks > 0 {
		silentPercentage = float64(a.silentChunks) / float64(a.totalChunks) * 100
	}

	return AnalyzerStats{
		Threshold:        a.threshold,
		TotalChunks:      a.totalChunks,
		SilentChunks:     a.silentChunks,
		SilentPercentage: silentPercentage,
		LastLevel:        a.lastLevel,
		LastAnalyzed:     a.lastAnalyzed,
	}
}

// Reset clears the analyzer statistics.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalChunks = 0
	a.silentChunks = 0
	a.lastLevel = 0
	a.lastAnalyzed = time.Time{}
}
