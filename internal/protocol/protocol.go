package protocol

import (
	"encoding/base64"
	"fmt"
	"time"
)

// API paths exposed by the inference backend.
const (
	PathHealth    = "/"
	PathRecognise = "/api/v1/recognise"
	PathListen    = "/api/v1/listen"
	PathProcess   = "/api/v1/process"
)

// Audio payload constraints from the backend contract.
const (
	FormatWAV = "wav"

	// MaxAudioBytes is the largest decoded audio payload the backend
	// accepts.
	MaxAudioBytes = 25 * 1024 * 1024
)

// AudioBuffer carries base64-encoded audio and its format metadata.
// Layout: {"audio_data": <base64>, "format": "wav", "sample_rate": N,
// "channels": 1, "bit_depth": 16}
type AudioBuffer struct {
	AudioData  string `json:"audio_data"`
	Format     string `json:"format"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
}

// AudioRequest is the request body for the recognise and listen endpoints.
type AudioRequest struct {
	AudioBuffer AudioBuffer `json:"audio_buffer"`
}

// RecogniseResponse is the wake-phrase detection result.
type RecogniseResponse struct {
	Success    bool    `json:"success"`
	Detected   bool    `json:"detected"`
	Confidence float64 `json:"confidence"`
	Timestamp  string  `json:"timestamp"`
}

// ListenResponse is the transcription result.
type ListenResponse struct {
	Success    bool   `json:"success"`
	Transcript string `json:"transcript"`
	Timestamp  string `json:"timestamp"`
}

// ProcessRequest is the request body for the text-processing endpoint.
type ProcessRequest struct {
	Text    string `json:"text"`
	Context string `json:"context,omitempty"`
}

// ProcessResponse is the text-processing result.
type ProcessResponse struct {
	Success   bool   `json:"success"`
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

// HealthResponse is the backend health report.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// NewAudioRequest builds a request envelope around encoded audio bytes.
func NewAudioRequest(audio []byte, format string, sampleRate, channels, bitDepth int) (*AudioRequest, error) {
	if len(audio) == 0 {
		return nil, fmt.Errorf("audio payload must not be empty")
	}
	if len(audio) > MaxAudioBytes {
		return nil, fmt.Errorf("audio payload too large: %d bytes (limit %d)", len(audio), MaxAudioBytes)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	return &AudioRequest{
		AudioBuffer: AudioBuffer{
			AudioData:  base64.StdEncoding.EncodeToString(audio),
			Format:     format,
			SampleRate: sampleRate,
			Channels:   channels,
			BitDepth:   bitDepth,
		},
	}, nil
}

// DecodeAudio decodes the base64 payload back to raw bytes, enforcing
// the size limit after decoding.
func (b *AudioBuffer) DecodeAudio() ([]byte, error) {
	if b.AudioData == "" {
		return nil, fmt.Errorf("audio_data must not be empty")
	}

	audio, err := base64.StdEncoding.DecodeString(b.AudioData)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 audio data: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("decoded audio payload is empty")
	}
	if len(audio) > MaxAudioBytes {
		return nil, fmt.Errorf("audio payload too large: %d bytes (limit %d)", len(audio), MaxAudioBytes)
	}

	return audio, nil
}

// Validate checks the buffer metadata against the backend contract.
func (b *AudioBuffer) Validate() error {
	if b.AudioData == "" {
		return fmt.Errorf("audio_data must not be empty")
	}
	if b.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", b.SampleRate)
	}
	if b.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", b.Channels)
	}
	if b.BitDepth != 8 && b.BitDepth != 16 {
		return fmt.Errorf("unsupported bit_depth: %d", b.BitDepth)
	}
	return nil
}

// Validate checks a process request before it is sent.
func (r *ProcessRequest) Validate() error {
	if r.Text == "" {
		return fmt.Errorf("text must not be empty")
	}
	return nil
}

// Timestamp formats a time the way the backend does, as ISO-8601 UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
