package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete client configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Audio        AudioConfig        `yaml:"audio"`
	WakeWord     WakeWordConfig     `yaml:"wakeword"`
	Conversation ConversationConfig `yaml:"conversation"`
	Monitor      MonitorConfig      `yaml:"monitor"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig contains inference backend connection configuration
type ServerConfig struct {
	BaseURL         string `yaml:"base_url"`
	TimeoutMS       int    `yaml:"timeout"` // milliseconds
	MaxRetries      int    `yaml:"max_retries"`
	MaxConcurrent   int    `yaml:"max_concurrent"`
	Discover        bool   `yaml:"discover"`
	DiscoverTimeout int    `yaml:"discover_timeout"` // seconds
}

// AudioConfig contains capture and analysis parameters
type AudioConfig struct {
	SampleRate           int     `yaml:"sample_rate"`
	Channels             int     `yaml:"channels"`
	BitDepth             int     `yaml:"bit_depth"`
	ChunkDuration        float64 `yaml:"chunk_duration"`         // seconds
	SilenceThreshold     float64 `yaml:"silence_threshold"`      // negative dB-style units
	SilenceDuration      float64 `yaml:"silence_duration"`       // seconds
	MaxRecordingDuration float64 `yaml:"max_recording_duration"` // seconds
	BufferWindow         float64 `yaml:"buffer_window"`          // seconds
}

// WakeWordConfig contains wake-phrase detection parameters
type WakeWordConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	CooldownPeriod      float64 `yaml:"cooldown_period"` // seconds
}

// ConversationConfig contains conversation history parameters
type ConversationConfig struct {
	MaxTurns int `yaml:"max_turns"`
}

// MonitorConfig contains the local status server configuration
type MonitorConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Overrides carries CLI flag values that take precedence over both the
// config file and the built-in defaults. Nil fields leave the loaded
// value untouched.
type Overrides struct {
	BaseURL             *string
	TimeoutMS           *int
	SampleRate          *int
	ChunkDuration       *float64
	SilenceThreshold    *float64
	SilenceDuration     *float64
	ConfidenceThreshold *float64
	CooldownPeriod      *float64
	LogLevel            *string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:         "http://localhost:4000",
			TimeoutMS:       30000,
			MaxRetries:      3,
			MaxConcurrent:   4,
			Discover:        false,
			DiscoverTimeout: 5,
		},
		Audio: AudioConfig{
			SampleRate:           16000,
			Channels:             1,
			BitDepth:             16,
			ChunkDuration:        3.0,
			SilenceThreshold:     -40,
			SilenceDuration:      2.0,
			MaxRecordingDuration: 30.0,
			BufferWindow:         30.0,
		},
		WakeWord: WakeWordConfig{
			ConfidenceThreshold: 0.8,
			CooldownPeriod:      1.0,
		},
		Conversation: ConversationConfig{
			MaxTurns: 8,
		},
		Monitor: MonitorConfig{
			Enabled: false,
			Address: "127.0.0.1",
			Port:    9090,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads the configuration file over the defaults and applies the
// CLI overrides on top, then validates the result. An empty path skips
// the file layer.
func Load(path string, overrides Overrides) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	config.apply(overrides)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// apply copies non-nil override values into the configuration.
func (c *Config) apply(o Overrides) {
	if o.BaseURL != nil {
		c.Server.BaseURL = *o.BaseURL
	}
	if o.TimeoutMS != nil {
		c.Server.TimeoutMS = *o.TimeoutMS
	}
	if o.SampleRate != nil {
		c.Audio.SampleRate = *o.SampleRate
	}
	if o.ChunkDuration != nil {
		c.Audio.ChunkDuration = *o.ChunkDuration
	}
	if o.SilenceThreshold != nil {
		c.Audio.SilenceThreshold = *o.SilenceThreshold
	}
	if o.SilenceDuration != nil {
		c.Audio.SilenceDuration = *o.SilenceDuration
	}
	if o.ConfidenceThreshold != nil {
		c.WakeWord.ConfidenceThreshold = *o.ConfidenceThreshold
	}
	if o.CooldownPeriod != nil {
		c.WakeWord.CooldownPeriod = *o.CooldownPeriod
	}
	if o.LogLevel != nil {
		c.Logging.Level = *o.LogLevel
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.WakeWord.Validate(); err != nil {
		return fmt.Errorf("wakeword config: %w", err)
	}

	if err := c.Conversation.Validate(); err != nil {
		return fmt.Errorf("conversation config: %w", err)
	}

	if err := c.Monitor.Validate(); err != nil {
		return fmt.Errorf("monitor config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates backend connection configuration
func (s *ServerConfig) Validate() error {
	if s.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}

	if s.TimeoutMS < 1 {
		return fmt.Errorf("timeout must be at least 1 millisecond, got %d", s.TimeoutMS)
	}

	if s.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", s.MaxRetries)
	}

	if s.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", s.MaxConcurrent)
	}

	if s.DiscoverTimeout < 1 {
		return fmt.Errorf("discover_timeout must be at least 1 second, got %d", s.DiscoverTimeout)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate < 8000 || a.SampleRate > 48000 {
		return fmt.Errorf("sample_rate must be between 8000 and 48000 Hz, got %d", a.SampleRate)
	}

	if a.Channels != 1 {
		return fmt.Errorf("channels must be 1 (mono), got %d", a.Channels)
	}

	if a.BitDepth != 16 {
		return fmt.Errorf("bit_depth must be 16, got %d", a.BitDepth)
	}

	if a.ChunkDuration <= 0 {
		return fmt.Errorf("chunk_duration must be positive, got %f", a.ChunkDuration)
	}

	if a.SilenceThreshold >= 0 {
		return fmt.Errorf("silence_threshold must be negative, got %f", a.SilenceThreshold)
	}

	if a.SilenceDuration <= 0 {
		return fmt.Errorf("silence_duration must be positive, got %f", a.SilenceDuration)
	}

	if a.MaxRecordingDuration <= a.SilenceDuration {
		return fmt.Errorf("max_recording_duration (%f) must be greater than silence_duration (%f)",
			a.MaxRecordingDuration, a.SilenceDuration)
	}

	if a.BufferWindow <= 0 {
		return fmt.Errorf("buffer_window must be positive, got %f", a.BufferWindow)
	}

	return nil
}

// Validate validates wake-word configuration
func (w *WakeWordConfig) Validate() error {
	if w.ConfidenceThreshold < 0 || w.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be between 0 and 1, got %f", w.ConfidenceThreshold)
	}

	if w.CooldownPeriod < 0 {
		return fmt.Errorf("cooldown_period cannot be negative, got %f", w.CooldownPeriod)
	}

	return nil
}

// Validate validates conversation configuration
func (c *ConversationConfig) Validate() error {
	if c.MaxTurns < 1 {
		return fmt.Errorf("max_turns must be at least 1, got %d", c.MaxTurns)
	}

	return nil
}

// Validate validates status server configuration
func (m *MonitorConfig) Validate() error {
	if m.Enabled {
		if m.Port < 1 || m.Port > 65535 {
			return fmt.Errorf("port must be between 1 and 65535, got %d", m.Port)
		}

		if m.Address == "" {
			return fmt.Errorf("address cannot be empty when the monitor is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetTimeout returns the backend request timeout as a time.Duration
func (s *ServerConfig) GetTimeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// GetDiscoverTimeout returns the mDNS browse timeout as a time.Duration
func (s *ServerConfig) GetDiscoverTimeout() time.Duration {
	return time.Duration(s.DiscoverTimeout) * time.Second
}

// GetChunkDuration returns the capture chunk duration as a time.Duration
func (a *AudioConfig) GetChunkDuration() time.Duration {
	return time.Duration(a.ChunkDuration * float64(time.Second))
}

// GetSilenceDuration returns the endpointing silence run as a time.Duration
func (a *AudioConfig) GetSilenceDuration() time.Duration {
	return time.Duration(a.SilenceDuration * float64(time.Second))
}

// GetMaxRecordingDuration returns the recording ceiling as a time.Duration
func (a *AudioConfig) GetMaxRecordingDuration() time.Duration {
	return time.Duration(a.MaxRecordingDuration * float64(time.Second))
}

// GetBufferWindow returns the rolling buffer window as a time.Duration
func (a *AudioConfig) GetBufferWindow() time.Duration {
	return time.Duration(a.BufferWindow * float64(time.Second))
}

// GetCooldown returns the post-detection cooldown as a time.Duration
func (w *WakeWordConfig) GetCooldown() time.Duration {
	return time.Duration(w.CooldownPeriod * float64(time.Second))
}
