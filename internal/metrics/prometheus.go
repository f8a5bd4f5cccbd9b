package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the NOVA client
type Metrics struct {
	// Capture metrics
	ChunksCaptured prometheus.Counter
	ChunksDropped  prometheus.Counter
	CaptureErrors  prometheus.Counter
	ChunkLevel     prometheus.Histogram

	// Wake-word metrics
	WakeChecks     prometheus.Counter
	WakeCheckFails prometheus.Counter
	WakeDetections prometheus.Counter
	WakeQueueSize  prometheus.Gauge

	// Recording metrics
	RecordingsStarted  prometheus.Counter
	RecordingDuration  prometheus.Histogram
	RecordingSizeBytes prometheus.Histogram

	// Backend metrics
	BackendRequests *prometheus.CounterVec
	BackendFailures *prometheus.CounterVec
	BackendDuration *prometheus.HistogramVec

	// Conversation metrics
	TurnsCompleted prometheus.Counter
	TurnsFailed    prometheus.Counter
	TurnDuration   prometheus.Histogram

	// State machine metrics
	StateTransitions *prometheus.CounterVec

	// Status server metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		// Capture metrics
		ChunksCaptured: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nova_chunks_captured_total",
			Help: "Total number of audio chunks captured from the microphone",
		}),
		ChunksDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nova_chunks_dropped_total",
			Help: "Total number of audio chunks dropped before processing",
		}),
		CaptureErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nova_capture_errors_total",
			Help: "Total number of microphone read errors",
		}),
		ChunkLevel: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nova_chunk_level",
			Help:    "Audio level of captured chunks on the 0-100 scale",
			Buckets: prometheus.LinearBuckets(0, 10, 11), // 0 to 100
		}),

		// Wake-word metrics
		WakeChecks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nova_wake_checks_total",
			Help: "Total number of remote wake-phrase checks performed",
		}),
		WakeCheckFails: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nova_wake_check_failures_total",
			Help: "Total number of failed wake-phrase checks",
		}),
		WakeDetections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nova_wake_detections_total",
			Help: "Total number of accepted wake-phrase detections",
		}),
		WakeQueueSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "nova_wake_queue_size",
			Help: "Current number of chunks queued for wake-phrase checking",
		}),

		// Recording metrics
		RecordingsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nova_recordings_started_total",
			Help: "Total number of utterance recordings started",
		}),
		RecordingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nova_recording_duration_seconds",
			Help:    "Duration of utterance recordings",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 8), // 0.5s to ~2 minutes
		}),
		RecordingSizeBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nova_recording_size_bytes",
			Help:    "Size of recorded utterances in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 2, 12), // 1KB to ~4MB
		}),

		// Backend metrics
		BackendRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nova_backend_requests_total",
			Help: "Total number of backend API requests",
		}, []string{"endpoint"}),
		BackendFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nova_backend_failures_total",
			Help: "Total number of failed backend API requests",
		}, []string{"endpoint"}),
		BackendDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nova_backend_request_duration_seconds",
			Help:    "Duration of backend API requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}, []string{"endpoint"}),

		// Conversation metrics
		TurnsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nova_turns_completed_total",
			Help: "Total number of completed conversation turns",
		}),
		TurnsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "nova_turns_failed_total",
			Help: "Total number of conversation turns ending in error",
		}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "nova_turn_duration_seconds",
			Help:    "Duration of conversation turns from detection to response",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~8 minutes
		}),

		// State machine metrics
		StateTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nova_state_transitions_total",
			Help: "Total number of application state transitions",
		}, []string{"from", "to"}),

		// Status server metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "nova_http_requests_total",
			Help: "Total number of status server HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nova_http_request_duration_seconds",
			Help:    "Duration of status server HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// RecordChunkCaptured records a captured chunk and its level
func (m *Metrics) RecordChunkCaptured(level float64) {
	m.ChunksCaptured.Inc()
	m.ChunkLevel.Observe(level)
}

// RecordChunkDropped increments the dropped chunk counter
func (m *Metrics) RecordChunkDropped() {
	m.ChunksDropped.Inc()
}

// RecordCaptureError increments the capture error counter
func (m *Metrics) RecordCaptureError() {
	m.CaptureErrors.Inc()
}

// RecordWakeCheck records a wake-phrase check and its outcome
func (m *Metrics) RecordWakeCheck(failed bool) {
	m.WakeChecks.Inc()
	if failed {
		m.WakeCheckFails.Inc()
	}
}

// RecordWakeDetection increments the detection counter
func (m *Metrics) RecordWakeDetection() {
	m.WakeDetections.Inc()
}

// SetWakeQueueSize sets the current wake queue length
func (m *Metrics) SetWakeQueueSize(size int) {
	m.WakeQueueSize.Set(float64(size))
}

// RecordRecordingStarted increments the recordings counter
func (m *Metrics) RecordRecordingStarted() {
	m.RecordingsStarted.Inc()
}

// RecordRecordingFinished records duration and size of a recording
func (m *Metrics) RecordRecordingFinished(durationSeconds float64, sizeBytes int) {
	m.RecordingDuration.Observe(durationSeconds)
	m.RecordingSizeBytes.Observe(float64(sizeBytes))
}

// RecordBackendRequest records a backend call and its outcome
func (m *Metrics) RecordBackendRequest(endpoint string, durationSeconds float64, failed bool) {
	m.BackendRequests.WithLabelValues(endpoint).Inc()
	m.BackendDuration.WithLabelValues(endpoint).Observe(durationSeconds)
	if failed {
		m.BackendFailures.WithLabelValues(endpoint).Inc()
	}
}

// RecordTurnCompleted records a successful conversation turn
func (m *Metrics) RecordTurnCompleted(durationSeconds float64) {
	m.TurnsCompleted.Inc()
	m.TurnDuration.Observe(durationSeconds)
}

// RecordTurnFailed increments the failed turn counter
func (m *Metrics) RecordTurnFailed() {
	m.TurnsFailed.Inc()
}

// RecordStateTransition records a state machine transition
func (m *Metrics) RecordStateTransition(from, to string) {
	m.StateTransitions.WithLabelValues(from, to).Inc()
}

// RecordHTTPRequest records a status server request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}
