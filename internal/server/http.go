package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sayanmdn/project-nova/internal/assistant"
	"github.com/sayanmdn/project-nova/internal/backend"
	"github.com/sayanmdn/project-nova/internal/config"
	"github.com/sayanmdn/project-nova/internal/metrics"
)

// HTTPServer provides HTTP API endpoints for monitoring the client
type HTTPServer struct {
	server  *http.Server
	logger  *slog.Logger
	config  *config.Config
	app     *assistant.Assistant
	backend *backend.Client
	metrics *metrics.Metrics

	// Server state
	startTime time.Time
	mu        sync.RWMutex
}

// NewHTTPServer creates a new status API server
func NewHTTPServer(cfg config.MonitorConfig, logger *slog.Logger,
	appConfig *config.Config, app *assistant.Assistant, backendClient *backend.Client, m *metrics.Metrics) *HTTPServer {

	if logger == nil {
		logger = slog.Default()
	}

	h := &HTTPServer{
		logger:    logger,
		config:    appConfig,
		app:       app,
		backend:   backendClient,
		metrics:   m,
		startTime: time.Now(),
	}

	// Create HTTP server with routes
	mux := http.NewServeMux()
	h.setupRoutes(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Health check endpoint
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))

	// Statistics endpoint
	mux.HandleFunc("/stats", h.withMetrics("/stats", h.handleStats))

	// Conversation history endpoint
	mux.HandleFunc("/conversation", h.withMetrics("/conversation", h.handleConversation))

	// Configuration endpoint
	mux.HandleFunc("/config", h.withMetrics("/config", h.handleConfig))

	// Prometheus metrics endpoint (no metrics needed for metrics endpoint)
	mux.Handle("/metrics", promhttp.Handler())

	// Root endpoint with API documentation
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		// Create a response writer wrapper to capture status code
		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		// Call the original handler
		handler(ww, r)

		// Record metrics
		if h.metrics != nil {
			duration := time.Since(startTime).Seconds()
			statusCode := fmt.Sprintf("%d", ww.statusCode)
			h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting status API server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("status server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping status API server...")

	return h.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)
	appStats := h.app.GetStats()
	backendStats := h.backend.GetStats()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    uptime.String(),
		"service": map[string]interface{}{
			"name":    "nova-client",
			"version": "1.0.0",
		},
		"components": map[string]interface{}{
			"assistant": map[string]interface{}{
				"status": "running",
				"state":  appStats.State,
			},
			"wakeword": map[string]interface{}{
				"listening":  appStats.WakeSession.Listening,
				"detections": appStats.WakeSession.DetectionCount,
			},
			"backend": map[string]interface{}{
				"base_url":     backendStats.BaseURL,
				"success_rate": backendStats.SuccessRate,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(h.startTime)

	stats := map[string]interface{}{
		"uptime":    uptime.String(),
		"timestamp": time.Now().UTC(),
		"assistant": h.app.GetStats(),
		"backend":   h.backend.GetStats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// handleConversation implements the /conversation endpoint
func (h *HTTPServer) handleConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	convo := h.app.Conversation()
	response := map[string]interface{}{
		"turns":     convo.Turns(),
		"length":    convo.Len(),
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleConfig implements the /config endpoint
func (h *HTTPServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Return the effective configuration
	sanitizedConfig := map[string]interface{}{
		"server": map[string]interface{}{
			"base_url":       h.config.Server.BaseURL,
			"timeout":        h.config.Server.TimeoutMS,
			"max_retries":    h.config.Server.MaxRetries,
			"max_concurrent": h.config.Server.MaxConcurrent,
			"discover":       h.config.Server.Discover,
		},
		"audio": map[string]interface{}{
			"sample_rate":            h.config.Audio.SampleRate,
			"channels":               h.config.Audio.Channels,
			"bit_depth":              h.config.Audio.BitDepth,
			"chunk_duration":         h.config.Audio.ChunkDuration,
			"silence_threshold":      h.config.Audio.SilenceThreshold,
			"silence_duration":       h.config.Audio.SilenceDuration,
			"max_recording_duration": h.config.Audio.MaxRecordingDuration,
		},
		"wakeword": map[string]interface{}{
			"confidence_threshold": h.config.WakeWord.ConfidenceThreshold,
			"cooldown_period":      h.config.WakeWord.CooldownPeriod,
		},
		"conversation": map[string]interface{}{
			"max_turns": h.config.Conversation.MaxTurns,
		},
		"logging": map[string]interface{}{
			"level":  h.config.Logging.Level,
			"format": h.config.Logging.Format,
			"output": h.config.Logging.Output,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sanitizedConfig)
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	apiDoc := map[string]interface{}{
		"service": "NOVA Voice Assistant Client",
		"version": "1.0.0",
		"endpoints": map[string]interface{}{
			"GET /":             "API documentation",
			"GET /health":       "Client health check",
			"GET /stats":        "Client statistics",
			"GET /conversation": "Recent conversation turns",
			"GET /config":       "Effective configuration",
			"GET /metrics":      "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(apiDoc)
}
