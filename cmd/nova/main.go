package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/sync/errgroup"

	"github.com/sayanmdn/project-nova/internal/assistant"
	"github.com/sayanmdn/project-nova/internal/backend"
	"github.com/sayanmdn/project-nova/internal/capture"
	"github.com/sayanmdn/project-nova/internal/config"
	"github.com/sayanmdn/project-nova/internal/discovery"
	"github.com/sayanmdn/project-nova/internal/metrics"
	"github.com/sayanmdn/project-nova/internal/server"
	"github.com/sayanmdn/project-nova/internal/ui"
)

const (
	defaultConfigPath = "configs/config.yaml"
	serviceName       = "nova-client"
	serviceVersion    = "1.0.0"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	baseURL := flag.String("base-url", "", "Backend base URL")
	timeoutMS := flag.Int("timeout", 0, "Backend request timeout in milliseconds")
	sampleRate := flag.Int("sample-rate", 0, "Capture sample rate in Hz")
	chunkDuration := flag.Float64("chunk-duration", 0, "Capture chunk duration in seconds")
	silenceThreshold := flag.Float64("silence-threshold", 0, "Silence threshold in dB (negative)")
	silenceDuration := flag.Float64("silence-duration", 0, "Silence run ending an utterance, in seconds")
	confidenceThreshold := flag.Float64("confidence-threshold", 0, "Minimum wake-phrase confidence")
	cooldownPeriod := flag.Float64("cooldown", 0, "Post-detection cooldown in seconds")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	flag.Parse()

	// Only flags the user actually set become overrides, so a zero value
	// on the command line still wins over the file.
	var overrides config.Overrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "base-url":
			overrides.BaseURL = baseURL
		case "timeout":
			overrides.TimeoutMS = timeoutMS
		case "sample-rate":
			overrides.SampleRate = sampleRate
		case "chunk-duration":
			overrides.ChunkDuration = chunkDuration
		case "silence-threshold":
			overrides.SilenceThreshold = silenceThreshold
		case "silence-duration":
			overrides.SilenceDuration = silenceDuration
		case "confidence-threshold":
			overrides.ConfidenceThreshold = confidenceThreshold
		case "cooldown":
			overrides.CooldownPeriod = cooldownPeriod
		case "log-level":
			overrides.LogLevel = logLevel
		}
	})

	// A missing default config file is fine; an explicit one must exist.
	path := *configPath
	if path == defaultConfigPath {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = ""
		}
	}

	// Load configuration
	cfg, err := config.Load(path, overrides)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger based on configuration
	logger := initLogger(cfg.Logging)

	logger.Info("Client starting",
		slog.String("service", serviceName),
		slog.String("version", serviceVersion),
		slog.String("config_path", *configPath),
	)

	logger.Info("Configuration loaded",
		slog.String("base_url", cfg.Server.BaseURL),
		slog.Int("sample_rate", cfg.Audio.SampleRate),
		slog.Float64("chunk_duration", cfg.Audio.ChunkDuration),
		slog.Float64("silence_threshold", cfg.Audio.SilenceThreshold),
		slog.Float64("confidence_threshold", cfg.WakeWord.ConfidenceThreshold),
		slog.String("log_level", cfg.Logging.Level),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Resolve the backend address via mDNS when requested; a failed
	// lookup falls back to the configured URL.
	if cfg.Server.Discover {
		addr, err := discovery.Discover(ctx, cfg.Server.GetDiscoverTimeout(), logger)
		if err != nil {
			logger.Warn("backend discovery failed, using configured URL",
				slog.String("error", err.Error()),
				slog.String("base_url", cfg.Server.BaseURL))
		} else {
			logger.Info("backend discovered", slog.String("base_url", addr))
			cfg.Server.BaseURL = addr
		}
	}

	// Initialize Prometheus metrics
	appMetrics := metrics.NewMetrics()

	// Initialize backend client
	backendClient, err := backend.NewClient(backend.Config{
		BaseURL:       cfg.Server.BaseURL,
		Timeout:       cfg.Server.GetTimeout(),
		MaxRetries:    cfg.Server.MaxRetries,
		MaxConcurrent: cfg.Server.MaxConcurrent,
	}, logger)
	if err != nil {
		logger.Error("Failed to create backend client", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer backendClient.Close()

	// Wait for the backend to answer before opening the microphone.
	if err := probeBackend(ctx, backendClient, logger); err != nil {
		logger.Error("Backend is not reachable", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize microphone capture
	source, err := capture.NewMicrophone(capture.Config{
		SampleRate:    cfg.Audio.SampleRate,
		ChunkDuration: cfg.Audio.ChunkDuration,
	}, appMetrics, logger)
	if err != nil {
		logger.Error("Failed to create capture source", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize console output
	display := ui.NewConsole(os.Stdout)

	// Initialize the assistant
	app, err := assistant.New(cfg, source, backendClient, display, appMetrics, logger)
	if err != nil {
		logger.Error("Failed to create assistant", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize status API server (if enabled)
	var httpServer *server.HTTPServer
	if cfg.Monitor.Enabled {
		httpServer = server.NewHTTPServer(cfg.Monitor, logger, cfg, app, backendClient, appMetrics)
		if err := httpServer.Start(); err != nil {
			logger.Error("Failed to start status server", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("Client started, say the wake phrase to begin")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := app.Run(groupCtx)
		if err == context.Canceled {
			return nil
		}
		return err
	})

	runErr := group.Wait()

	logger.Info("Starting graceful shutdown...")

	// Stop the status server first (stop accepting new requests)
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := httpServer.Stop(shutdownCtx); err != nil {
			logger.Error("Error stopping status server", slog.String("error", err.Error()))
		}
	}

	// Final statistics
	stats := backendClient.GetStats()
	logger.Info("Final backend statistics",
		slog.Uint64("total_requests", stats.TotalRequests),
		slog.Uint64("failed_requests", stats.FailedRequests),
		slog.Uint64("total_retries", stats.TotalRetries),
	)

	if runErr != nil {
		logger.Error("Client stopped with error", slog.String("error", runErr.Error()))
		os.Exit(1)
	}
	logger.Info("Client stopped")
}

// probeBackend polls the backend health endpoint with exponential
// backoff until it answers or the context ends.
func probeBackend(ctx context.Context, client *backend.Client, logger *slog.Logger) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = 30 * time.Second

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		if err := client.Health(ctx); err != nil {
			logger.Warn("backend health check failed",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			return err
		}
		return nil
	}, backoff.WithContext(policy, ctx))
}

// initLogger creates and configures the structured logger based on configuration
func initLogger(cfg config.LoggingConfig) *slog.Logger {
	// Parse log level
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo // default fallback
	}

	// Configure handler options
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug, // Add source info for debug level
	}

	// Determine output destination
	var output *os.File
	switch cfg.Output {
	case "stderr":
		output = os.Stderr
	case "stdout", "":
		output = os.Stdout
	default:
		// Assume it's a file path
		file, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file %s: %v, falling back to stdout\n", cfg.Output, err)
			output = os.Stdout
		} else {
			output = file
		}
	}

	// Create handler based on format
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	case "text", "":
		handler = slog.NewTextHandler(output, opts)
	default:
		// Default to text format
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler)
}
