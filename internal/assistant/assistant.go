package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sayanmdn/project-nova/internal/audio"
	"github.com/sayanmdn/project-nova/internal/capture"
	"github.com/sayanmdn/project-nova/internal/config"
	"github.com/sayanmdn/project-nova/internal/metrics"
	"github.com/sayanmdn/project-nova/internal/protocol"
	"github.com/sayanmdn/project-nova/internal/recorder"
	"github.com/sayanmdn/project-nova/internal/wakeword"
)

// Backend is the slice of the backend client the assistant needs.
type Backend interface {
	Recognise(ctx context.Context, req *protocol.AudioRequest) (*protocol.RecogniseResponse, error)
	Listen(ctx context.Context, req *protocol.AudioRequest) (*protocol.ListenResponse, error)
	Process(ctx context.Context, req *protocol.ProcessRequest) (*protocol.ProcessResponse, error)
}

// Display receives user-facing output.
type Display interface {
	ShowState(state string)
	ShowWake(confidence float64)
	ShowTranscript(text string)
	ShowResponse(text string)
	ShowError(err error)
}

// Assistant owns the application state machine. All state transitions
// happen on the run loop goroutine; external readers go through
// CurrentState and GetStats.
type Assistant struct {
	config  *config.Config
	source  capture.Source
	backend Backend
	display Display
	metrics *metrics.Metrics
	logger  *slog.Logger

	state        State
	listenBuffer *audio.RollingBuffer
	wake         *wakeword.Session
	recorder     *recorder.Session
	convo        *Conversation
	turnStart    time.Time

	// Delay before returning to listening from responding or error.
	respondingDelay time.Duration
	errorDelay      time.Duration
	resumeC         <-chan time.Time

	startedAt time.Time

	mu sync.RWMutex
}

// Stats represents assistant statistics for monitoring.
type Stats struct {
	State       string                `json:"state"`
	Uptime      time.Duration         `json:"uptime"`
	Turns       int                   `json:"conversation_turns"`
	WakeSession wakeword.SessionStats `json:"wake_session"`
}

// New creates the assistant. The metrics argument may be nil.
func New(cfg *config.Config, source capture.Source, backend Backend, display Display,
	m *metrics.Metrics, logger *slog.Logger) (*Assistant, error) {

	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if source == nil {
		return nil, fmt.Errorf("capture source cannot be nil")
	}
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	if display == nil {
		return nil, fmt.Errorf("display cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &Assistant{
		config:          cfg,
		source:          source,
		backend:         backend,
		display:         display,
		metrics:         m,
		logger:          logger,
		state:           StateIdle,
		listenBuffer:    audio.NewRollingBuffer(cfg.Audio.GetBufferWindow()),
		convo:           NewConversation(cfg.Conversation.MaxTurns),
		respondingDelay: 2 * time.Second,
		errorDelay:      3 * time.Second,
	}

	checker := &remoteChecker{backend: backend, audio: cfg.Audio, metrics: m}
	wake, err := wakeword.NewSession(wakeword.Config{
		ConfidenceThreshold: cfg.WakeWord.ConfidenceThreshold,
		Cooldown:            cfg.WakeWord.GetCooldown(),
		CheckTimeout:        cfg.Server.GetTimeout(),
	}, checker, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create wake-word session: %w", err)
	}
	a.wake = wake

	return a, nil
}

// Run starts capture and drives the state machine until the context is
// cancelled or capture fails.
func (a *Assistant) Run(ctx context.Context) error {
	if err := a.source.Start(ctx); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}
	defer a.source.Stop()

	a.mu.Lock()
	a.startedAt = time.Now()
	a.mu.Unlock()

	a.setState(StateListening)
	a.wake.StartListening()
	defer a.wake.StopListening()

	for {
		select {
		case <-ctx.Done():
			a.stopRecorder()
			a.logger.Info("assistant shutting down")
			return ctx.Err()

		case chunk, ok := <-a.source.Chunks():
			if !ok {
				return fmt.Errorf("capture source closed unexpectedly")
			}
			a.handleChunk(chunk)

		case detection := <-a.wake.Detections():
			a.handleDetection(ctx, detection)

		case err := <-a.wake.Errors():
			a.handleWakeError(err)

		case event := <-a.recorderEvents():
			a.handleRecorderEvent(ctx, event)

		case <-a.resumeC:
			a.resumeListening()
		}
	}
}

// CurrentState returns the state as of the last transition.
func (a *Assistant) CurrentState() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Conversation exposes the turn history.
func (a *Assistant) Conversation() *Conversation {
	return a.convo
}

// GetStats returns current assistant statistics.
func (a *Assistant) GetStats() Stats {
	a.mu.RLock()
	state := a.state
	startedAt := a.startedAt
	a.mu.RUnlock()

	uptime := time.Duration(0)
	if !startedAt.IsZero() {
		uptime = time.Since(startedAt)
	}

	return Stats{
		State:       state.String(),
		Uptime:      uptime,
		Turns:       a.convo.Len(),
		WakeSession: a.wake.GetStats(),
	}
}

// handleChunk routes a capture chunk according to the current state.
func (a *Assistant) handleChunk(chunk *audio.Chunk) {
	if a.metrics != nil {
		a.metrics.RecordChunkCaptured(audio.Level(chunk.Data))
	}

	switch a.CurrentState() {
	case StateListening:
		a.listenBuffer.Append(chunk)
		a.listenBuffer.Trim(time.Now())
		a.wake.AddChunk(chunk)
		if a.metrics != nil {
			a.metrics.SetWakeQueueSize(a.wake.GetStats().QueueLength)
		}

	case StateRecording:
		if err := a.currentRecorder().AddChunk(chunk); err != nil {
			a.logger.Warn("failed to record chunk", slog.String("error", err.Error()))
		}

	default:
		// Chunks outside listening and recording carry no information
		// the pipeline can use; drop them.
		if a.metrics != nil {
			a.metrics.RecordChunkDropped()
		}
	}
}

// handleDetection reacts to a wake-phrase hit.
func (a *Assistant) handleDetection(ctx context.Context, detection wakeword.Detection) {
	if a.CurrentState() != StateListening {
		a.logger.Debug("ignoring stale wake detection",
			slog.String("state", a.CurrentState().String()))
		return
	}

	if a.metrics != nil {
		a.metrics.RecordWakeDetection()
	}
	a.display.ShowWake(detection.Confidence)
	a.setState(StateTriggered)

	a.wake.StopListening()
	a.listenBuffer.Clear()

	session, err := recorder.NewSession(recorder.Config{
		SilenceThreshold: a.config.Audio.SilenceThreshold,
		SilenceDuration:  a.config.Audio.GetSilenceDuration(),
		MaxDuration:      a.config.Audio.GetMaxRecordingDuration(),
	}, a.logger)
	if err != nil {
		a.failTurn(fmt.Errorf("failed to create recording session: %w", err))
		return
	}

	a.mu.Lock()
	a.recorder = session
	a.turnStart = time.Now()
	a.mu.Unlock()

	session.Start()
	if a.metrics != nil {
		a.metrics.RecordRecordingStarted()
	}
	a.setState(StateRecording)
}

// handleWakeError surfaces a failed wake check without leaving the
// listening state; a missed check is not a turn failure.
func (a *Assistant) handleWakeError(err error) {
	a.logger.Warn("wake-word check failed", slog.String("error", err.Error()))
}

// handleRecorderEvent reacts to silence endpointing while recording.
func (a *Assistant) handleRecorderEvent(ctx context.Context, event recorder.Event) {
	if a.CurrentState() != StateRecording {
		a.logger.Debug("ignoring stale recorder event",
			slog.String("kind", event.Kind.String()))
		return
	}

	switch event.Kind {
	case recorder.EventSpeechResumed:
		a.logger.Debug("speech resumed during recording")

	case recorder.EventSilenceElapsed, recorder.EventMaxDurationReached:
		a.logger.Debug("recording complete",
			slog.String("reason", event.Kind.String()))
		a.finishRecording(ctx)
	}
}

// finishRecording stops the recorder and runs the utterance through the
// backend pipeline.
func (a *Assistant) finishRecording(ctx context.Context) {
	session := a.currentRecorder()
	elapsed := session.GetStats().Elapsed
	pcm := session.Stop()

	a.mu.Lock()
	a.recorder = nil
	a.mu.Unlock()

	if a.metrics != nil {
		a.metrics.RecordRecordingFinished(elapsed.Seconds(), len(pcm))
	}

	if len(pcm) == 0 {
		a.failTurn(fmt.Errorf("recording captured no audio"))
		return
	}

	a.setState(StateProcessing)

	if err := a.processUtterance(ctx, pcm); err != nil {
		a.failTurn(err)
		return
	}

	a.setState(StateResponding)
	a.mu.Lock()
	a.resumeC = time.After(a.respondingDelay)
	a.mu.Unlock()
}

// processUtterance transcribes recorded audio and fetches the reply.
func (a *Assistant) processUtterance(ctx context.Context, pcm []byte) error {
	wav, err := audio.EncodeWAV(pcm, a.config.Audio.SampleRate, a.config.Audio.Channels, a.config.Audio.BitDepth)
	if err != nil {
		return fmt.Errorf("failed to encode recording: %w", err)
	}

	req, err := protocol.NewAudioRequest(wav, protocol.FormatWAV,
		a.config.Audio.SampleRate, a.config.Audio.Channels, a.config.Audio.BitDepth)
	if err != nil {
		return fmt.Errorf("failed to build transcription request: %w", err)
	}

	listenStart := time.Now()
	listenResp, err := a.backend.Listen(ctx, req)
	if a.metrics != nil {
		a.metrics.RecordBackendRequest(protocol.PathListen, time.Since(listenStart).Seconds(), err != nil)
	}
	if err != nil {
		return fmt.Errorf("transcription failed: %w", err)
	}
	if !listenResp.Success {
		return fmt.Errorf("backend rejected transcription request")
	}

	transcript := listenResp.Transcript
	if transcript == "" {
		a.logger.Info("backend heard nothing in the recording")
		return fmt.Errorf("empty transcript")
	}

	a.display.ShowTranscript(transcript)

	processStart := time.Now()
	processResp, err := a.backend.Process(ctx, &protocol.ProcessRequest{
		Text:    transcript,
		Context: a.convo.Context(),
	})
	if a.metrics != nil {
		a.metrics.RecordBackendRequest(protocol.PathProcess, time.Since(processStart).Seconds(), err != nil)
	}
	if err != nil {
		return fmt.Errorf("text processing failed: %w", err)
	}
	if !processResp.Success {
		return fmt.Errorf("backend rejected process request")
	}

	a.convo.Append(transcript, processResp.Response)
	a.display.ShowResponse(processResp.Response)

	if a.metrics != nil {
		a.mu.RLock()
		turnStart := a.turnStart
		a.mu.RUnlock()
		a.metrics.RecordTurnCompleted(time.Since(turnStart).Seconds())
	}

	return nil
}

// failTurn moves to the error state and schedules recovery.
func (a *Assistant) failTurn(err error) {
	a.logger.Error("conversation turn failed", slog.String("error", err.Error()))
	a.display.ShowError(err)

	if a.metrics != nil {
		a.metrics.RecordTurnFailed()
	}

	a.stopRecorder()
	a.setState(StateError)

	a.mu.Lock()
	a.resumeC = time.After(a.errorDelay)
	a.mu.Unlock()
}

// resumeListening returns to the listening state after a turn ends.
func (a *Assistant) resumeListening() {
	a.mu.Lock()
	a.resumeC = nil
	a.mu.Unlock()

	a.stopRecorder()
	a.listenBuffer.Clear()
	a.setState(StateListening)
	a.wake.StartListening()
}

// recorderEvents returns the active recorder's event channel, or nil so
// the select arm stays dormant between recordings.
func (a *Assistant) recorderEvents() <-chan recorder.Event {
	session := a.currentRecorder()
	if session == nil {
		return nil
	}
	return session.Events()
}

func (a *Assistant) currentRecorder() *recorder.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.recorder
}

func (a *Assistant) stopRecorder() {
	a.mu.Lock()
	session := a.recorder
	a.recorder = nil
	a.mu.Unlock()

	if session != nil {
		session.Stop()
	}
}

// setState transitions the state machine and reports it.
func (a *Assistant) setState(to State) {
	a.mu.Lock()
	from := a.state
	a.state = to
	a.mu.Unlock()

	if from == to {
		return
	}

	if a.metrics != nil {
		a.metrics.RecordStateTransition(from.String(), to.String())
	}
	a.display.ShowState(to.String())
	a.logger.Info("state transition",
		slog.String("from", from.String()),
		slog.String("to", to.String()))
}

// remoteChecker adapts the backend's recognise endpoint to the
// wake-word session's checker interface.
type remoteChecker struct {
	backend Backend
	audio   config.AudioConfig
	metrics *metrics.Metrics
}

func (c *remoteChecker) CheckWakeWord(ctx context.Context, pcm []byte, sampleRate int) (bool, float64, error) {
	wav, err := audio.EncodeWAV(pcm, sampleRate, c.audio.Channels, c.audio.BitDepth)
	if err != nil {
		return false, 0, fmt.Errorf("failed to encode wake-check audio: %w", err)
	}

	req, err := protocol.NewAudioRequest(wav, protocol.FormatWAV, sampleRate, c.audio.Channels, c.audio.BitDepth)
	if err != nil {
		return false, 0, fmt.Errorf("failed to build wake-check request: %w", err)
	}

	start := time.Now()
	resp, err := c.backend.Recognise(ctx, req)
	if c.metrics != nil {
		c.metrics.RecordWakeCheck(err != nil)
		c.metrics.RecordBackendRequest(protocol.PathRecognise, time.Since(start).Seconds(), err != nil)
	}
	if err != nil {
		return false, 0, err
	}
	if !resp.Success {
		return false, 0, fmt.Errorf("backend rejected wake-check request")
	}

	return resp.Detected, resp.Confidence, nil
}
