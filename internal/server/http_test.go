package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sayanmdn/project-nova/internal/assistant"
	"github.com/sayanmdn/project-nova/internal/audio"
	"github.com/sayanmdn/project-nova/internal/backend"
	"github.com/sayanmdn/project-nova/internal/config"
	"github.com/sayanmdn/project-nova/internal/protocol"
)

type nullSource struct {
	ch chan *audio.Chunk
}

func (s *nullSource) Start(ctx context.Context) error { return nil }
func (s *nullSource) Stop() error                     { return nil }
func (s *nullSource) Chunks() <-chan *audio.Chunk     { return s.ch }

type nullBackend struct{}

func (nullBackend) Recognise(ctx context.Context, req *protocol.AudioRequest) (*protocol.RecogniseResponse, error) {
	return &protocol.RecogniseResponse{Success: true}, nil
}

func (nullBackend) Listen(ctx context.Context, req *protocol.AudioRequest) (*protocol.ListenResponse, error) {
	return &protocol.ListenResponse{Success: true}, nil
}

func (nullBackend) Process(ctx context.Context, req *protocol.ProcessRequest) (*protocol.ProcessResponse, error) {
	return &protocol.ProcessResponse{Success: true}, nil
}

type nullDisplay struct{}

func (nullDisplay) ShowState(string)      {}
func (nullDisplay) ShowWake(float64)      {}
func (nullDisplay) ShowTranscript(string) {}
func (nullDisplay) ShowResponse(string)   {}
func (nullDisplay) ShowError(error)       {}

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()

	cfg := config.Default()

	app, err := assistant.New(cfg, &nullSource{ch: make(chan *audio.Chunk)}, nullBackend{}, nullDisplay{}, nil, nil)
	if err != nil {
		t.Fatalf("failed to create assistant: %v", err)
	}

	client, err := backend.NewClient(backend.Config{
		BaseURL: cfg.Server.BaseURL,
		Timeout: cfg.Server.GetTimeout(),
	}, nil)
	if err != nil {
		t.Fatalf("failed to create backend client: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	monitorCfg := config.MonitorConfig{Enabled: true, Address: "127.0.0.1", Port: 9090}
	return NewHTTPServer(monitorCfg, nil, cfg, app, client, nil)
}

func get(t *testing.T, h *HTTPServer, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec := get(t, h, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %v, want healthy", body["status"])
	}
	if _, ok := body["components"]; !ok {
		t.Error("response missing components section")
	}
}

func TestStatsEndpoint(t *testing.T) {
	h := newTestServer(t)

	rec := get(t, h, "/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	for _, key := range []string{"assistant", "backend", "uptime"} {
		if _, ok := body[key]; !ok {
			t.Errorf("response missing %q section", key)
		}
	}
}

func TestConfigEndpointOmitsNothingSensitive(t *testing.T) {
	h := newTestServer(t)

	rec := get(t, h, "/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body["server"]["base_url"] != "http://localhost:4000" {
		t.Errorf("base_url = %v", body["server"]["base_url"])
	}
	if body["audio"]["sample_rate"] != float64(16000) {
		t.Errorf("sample_rate = %v", body["audio"]["sample_rate"])
	}
}

func TestConversationEndpoint(t *testing.T) {
	h := newTestServer(t)
	h.app.Conversation().Append("hello", "hi there")

	rec := get(t, h, "/conversation")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Turns  []assistant.Turn `json:"turns"`
		Length int              `json:"length"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if body.Length != 1 || len(body.Turns) != 1 {
		t.Fatalf("length = %d, turns = %d, want 1 each", body.Length, len(body.Turns))
	}
	if body.Turns[0].UserText != "hello" {
		t.Errorf("user_text = %q, want hello", body.Turns[0].UserText)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/health", nil)
	rec := httptest.NewRecorder()
	h.server.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestRootDocumentsEndpoints(t *testing.T) {
	h := newTestServer(t)

	rec := get(t, h, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	endpoints, ok := body["endpoints"].(map[string]interface{})
	if !ok {
		t.Fatal("response missing endpoints section")
	}
	if _, ok := endpoints["GET /metrics"]; !ok {
		t.Error("metrics endpoint not documented")
	}
}
