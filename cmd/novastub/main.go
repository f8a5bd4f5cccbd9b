// Command novastub is a local stand-in for the NOVA backend. It answers
// the wake-phrase, transcription, and text-processing endpoints with
// canned results so the client can be exercised without real inference
// infrastructure.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sayanmdn/project-nova/internal/audio"
	"github.com/sayanmdn/project-nova/internal/protocol"
)

// Audio louder than this level counts as speech for the fake detector.
const speechLevel = 5.0

func main() {
	addr := flag.String("addr", ":4000", "Listen address")
	transcript := flag.String("transcript", "what time is it", "Transcript returned for every utterance")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc(protocol.PathHealth, healthHandler)
	mux.HandleFunc(protocol.PathRecognise, recogniseHandler)
	mux.HandleFunc(protocol.PathListen, listenHandler(*transcript))
	mux.HandleFunc(protocol.PathProcess, processHandler)

	log.Printf("novastub listening on %s", *addr)
	log.Printf("endpoints: %s %s %s", protocol.PathRecognise, protocol.PathListen, protocol.PathProcess)

	if err := http.ListenAndServe(*addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != protocol.PathHealth {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, protocol.HealthResponse{
		Status:    "ok",
		Timestamp: protocol.Timestamp(time.Now()),
	})
}

// recogniseHandler pretends any sufficiently loud audio contains the
// wake phrase.
func recogniseHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := readAudioRequest(w, r)
	if !ok {
		return
	}

	pcm, header, err := decodePCM(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	level := audio.Level(pcm)
	detected := level >= speechLevel

	confidence := 0.0
	if detected {
		confidence = 0.95
	}

	log.Printf("recognise: %d bytes at %d Hz, level %.1f, detected=%v",
		len(pcm), header.SampleRate, level, detected)

	writeJSON(w, http.StatusOK, protocol.RecogniseResponse{
		Success:    true,
		Detected:   detected,
		Confidence: confidence,
		Timestamp:  protocol.Timestamp(time.Now()),
	})
}

// listenHandler returns the configured transcript for any non-silent
// recording.
func listenHandler(transcript string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := readAudioRequest(w, r)
		if !ok {
			return
		}

		pcm, _, err := decodePCM(req)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		text := transcript
		if audio.Level(pcm) < speechLevel {
			text = ""
		}

		log.Printf("listen: %d bytes, transcript %q", len(pcm), text)

		writeJSON(w, http.StatusOK, protocol.ListenResponse{
			Success:    true,
			Transcript: text,
			Timestamp:  protocol.Timestamp(time.Now()),
		})
	}
}

// processHandler answers a few keywords and echoes everything else.
func processHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req protocol.ProcessRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	response := replyFor(req.Text)
	log.Printf("process: %q -> %q (context %d bytes)", req.Text, response, len(req.Context))

	writeJSON(w, http.StatusOK, protocol.ProcessResponse{
		Success:   true,
		Response:  response,
		Timestamp: protocol.Timestamp(time.Now()),
	})
}

func replyFor(text string) string {
	lower := strings.ToLower(text)

	switch {
	case strings.Contains(lower, "time"):
		return fmt.Sprintf("It is %s.", time.Now().Format("3:04 PM"))
	case strings.Contains(lower, "date"), strings.Contains(lower, "day"):
		return fmt.Sprintf("Today is %s.", time.Now().Format("Monday, January 2"))
	case strings.Contains(lower, "hello"), strings.Contains(lower, "hi"):
		return "Hello! How can I help you?"
	case strings.Contains(lower, "help"):
		return "You can ask me about the time, the date, or just say hello."
	default:
		return fmt.Sprintf("You said: %s", text)
	}
}

// readAudioRequest parses and validates the shared audio envelope.
func readAudioRequest(w http.ResponseWriter, r *http.Request) (*protocol.AudioRequest, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	// The base64 envelope runs about a third larger than the decoded
	// payload the contract allows.
	var req protocol.AudioRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 2*protocol.MaxAudioBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return nil, false
	}
	if err := req.AudioBuffer.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	return &req, true
}

// decodePCM unwraps the base64 payload and strips the WAV header when
// present.
func decodePCM(req *protocol.AudioRequest) ([]byte, *audio.WAVHeader, error) {
	raw, err := req.AudioBuffer.DecodeAudio()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid audio payload: %w", err)
	}

	if req.AudioBuffer.Format == protocol.FormatWAV {
		pcm, header, err := audio.DecodeWAV(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid WAV payload: %w", err)
		}
		return pcm, header, nil
	}

	header := &audio.WAVHeader{
		SampleRate:    uint32(req.AudioBuffer.SampleRate),
		NumChannels:   uint16(req.AudioBuffer.Channels),
		BitsPerSample: uint16(req.AudioBuffer.BitDepth),
	}
	return raw, header, nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
