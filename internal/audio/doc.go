// Package audio provides the core audio primitives of the client:
// timestamped PCM chunks, level-based silence analysis, a rolling
// time-windowed buffer, and WAV encoding for backend payloads.
package audio
