// Package backend implements the HTTP client for the NOVA inference
// backend, covering health checks, wake-phrase recognition, transcription,
// and text processing with retry and bounded concurrency.
package backend
