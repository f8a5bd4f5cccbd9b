// Package server exposes the client's local status HTTP API: health,
// statistics, sanitized configuration, conversation history, and
// Prometheus metrics.
package server
