// Package assistant drives the client's top-level behavior: a single
// run loop that moves the application through its listening, recording,
// processing, and responding states, feeding audio to the wake-word and
// recording sessions and conversation turns to the backend.
package assistant
