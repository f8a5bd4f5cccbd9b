// Package capture produces timestamped audio chunks from an input
// device. The PortAudio microphone source is the production
// implementation; anything satisfying Source can feed the client.
package capture
