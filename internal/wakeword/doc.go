// Package wakeword runs wake-phrase detection over a queue of audio
// chunks, delegating the actual recognition to a remote checker while
// enforcing ordering, cooldown, and single-in-flight guarantees locally.
package wakeword
