// Package recorder captures a single utterance from a stream of audio
// chunks and endpoints it by tracking runs of silence against a level
// threshold, with a hard ceiling on total recording time.
package recorder
