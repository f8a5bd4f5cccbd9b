package assistant

// State represents the application state.
type State int

const (
	StateIdle State = iota
	StateListening
	StateTriggered
	StateRecording
	StateProcessing
	StateResponding
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateTriggered:
		return "triggered"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateResponding:
		return "responding"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
