// Package session bridges the player state manager to the audio engine.
package session

// State represents the lifecycle of one loaded media resource.
type State int

const (
	StateIdle    State = iota // Nothing loaded
	StateLoading              // Load in flight
	StateReady                // Resource loaded, transport stopped
	StatePlaying              // Resource playing
	StatePaused               // Resource paused
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}
