package session

import "context"

// Handle identifies one loaded resource inside an engine. Opaque to the
// controller; engines return their own concrete type.
type Handle any

// Status is an engine's report about a loaded resource.
type Status struct {
	Loaded    bool
	Playing   bool
	Position  float64 // seconds
	Duration  float64 // seconds, 0 = unknown
	Completed bool
}

// Engine is the external audio playback facility the controller drives.
// Implementations decode and output audio; the controller only issues
// transport commands and folds status reports back into player state.
type Engine interface {
	Load(ctx context.Context, url string) (Handle, error)
	Play(h Handle) error
	Pause(h Handle) error
	Seek(h Handle, seconds float64) error
	Unload(h Handle) error
	Status(h Handle) (Status, error)
}
