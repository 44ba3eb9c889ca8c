// Package player provides the playback queue and player state engine.
package player

// RepeatMode represents the queue repeat behavior.
type RepeatMode string

const (
	RepeatNone RepeatMode = "none" // stop at end of queue
	RepeatOne  RepeatMode = "one"  // loop the current track
	RepeatAll  RepeatMode = "all"  // wrap to the start of the queue
)

// IsValid reports whether the mode is one of the known values.
func (m RepeatMode) IsValid() bool {
	switch m {
	case RepeatNone, RepeatOne, RepeatAll:
		return true
	default:
		return false
	}
}
