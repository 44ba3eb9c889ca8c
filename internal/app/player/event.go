package player

import "github.com/mnish/raaga/internal/domain/track"

// EventType represents a player state event type.
type EventType int

const (
	EventTrackChanged     EventType = iota // Current track replaced (Track may be nil)
	EventPlayStateChanged                  // Playing flag flipped by a user action
	EventQueueEnded                        // Advance hit the end of the queue with repeat off
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackChanged:
		return "track_changed"
	case EventPlayStateChanged:
		return "play_state_changed"
	case EventQueueEnded:
		return "queue_ended"
	default:
		return "unknown"
	}
}

// Event represents a player state change observed by the session controller.
type Event struct {
	Type    EventType
	Track   *track.Track // current track after the change (nil when none)
	Playing bool         // playing flag after the change
}
