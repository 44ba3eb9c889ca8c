// Package playlist provides the Playlist domain entity.
package playlist

import (
	"time"

	"github.com/google/uuid"

	"github.com/mnish/raaga/internal/domain/track"
)

// Playlist represents a user-created, named track collection.
type Playlist struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Songs     []track.Track `json:"songs"`
	CreatedAt int64         `json:"createdAt"` // unix milliseconds
}

// New creates an empty playlist with a generated ID and creation timestamp.
func New(name string) Playlist {
	return Playlist{
		ID:        uuid.NewString(),
		Name:      name,
		Songs:     []track.Track{},
		CreatedAt: time.Now().UnixMilli(),
	}
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Songs))
	for i, t := range p.Songs {
		ids[i] = t.ID
	}
	return ids
}

// Contains reports whether a track with the given ID is in the playlist.
func (p *Playlist) Contains(trackID string) bool {
	for _, t := range p.Songs {
		if t.ID == trackID {
			return true
		}
	}
	return false
}

// TotalDuration returns the summed duration of all tracks in seconds.
// Tracks with unknown duration contribute 0.
func (p *Playlist) TotalDuration() float64 {
	var total float64
	for _, t := range p.Songs {
		total += t.Duration.Float()
	}
	return total
}
