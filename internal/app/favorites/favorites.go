// Package favorites keeps the user's favorite tracks.
package favorites

import (
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/mnish/raaga/internal/domain/track"
	"github.com/mnish/raaga/internal/infra/storage"
)

// Set is the ordered set of favorite tracks, unique by track ID.
type Set struct {
	mu    sync.RWMutex
	songs []track.Track
	store storage.Store
}

// NewSet creates a favorites set backed by the given store.
func NewSet(store storage.Store) *Set {
	return &Set{
		songs: make([]track.Track, 0),
		store: store,
	}
}

// Add appends a track unless it is already a favorite.
func (s *Set) Add(t track.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.songs {
		if existing.ID == t.ID {
			return
		}
	}
	s.songs = append(s.songs, t)
	s.saveLocked()
}

// Remove drops the track with the given ID, if present.
func (s *Set) Remove(trackID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.songs {
		if existing.ID == trackID {
			s.songs = append(s.songs[:i], s.songs[i+1:]...)
			s.saveLocked()
			return
		}
	}
}

// Contains reports whether the track is a favorite.
func (s *Set) Contains(trackID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, existing := range s.songs {
		if existing.ID == trackID {
			return true
		}
	}
	return false
}

// All returns a copy of the favorites in insertion order.
func (s *Set) All() []track.Track {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]track.Track, len(s.songs))
	copy(out, s.songs)
	return out
}

// Len returns the number of favorites.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.songs)
}

// Load restores favorites from storage.
func (s *Set) Load() {
	data, err := s.store.Get(storage.KeyFavorites)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			zlog.Warn().Err(err).Msg("favorites: failed to load")
		}
		return
	}

	var songs []track.Track
	if err := json.Unmarshal(data, &songs); err != nil {
		zlog.Warn().Err(err).Msg("favorites: discarding corrupt data")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.songs = songs
}

// saveLocked persists the set. Must be called with the lock held.
func (s *Set) saveLocked() {
	data, err := json.Marshal(s.songs)
	if err != nil {
		zlog.Warn().Err(err).Msg("favorites: failed to marshal")
		return
	}
	if err := s.store.Set(storage.KeyFavorites, data); err != nil {
		zlog.Warn().Err(err).Msg("favorites: failed to persist")
	}
}
