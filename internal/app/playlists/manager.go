// Package playlists manages the user's named playlists.
package playlists

import (
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/mnish/raaga/internal/domain/playlist"
	"github.com/mnish/raaga/internal/domain/track"
	"github.com/mnish/raaga/internal/infra/storage"
)

// Manager holds the playlist collection with thread-safe access.
type Manager struct {
	mu    sync.RWMutex
	lists []playlist.Playlist
	store storage.Store
}

// NewManager creates a playlist manager backed by the given store.
func NewManager(store storage.Store) *Manager {
	return &Manager{
		lists: make([]playlist.Playlist, 0),
		store: store,
	}
}

// Create adds a new empty playlist and returns its generated ID.
func (m *Manager) Create(name string) string {
	p := playlist.New(name)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lists = append(m.lists, p)
	m.saveLocked()
	return p.ID
}

// Remove deletes the playlist with the given ID, if present.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, p := range m.lists {
		if p.ID == id {
			m.lists = append(m.lists[:i], m.lists[i+1:]...)
			m.saveLocked()
			return
		}
	}
}

// AddSong appends a track to a playlist unless it is already there.
func (m *Manager) AddSong(playlistID string, t track.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.lists {
		if m.lists[i].ID != playlistID {
			continue
		}
		if m.lists[i].Contains(t.ID) {
			return
		}
		m.lists[i].Songs = append(m.lists[i].Songs, t)
		m.saveLocked()
		return
	}
}

// RemoveSong drops a track from a playlist.
func (m *Manager) RemoveSong(playlistID, trackID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.lists {
		if m.lists[i].ID != playlistID {
			continue
		}
		for j, s := range m.lists[i].Songs {
			if s.ID == trackID {
				m.lists[i].Songs = append(m.lists[i].Songs[:j], m.lists[i].Songs[j+1:]...)
				m.saveLocked()
				return
			}
		}
		return
	}
}

// Get returns a copy of the playlist with the given ID.
func (m *Manager) Get(id string) (playlist.Playlist, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.lists {
		if p.ID == id {
			return copyPlaylist(p), true
		}
	}
	return playlist.Playlist{}, false
}

// All returns copies of all playlists in creation order.
func (m *Manager) All() []playlist.Playlist {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]playlist.Playlist, len(m.lists))
	for i, p := range m.lists {
		out[i] = copyPlaylist(p)
	}
	return out
}

// Load restores playlists from storage.
func (m *Manager) Load() {
	data, err := m.store.Get(storage.KeyPlaylists)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			zlog.Warn().Err(err).Msg("playlists: failed to load")
		}
		return
	}

	var lists []playlist.Playlist
	if err := json.Unmarshal(data, &lists); err != nil {
		zlog.Warn().Err(err).Msg("playlists: discarding corrupt data")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists = lists
}

// saveLocked persists the collection. Must be called with the lock held.
func (m *Manager) saveLocked() {
	data, err := json.Marshal(m.lists)
	if err != nil {
		zlog.Warn().Err(err).Msg("playlists: failed to marshal")
		return
	}
	if err := m.store.Set(storage.KeyPlaylists, data); err != nil {
		zlog.Warn().Err(err).Msg("playlists: failed to persist")
	}
}

func copyPlaylist(p playlist.Playlist) playlist.Playlist {
	out := p
	out.Songs = make([]track.Track, len(p.Songs))
	copy(out.Songs, p.Songs)
	return out
}
