// Package theme keeps the app theme preference.
package theme

import (
	"encoding/json"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/mnish/raaga/internal/infra/storage"
)

// Mode is the visual theme.
type Mode string

const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

// Preference holds the persisted theme choice. Default is light.
type Preference struct {
	mu    sync.RWMutex
	mode  Mode
	store storage.Store
}

// NewPreference creates a theme preference backed by the given store.
func NewPreference(store storage.Store) *Preference {
	return &Preference{mode: Light, store: store}
}

// Mode returns the current theme.
func (p *Preference) Mode() Mode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mode
}

// Set selects a theme. Unknown values are ignored.
func (p *Preference) Set(mode Mode) {
	if mode != Light && mode != Dark {
		zlog.Warn().Str("mode", string(mode)).Msg("theme: ignoring unknown mode")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
	p.saveLocked()
}

// Toggle flips between light and dark.
func (p *Preference) Toggle() Mode {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.mode == Dark {
		p.mode = Light
	} else {
		p.mode = Dark
	}
	p.saveLocked()
	return p.mode
}

// Load restores the preference from storage.
func (p *Preference) Load() {
	data, err := p.store.Get(storage.KeyTheme)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			zlog.Warn().Err(err).Msg("theme: failed to load")
		}
		return
	}

	var mode Mode
	if err := json.Unmarshal(data, &mode); err != nil || (mode != Light && mode != Dark) {
		zlog.Warn().Msg("theme: discarding corrupt preference")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
}

// saveLocked persists the preference. Must be called with the lock held.
func (p *Preference) saveLocked() {
	data, err := json.Marshal(p.mode)
	if err != nil {
		return
	}
	if err := p.store.Set(storage.KeyTheme, data); err != nil {
		zlog.Warn().Err(err).Msg("theme: failed to persist")
	}
}
