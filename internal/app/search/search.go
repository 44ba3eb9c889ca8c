// Package search keeps the recent search term history.
package search

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/mnish/raaga/internal/infra/storage"
)

// MaxRecent is the number of recent search terms kept.
const MaxRecent = 10

// History holds recent search terms, most recent first, de-duplicated
// case-insensitively.
type History struct {
	mu     sync.RWMutex
	recent []string
	store  storage.Store
}

// NewHistory creates a search history backed by the given store.
func NewHistory(store storage.Store) *History {
	return &History{
		recent: make([]string, 0, MaxRecent),
		store:  store,
	}
}

// Add records a search term. Blank terms are ignored; an existing term
// (compared case-insensitively) moves to the front keeping its new casing.
func (h *History) Add(query string) {
	query = strings.TrimSpace(query)
	if query == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	lower := strings.ToLower(query)
	filtered := make([]string, 0, len(h.recent)+1)
	filtered = append(filtered, query)
	for _, s := range h.recent {
		if strings.ToLower(s) != lower {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) > MaxRecent {
		filtered = filtered[:MaxRecent]
	}
	h.recent = filtered

	h.saveLocked()
}

// Recent returns a copy of the recent terms, most recent first.
func (h *History) Recent() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]string, len(h.recent))
	copy(out, h.recent)
	return out
}

// Clear drops the history and removes it from storage.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.recent = h.recent[:0]
	if err := h.store.Delete(storage.KeySearch); err != nil {
		zlog.Warn().Err(err).Msg("search: failed to clear history")
	}
}

// Load restores the history from storage. Failures are logged and leave
// the history empty.
func (h *History) Load() {
	data, err := h.store.Get(storage.KeySearch)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			zlog.Warn().Err(err).Msg("search: failed to load history")
		}
		return
	}

	var recent []string
	if err := json.Unmarshal(data, &recent); err != nil {
		zlog.Warn().Err(err).Msg("search: discarding corrupt history")
		return
	}
	if len(recent) > MaxRecent {
		recent = recent[:MaxRecent]
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.recent = recent
}

// saveLocked persists the history. Must be called with the lock held.
// Failures are logged, never surfaced.
func (h *History) saveLocked() {
	data, err := json.Marshal(h.recent)
	if err != nil {
		zlog.Warn().Err(err).Msg("search: failed to marshal history")
		return
	}
	if err := h.store.Set(storage.KeySearch, data); err != nil {
		zlog.Warn().Err(err).Msg("search: failed to persist history")
	}
}
