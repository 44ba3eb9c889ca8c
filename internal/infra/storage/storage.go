// Package storage provides a scoped key-value store for JSON blobs.
package storage

import (
	"github.com/cockroachdb/errors"
)

// Well-known storage keys.
const (
	KeyPlayer    = "player-storage"
	KeyFavorites = "favorites-storage"
	KeyPlaylists = "playlists-storage"
	KeySearch    = "search-storage"
	KeyTheme     = "app-theme"
)

// ErrNotFound is returned by Get when no value exists for the key.
var ErrNotFound = errors.New("storage: key not found")

// Store is a durable key to JSON-blob mapping. Implementations must treat
// values as opaque bytes; callers own serialization.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}
