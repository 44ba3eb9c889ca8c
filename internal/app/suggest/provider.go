// Package suggest assembles track suggestions from multiple sources.
package suggest

import (
	"context"

	"github.com/mnish/raaga/internal/domain/track"
)

// Provider is the interface for suggestion sources.
// Different implementations can suggest tracks through various strategies
// (e.g., catalog recommendations, the user's own library).
type Provider interface {
	// Suggestions returns up to count tracks related to the seed track.
	// Tracks whose IDs appear in exclude are skipped.
	Suggestions(ctx context.Context, seed track.Track, count int, exclude map[string]bool) ([]track.Track, error)

	// Name returns the provider name.
	Name() string
}

// SuggestionSource defines the catalog operations needed by the catalog provider.
type SuggestionSource interface {
	GetSuggestions(ctx context.Context, id string) ([]track.Track, error)
}
