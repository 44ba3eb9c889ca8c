package suggest

import (
	"context"
	"math/rand"

	"github.com/mnish/raaga/internal/app/favorites"
	"github.com/mnish/raaga/internal/domain/track"
)

// FavoritesProvider suggests random tracks from the user's favorites.
// It serves as a fallback when catalog recommendations are unavailable.
type FavoritesProvider struct {
	favs *favorites.Set

	// perm is swappable in tests for deterministic draws.
	perm func(n int) []int
}

// NewFavoritesProvider creates a favorites-backed suggestion provider.
func NewFavoritesProvider(favs *favorites.Set) *FavoritesProvider {
	return &FavoritesProvider{favs: favs, perm: rand.Perm}
}

// Suggestions draws random favorites, skipping the seed and excluded IDs.
func (p *FavoritesProvider) Suggestions(_ context.Context, seed track.Track, count int, exclude map[string]bool) ([]track.Track, error) {
	if count <= 0 {
		return nil, nil
	}

	all := p.favs.All()
	out := make([]track.Track, 0, count)
	for _, i := range p.perm(len(all)) {
		t := all[i]
		if t.ID == seed.ID || exclude[t.ID] {
			continue
		}
		out = append(out, t)
		if len(out) == count {
			break
		}
	}
	return out, nil
}

// Name returns the provider name.
func (p *FavoritesProvider) Name() string {
	return "favorites"
}
