package suggest

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/mnish/raaga/internal/domain/track"
)

// CatalogProvider suggests tracks using the catalog's recommendation endpoint.
type CatalogProvider struct {
	source SuggestionSource
}

// NewCatalogProvider creates a catalog-backed suggestion provider.
func NewCatalogProvider(source SuggestionSource) *CatalogProvider {
	return &CatalogProvider{source: source}
}

// Suggestions fetches recommendations for the seed track and filters out
// excluded IDs and the seed itself.
func (p *CatalogProvider) Suggestions(ctx context.Context, seed track.Track, count int, exclude map[string]bool) ([]track.Track, error) {
	if count <= 0 {
		return nil, nil
	}

	candidates, err := p.source.GetSuggestions(ctx, seed.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch catalog suggestions")
	}

	out := make([]track.Track, 0, count)
	for _, t := range candidates {
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
func (p *CatalogProvider) Name() string {
	return "catalog"
}
