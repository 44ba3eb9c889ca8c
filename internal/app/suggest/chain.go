package suggest

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/mnish/raaga/internal/domain/track"
)

// Chain tries multiple providers in order until enough suggestions are found.
type Chain struct {
	providers []Provider
}

// NewChain creates a provider chain. Providers are consulted in the given order.
func NewChain(providers ...Provider) *Chain {
	return &Chain{providers: providers}
}

// Suggestions accumulates suggestions across providers until count is reached.
// A failing provider is logged and skipped. Duplicates across providers are
// dropped, as is the seed track itself.
func (c *Chain) Suggestions(ctx context.Context, seed track.Track, count int, exclude map[string]bool) ([]track.Track, error) {
	seen := map[string]bool{seed.ID: true}
	for id := range exclude {
		seen[id] = true
	}

	var out []track.Track
	for _, p := range c.providers {
		if len(out) >= count {
			break
		}

		candidates, err := p.Suggestions(ctx, seed, count-len(out), seen)
		if err != nil {
			zlog.Warn().Msgf("suggestion provider failed, trying next: provider=%s error=%v", p.Name(), err)
			continue
		}
		if len(candidates) == 0 {
			zlog.Debug().Msgf("suggestion provider returned nothing: provider=%s", p.Name())
			continue
		}

		for _, t := range candidates {
			if seen[t.ID] {
				continue
			}
			seen[t.ID] = true
			out = append(out, t)
			if len(out) == count {
				break
			}
		}
		zlog.Debug().Msgf("suggestion provider contributed: provider=%s total=%d", p.Name(), len(out))
	}

	if len(out) == 0 {
		return nil, errors.New("no suggestions available")
	}
	return out, nil
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return "chain"
}
