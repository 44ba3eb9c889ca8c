package suggest

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnish/raaga/internal/app/favorites"
	"github.com/mnish/raaga/internal/domain/track"
	"github.com/mnish/raaga/internal/infra/storage"
)

type stubProvider struct {
	name   string
	tracks []track.Track
	err    error
}

func (p *stubProvider) Suggestions(_ context.Context, seed track.Track, count int, exclude map[string]bool) ([]track.Track, error) {
	if p.err != nil {
		return nil, p.err
	}
	var out []track.Track
	for _, t := range p.tracks {
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

func (p *stubProvider) Name() string { return p.name }

func tr(id string) track.Track {
	return track.Track{ID: id, Name: "track-" + id}
}

func ids(tracks []track.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

func TestChain_StopsWhenCountReached(t *testing.T) {
	first := &stubProvider{name: "first", tracks: []track.Track{tr("a"), tr("b"), tr("c")}}
	second := &stubProvider{name: "second", tracks: []track.Track{tr("d")}}
	chain := NewChain(first, second)

	got, err := chain.Suggestions(context.Background(), tr("seed"), 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(got))
}

func TestChain_FallsThroughOnFailure(t *testing.T) {
	broken := &stubProvider{name: "broken", err: errors.New("upstream down")}
	fallback := &stubProvider{name: "fallback", tracks: []track.Track{tr("x"), tr("y")}}
	chain := NewChain(broken, fallback)

	got, err := chain.Suggestions(context.Background(), tr("seed"), 5, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, ids(got))
}

func TestChain_DeduplicatesAcrossProviders(t *testing.T) {
	first := &stubProvider{name: "first", tracks: []track.Track{tr("a"), tr("b")}}
	second := &stubProvider{name: "second", tracks: []track.Track{tr("b"), tr("c")}}
	chain := NewChain(first, second)

	got, err := chain.Suggestions(context.Background(), tr("seed"), 5, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
}

func TestChain_SkipsSeedAndExcluded(t *testing.T) {
	p := &stubProvider{name: "p", tracks: []track.Track{tr("seed"), tr("a"), tr("b")}}
	chain := NewChain(p)

	got, err := chain.Suggestions(context.Background(), tr("seed"), 5, map[string]bool{"a": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(got))
}

func TestChain_ErrorsWhenAllProvidersFail(t *testing.T) {
	chain := NewChain(
		&stubProvider{name: "one", err: errors.New("down")},
		&stubProvider{name: "two", tracks: nil},
	)

	_, err := chain.Suggestions(context.Background(), tr("seed"), 3, nil)
	require.Error(t, err)
}

type stubSource struct {
	tracks []track.Track
	err    error
}

func (s *stubSource) GetSuggestions(context.Context, string) ([]track.Track, error) {
	return s.tracks, s.err
}

func TestCatalogProvider(t *testing.T) {
	src := &stubSource{tracks: []track.Track{tr("seed"), tr("a"), tr("b"), tr("c")}}
	p := NewCatalogProvider(src)

	got, err := p.Suggestions(context.Background(), tr("seed"), 2, map[string]bool{"a": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(got))
}

func TestCatalogProvider_SourceError(t *testing.T) {
	p := NewCatalogProvider(&stubSource{err: errors.New("boom")})

	_, err := p.Suggestions(context.Background(), tr("seed"), 2, nil)
	require.Error(t, err)
}

func TestFavoritesProvider(t *testing.T) {
	favs := favorites.NewSet(storage.NewMemStore())
	favs.Add(tr("a"))
	favs.Add(tr("b"))
	favs.Add(tr("seed"))
	favs.Add(tr("c"))

	p := NewFavoritesProvider(favs)
	p.perm = func(n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = n - 1 - i
		}
		return out
	}

	got, err := p.Suggestions(context.Background(), tr("seed"), 2, map[string]bool{"b": true})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, ids(got))
}
