// Package catalog provides a client for the remote track catalog service.
package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"

	"github.com/mnish/raaga/internal/domain/track"
)

// Client is a catalog service client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	pageSize   int
	maxRetries int
	retryDelay time.Duration
}

// Config represents catalog client configuration.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	PageSize int
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("catalog base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		pageSize:   pageSize,
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// SearchResult is one page of track search results.
type SearchResult struct {
	Tracks []track.Track
	Total  int
	Start  int
}

// SearchSongs searches the catalog for tracks matching the query.
func (c *Client) SearchSongs(ctx context.Context, query string, page, limit int) (*SearchResult, error) {
	env, err := c.search(ctx, "/api/search/songs", query, page, limit)
	if err != nil {
		return nil, err
	}

	var tracks []track.Track
	if err := decodeLoose(env.Data.Results, &tracks); err != nil {
		return nil, errors.Wrap(err, "failed to decode search results")
	}
	return &SearchResult{Tracks: tracks, Total: env.Data.Total, Start: env.Data.Start}, nil
}

// Summary is a lightweight album or artist search record.
type Summary struct {
	ID    string        `mapstructure:"id"`
	Name  string        `mapstructure:"name"`
	Image []track.Media `mapstructure:"image"`
}

// SearchAlbums searches the catalog for albums.
func (c *Client) SearchAlbums(ctx context.Context, query string, page, limit int) ([]Summary, int, error) {
	return c.searchSummaries(ctx, "/api/search/albums", query, page, limit)
}

// SearchArtists searches the catalog for artists.
func (c *Client) SearchArtists(ctx context.Context, query string, page, limit int) ([]Summary, int, error) {
	return c.searchSummaries(ctx, "/api/search/artists", query, page, limit)
}

func (c *Client) searchSummaries(ctx context.Context, path, query string, page, limit int) ([]Summary, int, error) {
	env, err := c.search(ctx, path, query, page, limit)
	if err != nil {
		return nil, 0, err
	}
	var out []Summary
	if err := decodeLoose(env.Data.Results, &out); err != nil {
		return nil, 0, errors.Wrap(err, "failed to decode search results")
	}
	return out, env.Data.Total, nil
}

// GetSong retrieves full track details by ID.
func (c *Client) GetSong(ctx context.Context, id string) (*track.Track, error) {
	if id == "" {
		return nil, errors.New("song id is required")
	}

	var env detailEnvelope
	if err := c.get(ctx, "/api/songs/"+url.PathEscape(id), nil, &env); err != nil {
		return nil, err
	}
	if !env.ok() || len(env.Data) == 0 {
		return nil, errors.Newf("song %q not found", id)
	}

	var tracks []track.Track
	if err := decodeLoose(env.Data, &tracks); err != nil {
		return nil, errors.Wrap(err, "failed to decode song")
	}
	return &tracks[0], nil
}

// GetSuggestions retrieves suggested tracks for a seed track.
func (c *Client) GetSuggestions(ctx context.Context, id string) ([]track.Track, error) {
	if id == "" {
		return nil, errors.New("song id is required")
	}

	var env detailEnvelope
	if err := c.get(ctx, "/api/songs/"+url.PathEscape(id)+"/suggestions", nil, &env); err != nil {
		return nil, err
	}
	if !env.ok() {
		return nil, errors.Newf("no suggestions for song %q", id)
	}

	var tracks []track.Track
	if err := decodeLoose(env.Data, &tracks); err != nil {
		return nil, errors.Wrap(err, "failed to decode suggestions")
	}
	return tracks, nil
}

// searchEnvelope is the common search response shape. The service is
// inconsistent: some deployments report a boolean "success", others a
// string "status".
type searchEnvelope struct {
	Success *bool  `json:"success"`
	Status  string `json:"status"`
	Data    struct {
		Results []map[string]any `json:"results"`
		Total   int              `json:"total"`
		Start   int              `json:"start"`
	} `json:"data"`
}

func (e *searchEnvelope) ok() bool {
	if e.Success != nil {
		return *e.Success
	}
	return e.Status == "" || e.Status == "SUCCESS" || e.Status == "success"
}

type detailEnvelope struct {
	Success bool             `json:"success"`
	Data    []map[string]any `json:"data"`
}

func (e *detailEnvelope) ok() bool {
	return e.Success
}

func (c *Client) search(ctx context.Context, path, query string, page, limit int) (*searchEnvelope, error) {
	if query == "" {
		return nil, errors.New("search query is required")
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = c.pageSize
	}
	if limit > 50 {
		limit = 50
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	var env searchEnvelope
	if err := c.get(ctx, path, params, &env); err != nil {
		return nil, err
	}
	if !env.ok() {
		return nil, errors.Newf("catalog search failed for query %q", query)
	}
	return &env, nil
}

// get performs a GET with retries on transport errors and 5xx responses.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "catalog request cancelled")
			case <-time.After(c.retryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return errors.Wrap(err, "failed to build catalog request")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = errors.Newf("catalog returned %s", resp.Status)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return errors.Newf("catalog returned %s", resp.Status)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return errors.Wrap(err, "failed to decode catalog response")
		}
		return nil
	}
	return errors.Wrapf(lastErr, "catalog request failed after %d attempts", c.maxRetries+1)
}

// decodeLoose converts raw catalog records into typed values. The upstream
// API mixes strings and numbers freely (durations in particular), so the
// decode is weakly typed.
func decodeLoose(input any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		return errors.Wrap(err, "loose decode")
	}
	return nil
}
