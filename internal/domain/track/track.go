// Package track provides the Track domain entity.
package track

import (
	"encoding/json"
	"strconv"
)

// DefaultQualityOrder is the preferred download quality order, best first.
var DefaultQualityOrder = []string{"320kbps", "160kbps", "96kbps", "48kbps"}

// Media represents a single media resource at a given quality tier.
// The catalog API is inconsistent about the locator key and may use
// either "url" or "link".
type Media struct {
	Quality string `json:"quality" mapstructure:"quality"`
	URL     string `json:"url,omitempty" mapstructure:"url"`
	Link    string `json:"link,omitempty" mapstructure:"link"`
}

// Locator returns the usable resource locator, preferring "url" over "link".
// Empty string means the entry carries no locator at all.
func (m Media) Locator() string {
	if m.URL != "" {
		return m.URL
	}
	return m.Link
}

// Album represents the album a track belongs to.
type Album struct {
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name" mapstructure:"name"`
}

// Track represents a playable item from the catalog.
// Identity fields are owned by the catalog layer and never mutated here.
type Track struct {
	ID             string  `json:"id" mapstructure:"id"`
	Name           string  `json:"name" mapstructure:"name"`
	PrimaryArtists string  `json:"primaryArtists" mapstructure:"primaryArtists"`
	Album          Album   `json:"album" mapstructure:"album"`
	Year           string  `json:"year,omitempty" mapstructure:"year"`
	Language       string  `json:"language,omitempty" mapstructure:"language"`
	Duration       Seconds `json:"duration" mapstructure:"duration"`
	Images         []Media `json:"image,omitempty" mapstructure:"image"`
	DownloadURLs   []Media `json:"downloadUrl,omitempty" mapstructure:"downloadUrl"`
}

// BestDownloadURL selects the best available resource locator by walking
// the quality preference order, then falling back to the first candidate
// that carries any locator. Returns false when nothing is usable.
func (t *Track) BestDownloadURL(preference []string) (string, bool) {
	if len(preference) == 0 {
		preference = DefaultQualityOrder
	}
	for _, q := range preference {
		for _, m := range t.DownloadURLs {
			if m.Quality == q && m.Locator() != "" {
				return m.Locator(), true
			}
		}
	}
	for _, m := range t.DownloadURLs {
		if m.Locator() != "" {
			return m.Locator(), true
		}
	}
	return "", false
}

// Seconds is a duration in seconds. The catalog serializes durations as
// either a JSON number or a numeric string; unparseable values decode to
// 0, which means unknown.
type Seconds float64

// UnmarshalJSON accepts numbers, numeric strings and null.
func (s *Seconds) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*s = Seconds(n)
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		*s = 0
		return nil
	}
	n, err := strconv.ParseFloat(str, 64)
	if err != nil {
		*s = 0
		return nil
	}
	*s = Seconds(n)
	return nil
}

// Float returns the duration as a plain float64 (0 = unknown).
func (s Seconds) Float() float64 {
	return float64(s)
}
