package track

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrack_BestDownloadURL(t *testing.T) {
	tests := []struct {
		name        string
		downloads   []Media
		preference  []string
		expected    string
		expectFound bool
	}{
		{
			name: "highest preferred tier present",
			downloads: []Media{
				{Quality: "96kbps", URL: "u96"},
				{Quality: "320kbps", URL: "u320"},
			},
			expected:    "u320",
			expectFound: true,
		},
		{
			name: "falls through to lower tier",
			downloads: []Media{
				{Quality: "48kbps", URL: "u48"},
				{Quality: "96kbps", URL: "u96"},
			},
			expected:    "u96",
			expectFound: true,
		},
		{
			name: "link key used when url missing",
			downloads: []Media{
				{Quality: "320kbps", Link: "l320"},
			},
			expected:    "l320",
			expectFound: true,
		},
		{
			name: "unknown tier falls back to first candidate",
			downloads: []Media{
				{Quality: "lossless", URL: "ufl"},
			},
			expected:    "ufl",
			expectFound: true,
		},
		{
			name:        "empty candidate list",
			downloads:   nil,
			expectFound: false,
		},
		{
			name: "candidates without any locator",
			downloads: []Media{
				{Quality: "320kbps"},
				{Quality: "96kbps"},
			},
			expectFound: false,
		},
		{
			name: "custom preference order",
			downloads: []Media{
				{Quality: "96kbps", URL: "u96"},
				{Quality: "320kbps", URL: "u320"},
			},
			preference:  []string{"96kbps"},
			expected:    "u96",
			expectFound: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &Track{ID: "t1", DownloadURLs: tt.downloads}
			url, ok := tr.BestDownloadURL(tt.preference)
			assert.Equal(t, tt.expectFound, ok)
			assert.Equal(t, tt.expected, url)
		})
	}
}

func TestSeconds_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{name: "number", input: `230`, expected: 230},
		{name: "float", input: `230.5`, expected: 230.5},
		{name: "numeric string", input: `"230"`, expected: 230},
		{name: "garbage string", input: `"abc"`, expected: 0},
		{name: "null", input: `null`, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Seconds
			require.NoError(t, json.Unmarshal([]byte(tt.input), &s))
			assert.Equal(t, tt.expected, s.Float())
		})
	}
}

func TestTrack_JSONRoundTrip(t *testing.T) {
	tr := Track{
		ID:             "song123",
		Name:           "Test Song",
		PrimaryArtists: "Artist 1, Artist 2",
		Album:          Album{ID: "alb1", Name: "Test Album"},
		Duration:       185,
		DownloadURLs: []Media{
			{Quality: "320kbps", URL: "https://cdn.example/u320.mp3"},
		},
	}

	data, err := json.Marshal(tr)
	require.NoError(t, err)

	var decoded Track
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, tr, decoded)
}

func TestTrack_DurationFromStringJSON(t *testing.T) {
	raw := `{"id":"x","name":"n","primaryArtists":"a","album":{"id":"","name":""},"duration":"412"}`

	var tr Track
	require.NoError(t, json.Unmarshal([]byte(raw), &tr))
	assert.Equal(t, 412.0, tr.Duration.Float())
}

func TestMedia_Locator(t *testing.T) {
	assert.Equal(t, "u", Media{URL: "u", Link: "l"}.Locator())
	assert.Equal(t, "l", Media{Link: "l"}.Locator())
	assert.Equal(t, "", Media{}.Locator())
}
