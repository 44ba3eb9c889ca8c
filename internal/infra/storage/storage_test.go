package storage

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_RoundTrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set(KeyPlayer, []byte(`{"queue":[]}`)))

	got, err := s.Get(KeyPlayer)
	require.NoError(t, err)
	assert.Equal(t, `{"queue":[]}`, string(got))
}

func TestFileStore_GetMissingKey(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get("never-written")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFileStore_Overwrite(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set(KeyTheme, []byte(`"light"`)))
	require.NoError(t, s.Set(KeyTheme, []byte(`"dark"`)))

	got, err := s.Get(KeyTheme)
	require.NoError(t, err)
	assert.Equal(t, `"dark"`, string(got))
}

func TestFileStore_Delete(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Set(KeySearch, []byte(`[]`)))
	require.NoError(t, s.Delete(KeySearch))

	_, err = s.Get(KeySearch)
	assert.True(t, errors.Is(err, ErrNotFound))

	// Deleting again is fine
	assert.NoError(t, s.Delete(KeySearch))
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"player-storage", "player-storage"},
		{"app-theme", "app-theme"},
		{"weird/key name", "weird_key_name"},
		{"../escape", ".._escape"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, sanitizeKey(tt.input))
	}
}

func TestMemStore(t *testing.T) {
	s := NewMemStore()

	_, err := s.Get("x")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, s.Set("x", []byte("1")))
	got, err := s.Get("x")
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))

	// Returned slice is a copy
	got[0] = '9'
	again, err := s.Get("x")
	require.NoError(t, err)
	assert.Equal(t, "1", string(again))

	require.NoError(t, s.Delete("x"))
	_, err = s.Get("x")
	assert.True(t, errors.Is(err, ErrNotFound))
}
