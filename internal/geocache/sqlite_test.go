package geocache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoequity/gei/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "geocache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, found, err := s.Get(ctx, "123 main st")
	require.NoError(t, err)
	assert.False(t, found)

	coord := model.Coordinate{Lat: 33.77, Lon: -84.39}
	require.NoError(t, s.Put(ctx, "123 main st", coord, "123 Main St, Atlanta"))

	got, display, found, err := s.Get(ctx, "123 main st")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, coord, got)
	assert.Equal(t, "123 Main St, Atlanta", display)
}

func TestStorePutOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "key", model.Coordinate{Lat: 1, Lon: 2}, "old"))
	require.NoError(t, s.Put(ctx, "key", model.Coordinate{Lat: 3, Lon: 4}, "new"))

	got, display, found, err := s.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.Coordinate{Lat: 3, Lon: 4}, got)
	assert.Equal(t, "new", display)
}
