package tiles

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackProvider(t *testing.T) {
	primary := newFakeProvider()
	bad := TileAddress{2, 3, 1}
	primary.fail[bad] = &TileFetchError{Address: bad, Status: 500}
	fp := NewFallbackProvider(primary, NewPlaceholderProvider(), time.Minute)

	good := TileAddress{2, 0, 0}
	img, err := fp.GetTile(context.Background(), good)
	require.NoError(t, err)
	assert.IsType(t, &image.Uniform{}, img)
	assert.False(t, fp.Failed(good))

	img, err = fp.GetTile(context.Background(), bad)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, TileSize, TileSize), img.Bounds())
	assert.True(t, fp.Failed(bad))
	assert.Equal(t, 1, primary.Calls(bad))

	// marked addresses skip the primary until they expire
	_, err = fp.GetTile(context.Background(), bad)
	require.NoError(t, err)
	assert.Equal(t, 1, primary.Calls(bad))
}

func TestFallbackProvider_retriesAfterExpiry(t *testing.T) {
	primary := newFakeProvider()
	bad := TileAddress{1, 1, 1}
	primary.fail[bad] = errors.New("down")
	fp := NewFallbackProvider(primary, NewPlaceholderProvider(), 20*time.Millisecond)

	_, err := fp.GetTile(context.Background(), bad)
	require.NoError(t, err)
	require.True(t, fp.Failed(bad))

	assert.Eventually(t, func() bool { return !fp.Failed(bad) }, time.Second, 5*time.Millisecond)
	_, err = fp.GetTile(context.Background(), bad)
	require.NoError(t, err)
	assert.Equal(t, 2, primary.Calls(bad))
}

func TestFallbackProvider_cancelledIsNotMarked(t *testing.T) {
	primary := newFakeProvider()
	primary.block = make(chan struct{})
	fp := NewFallbackProvider(primary, NewPlaceholderProvider(), time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tile := TileAddress{0, 0, 0}
	_, err := fp.GetTile(ctx, tile)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, fp.Failed(tile))
}

func TestFallbackProvider_bothFail(t *testing.T) {
	primary, fallback := newFakeProvider(), newFakeProvider()
	tile := TileAddress{0, 0, 0}
	primary.fail[tile] = errors.New("primary down")
	fallback.fail[tile] = errors.New("fallback down")
	fp := NewFallbackProvider(primary, fallback, 0)

	_, err := fp.GetTile(context.Background(), tile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "primary down")
	assert.Contains(t, err.Error(), "fallback down")
}

func TestPlaceholderProvider(t *testing.T) {
	p := NewPlaceholderProvider()
	img, err := p.GetTile(context.Background(), TileAddress{10, 907, 404})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, TileSize, TileSize), img.Bounds())
	assert.Equal(t, p.Border, img.At(0, 0))
	assert.Equal(t, p.Background, img.At(20, 20))
	// the label box covers the middle of the tile
	assert.NotEqual(t, p.Background, img.At(TileSize/2, TileSize/2))
}

func TestFallbackProvider_overTileManagerRetriesPrimary(t *testing.T) {
	remote := newFakeProvider()
	tile := TileAddress{1, 1, 1}
	remote.fail[tile] = errors.New("down")
	tm, err := NewTileManager(remote, 16, nil)
	require.NoError(t, err)
	fp := NewFallbackProvider(tm, NewPlaceholderProvider(), 20*time.Millisecond)

	img, err := fp.GetTile(context.Background(), tile)
	require.NoError(t, err)
	assert.IsType(t, &image.RGBA{}, img)
	assert.False(t, tm.GetCache().Contains(tile))

	remote.mu.Lock()
	delete(remote.fail, tile)
	remote.mu.Unlock()

	assert.Eventually(t, func() bool { return !fp.Failed(tile) }, time.Second, 5*time.Millisecond)
	img, err = fp.GetTile(context.Background(), tile)
	require.NoError(t, err)
	assert.IsType(t, &image.Uniform{}, img)
	assert.Equal(t, 2, remote.Calls(tile))
	assert.True(t, tm.GetCache().Contains(tile))
}
