package tiles

import (
	"context"
	"errors"
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/olablt/gio-tiles/tiles/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTileManager_sharesConcurrentLoads(t *testing.T) {
	p := newFakeProvider()
	p.block = make(chan struct{})
	p.started = make(chan TileAddress, 16)
	tm, err := NewTileManager(p, 16, nil)
	require.NoError(t, err)

	var loaded atomic.Int32
	tm.SetOnLoadCallback(func(TileAddress) { loaded.Add(1) })

	tile := TileAddress{3, 1, 2}
	var wg sync.WaitGroup
	imgs := make([]image.Image, 10)
	for i := range imgs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			img, err := tm.GetTile(context.Background(), tile)
			assert.NoError(t, err)
			imgs[i] = img
		}()
	}
	<-p.started
	// give the other callers time to join the in-flight load
	time.Sleep(20 * time.Millisecond)
	close(p.block)
	wg.Wait()

	assert.Equal(t, 1, p.Calls(tile))
	assert.Equal(t, int32(1), loaded.Load())
	for _, img := range imgs {
		assert.Same(t, imgs[0], img)
	}

	// later requests are served from the cache
	img, err := tm.GetTile(context.Background(), tile)
	require.NoError(t, err)
	assert.Same(t, imgs[0], img)
	assert.Equal(t, 1, p.Calls(tile))
	assert.True(t, tm.GetCache().Contains(tile))
}

func TestTileManager_errorsAreNotCached(t *testing.T) {
	p := newFakeProvider()
	tile := TileAddress{2, 1, 1}
	boom := errors.New("boom")
	p.fail[tile] = boom
	tm, err := NewTileManager(p, 0, worker.NewPool(2, 0))
	require.NoError(t, err)

	_, err = tm.GetTile(context.Background(), tile)
	assert.ErrorIs(t, err, boom)
	assert.False(t, tm.GetCache().Contains(tile))

	p.mu.Lock()
	delete(p.fail, tile)
	p.mu.Unlock()
	_, err = tm.GetTile(context.Background(), tile)
	assert.NoError(t, err)
	assert.Equal(t, 2, p.Calls(tile))
}

func TestTileManager_callerCancelDoesNotAbortSharedLoad(t *testing.T) {
	p := newFakeProvider()
	p.block = make(chan struct{})
	p.started = make(chan TileAddress, 1)
	tm, err := NewTileManager(p, 4, nil)
	require.NoError(t, err)

	tile := TileAddress{1, 0, 1}
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := tm.GetTile(ctx, tile)
		errc <- err
	}()
	<-p.started
	cancel()
	assert.ErrorIs(t, <-errc, context.Canceled)

	close(p.block)
	assert.Eventually(t, func() bool { return tm.GetCache().Contains(tile) }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, p.Calls(tile))
}

func TestTileManager_poolTimeout(t *testing.T) {
	p := newFakeProvider()
	p.block = make(chan struct{})
	defer close(p.block)
	tm, err := NewTileManager(p, 4, worker.NewPool(1, 10*time.Millisecond))
	require.NoError(t, err)

	_, err = tm.GetTile(context.Background(), TileAddress{0, 0, 0})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type nilProvider struct{}

func (nilProvider) GetTile(context.Context, TileAddress) (image.Image, error) { return nil, nil }

func TestTileManager_nilImageIsAFetchError(t *testing.T) {
	tm, err := NewTileManager(nilProvider{}, 4, nil)
	require.NoError(t, err)

	tile := TileAddress{1, 0, 0}
	img, err := tm.GetTile(context.Background(), tile)
	assert.Nil(t, img)
	assert.ErrorIs(t, err, ErrTileFetch)
	assert.ErrorIs(t, err, errNoImage)
	assert.False(t, tm.GetCache().Contains(tile))
}
