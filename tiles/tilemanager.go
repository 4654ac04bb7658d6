package tiles

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"

	"github.com/olablt/gio-tiles/tiles/worker"
	"golang.org/x/sync/singleflight"
)

const DefaultCacheSize = 512

var errNoImage = errors.New("provider returned no image")

// TileProvider loads the image of a single tile.
type TileProvider interface {
	GetTile(ctx context.Context, tile TileAddress) (image.Image, error)
}

// TileManager resolves tiles through a provider with an LRU image cache.
// Concurrent requests for the same tile share one provider call, and every
// provider call runs on the worker pool.
type TileManager struct {
	cache    *Cache[image.Image]
	provider TileProvider
	pool     *worker.Pool
	group    singleflight.Group
	logger   *slog.Logger

	mu     sync.RWMutex
	onLoad func(TileAddress)
}

// NewTileManager creates a manager caching up to cacheSize images. A nil pool
// gets a private one with 8 workers and no timeout.
func NewTileManager(provider TileProvider, cacheSize int, pool *worker.Pool) (*TileManager, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := NewImageCache(cacheSize)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		pool = worker.NewPool(8, 0)
	}
	return &TileManager{
		cache:    cache,
		provider: provider,
		pool:     pool,
		logger:   slog.With("component", "tile-manager"),
	}, nil
}

func (tm *TileManager) GetCache() *Cache[image.Image] {
	return tm.cache
}

// SetOnLoadCallback registers a function called after a tile was loaded from
// the provider (not for cache hits).
func (tm *TileManager) SetOnLoadCallback(callback func(TileAddress)) {
	tm.mu.Lock()
	tm.onLoad = callback
	tm.mu.Unlock()
}

func (tm *TileManager) GetTile(ctx context.Context, tile TileAddress) (image.Image, error) {
	if img, ok := tm.cache.Get(tile); ok {
		return img, nil
	}

	ch := tm.group.DoChan(tile.String(), func() (any, error) {
		if img, ok := tm.cache.Get(tile); ok {
			return img, nil
		}
		var img image.Image
		// the shared call must outlive any single waiter
		err := tm.pool.Do(context.WithoutCancel(ctx), func(ctx context.Context) error {
			var err error
			img, err = tm.provider.GetTile(ctx, tile)
			return err
		})
		if err != nil {
			return nil, err
		}
		if img == nil {
			return nil, &TileFetchError{Address: tile, Err: errNoImage}
		}
		tm.cache.Set(tile, img)
		tm.notify(tile)
		return img, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			tm.logger.Debug("Tile load failed", "tile", tile.String(), "error", res.Err)
			return nil, res.Err
		}
		img, ok := res.Val.(image.Image)
		if !ok || img == nil {
			return nil, &TileFetchError{Address: tile, Err: errNoImage}
		}
		return img, nil
	}
}

func (tm *TileManager) notify(tile TileAddress) {
	tm.mu.RLock()
	onLoad := tm.onLoad
	tm.mu.RUnlock()
	if onLoad != nil {
		onLoad(tile)
	}
}
