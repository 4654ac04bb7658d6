package tiles

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const DefaultRetryAfter = 30 * time.Second

// FallbackProvider asks primary first and substitutes fallback when it
// fails. Failed addresses skip the primary until retryAfter has passed.
//
// Substitutes must not be cached as the real tile, so a TileManager goes in
// as primary, not on top of a FallbackProvider.
type FallbackProvider struct {
	primary  TileProvider
	fallback TileProvider
	failed   *ttlcache.Cache[TileAddress, error]
	logger   *slog.Logger
}

func NewFallbackProvider(primary, fallback TileProvider, retryAfter time.Duration) *FallbackProvider {
	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}
	return &FallbackProvider{
		primary:  primary,
		fallback: fallback,
		failed: ttlcache.New[TileAddress, error](
			ttlcache.WithTTL[TileAddress, error](retryAfter),
			ttlcache.WithDisableTouchOnHit[TileAddress, error](),
		),
		logger: slog.With("component", "fallback-provider"),
	}
}

func (p *FallbackProvider) GetTile(ctx context.Context, tile TileAddress) (image.Image, error) {
	if item := p.failed.Get(tile); item != nil && !item.IsExpired() {
		return p.substitute(ctx, tile, item.Value())
	}

	img, err := p.primary.GetTile(ctx, tile)
	if err == nil {
		return img, nil
	}
	if ctx.Err() != nil {
		// the frame was abandoned, not the server's fault
		return nil, err
	}
	p.failed.Set(tile, err, ttlcache.DefaultTTL)
	p.logger.Warn("Primary tile failed, using fallback", "tile", tile.String(), "error", err)
	return p.substitute(ctx, tile, err)
}

func (p *FallbackProvider) substitute(ctx context.Context, tile TileAddress, cause error) (image.Image, error) {
	img, err := p.fallback.GetTile(ctx, tile)
	if err != nil {
		return nil, fmt.Errorf("both primary and fallback providers failed: %v: %w", cause, err)
	}
	return img, nil
}

// Failed reports whether tile is currently marked as failed.
func (p *FallbackProvider) Failed(tile TileAddress) bool {
	item := p.failed.Get(tile)
	return item != nil && !item.IsExpired()
}
