package tiles

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const DefaultFrameTimeout = 30 * time.Second

// Tile is a draw item with its resolved image.
type Tile struct {
	DrawItem
	Image image.Image
}

// Frame is every tile of one view, ready to composite.
type Frame struct {
	Generation uint64
	Viewport   Viewport
	Tiles      []Tile
}

// FrameLoader resolves the draw items of a frame concurrently. Frames are
// numbered by generation; a frame that finishes after a newer one was started
// is discarded.
type FrameLoader struct {
	provider   TileProvider
	timeout    time.Duration
	generation atomic.Uint64
	logger     *slog.Logger
}

// NewFrameLoader joins every frame within timeout; zero selects
// DefaultFrameTimeout.
func NewFrameLoader(provider TileProvider, timeout time.Duration) *FrameLoader {
	if timeout <= 0 {
		timeout = DefaultFrameTimeout
	}
	return &FrameLoader{
		provider: provider,
		timeout:  timeout,
		logger:   slog.With("component", "frame-loader"),
	}
}

// Next starts a new generation, making every older one stale.
func (l *FrameLoader) Next() uint64 {
	return l.generation.Add(1)
}

// Current reports whether gen is the latest generation.
func (l *FrameLoader) Current(gen uint64) bool {
	return l.generation.Load() == gen
}

// Load fetches every item of a new frame. The first failure cancels the
// remaining fetches and fails the frame. A frame superseded by a later Load
// or Next returns ErrStaleFrame.
func (l *FrameLoader) Load(ctx context.Context, vp Viewport, items []DrawItem) (Frame, error) {
	gen := l.Next()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	frame := Frame{Generation: gen, Viewport: vp, Tiles: make([]Tile, len(items))}
	g, gctx := errgroup.WithContext(ctx)
	failed := make(chan error, 1)
	for i, item := range items {
		g.Go(func() error {
			img, err := l.provider.GetTile(gctx, item.Address)
			if err != nil {
				select {
				case failed <- err:
				default:
				}
				return err
			}
			frame.Tiles[i] = Tile{DrawItem: item, Image: img}
			return nil
		})
	}
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	// a provider ignoring its context must not hold the frame past the timeout
	var err error
	select {
	case err = <-done:
	case err = <-failed:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("join timed out after %s: %w", l.timeout, ctx.Err())
		}
		l.logger.Error("Frame failed", "generation", gen, "tiles", len(items), "error", err)
		return Frame{}, fmt.Errorf("frame %d: %w", gen, err)
	}
	if !l.Current(gen) {
		l.logger.Debug("Frame discarded", "generation", gen)
		return Frame{}, fmt.Errorf("frame %d: %w", gen, ErrStaleFrame)
	}

	l.logger.Debug("Frame loaded", "generation", gen, "tiles", len(items),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return frame, nil
}
