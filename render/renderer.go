package render

import (
	"context"
	"fmt"

	"github.com/olablt/gio-tiles/tiles"
)

// Renderer runs the three frame stages: enumerate the tiles of a view, load
// their images and composite them.
type Renderer struct {
	Viewport tiles.Viewport
	MinZoom  int
	MaxZoom  int

	loader     *tiles.FrameLoader
	compositor *Compositor
}

func NewRenderer(loader *tiles.FrameLoader, compositor *Compositor, minZoom, maxZoom int) *Renderer {
	g := compositor.Geometry()
	return &Renderer{
		Viewport:   tiles.Viewport{Width: g.Width, Height: g.Height},
		MinZoom:    minZoom,
		MaxZoom:    maxZoom,
		loader:     loader,
		compositor: compositor,
	}
}

// Plan enumerates the draw items of the view at anchor and zoom.
func (r *Renderer) Plan(anchor tiles.Anchor, zoom int) ([]tiles.DrawItem, error) {
	if err := tiles.CheckZoom(zoom, r.MinZoom, r.MaxZoom); err != nil {
		return nil, err
	}
	return r.Viewport.Enumerate(anchor.Pixel(zoom)), nil
}

// RenderFrame draws the view at anchor and zoom. A frame overtaken by a newer
// one is not drawn and returns tiles.ErrStaleFrame.
func (r *Renderer) RenderFrame(ctx context.Context, anchor tiles.Anchor, zoom int) (tiles.Frame, error) {
	items, err := r.Plan(anchor, zoom)
	if err != nil {
		return tiles.Frame{}, err
	}
	frame, err := r.loader.Load(ctx, r.Viewport, items)
	if err != nil {
		return tiles.Frame{}, err
	}
	// a newer frame may have started while this one was being fetched
	if !r.loader.Current(frame.Generation) {
		return tiles.Frame{}, fmt.Errorf("frame %d: %w", frame.Generation, tiles.ErrStaleFrame)
	}
	if err := r.compositor.Draw(frame); err != nil {
		return tiles.Frame{}, err
	}
	return frame, nil
}
