package mapview

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"

	"gioui.org/f32"
	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"github.com/olablt/gio-tiles/render"
	"github.com/olablt/gio-tiles/tiles"
)

type Options struct {
	Center      tiles.GeoPosition
	Zoom        int
	MinZoom     int
	MaxZoom     int
	TextureSize int
}

// MapView is a pannable, zoomable map widget. Dragging pans, scrolling zooms
// around the cursor. Frames are loaded in the background and the newest one
// that resolved is drawn.
type MapView struct {
	Anchor  tiles.Anchor
	Zoom    int
	MinZoom int
	MaxZoom int

	loader      *tiles.FrameLoader
	surface     *GioSurface
	compositor  *render.Compositor
	textureSize int
	size        image.Point
	dirty       bool

	mu      sync.Mutex
	frame   tiles.Frame
	planned tiles.PixelPosition // top-left pixel the frame was enumerated for
	ready   bool

	dragging    bool
	lastDragPos f32.Point
	refresh     chan<- struct{}
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *slog.Logger
}

// New creates a map view loading frames with loader. opts.Center is moved to
// the middle of the view once its size is known. A value is sent on refresh
// whenever a new frame is ready to draw.
func New(loader *tiles.FrameLoader, opts Options, refresh chan<- struct{}) *MapView {
	ctx, cancel := context.WithCancel(context.Background())
	return &MapView{
		Zoom:        max(opts.MinZoom, min(opts.Zoom, opts.MaxZoom)),
		MinZoom:     opts.MinZoom,
		MaxZoom:     opts.MaxZoom,
		Anchor:      tiles.NewAnchor(opts.Center, opts.MaxZoom),
		loader:      loader,
		textureSize: opts.TextureSize,
		dirty:       true,
		refresh:     refresh,
		ctx:         ctx,
		cancel:      cancel,
		logger:      slog.With("component", "mapview"),
	}
}

// Close abandons frames still loading.
func (mv *MapView) Close() {
	mv.cancel()
}

func (mv *MapView) Layout(gtx layout.Context) layout.Dimensions {
	tag := mv

	// process events
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  tag,
			Kinds:   pointer.Scroll | pointer.Drag | pointer.Press | pointer.Release | pointer.Cancel,
			ScrollY: pointer.ScrollRange{Min: -10, Max: 10},
		})
		if !ok {
			break
		}
		if x, ok := ev.(pointer.Event); ok {
			mv.handlePointer(x)
		}
	}

	// Update size if changed
	if mv.size != gtx.Constraints.Max {
		mv.resize(gtx.Constraints.Max)
	}
	if mv.dirty && mv.compositor != nil {
		mv.requestFrame()
	}

	// Confine the area of interest to a gtx Max
	defer clip.Rect{Max: mv.size}.Push(gtx.Ops).Pop()
	event.Op(gtx.Ops, tag)

	mv.drawLatest(gtx.Ops)
	return layout.Dimensions{Size: mv.size}
}

func (mv *MapView) handlePointer(x pointer.Event) {
	switch x.Kind {
	case pointer.Press:
		mv.lastDragPos = x.Position
		mv.dragging = true
	case pointer.Drag:
		if !mv.dragging {
			return
		}
		delta := x.Position.Sub(mv.lastDragPos)
		dx, dy := int(delta.X), int(delta.Y)
		if dx == 0 && dy == 0 {
			return
		}
		// content follows the pointer, the view moves the other way
		mv.Pan(-dx, -dy)
		mv.lastDragPos = mv.lastDragPos.Add(f32.Pt(float32(dx), float32(dy)))
	case pointer.Scroll:
		cursor := image.Pt(int(x.Position.X), int(x.Position.Y))
		switch {
		case x.Scroll.Y < 0:
			mv.ZoomAt(mv.Zoom+1, cursor)
		case x.Scroll.Y > 0:
			mv.ZoomAt(mv.Zoom-1, cursor)
		}
	case pointer.Release, pointer.Cancel:
		mv.dragging = false
	}
}

// Pan moves the view by (dx, dy) pixels at the current zoom.
func (mv *MapView) Pan(dx, dy int) {
	mv.Anchor = mv.Anchor.Shift(dx, dy, mv.Zoom)
	mv.dirty = true
}

// ZoomAt changes the zoom level, keeping the map pixel under cursor in place.
func (mv *MapView) ZoomAt(zoom int, cursor image.Point) {
	zoom = max(mv.MinZoom, min(zoom, mv.MaxZoom))
	if zoom == mv.Zoom {
		return
	}
	mv.Anchor = mv.Anchor.
		Shift(cursor.X, cursor.Y, mv.Zoom).
		Shift(-cursor.X, -cursor.Y, zoom)
	mv.Zoom = zoom
	mv.dirty = true
}

// Center is the geographical position in the middle of the view.
func (mv *MapView) Center() tiles.GeoPosition {
	return mv.Anchor.Shift(mv.size.X/2, mv.size.Y/2, mv.Zoom).Geo()
}

// MetersPerPixel is the ground resolution at the view center.
func (mv *MapView) MetersPerPixel() float64 {
	return tiles.MetersPerPixel(mv.Center().Lat, mv.Zoom)
}

func (mv *MapView) resize(size image.Point) {
	// keep the view centered on the same spot
	old := mv.size
	mv.Anchor = mv.Anchor.Shift((old.X-size.X)/2, (old.Y-size.Y)/2, mv.Zoom)
	mv.size = size
	mv.dirty = true
	mv.compositor = nil
	if size.X <= 0 || size.Y <= 0 {
		return
	}
	mv.surface = NewGioSurface(size)
	c, err := render.NewCompositor(mv.surface, mv.textureSize)
	if err != nil {
		mv.logger.Error("Failed to create compositor", "size", size, "error", err)
		return
	}
	mv.compositor = c
}

func (mv *MapView) requestFrame() {
	mv.dirty = false
	vp := tiles.Viewport{Width: mv.size.X, Height: mv.size.Y}
	topLeft := mv.Anchor.Pixel(mv.Zoom)
	items := vp.Enumerate(topLeft)

	go func() {
		frame, err := mv.loader.Load(mv.ctx, vp, items)
		if err != nil {
			if !errors.Is(err, tiles.ErrStaleFrame) && !errors.Is(err, context.Canceled) {
				mv.logger.Warn("Frame not loaded", "zoom", topLeft.Zoom, "error", err)
			}
			return
		}
		mv.mu.Lock()
		mv.frame = frame
		mv.planned = topLeft
		mv.ready = true
		mv.mu.Unlock()

		select {
		case mv.refresh <- struct{}{}:
		default:
		}
	}()
}

// drawLatest draws the newest loaded frame, moved by however far the view was
// panned since it was planned.
func (mv *MapView) drawLatest(ops *op.Ops) {
	mv.mu.Lock()
	frame, planned, ready := mv.frame, mv.planned, mv.ready
	mv.mu.Unlock()
	if !ready || mv.compositor == nil {
		return
	}
	if frame.Viewport.Width != mv.size.X || frame.Viewport.Height != mv.size.Y {
		return
	}

	var shift image.Point
	if current := mv.Anchor.Pixel(planned.Zoom); planned.Zoom == mv.Zoom {
		shift = image.Pt(planned.X-current.X, planned.Y-current.Y)
	}
	defer op.Offset(shift).Push(ops).Pop()

	mv.surface.Bind(ops)
	defer mv.surface.Unbind()
	if err := mv.compositor.Draw(frame); err != nil {
		mv.logger.Error("Failed to draw frame", "generation", frame.Generation, "error", err)
	}
}
