package tiles

// Anchor is the pan position of a view, stored as a pixel at MaxZoom. Per-zoom
// pixels are derived by shifting, so panning stays lossless across zoom
// changes. Anchors are values; Shift returns a new one.
type Anchor struct {
	pos PixelPosition
}

// NewAnchor anchors the view at g, stored at maxZoom.
func NewAnchor(g GeoPosition, maxZoom int) Anchor {
	return Anchor{pos: Project(g, maxZoom)}
}

// AnchorAt uses p as the stored position; p.Zoom becomes the anchor's MaxZoom.
func AnchorAt(p PixelPosition) Anchor {
	return Anchor{pos: p}
}

// CenteredAnchor returns an anchor whose top-left pixel at zoom puts center in
// the middle of vp.
func CenteredAnchor(center GeoPosition, zoom int, vp Viewport, maxZoom int) Anchor {
	return NewAnchor(center, maxZoom).Shift(-vp.Width/2, -vp.Height/2, zoom)
}

func (a Anchor) MaxZoom() int { return a.pos.Zoom }

// Position is the stored pixel at MaxZoom.
func (a Anchor) Position() PixelPosition { return a.pos }

// Pixel returns the anchor's pixel at zoom.
func (a Anchor) Pixel(zoom int) PixelPosition {
	return Rescale(a.pos, zoom)
}

// Geo returns the geographical position of the anchor.
func (a Anchor) Geo() GeoPosition {
	return Unproject(a.pos)
}

// Shift moves the anchor by (dx, dy) pixels measured at zoom.
func (a Anchor) Shift(dx, dy, zoom int) Anchor {
	if zoom > a.pos.Zoom {
		// finer than the anchor, sub-anchor-pixel motion is lost
		d := uint(zoom - a.pos.Zoom)
		dx, dy = dx>>d, dy>>d
	} else {
		d := uint(a.pos.Zoom - zoom)
		dx, dy = dx<<d, dy<<d
	}
	return Anchor{pos: PixelPosition{X: a.pos.X + dx, Y: a.pos.Y + dy, Zoom: a.pos.Zoom}}
}
