package tiles

import (
	"fmt"
	"image"

	"github.com/paulmach/orb"
)

// Viewport is the size of the drawing surface in pixels.
type Viewport struct {
	Width, Height int
}

func (v Viewport) Validate() error {
	if v.Width <= 0 || v.Height <= 0 {
		return fmt.Errorf("%w: viewport %dx%d", ErrInvalidCoordinate, v.Width, v.Height)
	}
	return nil
}

func (v Viewport) Size() image.Point {
	return image.Point{X: v.Width, Y: v.Height}
}

// DrawItem is a tile to draw and where its top-left corner lands in the viewport.
type DrawItem struct {
	Address TileAddress
	Start   image.Point
}

// Enumerate lists the tiles covering the viewport whose top-left pixel is
// topLeft, with each tile's start offset in viewport pixels. The first tile
// starts partially off-screen by the top-left pixel's offset inside its tile.
// Tiles on the last row and column are returned whole; clipping is up to the
// drawing surface.
//
// Tile X wraps around the antimeridian. Rows beyond the poles are dropped.
func (v Viewport) Enumerate(topLeft PixelPosition) []DrawItem {
	bottomRight := PixelPosition{
		X:    topLeft.X + v.Width - 1,
		Y:    topLeft.Y + v.Height - 1,
		Zoom: topLeft.Zoom,
	}
	nwTile := topLeft.Tile()
	seTile := bottomRight.Tile()
	nwOffset := topLeft.WithinTile()
	n := 1 << uint(topLeft.Zoom)

	items := make([]DrawItem, 0, (seTile.X-nwTile.X+1)*(seTile.Y-nwTile.Y+1))
	for x := nwTile.X; x <= seTile.X; x++ {
		for y := nwTile.Y; y <= seTile.Y; y++ {
			if y < 0 || y >= n {
				continue
			}
			items = append(items, DrawItem{
				Address: TileAddress{Zoom: topLeft.Zoom, X: ((x % n) + n) % n, Y: y},
				Start: image.Point{
					X: TileSize*(x-nwTile.X) - nwOffset.X,
					Y: TileSize*(y-nwTile.Y) - nwOffset.Y,
				},
			})
		}
	}
	return items
}

// Bound is the geographic extent of the viewport whose top-left pixel is topLeft.
func (v Viewport) Bound(topLeft PixelPosition) orb.Bound {
	nw := Unproject(topLeft)
	se := Unproject(PixelPosition{X: topLeft.X + v.Width, Y: topLeft.Y + v.Height, Zoom: topLeft.Zoom})
	return orb.Bound{
		Min: orb.Point{nw.Lon, se.Lat},
		Max: orb.Point{se.Lon, nw.Lat},
	}
}
