// Package render composites resolved tile frames onto a drawing surface.
package render

import (
	"errors"
	"image"

	"gioui.org/f32"
)

var (
	// ErrSurfaceLost means the render context is gone. The caller has to
	// create a new surface and compositor.
	ErrSurfaceLost = errors.New("render surface lost")
	// ErrViewportMismatch is returned for frames enumerated for a different
	// viewport size than the surface.
	ErrViewportMismatch = errors.New("frame viewport does not match surface")
)

// Texture is an image uploaded to a surface.
type Texture interface {
	Size() image.Point
}

// Quad is the tile geometry: a unit quad scaled to one tile in viewport units.
type Quad struct {
	Width, Height float32
}

// Instance is one tile draw. Offset is the tile's top-left corner in viewport
// units, (0,0) top-left and (1,1) bottom-right.
type Instance struct {
	Texture Texture
	Offset  f32.Point
}

// Surface is the render context the compositor draws on. It is owned by a
// single goroutine.
type Surface interface {
	Size() image.Point
	Upload(img image.Image) (Texture, error)
	Draw(quad Quad, instances []Instance) error
	Release(tex Texture)
}

// PixelOffset converts a normalized offset back to viewport pixels.
func PixelOffset(off f32.Point, size image.Point) image.Point {
	return image.Point{
		X: roundf(off.X * float32(size.X)),
		Y: roundf(off.Y * float32(size.Y)),
	}
}

// PixelScale converts a quad back to its pixel size on a surface of size.
func PixelScale(q Quad, size image.Point) image.Point {
	return image.Point{
		X: roundf(q.Width * float32(size.X)),
		Y: roundf(q.Height * float32(size.Y)),
	}
}

func roundf(v float32) int {
	if v < 0 {
		return -int(-v + 0.5)
	}
	return int(v + 0.5)
}
