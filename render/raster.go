package render

import (
	"errors"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"
)

var errTextureReleased = errors.New("texture released")

// RasterSurface draws on an in-memory RGBA image.
type RasterSurface struct {
	mu         sync.Mutex
	dst        *image.RGBA
	background color.Color
	closed     bool
}

type rasterTexture struct {
	img *image.RGBA
}

func (t *rasterTexture) Size() image.Point {
	if t.img == nil {
		return image.Point{}
	}
	return t.img.Bounds().Size()
}

func NewRasterSurface(width, height int) *RasterSurface {
	return &RasterSurface{
		dst:        image.NewRGBA(image.Rect(0, 0, width, height)),
		background: color.RGBA{0xe0, 0xe0, 0xe0, 0xff},
	}
}

// SetBackground sets the color of areas no tile covers.
func (s *RasterSurface) SetBackground(c color.Color) {
	s.mu.Lock()
	s.background = c
	s.mu.Unlock()
}

func (s *RasterSurface) Size() image.Point {
	return s.dst.Bounds().Size()
}

// Image returns the drawn image. It is overwritten by the next Draw.
func (s *RasterSurface) Image() *image.RGBA {
	return s.dst
}

func (s *RasterSurface) Upload(img image.Image) (Texture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSurfaceLost
	}
	if img == nil {
		return nil, errors.New("nil image")
	}
	b := img.Bounds()
	tex := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(tex, image.Point{}, img, b, draw.Src, nil)
	return &rasterTexture{img: tex}, nil
}

// Draw clears the surface and paints each instance, scaling textures to the
// quad size. Tiles reaching past the edge are clipped.
func (s *RasterSurface) Draw(quad Quad, instances []Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSurfaceLost
	}

	size := s.dst.Bounds().Size()
	tileSize := PixelScale(quad, size)
	draw.Draw(s.dst, s.dst.Bounds(), image.NewUniform(s.background), image.Point{}, draw.Src)

	for _, inst := range instances {
		tex, ok := inst.Texture.(*rasterTexture)
		if !ok || tex.img == nil {
			return errTextureReleased
		}
		at := PixelOffset(inst.Offset, size)
		r := image.Rectangle{Min: at, Max: at.Add(tileSize)}
		if tex.img.Bounds().Size() == tileSize {
			draw.Draw(s.dst, r, tex.img, image.Point{}, draw.Src)
			continue
		}
		draw.ApproxBiLinear.Scale(s.dst, r, tex.img, tex.img.Bounds(), draw.Src, nil)
	}
	return nil
}

func (s *RasterSurface) Release(tex Texture) {
	if t, ok := tex.(*rasterTexture); ok {
		s.mu.Lock()
		t.img = nil
		s.mu.Unlock()
	}
}

// Close invalidates the surface; later calls fail with ErrSurfaceLost.
func (s *RasterSurface) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
