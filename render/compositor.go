package render

import (
	"fmt"
	"image"
	"log/slog"

	"gioui.org/f32"
	"github.com/olablt/gio-tiles/tiles"
)

const DefaultTextureCacheSize = 128

// Compositor uploads frame tiles as textures and draws them on a surface.
// The tile quad is fixed when the compositor is created; textures are kept
// per tile address and released when evicted.
type Compositor struct {
	surface  Surface
	size     TileGeometry
	textures *tiles.Cache[textureEntry]
	capacity int
	logger   *slog.Logger
}

// textureEntry remembers which image a texture was uploaded from. Tile images
// are pointers, so a new image for the same address is detected by identity.
type textureEntry struct {
	src image.Image
	tex Texture
}

// TileGeometry is the surface size and the quad derived from it.
type TileGeometry struct {
	Width, Height int
	Quad          Quad
}

func NewCompositor(surface Surface, textureCacheSize int) (*Compositor, error) {
	if surface == nil {
		return nil, ErrSurfaceLost
	}
	size := surface.Size()
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: surface size %v", ErrSurfaceLost, size)
	}
	if textureCacheSize <= 0 {
		textureCacheSize = DefaultTextureCacheSize
	}
	textures, err := tiles.NewCache[textureEntry](textureCacheSize, func(_ tiles.TileAddress, e textureEntry) {
		surface.Release(e.tex)
	})
	if err != nil {
		return nil, err
	}
	return &Compositor{
		surface: surface,
		size: TileGeometry{
			Width:  size.X,
			Height: size.Y,
			Quad: Quad{
				Width:  float32(tiles.TileSize) / float32(size.X),
				Height: float32(tiles.TileSize) / float32(size.Y),
			},
		},
		textures: textures,
		capacity: textureCacheSize,
		logger:   slog.With("component", "compositor"),
	}, nil
}

func (c *Compositor) Geometry() TileGeometry {
	return c.size
}

// Instances normalizes the tile start offsets of frame to viewport units and
// attaches a texture to each, uploading those not cached yet.
func (c *Compositor) Instances(frame tiles.Frame) ([]Instance, error) {
	if frame.Viewport.Width != c.size.Width || frame.Viewport.Height != c.size.Height {
		return nil, fmt.Errorf("%w: frame %dx%d, surface %dx%d", ErrViewportMismatch,
			frame.Viewport.Width, frame.Viewport.Height, c.size.Width, c.size.Height)
	}

	// a texture must not be evicted while its frame is being drawn
	if len(frame.Tiles) > c.capacity {
		c.capacity = len(frame.Tiles)
		c.textures.Resize(c.capacity)
	}

	instances := make([]Instance, 0, len(frame.Tiles))
	for _, t := range frame.Tiles {
		e, ok := c.textures.Get(t.Address)
		if !ok || e.src != t.Image {
			tex, err := c.surface.Upload(t.Image)
			if err != nil {
				return nil, fmt.Errorf("upload tile %s: %w", t.Address, err)
			}
			// replacing an entry does not evict it
			if ok {
				c.surface.Release(e.tex)
			}
			e = textureEntry{src: t.Image, tex: tex}
			c.textures.Set(t.Address, e)
		}
		instances = append(instances, Instance{
			Texture: e.tex,
			Offset: f32.Point{
				X: float32(t.Start.X) / float32(c.size.Width),
				Y: float32(t.Start.Y) / float32(c.size.Height),
			},
		})
	}
	return instances, nil
}

// Draw composites frame with one instance per tile.
func (c *Compositor) Draw(frame tiles.Frame) error {
	instances, err := c.Instances(frame)
	if err != nil {
		return err
	}
	if err := c.surface.Draw(c.size.Quad, instances); err != nil {
		c.logger.Error("Draw failed", "generation", frame.Generation, "error", err)
		return fmt.Errorf("draw frame %d: %w", frame.Generation, err)
	}
	return nil
}

// Reset drops every cached texture.
func (c *Compositor) Reset() {
	c.textures.Clear()
}
