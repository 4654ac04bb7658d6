package mapview

import (
	"image"

	"gioui.org/f32"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"github.com/olablt/gio-tiles/render"
)

// GioSurface records tile draws into Gio operations; Gio's GPU renderer
// uploads the images and draws them when the frame is submitted.
type GioSurface struct {
	ops  *op.Ops
	size image.Point
}

type gioTexture struct {
	img  paint.ImageOp
	size image.Point
}

func (t gioTexture) Size() image.Point { return t.size }

func NewGioSurface(size image.Point) *GioSurface {
	return &GioSurface{size: size}
}

// Bind attaches the surface to the operation list of the current frame.
func (s *GioSurface) Bind(ops *op.Ops) {
	s.ops = ops
}

// Unbind detaches the operation list; drawing fails until the next Bind.
func (s *GioSurface) Unbind() {
	s.ops = nil
}

func (s *GioSurface) Size() image.Point { return s.size }

func (s *GioSurface) Upload(img image.Image) (render.Texture, error) {
	return gioTexture{img: paint.NewImageOp(img), size: img.Bounds().Size()}, nil
}

func (s *GioSurface) Draw(quad render.Quad, instances []render.Instance) error {
	if s.ops == nil {
		return render.ErrSurfaceLost
	}
	ops := s.ops
	defer clip.Rect{Max: s.size}.Push(ops).Pop()

	tileSize := render.PixelScale(quad, s.size)
	for _, inst := range instances {
		tex, ok := inst.Texture.(gioTexture)
		if !ok {
			return render.ErrSurfaceLost
		}
		at := render.PixelOffset(inst.Offset, s.size)
		stack := op.Offset(at).Push(ops)
		tileClip := clip.Rect{Max: tileSize}.Push(ops)
		if tex.size != tileSize && tex.size.X > 0 && tex.size.Y > 0 {
			scale := f32.Pt(float32(tileSize.X)/float32(tex.size.X), float32(tileSize.Y)/float32(tex.size.Y))
			aff := op.Affine(f32.Affine2D{}.Scale(f32.Point{}, scale)).Push(ops)
			tex.img.Add(ops)
			paint.PaintOp{}.Add(ops)
			aff.Pop()
		} else {
			tex.img.Add(ops)
			paint.PaintOp{}.Add(ops)
		}
		tileClip.Pop()
		stack.Pop()
	}
	return nil
}

// Release is a no-op, Gio frees image textures it no longer references.
func (s *GioSurface) Release(render.Texture) {}
