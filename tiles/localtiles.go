package tiles

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const labelPadding = 6

// PlaceholderProvider draws a labelled tile locally. It never fails and is
// used in place of tiles the server could not deliver.
type PlaceholderProvider struct {
	Background color.RGBA
	Border     color.RGBA
}

func NewPlaceholderProvider() *PlaceholderProvider {
	return &PlaceholderProvider{
		Background: color.RGBA{200, 220, 255, 255},
		Border:     color.RGBA{100, 100, 100, 255},
	}
}

func (p *PlaceholderProvider) GetTile(_ context.Context, tile TileAddress) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, TileSize, TileSize))
	draw.Draw(img, img.Bounds(), &image.Uniform{p.Background}, image.Point{}, draw.Src)

	drawLabel(img, fmt.Sprintf("zoom %d", tile.Zoom), fmt.Sprintf("%d / %d", tile.X, tile.Y))

	borders := []image.Rectangle{
		image.Rect(0, 0, TileSize, 1),
		image.Rect(0, TileSize-1, TileSize, TileSize),
		image.Rect(0, 0, 1, TileSize),
		image.Rect(TileSize-1, 0, TileSize, TileSize),
	}
	for _, rect := range borders {
		draw.Draw(img, rect, &image.Uniform{p.Border}, image.Point{}, draw.Src)
	}
	return img, nil
}

// drawLabel centres lines of text on the tile over a translucent box.
func drawLabel(img *image.RGBA, lines ...string) {
	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height
	d := &font.Drawer{Dst: img, Src: image.NewUniform(color.Black), Face: face}

	var width fixed.Int26_6
	for _, l := range lines {
		width = max(width, d.MeasureString(l))
	}
	height := lineHeight.Mul(fixed.I(len(lines)))
	origin := fixed.P(TileSize/2, TileSize/2).Sub(fixed.Point26_6{X: width / 2, Y: height / 2})

	box := image.Rectangle{
		Min: image.Pt(origin.X.Floor(), origin.Y.Floor()),
		Max: image.Pt((origin.X + width).Ceil(), (origin.Y + height).Ceil()),
	}.Inset(-labelPadding)
	draw.Draw(img, box, image.NewUniform(color.RGBA{255, 255, 255, 220}), image.Point{}, draw.Over)

	for i, l := range lines {
		d.Dot = fixed.Point26_6{
			X: origin.X + (width-d.MeasureString(l))/2,
			Y: origin.Y + lineHeight.Mul(fixed.I(i)) + face.Metrics().Ascent,
		}
		d.DrawString(l)
	}
}
