package tiles

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewport_Enumerate_nabewari(t *testing.T) {
	vp := Viewport{Width: 600, Height: 400}
	topLeft := NewAnchor(nabewari, 15).Pixel(10)
	require.Equal(t, PixelPosition{X: 232388, Y: 103443, Zoom: 10}, topLeft)

	items := vp.Enumerate(topLeft)
	// columns 907..910, rows 404..405, x-major
	want := []DrawItem{
		{Address: TileAddress{10, 907, 404}, Start: image.Pt(-196, -19)},
		{Address: TileAddress{10, 907, 405}, Start: image.Pt(-196, 237)},
		{Address: TileAddress{10, 908, 404}, Start: image.Pt(60, -19)},
		{Address: TileAddress{10, 908, 405}, Start: image.Pt(60, 237)},
		{Address: TileAddress{10, 909, 404}, Start: image.Pt(316, -19)},
		{Address: TileAddress{10, 909, 405}, Start: image.Pt(316, 237)},
		{Address: TileAddress{10, 910, 404}, Start: image.Pt(572, -19)},
		{Address: TileAddress{10, 910, 405}, Start: image.Pt(572, 237)},
	}
	assert.Equal(t, want, items)
}

func TestViewport_Enumerate_count(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		offset        image.Point
		cols, rows    int
	}{
		{name: "aligned single tile", width: 256, height: 256, offset: image.Pt(0, 0), cols: 1, rows: 1},
		{name: "aligned two tiles wide", width: 512, height: 256, offset: image.Pt(0, 0), cols: 2, rows: 1},
		{name: "one pixel over", width: 257, height: 256, offset: image.Pt(0, 0), cols: 2, rows: 1},
		{name: "offset spills over", width: 256, height: 256, offset: image.Pt(255, 255), cols: 2, rows: 2},
		{name: "600x400 offset 10,20", width: 600, height: 400, offset: image.Pt(10, 20), cols: 3, rows: 2},
		{name: "600x400 offset 200,200", width: 600, height: 400, offset: image.Pt(200, 200), cols: 4, rows: 3},
		{name: "single pixel", width: 1, height: 1, offset: image.Pt(128, 128), cols: 1, rows: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vp := Viewport{Width: tt.width, Height: tt.height}
			topLeft := PixelPosition{X: 3*TileSize + tt.offset.X, Y: 4*TileSize + tt.offset.Y, Zoom: 5}
			items := vp.Enumerate(topLeft)

			assert.Len(t, items, tt.cols*tt.rows)
			want := ((tt.width+tt.offset.X-1)/TileSize + 1) * ((tt.height+tt.offset.Y-1)/TileSize + 1)
			assert.Len(t, items, want)
			assert.Equal(t, TileAddress{5, 3, 4}, items[0].Address)
			assert.Equal(t, image.Pt(-tt.offset.X, -tt.offset.Y), items[0].Start)
		})
	}
}

// coverage paints every tile placement on a viewport-sized grid and returns
// how often each pixel was painted.
func coverage(vp Viewport, items []DrawItem) []int {
	grid := make([]int, vp.Width*vp.Height)
	view := image.Rect(0, 0, vp.Width, vp.Height)
	for _, it := range items {
		r := image.Rectangle{Min: it.Start, Max: it.Start.Add(image.Pt(TileSize, TileSize))}.Intersect(view)
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				grid[y*vp.Width+x]++
			}
		}
	}
	return grid
}

func TestViewport_Enumerate_coversExactlyOnce(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	for i := 0; i < 40; i++ {
		vp := Viewport{Width: 1 + r.Intn(700), Height: 1 + r.Intn(500)}
		zoom := 4 + r.Intn(10)
		size := RasterSize(zoom)
		topLeft := PixelPosition{
			X:    r.Intn(size - vp.Width),
			Y:    r.Intn(size - vp.Height),
			Zoom: zoom,
		}
		items := vp.Enumerate(topLeft)

		seen := make(map[TileAddress]bool)
		for _, it := range items {
			assert.True(t, it.Address.Valid(), "%v", it.Address)
			assert.False(t, seen[it.Address], "tile %v requested twice", it.Address)
			seen[it.Address] = true
			// every tile touches the viewport
			assert.Less(t, it.Start.X, vp.Width)
			assert.Less(t, it.Start.Y, vp.Height)
			assert.Greater(t, it.Start.X+TileSize, 0)
			assert.Greater(t, it.Start.Y+TileSize, 0)
		}

		for idx, n := range coverage(vp, items) {
			if !assert.Equal(t, 1, n, "viewport %v at %v, pixel %d,%d", vp, topLeft, idx%vp.Width, idx/vp.Width) {
				break
			}
		}
	}
}

func TestViewport_Enumerate_wrapsLongitude(t *testing.T) {
	vp := Viewport{Width: 300, Height: 256}
	items := vp.Enumerate(PixelPosition{X: -100, Y: 0, Zoom: 1})
	require.Len(t, items, 2)
	assert.Equal(t, DrawItem{Address: TileAddress{1, 1, 0}, Start: image.Pt(-156, 0)}, items[0])
	assert.Equal(t, DrawItem{Address: TileAddress{1, 0, 0}, Start: image.Pt(100, 0)}, items[1])
}

func TestViewport_Enumerate_dropsRowsBeyondPoles(t *testing.T) {
	vp := Viewport{Width: 256, Height: 600}
	items := vp.Enumerate(PixelPosition{X: 0, Y: -300, Zoom: 0})
	// rows -2, -1 and 1 are outside a single-tile world
	require.Len(t, items, 1)
	assert.Equal(t, DrawItem{Address: TileAddress{0, 0, 0}, Start: image.Pt(0, 300)}, items[0])

	for _, it := range vp.Enumerate(PixelPosition{X: 700, Y: 900, Zoom: 2}) {
		assert.True(t, it.Address.Valid(), "%v", it.Address)
	}
}

func TestViewport_Validate(t *testing.T) {
	assert.NoError(t, Viewport{Width: 1, Height: 1}.Validate())
	assert.ErrorIs(t, Viewport{Width: 0, Height: 1}.Validate(), ErrInvalidCoordinate)
	assert.ErrorIs(t, Viewport{Width: 10, Height: -1}.Validate(), ErrInvalidCoordinate)
}

func TestViewport_Bound(t *testing.T) {
	vp := Viewport{Width: 600, Height: 400}
	topLeft := CenteredAnchor(nabewari, 10, vp, 15).Pixel(10)
	b := vp.Bound(topLeft)
	assert.True(t, b.Contains(nabewari.Point()), "%v", b)
	assert.Less(t, b.Min.Lon(), b.Max.Lon())
	assert.Less(t, b.Min.Lat(), b.Max.Lat())
}
