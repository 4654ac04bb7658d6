package tiles

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

const (
	TileSize           = 256
	tileShift          = 8 // log2(TileSize)
	earthCircumference = 40075016.686 // meters at equator

	// MaxLatitude is the Mercator latitude clamp, atan(sinh(pi)) in degrees.
	MaxLatitude = 85.05112878
)

// ErrInvalidCoordinate is returned for latitudes outside [-90, 90] and zoom
// levels outside the configured range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// GeoPosition is a geographical point. Lon is always normalized to [-180, 180).
type GeoPosition struct {
	Lat, Lon float64
}

// NewGeoPosition validates lat and normalizes lon.
func NewGeoPosition(lat, lon float64) (GeoPosition, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return GeoPosition{}, fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, lat)
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return GeoPosition{}, fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, lon)
	}
	return GeoPosition{Lat: lat, Lon: NormalizeLongitude(lon)}, nil
}

// Point returns the position as an orb point (lon, lat).
func (g GeoPosition) Point() orb.Point {
	return orb.Point{g.Lon, g.Lat}
}

func (g GeoPosition) String() string {
	return fmt.Sprintf("(%.7f, %.7f)", g.Lat, g.Lon)
}

// NormalizeLongitude wraps deg into [-180, 180).
func NormalizeLongitude(deg float64) float64 {
	lon := deg - 360*math.Floor((deg+180)/360)
	// rounding can land exactly on the excluded bound
	if lon >= 180 {
		lon -= 360
	} else if lon < -180 {
		lon += 360
	}
	return lon
}

// PixelPosition is a pixel of the global raster at Zoom. The raster is
// TileSize * 2^Zoom pixels wide and high.
type PixelPosition struct {
	X, Y, Zoom int
}

// Tile returns the address of the tile containing p.
func (p PixelPosition) Tile() TileAddress {
	// arithmetic shift is floor division, also for negative pixels
	return TileAddress{Zoom: p.Zoom, X: p.X >> tileShift, Y: p.Y >> tileShift}
}

// WithinTile returns the pixel index inside the containing tile, in [0, 255].
func (p PixelPosition) WithinTile() image.Point {
	return image.Point{X: p.X & (TileSize - 1), Y: p.Y & (TileSize - 1)}
}

// Wrap reduces X modulo the raster width. Y is left alone, the poles do not wrap.
func (p PixelPosition) Wrap() PixelPosition {
	w := RasterSize(p.Zoom)
	p.X = ((p.X % w) + w) % w
	return p
}

// Rescale converts p to another zoom level with arithmetic shifts. Going to a
// coarser zoom drops the low bits.
func Rescale(p PixelPosition, zoom int) PixelPosition {
	if p.Zoom >= zoom {
		d := uint(p.Zoom - zoom)
		return PixelPosition{X: p.X >> d, Y: p.Y >> d, Zoom: zoom}
	}
	d := uint(zoom - p.Zoom)
	return PixelPosition{X: p.X << d, Y: p.Y << d, Zoom: zoom}
}

// RasterSize is the side of the global raster in pixels at zoom.
func RasterSize(zoom int) int {
	return TileSize << uint(zoom)
}

// TileAddress represents map tile coordinates
type TileAddress struct {
	Zoom, X, Y int
}

// Valid reports whether the address lies in [0, 2^Zoom-1] on both axes.
func (t TileAddress) Valid() bool {
	n := 1 << uint(t.Zoom)
	return t.Zoom >= 0 && t.X >= 0 && t.X < n && t.Y >= 0 && t.Y < n
}

func (t TileAddress) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Zoom, t.X, t.Y)
}

func (t TileAddress) MapTile() maptile.Tile {
	return maptile.New(uint32(t.X), uint32(t.Y), maptile.Zoom(t.Zoom))
}

// Bound is the geographic extent of the tile.
func (t TileAddress) Bound() orb.Bound {
	return t.MapTile().Bound()
}

// Project converts a geographical position to a global pixel at zoom using
// spherical Mercator. Latitudes beyond MaxLatitude are clamped and the
// longitude is normalized, so X always lies on the raster.
func Project(g GeoPosition, zoom int) PixelPosition {
	lat := math.Max(-MaxLatitude, math.Min(MaxLatitude, g.Lat))
	scale := float64(int64(1) << uint(zoom+7))
	x := scale * (NormalizeLongitude(g.Lon)/180 + 1)
	y := scale / math.Pi * (-math.Atanh(math.Sin(deg2rad(lat))) + math.Atanh(math.Sin(deg2rad(MaxLatitude))))
	return PixelPosition{X: int(math.Round(x)), Y: int(math.Round(y)), Zoom: zoom}
}

// Unproject converts a global pixel back to a geographical position.
func Unproject(p PixelPosition) GeoPosition {
	scale := float64(int64(1) << uint(p.Zoom+7))
	lon := 180 * (float64(p.X)/scale - 1)
	v := math.Atanh(math.Sin(deg2rad(MaxLatitude))) - float64(p.Y)*math.Pi/scale
	lat := rad2deg(math.Asin(math.Tanh(v)))
	return GeoPosition{Lat: lat, Lon: NormalizeLongitude(lon)}
}

// CheckZoom returns ErrInvalidCoordinate unless min <= zoom <= max.
func CheckZoom(zoom, min, max int) error {
	if zoom < min || zoom > max {
		return fmt.Errorf("%w: zoom %d outside [%d, %d]", ErrInvalidCoordinate, zoom, min, max)
	}
	return nil
}

// MetersPerPixel calculates the meters per pixel at a given latitude and zoom level
func MetersPerPixel(latitude float64, zoom int) float64 {
	return earthCircumference * math.Cos(deg2rad(latitude)) / float64(RasterSize(zoom))
}

func deg2rad(deg float64) float64 { return math.Pi / 180 * deg }

func rad2deg(rad float64) float64 { return 180 / math.Pi * rad }
