package tiling

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"

	"github.com/gogpu/globe/geo"
)

// WebMercatorTilingScheme tiles the EPSG:3857 square, the layout used by
// slippy-map imagery servers. Level zero is a single tile covering the globe
// between the mercator latitude limits. Native coordinates are meters.
type WebMercatorTilingScheme struct {
	ellipsoid  *geo.Ellipsoid
	rectangle  geo.Rectangle
	projection *geo.WebMercatorProjection
}

// NewWebMercatorTilingScheme creates a web mercator tiling scheme on the
// ellipsoid, or WGS84 when e is nil.
func NewWebMercatorTilingScheme(e *geo.Ellipsoid) *WebMercatorTilingScheme {
	if e == nil {
		e = geo.WGS84()
	}
	return &WebMercatorTilingScheme{
		ellipsoid: e,
		rectangle: geo.Rectangle{
			West:  -math.Pi,
			South: -geo.MaximumMercatorLatitude,
			East:  math.Pi,
			North: geo.MaximumMercatorLatitude,
		},
		projection: geo.NewWebMercatorProjection(e),
	}
}

// Ellipsoid implements TilingScheme.
func (s *WebMercatorTilingScheme) Ellipsoid() *geo.Ellipsoid { return s.ellipsoid }

// Rectangle implements TilingScheme.
func (s *WebMercatorTilingScheme) Rectangle() geo.Rectangle { return s.rectangle }

// Projection implements TilingScheme.
func (s *WebMercatorTilingScheme) Projection() geo.Projection { return s.projection }

// NumberOfXTilesAt implements TilingScheme.
func (s *WebMercatorTilingScheme) NumberOfXTilesAt(level int) int {
	return 1 << uint(level)
}

// NumberOfYTilesAt implements TilingScheme.
func (s *WebMercatorTilingScheme) NumberOfYTilesAt(level int) int {
	return 1 << uint(level)
}

// TileXYToRectangle implements TilingScheme.
func (s *WebMercatorTilingScheme) TileXYToRectangle(x, y, level int) geo.Rectangle {
	const d2r = math.Pi / 180
	b := maptile.New(uint32(x), uint32(y), maptile.Zoom(level)).Bound()
	return geo.Rectangle{
		West:  b.Min[0] * d2r,
		South: b.Min[1] * d2r,
		East:  b.Max[0] * d2r,
		North: b.Max[1] * d2r,
	}
}

// TileXYToNativeRectangle implements TilingScheme. Native coordinates for the
// web mercator scheme are meters.
func (s *WebMercatorTilingScheme) TileXYToNativeRectangle(x, y, level int) geo.Rectangle {
	return s.RectangleToNativeRectangle(s.TileXYToRectangle(x, y, level))
}

// RectangleToNativeRectangle implements TilingScheme.
func (s *WebMercatorTilingScheme) RectangleToNativeRectangle(r geo.Rectangle) geo.Rectangle {
	return geo.ProjectedRectangle(r, s.projection)
}

// PositionToTileXY implements TilingScheme.
func (s *WebMercatorTilingScheme) PositionToTileXY(c geo.Cartographic, level int) (int, int, bool) {
	if !s.rectangle.Contains(c) {
		return 0, 0, false
	}

	const r2d = 180 / math.Pi
	// maptile.At clamps internally, but positions exactly on the south or
	// east edge would land one past the last tile; nudge them inward.
	tiles := 1 << uint(level)
	t := maptile.At(orb.Point{c.Longitude * r2d, c.Latitude * r2d}, maptile.Zoom(level))
	x, y := int(t.X), int(t.Y)
	if x >= tiles {
		x = tiles - 1
	}
	if y >= tiles {
		y = tiles - 1
	}
	return x, y, true
}
