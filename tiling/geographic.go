package tiling

import (
	"math"

	"github.com/gogpu/globe/geo"
)

// GeographicTilingScheme tiles an equirectangular projection of the ellipsoid.
// Level zero is two tiles side by side, each covering a hemisphere, so tiles
// are square in (longitude, latitude) space. Native coordinates are degrees.
type GeographicTilingScheme struct {
	ellipsoid     *geo.Ellipsoid
	rectangle     geo.Rectangle
	projection    *geo.GeographicProjection
	numXTilesAt0  int
	numYTilesAt0  int
}

// GeographicOption configures a GeographicTilingScheme.
type GeographicOption func(*GeographicTilingScheme)

// WithGeographicEllipsoid sets the ellipsoid to tile. Default is WGS84.
func WithGeographicEllipsoid(e *geo.Ellipsoid) GeographicOption {
	return func(s *GeographicTilingScheme) { s.ellipsoid = e }
}

// WithGeographicRectangle restricts the scheme to a sub-extent of the globe.
func WithGeographicRectangle(r geo.Rectangle) GeographicOption {
	return func(s *GeographicTilingScheme) { s.rectangle = r }
}

// WithLevelZeroTiles overrides the level-zero tile counts. Default is 2x1.
func WithLevelZeroTiles(x, y int) GeographicOption {
	return func(s *GeographicTilingScheme) {
		s.numXTilesAt0 = x
		s.numYTilesAt0 = y
	}
}

// NewGeographicTilingScheme creates a geographic tiling scheme covering the
// full globe on WGS84 with two level-zero tiles, unless overridden by options.
func NewGeographicTilingScheme(opts ...GeographicOption) *GeographicTilingScheme {
	s := &GeographicTilingScheme{
		ellipsoid:    geo.WGS84(),
		rectangle:    geo.MaxRectangle(),
		numXTilesAt0: 2,
		numYTilesAt0: 1,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.projection = geo.NewGeographicProjection(s.ellipsoid)
	return s
}

// Ellipsoid implements TilingScheme.
func (s *GeographicTilingScheme) Ellipsoid() *geo.Ellipsoid { return s.ellipsoid }

// Rectangle implements TilingScheme.
func (s *GeographicTilingScheme) Rectangle() geo.Rectangle { return s.rectangle }

// Projection implements TilingScheme.
func (s *GeographicTilingScheme) Projection() geo.Projection { return s.projection }

// NumberOfXTilesAt implements TilingScheme.
func (s *GeographicTilingScheme) NumberOfXTilesAt(level int) int {
	return s.numXTilesAt0 << uint(level)
}

// NumberOfYTilesAt implements TilingScheme.
func (s *GeographicTilingScheme) NumberOfYTilesAt(level int) int {
	return s.numYTilesAt0 << uint(level)
}

// TileXYToRectangle implements TilingScheme.
func (s *GeographicTilingScheme) TileXYToRectangle(x, y, level int) geo.Rectangle {
	xTiles := float64(s.NumberOfXTilesAt(level))
	yTiles := float64(s.NumberOfYTilesAt(level))

	width := s.rectangle.Width() / xTiles
	height := s.rectangle.Height() / yTiles

	return geo.Rectangle{
		West:  s.rectangle.West + float64(x)*width,
		East:  s.rectangle.West + float64(x+1)*width,
		North: s.rectangle.North - float64(y)*height,
		South: s.rectangle.North - float64(y+1)*height,
	}
}

// TileXYToNativeRectangle implements TilingScheme. Native coordinates for the
// geographic scheme are degrees.
func (s *GeographicTilingScheme) TileXYToNativeRectangle(x, y, level int) geo.Rectangle {
	return s.RectangleToNativeRectangle(s.TileXYToRectangle(x, y, level))
}

// RectangleToNativeRectangle implements TilingScheme.
func (s *GeographicTilingScheme) RectangleToNativeRectangle(r geo.Rectangle) geo.Rectangle {
	const r2d = 180 / math.Pi
	return geo.Rectangle{
		West:  r.West * r2d,
		South: r.South * r2d,
		East:  r.East * r2d,
		North: r.North * r2d,
	}
}

// PositionToTileXY implements TilingScheme.
func (s *GeographicTilingScheme) PositionToTileXY(c geo.Cartographic, level int) (int, int, bool) {
	if !s.rectangle.Contains(c) {
		return 0, 0, false
	}

	xTiles := s.NumberOfXTilesAt(level)
	yTiles := s.NumberOfYTilesAt(level)

	xTileWidth := s.rectangle.Width() / float64(xTiles)
	yTileHeight := s.rectangle.Height() / float64(yTiles)

	x := int((c.Longitude - s.rectangle.West) / xTileWidth)
	if x >= xTiles {
		x = xTiles - 1
	}
	y := int((s.rectangle.North - c.Latitude) / yTileHeight)
	if y >= yTiles {
		y = yTiles - 1
	}
	return x, y, true
}
