package tiling

import "github.com/gogpu/globe/geo"

// TilingScheme maps between geodetic extents and integer tile addresses at
// each level of detail. Level 0 is the coarsest level; each level doubles
// the tile count in both directions.
type TilingScheme interface {
	// Ellipsoid returns the ellipsoid tiled by the scheme.
	Ellipsoid() *geo.Ellipsoid

	// Rectangle returns the total extent covered by the scheme.
	Rectangle() geo.Rectangle

	// Projection returns the scheme's native projection.
	Projection() geo.Projection

	// NumberOfXTilesAt returns the tile count in the x direction at level.
	NumberOfXTilesAt(level int) int

	// NumberOfYTilesAt returns the tile count in the y direction at level.
	NumberOfYTilesAt(level int) int

	// TileXYToRectangle returns the geodetic extent of a tile, in radians.
	TileXYToRectangle(x, y, level int) geo.Rectangle

	// TileXYToNativeRectangle returns the extent of a tile in the scheme's
	// native coordinates (degrees for geographic, meters for web mercator).
	TileXYToNativeRectangle(x, y, level int) geo.Rectangle

	// RectangleToNativeRectangle converts a geodetic extent to the scheme's
	// native coordinates.
	RectangleToNativeRectangle(r geo.Rectangle) geo.Rectangle

	// PositionToTileXY returns the address of the tile containing the
	// position at the given level. ok is false when the position lies
	// outside the scheme's rectangle.
	PositionToTileXY(c geo.Cartographic, level int) (x, y int, ok bool)
}
