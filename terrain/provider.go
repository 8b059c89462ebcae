package terrain

import (
	"math"

	"github.com/gogpu/globe/tiling"
)

// heightmapWidth is the sample grid width assumed when estimating the
// geometric error of heightmap tiles.
const heightmapWidth = 65

// TerrainProvider describes a source of tile geometry.
type TerrainProvider interface {
	// TilingScheme returns the scheme the provider's tiles are addressed in.
	TilingScheme() tiling.TilingScheme

	// LevelMaximumGeometricError returns the maximum deviation, in meters,
	// of a tile at the level from the true surface. Errors halve with each
	// level.
	LevelMaximumGeometricError(level int) float64
}

// EllipsoidTerrainProvider supplies smooth ellipsoid geometry with no height
// data. It is the provider used when no real terrain source is configured.
type EllipsoidTerrainProvider struct {
	scheme    tiling.TilingScheme
	levelZero float64
}

// NewEllipsoidTerrainProvider creates an ellipsoid provider on the scheme, or
// on a geographic scheme over WGS84 when scheme is nil.
func NewEllipsoidTerrainProvider(scheme tiling.TilingScheme) *EllipsoidTerrainProvider {
	if scheme == nil {
		scheme = tiling.NewGeographicTilingScheme()
	}
	p := &EllipsoidTerrainProvider{scheme: scheme}
	p.levelZero = estimateLevelZeroError(scheme, heightmapWidth)
	return p
}

// estimateLevelZeroError derives the level-zero geometric error from the
// ellipsoid circumference, the tile sample density, and the level-zero tile
// count. The 0.25 factor matches a heightmap whose samples are treated as
// quarter-wavelength deviations.
func estimateLevelZeroError(scheme tiling.TilingScheme, samplesPerTile int) float64 {
	e := scheme.Ellipsoid()
	circumference := 2 * math.Pi * e.MaximumRadius()
	return circumference * 0.25 / float64(samplesPerTile*scheme.NumberOfXTilesAt(0))
}

// TilingScheme implements TerrainProvider.
func (p *EllipsoidTerrainProvider) TilingScheme() tiling.TilingScheme { return p.scheme }

// LevelMaximumGeometricError implements TerrainProvider.
func (p *EllipsoidTerrainProvider) LevelMaximumGeometricError(level int) float64 {
	return p.levelZero / float64(int(1)<<uint(level))
}
