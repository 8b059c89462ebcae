package globe

import (
	"math"

	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/terrain"
)

// CreateTileImagerySkeletons computes which of the layer's imagery tiles
// overlap the terrain tile at the appropriate level of detail and appends
// one unloaded binding per imagery tile to the terrain tile. It reports
// whether any overlap existed; fetch outcomes do not affect the result.
func (l *ImageryLayer) CreateTileImagerySkeletons(tile *Tile, provider terrain.TerrainProvider) bool {
	l.throwIfDestroyed()

	scheme := l.source.TilingScheme()

	rect := tile.Rectangle().
		Intersection(l.source.Rectangle()).
		Intersection(l.clip).
		Intersection(scheme.Rectangle())
	if rect.IsEmpty() {
		return false
	}

	targetError := provider.LevelMaximumGeometricError(tile.Level())
	level := l.levelWithMaximumTexelSpacing(targetError, rect.LatitudeClosestToEquator())

	nwX, nwY, ok := scheme.PositionToTileXY(geo.Cartographic{Longitude: rect.West, Latitude: rect.North}, level)
	if !ok {
		return false
	}
	seX, seY, ok := scheme.PositionToTileXY(geo.Cartographic{Longitude: rect.East, Latitude: rect.South}, level)
	if !ok {
		return false
	}

	// If a corner tile touches the overlap only along an edge, within a
	// small fraction of the terrain tile's extent, drop it: it would
	// contribute zero visible area and exists only because of
	// floating-point boundary coincidence.
	tileRect := tile.Rectangle()
	veryCloseLat := tileRect.Height() / 512
	veryCloseLon := tileRect.Width() / 512

	nwRect := scheme.TileXYToRectangle(nwX, nwY, level)
	if math.Abs(nwRect.South-rect.North) < veryCloseLat && nwY < seY {
		nwY++
	}
	if math.Abs(nwRect.East-rect.West) < veryCloseLon && nwX < seX {
		nwX++
	}
	seRect := scheme.TileXYToRectangle(seX, seY, level)
	if math.Abs(seRect.North-rect.South) < veryCloseLat && seY > nwY {
		seY--
	}
	if math.Abs(seRect.West-rect.East) < veryCloseLon && seX > nwX {
		seX--
	}

	// Placement is computed in the imagery scheme's native coordinates so
	// mercator imagery lines up on geographic terrain and vice versa.
	terrainNative := scheme.RectangleToNativeRectangle(tile.Rectangle())

	for j := nwY; j <= seY; j++ {
		for i := nwX; i <= seX; i++ {
			imageryNative := scheme.TileXYToNativeRectangle(i, j, level)
			tile.Imagery = append(tile.Imagery, &TileImagery{
				layer:  l,
				x:      i,
				y:      j,
				level:  level,
				region: textureRegion(terrainNative, imageryNative),
				State:  ImageryUnloaded,
			})
		}
	}
	return true
}

// levelWithMaximumTexelSpacing picks the imagery level whose texel spacing
// best matches the target geometric error. Rounding (not floor or ceil) is a
// deliberate tie-break between over- and under-sampling.
func (l *ImageryLayer) levelWithMaximumTexelSpacing(targetError, latitudeClosestToEquator float64) int {
	if !l.hasLevelZeroTexelSpacing {
		scheme := l.source.TilingScheme()
		l.levelZeroTexelSpacing = scheme.Ellipsoid().MaximumRadius() * 2 * math.Pi /
			float64(l.source.TileWidth()*scheme.NumberOfXTilesAt(0))
		l.hasLevelZeroTexelSpacing = true
	}

	spacing := l.levelZeroTexelSpacing * math.Cos(latitudeClosestToEquator)
	level := int(math.Round(math.Log2(spacing / targetError)))
	if level < 0 {
		level = 0
	}
	if maxLevel := l.source.MaximumLevel(); level > maxLevel {
		level = maxLevel
	}
	return level
}
