// Package globe streams multi-resolution imagery and terrain over a quadtree
// of a planetary surface.
//
// # Overview
//
// A [Tile] is one quadtree node: it lazily materializes four children,
// memoizes its bounding volumes, and owns its geometry buffers and imagery
// overlay bindings. The [TileReplacementQueue] keeps every resident tile in
// an intrusive LRU list and releases payload from the least recently used
// end when the resident budget is exceeded. An [ImageryLayer] binds imagery
// tiles from one [ImagerySource] onto terrain tiles, picking the imagery
// level whose texel spacing matches the terrain's geometric error, and
// drives each binding through fetch, transform, and texture creation.
//
// # Frame loop contract
//
// Everything except the fetch goroutines runs on one goroutine. Per frame:
//
//	queue.MarkStartOfRenderFrame()
//	for each visible tile:
//	    layer.CreateTileImagerySkeletons(tile, terrainProvider) // once per tile
//	    for each binding: layer.RequestImagery(binding)
//	    queue.MarkTileRendered(tile)
//	layer.Poll()
//	for each binding: layer.TransformImagery / layer.CreateResources
//	queue.TrimTiles(budget)
//
// Fetch completions arrive in arbitrary order; bindings express progress
// purely through their state, and an issued fetch is never canceled.
//
// # Collaborators
//
// Tiling schemes live in [github.com/gogpu/globe/tiling], geometric types in
// [github.com/gogpu/globe/geo], GPU resource pools in
// [github.com/gogpu/globe/gpu], terrain geometry in
// [github.com/gogpu/globe/terrain], and ready-made imagery sources in
// source/slippy and source/mbtiles.
//
// The package logs through [SetLogger]; by default it is silent.
package globe
