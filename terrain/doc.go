// Package terrain supplies tile geometry: geometric-error estimates used for
// level-of-detail selection and heightmap meshing.
//
// A TerrainProvider describes how a terrain source is tiled and how much a
// tile at each level deviates from the true surface. EllipsoidTerrainProvider
// is the degenerate provider with zero heights everywhere; it still reports a
// meaningful geometric error so screen-space LOD selection works without real
// terrain data.
//
// HeightmapData holds a regular grid of height samples for one tile. Meshing
// runs on a Mesher worker pool so decode-heavy tiles do not stall the frame
// loop; results carry vertex and index slices ready for a gpu.BufferPool.
package terrain
