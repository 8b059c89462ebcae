// Package tiling defines the mapping between geodetic extents and integer
// (level, x, y) tile addresses.
//
// Two schemes are provided: GeographicTilingScheme (equirectangular, two
// level-zero tiles) and WebMercatorTilingScheme (the slippy-map scheme used
// by most public imagery servers, one level-zero tile). In both, x grows
// east and y grows south, so tile (0, 0) is the northwest corner of each
// level.
package tiling
