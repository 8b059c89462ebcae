// Package geo provides the geodetic math underlying globe's tile streaming:
// double-precision cartesian vectors, geodetic rectangles in radians,
// the WGS84 ellipsoid, bounding spheres, and map projections.
//
// # Conventions
//
//   - Angles are radians unless a name says otherwise.
//   - Longitude is positive east, latitude positive north.
//   - Cartesian coordinates are earth-centered, earth-fixed (ECEF):
//     +X through (0, 0), +Y through (0, 90°E), +Z through the north pole.
//
// # Rectangles
//
// A Rectangle is a geodetic extent [West, East] x [South, North]. An empty
// rectangle (East <= West or North <= South) represents "no overlap" and is
// what Intersection returns for disjoint inputs.
package geo
