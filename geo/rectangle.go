package geo

import "math"

// Rectangle is a geodetic extent bounded by two meridians and two parallels,
// all in radians. East must be greater than West and North greater than South
// for the rectangle to be non-empty; the crossing of the antimeridian is not
// modeled here.
type Rectangle struct {
	West  float64
	South float64
	East  float64
	North float64
}

// MaxRectangle is the largest representable extent: the full globe.
func MaxRectangle() Rectangle {
	return Rectangle{
		West:  -math.Pi,
		South: -math.Pi / 2,
		East:  math.Pi,
		North: math.Pi / 2,
	}
}

// RectangleFromDegrees builds a Rectangle from bounds given in degrees.
func RectangleFromDegrees(west, south, east, north float64) Rectangle {
	const d2r = math.Pi / 180
	return Rectangle{West: west * d2r, South: south * d2r, East: east * d2r, North: north * d2r}
}

// Width returns East - West.
func (r Rectangle) Width() float64 { return r.East - r.West }

// Height returns North - South.
func (r Rectangle) Height() float64 { return r.North - r.South }

// IsEmpty reports whether the rectangle encloses no area.
func (r Rectangle) IsEmpty() bool {
	return r.East <= r.West || r.North <= r.South
}

// Center returns the geodetic center of the rectangle at height zero.
func (r Rectangle) Center() Cartographic {
	return Cartographic{
		Longitude: (r.West + r.East) / 2,
		Latitude:  (r.South + r.North) / 2,
	}
}

// Intersection returns the overlap of r and other. The result is empty
// (IsEmpty reports true) when the rectangles are disjoint.
func (r Rectangle) Intersection(other Rectangle) Rectangle {
	return Rectangle{
		West:  math.Max(r.West, other.West),
		South: math.Max(r.South, other.South),
		East:  math.Min(r.East, other.East),
		North: math.Min(r.North, other.North),
	}
}

// Contains reports whether the position lies inside or on the boundary of r.
func (r Rectangle) Contains(c Cartographic) bool {
	return c.Longitude >= r.West && c.Longitude <= r.East &&
		c.Latitude >= r.South && c.Latitude <= r.North
}

// LatitudeClosestToEquator returns the latitude within [South, North] nearest
// to the equator: zero when the rectangle straddles it, otherwise the bound
// closer to zero. Texel spacing is least distorted at this latitude, so LOD
// selection samples it rather than the rectangle center.
func (r Rectangle) LatitudeClosestToEquator() float64 {
	if r.South > 0 {
		return r.South
	}
	if r.North < 0 {
		return r.North
	}
	return 0
}

// Subsample returns representative surface points of the rectangle on the
// ellipsoid: the four corners and the midpoints of each edge and the center.
// Used to derive bounding volumes.
func (r Rectangle) Subsample(e *Ellipsoid) []Cartesian3 {
	lons := []float64{r.West, (r.West + r.East) / 2, r.East}
	lats := []float64{r.South, (r.South + r.North) / 2, r.North}
	points := make([]Cartesian3, 0, 9)
	for _, lat := range lats {
		for _, lon := range lons {
			points = append(points, e.CartographicToCartesian(Cartographic{Longitude: lon, Latitude: lat}))
		}
	}
	// When the rectangle spans the equator the widest ring is at latitude 0,
	// not at either bound; include it so the sphere bounds the bulge.
	if r.South < 0 && r.North > 0 {
		for _, lon := range lons {
			points = append(points, e.CartographicToCartesian(Cartographic{Longitude: lon}))
		}
	}
	return points
}
