package geo

import "math"

// Cartesian3 is a 3D point or vector in ECEF coordinates, in meters.
type Cartesian3 struct {
	X, Y, Z float64
}

// Add returns c + other.
func (c Cartesian3) Add(other Cartesian3) Cartesian3 {
	return Cartesian3{c.X + other.X, c.Y + other.Y, c.Z + other.Z}
}

// Sub returns c - other.
func (c Cartesian3) Sub(other Cartesian3) Cartesian3 {
	return Cartesian3{c.X - other.X, c.Y - other.Y, c.Z - other.Z}
}

// Scale returns c scaled by s.
func (c Cartesian3) Scale(s float64) Cartesian3 {
	return Cartesian3{c.X * s, c.Y * s, c.Z * s}
}

// Dot returns the dot product of c and other.
func (c Cartesian3) Dot(other Cartesian3) float64 {
	return c.X*other.X + c.Y*other.Y + c.Z*other.Z
}

// Cross returns the cross product of c and other.
func (c Cartesian3) Cross(other Cartesian3) Cartesian3 {
	return Cartesian3{
		X: c.Y*other.Z - c.Z*other.Y,
		Y: c.Z*other.X - c.X*other.Z,
		Z: c.X*other.Y - c.Y*other.X,
	}
}

// Magnitude returns the Euclidean length of c.
func (c Cartesian3) Magnitude() float64 {
	return math.Sqrt(c.Dot(c))
}

// Normalize returns c scaled to unit length.
// The zero vector normalizes to itself.
func (c Cartesian3) Normalize() Cartesian3 {
	m := c.Magnitude()
	if m == 0 {
		return c
	}
	return c.Scale(1 / m)
}

// Distance returns the Euclidean distance between c and other.
func (c Cartesian3) Distance(other Cartesian3) float64 {
	return c.Sub(other).Magnitude()
}

// MultiplyComponents returns the component-wise product of c and other.
func (c Cartesian3) MultiplyComponents(other Cartesian3) Cartesian3 {
	return Cartesian3{c.X * other.X, c.Y * other.Y, c.Z * other.Z}
}

// Cartographic is a geodetic position: longitude and latitude in radians,
// height in meters above the ellipsoid surface.
type Cartographic struct {
	Longitude float64
	Latitude  float64
	Height    float64
}
