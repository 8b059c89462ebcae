package geo

import "math"

// Ellipsoid is a quadratic surface defined by three radii along the
// coordinate axes. It converts between geodetic (Cartographic) and ECEF
// (Cartesian3) positions.
//
// Ellipsoid values are immutable after construction; the zero value is not
// usable — construct with NewEllipsoid, WGS84, or UnitSphere.
type Ellipsoid struct {
	radii         Cartesian3
	radiiSquared  Cartesian3
	oneOverRadiiS Cartesian3
	maximumRadius float64
	minimumRadius float64
}

// NewEllipsoid creates an ellipsoid with the given radii in meters.
// Radii must be positive.
func NewEllipsoid(x, y, z float64) *Ellipsoid {
	if x <= 0 || y <= 0 || z <= 0 {
		panic("geo: ellipsoid radii must be positive")
	}
	return &Ellipsoid{
		radii:         Cartesian3{x, y, z},
		radiiSquared:  Cartesian3{x * x, y * y, z * z},
		oneOverRadiiS: Cartesian3{1 / (x * x), 1 / (y * y), 1 / (z * z)},
		maximumRadius: math.Max(x, math.Max(y, z)),
		minimumRadius: math.Min(x, math.Min(y, z)),
	}
}

// WGS84 returns the WGS84 reference ellipsoid.
func WGS84() *Ellipsoid {
	return NewEllipsoid(6378137.0, 6378137.0, 6356752.3142451793)
}

// UnitSphere returns a sphere of radius 1, useful in tests where texel
// spacing and geometric error should come out in round numbers.
func UnitSphere() *Ellipsoid {
	return NewEllipsoid(1, 1, 1)
}

// Radii returns the ellipsoid radii along X, Y, Z.
func (e *Ellipsoid) Radii() Cartesian3 { return e.radii }

// MaximumRadius returns the largest of the three radii.
func (e *Ellipsoid) MaximumRadius() float64 { return e.maximumRadius }

// MinimumRadius returns the smallest of the three radii.
func (e *Ellipsoid) MinimumRadius() float64 { return e.minimumRadius }

// GeodeticSurfaceNormal returns the outward unit normal of the ellipsoid
// surface at the given geodetic position.
func (e *Ellipsoid) GeodeticSurfaceNormal(c Cartographic) Cartesian3 {
	cosLat := math.Cos(c.Latitude)
	return Cartesian3{
		X: cosLat * math.Cos(c.Longitude),
		Y: cosLat * math.Sin(c.Longitude),
		Z: math.Sin(c.Latitude),
	}
}

// CartographicToCartesian converts a geodetic position to ECEF.
func (e *Ellipsoid) CartographicToCartesian(c Cartographic) Cartesian3 {
	n := e.GeodeticSurfaceNormal(c)
	k := e.radiiSquared.MultiplyComponents(n)
	gamma := math.Sqrt(n.Dot(k))
	surface := k.Scale(1 / gamma)
	return surface.Add(n.Scale(c.Height))
}

// CartesianToCartographic converts an ECEF position to geodetic.
// It uses an iterative scaling onto the surface; positions at the exact
// center of the ellipsoid are not representable and return the zero value.
func (e *Ellipsoid) CartesianToCartographic(p Cartesian3) Cartographic {
	surface, ok := e.scaleToGeodeticSurface(p)
	if !ok {
		return Cartographic{}
	}
	n := Cartesian3{
		X: surface.X * e.oneOverRadiiS.X,
		Y: surface.Y * e.oneOverRadiiS.Y,
		Z: surface.Z * e.oneOverRadiiS.Z,
	}.Normalize()
	h := p.Sub(surface)
	height := math.Copysign(h.Magnitude(), h.Dot(p))
	return Cartographic{
		Longitude: math.Atan2(n.Y, n.X),
		Latitude:  math.Asin(n.Z),
		Height:    height,
	}
}

// scaleToGeodeticSurface projects p onto the ellipsoid surface along the
// geodetic normal. Newton iteration on the standard ellipsoid equation.
func (e *Ellipsoid) scaleToGeodeticSurface(p Cartesian3) (Cartesian3, bool) {
	x2 := p.X * p.X * e.oneOverRadiiS.X
	y2 := p.Y * p.Y * e.oneOverRadiiS.Y
	z2 := p.Z * p.Z * e.oneOverRadiiS.Z
	squaredNorm := x2 + y2 + z2
	if squaredNorm == 0 {
		return Cartesian3{}, false
	}
	ratio := math.Sqrt(1 / squaredNorm)
	intersection := p.Scale(ratio)
	if squaredNorm < 1e-10 {
		return intersection, true
	}

	// Newton iteration for the multiplier lambda of the gradient.
	gradient := Cartesian3{
		X: intersection.X * e.oneOverRadiiS.X * 2,
		Y: intersection.Y * e.oneOverRadiiS.Y * 2,
		Z: intersection.Z * e.oneOverRadiiS.Z * 2,
	}
	lambda := (1 - ratio) * p.Magnitude() / (0.5 * gradient.Magnitude())
	var correction float64

	for i := 0; i < 32; i++ {
		lambda -= correction
		xm := 1 / (1 + lambda*e.oneOverRadiiS.X)
		ym := 1 / (1 + lambda*e.oneOverRadiiS.Y)
		zm := 1 / (1 + lambda*e.oneOverRadiiS.Z)
		fn := x2*xm*xm + y2*ym*ym + z2*zm*zm - 1
		if math.Abs(fn) < 1e-12 {
			break
		}
		denom := x2*xm*xm*xm*e.oneOverRadiiS.X +
			y2*ym*ym*ym*e.oneOverRadiiS.Y +
			z2*zm*zm*zm*e.oneOverRadiiS.Z
		correction = fn / (-2 * denom)
	}

	return Cartesian3{
		X: p.X / (1 + lambda*e.oneOverRadiiS.X),
		Y: p.Y / (1 + lambda*e.oneOverRadiiS.Y),
		Z: p.Z / (1 + lambda*e.oneOverRadiiS.Z),
	}, true
}
