package geo

import "math"

// Projection maps geodetic positions to a planar coordinate system and back.
// Implementations in this package keep Z equal to the geodetic height.
//
// Projection identity matters to callers that memoize projected values: the
// same *GeographicProjection pointer passed twice must not invalidate a
// cache, so projections are constructed once and shared.
type Projection interface {
	// Ellipsoid returns the ellipsoid the projection is defined on.
	Ellipsoid() *Ellipsoid

	// Project maps a geodetic position to planar coordinates in meters.
	Project(c Cartographic) Cartesian3

	// Unproject maps planar coordinates back to a geodetic position.
	Unproject(p Cartesian3) Cartographic
}

// GeographicProjection is the equirectangular (plate carrée) projection:
// longitude and latitude scaled by the ellipsoid's maximum radius.
type GeographicProjection struct {
	ellipsoid *Ellipsoid
}

// NewGeographicProjection creates a geographic projection on the ellipsoid.
func NewGeographicProjection(e *Ellipsoid) *GeographicProjection {
	return &GeographicProjection{ellipsoid: e}
}

// Ellipsoid returns the projection's ellipsoid.
func (p *GeographicProjection) Ellipsoid() *Ellipsoid { return p.ellipsoid }

// Project implements Projection.
func (p *GeographicProjection) Project(c Cartographic) Cartesian3 {
	r := p.ellipsoid.MaximumRadius()
	return Cartesian3{X: c.Longitude * r, Y: c.Latitude * r, Z: c.Height}
}

// Unproject implements Projection.
func (p *GeographicProjection) Unproject(pt Cartesian3) Cartographic {
	r := p.ellipsoid.MaximumRadius()
	return Cartographic{Longitude: pt.X / r, Latitude: pt.Y / r, Height: pt.Z}
}

// WebMercatorProjection is the EPSG:3857 spherical mercator projection used
// by slippy-map imagery sources.
type WebMercatorProjection struct {
	ellipsoid *Ellipsoid
}

// NewWebMercatorProjection creates a web mercator projection on the ellipsoid.
func NewWebMercatorProjection(e *Ellipsoid) *WebMercatorProjection {
	return &WebMercatorProjection{ellipsoid: e}
}

// MaximumMercatorLatitude is the latitude at which the square web mercator
// tile grid is cut off: atan(sinh(pi)), about 85.05113 degrees.
var MaximumMercatorLatitude = math.Atan(math.Sinh(math.Pi))

// Ellipsoid returns the projection's ellipsoid.
func (p *WebMercatorProjection) Ellipsoid() *Ellipsoid { return p.ellipsoid }

// GeodeticLatitudeToMercatorAngle converts a geodetic latitude to the
// mercator vertical coordinate, clamped to the mercator latitude limit.
func GeodeticLatitudeToMercatorAngle(latitude float64) float64 {
	if latitude > MaximumMercatorLatitude {
		latitude = MaximumMercatorLatitude
	} else if latitude < -MaximumMercatorLatitude {
		latitude = -MaximumMercatorLatitude
	}
	sin := math.Sin(latitude)
	return 0.5 * math.Log((1+sin)/(1-sin))
}

// MercatorAngleToGeodeticLatitude is the inverse of
// GeodeticLatitudeToMercatorAngle.
func MercatorAngleToGeodeticLatitude(angle float64) float64 {
	return math.Pi/2 - 2*math.Atan(math.Exp(-angle))
}

// Project implements Projection.
func (p *WebMercatorProjection) Project(c Cartographic) Cartesian3 {
	r := p.ellipsoid.MaximumRadius()
	return Cartesian3{
		X: c.Longitude * r,
		Y: GeodeticLatitudeToMercatorAngle(c.Latitude) * r,
		Z: c.Height,
	}
}

// Unproject implements Projection.
func (p *WebMercatorProjection) Unproject(pt Cartesian3) Cartographic {
	r := p.ellipsoid.MaximumRadius()
	return Cartographic{
		Longitude: pt.X / r,
		Latitude:  MercatorAngleToGeodeticLatitude(pt.Y / r),
		Height:    pt.Z,
	}
}
