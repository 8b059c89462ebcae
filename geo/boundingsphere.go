package geo

import "math"

// BoundingSphere is a sphere enclosing a set of positions, used for culling.
type BoundingSphere struct {
	Center Cartesian3
	Radius float64
}

// BoundingSphereFromPoints returns the smallest sphere centered at the
// centroid of points that encloses all of them. Not the minimal enclosing
// sphere, but tight enough for culling and cheap to compute.
func BoundingSphereFromPoints(points []Cartesian3) BoundingSphere {
	if len(points) == 0 {
		return BoundingSphere{}
	}
	var center Cartesian3
	for _, p := range points {
		center = center.Add(p)
	}
	center = center.Scale(1 / float64(len(points)))

	radius := 0.0
	for _, p := range points {
		if d := center.Distance(p); d > radius {
			radius = d
		}
	}
	return BoundingSphere{Center: center, Radius: radius}
}

// BoundingSphereFromRectangle3D returns a sphere enclosing the surface patch
// covered by the rectangle on the ellipsoid.
func BoundingSphereFromRectangle3D(r Rectangle, e *Ellipsoid) BoundingSphere {
	return BoundingSphereFromPoints(r.Subsample(e))
}

// BoundingSphereFromRectangle2D returns a sphere enclosing the rectangle
// after projection. The sphere lies in the projection plane (Z = 0).
func BoundingSphereFromRectangle2D(r Rectangle, projection Projection) BoundingSphere {
	sw := projection.Project(Cartographic{Longitude: r.West, Latitude: r.South})
	ne := projection.Project(Cartographic{Longitude: r.East, Latitude: r.North})
	center := Cartesian3{X: (sw.X + ne.X) / 2, Y: (sw.Y + ne.Y) / 2}
	return BoundingSphere{
		Center: center,
		Radius: math.Hypot(ne.X-center.X, ne.Y-center.Y),
	}
}

// ProjectedRectangle returns the rectangle's bounds in the projection's
// native coordinates (meters for the projections in this package).
func ProjectedRectangle(r Rectangle, projection Projection) Rectangle {
	sw := projection.Project(Cartographic{Longitude: r.West, Latitude: r.South})
	ne := projection.Project(Cartographic{Longitude: r.East, Latitude: r.North})
	return Rectangle{West: sw.X, South: sw.Y, East: ne.X, North: ne.Y}
}
