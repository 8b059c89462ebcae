package terrain

import (
	"errors"

	"github.com/gogpu/globe/geo"
)

// Heightmap errors.
var (
	// ErrBadHeightmap is returned when the sample count does not match the
	// stated grid dimensions, or the grid holds more vertices than a 16-bit
	// index can address.
	ErrBadHeightmap = errors.New("terrain: invalid heightmap grid")
)

// HeightmapData is a regular grid of height samples covering one tile.
// Samples run west to east within a row and north to south across rows, so
// the first sample is the northwest corner.
type HeightmapData struct {
	Width   int
	Height  int
	Heights []float32
}

// NewHeightmapData validates the grid dimensions against the sample slice.
// Grids larger than 65536 vertices are rejected: mesh indices are uint16.
func NewHeightmapData(width, height int, heights []float32) (*HeightmapData, error) {
	if width < 2 || height < 2 || len(heights) != width*height || width*height > 65536 {
		return nil, ErrBadHeightmap
	}
	return &HeightmapData{Width: width, Height: height, Heights: heights}, nil
}

// FlatHeightmap returns a grid of zero heights, the sample data used for
// smooth-ellipsoid tiles.
func FlatHeightmap(width, height int) *HeightmapData {
	return &HeightmapData{
		Width:   width,
		Height:  height,
		Heights: make([]float32, width*height),
	}
}

// vertexStride is the number of floats per mesh vertex:
// position x, y, z relative to the mesh center, height, u, v.
const vertexStride = 6

// Mesh is the triangulated form of one tile's heightmap, ready for upload
// through a gpu.BufferPool. Vertices are relative to Center to keep float32
// precision at high zoom.
type Mesh struct {
	Center   geo.Cartesian3
	Vertices []float32
	Indices  []uint16

	// MinimumHeight and MaximumHeight bound the sampled heights.
	MinimumHeight float64
	MaximumHeight float64

	// BoundingSphere encloses the mesh in world coordinates.
	BoundingSphere geo.BoundingSphere
}

// CreateMesh triangulates the heightmap over the tile rectangle on the
// ellipsoid. exaggeration scales heights; pass 1 for none.
func (h *HeightmapData) CreateMesh(rect geo.Rectangle, e *geo.Ellipsoid, exaggeration float64) *Mesh {
	center := e.CartographicToCartesian(rect.Center())

	first := float64(h.Heights[0]) * exaggeration
	minH, maxH := first, first
	positions := make([]geo.Cartesian3, 0, h.Width*h.Height)
	vertices := make([]float32, 0, h.Width*h.Height*vertexStride)

	for row := 0; row < h.Height; row++ {
		v := float64(row) / float64(h.Height-1)
		lat := rect.North - v*rect.Height()
		for col := 0; col < h.Width; col++ {
			u := float64(col) / float64(h.Width-1)
			lon := rect.West + u*rect.Width()

			height := float64(h.Heights[row*h.Width+col]) * exaggeration
			if height < minH {
				minH = height
			}
			if height > maxH {
				maxH = height
			}

			p := e.CartographicToCartesian(geo.Cartographic{
				Longitude: lon,
				Latitude:  lat,
				Height:    height,
			})
			positions = append(positions, p)

			rel := p.Sub(center)
			vertices = append(vertices,
				float32(rel.X), float32(rel.Y), float32(rel.Z),
				float32(height),
				float32(u), float32(1-v),
			)
		}
	}

	return &Mesh{
		Center:         center,
		Vertices:       vertices,
		Indices:        GridIndices(h.Width, h.Height),
		MinimumHeight:  minH,
		MaximumHeight:  maxH,
		BoundingSphere: geo.BoundingSphereFromPoints(positions),
	}
}

// GridIndices triangulates a width x height vertex grid into counterclockwise
// triangle pairs. All tiles with the same grid size share the result, so
// callers route it through BufferPool.AcquireIndexBuffer.
func GridIndices(width, height int) []uint16 {
	indices := make([]uint16, 0, (width-1)*(height-1)*6)
	for row := 0; row < height-1; row++ {
		for col := 0; col < width-1; col++ {
			nw := uint16(row*width + col)
			ne := nw + 1
			sw := nw + uint16(width)
			se := sw + 1
			indices = append(indices, nw, sw, ne, ne, sw, se)
		}
	}
	return indices
}
