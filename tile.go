package globe

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/gpu"
	"github.com/gogpu/globe/tiling"
)

// Programming-error sentinels. These are panicked, not returned: operating on
// a destroyed object is a bug in the caller, not a runtime condition.
var (
	ErrTileDestroyed  = errors.New("globe: tile used after Destroy")
	ErrLayerDestroyed = errors.New("globe: imagery layer used after Destroy")
)

// TileState tracks a tile's progress through the load pipeline.
type TileState int

const (
	// TileUnloaded is the initial state and the state after FreeResources.
	TileUnloaded TileState = iota

	// TileRequested means imagery or geometry requests are in flight.
	TileRequested

	// TileReceived means payload data has arrived but is not yet processed.
	TileReceived

	// TileTransforming means payload data is being converted off the frame
	// goroutine.
	TileTransforming

	// TileTransitioning means GPU resources are being created. Tiles in
	// this state are never trimmed by the replacement queue.
	TileTransitioning

	// TileReady means the tile is renderable.
	TileReady

	// TileFailed means loading failed; it may be retried under the owning
	// layer's retry policy.
	TileFailed

	// TileInvalid means the source has no data for this tile.
	TileInvalid
)

// String returns the state name.
func (s TileState) String() string {
	switch s {
	case TileUnloaded:
		return "Unloaded"
	case TileRequested:
		return "Requested"
	case TileReceived:
		return "Received"
	case TileTransforming:
		return "Transforming"
	case TileTransitioning:
		return "Transitioning"
	case TileReady:
		return "Ready"
	case TileFailed:
		return "Failed"
	case TileInvalid:
		return "Invalid"
	default:
		return fmt.Sprintf("TileState(%d)", int(s))
	}
}

// projectedBounds memoizes the 2D bounding volumes for the projection they
// were last computed with. A different projection instance invalidates them.
type projectedBounds struct {
	projection geo.Projection
	sphere     geo.BoundingSphere
	rectangle  geo.Rectangle
}

// Tile is one quadtree node of a tiled planetary surface. It owns its
// geometry handles and imagery overlay bindings, and carries intrusive links
// for the replacement queue.
//
// All methods must be called from the frame goroutine.
type Tile struct {
	scheme tiling.TilingScheme
	level  int
	x, y   int

	parent   *Tile
	children []*Tile

	// State is driven by the render loop and the owning imagery layers.
	State TileState

	// Imagery holds the overlay bindings created by
	// ImageryLayer.CreateTileImagerySkeletons, in creation order.
	Imagery []*TileImagery

	// Geometry payload. The vertex buffer is owned; the index buffer is
	// shared between same-sized tiles and reference counted by the pool.
	geometryPool   gpu.BufferPool
	vertexBuffer   gpu.BufferHandle
	indexBufferKey gpu.IndexBufferKey
	hasIndexBuffer bool

	// Intrusive replacement-queue links, managed by TileReplacementQueue.
	queuePrev *Tile
	queueNext *Tile

	// Memoized derived values.
	rectangle     geo.Rectangle
	hasRectangle  bool
	sphere3D      geo.BoundingSphere
	hasSphere3D   bool
	occludeePoint geo.Cartesian3
	hasOccludee   bool
	projected     projectedBounds

	destroyed bool
}

// NewTile creates the tile at (level, x, y) in the scheme. It panics when the
// scheme is nil or a coordinate is out of range for the level; tile addresses
// come from the scheme itself, so a bad one is a programming error.
func NewTile(scheme tiling.TilingScheme, level, x, y int, parent *Tile) *Tile {
	if scheme == nil {
		panic(errors.New("globe: nil tiling scheme"))
	}
	if level < 0 || x < 0 || y < 0 ||
		x >= scheme.NumberOfXTilesAt(level) || y >= scheme.NumberOfYTilesAt(level) {
		panic(fmt.Errorf("globe: tile (%d, %d) out of range at level %d", x, y, level))
	}
	return &Tile{
		scheme: scheme,
		level:  level,
		x:      x,
		y:      y,
		parent: parent,
		State:  TileUnloaded,
	}
}

// RootTiles creates the level-zero tiles of the scheme, west to east and
// north to south.
func RootTiles(scheme tiling.TilingScheme) []*Tile {
	numX := scheme.NumberOfXTilesAt(0)
	numY := scheme.NumberOfYTilesAt(0)
	tiles := make([]*Tile, 0, numX*numY)
	for y := 0; y < numY; y++ {
		for x := 0; x < numX; x++ {
			tiles = append(tiles, NewTile(scheme, 0, x, y, nil))
		}
	}
	return tiles
}

// Level returns the tile's level of detail.
func (t *Tile) Level() int { return t.level }

// X returns the tile's x coordinate within its level.
func (t *Tile) X() int { return t.x }

// Y returns the tile's y coordinate within its level.
func (t *Tile) Y() int { return t.y }

// Parent returns the parent tile, or nil for a root tile.
func (t *Tile) Parent() *Tile { return t.parent }

// TilingScheme returns the scheme the tile is addressed in.
func (t *Tile) TilingScheme() tiling.TilingScheme { return t.scheme }

func (t *Tile) throwIfDestroyed() {
	if t.destroyed {
		panic(ErrTileDestroyed)
	}
}

// Children lazily materializes the four child tiles at level+1, in the order
// northwest, northeast, southwest, southeast. Repeated calls return the same
// slice.
func (t *Tile) Children() []*Tile {
	t.throwIfDestroyed()
	if t.children == nil {
		level := t.level + 1
		t.children = []*Tile{
			NewTile(t.scheme, level, 2*t.x, 2*t.y, t),
			NewTile(t.scheme, level, 2*t.x+1, 2*t.y, t),
			NewTile(t.scheme, level, 2*t.x, 2*t.y+1, t),
			NewTile(t.scheme, level, 2*t.x+1, 2*t.y+1, t),
		}
	}
	return t.children
}

// Rectangle returns the tile's geodetic extent, computed once.
func (t *Tile) Rectangle() geo.Rectangle {
	t.throwIfDestroyed()
	if !t.hasRectangle {
		t.rectangle = t.scheme.TileXYToRectangle(t.x, t.y, t.level)
		t.hasRectangle = true
	}
	return t.rectangle
}

// NativeRectangle returns the tile's extent in the scheme's native
// coordinates.
func (t *Tile) NativeRectangle() geo.Rectangle {
	t.throwIfDestroyed()
	return t.scheme.TileXYToNativeRectangle(t.x, t.y, t.level)
}

// BoundingSphere3D returns a sphere enclosing the tile's surface patch on
// the ellipsoid, computed once.
func (t *Tile) BoundingSphere3D() geo.BoundingSphere {
	t.throwIfDestroyed()
	if !t.hasSphere3D {
		t.sphere3D = geo.BoundingSphereFromRectangle3D(t.Rectangle(), t.scheme.Ellipsoid())
		t.hasSphere3D = true
	}
	return t.sphere3D
}

// BoundingSphere2D returns a sphere enclosing the tile after projection. It
// is recomputed only when called with a different projection instance than
// the previous call.
func (t *Tile) BoundingSphere2D(projection geo.Projection) geo.BoundingSphere {
	t.throwIfDestroyed()
	t.updateProjected(projection)
	return t.projected.sphere
}

// BoundingRectangle2D returns the tile's extent in the projection's
// coordinates, memoized like BoundingSphere2D.
func (t *Tile) BoundingRectangle2D(projection geo.Projection) geo.Rectangle {
	t.throwIfDestroyed()
	t.updateProjected(projection)
	return t.projected.rectangle
}

func (t *Tile) updateProjected(projection geo.Projection) {
	if t.projected.projection == projection {
		return
	}
	rect := t.Rectangle()
	t.projected = projectedBounds{
		projection: projection,
		sphere:     geo.BoundingSphereFromRectangle2D(rect, projection),
		rectangle:  geo.ProjectedRectangle(rect, projection),
	}
}

// OccludeePoint returns a point on the ray from the ellipsoid center through
// the tile such that when the point is below the horizon, the whole tile is
// below the horizon. Computed once.
func (t *Tile) OccludeePoint() geo.Cartesian3 {
	t.throwIfDestroyed()
	if !t.hasOccludee {
		ellipsoid := t.scheme.Ellipsoid()
		rect := t.Rectangle()
		direction := ellipsoid.CartographicToCartesian(rect.Center()).Normalize()

		// The point must be at least as far along the direction as the
		// projection of every sample of the patch.
		maxDot := 0.0
		for _, p := range rect.Subsample(ellipsoid) {
			if d := p.Dot(direction); d > maxDot {
				maxDot = d
			}
		}
		t.occludeePoint = direction.Scale(maxDot)
		t.hasOccludee = true
	}
	return t.occludeePoint
}

// AttachGeometry uploads the tile's vertex data and acquires the shared
// index buffer for the grid size, replacing any previous geometry.
func (t *Tile) AttachGeometry(pool gpu.BufferPool, vertices []float32, key gpu.IndexBufferKey, createIndices func() []uint16) error {
	t.throwIfDestroyed()
	t.releaseGeometry()

	vb, err := pool.CreateVertexBuffer(vertices)
	if err != nil {
		return fmt.Errorf("globe: attach geometry: %w", err)
	}
	if _, err := pool.AcquireIndexBuffer(key, createIndices); err != nil {
		pool.DestroyVertexBuffer(vb)
		return fmt.Errorf("globe: attach geometry: %w", err)
	}

	t.geometryPool = pool
	t.vertexBuffer = vb
	t.indexBufferKey = key
	t.hasIndexBuffer = true
	return nil
}

// VertexBuffer returns the tile's vertex buffer handle, zero when no
// geometry is attached.
func (t *Tile) VertexBuffer() gpu.BufferHandle {
	t.throwIfDestroyed()
	return t.vertexBuffer
}

func (t *Tile) releaseGeometry() {
	if t.geometryPool == nil {
		return
	}
	if t.vertexBuffer != 0 {
		t.geometryPool.DestroyVertexBuffer(t.vertexBuffer)
		t.vertexBuffer = 0
	}
	if t.hasIndexBuffer {
		t.geometryPool.ReleaseIndexBuffer(t.indexBufferKey)
		t.hasIndexBuffer = false
	}
	t.geometryPool = nil
}

// FreeResources releases the tile's payload and recurses into its children:
// geometry buffers go back to their pool, imagery bindings are destroyed,
// and the state returns to TileUnloaded. The node itself stays alive (and
// stays linked in the replacement queue) so the subtree can be reloaded.
func (t *Tile) FreeResources() {
	t.throwIfDestroyed()
	t.State = TileUnloaded
	t.releaseGeometry()
	for _, ti := range t.Imagery {
		ti.Destroy()
	}
	t.Imagery = nil
	for _, child := range t.children {
		child.FreeResources()
	}
}

// Destroy releases the tile's payload and destroys its children, bottom-up.
// The tile must not be used afterwards; any call other than IsDestroyed
// panics, including a second Destroy.
func (t *Tile) Destroy() {
	t.throwIfDestroyed()
	for _, child := range t.children {
		child.Destroy()
	}
	t.children = nil
	t.State = TileUnloaded
	t.releaseGeometry()
	for _, ti := range t.Imagery {
		ti.Destroy()
	}
	t.Imagery = nil
	t.parent = nil
	t.destroyed = true
}

// IsDestroyed reports whether Destroy has been called. It is the only method
// safe to call on a destroyed tile.
func (t *Tile) IsDestroyed() bool { return t.destroyed }

// DistanceTo is a lower bound on the distance from position to the tile's
// surface patch, used by render loops for load ordering.
func (t *Tile) DistanceTo(position geo.Cartesian3) float64 {
	t.throwIfDestroyed()
	s := t.BoundingSphere3D()
	return math.Max(0, position.Distance(s.Center)-s.Radius)
}
