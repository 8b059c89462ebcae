package globe

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/gpu"
	"github.com/gogpu/globe/tiling"
)

// unitScheme is a one-tile geographic scheme on the unit sphere, chosen so
// texel spacings come out in round numbers.
func unitScheme() *tiling.GeographicTilingScheme {
	return tiling.NewGeographicTilingScheme(
		tiling.WithGeographicEllipsoid(geo.UnitSphere()),
		tiling.WithLevelZeroTiles(1, 1),
	)
}

type fakeSource struct {
	scheme   tiling.TilingScheme
	rect     geo.Rectangle
	maxLevel int
	tileSize int
	request  func(ctx context.Context, url string) (image.Image, error)
	requests atomic.Int32
}

func newFakeSource() *fakeSource {
	scheme := unitScheme()
	return &fakeSource{
		scheme:   scheme,
		rect:     scheme.Rectangle(),
		maxLevel: 18,
		tileSize: 256,
	}
}

func (s *fakeSource) TilingScheme() tiling.TilingScheme { return s.scheme }
func (s *fakeSource) Rectangle() geo.Rectangle          { return s.rect }
func (s *fakeSource) MaximumLevel() int                 { return s.maxLevel }
func (s *fakeSource) TileWidth() int                    { return s.tileSize }
func (s *fakeSource) TileHeight() int                   { return s.tileSize }

func (s *fakeSource) BuildImageURL(x, y, level int) string {
	return fmt.Sprintf("https://tiles.test/%d/%d/%d.png", level, x, y)
}

func (s *fakeSource) RequestImage(ctx context.Context, url string) (image.Image, error) {
	s.requests.Add(1)
	if s.request != nil {
		return s.request(ctx, url)
	}
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

// stubTerrain reports a fixed geometric error per level.
type stubTerrain struct {
	scheme tiling.TilingScheme
	err    func(level int) float64
}

func (s stubTerrain) TilingScheme() tiling.TilingScheme { return s.scheme }
func (s stubTerrain) LevelMaximumGeometricError(level int) float64 {
	return s.err(level)
}

// unitSpacing is the level-zero texel spacing of the unit scheme with a
// 256-pixel tile: R*2pi/(W*1).
const unitSpacing = 2 * math.Pi / 256

func waitFor(t *testing.T, l *ImageryLayer, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		l.Poll()
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSkeletonsDisjointClipReturnsFalse(t *testing.T) {
	src := newFakeSource()
	// Clip to the southeastern hemisphere; the tile is northwestern.
	l := NewImageryLayer(src, WithClipRectangle(geo.RectangleFromDegrees(0, -45, 90, 0)))

	tile := NewTile(unitScheme(), 2, 0, 0, nil)
	terrainStub := stubTerrain{scheme: src.scheme, err: func(int) float64 { return unitSpacing }}

	if l.CreateTileImagerySkeletons(tile, terrainStub) {
		t.Error("disjoint extents reported overlap")
	}
	if len(tile.Imagery) != 0 {
		t.Errorf("bindings created without overlap: %d", len(tile.Imagery))
	}
}

func TestSkeletonsLevelZeroExactCover(t *testing.T) {
	src := newFakeSource()
	l := NewImageryLayer(src)

	// Target error equal to the level-zero texel spacing selects level 0.
	tile := NewTile(unitScheme(), 0, 0, 0, nil)
	terrainStub := stubTerrain{scheme: src.scheme, err: func(int) float64 { return unitSpacing }}

	if !l.CreateTileImagerySkeletons(tile, terrainStub) {
		t.Fatal("overlap not detected")
	}
	if len(tile.Imagery) != 1 {
		t.Fatalf("bindings = %d, want 1", len(tile.Imagery))
	}

	ti := tile.Imagery[0]
	if ti.Level() != 0 || ti.X() != 0 || ti.Y() != 0 {
		t.Errorf("binding addresses imagery tile (%d, %d) level %d", ti.X(), ti.Y(), ti.Level())
	}
	region := ti.Region()
	if region.TranslationX != 0 || region.TranslationY != 0 || region.ScaleX != 1 || region.ScaleY != 1 {
		t.Errorf("exact cover region = %+v, want identity", region)
	}
	if ti.State != ImageryUnloaded {
		t.Errorf("fresh binding state = %v, want Unloaded", ti.State)
	}
}

func TestSkeletonsEdgeCoincidenceDropsNeighbors(t *testing.T) {
	src := newFakeSource()
	l := NewImageryLayer(src)

	// The northwest quadrant tile at level 1 lines up exactly with one
	// level-1 imagery tile. The naive southeast corner lookup lands on the
	// neighboring tile across the shared edge; the epsilon adjustment must
	// drop it.
	tile := NewTile(unitScheme(), 1, 0, 0, nil)
	terrainStub := stubTerrain{scheme: src.scheme, err: func(int) float64 { return unitSpacing / 2 }}

	if !l.CreateTileImagerySkeletons(tile, terrainStub) {
		t.Fatal("overlap not detected")
	}
	if len(tile.Imagery) != 1 {
		t.Fatalf("bindings = %d, want 1", len(tile.Imagery))
	}
	ti := tile.Imagery[0]
	if ti.Level() != 1 || ti.X() != 0 || ti.Y() != 0 {
		t.Errorf("binding = (%d, %d) level %d, want (0, 0) level 1", ti.X(), ti.Y(), ti.Level())
	}
	region := ti.Region()
	if region.ScaleX != 1 || region.ScaleY != 1 {
		t.Errorf("exact cover scale = (%v, %v), want (1, 1)", region.ScaleX, region.ScaleY)
	}
}

func TestSkeletonsFinerImageryTiling(t *testing.T) {
	src := newFakeSource()
	l := NewImageryLayer(src)

	// Terrain tile at level 1, imagery selected at level 2: four imagery
	// tiles cover it, each scaled to half the tile.
	tile := NewTile(unitScheme(), 1, 0, 0, nil)
	terrainStub := stubTerrain{scheme: src.scheme, err: func(int) float64 { return unitSpacing / 4 }}

	if !l.CreateTileImagerySkeletons(tile, terrainStub) {
		t.Fatal("overlap not detected")
	}
	if len(tile.Imagery) != 4 {
		t.Fatalf("bindings = %d, want 4", len(tile.Imagery))
	}

	for _, ti := range tile.Imagery {
		if ti.Level() != 2 {
			t.Errorf("binding level = %d, want 2", ti.Level())
		}
		region := ti.Region()
		if math.Abs(region.ScaleX-0.5) > 1e-12 || math.Abs(region.ScaleY-0.5) > 1e-12 {
			t.Errorf("region scale = (%v, %v), want (0.5, 0.5)", region.ScaleX, region.ScaleY)
		}
		if (region.TranslationX != 0 && math.Abs(region.TranslationX-0.5) > 1e-12) ||
			(region.TranslationY != 0 && math.Abs(region.TranslationY-0.5) > 1e-12) {
			t.Errorf("region translation = (%v, %v)", region.TranslationX, region.TranslationY)
		}
	}
}

func TestSkeletonsLevelClampedToMaximum(t *testing.T) {
	src := newFakeSource()
	src.maxLevel = 3
	l := NewImageryLayer(src)

	tile := NewTile(unitScheme(), 0, 0, 0, nil)
	terrainStub := stubTerrain{scheme: src.scheme, err: func(int) float64 { return unitSpacing / 1024 }}

	if !l.CreateTileImagerySkeletons(tile, terrainStub) {
		t.Fatal("overlap not detected")
	}
	for _, ti := range tile.Imagery {
		if ti.Level() != 3 {
			t.Fatalf("binding level = %d, want clamp to 3", ti.Level())
		}
	}
}

func TestRequestImageryCacheHit(t *testing.T) {
	src := newFakeSource()
	l := NewImageryLayer(src)

	url := src.BuildImageURL(0, 0, 0)
	l.Cache().BeginAdd(url)
	l.Cache().FinishAdd(url, gpu.TextureHandle(42))

	ti := &TileImagery{layer: l, State: ImageryUnloaded}
	l.RequestImagery(ti)

	if ti.State != ImageryReady || ti.Texture != 42 {
		t.Errorf("binding = %v texture %d, want Ready with texture 42", ti.State, ti.Texture)
	}
	if src.requests.Load() != 0 {
		t.Errorf("fetches issued on cache hit: %d", src.requests.Load())
	}
}

func TestRequestImageryPendingDeduplicates(t *testing.T) {
	src := newFakeSource()
	gate := make(chan struct{})
	src.request = func(context.Context, string) (image.Image, error) {
		<-gate
		return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
	}
	l := NewImageryLayer(src)
	defer close(gate)

	first := &TileImagery{layer: l, State: ImageryUnloaded}
	second := &TileImagery{layer: l, State: ImageryUnloaded}

	l.RequestImagery(first)
	if first.State != ImageryTransmitting {
		t.Fatalf("first binding state = %v, want Transmitting", first.State)
	}

	l.RequestImagery(second)
	if second.State != ImageryUnloaded {
		t.Errorf("second binding state = %v, want Unloaded (deferred)", second.State)
	}
	if src.requests.Load() != 1 {
		t.Errorf("fetches issued = %d, want 1", src.requests.Load())
	}
}

func TestFetchPipelineEndToEnd(t *testing.T) {
	src := newFakeSource()
	src.tileSize = 4
	l := NewImageryLayer(src)
	pool := gpu.NewSoftwarePool()
	defer pool.Destroy()

	ti := &TileImagery{layer: l, State: ImageryUnloaded}
	l.RequestImagery(ti)
	waitFor(t, l, "fetch completion", func() bool { return ti.State == ImageryReceived })

	l.TransformImagery(ti)
	if ti.State != ImageryTransitioning {
		t.Fatalf("state after transform = %v, want Transitioning", ti.State)
	}
	if len(ti.pixels) != 4*4*4 {
		t.Fatalf("pixels = %d bytes, want %d", len(ti.pixels), 4*4*4)
	}

	if err := l.CreateResources(pool, ti); err != nil {
		t.Fatalf("CreateResources: %v", err)
	}
	if ti.State != ImageryReady || ti.Texture == 0 {
		t.Fatalf("state = %v texture = %d after CreateResources", ti.State, ti.Texture)
	}
	if ti.url != "" || ti.pixels != nil {
		t.Error("transient data not cleared on Ready")
	}

	// A second binding for the same imagery tile reuses the cached texture
	// without another fetch.
	other := &TileImagery{layer: l, State: ImageryUnloaded}
	l.RequestImagery(other)
	if other.State != ImageryReady || other.Texture != ti.Texture {
		t.Errorf("second binding = %v texture %d, want shared texture %d", other.State, other.Texture, ti.Texture)
	}
	if src.requests.Load() != 1 {
		t.Errorf("fetches issued = %d, want 1", src.requests.Load())
	}
}

func TestAdmissionControlCapsPerHost(t *testing.T) {
	src := newFakeSource()
	gate := make(chan struct{})
	src.request = func(context.Context, string) (image.Image, error) {
		<-gate
		return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
	}
	l := NewImageryLayer(src)
	defer close(gate)

	bindings := make([]*TileImagery, 7)
	for i := range bindings {
		bindings[i] = &TileImagery{layer: l, x: i, State: ImageryUnloaded}
		l.RequestImagery(bindings[i])
	}

	transmitting := 0
	var deferred *TileImagery
	for _, ti := range bindings {
		switch ti.State {
		case ImageryTransmitting:
			transmitting++
		case ImageryUnloaded:
			deferred = ti
		}
	}
	if transmitting != 6 {
		t.Fatalf("transmitting = %d, want 6", transmitting)
	}
	if deferred == nil {
		t.Fatal("no deferred binding")
	}
	if got := int(src.requests.Load()); got != 6 {
		t.Fatalf("fetches issued = %d, want 6", got)
	}

	// One completion frees a slot; the deferred binding may then proceed.
	gate <- struct{}{}
	waitFor(t, l, "one completion", func() bool {
		return l.scheduler.InFlight("tiles.test") == 5
	})

	l.RequestImagery(deferred)
	if deferred.State != ImageryTransmitting {
		t.Errorf("deferred binding state = %v, want Transmitting after a slot opened", deferred.State)
	}
}

func TestFailureCooldownAndPerTileCap(t *testing.T) {
	src := newFakeSource()
	src.request = func(context.Context, string) (image.Image, error) {
		return nil, errors.New("connection reset")
	}
	now := time.Unix(1000, 0)
	l := NewImageryLayer(src, WithClock(func() time.Time { return now }))

	ti := &TileImagery{layer: l, State: ImageryUnloaded}

	l.RequestImagery(ti)
	waitFor(t, l, "first failure", func() bool { return ti.State == ImageryFailed })
	if ti.FailureCount() != 1 {
		t.Fatalf("failure count = %d, want 1", ti.FailureCount())
	}

	// Within the cooldown: no retry issued.
	l.RequestImagery(ti)
	if got := src.requests.Load(); got != 1 {
		t.Fatalf("retry issued inside cooldown: %d fetches", got)
	}

	// After the cooldown: retried, fails again.
	now = now.Add(6 * time.Second)
	l.RequestImagery(ti)
	waitFor(t, l, "second failure", func() bool { return ti.FailureCount() == 2 })

	now = now.Add(6 * time.Second)
	l.RequestImagery(ti)
	waitFor(t, l, "third failure", func() bool { return ti.FailureCount() == 3 })

	// At the per-binding cap: no more retries no matter how much time
	// passes.
	now = now.Add(time.Hour)
	l.RequestImagery(ti)
	if got := src.requests.Load(); got != 3 {
		t.Errorf("fetches = %d after cap, want 3", got)
	}
	if ti.State != ImageryFailed {
		t.Errorf("state = %v, want Failed", ti.State)
	}
}

func TestLayerCircuitBreaker(t *testing.T) {
	src := newFakeSource()
	src.request = func(context.Context, string) (image.Image, error) {
		return nil, errors.New("boom")
	}
	l := NewImageryLayer(src, WithRetryPolicy(2, 5, time.Millisecond))

	a := &TileImagery{layer: l, x: 1, State: ImageryUnloaded}
	b := &TileImagery{layer: l, x: 2, State: ImageryUnloaded}
	l.RequestImagery(a)
	l.RequestImagery(b)
	waitFor(t, l, "two failures", func() bool { return l.ConsecutiveFailures() == 2 })

	if !l.Suspended() {
		t.Fatal("layer not suspended at the consecutive-failure cap")
	}

	// Suspended: no new requests issued.
	c := &TileImagery{layer: l, x: 3, State: ImageryUnloaded}
	l.RequestImagery(c)
	if c.State != ImageryUnloaded {
		t.Errorf("binding state = %v while suspended, want Unloaded", c.State)
	}
	if got := src.requests.Load(); got != 2 {
		t.Errorf("fetches while suspended = %d, want 2", got)
	}

	// Reset re-arms the layer.
	l.ResetFailures()
	if l.Suspended() {
		t.Fatal("layer still suspended after ResetFailures")
	}
	l.RequestImagery(c)
	if c.State != ImageryTransmitting {
		t.Errorf("binding state = %v after reset, want Transmitting", c.State)
	}
}

func TestSuccessResetsConsecutiveFailures(t *testing.T) {
	src := newFakeSource()
	var fail atomic.Bool
	fail.Store(true)
	src.request = func(context.Context, string) (image.Image, error) {
		if fail.Load() {
			return nil, errors.New("boom")
		}
		return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
	}
	l := NewImageryLayer(src, WithRetryPolicy(10, 5, time.Millisecond))

	a := &TileImagery{layer: l, x: 1, State: ImageryUnloaded}
	l.RequestImagery(a)
	waitFor(t, l, "failure", func() bool { return l.ConsecutiveFailures() == 1 })

	fail.Store(false)
	b := &TileImagery{layer: l, x: 2, State: ImageryUnloaded}
	l.RequestImagery(b)
	waitFor(t, l, "success", func() bool { return b.State == ImageryReceived })

	if l.ConsecutiveFailures() != 0 {
		t.Errorf("consecutive failures = %d after success, want 0", l.ConsecutiveFailures())
	}
}

func TestEmptyResponseIsInvalid(t *testing.T) {
	src := newFakeSource()
	src.request = func(context.Context, string) (image.Image, error) {
		return nil, nil
	}
	l := NewImageryLayer(src)

	ti := &TileImagery{layer: l, State: ImageryUnloaded}
	l.RequestImagery(ti)
	waitFor(t, l, "empty completion", func() bool { return ti.State == ImageryInvalid })

	if l.Cache().Len() != 0 {
		t.Error("pending cache entry not aborted for empty response")
	}

	// Invalid is absorbing: no further fetches.
	l.RequestImagery(ti)
	if src.requests.Load() != 1 {
		t.Errorf("fetches = %d, want 1", src.requests.Load())
	}
}

func TestDestroyedBindingCompletionAborted(t *testing.T) {
	src := newFakeSource()
	gate := make(chan struct{})
	src.request = func(context.Context, string) (image.Image, error) {
		<-gate
		return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
	}
	l := NewImageryLayer(src)

	ti := &TileImagery{layer: l, State: ImageryUnloaded}
	l.RequestImagery(ti)
	if ti.State != ImageryTransmitting {
		t.Fatalf("state = %v, want Transmitting", ti.State)
	}

	ti.Destroy()
	close(gate)
	waitFor(t, l, "aborted completion", func() bool {
		return l.scheduler.InFlight("tiles.test") == 0
	})

	if l.Cache().Len() != 0 {
		t.Error("destroyed binding left a pending cache entry")
	}
	if ti.State == ImageryReceived {
		t.Error("destroyed binding advanced to Received")
	}
}

func TestCreateResourcesFailureMarksFailed(t *testing.T) {
	src := newFakeSource()
	src.tileSize = 2
	l := NewImageryLayer(src)
	pool := gpu.NewSoftwarePool()
	pool.Destroy() // every CreateTexture now fails

	ti := &TileImagery{layer: l, State: ImageryUnloaded}
	l.RequestImagery(ti)
	waitFor(t, l, "fetch completion", func() bool { return ti.State == ImageryReceived })
	l.TransformImagery(ti)

	if err := l.CreateResources(pool, ti); err == nil {
		t.Fatal("CreateResources succeeded on a destroyed pool")
	}
	if ti.State != ImageryFailed {
		t.Errorf("state = %v, want Failed", ti.State)
	}
	if l.Cache().Len() != 0 {
		t.Error("failed resource creation left a cache entry")
	}
}

func TestLayerDestroy(t *testing.T) {
	src := newFakeSource()
	src.tileSize = 2
	l := NewImageryLayer(src)
	pool := gpu.NewSoftwarePool()
	defer pool.Destroy()

	ti := &TileImagery{layer: l, State: ImageryUnloaded}
	l.RequestImagery(ti)
	waitFor(t, l, "fetch completion", func() bool { return ti.State == ImageryReceived })
	l.TransformImagery(ti)
	if err := l.CreateResources(pool, ti); err != nil {
		t.Fatal(err)
	}
	if pool.LiveTextures() != 1 {
		t.Fatalf("live textures = %d, want 1", pool.LiveTextures())
	}

	l.Destroy(pool)
	if !l.IsDestroyed() {
		t.Fatal("IsDestroyed = false after Destroy")
	}
	if pool.LiveTextures() != 0 {
		t.Errorf("live textures after Destroy = %d, want 0", pool.LiveTextures())
	}

	defer func() {
		if recover() == nil {
			t.Error("RequestImagery did not panic after Destroy")
		}
	}()
	l.RequestImagery(ti)
}

func TestWithAlphaClamped(t *testing.T) {
	src := newFakeSource()
	if a := NewImageryLayer(src, WithAlpha(2)).Alpha(); a != 1 {
		t.Errorf("alpha = %v, want clamp to 1", a)
	}
	if a := NewImageryLayer(src, WithAlpha(-1)).Alpha(); a != 0 {
		t.Errorf("alpha = %v, want clamp to 0", a)
	}
}
