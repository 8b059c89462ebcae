package terrain

import (
	"runtime"
	"sync"

	"github.com/gogpu/globe/geo"
)

// MeshRequest asks the mesher to triangulate one tile's heightmap.
type MeshRequest struct {
	// Key identifies the tile; it is echoed back on the result so callers
	// can match completions to pending tiles.
	Key struct {
		Level int
		X     int
		Y     int
	}

	Data         *HeightmapData
	Rectangle    geo.Rectangle
	Ellipsoid    *geo.Ellipsoid
	Exaggeration float64
}

// MeshResult carries a finished mesh back to the frame loop.
type MeshResult struct {
	Key struct {
		Level int
		X     int
		Y     int
	}
	Mesh *Mesh
}

// Mesher triangulates heightmaps on a fixed set of worker goroutines so the
// frame loop never blocks on meshing. Submit hands a request to the workers;
// Results delivers completions in whatever order the workers finish.
//
// Thread safety: Submit may be called from any goroutine. Close must be
// called exactly once, after which Submit panics on a closed channel; callers
// stop submitting before closing.
type Mesher struct {
	requests chan MeshRequest
	results  chan MeshResult
	wg       sync.WaitGroup
}

// NewMesher starts a mesher with the given number of workers, or GOMAXPROCS
// workers when n is zero or negative.
func NewMesher(n int) *Mesher {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	queue := n * 4
	if queue < 8 {
		queue = 8
	}
	m := &Mesher{
		requests: make(chan MeshRequest, queue),
		results:  make(chan MeshResult, queue),
	}
	m.wg.Add(n)
	for i := 0; i < n; i++ {
		go m.worker()
	}
	return m
}

func (m *Mesher) worker() {
	defer m.wg.Done()
	for req := range m.requests {
		exaggeration := req.Exaggeration
		if exaggeration == 0 {
			exaggeration = 1
		}
		ellipsoid := req.Ellipsoid
		if ellipsoid == nil {
			ellipsoid = geo.WGS84()
		}
		m.results <- MeshResult{
			Key:  req.Key,
			Mesh: req.Data.CreateMesh(req.Rectangle, ellipsoid, exaggeration),
		}
	}
}

// Submit queues a request. It blocks when all workers are busy and the queue
// is full, which applies natural backpressure to tile loading.
func (m *Mesher) Submit(req MeshRequest) {
	m.requests <- req
}

// Results returns the completion channel. Callers drain it once per frame.
func (m *Mesher) Results() <-chan MeshResult {
	return m.results
}

// Close stops the workers after the queued requests finish and then closes
// the results channel. Pending results must still be drained by the caller.
func (m *Mesher) Close() {
	close(m.requests)
	go func() {
		m.wg.Wait()
		close(m.results)
	}()
}
