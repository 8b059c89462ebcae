package globe

import (
	"fmt"
	"image"
	"time"

	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/gpu"
)

// ImageryState tracks one overlay binding through the fetch pipeline.
type ImageryState int

const (
	// ImageryUnloaded means no fetch is in flight; the binding will be
	// retried on a later RequestImagery pass.
	ImageryUnloaded ImageryState = iota

	// ImageryTransmitting means a fetch has been issued and not completed.
	ImageryTransmitting

	// ImageryReceived means a decoded image is attached and awaiting
	// transformation.
	ImageryReceived

	// ImageryTransitioning means pixels are ready and GPU resource
	// creation is pending.
	ImageryTransitioning

	// ImageryReady means the binding holds a usable texture.
	ImageryReady

	// ImageryFailed means the fetch failed; retried under the layer's
	// cooldown and per-binding failure cap.
	ImageryFailed

	// ImageryInvalid means the source has no image for this tile. Never
	// retried.
	ImageryInvalid
)

// String returns the state name.
func (s ImageryState) String() string {
	switch s {
	case ImageryUnloaded:
		return "Unloaded"
	case ImageryTransmitting:
		return "Transmitting"
	case ImageryReceived:
		return "Received"
	case ImageryTransitioning:
		return "Transitioning"
	case ImageryReady:
		return "Ready"
	case ImageryFailed:
		return "Failed"
	case ImageryInvalid:
		return "Invalid"
	default:
		return fmt.Sprintf("ImageryState(%d)", int(s))
	}
}

// TextureRegion places an imagery tile within the unit square of a terrain
// tile: texture coordinates are translation + uv * scale.
type TextureRegion struct {
	TranslationX float64
	TranslationY float64
	ScaleX       float64
	ScaleY       float64
}

// textureRegion maps the imagery rectangle into the terrain rectangle, both
// in the imagery scheme's native coordinates.
func textureRegion(terrain, imagery geo.Rectangle) TextureRegion {
	terrainWidth := terrain.Width()
	terrainHeight := terrain.Height()
	return TextureRegion{
		TranslationX: (imagery.West - terrain.West) / terrainWidth,
		TranslationY: (imagery.South - terrain.South) / terrainHeight,
		ScaleX:       imagery.Width() / terrainWidth,
		ScaleY:       imagery.Height() / terrainHeight,
	}
}

// TileImagery binds one imagery tile from one layer to one terrain tile.
// It is owned exclusively by its terrain tile and destroyed with it.
type TileImagery struct {
	layer  *ImageryLayer
	x, y   int
	level  int
	region TextureRegion

	State   ImageryState
	Texture gpu.TextureHandle

	// Transient pipeline data, cleared as the binding advances.
	url    string
	image  image.Image
	pixels []byte

	// ownsCacheEntry marks that this binding holds the pending cache entry
	// for url and must abort it if destroyed before FinishAdd.
	ownsCacheEntry bool

	failureCount int
	lastFailure  time.Time

	destroyed bool
}

// Layer returns the owning imagery layer.
func (ti *TileImagery) Layer() *ImageryLayer { return ti.layer }

// X returns the imagery tile's x coordinate.
func (ti *TileImagery) X() int { return ti.x }

// Y returns the imagery tile's y coordinate.
func (ti *TileImagery) Y() int { return ti.y }

// Level returns the imagery tile's level.
func (ti *TileImagery) Level() int { return ti.level }

// Region returns the placement of the imagery tile within its terrain tile.
func (ti *TileImagery) Region() TextureRegion { return ti.region }

// FailureCount returns how many fetches for this binding have failed.
func (ti *TileImagery) FailureCount() int { return ti.failureCount }

// Destroy detaches the binding from the pipeline. A pending cache entry it
// owns is aborted so future requests for the same URL can retry; a texture it
// reached Ready with stays alive in the layer cache for other bindings.
func (ti *TileImagery) Destroy() {
	if ti.destroyed {
		return
	}
	ti.destroyed = true
	if ti.ownsCacheEntry && ti.State != ImageryTransmitting {
		// A transmitting binding's entry is aborted by the completion
		// handler instead, which still needs it to exist.
		ti.layer.cache.AbortAdd(ti.url)
		ti.ownsCacheEntry = false
	}
	ti.image = nil
	ti.pixels = nil
}

// IsDestroyed reports whether Destroy has been called.
func (ti *TileImagery) IsDestroyed() bool { return ti.destroyed }
