package globe

import (
	"context"
	"image"
	"net/url"
	"strings"
	"time"

	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/gpu"
)

// Retry policy defaults.
const (
	// DefaultMaximumConsecutiveFailures is the layer circuit breaker: after
	// this many consecutive fetch failures the layer stops issuing new
	// requests until ResetFailures.
	DefaultMaximumConsecutiveFailures = 10

	// DefaultMaximumTileFailures caps retries of one binding.
	DefaultMaximumTileFailures = 3

	// DefaultRetryCooldown is the wait before a failed binding is retried.
	DefaultRetryCooldown = 5 * time.Second
)

// fetchCompletion carries the result of one fetch goroutine back to the
// frame goroutine.
type fetchCompletion struct {
	ti   *TileImagery
	url  string
	host string
	img  image.Image
	err  error
}

// ImageryLayer drives imagery from one source onto terrain tiles: it selects
// imagery levels, creates overlay bindings, fetches and caches images, and
// applies the retry policy.
//
// All methods are frame-goroutine only; the layer's fetch goroutines touch
// nothing but their completion channel.
type ImageryLayer struct {
	source ImagerySource

	clip  geo.Rectangle
	alpha float64

	// maxScreenSpaceError scales how aggressively the render loop refines
	// tiles carrying this layer. The layer stores it for the loop; LOD
	// selection here uses the terrain provider's geometric error directly.
	maxScreenSpaceError float64

	scheduler   *RequestScheduler
	cache       *ImageryCache
	completions chan fetchCompletion
	transform   ImageTransformer
	now         func() time.Time
	ctx         context.Context

	// levelZeroTexelSpacing is the texel spacing at the equator for level
	// zero, maxRadius*2pi/(tileWidth*level0TilesX). Computed on first use.
	levelZeroTexelSpacing    float64
	hasLevelZeroTexelSpacing bool

	consecutiveFailures        int
	maximumConsecutiveFailures int
	maximumTileFailures        int
	retryCooldown              time.Duration

	destroyed bool
}

// LayerOption configures an ImageryLayer.
type LayerOption func(*ImageryLayer)

// WithAlpha sets the layer's blend factor, clamped to [0, 1]. Default 1.
func WithAlpha(alpha float64) LayerOption {
	return func(l *ImageryLayer) {
		if alpha < 0 {
			alpha = 0
		} else if alpha > 1 {
			alpha = 1
		}
		l.alpha = alpha
	}
}

// WithClipRectangle restricts the layer to an extent, in radians. Imagery is
// only bound where the terrain tile, the source extent, and this rectangle
// all overlap. Default is the full globe.
func WithClipRectangle(r geo.Rectangle) LayerOption {
	return func(l *ImageryLayer) { l.clip = r }
}

// WithMaximumScreenSpaceError sets the refinement threshold the render loop
// reads back from the layer. Default 2.
func WithMaximumScreenSpaceError(sse float64) LayerOption {
	return func(l *ImageryLayer) { l.maxScreenSpaceError = sse }
}

// WithScheduler shares a request scheduler between layers, keeping the
// per-host cap global across them.
func WithScheduler(s *RequestScheduler) LayerOption {
	return func(l *ImageryLayer) { l.scheduler = s }
}

// WithRetryPolicy overrides the failure thresholds. Zero values keep the
// defaults.
func WithRetryPolicy(maxConsecutive, maxPerTile int, cooldown time.Duration) LayerOption {
	return func(l *ImageryLayer) {
		if maxConsecutive > 0 {
			l.maximumConsecutiveFailures = maxConsecutive
		}
		if maxPerTile > 0 {
			l.maximumTileFailures = maxPerTile
		}
		if cooldown > 0 {
			l.retryCooldown = cooldown
		}
	}
}

// WithImageTransformer replaces the image-to-pixels conversion used by
// TransformImagery.
func WithImageTransformer(t ImageTransformer) LayerOption {
	return func(l *ImageryLayer) { l.transform = t }
}

// WithClock injects the time source used by the retry cooldown. Tests step
// it manually.
func WithClock(now func() time.Time) LayerOption {
	return func(l *ImageryLayer) { l.now = now }
}

// WithContext sets the context passed to the source's RequestImage calls.
func WithContext(ctx context.Context) LayerOption {
	return func(l *ImageryLayer) { l.ctx = ctx }
}

// NewImageryLayer creates a layer over source.
func NewImageryLayer(source ImagerySource, opts ...LayerOption) *ImageryLayer {
	l := &ImageryLayer{
		source:                     source,
		clip:                       geo.MaxRectangle(),
		alpha:                      1,
		maxScreenSpaceError:        2,
		cache:                      NewImageryCache(),
		completions:                make(chan fetchCompletion, 256),
		now:                        time.Now,
		ctx:                        context.Background(),
		maximumConsecutiveFailures: DefaultMaximumConsecutiveFailures,
		maximumTileFailures:        DefaultMaximumTileFailures,
		retryCooldown:              DefaultRetryCooldown,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.scheduler == nil {
		l.scheduler = NewRequestScheduler(0)
	}
	if l.transform == nil {
		l.transform = gpu.ImageToRGBA
	}
	return l
}

// Source returns the layer's imagery source.
func (l *ImageryLayer) Source() ImagerySource { return l.source }

// Alpha returns the layer's blend factor.
func (l *ImageryLayer) Alpha() float64 { return l.alpha }

// MaximumScreenSpaceError returns the refinement threshold.
func (l *ImageryLayer) MaximumScreenSpaceError() float64 { return l.maxScreenSpaceError }

// Cache returns the layer's content-addressed texture cache.
func (l *ImageryLayer) Cache() *ImageryCache { return l.cache }

func (l *ImageryLayer) throwIfDestroyed() {
	if l.destroyed {
		panic(ErrLayerDestroyed)
	}
}

// Suspended reports whether the layer's circuit breaker has tripped: too
// many consecutive failures, no new requests until ResetFailures. Ready
// bindings keep rendering while suspended.
func (l *ImageryLayer) Suspended() bool {
	return l.consecutiveFailures >= l.maximumConsecutiveFailures
}

// ConsecutiveFailures returns the current consecutive-failure count.
func (l *ImageryLayer) ConsecutiveFailures() int { return l.consecutiveFailures }

// ResetFailures clears the consecutive-failure count, re-arming a suspended
// layer.
func (l *ImageryLayer) ResetFailures() {
	l.throwIfDestroyed()
	l.consecutiveFailures = 0
}

// RequestImagery advances an Unloaded binding toward Transmitting, or
// resolves it straight to Ready from the cache. Deferred and in-flight
// bindings stay Unloaded and are picked up on a later pass; Failed bindings
// are retried once their cooldown elapses, up to the per-binding cap.
func (l *ImageryLayer) RequestImagery(ti *TileImagery) {
	l.throwIfDestroyed()
	if ti.destroyed {
		return
	}

	switch ti.State {
	case ImageryUnloaded:
	case ImageryFailed:
		if ti.failureCount >= l.maximumTileFailures {
			return
		}
		if l.now().Sub(ti.lastFailure) < l.retryCooldown {
			return
		}
	default:
		return
	}

	if l.Suspended() {
		return
	}

	imageURL := l.source.BuildImageURL(ti.x, ti.y, ti.level)

	if texture, ready, pending := l.cache.Lookup(imageURL); ready {
		ti.Texture = texture
		ti.State = ImageryReady
		return
	} else if pending {
		// Another binding is fetching the same image; wait for it.
		ti.State = ImageryUnloaded
		return
	}

	host := hostOf(imageURL)
	if !l.scheduler.TryAcquire(host) {
		// Host at capacity. Defer rather than queue: an issued fetch
		// cannot be canceled, so order can only change before issuance.
		ti.State = ImageryUnloaded
		return
	}

	l.cache.BeginAdd(imageURL)
	ti.url = imageURL
	ti.ownsCacheEntry = true
	ti.State = ImageryTransmitting
	Logger().Debug("imagery fetch issued", "url", imageURL, "host", host)

	go func() {
		img, err := l.source.RequestImage(l.ctx, imageURL)
		l.completions <- fetchCompletion{ti: ti, url: imageURL, host: host, img: img, err: err}
	}()
}

// Poll drains completed fetches, advancing their bindings. Completions may
// arrive in any order relative to issuance. Call once per frame.
func (l *ImageryLayer) Poll() {
	l.throwIfDestroyed()
	for {
		select {
		case c := <-l.completions:
			l.handleCompletion(c)
		default:
			return
		}
	}
}

func (l *ImageryLayer) handleCompletion(c fetchCompletion) {
	l.scheduler.Release(c.host)

	if c.ti.destroyed {
		l.cache.AbortAdd(c.url)
		return
	}
	c.ti.ownsCacheEntry = false

	switch {
	case c.err != nil:
		c.ti.State = ImageryFailed
		c.ti.failureCount++
		c.ti.lastFailure = l.now()
		l.cache.AbortAdd(c.url)
		l.consecutiveFailures++
		Logger().Warn("imagery fetch failed",
			"url", c.url,
			"error", c.err,
			"tileFailures", c.ti.failureCount,
			"consecutiveFailures", l.consecutiveFailures)
		if l.Suspended() {
			Logger().Warn("imagery layer suspended",
				"consecutiveFailures", l.consecutiveFailures)
		}

	case c.img == nil:
		// The source answered and has no data here. Absorbing state.
		c.ti.State = ImageryInvalid
		l.cache.AbortAdd(c.url)
		l.consecutiveFailures = 0

	default:
		c.ti.image = c.img
		c.ti.State = ImageryReceived
		c.ti.ownsCacheEntry = true
		l.consecutiveFailures = 0
	}
}

// TransformImagery converts a Received binding's image into RGBA pixels at
// the source's tile dimensions, leaving the binding Transitioning.
func (l *ImageryLayer) TransformImagery(ti *TileImagery) {
	l.throwIfDestroyed()
	if ti.destroyed || ti.State != ImageryReceived {
		return
	}
	ti.pixels = l.transform(ti.image, l.source.TileWidth(), l.source.TileHeight())
	ti.image = nil
	ti.State = ImageryTransitioning
}

// CreateResources uploads a Transitioning binding's pixels through pool and
// publishes the texture in the cache, leaving the binding Ready. Subsequent
// bindings resolving the same URL share the texture; the cache, not the
// binding, owns the URL association from here on.
func (l *ImageryLayer) CreateResources(pool gpu.TexturePool, ti *TileImagery) error {
	l.throwIfDestroyed()
	if ti.destroyed || ti.State != ImageryTransitioning {
		return nil
	}

	texture, err := pool.CreateTexture(l.source.TileWidth(), l.source.TileHeight(), ti.pixels)
	if err != nil {
		ti.State = ImageryFailed
		ti.failureCount++
		ti.lastFailure = l.now()
		l.cache.AbortAdd(ti.url)
		ti.ownsCacheEntry = false
		ti.pixels = nil
		Logger().Warn("imagery texture creation failed", "url", ti.url, "error", err)
		return err
	}

	l.cache.FinishAdd(ti.url, texture)
	ti.Texture = texture
	ti.url = ""
	ti.ownsCacheEntry = false
	ti.pixels = nil
	ti.State = ImageryReady
	return nil
}

// Destroy tears the layer down, destroying cached textures through pool. A
// nil pool skips texture destruction. Fetches still in flight complete into
// the buffered channel and are dropped.
func (l *ImageryLayer) Destroy(pool gpu.TexturePool) {
	l.throwIfDestroyed()
	l.destroyed = true
	l.cache.Destroy(pool)
	Logger().Info("imagery layer destroyed")
}

// IsDestroyed reports whether Destroy has been called.
func (l *ImageryLayer) IsDestroyed() bool { return l.destroyed }

// hostOf extracts the admission-control key from an image URL. Hostless or
// unparseable URLs fall back to everything before the fragment, so pseudo-URLs
// that carry the tile address in the fragment (absolute-path mbtiles archives)
// still share one key per archive.
func hostOf(imageURL string) string {
	if u, err := url.Parse(imageURL); err == nil && u.Host != "" {
		return u.Host
	}
	if i := strings.IndexByte(imageURL, '#'); i >= 0 {
		return imageURL[:i]
	}
	return imageURL
}
