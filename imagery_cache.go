package globe

import (
	"github.com/gogpu/globe/gpu"
)

type imageryCacheEntry struct {
	texture gpu.TextureHandle
	ready   bool
}

// ImageryCache is a content-addressed texture cache keyed by resolved image
// URL. Entries are added in two phases: BeginAdd reserves the key when a
// fetch is issued so concurrent bindings do not duplicate the request, and
// FinishAdd publishes the texture once GPU resources exist. AbortAdd removes
// a reservation after a failed or abandoned fetch so a later request starts
// fresh.
//
// The cache is touched only from the frame goroutine, so it is unlocked.
type ImageryCache struct {
	entries map[string]*imageryCacheEntry
}

// NewImageryCache creates an empty cache.
func NewImageryCache() *ImageryCache {
	return &ImageryCache{entries: make(map[string]*imageryCacheEntry)}
}

// Lookup reports the cache state for url: a ready texture, a pending
// reservation, or neither.
func (c *ImageryCache) Lookup(url string) (texture gpu.TextureHandle, ready, pending bool) {
	e, ok := c.entries[url]
	if !ok {
		return 0, false, false
	}
	if e.ready {
		return e.texture, true, false
	}
	return 0, false, true
}

// BeginAdd reserves url. It reports false when the key is already reserved
// or published.
func (c *ImageryCache) BeginAdd(url string) bool {
	if _, ok := c.entries[url]; ok {
		return false
	}
	c.entries[url] = &imageryCacheEntry{}
	return true
}

// AbortAdd drops a pending reservation. Published entries are unaffected.
func (c *ImageryCache) AbortAdd(url string) {
	if e, ok := c.entries[url]; ok && !e.ready {
		delete(c.entries, url)
	}
}

// FinishAdd publishes the texture under a previously reserved url. It
// reports false when no reservation exists.
func (c *ImageryCache) FinishAdd(url string, texture gpu.TextureHandle) bool {
	e, ok := c.entries[url]
	if !ok || e.ready {
		return false
	}
	e.texture = texture
	e.ready = true
	return true
}

// Len returns the number of entries, pending included.
func (c *ImageryCache) Len() int { return len(c.entries) }

// Destroy releases every published texture through pool and empties the
// cache. A nil pool skips texture destruction, for pools that outlive or
// never existed alongside the layer.
func (c *ImageryCache) Destroy(pool gpu.TexturePool) {
	if pool != nil {
		for _, e := range c.entries {
			if e.ready {
				pool.DestroyTexture(e.texture)
			}
		}
	}
	c.entries = make(map[string]*imageryCacheEntry)
}
