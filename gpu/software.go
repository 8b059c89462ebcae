// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "sync"

type softwareTexture struct {
	width  int
	height int
	pixels []byte
}

type softwareBuffer struct {
	vertices []float32
	indices  []uint16
	refs     int
}

// SoftwarePool is a CPU-only ResourcePool. It retains uploaded data so tests
// can inspect it, and counts live resources so leak checks stay cheap.
type SoftwarePool struct {
	mu        sync.Mutex
	destroyed bool
	nextID    uint64
	textures  map[TextureHandle]*softwareTexture
	vertices  map[BufferHandle]*softwareBuffer
	indices   map[IndexBufferKey]BufferHandle
	shared    map[BufferHandle]*softwareBuffer
}

// NewSoftwarePool creates an empty software pool.
func NewSoftwarePool() *SoftwarePool {
	return &SoftwarePool{
		textures: make(map[TextureHandle]*softwareTexture),
		vertices: make(map[BufferHandle]*softwareBuffer),
		indices:  make(map[IndexBufferKey]BufferHandle),
		shared:   make(map[BufferHandle]*softwareBuffer),
	}
}

// CreateTexture implements TexturePool.
func (p *SoftwarePool) CreateTexture(width, height int, pixels []byte) (TextureHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return 0, ErrPoolDestroyed
	}
	if width <= 0 || height <= 0 || len(pixels) != width*height*4 {
		return 0, ErrEmptyPixels
	}
	p.nextID++
	h := TextureHandle(p.nextID)
	p.textures[h] = &softwareTexture{width: width, height: height, pixels: pixels}
	return h, nil
}

// DestroyTexture implements TexturePool.
func (p *SoftwarePool) DestroyTexture(h TextureHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return ErrPoolDestroyed
	}
	if _, ok := p.textures[h]; !ok {
		return ErrInvalidHandle
	}
	delete(p.textures, h)
	return nil
}

// CreateVertexBuffer implements BufferPool.
func (p *SoftwarePool) CreateVertexBuffer(data []float32) (BufferHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return 0, ErrPoolDestroyed
	}
	p.nextID++
	h := BufferHandle(p.nextID)
	p.vertices[h] = &softwareBuffer{vertices: data}
	return h, nil
}

// DestroyVertexBuffer implements BufferPool.
func (p *SoftwarePool) DestroyVertexBuffer(h BufferHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return ErrPoolDestroyed
	}
	if _, ok := p.vertices[h]; !ok {
		return ErrInvalidHandle
	}
	delete(p.vertices, h)
	return nil
}

// AcquireIndexBuffer implements BufferPool.
func (p *SoftwarePool) AcquireIndexBuffer(key IndexBufferKey, create func() []uint16) (BufferHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return 0, ErrPoolDestroyed
	}
	if h, ok := p.indices[key]; ok {
		p.shared[h].refs++
		return h, nil
	}
	p.nextID++
	h := BufferHandle(p.nextID)
	p.indices[key] = h
	p.shared[h] = &softwareBuffer{indices: create(), refs: 1}
	return h, nil
}

// ReleaseIndexBuffer implements BufferPool.
func (p *SoftwarePool) ReleaseIndexBuffer(key IndexBufferKey) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return ErrPoolDestroyed
	}
	h, ok := p.indices[key]
	if !ok {
		return ErrInvalidHandle
	}
	buf := p.shared[h]
	buf.refs--
	if buf.refs == 0 {
		delete(p.shared, h)
		delete(p.indices, key)
	}
	return nil
}

// TexturePixels returns the pixel data uploaded for h, or nil when the handle
// is not live. Intended for tests.
func (p *SoftwarePool) TexturePixels(h TextureHandle) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.textures[h]; ok {
		return t.pixels
	}
	return nil
}

// LiveTextures returns the number of textures currently held.
func (p *SoftwarePool) LiveTextures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.textures)
}

// LiveBuffers returns the number of vertex and shared index buffers held.
func (p *SoftwarePool) LiveBuffers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.vertices) + len(p.shared)
}

// IndexBufferRefs returns the reference count of the shared index buffer for
// key, or zero when none exists. Intended for tests.
func (p *SoftwarePool) IndexBufferRefs(key IndexBufferKey) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.indices[key]; ok {
		return p.shared[h].refs
	}
	return 0
}

// Destroy releases all resources. Further calls on the pool return
// ErrPoolDestroyed.
func (p *SoftwarePool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyed = true
	p.textures = nil
	p.vertices = nil
	p.indices = nil
	p.shared = nil
}

// IsDestroyed reports whether Destroy has been called.
func (p *SoftwarePool) IsDestroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}
