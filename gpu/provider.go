// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
)

// ErrNoCreator is returned when a ProviderPool is constructed without a
// texture creator.
var ErrNoCreator = errors.New("gpu: nil texture creator")

// ProviderPool adapts a gpucontext.TextureCreator into a TexturePool, so any
// drawing surface that exposes a creator can receive tile textures. It does
// not implement BufferPool; pair it with a SoftwarePool or native.Pool when
// geometry buffers are needed.
type ProviderPool struct {
	mu        sync.Mutex
	destroyed bool
	creator   gpucontext.TextureCreator
	nextID    uint64
	textures  map[TextureHandle]any
}

// NewProviderPool wraps creator in a TexturePool.
func NewProviderPool(creator gpucontext.TextureCreator) (*ProviderPool, error) {
	if creator == nil {
		return nil, ErrNoCreator
	}
	return &ProviderPool{
		creator:  creator,
		textures: make(map[TextureHandle]any),
	}, nil
}

// CreateTexture implements TexturePool.
func (p *ProviderPool) CreateTexture(width, height int, pixels []byte) (TextureHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return 0, ErrPoolDestroyed
	}
	if width <= 0 || height <= 0 || len(pixels) != width*height*4 {
		return 0, ErrEmptyPixels
	}
	tex, err := p.creator.NewTextureFromRGBA(width, height, pixels)
	if err != nil {
		return 0, fmt.Errorf("gpu: create texture: %w", err)
	}
	p.nextID++
	h := TextureHandle(p.nextID)
	p.textures[h] = tex
	return h, nil
}

// DestroyTexture implements TexturePool.
func (p *ProviderPool) DestroyTexture(h TextureHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return ErrPoolDestroyed
	}
	tex, ok := p.textures[h]
	if !ok {
		return ErrInvalidHandle
	}
	delete(p.textures, h)
	if d, ok := tex.(interface{ Destroy() }); ok {
		d.Destroy()
	}
	return nil
}

// Destroy releases all textures still held by the pool.
func (p *ProviderPool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return
	}
	p.destroyed = true
	for _, tex := range p.textures {
		if d, ok := tex.(interface{ Destroy() }); ok {
			d.Destroy()
		}
	}
	p.textures = nil
}

// IsDestroyed reports whether Destroy has been called.
func (p *ProviderPool) IsDestroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}
