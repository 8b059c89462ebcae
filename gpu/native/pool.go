// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package native implements gpu.ResourcePool on a wgpu hal.Device. Textures
// and buffers are created through the device and uploaded through its queue;
// the pool owns every resource it hands out and releases them all on Destroy.
package native

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/globe/gpu"
)

// ErrNilDevice is returned when the pool is constructed without a device or
// queue.
var ErrNilDevice = errors.New("native: nil device or queue")

type sharedIndexBuffer struct {
	buffer hal.Buffer
	handle gpu.BufferHandle
	refs   int
}

// Pool is a gpu.ResourcePool backed by a hal.Device.
type Pool struct {
	mu        sync.Mutex
	destroyed bool
	device    hal.Device
	queue     hal.Queue
	nextID    uint64
	textures  map[gpu.TextureHandle]hal.Texture
	vertices  map[gpu.BufferHandle]hal.Buffer
	indices   map[gpu.IndexBufferKey]*sharedIndexBuffer
}

// NewPool creates a pool on the device and queue.
func NewPool(device hal.Device, queue hal.Queue) (*Pool, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	return &Pool{
		device:   device,
		queue:    queue,
		textures: make(map[gpu.TextureHandle]hal.Texture),
		vertices: make(map[gpu.BufferHandle]hal.Buffer),
		indices:  make(map[gpu.IndexBufferKey]*sharedIndexBuffer),
	}, nil
}

// CreateTexture implements gpu.TexturePool.
func (p *Pool) CreateTexture(width, height int, pixels []byte) (gpu.TextureHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return 0, gpu.ErrPoolDestroyed
	}
	if width <= 0 || height <= 0 || len(pixels) != width*height*4 {
		return 0, gpu.ErrEmptyPixels
	}

	w, h := uint32(width), uint32(height)
	tex, err := p.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "tile_imagery",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return 0, fmt.Errorf("native: create texture: %w", err)
	}

	p.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
		},
		pixels,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  w * 4,
			RowsPerImage: h,
		},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)

	p.nextID++
	handle := gpu.TextureHandle(p.nextID)
	p.textures[handle] = tex
	return handle, nil
}

// DestroyTexture implements gpu.TexturePool.
func (p *Pool) DestroyTexture(h gpu.TextureHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return gpu.ErrPoolDestroyed
	}
	tex, ok := p.textures[h]
	if !ok {
		return gpu.ErrInvalidHandle
	}
	delete(p.textures, h)
	p.device.DestroyTexture(tex)
	return nil
}

// CreateVertexBuffer implements gpu.BufferPool.
func (p *Pool) CreateVertexBuffer(data []float32) (gpu.BufferHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return 0, gpu.ErrPoolDestroyed
	}

	buf, err := p.createAndWrite("tile_vertices", float32Bytes(data), gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return 0, err
	}
	p.nextID++
	handle := gpu.BufferHandle(p.nextID)
	p.vertices[handle] = buf
	return handle, nil
}

// DestroyVertexBuffer implements gpu.BufferPool.
func (p *Pool) DestroyVertexBuffer(h gpu.BufferHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return gpu.ErrPoolDestroyed
	}
	buf, ok := p.vertices[h]
	if !ok {
		return gpu.ErrInvalidHandle
	}
	delete(p.vertices, h)
	p.device.DestroyBuffer(buf)
	return nil
}

// AcquireIndexBuffer implements gpu.BufferPool.
func (p *Pool) AcquireIndexBuffer(key gpu.IndexBufferKey, create func() []uint16) (gpu.BufferHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return 0, gpu.ErrPoolDestroyed
	}
	if shared, ok := p.indices[key]; ok {
		shared.refs++
		return shared.handle, nil
	}

	buf, err := p.createAndWrite("tile_indices", uint16Bytes(create()), gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return 0, err
	}
	p.nextID++
	handle := gpu.BufferHandle(p.nextID)
	p.indices[key] = &sharedIndexBuffer{buffer: buf, handle: handle, refs: 1}
	return handle, nil
}

// ReleaseIndexBuffer implements gpu.BufferPool.
func (p *Pool) ReleaseIndexBuffer(key gpu.IndexBufferKey) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return gpu.ErrPoolDestroyed
	}
	shared, ok := p.indices[key]
	if !ok {
		return gpu.ErrInvalidHandle
	}
	shared.refs--
	if shared.refs == 0 {
		delete(p.indices, key)
		p.device.DestroyBuffer(shared.buffer)
	}
	return nil
}

// Destroy releases every texture and buffer the pool still owns. Further
// calls on the pool return gpu.ErrPoolDestroyed.
func (p *Pool) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.destroyed {
		return
	}
	p.destroyed = true
	for _, tex := range p.textures {
		p.device.DestroyTexture(tex)
	}
	for _, buf := range p.vertices {
		p.device.DestroyBuffer(buf)
	}
	for _, shared := range p.indices {
		p.device.DestroyBuffer(shared.buffer)
	}
	p.textures = nil
	p.vertices = nil
	p.indices = nil
}

// IsDestroyed reports whether Destroy has been called.
func (p *Pool) IsDestroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

// createAndWrite creates a buffer and uploads data through the queue.
// Callers hold p.mu.
func (p *Pool) createAndWrite(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	// Zero-sized buffers are rejected by some backends.
	size := uint64(len(data))
	if size < 4 {
		size = 4
	}
	buf, err := p.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create buffer %q: %w", label, err)
	}
	if len(data) > 0 {
		p.queue.WriteBuffer(buf, 0, data)
	}
	return buf, nil
}

func float32Bytes(data []float32) []byte {
	out := make([]byte, len(data)*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func uint16Bytes(data []uint16) []byte {
	out := make([]byte, len(data)*2)
	for i, v := range data {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}
