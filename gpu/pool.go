// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import "errors"

// Pool errors.
var (
	// ErrPoolDestroyed is returned by pool operations after Destroy.
	ErrPoolDestroyed = errors.New("gpu: pool destroyed")

	// ErrInvalidHandle is returned when a handle does not name a live
	// resource in the pool.
	ErrInvalidHandle = errors.New("gpu: invalid handle")

	// ErrEmptyPixels is returned when texture dimensions do not match the
	// supplied pixel data.
	ErrEmptyPixels = errors.New("gpu: pixel data does not match dimensions")
)

// TextureHandle names a texture owned by a TexturePool. Zero is never valid.
type TextureHandle uint64

// BufferHandle names a buffer owned by a BufferPool. Zero is never valid.
type BufferHandle uint64

// IndexBufferKey identifies a shared index buffer by the grid it triangulates.
type IndexBufferKey struct {
	Width  int
	Height int
}

// TexturePool creates and destroys tile textures.
type TexturePool interface {
	// CreateTexture uploads w*h RGBA pixels (4 bytes each, row-major,
	// north row first) and returns a handle to the resulting texture.
	CreateTexture(width, height int, pixels []byte) (TextureHandle, error)

	// DestroyTexture releases the texture. Destroying an invalid handle
	// returns ErrInvalidHandle.
	DestroyTexture(h TextureHandle) error
}

// BufferPool creates vertex buffers and shares index buffers between tiles.
// All tiles of a given grid size triangulate identically, so their index
// buffer is created once and reference counted.
type BufferPool interface {
	// CreateVertexBuffer uploads vertex data and returns a handle.
	CreateVertexBuffer(data []float32) (BufferHandle, error)

	// DestroyVertexBuffer releases a vertex buffer.
	DestroyVertexBuffer(h BufferHandle) error

	// AcquireIndexBuffer returns the shared index buffer for key,
	// invoking create to build the index data only on first acquisition.
	// Each acquisition must be balanced by a ReleaseIndexBuffer.
	AcquireIndexBuffer(key IndexBufferKey, create func() []uint16) (BufferHandle, error)

	// ReleaseIndexBuffer drops one reference to the shared index buffer;
	// the buffer is destroyed when the last reference is released.
	ReleaseIndexBuffer(key IndexBufferKey) error
}

// ResourcePool combines texture and buffer pooling. The software and native
// pools implement it.
type ResourcePool interface {
	TexturePool
	BufferPool
}
