// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu defines the resource pools that tile and imagery code uses to
// hold textures and geometry buffers without depending on a particular
// graphics backend.
//
// # Pools
//
// A TexturePool turns decoded RGBA pixels into opaque texture handles; a
// BufferPool does the same for vertex data and caches shared index buffers by
// grid dimensions with reference counting. Three implementations are
// provided:
//
//   - SoftwarePool keeps everything in CPU memory. It backs tests and
//     headless tile processing.
//   - ProviderPool adapts a gpucontext.TextureCreator, so any surface that
//     exposes one can receive tile textures.
//   - native.Pool (package gpu/native) talks to a hal.Device directly.
//
// Handles are plain integers so that callers never hold backend objects;
// the zero handle is never valid.
package gpu
