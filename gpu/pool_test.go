// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/gpucontext"
)

func TestSoftwarePoolTextureLifecycle(t *testing.T) {
	p := NewSoftwarePool()
	defer p.Destroy()

	pixels := make([]byte, 2*2*4)
	h, err := p.CreateTexture(2, 2, pixels)
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	if h == 0 {
		t.Fatal("CreateTexture returned zero handle")
	}
	if p.LiveTextures() != 1 {
		t.Errorf("LiveTextures = %d, want 1", p.LiveTextures())
	}
	if got := p.TexturePixels(h); !bytes.Equal(got, pixels) {
		t.Error("TexturePixels does not match uploaded data")
	}
	if err := p.DestroyTexture(h); err != nil {
		t.Fatalf("DestroyTexture: %v", err)
	}
	if p.LiveTextures() != 0 {
		t.Errorf("LiveTextures after destroy = %d, want 0", p.LiveTextures())
	}
	if err := p.DestroyTexture(h); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("second DestroyTexture = %v, want ErrInvalidHandle", err)
	}
}

func TestSoftwarePoolRejectsMismatchedPixels(t *testing.T) {
	p := NewSoftwarePool()
	defer p.Destroy()

	if _, err := p.CreateTexture(4, 4, make([]byte, 3)); !errors.Is(err, ErrEmptyPixels) {
		t.Errorf("CreateTexture with short pixels = %v, want ErrEmptyPixels", err)
	}
	if _, err := p.CreateTexture(0, 4, nil); !errors.Is(err, ErrEmptyPixels) {
		t.Errorf("CreateTexture with zero width = %v, want ErrEmptyPixels", err)
	}
}

func TestSoftwarePoolIndexBufferSharing(t *testing.T) {
	p := NewSoftwarePool()
	defer p.Destroy()

	key := IndexBufferKey{Width: 65, Height: 65}
	calls := 0
	create := func() []uint16 {
		calls++
		return []uint16{0, 1, 2}
	}

	h1, err := p.AcquireIndexBuffer(key, create)
	if err != nil {
		t.Fatalf("AcquireIndexBuffer: %v", err)
	}
	h2, err := p.AcquireIndexBuffer(key, create)
	if err != nil {
		t.Fatalf("AcquireIndexBuffer: %v", err)
	}
	if h1 != h2 {
		t.Errorf("same key produced distinct handles %d and %d", h1, h2)
	}
	if calls != 1 {
		t.Errorf("create invoked %d times, want 1", calls)
	}
	if refs := p.IndexBufferRefs(key); refs != 2 {
		t.Errorf("IndexBufferRefs = %d, want 2", refs)
	}

	if err := p.ReleaseIndexBuffer(key); err != nil {
		t.Fatalf("ReleaseIndexBuffer: %v", err)
	}
	if refs := p.IndexBufferRefs(key); refs != 1 {
		t.Errorf("IndexBufferRefs after one release = %d, want 1", refs)
	}
	if err := p.ReleaseIndexBuffer(key); err != nil {
		t.Fatalf("ReleaseIndexBuffer: %v", err)
	}
	if p.LiveBuffers() != 0 {
		t.Errorf("LiveBuffers after final release = %d, want 0", p.LiveBuffers())
	}

	// A fresh acquisition after the buffer was dropped rebuilds it.
	if _, err := p.AcquireIndexBuffer(key, create); err != nil {
		t.Fatalf("AcquireIndexBuffer after drop: %v", err)
	}
	if calls != 2 {
		t.Errorf("create invoked %d times after re-acquire, want 2", calls)
	}
}

func TestSoftwarePoolDestroyed(t *testing.T) {
	p := NewSoftwarePool()
	p.Destroy()
	if !p.IsDestroyed() {
		t.Fatal("IsDestroyed = false after Destroy")
	}
	if _, err := p.CreateTexture(1, 1, make([]byte, 4)); !errors.Is(err, ErrPoolDestroyed) {
		t.Errorf("CreateTexture on destroyed pool = %v, want ErrPoolDestroyed", err)
	}
	if _, err := p.CreateVertexBuffer([]float32{0}); !errors.Is(err, ErrPoolDestroyed) {
		t.Errorf("CreateVertexBuffer on destroyed pool = %v, want ErrPoolDestroyed", err)
	}
}

type fakeTexture struct {
	destroyed bool
}

func (f *fakeTexture) Destroy() { f.destroyed = true }

func (f *fakeTexture) Width() int { return 1 }

func (f *fakeTexture) Height() int { return 1 }

type fakeCreator struct {
	created []*fakeTexture
	fail    error
}

func (f *fakeCreator) NewTextureFromRGBA(width, height int, data []byte) (gpucontext.Texture, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	tex := &fakeTexture{}
	f.created = append(f.created, tex)
	return tex, nil
}

func TestProviderPoolCreatesAndDestroys(t *testing.T) {
	creator := &fakeCreator{}
	p, err := NewProviderPool(creator)
	if err != nil {
		t.Fatalf("NewProviderPool: %v", err)
	}

	h, err := p.CreateTexture(1, 1, make([]byte, 4))
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	if len(creator.created) != 1 {
		t.Fatalf("creator called %d times, want 1", len(creator.created))
	}
	if err := p.DestroyTexture(h); err != nil {
		t.Fatalf("DestroyTexture: %v", err)
	}
	if !creator.created[0].destroyed {
		t.Error("backing texture not destroyed with handle")
	}
}

func TestProviderPoolDestroyReleasesAll(t *testing.T) {
	creator := &fakeCreator{}
	p, err := NewProviderPool(creator)
	if err != nil {
		t.Fatalf("NewProviderPool: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := p.CreateTexture(1, 1, make([]byte, 4)); err != nil {
			t.Fatalf("CreateTexture: %v", err)
		}
	}
	p.Destroy()
	for i, tex := range creator.created {
		if !tex.destroyed {
			t.Errorf("texture %d not destroyed by pool Destroy", i)
		}
	}
	if _, err := p.CreateTexture(1, 1, make([]byte, 4)); !errors.Is(err, ErrPoolDestroyed) {
		t.Errorf("CreateTexture after Destroy = %v, want ErrPoolDestroyed", err)
	}
}

func TestProviderPoolNilCreator(t *testing.T) {
	if _, err := NewProviderPool(nil); !errors.Is(err, ErrNoCreator) {
		t.Errorf("NewProviderPool(nil) = %v, want ErrNoCreator", err)
	}
}

func TestImageToRGBAPassThrough(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	img.SetRGBA(1, 1, color.RGBA{B: 255, A: 255})

	out := ImageToRGBA(img, 2, 2)
	if len(out) != 2*2*4 {
		t.Fatalf("len = %d, want 16", len(out))
	}
	if out[0] != 255 || out[3] != 255 {
		t.Errorf("pixel (0,0) = %v, want red", out[0:4])
	}
	if out[14] != 255 {
		t.Errorf("pixel (1,1) blue channel = %d, want 255", out[14])
	}
}

func TestImageToRGBAScales(t *testing.T) {
	// A uniform gray source must stay uniform through rescaling.
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	out := ImageToRGBA(img, 4, 4)
	if len(out) != 4*4*4 {
		t.Fatalf("len = %d, want 64", len(out))
	}
	for i, v := range out {
		if v < 126 || v > 130 {
			t.Fatalf("byte %d = %d, want about 128", i, v)
		}
	}
}

func TestImageToRGBAConvertsNonRGBA(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(0, 0, color.Gray{Y: 200})
	out := ImageToRGBA(img, 2, 2)
	if out[0] != 200 || out[1] != 200 || out[2] != 200 || out[3] != 255 {
		t.Errorf("gray pixel converted to %v, want (200,200,200,255)", out[0:4])
	}
}
