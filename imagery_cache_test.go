package globe

import (
	"testing"

	"github.com/gogpu/globe/gpu"
)

func TestImageryCacheLifecycle(t *testing.T) {
	c := NewImageryCache()
	const url = "https://tiles.test/1/0/0.png"

	if _, ready, pending := c.Lookup(url); ready || pending {
		t.Fatal("empty cache reported an entry")
	}

	if !c.BeginAdd(url) {
		t.Fatal("BeginAdd refused a fresh key")
	}
	if c.BeginAdd(url) {
		t.Error("BeginAdd accepted a reserved key")
	}
	if _, ready, pending := c.Lookup(url); ready || !pending {
		t.Error("reserved key not reported pending")
	}

	if !c.FinishAdd(url, gpu.TextureHandle(7)) {
		t.Fatal("FinishAdd refused a reserved key")
	}
	texture, ready, pending := c.Lookup(url)
	if !ready || pending || texture != 7 {
		t.Errorf("Lookup after FinishAdd = (%d, %v, %v)", texture, ready, pending)
	}

	// Published entries are immune to AbortAdd and a second FinishAdd.
	c.AbortAdd(url)
	if _, ready, _ := c.Lookup(url); !ready {
		t.Error("AbortAdd removed a published entry")
	}
	if c.FinishAdd(url, gpu.TextureHandle(9)) {
		t.Error("FinishAdd replaced a published entry")
	}
}

func TestImageryCacheAbortPending(t *testing.T) {
	c := NewImageryCache()
	c.BeginAdd("u")
	c.AbortAdd("u")
	if _, _, pending := c.Lookup("u"); pending {
		t.Error("aborted reservation still pending")
	}
	if !c.BeginAdd("u") {
		t.Error("BeginAdd refused after abort")
	}
}

func TestImageryCacheFinishWithoutBegin(t *testing.T) {
	c := NewImageryCache()
	if c.FinishAdd("u", 1) {
		t.Error("FinishAdd accepted an unreserved key")
	}
}

func TestImageryCacheDestroyReleasesTextures(t *testing.T) {
	pool := gpu.NewSoftwarePool()
	defer pool.Destroy()

	h, err := pool.CreateTexture(1, 1, make([]byte, 4))
	if err != nil {
		t.Fatal(err)
	}

	c := NewImageryCache()
	c.BeginAdd("ready")
	c.FinishAdd("ready", h)
	c.BeginAdd("pending")

	c.Destroy(pool)

	if pool.LiveTextures() != 0 {
		t.Errorf("live textures after Destroy = %d, want 0", pool.LiveTextures())
	}
	if c.Len() != 0 {
		t.Errorf("cache length after Destroy = %d, want 0", c.Len())
	}
}
