package globe

import "testing"

func TestSchedulerCapPerHost(t *testing.T) {
	s := NewRequestScheduler(0)

	for i := 0; i < DefaultMaximumRequestsPerHost; i++ {
		if !s.TryAcquire("tiles.example.com") {
			t.Fatalf("request %d refused under the cap", i)
		}
	}
	if s.TryAcquire("tiles.example.com") {
		t.Error("request admitted above the cap")
	}
	if s.InFlight("tiles.example.com") != DefaultMaximumRequestsPerHost {
		t.Errorf("InFlight = %d, want %d", s.InFlight("tiles.example.com"), DefaultMaximumRequestsPerHost)
	}

	// Other hosts are unaffected.
	if !s.TryAcquire("other.example.com") {
		t.Error("independent host refused")
	}

	// A completion opens one slot.
	s.Release("tiles.example.com")
	if !s.TryAcquire("tiles.example.com") {
		t.Error("request refused after a release")
	}
}

func TestSchedulerReleaseToZero(t *testing.T) {
	s := NewRequestScheduler(2)
	s.TryAcquire("h")
	s.Release("h")
	if s.InFlight("h") != 0 {
		t.Errorf("InFlight = %d, want 0", s.InFlight("h"))
	}
}

func TestHostOf(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://a.tiles.test/3/1/2.png", "a.tiles.test"},
		{"mbtiles://world.mbtiles#3/1/2", "world.mbtiles"},
		{"mbtiles:///var/tiles/world.mbtiles#3/1/2", "mbtiles:///var/tiles/world.mbtiles"},
		{"not a url at all", "not a url at all"},
	}
	for _, tt := range tests {
		if got := hostOf(tt.url); got != tt.want {
			t.Errorf("hostOf(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestHostOfKeyedPerArchive(t *testing.T) {
	// Absolute archive paths parse with an empty host; every tile of the
	// archive must still land on one admission key or the per-host cap
	// would never engage.
	a := hostOf("mbtiles:///var/tiles/world.mbtiles#3/1/2")
	b := hostOf("mbtiles:///var/tiles/world.mbtiles#3/1/3")
	if a != b {
		t.Errorf("tiles of one archive got distinct admission keys %q and %q", a, b)
	}
}
