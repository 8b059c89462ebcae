// Command globefetch warms an imagery cache by streaming every imagery tile
// that overlaps an extent at one terrain level, using the same pipeline the
// render loop drives: skeleton creation, per-host admission, content-cache
// deduplication, and the retry policy.
package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/gogpu/globe"
	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/gpu"
	"github.com/gogpu/globe/source/mbtiles"
	"github.com/gogpu/globe/source/slippy"
	"github.com/gogpu/globe/terrain"
)

func main() {
	var (
		template = flag.String("url", "", "slippy URL template, e.g. https://tile.openstreetmap.org/{z}/{x}/{y}.png")
		archive  = flag.String("mbtiles", "", "MBTiles archive path, used instead of -url")
		level    = flag.Int("level", 3, "terrain tile level to prefetch")
		west     = flag.Float64("west", -180, "extent west edge in degrees")
		south    = flag.Float64("south", -90, "extent south edge in degrees")
		east     = flag.Float64("east", 180, "extent east edge in degrees")
		north    = flag.Float64("north", 90, "extent north edge in degrees")
	)
	flag.Parse()

	var source globe.ImagerySource
	switch {
	case *archive != "":
		src, err := mbtiles.Open(*archive)
		if err != nil {
			log.Fatalf("open archive: %v", err)
		}
		defer src.Close()
		source = src
	case *template != "":
		src, err := slippy.New(*template)
		if err != nil {
			log.Fatalf("bad template: %v", err)
		}
		source = src
	default:
		flag.Usage()
		os.Exit(2)
	}

	extent := geo.RectangleFromDegrees(*west, *south, *east, *north)
	provider := terrain.NewEllipsoidTerrainProvider(nil)
	layer := globe.NewImageryLayer(source)
	pool := gpu.NewSoftwarePool()
	defer pool.Destroy()

	var tiles []*globe.Tile
	for _, root := range globe.RootTiles(provider.TilingScheme()) {
		collect(root, extent, *level, &tiles)
	}

	bindings := 0
	for _, tile := range tiles {
		if layer.CreateTileImagerySkeletons(tile, provider) {
			bindings += len(tile.Imagery)
		}
	}
	if bindings == 0 {
		log.Fatal("no imagery overlaps the extent")
	}
	log.Printf("fetching %d imagery tiles across %d terrain tiles", bindings, len(tiles))

	start := time.Now()
	ready, failed, invalid := pump(layer, pool, tiles)
	log.Printf("done in %v: %d ready, %d failed, %d empty (cache holds %d textures)",
		time.Since(start).Round(time.Millisecond), ready, failed, invalid, layer.Cache().Len())
	if failed > 0 {
		os.Exit(1)
	}
}

// collect gathers the tiles at the target level whose extent overlaps rect.
func collect(tile *globe.Tile, rect geo.Rectangle, level int, out *[]*globe.Tile) {
	if tile.Rectangle().Intersection(rect).IsEmpty() {
		return
	}
	if tile.Level() == level {
		*out = append(*out, tile)
		return
	}
	for _, child := range tile.Children() {
		collect(child, rect, level, out)
	}
}

// pump drives every binding to a terminal state the way a frame loop would,
// one pass per iteration.
func pump(layer *globe.ImageryLayer, pool gpu.TexturePool, tiles []*globe.Tile) (ready, failed, invalid int) {
	for {
		ready, failed, invalid = 0, 0, 0
		settled := true

		for _, tile := range tiles {
			for _, ti := range tile.Imagery {
				switch ti.State {
				case globe.ImageryUnloaded:
					layer.RequestImagery(ti)
					settled = false
				case globe.ImageryReceived:
					layer.TransformImagery(ti)
					settled = false
				case globe.ImageryTransitioning:
					layer.CreateResources(pool, ti)
					settled = false
				case globe.ImageryTransmitting:
					settled = false
				case globe.ImageryReady:
					ready++
				case globe.ImageryFailed:
					failed++
				case globe.ImageryInvalid:
					invalid++
				}
			}
		}
		layer.Poll()
		if layer.Suspended() {
			log.Print("source suspended after repeated failures, giving up")
			return ready, failed, invalid
		}
		if settled {
			return ready, failed, invalid
		}
		time.Sleep(10 * time.Millisecond)
	}
}
