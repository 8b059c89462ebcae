package globe

import (
	"context"
	"image"

	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/tiling"
)

// ImagerySource supplies tiled imagery to an ImageryLayer. Implementations
// live in source/slippy and source/mbtiles; anything with the same shape
// works.
//
// RequestImage is called from fetch goroutines and must be safe for
// concurrent use. A (nil, nil) return means the source has no image for the
// tile, which is recorded as ImageryInvalid and never retried; an error is a
// transient failure retried under the layer's policy.
type ImagerySource interface {
	// TilingScheme returns the scheme the source's tiles are addressed in.
	TilingScheme() tiling.TilingScheme

	// Rectangle returns the extent the source has data for.
	Rectangle() geo.Rectangle

	// MaximumLevel returns the most detailed level available.
	MaximumLevel() int

	// TileWidth and TileHeight return the pixel dimensions of one tile.
	TileWidth() int
	TileHeight() int

	// BuildImageURL resolves the address of one tile's image. The result
	// keys the layer's content cache, so equal URLs must mean equal
	// images.
	BuildImageURL(x, y, level int) string

	// RequestImage fetches and decodes the image at url.
	RequestImage(ctx context.Context, url string) (image.Image, error)
}

// ImageTransformer converts a decoded image into RGBA pixels of the layer's
// tile dimensions. The default uses gpu.ImageToRGBA.
type ImageTransformer func(img image.Image, width, height int) []byte
