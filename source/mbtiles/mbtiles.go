// Package mbtiles reads imagery from MBTiles files, the SQLite-based tile
// archive format. Rows are stored in TMS order (row 0 at the south edge), so
// lookups flip the y coordinate.
package mbtiles

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "github.com/mattn/go-sqlite3"
	_ "golang.org/x/image/webp"

	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/tiling"
)

// Source errors.
var (
	// ErrClosed is returned by RequestImage after Close.
	ErrClosed = errors.New("mbtiles: source closed")

	// ErrBadTileURL is returned when a URL was not produced by
	// BuildImageURL.
	ErrBadTileURL = errors.New("mbtiles: malformed tile URL")
)

// Source is an ImagerySource over one MBTiles file.
type Source struct {
	db        *sql.DB
	path      string
	scheme    tiling.TilingScheme
	rectangle geo.Rectangle
	maxLevel  int
	tileSize  int
	closed    bool
}

// Open opens the MBTiles file at path and reads its metadata table for the
// extent and maximum zoom. Missing metadata falls back to the full web
// mercator extent and zoom 18.
func Open(path string) (*Source, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("mbtiles: open %s: %w", path, err)
	}

	scheme := tiling.NewWebMercatorTilingScheme(nil)
	s := &Source{
		db:        db,
		path:      path,
		scheme:    scheme,
		rectangle: scheme.Rectangle(),
		maxLevel:  18,
		tileSize:  256,
	}
	s.readMetadata()
	return s, nil
}

// readMetadata applies the optional bounds and maxzoom metadata rows.
func (s *Source) readMetadata() {
	rows, err := s.db.Query(`SELECT name, value FROM metadata WHERE name IN ('bounds', 'maxzoom')`)
	if err != nil {
		return
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			continue
		}
		switch name {
		case "maxzoom":
			if z, err := strconv.Atoi(value); err == nil && z >= 0 {
				s.maxLevel = z
			}
		case "bounds":
			// west,south,east,north in degrees.
			parts := strings.Split(value, ",")
			if len(parts) != 4 {
				continue
			}
			var b [4]float64
			ok := true
			for i, p := range parts {
				v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
				if err != nil {
					ok = false
					break
				}
				b[i] = v
			}
			if ok {
				bounds := geo.RectangleFromDegrees(b[0], b[1], b[2], b[3])
				s.rectangle = bounds.Intersection(s.scheme.Rectangle())
			}
		}
	}
}

// TilingScheme implements globe.ImagerySource.
func (s *Source) TilingScheme() tiling.TilingScheme { return s.scheme }

// Rectangle implements globe.ImagerySource.
func (s *Source) Rectangle() geo.Rectangle { return s.rectangle }

// MaximumLevel implements globe.ImagerySource.
func (s *Source) MaximumLevel() int { return s.maxLevel }

// TileWidth implements globe.ImagerySource.
func (s *Source) TileWidth() int { return s.tileSize }

// TileHeight implements globe.ImagerySource.
func (s *Source) TileHeight() int { return s.tileSize }

// BuildImageURL implements globe.ImagerySource. The pseudo-URL embeds the
// file path as the host part, so the per-host admission cap applies per
// archive, and the fragment carries the tile address.
func (s *Source) BuildImageURL(x, y, level int) string {
	return fmt.Sprintf("mbtiles://%s#%d/%d/%d", s.path, level, x, y)
}

// RequestImage implements globe.ImagerySource. A missing row means the
// archive has no tile there and yields (nil, nil).
func (s *Source) RequestImage(ctx context.Context, url string) (image.Image, error) {
	if s.closed {
		return nil, ErrClosed
	}

	z, x, y, err := parseTileURL(url)
	if err != nil {
		return nil, err
	}

	// MBTiles rows are TMS: row 0 is the southernmost.
	tmsRow := (1 << uint(z)) - 1 - y

	var blob []byte
	err = s.db.QueryRowContext(ctx,
		`SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`,
		z, x, tmsRow,
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mbtiles: query tile %d/%d/%d: %w", z, x, y, err)
	}

	img, _, err := image.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("mbtiles: decode tile %d/%d/%d: %w", z, x, y, err)
	}
	return img, nil
}

// Close closes the underlying database.
func (s *Source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// parseTileURL reverses BuildImageURL.
func parseTileURL(url string) (z, x, y int, err error) {
	hash := strings.LastIndexByte(url, '#')
	if !strings.HasPrefix(url, "mbtiles://") || hash < 0 {
		return 0, 0, 0, fmt.Errorf("%w: %s", ErrBadTileURL, url)
	}
	parts := strings.Split(url[hash+1:], "/")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: %s", ErrBadTileURL, url)
	}
	if z, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %s", ErrBadTileURL, url)
	}
	if x, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %s", ErrBadTileURL, url)
	}
	if y, err = strconv.Atoi(parts[2]); err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %s", ErrBadTileURL, url)
	}
	return z, x, y, nil
}
