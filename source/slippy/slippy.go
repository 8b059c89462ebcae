// Package slippy fetches imagery from {z}/{x}/{y} HTTP tile servers, the
// layout used by OpenStreetMap-style services.
package slippy

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	// Tile servers commonly answer with PNG or JPEG; some serve WebP or BMP.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/gogpu/globe/geo"
	"github.com/gogpu/globe/tiling"
)

// Source errors.
var (
	// ErrEmptyTemplate is returned when the URL template is missing.
	ErrEmptyTemplate = errors.New("slippy: empty URL template")

	// ErrBadStatus wraps non-success HTTP responses.
	ErrBadStatus = errors.New("slippy: unexpected HTTP status")
)

// Source is an ImagerySource over an HTTP tile server. The URL template
// understands:
//
//	{z}   tile level
//	{x}   tile x
//	{y}   tile y (origin northwest)
//	{-y}  flipped tile y (origin southwest, TMS servers)
//	{s}   subdomain, rotated per request from the configured list
type Source struct {
	template   string
	subdomains []string
	client     *http.Client
	scheme     tiling.TilingScheme
	rectangle  geo.Rectangle
	maxLevel   int
	tileSize   int
}

// Option configures a Source.
type Option func(*Source)

// WithSubdomains sets the values substituted for {s}. Default "a", "b", "c".
func WithSubdomains(subdomains ...string) Option {
	return func(s *Source) { s.subdomains = subdomains }
}

// WithClient replaces the HTTP client.
func WithClient(client *http.Client) Option {
	return func(s *Source) { s.client = client }
}

// WithMaximumLevel sets the most detailed level the server offers.
// Default 18.
func WithMaximumLevel(level int) Option {
	return func(s *Source) { s.maxLevel = level }
}

// WithTileSize sets the pixel size of one tile. Default 256.
func WithTileSize(size int) Option {
	return func(s *Source) { s.tileSize = size }
}

// WithRectangle restricts the source to an extent, in radians. Default is
// the scheme's full extent.
func WithRectangle(r geo.Rectangle) Option {
	return func(s *Source) { s.rectangle = r }
}

// New creates a source for the URL template, tiled in web mercator.
func New(template string, opts ...Option) (*Source, error) {
	if template == "" {
		return nil, ErrEmptyTemplate
	}
	scheme := tiling.NewWebMercatorTilingScheme(nil)
	s := &Source{
		template:   template,
		subdomains: []string{"a", "b", "c"},
		scheme:     scheme,
		rectangle:  scheme.Rectangle(),
		maxLevel:   18,
		tileSize:   256,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
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

// BuildImageURL implements globe.ImagerySource. Subdomains rotate by tile
// address so the same tile always resolves to the same URL, keeping the
// content cache stable.
func (s *Source) BuildImageURL(x, y, level int) string {
	u := s.template
	u = strings.ReplaceAll(u, "{z}", strconv.Itoa(level))
	u = strings.ReplaceAll(u, "{x}", strconv.Itoa(x))
	u = strings.ReplaceAll(u, "{-y}", strconv.Itoa((1<<uint(level))-1-y))
	u = strings.ReplaceAll(u, "{y}", strconv.Itoa(y))
	if strings.Contains(u, "{s}") && len(s.subdomains) > 0 {
		sub := s.subdomains[(x+y)%len(s.subdomains)]
		u = strings.ReplaceAll(u, "{s}", sub)
	}
	return u
}

// RequestImage implements globe.ImagerySource. A 204 or 404 response means
// the server has no tile there and yields (nil, nil); other non-success
// statuses are errors.
func (s *Source) RequestImage(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("slippy: build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slippy: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %d fetching %s", ErrBadStatus, resp.StatusCode, url)
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("slippy: decode %s: %w", url, err)
	}
	return img, nil
}
