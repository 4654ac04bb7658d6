package tiles

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	DefaultURLTemplate = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultUserAgent   = "gio-tiles/1.0 (+https://github.com/olablt/gio-tiles)"
)

// HTTPProvider loads tiles from an XYZ tile server.
type HTTPProvider struct {
	client     *http.Client
	template   string
	subdomains []string
	userAgent  string
	referer    string
	logger     *slog.Logger
}

type HTTPOption func(*HTTPProvider)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(p *HTTPProvider) { p.client = c }
}

// WithSubdomains sets the values cycled through for {s} in the template.
func WithSubdomains(s ...string) HTTPOption {
	return func(p *HTTPProvider) { p.subdomains = s }
}

func WithUserAgent(ua string) HTTPOption {
	return func(p *HTTPProvider) { p.userAgent = ua }
}

func WithReferer(r string) HTTPOption {
	return func(p *HTTPProvider) { p.referer = r }
}

func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(p *HTTPProvider) { p.logger = l }
}

// NewHTTPProvider creates a provider for template, which may contain {z},
// {x}, {y} and {s}. An empty template means OpenStreetMap.
func NewHTTPProvider(template string, opts ...HTTPOption) *HTTPProvider {
	if template == "" {
		template = DefaultURLTemplate
	}
	p := &HTTPProvider{
		client:    &http.Client{},
		template:  template,
		userAgent: DefaultUserAgent,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	p.logger = p.logger.With("component", "http-provider")
	return p
}

// URL returns the URL for downloading the map tile
func (p *HTTPProvider) URL(tile TileAddress) string {
	r := strings.NewReplacer(
		"{z}", strconv.Itoa(tile.Zoom),
		"{x}", strconv.Itoa(tile.X),
		"{y}", strconv.Itoa(tile.Y),
		"{s}", p.subdomain(tile),
	)
	return r.Replace(p.template)
}

func (p *HTTPProvider) subdomain(tile TileAddress) string {
	if len(p.subdomains) == 0 {
		return ""
	}
	return p.subdomains[(tile.X+tile.Y)%len(p.subdomains)]
}

func (p *HTTPProvider) GetTile(ctx context.Context, tile TileAddress) (image.Image, error) {
	url := p.URL(tile)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TileFetchError{Address: tile, URL: url, Err: err}
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "image/png,image/jpeg,image/*;q=0.8")
	if p.referer != "" {
		req.Header.Set("Referer", p.referer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &TileFetchError{Address: tile, URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TileFetchError{Address: tile, URL: url, Status: resp.StatusCode,
			Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TileFetchError{Address: tile, URL: url, Status: resp.StatusCode, Err: err}
	}
	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, &TileFetchError{Address: tile, URL: url, Status: resp.StatusCode,
			Err: fmt.Errorf("decode: %w", err)}
	}

	p.logger.Debug("Tile fetched",
		"tile", tile.String(),
		"url", url,
		"format", format,
		"size", humanize.Bytes(uint64(len(body))),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return img, nil
}
