// Package server renders map views over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/paulmach/orb/geojson"

	"github.com/olablt/gio-tiles/render"
	"github.com/olablt/gio-tiles/tiles"
)

const maxViewportSide = 4096

type Options struct {
	MinZoom      int
	MaxZoom      int
	Width        int
	Height       int
	FrameTimeout time.Duration
	TextureCache int
}

// Server renders a view per request. Tiles are shared through provider,
// normally a *tiles.TileManager, possibly behind a *tiles.FallbackProvider.
type Server struct {
	provider tiles.TileProvider
	opts     Options
	router   *mux.Router
	logger   *slog.Logger
}

func New(provider tiles.TileProvider, opts Options) *Server {
	s := &Server{
		provider: provider,
		opts:     opts,
		router:   mux.NewRouter(),
		logger:   slog.With("component", "server"),
	}
	s.router.HandleFunc("/render", s.handleRender).Methods(http.MethodGet)
	s.router.HandleFunc("/tiles", s.handleTiles).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	return s
}

// Handler is the router wrapped with request logging and panic recovery.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	h = handlers.CombinedLoggingHandler(os.Stderr, h)
	return h
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "address", addr)
		errc <- srv.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

type viewRequest struct {
	center tiles.GeoPosition
	zoom   int
	vp     tiles.Viewport
}

func (s *Server) parseView(r *http.Request) (viewRequest, error) {
	q := r.URL.Query()
	var req viewRequest

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return req, fmt.Errorf("%w: lat: %v", tiles.ErrInvalidCoordinate, err)
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		return req, fmt.Errorf("%w: lon: %v", tiles.ErrInvalidCoordinate, err)
	}
	if lat < -tiles.MaxLatitude || lat > tiles.MaxLatitude {
		return req, fmt.Errorf("%w: latitude %v outside Mercator range", tiles.ErrInvalidCoordinate, lat)
	}
	if req.center, err = tiles.NewGeoPosition(lat, lon); err != nil {
		return req, err
	}

	req.zoom = intParam(q.Get("zoom"), s.opts.MaxZoom)
	if err := tiles.CheckZoom(req.zoom, s.opts.MinZoom, s.opts.MaxZoom); err != nil {
		return req, err
	}
	req.vp = tiles.Viewport{
		Width:  intParam(q.Get("width"), s.opts.Width),
		Height: intParam(q.Get("height"), s.opts.Height),
	}
	if err := req.vp.Validate(); err != nil {
		return req, err
	}
	if req.vp.Width > maxViewportSide || req.vp.Height > maxViewportSide {
		return req, fmt.Errorf("%w: viewport larger than %d", tiles.ErrInvalidCoordinate, maxViewportSide)
	}
	return req, nil
}

func (s *Server) anchor(req viewRequest) tiles.Anchor {
	return tiles.CenteredAnchor(req.center, req.zoom, req.vp, s.opts.MaxZoom)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseView(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	surface := render.NewRasterSurface(req.vp.Width, req.vp.Height)
	defer surface.Close()
	compositor, err := render.NewCompositor(surface, s.opts.TextureCache)
	if err != nil {
		s.fail(w, err)
		return
	}
	renderer := render.NewRenderer(tiles.NewFrameLoader(s.provider, s.opts.FrameTimeout), compositor,
		s.opts.MinZoom, s.opts.MaxZoom)
	frame, err := renderer.RenderFrame(r.Context(), s.anchor(req), req.zoom)
	if err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("X-Tile-Count", strconv.Itoa(len(frame.Tiles)))
	if err := png.Encode(w, surface.Image()); err != nil {
		s.logger.Error("Failed to encode PNG", "error", err)
	}
}

func (s *Server) handleTiles(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseView(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	topLeft := s.anchor(req).Pixel(req.zoom)
	fc := FeatureCollection(req.vp.Enumerate(topLeft))
	fc.BBox = geojson.NewBBox(req.vp.Bound(topLeft))

	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		s.logger.Error("Failed to encode GeoJSON", "error", err)
	}
}

// FeatureCollection describes draw items as tile footprint polygons with the
// address and start offset as properties.
func FeatureCollection(items []tiles.DrawItem) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, it := range items {
		f := geojson.NewFeature(it.Address.Bound().ToPolygon())
		f.Properties["tile"] = it.Address.String()
		f.Properties["z"] = it.Address.Zoom
		f.Properties["x"] = it.Address.X
		f.Properties["y"] = it.Address.Y
		f.Properties["start_x"] = it.Start.X
		f.Properties["start_y"] = it.Start.Y
		fc.Append(f)
	}
	return fc
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "status", status, "error", err)
	}
	http.Error(w, err.Error(), status)
}

// StatusOf maps a pipeline error to an HTTP status.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, tiles.ErrInvalidCoordinate):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, tiles.ErrTileFetch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func intParam(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return v
}
