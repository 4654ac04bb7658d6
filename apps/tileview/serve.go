package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/olablt/gio-tiles/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve rendered map views over HTTP",
	Long:  `Serves GET /render (PNG) and GET /tiles (GeoJSON) for lat, lon, zoom, width and height query parameters.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		provider, pool, err := newTileSource(cfg)
		if err != nil {
			return err
		}
		defer pool.Shutdown()

		srv := server.New(provider, server.Options{
			MinZoom:      cfg.MinZoom,
			MaxZoom:      cfg.MaxZoom,
			Width:        cfg.Width,
			Height:       cfg.Height,
			FrameTimeout: cfg.FrameTimeout,
			TextureCache: cfg.TextureCache,
		})

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := srv.ListenAndServe(ctx, cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address [$TILEVIEW_LISTEN]")
}
