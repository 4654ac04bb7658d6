package main

import (
	"fmt"
	"image/png"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/olablt/gio-tiles/render"
	"github.com/olablt/gio-tiles/tiles"
)

var optOut string

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the view to a PNG file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		center, err := cfg.Center()
		if err != nil {
			return err
		}
		provider, pool, err := newTileSource(cfg)
		if err != nil {
			return err
		}
		defer pool.Shutdown()

		surface := render.NewRasterSurface(cfg.Width, cfg.Height)
		defer surface.Close()
		compositor, err := render.NewCompositor(surface, cfg.TextureCache)
		if err != nil {
			return err
		}
		renderer := render.NewRenderer(tiles.NewFrameLoader(provider, cfg.FrameTimeout), compositor,
			cfg.MinZoom, cfg.MaxZoom)

		anchor := tiles.CenteredAnchor(center, cfg.InitialZoom, cfg.Viewport(), cfg.MaxZoom)
		frame, err := renderer.RenderFrame(cmd.Context(), anchor, cfg.InitialZoom)
		if err != nil {
			return err
		}

		f, err := os.Create(optOut)
		if err != nil {
			return err
		}
		if err := png.Encode(f, surface.Image()); err != nil {
			f.Close()
			return fmt.Errorf("encode %s: %w", optOut, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		slog.Info("Rendered", "file", optOut, "tiles", len(frame.Tiles),
			"center", center.String(), "zoom", cfg.InitialZoom)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVarP(&optOut, "out", "o", "map.png", "Output PNG file")
}
