package main

import (
	"log/slog"
	"os"

	"gioui.org/app"
	"gioui.org/op"
	"gioui.org/unit"
	"github.com/spf13/cobra"

	"github.com/olablt/gio-tiles/mapview"
	"github.com/olablt/gio-tiles/tiles"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Open the map in a window",
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

		refresh := make(chan struct{}, 1)
		mv := mapview.New(tiles.NewFrameLoader(provider, cfg.FrameTimeout), mapview.Options{
			Center:      center,
			Zoom:        cfg.InitialZoom,
			MinZoom:     cfg.MinZoom,
			MaxZoom:     cfg.MaxZoom,
			TextureSize: cfg.TextureCache,
		}, refresh)

		go func() {
			w := new(app.Window)
			w.Option(
				app.Title("tileview"),
				app.Size(unit.Dp(float32(cfg.Width)), unit.Dp(float32(cfg.Height))),
			)

			var ops op.Ops
			go func() {
				for range refresh {
					w.Invalidate()
				}
			}()
			for {
				switch e := w.Event().(type) {
				case app.DestroyEvent:
					mv.Close()
					pool.Shutdown()
					if e.Err != nil {
						slog.Error("Window closed", "error", e.Err)
						os.Exit(1)
					}
					os.Exit(0)
				case app.FrameEvent:
					gtx := app.NewContext(&ops, e)
					mv.Layout(gtx)
					e.Frame(gtx.Ops)
				}
			}
		}()
		app.Main()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(viewCmd)
}
