package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/olablt/gio-tiles/server"
	"github.com/olablt/gio-tiles/tiles"
)

var optGeoJSON bool

var tilesCmd = &cobra.Command{
	Use:   "tiles",
	Short: "List the tiles covering the view and where they are drawn",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		center, err := cfg.Center()
		if err != nil {
			return err
		}
		vp := cfg.Viewport()
		topLeft := tiles.CenteredAnchor(center, cfg.InitialZoom, vp, cfg.MaxZoom).Pixel(cfg.InitialZoom)
		items := vp.Enumerate(topLeft)

		out := cmd.OutOrStdout()
		if optGeoJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(server.FeatureCollection(items))
		}

		provider := tiles.NewHTTPProvider(cfg.Server, tiles.WithSubdomains(cfg.Subdomains...))
		fmt.Fprintf(out, "top-left %d,%d at zoom %d, offset in tile %v\n",
			topLeft.X, topLeft.Y, topLeft.Zoom, topLeft.WithinTile())
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TILE\tSTART\tURL")
		for _, it := range items {
			fmt.Fprintf(tw, "%s\t%d,%d\t%s\n", it.Address, it.Start.X, it.Start.Y, provider.URL(it.Address))
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(tilesCmd)
	tilesCmd.Flags().BoolVar(&optGeoJSON, "geojson", false, "Print tile footprints as GeoJSON")
}
