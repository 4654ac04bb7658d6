package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/carlmjohnson/versioninfo"
	"github.com/iancoleman/strcase"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/olablt/gio-tiles/config"
)

var (
	optConfigFile string
	v             *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:     "tileview",
	Short:   "Pannable, zoomable raster map from XYZ tiles",
	Long:    `Views, renders and serves maps composited from the tiles of an XYZ tile server.`,
	Version: versioninfo.Short(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		v, err = config.NewViper(optConfigFile)
		if err != nil {
			return err
		}
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		setDefaultSlog(v.GetString("log-level"))
		return nil
	},
	SilenceUsage: true,
}

func init() {
	defaults := config.Default()

	pFlags := rootCmd.PersistentFlags()
	pFlags.StringVar(&optConfigFile, "config", "", "Config file (default $HOME/.tileview.yaml)")
	pFlags.String("server", defaults.Server, "Tile URL template with {z}, {x}, {y} and optional {s}")
	pFlags.StringSlice("subdomains", defaults.Subdomains, "Values substituted for {s}")
	pFlags.String("user-agent", defaults.UserAgent, "User-Agent sent to the tile server")
	pFlags.String("referer", defaults.Referer, "Referer sent to the tile server")
	pFlags.Int("zoom-min", defaults.MinZoom, "Minimum zoom level")
	pFlags.Int("zoom-max", defaults.MaxZoom, "Maximum zoom level, the anchor's reference zoom")
	pFlags.Int("zoom", defaults.InitialZoom, "Zoom level")
	pFlags.Int("width", defaults.Width, "Viewport width in pixels")
	pFlags.Int("height", defaults.Height, "Viewport height in pixels")
	pFlags.Float64("lat", defaults.Lat, "Latitude of the view center")
	pFlags.Float64("lon", defaults.Lon, "Longitude of the view center")
	pFlags.Int("cache-size", defaults.CacheSize, "Number of tile images kept in memory")
	pFlags.Int("texture-cache", defaults.TextureCache, "Number of tile textures kept per surface")
	pFlags.Int("workers", defaults.Workers, "Concurrent tile downloads")
	pFlags.Duration("fetch-timeout", defaults.FetchTimeout, "Timeout of a single tile download")
	pFlags.Duration("frame-timeout", defaults.FrameTimeout, "Timeout for all tiles of a frame")
	pFlags.Bool("placeholder", defaults.Placeholder, "Draw a placeholder for tiles that failed to load")
	pFlags.Duration("retry-after", defaults.RetryAfter, "How long a failed tile is served from the placeholder")
	pFlags.String("log-level", defaults.LogLevel, "Log level: debug, info, warn or error")
	annotateEnv(pFlags)
}

// annotateEnv appends the environment variable of each flag to its usage.
func annotateEnv(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		f.Usage = fmt.Sprintf("%s [$%s_%s]", f.Usage, config.EnvPrefix, strcase.ToScreamingSnake(f.Name))
	})
}

func setDefaultSlog(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

func loadConfig() (config.Config, error) {
	return config.Load(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
