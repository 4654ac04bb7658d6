// Package config loads the viewer and renderer settings from defaults, a
// config file, TILEVIEW_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/go-homedir"
	"github.com/olablt/gio-tiles/tiles"
	"github.com/spf13/viper"
)

const (
	EnvPrefix      = "TILEVIEW"
	configFileName = ".tileview"
)

type Config struct {
	Server     string   `mapstructure:"server" default:"https://tile.openstreetmap.org/{z}/{x}/{y}.png" validate:"required,contains={z},contains={x},contains={y}"`
	Subdomains []string `mapstructure:"subdomains"`
	UserAgent  string   `mapstructure:"user-agent" default:"gio-tiles/1.0 (+https://github.com/olablt/gio-tiles)" validate:"required"`
	Referer    string   `mapstructure:"referer"`

	MinZoom     int `mapstructure:"zoom-min" default:"2" validate:"gte=0,lte=24"`
	MaxZoom     int `mapstructure:"zoom-max" default:"15" validate:"gte=0,lte=24,gtefield=MinZoom"`
	InitialZoom int `mapstructure:"zoom" default:"10" validate:"gte=0,lte=24"`

	Width  int     `mapstructure:"width" default:"600" validate:"gt=0,lte=8192"`
	Height int     `mapstructure:"height" default:"400" validate:"gt=0,lte=8192"`
	Lat    float64 `mapstructure:"lat" default:"35.4389735" validate:"gte=-85.05112878,lte=85.05112878"`
	Lon    float64 `mapstructure:"lon" default:"139.1375592"`

	CacheSize    int           `mapstructure:"cache-size" default:"512" validate:"gt=0"`
	TextureCache int           `mapstructure:"texture-cache" default:"128" validate:"gt=0"`
	Workers      int           `mapstructure:"workers" default:"8" validate:"gt=0,lte=64"`
	FetchTimeout time.Duration `mapstructure:"fetch-timeout" default:"10s" validate:"gt=0"`
	FrameTimeout time.Duration `mapstructure:"frame-timeout" default:"30s" validate:"gt=0"`
	Placeholder  bool          `mapstructure:"placeholder" default:"true"`
	RetryAfter   time.Duration `mapstructure:"retry-after" default:"30s" validate:"gt=0"`

	Listen   string `mapstructure:"listen" default:":8080" validate:"required"`
	LogLevel string `mapstructure:"log-level" default:"info" validate:"oneof=debug info warn error"`
}

var validate = validator.New()

// Default returns the configuration with every default applied.
func Default() Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		// tags are static, a failure here is a programming error
		panic(err)
	}
	return c
}

// Validate checks field ranges and that the initial zoom lies in
// [MinZoom, MaxZoom].
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := tiles.CheckZoom(c.InitialZoom, c.MinZoom, c.MaxZoom); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c Config) Center() (tiles.GeoPosition, error) {
	return tiles.NewGeoPosition(c.Lat, c.Lon)
}

func (c Config) Viewport() tiles.Viewport {
	return tiles.Viewport{Width: c.Width, Height: c.Height}
}

// NewViper returns a viper instance with defaults, the TILEVIEW_ environment
// prefix and, unless file is empty or missing, the config file. An empty file
// looks for ~/.tileview.{yaml,json,toml}.
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	d := Default()
	setDefaults(v, d)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return v, nil
		}
		v.AddConfigPath(filepath.Clean(home))
		v.SetConfigName(configFileName)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file == "" && errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	c := Default()
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("server", d.Server)
	v.SetDefault("subdomains", d.Subdomains)
	v.SetDefault("user-agent", d.UserAgent)
	v.SetDefault("referer", d.Referer)
	v.SetDefault("zoom-min", d.MinZoom)
	v.SetDefault("zoom-max", d.MaxZoom)
	v.SetDefault("zoom", d.InitialZoom)
	v.SetDefault("width", d.Width)
	v.SetDefault("height", d.Height)
	v.SetDefault("lat", d.Lat)
	v.SetDefault("lon", d.Lon)
	v.SetDefault("cache-size", d.CacheSize)
	v.SetDefault("texture-cache", d.TextureCache)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("fetch-timeout", d.FetchTimeout)
	v.SetDefault("frame-timeout", d.FrameTimeout)
	v.SetDefault("placeholder", d.Placeholder)
	v.SetDefault("retry-after", d.RetryAfter)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("log-level", d.LogLevel)
}
