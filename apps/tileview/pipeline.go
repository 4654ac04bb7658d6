package main

import (
	"net/http"

	"github.com/olablt/gio-tiles/config"
	"github.com/olablt/gio-tiles/tiles"
	"github.com/olablt/gio-tiles/tiles/worker"
)

// newTileSource wires the HTTP provider behind the worker pool and the image
// cache. The placeholder fallback sits in front of the cache so placeholders
// are never cached and failed tiles are retried after cfg.RetryAfter.
func newTileSource(cfg config.Config) (tiles.TileProvider, *worker.Pool, error) {
	remote := tiles.NewHTTPProvider(cfg.Server,
		tiles.WithHTTPClient(&http.Client{Transport: &http.Transport{
			MaxIdleConnsPerHost: cfg.Workers,
		}}),
		tiles.WithSubdomains(cfg.Subdomains...),
		tiles.WithUserAgent(cfg.UserAgent),
		tiles.WithReferer(cfg.Referer),
	)

	pool := worker.NewPool(cfg.Workers, cfg.FetchTimeout)
	manager, err := tiles.NewTileManager(remote, cfg.CacheSize, pool)
	if err != nil {
		pool.Shutdown()
		return nil, nil, err
	}
	if !cfg.Placeholder {
		return manager, pool, nil
	}
	return tiles.NewFallbackProvider(manager, tiles.NewPlaceholderProvider(), cfg.RetryAfter), pool, nil
}
