package main

import (
	"context"
	"fmt"
	"strings"

	"itvetl/internal/config"
	"itvetl/internal/geocode"
	"itvetl/internal/logger"
	"itvetl/internal/metrics"
	"itvetl/internal/metrics/datadog"
	"itvetl/internal/metrics/prompush"
	"itvetl/internal/pipeline"
	"itvetl/internal/reader"
	"itvetl/internal/storage"
)

// app is the wired pipeline plus whatever must be released on exit.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	service *pipeline.Service
	closers []func()
}

// newApp loads the configuration and wires every component.
func newApp(ctx context.Context, opts *rootOptions) (*app, error) {
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &app{cfg: cfg, log: log}
	a.closers = append(a.closers, func() { _ = log.Sync() })

	if err := checkConfig(log, cfg); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.setupMetrics(); err != nil {
		a.Close()
		return nil, err
	}

	store, err := storage.New(ctx, storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DSN})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	svcOpts := []pipeline.Option{pipeline.WithLogger(log)}
	if cfg.Geocoder.Enabled {
		resolver, err := a.newGeocoder(ctx)
		if err != nil {
			a.Close()
			return nil, err
		}
		svcOpts = append(svcOpts, pipeline.WithGeocoder(resolver))
	}

	a.service = pipeline.New(
		pipeline.ConfigFrom(cfg),
		reader.New(nil),
		storage.NewLoader(store, log),
		svcOpts...,
	)
	log.Info("itvetl ready",
		logger.String("storage", cfg.Storage.Kind),
		logger.String("location", store.Location()),
		logger.Bool("geocoder", cfg.Geocoder.Enabled),
	)
	return a, nil
}

func (a *app) setupMetrics() error {
	m := a.cfg.Metrics
	var (
		backend metrics.Backend
		err     error
	)
	switch strings.ToLower(m.Backend) {
	case "", "none":
		return nil
	case "pushgateway":
		backend, err = prompush.NewBackend(m.Job, m.PushgatewayURL)
	case "datadog":
		backend, err = datadog.NewBackend(datadog.Config{
			Addr:       m.StatsdAddr,
			Namespace:  "itvetl.",
			GlobalTags: []string{"job:" + m.Job},
		})
	default:
		return fmt.Errorf("unknown metrics backend %q", m.Backend)
	}
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	metrics.SetBackend(backend)
	a.closers = append(a.closers, func() {
		if err := metrics.Flush(); err != nil {
			a.log.Warn("flush metrics", logger.Error(err))
		}
	})
	return nil
}

func (a *app) newGeocoder(ctx context.Context) (geocode.Resolver, error) {
	g := a.cfg.Geocoder
	backend, err := geocode.NewWebBackend(geocode.WebConfig{
		BaseURL:     g.BaseURL,
		ConsentPath: g.ConsentPath,
		SearchPath:  g.SearchPath,
		LatSelector: g.LatSelector,
		LonSelector: g.LonSelector,
		UserAgent:   g.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	opts := []geocode.Option{
		geocode.WithTimeout(g.Timeout),
		geocode.WithRate(g.RatePerSecond),
		geocode.WithLogger(a.log),
	}
	if g.RedisAddr != "" {
		cache, err := geocode.NewRedisCache(ctx, g.RedisAddr, g.CacheTTL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = cache.Close() })
		opts = append(opts, geocode.WithCache(cache))
	}
	return geocode.NewSession(backend, opts...), nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
