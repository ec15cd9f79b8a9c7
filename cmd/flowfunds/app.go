package main

import (
	"context"
	"fmt"

	"flowfunds/internal/backend"
	"flowfunds/internal/log"
	"flowfunds/internal/metrics"
	"flowfunds/internal/services"
)

// app is an opened backend plus the tracker loaded from it.
type app struct {
	backend *backend.BackendResult
	metrics *metrics.Recorder
	tracker *services.Tracker
	logger  *log.Logger
}

func (o *rootOptions) openApp(ctx context.Context) (*app, error) {
	bcfg, err := backend.FromAppConfig(o.cfg)
	if err != nil {
		return nil, fmt.Errorf("backend config: %w", err)
	}
	res, err := backend.Open(ctx, bcfg, o.logger)
	if err != nil {
		return nil, fmt.Errorf("open backend: %w", err)
	}

	rec := metrics.New()
	opts := services.Options{
		Logger:         o.logger,
		Metrics:        rec,
		Location:       o.cfg.Location(),
		RegexCacheSize: o.cfg.RegexCacheSize,
		RegexCacheTTL:  o.cfg.RegexCacheTTL,
	}
	if res.Events != nil {
		opts.Publisher = res.Events
	}

	tracker := services.NewTracker(res.Repository(o.logger), opts)
	if err := tracker.Init(ctx); err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("load data: %w", err)
	}
	return &app{backend: res, metrics: rec, tracker: tracker, logger: o.logger}, nil
}

func (a *app) Close() {
	if err := a.backend.Close(); err != nil {
		a.logger.Error("Failed to close backend", log.FieldError, err)
	}
}

// withApp opens the app for the duration of fn.
func (o *rootOptions) withApp(ctx context.Context, fn func(*app) error) error {
	a, err := o.openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
