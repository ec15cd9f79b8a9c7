package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"flowfunds/internal/cache"
	apphttp "flowfunds/internal/http"
	"flowfunds/internal/log"
	"flowfunds/internal/storage"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `Serve the tracker over HTTP. With the file backend and --watch, edits made
to the data files by other processes are reloaded automatically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(a *app) error {
				return runServe(cmd.Context(), opts, a)
			})
		},
	}
	cmd.Flags().String("port", "", "port to listen on")
	cmd.Flags().Bool("watch", false, "reload when the data files change on disk (file backend)")
	return cmd
}

func runServe(ctx context.Context, opts *rootOptions, a *app) error {
	cfg := opts.cfg
	logger := a.logger

	store := a.backend.Store
	srv := apphttp.NewServer(net.JoinHostPort("", cfg.Port), a.tracker, apphttp.Options{
		Logger:             logger,
		Metrics:            a.metrics,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Ready: func(ctx context.Context) error {
			_, _, err := store.Get(ctx, storage.KeySettings)
			return err
		},
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	caches := cache.NewManager(logger)
	caches.Register("search_patterns", a.tracker.PatternCache())

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting flowfunds server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
			return err
		}
		return nil
	})

	g.Go(func() error {
		return caches.Run(ctx, time.Minute)
	})

	if w := a.backend.Watcher; w != nil {
		watchLog := logger.WithComponent(log.ComponentWatcher)
		g.Go(func() error {
			return w.Watch(ctx, func(key string) {
				watchLog.Info("Data changed on disk, reloading", log.FieldKey, key)
				if err := a.tracker.Reload(ctx); err != nil {
					watchLog.Error("Reload failed", log.FieldKey, key, log.FieldError, err)
				}
			})
		})
	}

	err := g.Wait()
	logger.Info("Server stopped gracefully")
	return err
}
