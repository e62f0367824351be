package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spektr-org/fertdash/dashboard"
	"github.com/spektr-org/fertdash/loader"
)

type serveFlags struct {
	addr    string
	noWatch bool
}

func newServeCmd(a *app) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard (default command)",
		Long: `Start the HTTP dashboard. The data file is loaded on the first request
and reloaded whenever it changes on disk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), f)
		},
	}
	cmd.Flags().StringVar(&f.addr, "addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().BoolVar(&f.noWatch, "no-watch", false, "Do not watch the data file for changes")
	return cmd
}

// runServe is the root command's default action.
func (a *app) runServe(cmd *cobra.Command, args []string) error {
	f := &serveFlags{}
	f.addr, _ = cmd.Flags().GetString("addr")
	f.noWatch, _ = cmd.Flags().GetBool("no-watch")
	return a.serve(cmd.Context(), f)
}

func (a *app) serve(ctx context.Context, f *serveFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := a.cfg.Server.Addr
	if f.addr != "" {
		addr = f.addr
	}

	l, err := a.newLoader()
	if err != nil {
		return err
	}
	metrics := dashboard.NewMetrics()
	cache := loader.NewCache(l, a.cfg.Data.Path, loader.WithLoadObserver(metrics.ObserveLoad))
	session := dashboard.NewSession(cache, a.sessionOptions(), metrics, a.logger)
	handler, err := dashboard.NewServer(session, metrics, a.logger)
	if err != nil {
		return err
	}

	// A broken file is not fatal: the page shows the error until it is fixed.
	if ds, err := cache.Get(ctx); err != nil {
		a.logger.Warn("initial load failed", zap.String("path", cache.Path()), zap.Error(err))
	} else {
		a.logger.Info("dataset ready", zap.String("dataset", ds.ID), zap.Int("rows", ds.Len()))
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.Data.Watch && !f.noWatch {
		watcher, err := loader.NewWatcher(cache, loader.WatchOptions{
			Debounce: a.cfg.GetDebounce(),
			Warm:     true,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return watcher.Run(gctx) })
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       a.cfg.GetReadTimeout(),
		ReadHeaderTimeout: a.cfg.GetReadTimeout(),
		WriteTimeout:      a.cfg.GetWriteTimeout(),
	}

	g.Go(func() error {
		a.logger.Info("dashboard listening", zap.String("url", "http://"+addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GetShutdownTimeout())
		defer cancel()
		start := time.Now()
		err := srv.Shutdown(shutdownCtx)
		a.logger.Info("dashboard stopped", zap.Duration("drain", time.Since(start)))
		return err
	})

	return g.Wait()
}
