package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/forcelayout/internal/graphio"
	"github.com/san-kum/forcelayout/internal/stream"
)

const shutdownTimeout = 5 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	logger := loggerFromContext(cmd.Context())
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	doc, err := graphio.Load(args[0])
	if err != nil {
		return err
	}
	eng, err := newEngine(logger, cfg, doc)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := stream.NewHub(logger)
	driver := stream.NewDriver(eng,
		stream.WithRate(cfg.Run.TickRate, perFrame),
		stream.WithPublisher(hub.Publish),
		stream.WithDriverLogger(logger),
	)
	srv := &http.Server{
		Addr:              cfg.Run.Addr,
		Handler:           stream.NewRouter(driver, hub),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return driver.Run(ctx) })
	if !noWatch {
		watcher := stream.NewWatcher(args[0], driver, logger)
		g.Go(func() error { return watcher.Watch(ctx) })
	}
	g.Go(func() error {
		logger.Info("serving layout", "addr", cfg.Run.Addr, "graph", graphName(args[0]), "nodes", eng.Len())
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		logger.Info("server stopped")
		return nil
	}
	return err
}
