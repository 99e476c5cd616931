// Command taskstub serves an in-memory task API for local development and
// end-to-end checks of the client.
package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gaborage/taskclient/config"
	"github.com/gaborage/taskclient/logger"
	"github.com/gaborage/taskclient/observability"
	"github.com/gaborage/taskclient/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	provider, err := observability.NewProvider(&observability.Config{
		Enabled:     cfg.Observability.Enabled,
		Service:     observability.ServiceConfig{Name: "taskstub", Version: cfg.App.Version},
		Environment: cfg.App.Env,
		Endpoint:    cfg.Observability.Endpoint,
		Protocol:    cfg.Observability.Protocol,
		Insecure:    cfg.Observability.Insecure,
		SampleRate:  observability.Float64Ptr(cfg.Observability.Sample),
	}, log)
	if err != nil {
		return err
	}
	defer func() { _ = observability.Shutdown(provider, shutdownTimeout) }()

	opts := server.OptionsFromConfig(cfg)
	opts.ServiceName = "taskstub"
	opts.TracerProvider = provider.TracerProvider()
	srv := server.New(opts, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down stub task API...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
