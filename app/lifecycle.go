package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gaborage/keyrelay/server"
)

// Run serves HTTP until ctx is done, a shutdown signal arrives or the server
// fails, then shuts the application down within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	if err := a.Prepare(); err != nil {
		return err
	}

	quit := make(chan os.Signal, 1)
	a.signalHandler.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer a.signalHandler.Stop(quit)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.server.Start()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		if err != nil {
			a.logger.Error().Err(err).Msg("Server stopped unexpectedly")
		}
		return err
	})

	g.Go(func() error {
		select {
		case sig := <-quit:
			a.logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		case <-gctx.Done():
			a.logger.Info().Msg("Run context done")
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.shutdownTimeout())
		defer cancel()
		return a.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) shutdownTimeout() time.Duration {
	if t := a.cfg.Server.Timeout.Shutdown; t > 0 {
		return t
	}
	return server.DefaultShutdownTimeout
}
