package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// shutdownContext returns a context that cancels on the first SIGINT/SIGTERM
// and force-exits on the second signal or after shutdownTimeout elapses,
// whichever comes first. This gives the engine shutdownTimeout to drain
// in-flight actions on first signal, while allowing the user to force-quit
// sooner if something hangs.
func shutdownContext(parent context.Context, logger *slog.Logger, shutdownTimeout time.Duration) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			logger.Info("received signal, initiating graceful shutdown",
				slog.String("signal", sig.String()),
				slog.Duration("timeout", shutdownTimeout),
			)
			cancel()
		case <-ctx.Done():
			return
		}

		// Wait for a second signal or the shutdown timeout, whichever is
		// first — force exit either way.
		timer := time.NewTimer(shutdownTimeout)
		defer timer.Stop()

		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, forcing exit",
				slog.String("signal", sig.String()),
			)
			os.Exit(1)
		case <-timer.C:
			logger.Warn("graceful shutdown timed out, forcing exit",
				slog.Duration("timeout", shutdownTimeout),
			)
			os.Exit(1)
		case <-parent.Done():
			return
		}
	}()

	return ctx
}
