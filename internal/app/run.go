package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/vk/kindledrop/internal/ctxlog"
)

const (
	// shutdownTimeout bounds graceful shutdown.
	shutdownTimeout = 5 * time.Second
	// sweepInterval is how often idle web forms and sessions are dropped.
	sweepInterval = time.Minute
)

// Serve listens on the configured address and serves until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.config.Addr, err)
	}
	return a.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is done, then shuts down gracefully.
func (a *App) ServeListener(ctx context.Context, ln net.Listener) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.httpServer = &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("📚 Web server starting", "address", fmt.Sprintf("http://%s/", ln.Addr()), "engine", a.engineURL)
		// Serve returns http.ErrServerClosed on graceful shutdown.
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.sweep(sweepCtx, sweepInterval)

	select {
	case err, ok := <-serveErr:
		if ok {
			a.logger.Error("Web server failed unexpectedly", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	return a.shutdown()
}

func (a *App) shutdown() error {
	a.logger.Debug("Closing web server...")

	// The parent context is already done, so shutdown gets a fresh deadline.
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.logger.Info("📚 Shutting down web server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Web server shutdown failed", "error", err)
		return err
	}

	a.logger.Debug("Web server shut down gracefully.")
	return nil
}

// sweep periodically evicts idle web state until ctx is done.
func (a *App) sweep(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := a.web.Sweep(now); n > 0 {
				a.logger.Debug("Dropped idle web sessions.", "count", n)
			}
		}
	}
}
