package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/dispatch/pkg/logger"
)

const (
	defaultAddress         = ":8080"
	defaultShutdownTimeout = 30 * time.Second
)

type runtimeConfig struct {
	*runConfig
	handler http.Handler
	onReady func(addr net.Addr)
	onStop  func()
}

func newServer(h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}
}

// runServer serves until the context is cancelled, a signal arrives, a
// startup hook fails or the listener breaks, then shuts down gracefully.
func runServer(cfg runtimeConfig) error {
	log := cfg.logger
	if log == nil {
		log = logger.NewNope()
	}

	ln, err := net.Listen("tcp", cfg.address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.address, err)
	}
	srv := newServer(cfg.handler)

	ctx, stop := signal.NotifyContext(cfg.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		startErr := runHooks(ctx, cfg.startup, false)
		if startErr != nil {
			log.Error("startup failed", slog.Any("error", startErr))
		} else {
			if cfg.onReady != nil {
				cfg.onReady(ln.Addr())
			}
			log.Info("server ready")
			<-ctx.Done()
		}

		if cfg.onStop != nil {
			cfg.onStop()
		}
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
		defer cancel()

		err := errors.Join(startErr, srv.Shutdown(shutdownCtx), runHooks(shutdownCtx, cfg.shutdown, true))
		if err != nil {
			log.Error("shutdown completed with errors", slog.Any("error", err))
			return err
		}
		log.Info("shutdown completed")
		return nil
	})

	return g.Wait()
}

// runHooks runs hooks in order, or in reverse with all of them attempted
// when teardown is set.
func runHooks(ctx context.Context, hooks []Hook, teardown bool) error {
	if !teardown {
		for _, hook := range hooks {
			if err := hook(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
