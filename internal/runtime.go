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
	"slices"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// runtimeConfig describes one server lifetime: hooks around a listener
// serving handler until the base context ends or a signal arrives.
type runtimeConfig struct {
	handler         http.Handler
	baseCtx         context.Context
	logger          *slog.Logger
	onListen        func(net.Addr)
	address         string
	startupHooks    []func(context.Context) error
	shutdownHooks   []func(context.Context) error
	shutdownTimeout time.Duration
}

func (cfg *runtimeConfig) withDefaults() {
	if cfg.address == "" {
		cfg.address = ":8080"
	}
	if cfg.shutdownTimeout <= 0 {
		cfg.shutdownTimeout = defaultShutdownTimeout
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.baseCtx == nil {
		cfg.baseCtx = context.Background()
	}
}

func (cfg *runtimeConfig) newServer() *http.Server {
	return &http.Server{
		Addr:              cfg.address,
		Handler:           cfg.handler,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
		ErrorLog:          slog.NewLogLogger(cfg.logger.Handler(), slog.LevelWarn),
	}
}

// runServer runs startup hooks, serves until SIGINT, SIGTERM or the end of
// the base context, drains in-flight requests and then runs shutdown hooks
// in reverse registration order. Serve and drain errors are joined with
// hook errors.
func runServer(cfg runtimeConfig) error {
	cfg.withDefaults()
	log := cfg.logger

	ctx, stop := signal.NotifyContext(cfg.baseCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	for i, hook := range cfg.startupHooks {
		if err := hook(ctx); err != nil {
			return fmt.Errorf("startup hook %d: %w", i, err)
		}
	}

	srv := cfg.newServer()
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	if cfg.onListen != nil {
		cfg.onListen(ln.Addr())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", slog.String("address", ln.Addr().String()))
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("draining requests", slog.Duration("timeout", cfg.shutdownTimeout))

		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.shutdownTimeout)
		defer cancel()
		return drain(drainCtx, srv, cfg.shutdownHooks, log)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with errors", slog.String("error", err.Error()))
		return err
	}
	log.Info("server stopped")
	return nil
}

// drain stops accepting connections, waits for handlers to return and then
// releases resources, newest hook first.
func drain(ctx context.Context, srv *http.Server, hooks []func(context.Context) error, log *slog.Logger) error {
	var errs []error
	if err := srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("drain: %w", err))
	}
	for _, hook := range slices.Backward(hooks) {
		if err := hook(ctx); err != nil {
			log.Error("shutdown hook failed", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
