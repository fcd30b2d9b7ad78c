package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sir_venger/flatstore/internal/app/resthttp"
	"github.com/sir_venger/flatstore/internal/config"
	"github.com/sir_venger/flatstore/internal/logging"
	"github.com/sir_venger/flatstore/internal/usecase/filesvc"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 15 * time.Second
)

// main поднимает файловый сервис и обеспечивает корректное завершение по сигналу.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := pflag.String("config", "", "path to YAML config (overrides CONFIG_PATH)")
	addr := pflag.String("addr", "", "listen address (overrides config)")
	pflag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.ListenAddr = *addr
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler, srv, err := resthttp.NewServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("init server", zap.Error(err))
		return err
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Warn("close server resources", zap.Error(err))
		}
	}()

	// Фоновый GC незавершённых записей.
	stopGC := filesvc.StartGC(srv.FilesService, cfg.GC.TTL, cfg.GC.Interval, logger.Named("gc"))
	defer stopGC()

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("backend", cfg.Backend),
			zap.String("data_dir", cfg.DataDir),
			zap.Duration("gc_ttl", cfg.GC.TTL),
			zap.Duration("gc_every", cfg.GC.Interval),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutdown: %w", err)
		}
		logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}

	return config.Load()
}
