package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/sir_venger/flatstore/internal/config"
	"github.com/sir_venger/flatstore/internal/logging"
	meta "github.com/sir_venger/flatstore/internal/repo"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: "console"})
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	dsn := strings.TrimSpace(cfg.MetaDSN)
	if dsn == "" {
		logger.Fatal("meta_dsn is not configured")
	}
	if !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		logger.Info("meta store has no schema, skipping migrations", zap.String("dsn_scheme", strings.SplitN(dsn, ":", 2)[0]))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := meta.ApplyMigrations(ctx, dsn); err != nil {
		logger.Error("apply migrations", zap.Error(err))
		cancel()
		os.Exit(1)
	}

	logger.Info("migrations applied")
}
