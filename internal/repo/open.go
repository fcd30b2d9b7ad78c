package meta

import (
	"context"
	"fmt"
	"strings"

	"github.com/sir_venger/flatstore/internal/models"
)

// Store общий контракт всех реализаций индекса метаданных.
type Store interface {
	Get(ctx context.Context, name string) (models.FileMeta, error)
	Save(ctx context.Context, fm models.FileMeta) error
	Close() error
}

// Open выбирает реализацию по схеме DSN: memory://, postgres://, redis://.
func Open(ctx context.Context, dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "" || strings.HasPrefix(dsn, "memory://"):
		return NewMemoryStore(), nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(ctx, dsn)
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return OpenRedis(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported meta dsn scheme: %q", dsn)
	}
}
