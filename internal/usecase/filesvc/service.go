package filesvc

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sir_venger/flatstore/internal/models"
	"go.uber.org/zap"
)

type (
	// Backend носитель содержимого файлов (локальный диск, S3).
	Backend interface {
		Stage(ctx context.Context, r io.Reader) (models.Staged, error)
		Commit(ctx context.Context, st models.Staged, name string) error
		Discard(ctx context.Context, st models.Staged) error
		Open(ctx context.Context, name string) (io.ReadCloser, int64, error)
		Scan(ctx context.Context) (map[string]int64, error)
		Ping(ctx context.Context) error
		Sweep(ctx context.Context, ttl time.Duration) (int, error)
	}

	// MetaStorage хранилище мета данных файлов
	MetaStorage interface {
		Get(ctx context.Context, name string) (models.FileMeta, error)
		Save(ctx context.Context, meta models.FileMeta) error
	}

	// Service объединяет операции по записи и выдаче файлов.
	Service interface {
		Store(ctx context.Context, name, contentType string, r io.Reader) (models.StoreResult, error)
		Retrieve(ctx context.Context, name string) (models.Object, error)
		List(ctx context.Context) ([]string, error)
		Metrics() models.MetricsSnapshot
		HealthCheck(ctx context.Context) error
		Sweep(ctx context.Context, ttl time.Duration) (int, error)
	}
)

// Deps зависимости файлового сервиса. MetaStorage необязателен.
type Deps struct {
	Backend     Backend
	MetaStorage MetaStorage
	Logger      *zap.Logger
	// Now подменяется в тестах.
	Now func() time.Time
}

// Files реализация Service поверх Backend: каталог имён и счётчики держит в памяти.
type Files struct {
	Deps
	catalog *catalog
}

var _ Service = (*Files)(nil)

// New конструирует сервис и восстанавливает каталог по содержимому бэкенда.
func New(ctx context.Context, deps Deps) (*Files, error) {
	if deps.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	sizes, err := deps.Backend.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: scan backend: %w", models.ErrStorageFault, err)
	}

	s := &Files{
		Deps:    deps,
		catalog: newCatalog(sizes),
	}
	deps.Logger.Info("file catalog loaded",
		zap.Int("files", len(sizes)),
		zap.Int64("bytes", s.catalog.snapshot(deps.Now()).TotalStorageBytes),
	)

	return s, nil
}

// List возвращает имена всех файлов по возрастанию.
func (s *Files) List(_ context.Context) ([]string, error) {
	return s.catalog.names(), nil
}

// Metrics возвращает согласованный срез счётчиков.
func (s *Files) Metrics() models.MetricsSnapshot {
	return s.catalog.snapshot(s.Now())
}

// HealthCheck проверяет доступность носителя.
func (s *Files) HealthCheck(ctx context.Context) error {
	if err := s.Backend.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", models.ErrUnavailable, err)
	}

	return nil
}
