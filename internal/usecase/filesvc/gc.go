package filesvc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sir_venger/flatstore/internal/models"
	"go.uber.org/zap"
)

// Sweep удаляет незавершённые записи старше ttl, оставшиеся после сбоев.
func (s *Files) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	removed, err := s.Backend.Sweep(ctx, ttl)
	if err != nil {
		return removed, fmt.Errorf("%w: sweep: %w", models.ErrStorageFault, err)
	}
	if removed > 0 {
		s.Logger.Info("stale staged content removed", zap.Int("count", removed), zap.Duration("ttl", ttl))
	}

	return removed, nil
}

// StartGC стартует периодическую очистку и возвращает функцию остановки.
func StartGC(svc Service, ttl time.Duration, every time.Duration, logger *zap.Logger) func() {
	if every <= 0 || ttl <= 0 {
		return func() {}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ticker := time.NewTicker(every)
	stop := make(chan struct{})
	done := make(chan struct{})
	var once sync.Once
	go func() {
		defer close(done)
		for {
			select {
			case <-ticker.C:
				if _, err := svc.Sweep(context.Background(), ttl); err != nil {
					logger.Warn("gc sweep failed", zap.Error(err))
				}
			case <-stop:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			close(stop)
			<-done
		})
	}
}
