package meta

import (
	"context"
	"sync"

	"github.com/sir_venger/flatstore/internal/models"
)

// MemoryStore хранит метаданные только в оперативной памяти; удобно для тестов.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string]models.FileMeta
}

// NewMemoryStore создаёт пустое in-memory хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: map[string]models.FileMeta{}}
}

// Get возвращает метаданные файла по имени или ошибку, если файл не найден.
func (s *MemoryStore) Get(_ context.Context, name string) (models.FileMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fm, ok := s.files[name]
	if !ok {
		return models.FileMeta{}, models.ErrNotFound
	}
	return fm, nil
}

// Save записывает (или обновляет) метаданные файла целиком.
func (s *MemoryStore) Save(_ context.Context, fm models.FileMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[fm.Name] = fm
	return nil
}

func (s *MemoryStore) Close() error { return nil }
