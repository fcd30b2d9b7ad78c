package filesvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/sir_venger/flatstore/internal/models"
	"go.uber.org/zap"
)

// Retrieve открывает сохранённый файл. Body закрывает вызывающий.
func (s *Files) Retrieve(ctx context.Context, name string) (models.Object, error) {
	if err := ValidateName(name); err != nil {
		return models.Object{}, err
	}

	body, size, err := s.Backend.Open(ctx, name)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Object{}, fmt.Errorf("%w: %s", models.ErrNotFound, name)
		}
		s.Logger.Error("open failed", zap.String("filename", name), zap.Error(err))
		return models.Object{}, fmt.Errorf("%w: open %q: %w", models.ErrStorageFault, name, err)
	}

	obj := models.Object{
		Name:        name,
		Size:        size,
		ContentType: resolveContentType(name, ""),
		Body:        body,
	}

	meta, ok := s.lookupMeta(ctx, name)
	// Индекс может отставать от носителя после перезаписи извне; доверяем только совпадающему размеру.
	if ok && meta.Size == size {
		if meta.ContentType != "" {
			obj.ContentType = meta.ContentType
		}
		obj.Sha256 = meta.Sha256
	}

	return obj, nil
}

func (s *Files) lookupMeta(ctx context.Context, name string) (models.FileMeta, bool) {
	if s.MetaStorage == nil {
		return models.FileMeta{}, false
	}

	meta, err := s.MetaStorage.Get(ctx, name)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.Logger.Warn("load file meta failed", zap.String("filename", name), zap.Error(err))
		}
		return models.FileMeta{}, false
	}

	return meta, true
}
