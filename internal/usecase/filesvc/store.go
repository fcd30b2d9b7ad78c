package filesvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/sir_venger/flatstore/internal/models"
	"go.uber.org/zap"
)

const defaultContentType = "application/octet-stream"

// Store записывает содержимое под именем name, заменяя прежнее атомарно.
// Поток сначала пишется во временное место без блокировки, затем публикуется
// под блокировкой каталога вместе с обновлением счётчиков.
func (s *Files) Store(ctx context.Context, name, contentType string, r io.Reader) (models.StoreResult, error) {
	if err := ValidateName(name); err != nil {
		return models.StoreResult{}, err
	}

	src := &readTracker{r: r}
	staged, err := s.Backend.Stage(ctx, src)
	if err != nil {
		// Обрыв или превышение лимита на стороне клиента не считается ошибкой хранилища.
		if src.err != nil {
			return models.StoreResult{}, fmt.Errorf("%w: read content of %q: %w", models.ErrBadRequest, name, src.err)
		}
		s.Logger.Error("stage failed", zap.String("filename", name), zap.Error(err))
		return models.StoreResult{}, fmt.Errorf("%w: stage %q: %w", models.ErrStorageFault, name, err)
	}

	if err = ctx.Err(); err != nil {
		s.discard(ctx, staged)
		return models.StoreResult{}, err
	}

	fm := models.FileMeta{
		Name:        name,
		Size:        staged.Size,
		ContentType: resolveContentType(name, contentType),
		Sha256:      staged.Sha256,
	}
	// Индекс обновляется в той же критической секции, что и носитель.
	replaced, err := s.catalog.commit(name, staged.Size, func() error {
		if err := s.Backend.Commit(ctx, staged, name); err != nil {
			return err
		}
		fm.UpdatedAt = s.Now().UTC()
		s.saveMeta(ctx, fm)
		return nil
	})
	if err != nil {
		s.discard(ctx, staged)
		s.Logger.Error("commit failed", zap.String("filename", name), zap.Error(err))
		return models.StoreResult{}, fmt.Errorf("%w: commit %q: %w", models.ErrStorageFault, name, err)
	}

	s.Logger.Info("file stored",
		zap.String("filename", name),
		zap.Int64("size", staged.Size),
		zap.Bool("replaced", replaced),
	)

	return models.StoreResult{
		Filename: name,
		Size:     staged.Size,
		Sha256:   staged.Sha256,
		Replaced: replaced,
	}, nil
}

// saveMeta сохраняет метаданные; содержимое уже опубликовано, поэтому ошибка только логируется.
func (s *Files) saveMeta(ctx context.Context, meta models.FileMeta) {
	if s.MetaStorage == nil {
		return
	}
	if err := s.MetaStorage.Save(context.WithoutCancel(ctx), meta); err != nil {
		s.Logger.Warn("save file meta failed", zap.String("filename", meta.Name), zap.Error(err))
	}
}

func (s *Files) discard(ctx context.Context, st models.Staged) {
	if err := s.Backend.Discard(context.WithoutCancel(ctx), st); err != nil {
		s.Logger.Warn("discard staged content failed", zap.String("staged_id", st.ID), zap.Error(err))
	}
}

// resolveContentType предпочитает заявленный клиентом тип, иначе угадывает по расширению.
func resolveContentType(name, declared string) string {
	if declared != "" && declared != defaultContentType {
		if _, _, err := mime.ParseMediaType(declared); err == nil {
			return declared
		}
	}
	if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
		return byExt
	}
	if declared != "" {
		return declared
	}

	return defaultContentType
}

// readTracker запоминает ошибку чтения исходного потока, чтобы отличать её от ошибок записи.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		t.err = err
	}

	return n, err
}
