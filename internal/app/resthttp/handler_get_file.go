package resthttp

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sir_venger/flatstore/internal/models"
	"github.com/sir_venger/flatstore/pkg/httperrors"
	"go.uber.org/zap"
)

func (s *Server) getFile(w http.ResponseWriter, r *http.Request) {
	name, err := filenameParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	obj, err := s.FilesService.Retrieve(r.Context(), name)
	if errors.Is(err, models.ErrNotFound) {
		httperrors.WriteStatus(w, http.StatusNotFound, fmt.Sprintf("File '%s' not found", name))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer obj.Body.Close()

	h := w.Header()
	h.Set("Content-Type", obj.ContentType)
	h.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	if obj.Sha256 != "" {
		h.Set("ETag", strconv.Quote(obj.Sha256))
	}
	w.WriteHeader(http.StatusOK)

	// Заголовки уже отправлены, остаётся только залогировать обрыв.
	if _, err := io.Copy(w, obj.Body); err != nil {
		s.Logger.Warn("stream file failed", zap.String("filename", name), zap.Error(err))
	}
}

// filenameParam возвращает имя из пути. Chi маршрутизирует по RawPath, если он задан,
// и тогда параметр приходит в экранированном виде.
func filenameParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "filename")
	if r.URL.RawPath == "" {
		return raw, nil
	}

	name, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", models.ErrInvalidName, err)
	}

	return name, nil
}
