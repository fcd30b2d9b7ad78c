package httperrors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sir_venger/flatstore/internal/models"
	"github.com/sir_venger/flatstore/pkg/fileproto"
)

// Status сопоставляет ошибку с HTTP-кодом.
func Status(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, models.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, models.ErrInvalidName), errors.Is(err, models.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Write отдаёт ошибку JSON-телом {"detail": "..."}.
func Write(w http.ResponseWriter, err error) {
	WriteStatus(w, Status(err), err.Error())
}

func WriteStatus(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(fileproto.ErrorResponse{Detail: detail})
}
