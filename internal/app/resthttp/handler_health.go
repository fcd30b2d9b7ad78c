package resthttp

import (
	"context"
	"net/http"
	"time"

	"github.com/sir_venger/flatstore/pkg/fileproto"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// health проверяет, что носитель доступен на запись. Это liveness-проба, не проверка консистентности.
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := fileproto.HealthResponse{
		Status:    fileproto.StatusHealthy,
		Timestamp: time.Now().UTC(),
		Service:   fileproto.ServiceName,
	}

	if err := s.FilesService.HealthCheck(ctx); err != nil {
		s.Logger.Warn("health check failed", zap.Error(err))
		resp.Status = fileproto.StatusUnhealthy
		resp.Detail = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
