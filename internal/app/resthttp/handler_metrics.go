package resthttp

import (
	"net/http"

	"github.com/sir_venger/flatstore/pkg/fileproto"
)

// getMetrics отдаёт снимок счётчиков файлового сервиса в JSON.
func (s *Server) getMetrics(w http.ResponseWriter, _ *http.Request) {
	snap := s.FilesService.Metrics()

	writeJSON(w, http.StatusOK, fileproto.MetricsResponse{
		FilesStoredTotal:  snap.FilesStoredTotal,
		FilesCurrent:      snap.FilesCurrent,
		TotalStorageBytes: snap.TotalStorageBytes,
		TotalStorageMB:    snap.TotalStorageMB,
		Timestamp:         snap.Timestamp,
	})
}
