package resthttp

import (
	"net/http"
	"time"
)

const manualGCTTL = 24 * time.Hour

// gcOnce вручную запускает сбор незавершённых записей.
func (s *Server) gcOnce(w http.ResponseWriter, r *http.Request) {
	ttl := s.Cfg.GC.TTL
	if ttl <= 0 {
		ttl = manualGCTTL
	}

	if _, err := s.FilesService.Sweep(r.Context(), ttl); err != nil {
		s.fail(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
