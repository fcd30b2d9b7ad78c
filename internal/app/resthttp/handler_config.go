package resthttp

import "net/http"

// getConfig отдаёт действующую конфигурацию без паролей и ключей.
func (s *Server) getConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Cfg.Redacted())
}
