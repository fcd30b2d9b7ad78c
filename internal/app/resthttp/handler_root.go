package resthttp

import (
	"net/http"

	"github.com/sir_venger/flatstore/pkg/fileproto"
)

var endpoints = []string{
	"GET " + fileproto.PathRoot,
	"GET " + fileproto.PathHealth,
	"POST " + fileproto.PathFiles,
	"GET " + fileproto.PathFiles,
	"GET " + fileproto.PathFile,
	"GET " + fileproto.PathMetrics,
	"GET " + fileproto.PathPrometheus,
	"POST " + fileproto.PathAdminGC,
	"GET " + fileproto.PathAdminConfig,
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, fileproto.RootResponse{
		Message:   fileproto.ServiceName,
		Endpoints: endpoints,
	})
}
