package resthttp

import (
	"net/http"

	"github.com/sir_venger/flatstore/pkg/fileproto"
)

func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	names, err := s.FilesService.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, fileproto.ListResponse{
		Files: names,
		Count: len(names),
	})
}
