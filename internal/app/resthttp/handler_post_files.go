package resthttp

import (
	"net/http"

	"github.com/sir_venger/flatstore/pkg/fileproto"
)

// postFiles принимает multipart-поле file и потоково передаёт его сервису файлов.
func (s *Server) postFiles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.Cfg.MaxUploadBytes)

	part, err := nextFilePart(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer part.Close()

	res, err := s.FilesService.Store(r.Context(), part.filename, part.contentType, part)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, fileproto.UploadResponse{
		Message:  fileproto.MessageStored,
		Filename: res.Filename,
		Size:     res.Size,
	})
}
