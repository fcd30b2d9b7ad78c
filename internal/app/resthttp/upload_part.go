package resthttp

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/sir_venger/flatstore/internal/models"
	"github.com/sir_venger/flatstore/pkg/fileproto"
)

// uploadPart поле file multipart-формы с исходным именем файла.
type uploadPart struct {
	*multipart.Part
	filename    string
	contentType string
}

// nextFilePart пропускает посторонние поля и возвращает первое поле file.
func nextFilePart(r *http.Request) (*uploadPart, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrBadRequest, err)
	}

	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: multipart field %q is missing", models.ErrBadRequest, fileproto.FormFieldFile)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read multipart: %w", models.ErrBadRequest, err)
		}

		if p.FormName() != fileproto.FormFieldFile {
			_ = p.Close()
			continue
		}

		name, err := rawFilename(p)
		if err != nil {
			_ = p.Close()
			return nil, err
		}

		return &uploadPart{
			Part:        p,
			filename:    name,
			contentType: p.Header.Get("Content-Type"),
		}, nil
	}
}

// rawFilename достаёт имя без filepath.Base, который применяет Part.FileName():
// имена с разделителями должны отклоняться, а не молча обрезаться.
func rawFilename(p *multipart.Part) (string, error) {
	_, params, err := mime.ParseMediaType(p.Header.Get("Content-Disposition"))
	if err != nil {
		return "", fmt.Errorf("%w: content-disposition: %w", models.ErrBadRequest, err)
	}

	name, ok := params["filename"]
	if !ok {
		return "", fmt.Errorf("%w: field %q is not a file", models.ErrBadRequest, fileproto.FormFieldFile)
	}

	return name, nil
}
