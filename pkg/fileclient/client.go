// Package fileclient HTTP-клиент файлового сервиса.
package fileclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"

	"github.com/sir_venger/flatstore/pkg/fileproto"
)

// APIError ответ сервера с кодом вне 2xx.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server responded %d", e.Status)
	}
	return fmt.Sprintf("server responded %d: %s", e.Status, e.Detail)
}

type Options struct {
	HTTPClient *http.Client
	// Progress куда рисовать индикатор загрузки/скачивания; nil отключает индикатор.
	Progress io.Writer
}

type Client struct {
	baseURL  string
	c        *http.Client
	progress io.Writer
}

// New создаёт клиент для сервиса по адресу baseURL.
func New(baseURL string, opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		c:        hc,
		progress: opts.Progress,
	}
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// Upload потоково отправляет r как поле file multipart-формы.
// size нужен только индикатору, 0 если неизвестен.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader, size int64) (fileproto.UploadResponse, error) {
	var out fileproto.UploadResponse

	tr := c.newTransfer("Uploading "+name, size)
	if tr != nil {
		r = countingReader{r: r, t: tr}
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, name, r))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+fileproto.PathFiles, pr)
	if err != nil {
		_ = pr.CloseWithError(err)
		tr.Fail(err)
		return out, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	if err = c.do(req, &out); err != nil {
		_ = pr.CloseWithError(err)
		tr.Fail(err)
		return out, err
	}

	tr.Finish(out.Size, "")
	return out, nil
}

func writeForm(mw *multipart.Writer, name string, r io.Reader) error {
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		fileproto.FormFieldFile, quoteEscaper.Replace(name)))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err = io.Copy(part, r); err != nil {
		return err
	}

	return mw.Close()
}

// Download возвращает поток с содержимым файла. Закрывает вызывающий.
func (c *Client) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+fileproto.PathFiles+"/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.c.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}

	tr := c.newTransfer("Downloading "+name, resp.ContentLength)
	if tr == nil {
		return resp.Body, nil
	}

	return &downloadBody{
		ReadCloser: resp.Body,
		t:          tr,
		expected:   resp.ContentLength,
		etag:       resp.Header.Get("ETag"),
	}, nil
}

func (c *Client) List(ctx context.Context) (fileproto.ListResponse, error) {
	var out fileproto.ListResponse
	err := c.getJSON(ctx, fileproto.PathFiles, &out)
	return out, err
}

func (c *Client) Metrics(ctx context.Context) (fileproto.MetricsResponse, error) {
	var out fileproto.MetricsResponse
	err := c.getJSON(ctx, fileproto.PathMetrics, &out)
	return out, err
}

// Health возвращает ответ сервиса. Для 503 тело тоже разбирается, а ошибкой будет *APIError.
func (c *Client) Health(ctx context.Context) (fileproto.HealthResponse, error) {
	var out fileproto.HealthResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+fileproto.PathHealth, nil)
	if err != nil {
		return out, err
	}

	resp, err := c.c.Do(req)
	if err != nil {
		return out, err
	}
	defer resp.Body.Close()

	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode health: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return out, &APIError{Status: resp.StatusCode, Detail: out.Detail}
	}

	return out, nil
}

// GC запускает внеплановую очистку незавершённых записей.
func (c *Client) GC(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+fileproto.PathAdminGC, nil)
	if err != nil {
		return err
	}

	return c.do(req, nil)
}

func (c *Client) getJSON(ctx context.Context, p string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+p, nil)
	if err != nil {
		return err
	}

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}

	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body fileproto.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Detail = body.Detail
	}

	return apiErr
}

// IsNotFound сообщает, что сервер ответил 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func (c *Client) newTransfer(label string, total int64) *transfer {
	if c.progress == nil {
		return nil
	}

	return newTransfer(c.progress, label, total)
}
