package fileclient

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// progressStep как часто печатать промежуточную строку, в байтах.
const progressStep = 1 << 20

// transfer ведёт учёт одной загрузки или скачивания и пишет строки отчёта в out.
// Итог сверяется с размером, который подтвердил сервер.
type transfer struct {
	out   io.Writer
	label string
	total int64
	start time.Time

	mu      sync.Mutex
	n       int64
	printed int64
	done    bool
}

func newTransfer(out io.Writer, label string, total int64) *transfer {
	return &transfer{out: out, label: label, total: total, start: time.Now()}
}

func (t *transfer) add(n int) {
	if t == nil || n <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}

	t.n += int64(n)
	if t.n-t.printed >= progressStep {
		t.printed = t.n
		fmt.Fprintf(t.out, "\r%s %s", t.label, t.amountLocked())
	}
}

func (t *transfer) amountLocked() string {
	if t.total > 0 {
		return fmt.Sprintf("%s/%s (%d%%)", humanBytes(t.n), humanBytes(t.total), t.n*100/t.total)
	}
	return humanBytes(t.n)
}

// Finish печатает итог. confirmed: размер по данным сервера, -1 если неизвестен;
// расхождение с переданным количеством считается ошибкой.
func (t *transfer) Finish(confirmed int64, etag string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	if confirmed >= 0 && confirmed != t.n {
		t.failLocked(fmt.Errorf("server reports %s", humanBytes(confirmed)))
		return
	}
	t.done = true

	line := fmt.Sprintf("\r%s %s in %s", t.label, humanBytes(t.n), time.Since(t.start).Round(time.Millisecond))
	if etag != "" {
		line += " sha256 " + shortDigest(etag)
	}
	fmt.Fprintln(t.out, line+" ✓")
}

func (t *transfer) Fail(err error) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failLocked(err)
}

func (t *transfer) failLocked(err error) {
	if t.done {
		return
	}
	t.done = true
	fmt.Fprintf(t.out, "\r%s failed after %s: %v\n", t.label, humanBytes(t.n), err)
}

// shortDigest обрезает ETag (sha256 в кавычках) до 12 символов.
func shortDigest(etag string) string {
	if len(etag) >= 2 && etag[0] == '"' && etag[len(etag)-1] == '"' {
		etag = etag[1 : len(etag)-1]
	}
	if len(etag) > 12 {
		etag = etag[:12]
	}
	return etag
}

// countingReader учитывает байты, отправленные на сервер.
type countingReader struct {
	r io.Reader
	t *transfer
}

func (c countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.t.add(n)
	return n, err
}

// downloadBody учитывает принятые байты и подводит итог по Content-Length и ETag ответа.
type downloadBody struct {
	io.ReadCloser
	t        *transfer
	expected int64
	etag     string
}

func (d *downloadBody) Read(p []byte) (int, error) {
	n, err := d.ReadCloser.Read(p)
	d.t.add(n)
	switch {
	case errors.Is(err, io.EOF):
		d.t.Finish(d.expected, d.etag)
	case err != nil:
		d.t.Fail(err)
	}
	return n, err
}

func (d *downloadBody) Close() error {
	err := d.ReadCloser.Close()
	// после EOF отчёт уже закрыт и Fail ничего не печатает
	if err != nil {
		d.t.Fail(err)
	} else {
		d.t.Fail(errors.New("closed before end of stream"))
	}
	return err
}

var byteUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// humanBytes форматирует размер в двоичных единицах.
func humanBytes(v int64) string {
	value := float64(v)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d %s", v, byteUnits[unit])
	}
	return fmt.Sprintf("%.1f %s", value, byteUnits[unit])
}
