package filesvc_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sir_venger/flatstore/internal/models"
	meta "github.com/sir_venger/flatstore/internal/repo"
	"github.com/sir_venger/flatstore/internal/usecase/filesvc"
	adapters "github.com/sir_venger/flatstore/internal/usecase/filesvc/adapters/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type env struct {
	root  string
	disk  *adapters.Disk
	metas *meta.MemoryStore
	svc   *filesvc.Files
}

func newEnv(t *testing.T) *env {
	t.Helper()
	root := t.TempDir()
	return newEnvAt(t, root, nil)
}

func newEnvAt(t *testing.T, root string, wrap func(*adapters.Disk) filesvc.Backend) *env {
	t.Helper()

	disk, err := adapters.NewDisk(root)
	require.NoError(t, err)
	disk.NoSync = true

	var backend filesvc.Backend = disk
	if wrap != nil {
		backend = wrap(disk)
	}

	metas := meta.NewMemoryStore()
	svc, err := filesvc.New(context.Background(), filesvc.Deps{Backend: backend, MetaStorage: metas})
	require.NoError(t, err)

	return &env{root: root, disk: disk, metas: metas, svc: svc}
}

func (e *env) store(t *testing.T, name, content string) models.StoreResult {
	t.Helper()
	res, err := e.svc.Store(context.Background(), name, "", strings.NewReader(content))
	require.NoError(t, err)
	return res
}

func (e *env) read(t *testing.T, name string) string {
	t.Helper()
	obj, err := e.svc.Retrieve(context.Background(), name)
	require.NoError(t, err)
	defer obj.Body.Close()

	b, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	require.EqualValues(t, len(b), obj.Size)
	return string(b)
}

func (e *env) stagedFiles(t *testing.T) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(e.root, "tmp"))
	require.NoError(t, err)
	return entries
}

func TestStoreRetrieve(t *testing.T) {
	e := newEnv(t)

	res := e.store(t, "hello.txt", "hello world")
	sum := sha256.Sum256([]byte("hello world"))
	assert.Equal(t, models.StoreResult{
		Filename: "hello.txt",
		Size:     11,
		Sha256:   hex.EncodeToString(sum[:]),
	}, res)

	assert.Equal(t, "hello world", e.read(t, "hello.txt"))
	assert.Empty(t, e.stagedFiles(t))

	obj, err := e.svc.Retrieve(context.Background(), "hello.txt")
	require.NoError(t, err)
	defer obj.Body.Close()
	assert.Equal(t, "text/plain; charset=utf-8", obj.ContentType)
	assert.Equal(t, res.Sha256, obj.Sha256)
}

func TestStoreEmptyFile(t *testing.T) {
	e := newEnv(t)

	res := e.store(t, "empty.bin", "")
	assert.Zero(t, res.Size)
	assert.Equal(t, "", e.read(t, "empty.bin"))

	m := e.svc.Metrics()
	assert.EqualValues(t, 1, m.FilesCurrent)
	assert.EqualValues(t, 0, m.TotalStorageBytes)
}

func TestStoreOverwriteAdjustsBytesByDelta(t *testing.T) {
	e := newEnv(t)

	e.store(t, "a.txt", "hi")
	m := e.svc.Metrics()
	assert.EqualValues(t, 1, m.FilesStoredTotal)
	assert.EqualValues(t, 1, m.FilesCurrent)
	assert.EqualValues(t, 2, m.TotalStorageBytes)

	res := e.store(t, "a.txt", "hello")
	assert.True(t, res.Replaced)
	m = e.svc.Metrics()
	assert.EqualValues(t, 2, m.FilesStoredTotal)
	assert.EqualValues(t, 1, m.FilesCurrent)
	assert.EqualValues(t, 5, m.TotalStorageBytes)
	assert.Equal(t, "hello", e.read(t, "a.txt"))

	e.store(t, "a.txt", "x")
	m = e.svc.Metrics()
	assert.EqualValues(t, 3, m.FilesStoredTotal)
	assert.EqualValues(t, 1, m.TotalStorageBytes)
}

func TestRetrieveErrors(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.Retrieve(context.Background(), "missing.txt")
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = e.svc.Retrieve(context.Background(), "../secret")
	require.ErrorIs(t, err, models.ErrInvalidName)
}

func TestStoreRejectsInvalidNames(t *testing.T) {
	e := newEnv(t)

	for _, name := range []string{"", "..", "../x", "a/b", `a\b`} {
		_, err := e.svc.Store(context.Background(), name, "", strings.NewReader("data"))
		require.ErrorIs(t, err, models.ErrInvalidName, "%q", name)
	}

	m := e.svc.Metrics()
	assert.Zero(t, m.FilesStoredTotal)
	assert.Zero(t, m.FilesCurrent)
	assert.Empty(t, e.stagedFiles(t))

	entries, err := os.ReadDir(e.root)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "only files/ and tmp/ expected in data dir")
}

func TestListAndMetrics(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	disk, err := adapters.NewDisk(t.TempDir())
	require.NoError(t, err)
	disk.NoSync = true
	svc, err := filesvc.New(context.Background(), filesvc.Deps{Backend: disk, Now: func() time.Time { return now }})
	require.NoError(t, err)

	names, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
	assert.NotNil(t, names)

	for _, n := range []string{"c.txt", "a.txt", "b.txt"} {
		_, err := svc.Store(context.Background(), n, "", strings.NewReader("abc"))
		require.NoError(t, err)
	}
	_, err = svc.Store(context.Background(), "big.bin", "", bytes.NewReader(make([]byte, models.BytesPerMB)))
	require.NoError(t, err)

	names, err = svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "big.bin", "c.txt"}, names)

	m := svc.Metrics()
	assert.Equal(t, models.MetricsSnapshot{
		FilesStoredTotal:  4,
		FilesCurrent:      4,
		TotalStorageBytes: models.BytesPerMB + 9,
		TotalStorageMB:    float64(models.BytesPerMB+9) / models.BytesPerMB,
		Timestamp:         now,
	}, m)
	assert.EqualValues(t, len(names), m.FilesCurrent)
}

func TestCatalogDerivedFromExistingContent(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "files"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "files", "x"), []byte("abc"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "files", "y"), []byte("abcd"), 0o644))

	e := newEnvAt(t, root, nil)

	m := e.svc.Metrics()
	assert.Zero(t, m.FilesStoredTotal)
	assert.EqualValues(t, 2, m.FilesCurrent)
	assert.EqualValues(t, 7, m.TotalStorageBytes)

	names, err := e.svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, names)

	// без записи в индексе тип определяется по расширению
	obj, err := e.svc.Retrieve(context.Background(), "x")
	require.NoError(t, err)
	defer obj.Body.Close()
	assert.Equal(t, "application/octet-stream", obj.ContentType)
	assert.Empty(t, obj.Sha256)
}

func TestRetrieveUsesDeclaredContentType(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.Store(context.Background(), "scan", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)

	obj, err := e.svc.Retrieve(context.Background(), "scan")
	require.NoError(t, err)
	defer obj.Body.Close()
	assert.Equal(t, "application/pdf", obj.ContentType)

	fm, err := e.metas.Get(context.Background(), "scan")
	require.NoError(t, err)
	assert.EqualValues(t, 8, fm.Size)
}

type failingCommit struct {
	*adapters.Disk
	err error
}

func (f failingCommit) Commit(context.Context, models.Staged, string) error { return f.err }

func TestFailedCommitKeepsPriorContent(t *testing.T) {
	root := t.TempDir()
	good := newEnvAt(t, root, nil)
	good.store(t, "doc.txt", "original")

	broken := newEnvAt(t, root, func(d *adapters.Disk) filesvc.Backend {
		return failingCommit{Disk: d, err: errors.New("disk full")}
	})
	_, err := broken.svc.Store(context.Background(), "doc.txt", "", strings.NewReader("replacement"))
	require.ErrorIs(t, err, models.ErrStorageFault)

	assert.Equal(t, "original", broken.read(t, "doc.txt"))
	assert.Empty(t, broken.stagedFiles(t))

	m := broken.svc.Metrics()
	assert.Zero(t, m.FilesStoredTotal)
	assert.EqualValues(t, 8, m.TotalStorageBytes)
}

type brokenReader struct {
	sent bool
}

func (r *brokenReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		return copy(p, "partial"), nil
	}
	return 0, io.ErrUnexpectedEOF
}

func TestInterruptedUploadIsClientError(t *testing.T) {
	e := newEnv(t)
	e.store(t, "doc.txt", "original")

	_, err := e.svc.Store(context.Background(), "doc.txt", "", &brokenReader{})
	require.ErrorIs(t, err, models.ErrBadRequest)
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	require.NotErrorIs(t, err, models.ErrStorageFault)

	assert.Equal(t, "original", e.read(t, "doc.txt"))
	assert.Empty(t, e.stagedFiles(t))
	assert.EqualValues(t, 1, e.svc.Metrics().FilesStoredTotal)
}

func TestStoreCanceledContext(t *testing.T) {
	e := newEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.svc.Store(ctx, "late.txt", "", strings.NewReader("data"))
	require.ErrorIs(t, err, context.Canceled)

	_, err = e.svc.Retrieve(context.Background(), "late.txt")
	require.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, e.stagedFiles(t))
}

func TestConcurrentStoresKeepCountersConsistent(t *testing.T) {
	e := newEnv(t)

	const writers = 32
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		i := i
		g.Go(func() error {
			// половина пишет в общие имена, остальные в уникальные
			name := fmt.Sprintf("file-%02d.bin", i)
			if i%2 == 0 {
				name = fmt.Sprintf("shared-%d.bin", i%4)
			}
			_, err := e.svc.Store(context.Background(), name, "", bytes.NewReader(bytes.Repeat([]byte{byte(i)}, 100+i)))
			return err
		})
	}
	require.NoError(t, g.Wait())

	m := e.svc.Metrics()
	assert.EqualValues(t, writers, m.FilesStoredTotal)
	assert.EqualValues(t, writers/2+2, m.FilesCurrent)

	names, err := e.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, names, int(m.FilesCurrent))

	var onDisk int64
	for _, n := range names {
		info, err := os.Stat(filepath.Join(e.root, "files", n))
		require.NoError(t, err)
		onDisk += info.Size()
	}
	assert.Equal(t, onDisk, m.TotalStorageBytes)
}

func TestConcurrentOverwritesNeverMixContent(t *testing.T) {
	e := newEnv(t)

	const writers = 16
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		i := i
		g.Go(func() error {
			payload := bytes.Repeat([]byte{byte('a' + i)}, 1000*(i+1))
			_, err := e.svc.Store(context.Background(), "same.bin", "", bytes.NewReader(payload))
			return err
		})
		g.Go(func() error {
			obj, err := e.svc.Retrieve(context.Background(), "same.bin")
			if errors.Is(err, models.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			defer obj.Body.Close()
			b, err := io.ReadAll(obj.Body)
			if err != nil {
				return err
			}
			return checkWhole(b)
		})
	}
	require.NoError(t, g.Wait())

	content := []byte(e.read(t, "same.bin"))
	require.NoError(t, checkWhole(content))

	m := e.svc.Metrics()
	assert.EqualValues(t, writers, m.FilesStoredTotal)
	assert.EqualValues(t, 1, m.FilesCurrent)
	assert.EqualValues(t, len(content), m.TotalStorageBytes)
}

// checkWhole проверяет, что содержимое совпадает ровно с одним из записанных вариантов.
func checkWhole(b []byte) error {
	if len(b) == 0 {
		return errors.New("empty content")
	}
	c := b[0]
	if want := 1000 * int(c-'a'+1); len(b) != want {
		return fmt.Errorf("len %d, want %d for %q", len(b), want, c)
	}
	if bytes.Count(b, []byte{c}) != len(b) {
		return fmt.Errorf("mixed content for %q", c)
	}
	return nil
}

func TestSweepRemovesOnlyStaleStagedFiles(t *testing.T) {
	e := newEnv(t)
	tmp := filepath.Join(e.root, "tmp")

	stale := filepath.Join(tmp, "stale.part")
	fresh := filepath.Join(tmp, "fresh.part")
	other := filepath.Join(tmp, "keep.txt")
	for _, p := range []string{stale, fresh, other} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(other, old, old))

	removed, err := e.svc.Sweep(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
}

func TestStartGCStops(t *testing.T) {
	e := newEnv(t)
	stale := filepath.Join(e.root, "tmp", "stale.part")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	stop := filesvc.StartGC(e.svc, time.Minute, 10*time.Millisecond, nil)
	require.Eventually(t, func() bool {
		_, err := os.Stat(stale)
		return errors.Is(err, os.ErrNotExist)
	}, 2*time.Second, 10*time.Millisecond)

	stop()
	stop()
}

func TestHealthCheck(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.svc.HealthCheck(context.Background()))

	require.NoError(t, os.RemoveAll(filepath.Join(e.root, "tmp")))
	err := e.svc.HealthCheck(context.Background())
	require.ErrorIs(t, err, models.ErrUnavailable)
}

// blockingMeta задерживает первое сохранение, пока тест не отпустит его.
type blockingMeta struct {
	*meta.MemoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingMeta) Save(ctx context.Context, fm models.FileMeta) error {
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.entered)
		<-b.release
	}
	return b.MemoryStore.Save(ctx, fm)
}

func TestConcurrentOverwriteKeepsMetaOfLastWriter(t *testing.T) {
	disk, err := adapters.NewDisk(t.TempDir())
	require.NoError(t, err)
	disk.NoSync = true
	metas := &blockingMeta{
		MemoryStore: meta.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	svc, err := filesvc.New(context.Background(), filesvc.Deps{Backend: disk, MetaStorage: metas})
	require.NoError(t, err)

	var g errgroup.Group
	g.Go(func() error {
		_, err := svc.Store(context.Background(), "doc", "text/html", strings.NewReader("AAAA"))
		return err
	})
	<-metas.entered

	secondDone := make(chan error, 1)
	go func() {
		_, err := svc.Store(context.Background(), "doc", "application/pdf", strings.NewReader("BBBB"))
		secondDone <- err
	}()

	// вторая запись не может завершиться, пока первая держит каталог
	select {
	case err := <-secondDone:
		t.Fatalf("second store finished before first released: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(metas.release)
	require.NoError(t, g.Wait())
	require.NoError(t, <-secondDone)

	obj, err := svc.Retrieve(context.Background(), "doc")
	require.NoError(t, err)
	defer obj.Body.Close()
	b, err := io.ReadAll(obj.Body)
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("BBBB"))
	assert.Equal(t, "BBBB", string(b))
	assert.Equal(t, "application/pdf", obj.ContentType)
	assert.Equal(t, hex.EncodeToString(sum[:]), obj.Sha256)
}
