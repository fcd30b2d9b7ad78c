package adapters

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sir_venger/flatstore/internal/models"
)

const (
	filesDirName = "files"
	tmpDirName   = "tmp"
	stagedSuffix = ".part"
	// проба носит суффикс незавершённой записи, чтобы остатки после падения собирал Sweep
	probePattern = "probe-*" + stagedSuffix
)

// Disk хранит файлы плоским каталогом на локальном диске.
// Раскладка: содержимое в <root>/files/<name>, незавершённые записи в <root>/tmp/<id>.part.
// Оба каталога лежат на одной ФС, поэтому os.Rename атомарен.
type Disk struct {
	filesDir string
	tmpDir   string
	// NoSync отключает fsync перед rename (только для тестов).
	NoSync bool
}

// NewDisk создаёт каталоги данных и возвращает дисковый бэкенд.
func NewDisk(root string) (*Disk, error) {
	d := &Disk{
		filesDir: filepath.Join(root, filesDirName),
		tmpDir:   filepath.Join(root, tmpDirName),
	}
	for _, dir := range []string{d.filesDir, d.tmpDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	return d, nil
}

// Stage копирует поток во временный файл, попутно считая SHA-256.
func (d *Disk) Stage(_ context.Context, r io.Reader) (models.Staged, error) {
	id := uuid.NewString()
	path := d.stagedPath(id)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return models.Staged{}, err
	}

	// При любой ошибке временный файл удаляется, целевой файл не трогаем.
	success := false
	defer func() {
		if !success {
			_ = f.Close()
			_ = os.Remove(path)
		}
	}()

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, h), r)
	if err != nil {
		return models.Staged{}, err
	}
	if !d.NoSync {
		if err = f.Sync(); err != nil {
			return models.Staged{}, err
		}
	}
	if err = f.Close(); err != nil {
		return models.Staged{}, err
	}

	success = true
	return models.Staged{
		ID:     id,
		Size:   n,
		Sha256: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// Commit атомарно публикует подготовленный файл под именем name.
func (d *Disk) Commit(_ context.Context, st models.Staged, name string) error {
	return os.Rename(d.stagedPath(st.ID), d.filePath(name))
}

// Discard удаляет подготовленный файл, если он ещё существует.
func (d *Disk) Discard(_ context.Context, st models.Staged) error {
	err := os.Remove(d.stagedPath(st.ID))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// Open открывает файл на чтение и возвращает его размер.
func (d *Disk) Open(_ context.Context, name string) (io.ReadCloser, int64, error) {
	f, err := os.Open(d.filePath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, models.ErrNotFound
		}
		return nil, 0, err
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, 0, models.ErrNotFound
	}

	return f, info.Size(), nil
}

// Scan возвращает размеры всех сохранённых файлов.
func (d *Disk) Scan(_ context.Context) (map[string]int64, error) {
	entries, err := os.ReadDir(d.filesDir)
	if err != nil {
		return nil, err
	}

	sizes := make(map[string]int64, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// файл мог исчезнуть между ReadDir и Info
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		sizes[e.Name()] = info.Size()
	}

	return sizes, nil
}

// Ping проверяет, что каталог данных доступен на запись.
func (d *Disk) Ping(_ context.Context) error {
	f, err := os.CreateTemp(d.tmpDir, probePattern)
	if err != nil {
		return err
	}
	name := f.Name()
	_, werr := f.Write([]byte("ok"))
	cerr := f.Close()
	rerr := os.Remove(name)

	return errors.Join(werr, cerr, rerr)
}

// Sweep удаляет незавершённые записи старше ttl.
func (d *Disk) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	now := time.Now()
	entries, err := os.ReadDir(d.tmpDir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if e.IsDir() || !strings.HasSuffix(e.Name(), stagedSuffix) {
			continue
		}

		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < ttl {
			continue
		}

		if err := os.Remove(filepath.Join(d.tmpDir, e.Name())); err == nil {
			removed++
		}
	}

	return removed, nil
}

func (d *Disk) stagedPath(id string) string {
	return filepath.Join(d.tmpDir, id+stagedSuffix)
}

func (d *Disk) filePath(name string) string {
	return filepath.Join(d.filesDir, name)
}
