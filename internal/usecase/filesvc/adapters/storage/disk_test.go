package adapters_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sir_venger/flatstore/internal/models"
	adapters "github.com/sir_venger/flatstore/internal/usecase/filesvc/adapters/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStageCommitOpen(t *testing.T) {
	root := t.TempDir()
	d, err := adapters.NewDisk(root)
	require.NoError(t, err)
	ctx := context.Background()

	st, err := d.Stage(ctx, strings.NewReader("abc"))
	require.NoError(t, err)
	assert.EqualValues(t, 3, st.Size)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", st.Sha256)
	assert.FileExists(t, filepath.Join(root, "tmp", st.ID+".part"))

	// до Commit файл не виден
	_, _, err = d.Open(ctx, "abc.txt")
	require.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, d.Commit(ctx, st, "abc.txt"))
	assert.NoFileExists(t, filepath.Join(root, "tmp", st.ID+".part"))

	rc, size, err := d.Open(ctx, "abc.txt")
	require.NoError(t, err)
	defer rc.Close()
	assert.EqualValues(t, 3, size)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))

	// повторный Discard после Commit не ошибка
	require.NoError(t, d.Discard(ctx, st))
}

func TestDiskDiscard(t *testing.T) {
	root := t.TempDir()
	d, err := adapters.NewDisk(root)
	require.NoError(t, err)
	d.NoSync = true

	st, err := d.Stage(context.Background(), strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, d.Discard(context.Background(), st))

	entries, err := os.ReadDir(filepath.Join(root, "tmp"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDiskScanSkipsDirectories(t *testing.T) {
	root := t.TempDir()
	d, err := adapters.NewDisk(root)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "files", "a"), []byte("12"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "files", "b"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "files", "dir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tmp", "x.part"), []byte("ignored"), 0o644))

	sizes, err := d.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 2, "b": 0}, sizes)

	_, _, err = d.Open(context.Background(), "dir")
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestDiskPingAndSweep(t *testing.T) {
	root := t.TempDir()
	d, err := adapters.NewDisk(root)
	require.NoError(t, err)
	require.NoError(t, d.Ping(context.Background()))

	stale := filepath.Join(root, "tmp", "old.part")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o644))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	removed, err := d.Sweep(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := os.ReadDir(filepath.Join(root, "tmp"))
	require.NoError(t, err)
	assert.Empty(t, entries, "ping probe must not be left behind")
}

func TestDiskSweepCollectsLeftoverProbe(t *testing.T) {
	root := t.TempDir()
	d, err := adapters.NewDisk(root)
	require.NoError(t, err)

	// проба, оставшаяся после падения между созданием и удалением
	f, err := os.CreateTemp(filepath.Join(root, "tmp"), "probe-*.part")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(f.Name(), old, old))

	removed, err := d.Sweep(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, f.Name())
}
