package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	lfs := LocalFS{}

	dir := filepath.Join(t.TempDir(), "log")
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "section.tmp")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size())

	buf := make([]byte, 3)
	_, err = f.ReadAt(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, "llo", string(buf))
	require.NoError(t, f.Close())

	entries, err := lfs.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	newPath := filepath.Join(dir, "section.log")
	require.NoError(t, lfs.Rename(fpath, newPath))
	_, err = lfs.Stat(newPath)
	require.NoError(t, err)

	require.NoError(t, lfs.Remove(newPath))
	_, err = lfs.Stat(newPath)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS_TornWrite(t *testing.T) {
	ffs := NewFaultyFS(nil)
	ffs.AddRule("torn", Fault{FailAfterBytes: 5})

	fpath := filepath.Join(t.TempDir(), "torn.log")
	f, err := ffs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)

	n, err := f.Write([]byte("hel"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = f.Write([]byte("lo world"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 2, n)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(fpath)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFaultyFS_Rules(t *testing.T) {
	tmp := t.TempDir()
	custom := os.ErrPermission
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("sync", Fault{FailOnSync: true})
	ffs.AddRule("close", Fault{FailOnClose: true, Err: custom})
	ffs.AddRule("final", Fault{FailOnRename: true})
	ffs.AddRule("keep", Fault{FailOnRemove: true})
	ffs.AddRule("reject", Fault{FailWrites: true})

	f, err := ffs.OpenFile(filepath.Join(tmp, "sync.log"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Sync(), ErrInjected)
	require.NoError(t, f.Close())

	f, err = ffs.OpenFile(filepath.Join(tmp, "close.log"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Close(), custom)

	f, err = ffs.OpenFile(filepath.Join(tmp, "reject.log"), os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	n, err := f.Write([]byte("x"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.Zero(t, n)
	require.NoError(t, f.Close())

	src := filepath.Join(tmp, "sync.log")
	assert.ErrorIs(t, ffs.Rename(src, filepath.Join(tmp, "final.log")), ErrInjected)
	require.NoError(t, ffs.Rename(src, filepath.Join(tmp, "keep.log")))
	assert.ErrorIs(t, ffs.Remove(filepath.Join(tmp, "keep.log")), ErrInjected)

	ffs.Reset()
	require.NoError(t, ffs.Remove(filepath.Join(tmp, "keep.log")))
}

func TestFaultyFS_Delegation(t *testing.T) {
	ffs := NewFaultyFS(nil)
	dir := filepath.Join(t.TempDir(), "sub")
	require.NoError(t, ffs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "plain.log")
	f, err := ffs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte("unaffected"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	_, err = ffs.Stat(fpath)
	require.NoError(t, err)
	entries, err := ffs.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	require.NoError(t, ffs.Remove(fpath))
}
