package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/seglog"
	"github.com/hupe1980/seglog/blobstore"
	"github.com/hupe1980/seglog/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedLog writes 10 JSON records in sections of four and checkpoints at 4.
func seedLog(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	st := storage.New(blobstore.NewLocalStore(dir), "orders", func(o *storage.Options) {
		o.Compression = storage.CompressionLZ4
	})
	l, err := seglog.Open(ctx, st, seglog.WithRotation(4, 0))
	require.NoError(t, err)
	for i := range 10 {
		_, err := l.Append(ctx, fmt.Appendf(nil, `{"n":%d}`, i))
		require.NoError(t, err)
	}
	require.NoError(t, l.Cleanup(ctx, 4, "snap-1"))
	require.NoError(t, l.Close(ctx))
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSectionsCmd(t *testing.T) {
	dir := seedLog(t)

	out, err := run(t, "sections", "--root", dir, "--id", "orders")
	require.NoError(t, err)
	assert.Contains(t, out, "[4,8)")
	assert.Contains(t, out, "[8,10)")
	assert.NotContains(t, out, "[0,4)")
	assert.Contains(t, out, "next lsn: 10")
}

func TestDumpCmd(t *testing.T) {
	dir := seedLog(t)

	out, err := run(t, "dump", "--root", dir, "--id", "orders", "--from", "8")
	require.NoError(t, err)
	assert.Equal(t, "8\t\"{\\\"n\\\":8}\"\n9\t\"{\\\"n\\\":9}\"\n", out)

	out, err = run(t, "dump", "--root", dir, "--id", "orders", "--codec", "json", "--limit", "2")
	require.NoError(t, err)
	assert.Equal(t, "4\t{\"n\":4}\n5\t{\"n\":5}\n", out)

	_, err = run(t, "dump", "--root", dir, "--id", "orders", "--codec", "xml")
	assert.ErrorContains(t, err, "unknown codec")
}

func TestCheckpointCmd(t *testing.T) {
	dir := seedLog(t)

	out, err := run(t, "checkpoint", "--root", dir, "--id", "orders", "--history")
	require.NoError(t, err)
	assert.Contains(t, out, `current: token="snap-1" lsn=4`)
	assert.Contains(t, out, `marker 1: token="snap-1"`)

	out, err = run(t, "checkpoint", "--root", t.TempDir(), "--id", "orders")
	require.NoError(t, err)
	assert.Equal(t, "no checkpoint\n", out)
}

func TestVerifyCmd(t *testing.T) {
	dir := seedLog(t)

	out, err := run(t, "verify", "--root", dir, "--id", "orders")
	require.NoError(t, err)
	assert.Contains(t, out, "records: 6")
	assert.Contains(t, out, "span: [4,10)")

	matches, err := filepath.Glob(filepath.Join(dir, "orders", "section-*"))
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	require.NoError(t, os.WriteFile(matches[0], []byte("junk"), 0o644))

	out, err = run(t, "verify", "--root", dir, "--id", "orders")
	require.ErrorIs(t, err, seglog.ErrCorruptLog)
	assert.Contains(t, out, "problem:")
}

func TestConfigFromEnv(t *testing.T) {
	dir := seedLog(t)
	t.Setenv("SEGLOG_ROOT", dir)
	t.Setenv("SEGLOG_ID", "orders")

	out, err := run(t, "sections")
	require.NoError(t, err)
	assert.Contains(t, out, "[4,8)")
}

func TestMissingID(t *testing.T) {
	_, err := run(t, "sections", "--root", t.TempDir())
	assert.ErrorContains(t, err, "log id is required")
}

func TestUnknownBackend(t *testing.T) {
	_, err := run(t, "verify", "--backend", "ftp", "--id", "x")
	assert.ErrorContains(t, err, `unknown backend "ftp"`)
}

func TestCloseLogJoinsError(t *testing.T) {
	ctx := context.Background()
	st := storage.New(blobstore.NewLocalStore(seedLog(t)), "orders")
	l, err := seglog.Open(ctx, st, seglog.ReadOnly())
	require.NoError(t, err)

	var ok error
	closeLog(ctx, l, &ok)
	require.NoError(t, ok)

	failed := errors.New("dump failed")
	err = failed
	closeLog(ctx, l, &err)
	assert.ErrorIs(t, err, failed)
	assert.ErrorIs(t, err, seglog.ErrClosedLog)
}
