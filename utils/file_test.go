package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveOlderThan(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	old, fresh := filepath.Join(dir, "old.png"), filepath.Join(dir, "fresh.png")
	require.NoError(t, os.WriteFile(old, nil, 0o644))
	require.NoError(t, os.WriteFile(fresh, nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	stale := now.Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(old, stale, stale))

	n, err := RemoveOlderThan(dir, time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
	assert.DirExists(t, filepath.Join(dir, "sub"))

	n, err = RemoveOlderThan(filepath.Join(dir, "missing"), time.Hour, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))
	assert.DirExists(t, dir)
}
