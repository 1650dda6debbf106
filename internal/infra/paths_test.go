package infra

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths(t *testing.T) {
	dir := t.TempDir()

	p := ResolvePaths(dir)

	assert.Equal(t, dir, p.DataDir)
	assert.Equal(t, filepath.Join(dir, "webmon.db"), p.StorePath)
	assert.Equal(t, filepath.Join(dir, keyFileName), p.KeyPath)
	assert.Equal(t, filepath.Join(dir, "webmon.log"), p.LogFile)
}

func TestResolvePaths_DefaultsToHome(t *testing.T) {
	t.Setenv("SUDO_USER", "")
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".webmon"), ResolvePaths("").DataDir)
	assert.Equal(t, filepath.Join(home, "focus"), ResolvePaths("~/focus").DataDir)
}

func TestExpandHome(t *testing.T) {
	t.Setenv("SUDO_USER", "")
	home, _ := os.UserHomeDir()

	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, filepath.Join(home, "a", "b"), ExpandHome("~/a/b"))
	assert.Equal(t, "/etc/webmon", ExpandHome("/etc/webmon"))
	assert.Equal(t, "~other/x", ExpandHome("~other/x"))
}

func TestPaths_EnsureDataDir(t *testing.T) {
	p := ResolvePaths(filepath.Join(t.TempDir(), "nested", "data"))

	require.NoError(t, p.EnsureDataDir())

	info, err := os.Stat(p.DataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}
