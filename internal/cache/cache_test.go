package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/degoto/internal/frontend"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCache(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	cacheDir := filepath.Join(tmpDir, "cache")

	c, err := New(cacheDir)
	require.NoError(t, err)

	src := filepath.Join(tmpDir, "a.go")
	writeFile(t, src, "package a\n")
	funcs := []frontend.Summary{{Name: "f", Line: 3, Gotos: 2, Status: frontend.StatusRewritten, Verdict: "Equivalent"}}

	t.Run("NotFound", func(t *testing.T) {
		_, found := c.Get(filepath.Join(tmpDir, "missing.go"))
		assert.False(t, found)
	})

	require.NoError(t, c.Set(src, []byte("package a // out\n"), funcs))

	entry, found := c.Get(src)
	require.True(t, found)
	assert.Equal(t, funcs, entry.Funcs)
	assert.Equal(t, "package a // out\n", string(entry.Output))

	// A second cache over the same directory sees the saved entry.
	reopened, err := New(cacheDir)
	require.NoError(t, err)
	entry, found = reopened.Get(src)
	require.True(t, found)
	assert.Equal(t, funcs, entry.Funcs)

	writeFile(t, src, "package a\n\nfunc f() {}\n")
	_, found = reopened.Get(src)
	assert.False(t, found, "modified file must miss")
}

func TestCacheExpiry(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	c, err := New(filepath.Join(tmpDir, "cache"))
	require.NoError(t, err)

	src := filepath.Join(tmpDir, "a.go")
	writeFile(t, src, "package a\n")
	require.NoError(t, c.Set(src, nil, nil))

	c.SetMaxAge(-time.Second)
	_, found := c.Get(src)
	assert.False(t, found)
}

func TestCacheDependencies(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	cacheDir := filepath.Join(tmpDir, "cache")
	cfg := filepath.Join(tmpDir, ".degoto.yaml")
	writeFile(t, cfg, "max_rounds: 10\n")

	c, err := New(cacheDir)
	require.NoError(t, err)
	require.NoError(t, c.SetDependencies(cfg))

	src := filepath.Join(tmpDir, "a.go")
	writeFile(t, src, "package a\n")
	require.NoError(t, c.Set(src, nil, nil))

	reopened, err := New(cacheDir)
	require.NoError(t, err)
	require.NoError(t, reopened.SetDependencies(cfg))
	_, found := reopened.Get(src)
	assert.True(t, found, "unchanged config keeps entries")

	writeFile(t, cfg, "max_rounds: 20\n")
	again, err := New(cacheDir)
	require.NoError(t, err)
	require.NoError(t, again.SetDependencies(cfg))
	_, found = again.Get(src)
	assert.False(t, found, "changed config drops entries")

	require.NoError(t, again.InvalidateAll())
}

func TestCacheFingerprint(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	cacheDir := filepath.Join(tmpDir, "cache")

	c, err := New(cacheDir)
	require.NoError(t, err)
	c.SetFingerprint("rounds=10")

	src := filepath.Join(tmpDir, "a.go")
	writeFile(t, src, "package a\n")
	require.NoError(t, c.Set(src, nil, nil))

	same, err := New(cacheDir)
	require.NoError(t, err)
	same.SetFingerprint("rounds=10")
	_, found := same.Get(src)
	assert.True(t, found, "same settings keep entries")

	other, err := New(cacheDir)
	require.NoError(t, err)
	other.SetFingerprint("rounds=20")
	_, found = other.Get(src)
	assert.False(t, found, "different settings drop entries")
}
