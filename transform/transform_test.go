package transform

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/degoto/internal/frontend"
)

const withGoto = `package main

func retry() {
again:
	step()
	if failed() {
		goto again
	}
}
`

type mockRewriter struct {
	mock.Mock
}

func (m *mockRewriter) RewriteFile(path string) (FileResult, error) {
	args := m.Called(path)
	return args.Get(0).(FileResult), args.Error(1)
}

func (m *mockRewriter) RewriteSource(name string, src []byte) (FileResult, error) {
	args := m.Called(name, src)
	return args.Get(0).(FileResult), args.Error(1)
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestProcessFile(t *testing.T) {
	t.Parallel()
	want := FileResult{Path: "test.go", Source: []byte("a"), Output: []byte("b")}
	m := new(mockRewriter)
	m.On("RewriteFile", "test.go").Return(want, nil)

	got, err := ProcessFile(m, "test.go")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got.Changed())
	m.AssertExpectations(t)
}

func TestProcessSource(t *testing.T) {
	t.Parallel()
	src := []byte(withGoto)
	m := new(mockRewriter)
	m.On("RewriteSource", "<stdin>", src).Return(FileResult{Path: "<stdin>", Source: src, Output: src}, nil)

	got, err := ProcessSource(m, "<stdin>", src)
	require.NoError(t, err)
	assert.False(t, got.Changed())
	m.AssertExpectations(t)
}

func TestProcessPathDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"a.go":              withGoto,
		"b.go":              "package main\n\nfunc b() {}\n",
		"sub/c.go":          withGoto,
		"notes.txt":         "not go",
		"testdata/skip.go":  withGoto,
		".hidden/skip.go":   withGoto,
		"vendor/dep/dep.go": withGoto,
	})

	engine, err := New(DefaultConfig(), "", nil)
	require.NoError(t, err)

	results, err := ProcessPath(context.Background(), nil, engine, dir, ProcessFile)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, filepath.Join(dir, "a.go"), results[0].Path)
	assert.Equal(t, filepath.Join(dir, "b.go"), results[1].Path)
	assert.Equal(t, filepath.Join(dir, "sub", "c.go"), results[2].Path)

	assert.True(t, results[0].Changed())
	assert.False(t, results[1].Changed())
	assert.Equal(t, 1, results[0].Count(frontend.StatusRewritten))
	assert.NotContains(t, string(results[0].Output), "goto again")
}

func TestProcessPathErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"valid.go":   withGoto,
		"invalid.go": "this is not valid go code",
	})

	engine, err := New(DefaultConfig(), "", nil)
	require.NoError(t, err)

	results, err := ProcessPath(context.Background(), nil, engine, dir, ProcessFile)
	assert.Error(t, err, "parse failure is reported")
	assert.Len(t, results, 1, "other files are still processed")

	results, err = ProcessPath(context.Background(), nil, engine, filepath.Join(dir, "invalid.go"), ProcessFile)
	assert.Error(t, err)
	assert.Equal(t, []FileResult{}, results)

	_, err = ProcessPath(context.Background(), nil, engine, filepath.Join(dir, "missing"), ProcessFile)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestProcessPathContextCancellation(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	for i := 0; i < 10; i++ {
		writeFiles(t, dir, map[string]string{fmt.Sprintf("f%d.go", i): withGoto})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := new(mockRewriter)
	m.On("RewriteFile", mock.Anything).Return(FileResult{}, nil).Maybe()

	results, err := ProcessPath(ctx, nil, m, dir, ProcessFile)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, results)
}

func TestProcessFiles(t *testing.T) {
	t.Parallel()
	m := new(mockRewriter)
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.go": withGoto, "b.go": withGoto})
	a, b := filepath.Join(dir, "a.go"), filepath.Join(dir, "b.go")

	m.On("RewriteFile", a).Return(FileResult{Path: a}, nil)
	m.On("RewriteFile", b).Return(FileResult{}, errors.New("boom"))

	results, err := ProcessFiles(context.Background(), nil, m, []string{a, b}, ProcessFile)
	assert.EqualError(t, err, "boom")
	require.Len(t, results, 1)
	assert.Equal(t, a, results[0].Path)
}

func TestEngineApplyAndCache(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "a.go")
	writeFiles(t, dir, map[string]string{"a.go": withGoto})

	config := DefaultConfig()
	config.CacheDir = filepath.Join(dir, ".degoto-cache")
	engine, err := New(config, "", nil)
	require.NoError(t, err)

	res, err := engine.RewriteFile(src)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	require.True(t, res.Changed())

	again, err := engine.RewriteFile(src)
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, res.Output, again.Output)

	require.NoError(t, engine.Apply(res))
	written, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, string(res.Output), string(written))
	assert.NotContains(t, string(written), "goto again")
	assert.Contains(t, string(written), "for first := true; first || goto_again; first = false {")

	after, err := engine.RewriteFile(src)
	require.NoError(t, err)
	assert.True(t, after.Cached)
	assert.False(t, after.Changed())
	assert.Empty(t, after.Funcs)
}

func TestEngineReportsFailures(t *testing.T) {
	t.Parallel()
	config := DefaultConfig()
	config.MaxRounds = 1
	engine, err := New(config, "", nil)
	require.NoError(t, err)

	src := []byte(`package main

func twice() {
a:
	if x() {
		goto a
	}
b:
	if y() {
		goto b
	}
}
`)
	res, err := engine.RewriteSource("twice.go", src)
	require.NoError(t, err)
	require.Len(t, res.Funcs, 1)
	assert.Equal(t, frontend.StatusFailed, res.Funcs[0].Status)
	assert.True(t, strings.Contains(res.Funcs[0].Detail, "fixpoint"), res.Funcs[0].Detail)
	assert.False(t, res.Changed())
}

func TestEngineCacheFollowsSettings(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	src := filepath.Join(dir, "a.go")
	writeFiles(t, dir, map[string]string{"a.go": withGoto})

	config := DefaultConfig()
	config.CacheDir = filepath.Join(dir, ".degoto-cache")
	engine, err := New(config, "", nil)
	require.NoError(t, err)
	first, err := engine.RewriteFile(src)
	require.NoError(t, err)
	require.Contains(t, string(first.Output), "goto_again")

	same, err := New(config, "", nil)
	require.NoError(t, err)
	res, err := same.RewriteFile(src)
	require.NoError(t, err)
	assert.True(t, res.Cached)

	renamed := config
	renamed.FlagPrefix = "jmp_"
	other, err := New(renamed, "", nil)
	require.NoError(t, err)
	res, err = other.RewriteFile(src)
	require.NoError(t, err)
	assert.False(t, res.Cached, "a different flag prefix must not reuse old output")
	assert.Contains(t, string(res.Output), "jmp_again")
	assert.NotContains(t, string(res.Output), "goto_again")

	again, err := New(renamed, "", nil)
	require.NoError(t, err)
	res, err = again.RewriteFile(src)
	require.NoError(t, err)
	assert.True(t, res.Cached)
	assert.Contains(t, string(res.Output), "jmp_again")
}
