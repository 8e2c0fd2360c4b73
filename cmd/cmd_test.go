package cmd

import (
	"bytes"
	"context"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/degoto/internal/eliminate"
	"github.com/gnoswap-labs/degoto/transform"
)

func init() {
	color.NoColor = true
}

const retrySource = `package main

func retry() {
again:
	step()
	if failed() {
		goto again
	}
}
`

const selectSource = `package main

func drain(c chan int) {
loop:
	select {
	case <-c:
		goto loop
	default:
	}
}
`

func createTempFileWithContent(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.go")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestEngine(t *testing.T) *transform.Engine {
	t.Helper()
	engine, err := transform.New(transform.DefaultConfig(), "", zap.NewNop())
	require.NoError(t, err)
	return engine
}

func TestInitConfigurationFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ".degoto.yaml")

	written, err := initConfigurationFile(path)
	require.NoError(t, err)
	assert.Equal(t, path, written)

	config, err := transform.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, transform.DefaultConfig(), config)
}

func TestRunRewriteWrite(t *testing.T) {
	t.Parallel()
	path := createTempFileWithContent(t, retrySource)
	var stdout, stderr bytes.Buffer

	ok, err := runRewrite(context.Background(), zap.NewNop(), newTestEngine(t),
		[]string{path}, runOptions{write: true}, nil, &stdout, &stderr)
	require.NoError(t, err)
	assert.True(t, ok)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "goto again")
	assert.Contains(t, string(content), "for first := true; first || goto_again; first = false {")

	assert.Contains(t, stderr.String(), "rewritten: retry")
	assert.Contains(t, stderr.String(), "1 function rewritten, 0 skipped, 0 failed in 1 file")
	assert.Empty(t, stdout.String())
}

func TestRunRewriteDiff(t *testing.T) {
	t.Parallel()
	path := createTempFileWithContent(t, retrySource)
	var stdout, stderr bytes.Buffer

	ok, err := runRewrite(context.Background(), zap.NewNop(), newTestEngine(t),
		[]string{path}, runOptions{diff: true}, nil, &stdout, &stderr)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Contains(t, stdout.String(), "--- "+path)
	assert.Contains(t, stdout.String(), "-\t\tgoto again")
	assert.Contains(t, stdout.String(), "+\tfor first := true; first || goto_again; first = false {")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, retrySource, string(content), "diff mode leaves the file alone")
}

func TestRunRewriteStdin(t *testing.T) {
	t.Parallel()
	var stdout, stderr bytes.Buffer

	ok, err := runRewrite(context.Background(), zap.NewNop(), newTestEngine(t),
		[]string{stdinPath}, runOptions{write: true}, strings.NewReader(retrySource), &stdout, &stderr)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, stdout.String(), "func retry() {")
	assert.NotContains(t, stdout.String(), "goto again")
	assert.Contains(t, stderr.String(), "<stdin>:3:1")
}

func TestRunRewriteFailure(t *testing.T) {
	t.Parallel()
	path := createTempFileWithContent(t, selectSource)
	var stdout, stderr bytes.Buffer

	ok, err := runRewrite(context.Background(), zap.NewNop(), newTestEngine(t),
		[]string{path}, runOptions{write: true}, nil, &stdout, &stderr)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, stderr.String(), "error: drain")
	assert.Contains(t, stderr.String(), "0 functions rewritten, 0 skipped, 1 failed in 1 file")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, selectSource, string(content))
}

func TestRunVerify(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte(retrySource), 0o644))
	var out bytes.Buffer

	ok, err := runVerify(context.Background(), zap.NewNop(), newTestEngine(t), []string{dir}, &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), filepath.Join(dir, "a.go")+":3:1: retry: Equivalent")

	content, err := os.ReadFile(filepath.Join(dir, "a.go"))
	require.NoError(t, err)
	assert.Equal(t, retrySource, string(content))
}

func TestRunDump(t *testing.T) {
	t.Parallel()
	path := createTempFileWithContent(t, retrySource+`
func plain() {}
`)
	var out bytes.Buffer

	found := runDump(zap.NewNop(), &out, []string{path}, "", eliminate.Options{})
	assert.True(t, found)
	text := out.String()
	assert.Contains(t, text, "func retry")
	assert.Contains(t, text, "lowered:")
	assert.Contains(t, text, "eliminated:")
	assert.Contains(t, text, "bool goto_again = false")
	assert.NotContains(t, text, "func plain")

	out.Reset()
	assert.True(t, runDump(zap.NewNop(), &out, []string{path}, "plain", eliminate.Options{}))
	assert.Contains(t, out.String(), "func plain")

	out.Reset()
	assert.False(t, runDump(zap.NewNop(), &out, []string{path}, "missing", eliminate.Options{}))
	assert.Empty(t, out.String())
}

func TestHasGoto(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"plain", "x()", false},
		{"direct", "L: x(); goto L", true},
		{"closure only", "f := func() { L: goto L }; f()", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			src := "package p\nfunc f() {\n" + tt.body + "\n}\n"
			f, err := parser.ParseFile(token.NewFileSet(), "p.go", src, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, hasGoto(f))
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()
	l, err := newLogger(false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))

	l, err = newLogger(true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))
}

func TestApplyOverrides(t *testing.T) {
	t.Setenv("DEGOTO_FLAG_PREFIX", "jmp_")
	t.Setenv("DEGOTO_NO_VERIFY", "true")

	v := newSettings()
	v.Set("max_rounds", 7)

	config := transform.DefaultConfig()
	applyOverrides(&config, v)
	assert.Equal(t, 7, config.MaxRounds)
	assert.Equal(t, "jmp_", config.FlagPrefix)
	assert.False(t, config.Verify)
	assert.Equal(t, transform.DefaultConfig().VerifyDepth, config.VerifyDepth, "unset keys keep the file's value")
	assert.Empty(t, config.CacheDir)
}

func TestHandleChange(t *testing.T) {
	t.Parallel()
	path := createTempFileWithContent(t, retrySource)
	var out bytes.Buffer

	handleChange(zap.NewNop(), newTestEngine(t), path, true, &out)
	assert.Contains(t, out.String(), "rewritten: retry")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "goto again")

	out.Reset()
	handleChange(zap.NewNop(), newTestEngine(t), path, true, &out)
	assert.Empty(t, out.String(), "a rewritten file has nothing left to report")
}

func TestRunWatchStopsOnCancel(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runWatch(ctx, zap.NewNop(), newTestEngine(t), []string{dir}, false, &bytes.Buffer{})
	assert.NoError(t, err)

	err = runWatch(ctx, zap.NewNop(), newTestEngine(t), []string{filepath.Join(dir, "missing")}, false, &bytes.Buffer{})
	assert.Error(t, err)
}
