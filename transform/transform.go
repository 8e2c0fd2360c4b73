package transform

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnoswap-labs/degoto/internal/cache"
	"github.com/gnoswap-labs/degoto/internal/frontend"
)

// Rewriter turns Go files into goto-free Go files.
type Rewriter interface {
	RewriteFile(path string) (FileResult, error)
	RewriteSource(name string, src []byte) (FileResult, error)
}

// FileResult is the outcome for one file.
type FileResult struct {
	Path   string
	Source []byte
	Output []byte
	Funcs  []frontend.Summary
	Cached bool
}

// Changed reports whether rewriting altered the file.
func (r FileResult) Changed() bool {
	return !bytes.Equal(r.Source, r.Output)
}

// Count returns how many functions ended with status s.
func (r FileResult) Count(s frontend.Status) int {
	n := 0
	for _, fn := range r.Funcs {
		if fn.Status == s {
			n++
		}
	}
	return n
}

// Engine rewrites files according to a Config.
type Engine struct {
	config   Config
	frontend frontend.Config
	cache    *cache.Cache
	logger   *zap.Logger
}

// New creates an engine. With a cache_dir set, results of unchanged files
// are reused as long as the effective settings match those of the run that
// stored them; configPath, if given, invalidates them when it changes.
func New(config Config, configPath string, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		config:   config,
		frontend: config.frontendConfig(logger),
		logger:   logger,
	}
	if config.CacheDir != "" {
		c, err := cache.New(config.CacheDir)
		if err != nil {
			return nil, err
		}
		fingerprint, err := config.fingerprint()
		if err != nil {
			return nil, err
		}
		c.SetFingerprint(fingerprint)
		if configPath != "" {
			if _, err := os.Stat(configPath); err == nil {
				if err := c.SetDependencies(configPath); err != nil {
					return nil, err
				}
			}
		}
		e.cache = c
	}
	return e, nil
}

// Config returns the engine's settings.
func (e *Engine) Config() Config {
	return e.config
}

// RewriteFile rewrites the file at path without touching it on disk.
func (e *Engine) RewriteFile(path string) (FileResult, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return FileResult{}, fmt.Errorf("read %s: %w", path, err)
	}
	if e.cache != nil {
		if entry, ok := e.cache.Get(path); ok {
			e.logger.Debug("cache hit", zap.String("file", path))
			return FileResult{Path: path, Source: src, Output: entry.Output, Funcs: entry.Funcs, Cached: true}, nil
		}
	}

	res, err := e.RewriteSource(path, src)
	if err != nil {
		return res, err
	}
	if e.cache != nil {
		if err := e.cache.Set(path, res.Output, res.Funcs); err != nil {
			e.logger.Warn("cache update failed", zap.String("file", path), zap.Error(err))
		}
	}
	return res, nil
}

// RewriteSource rewrites src, reporting it under name.
func (e *Engine) RewriteSource(name string, src []byte) (FileResult, error) {
	out, reports, err := frontend.RewriteSource(name, src, e.frontend)
	if err != nil {
		return FileResult{Path: name, Source: src}, err
	}
	res := FileResult{Path: name, Source: src, Output: out}
	for _, r := range reports {
		res.Funcs = append(res.Funcs, r.Summary())
		switch {
		case r.Err != nil:
			e.logger.Warn("function left unchanged",
				zap.String("file", name), zap.String("func", r.Name), zap.Error(r.Err))
		case r.Rewritten():
			e.logger.Debug("function rewritten",
				zap.String("file", name), zap.String("func", r.Name),
				zap.Int("gotos", r.Gotos), zap.Int("rounds", r.Stats.Rounds))
		}
	}
	return res, nil
}

// Apply writes a changed result back to its file.
func (e *Engine) Apply(res FileResult) error {
	if !res.Changed() {
		return nil
	}
	info, err := os.Stat(res.Path)
	if err != nil {
		return err
	}
	if err := os.WriteFile(res.Path, res.Output, info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", res.Path, err)
	}
	if e.cache != nil {
		// The file now holds the output, which has no jumps left.
		if err := e.cache.Set(res.Path, res.Output, nil); err != nil {
			e.logger.Warn("cache update failed", zap.String("file", res.Path), zap.Error(err))
		}
	}
	return nil
}

// ProcessFile rewrites a single file.
func ProcessFile(r Rewriter, path string) (FileResult, error) {
	return r.RewriteFile(path)
}

// ProcessSource rewrites source read from elsewhere, such as stdin.
func ProcessSource(r Rewriter, name string, src []byte) (FileResult, error) {
	return r.RewriteSource(name, src)
}

// ProcessFiles runs ProcessPath over each path in turn.
func ProcessFiles(
	ctx context.Context,
	logger *zap.Logger,
	r Rewriter,
	paths []string,
	processor func(Rewriter, string) (FileResult, error),
) ([]FileResult, error) {
	var all []FileResult
	for _, path := range paths {
		results, err := ProcessPath(ctx, logger, r, path, processor)
		all = append(all, results...)
		if err != nil {
			if logger != nil {
				logger.Error("Error processing path", zap.String("path", path), zap.Error(err))
			}
			return all, err
		}
	}
	return all, nil
}

// ProcessPath processes one file, or every Go file under a directory with
// up to runtime.NumCPU files in flight. Results come back sorted by path.
// A directory run keeps going past failing files and returns the first
// error alongside the results of the others.
func ProcessPath(
	ctx context.Context,
	logger *zap.Logger,
	r Rewriter,
	path string,
	processor func(Rewriter, string) (FileResult, error),
) ([]FileResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing %s: %w", path, err)
	}

	if !info.IsDir() {
		if !hasDesiredExtension(path) {
			return []FileResult{}, nil
		}
		res, err := processor(r, path)
		if err != nil {
			return []FileResult{}, err
		}
		return []FileResult{res}, nil
	}

	files, err := collectFiles(path)
	if err != nil {
		return nil, err
	}

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(path),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	var (
		mu       sync.Mutex
		g        errgroup.Group
		results  = []FileResult{}
		firstErr error
	)
	g.SetLimit(runtime.NumCPU())

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			res, err := processor(r, file)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if logger != nil {
					logger.Error("Error processing file", zap.String("file", file), zap.Error(err))
				}
				if firstErr == nil {
					firstErr = err
				}
			} else {
				results = append(results, res)
			}
			_ = bar.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	_ = bar.Finish()

	slices.SortFunc(results, func(a, b FileResult) int {
		return strings.Compare(a.Path, b.Path)
	})
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, firstErr
}

// collectFiles lists the Go files under root, skipping hidden, vendor and
// testdata directories.
func collectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if p != root && (strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if hasDesiredExtension(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, nil
}

var desiredExtensions = map[string]bool{
	".go": true,
}

func hasDesiredExtension(path string) bool {
	return desiredExtensions[filepath.Ext(path)]
}
