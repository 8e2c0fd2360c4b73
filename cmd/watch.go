package cmd

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/degoto/formatter"
	"github.com/gnoswap-labs/degoto/transform"
)

// settleDelay lets editors finish writing before a file is read.
const settleDelay = 100 * time.Millisecond

var watchWrite bool

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Rewrite Go files again whenever they change",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			args = []string{"."}
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		engine, err := newEngine(nil)
		if err != nil {
			logger.Fatal("Failed to initialize engine", zap.Error(err))
		}
		if err := runWatch(ctx, logger, engine, args, watchWrite, os.Stdout); err != nil {
			logger.Error("Watch stopped", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	watchCmd.Flags().BoolVarP(&watchWrite, "write", "w", false, "Write the result back to changed files")
}

// runWatch blocks until ctx is done, reporting on every Go file written
// under dirs.
func runWatch(ctx context.Context, logger *zap.Logger, engine *transform.Engine, dirs []string, write bool, w io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				return nil
			}
			name := d.Name()
			if path != dir && (strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		})
		if err != nil {
			return fmt.Errorf("error adding directory to watcher: %w", err)
		}
	}
	logger.Info("watching", zap.Strings("dirs", dirs))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".go") {
				continue
			}
			time.Sleep(settleDelay)
			handleChange(logger, engine, event.Name, write, w)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func handleChange(logger *zap.Logger, engine *transform.Engine, path string, write bool, w io.Writer) {
	res, err := engine.RewriteFile(path)
	if err != nil {
		logger.Error("Error processing file", zap.String("file", path), zap.Error(err))
		return
	}
	if len(res.Funcs) == 0 {
		return
	}
	fmt.Fprint(w, formatter.GenerateFormattedReport(path, res.Funcs, formatter.NewSourceCode(res.Source)))
	if write && res.Changed() {
		if err := engine.Apply(res); err != nil {
			logger.Error("Error writing file", zap.String("file", path), zap.Error(err))
		}
	}
}
