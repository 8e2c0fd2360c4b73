package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/degoto/formatter"
	"github.com/gnoswap-labs/degoto/internal/frontend"
	"github.com/gnoswap-labs/degoto/transform"
)

// stdinPath reads the source from standard input and prints the result.
const stdinPath = "-"

var (
	write    bool
	showDiff bool
)

var runCmd = &cobra.Command{
	Use:   "run [paths...]",
	Short: "Rewrite every function that uses goto",
	Long: `Rewrites functions that use goto into equivalent code built from
loops, conditionals and boolean flags. Without --write nothing is changed
on disk. Use "-" to read a single file from standard input.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file or directory paths")
			os.Exit(1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		engine, err := newEngine(nil)
		if err != nil {
			logger.Fatal("Failed to initialize engine", zap.Error(err))
		}

		opts := runOptions{write: write, diff: showDiff}
		ok, err := runRewrite(ctx, logger, engine, args, opts, os.Stdin, os.Stdout, os.Stderr)
		if err != nil {
			logger.Error("Error processing files", zap.Error(err))
			os.Exit(1)
		}
		if !ok {
			os.Exit(1)
		}
	},
}

func init() {
	runCmd.Flags().BoolVarP(&write, "write", "w", false, "Write the result back to the source files")
	runCmd.Flags().BoolVarP(&showDiff, "diff", "d", false, "Print a unified diff of every change")
	runCmd.Flags().Bool("no-verify", false, "Skip the equivalence check")
	runCmd.Flags().Int("max-rounds", 0, "Override max_rounds from the config file")
	_ = settings.BindPFlag("no_verify", runCmd.Flags().Lookup("no-verify"))
	_ = settings.BindPFlag("max_rounds", runCmd.Flags().Lookup("max-rounds"))
}

type runOptions struct {
	write bool
	diff  bool
}

// runRewrite rewrites paths and prints one report per function to stderr.
// It returns false when some function could not be rewritten.
func runRewrite(
	ctx context.Context,
	logger *zap.Logger,
	engine *transform.Engine,
	paths []string,
	opts runOptions,
	stdin io.Reader,
	stdout, stderr io.Writer,
) (bool, error) {
	var results []transform.FileResult
	if len(paths) == 1 && paths[0] == stdinPath {
		src, err := io.ReadAll(stdin)
		if err != nil {
			return false, err
		}
		res, err := transform.ProcessSource(engine, "<stdin>", src)
		if err != nil {
			return false, err
		}
		if _, err := stdout.Write(res.Output); err != nil {
			return false, err
		}
		results = append(results, res)
	} else {
		var err error
		results, err = transform.ProcessFiles(ctx, logger, engine, paths, transform.ProcessFile)
		if err != nil {
			return false, err
		}
	}

	var rewritten, skipped, failed int
	for _, res := range results {
		if len(res.Funcs) > 0 {
			src := formatter.NewSourceCode(res.Source)
			fmt.Fprint(stderr, formatter.GenerateFormattedReport(res.Path, res.Funcs, src))
		}
		rewritten += res.Count(frontend.StatusRewritten)
		skipped += res.Count(frontend.StatusSkipped)
		failed += res.Count(frontend.StatusFailed)

		if !res.Changed() || res.Path == "<stdin>" {
			continue
		}
		if opts.diff {
			if err := printDiff(stdout, res); err != nil {
				return false, err
			}
		}
		if opts.write {
			if err := engine.Apply(res); err != nil {
				return false, err
			}
		}
	}
	fmt.Fprint(stderr, formatter.FormatTotals(len(results), rewritten, skipped, failed))
	return failed == 0, nil
}

func printDiff(w io.Writer, res transform.FileResult) error {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(res.Source)),
		B:        difflib.SplitLines(string(res.Output)),
		FromFile: res.Path,
		ToFile:   res.Path,
		Context:  3,
	})
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}
