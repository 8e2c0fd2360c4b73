package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/degoto/internal/frontend"
	"github.com/gnoswap-labs/degoto/transform"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [paths...]",
	Short: "Check that rewriting preserves behavior without changing any file",
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file or directory paths")
			os.Exit(1)
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		engine, err := newEngine(func(c *transform.Config) {
			c.Verify = true
			c.CacheDir = ""
		})
		if err != nil {
			logger.Fatal("Failed to initialize engine", zap.Error(err))
		}

		ok, err := runVerify(ctx, logger, engine, args, os.Stdout)
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
	verifyCmd.Flags().Int("depth", 0, "Override verify_depth from the config file")
	_ = settings.BindPFlag("verify_depth", verifyCmd.Flags().Lookup("depth"))
}

// runVerify prints one verdict line per function with jumps and reports
// whether every rewritten function was proven equivalent.
func runVerify(ctx context.Context, logger *zap.Logger, r transform.Rewriter, paths []string, w io.Writer) (bool, error) {
	results, err := transform.ProcessFiles(ctx, logger, r, paths, transform.ProcessFile)
	if err != nil {
		return false, err
	}
	ok := true
	for _, res := range results {
		for _, fn := range res.Funcs {
			var verdict string
			switch fn.Status {
			case frontend.StatusSkipped:
				verdict = "skipped"
			case frontend.StatusFailed:
				verdict = "failed: " + fn.Detail
				ok = false
			default:
				verdict = fn.Verdict
				if !strings.HasPrefix(verdict, "Equivalent") {
					ok = false
				}
			}
			fmt.Fprintf(w, "%s:%d:%d: %s: %s\n", res.Path, fn.Line, fn.Column, fn.Name, verdict)
		}
	}
	return ok, nil
}
