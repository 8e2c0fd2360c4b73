package cmd

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/degoto/internal/dump"
	"github.com/gnoswap-labs/degoto/internal/eliminate"
	"github.com/gnoswap-labs/degoto/internal/frontend"
	"github.com/gnoswap-labs/degoto/transform"
)

var dumpFunc string

var dumpCmd = &cobra.Command{
	Use:   "dump [files...]",
	Short: "Print the statement tree of functions before and after rewriting",
	Long: `Prints the statement tree degoto works on for every function that
uses goto, followed by the tree after all jumps have been eliminated.
Example) degoto dump --func retry main.go`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 {
			fmt.Println("error: Please provide file paths")
			os.Exit(1)
		}
		config, err := transform.LoadConfig(cfgFile)
		if err != nil {
			logger.Fatal("Failed to load config", zap.Error(err))
		}
		applyOverrides(&config, settings)
		opts := eliminate.Options{MaxRounds: config.MaxRounds, FlagPrefix: config.FlagPrefix, Logger: logger}
		if found := runDump(logger, os.Stdout, args, dumpFunc, opts); !found && dumpFunc != "" {
			fmt.Printf("Function not found: %s\n", dumpFunc)
		}
	},
}

func init() {
	dumpCmd.Flags().StringVar(&dumpFunc, "func", "", "Only dump the named function")
}

// runDump reports whether any function was dumped.
func runDump(logger *zap.Logger, w io.Writer, paths []string, funcName string, opts eliminate.Options) bool {
	found := false
	for _, path := range paths {
		fset := token.NewFileSet()
		f, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			logger.Error("Failed to parse file", zap.String("path", path), zap.Error(err))
			continue
		}
		for _, decl := range f.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Body == nil {
				continue
			}
			if funcName != "" && fn.Name.Name != funcName {
				continue
			}
			if funcName == "" && !hasGoto(fn.Body) {
				continue
			}
			found = true
			dumpFunction(logger, w, fset, fn, opts)
		}
	}
	return found
}

func dumpFunction(logger *zap.Logger, w io.Writer, fset *token.FileSet, fn *ast.FuncDecl, opts eliminate.Options) {
	pos := fset.Position(fn.Pos())
	fmt.Fprintf(w, "func %s (%s)\n", fn.Name.Name, pos)

	body, err := frontend.LowerFunc(fset, fn)
	if err != nil {
		logger.Error("Failed to lower function", zap.String("func", fn.Name.Name), zap.Error(err))
		fmt.Fprintf(w, "error: %v\n\n", err)
		return
	}
	fmt.Fprintln(w, "lowered:")
	if err := dump.Fprint(w, body, nil); err != nil {
		logger.Error("Failed to print tree", zap.Error(err))
		return
	}

	res, err := eliminate.Eliminate(body, opts)
	if err != nil {
		fmt.Fprintf(w, "error: %v\n\n", err)
		return
	}
	fmt.Fprintln(w, "eliminated:")
	if err := dump.Fprint(w, res.Body, res.Decls); err != nil {
		logger.Error("Failed to print tree", zap.Error(err))
		return
	}
	fmt.Fprintln(w)
}

func hasGoto(n ast.Node) bool {
	found := false
	ast.Inspect(n, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.BranchStmt:
			if n.Tok == token.GOTO {
				found = true
			}
		}
		return !found
	})
	return found
}
