package frontend

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"slices"
	"strings"

	"github.com/fzipp/gocyclo"
	"golang.org/x/tools/go/ast/astutil"

	"github.com/gnoswap-labs/degoto/internal/directive"
	"github.com/gnoswap-labs/degoto/internal/eliminate"
	"github.com/gnoswap-labs/degoto/internal/interp"
	"github.com/gnoswap-labs/degoto/internal/ir"
)

// ErrNotEquivalent is returned when replaying decision scripts tells the
// rewritten function apart from the original.
var ErrNotEquivalent = errors.New("rewritten function is not equivalent")

// Config controls how a file is rewritten.
type Config struct {
	Options eliminate.Options
	// Verify replays every decision script of Verifier.Depth against both
	// versions of a function before accepting the rewrite.
	Verify      bool
	Verifier    interp.VerifyConfig
	IgnoreFuncs []string
}

// FuncReport describes what happened to one function with jumps.
type FuncReport struct {
	Name    string
	Pos     token.Position
	Gotos   int
	Skipped bool
	Reason  string // why the function was skipped
	Stats   eliminate.Stats

	ComplexityBefore int
	ComplexityAfter  int

	// Verification is nil unless Config.Verify is set.
	Verification *interp.VerificationReport
	Err          error
}

// Rewritten reports whether the function body was replaced.
func (r FuncReport) Rewritten() bool {
	return !r.Skipped && r.Err == nil
}

// RewriteSource rewrites every function of src that uses goto. A function
// that fails is left as it is and the failure is recorded in its report;
// only a parse error fails the whole file. When nothing is rewritten the
// output is src itself.
func RewriteSource(filename string, src []byte, cfg Config) ([]byte, []FuncReport, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	ignores := directive.ParseComments(f, fset)
	before := complexity(f, fset)
	bodies := make(map[*ast.FuncDecl]*ast.BlockStmt)
	var reports []FuncReport

	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		gotos := countGotos(fn.Body)
		if gotos == 0 {
			continue
		}
		rep := FuncReport{
			Name:             funcName(fn),
			Pos:              fset.Position(fn.Pos()),
			Gotos:            gotos,
			ComplexityBefore: before[fset.Position(fn.Pos()).Offset],
		}
		if ignored, reason := ignores.IsIgnored(rep.Pos); ignored {
			rep.Skipped = true
			rep.Reason = directive.Prefix
			if reason != "" {
				rep.Reason += ": " + reason
			}
			reports = append(reports, rep)
			continue
		}
		if slices.Contains(cfg.IgnoreFuncs, fn.Name.Name) {
			rep.Skipped = true
			rep.Reason = "listed in ignore_funcs"
			reports = append(reports, rep)
			continue
		}

		body, err := rewriteFunc(fset, fn, cfg, &rep)
		if err != nil {
			rep.Err = err
		} else {
			bodies[fn] = body
		}
		reports = append(reports, rep)
	}

	if len(bodies) == 0 {
		return src, reports, nil
	}

	for fn := range bodies {
		dropComments(f, fn.Body)
	}
	astutil.Apply(f, func(c *astutil.Cursor) bool {
		fn, ok := c.Node().(*ast.FuncDecl)
		if !ok {
			_, isFile := c.Node().(*ast.File)
			return isFile
		}
		if body, ok := bodies[fn]; ok {
			body.Lbrace, body.Rbrace = fn.Body.Lbrace, closingBrace(fset, fn.Body)
			replaced := *fn
			replaced.Body = body
			c.Replace(&replaced)
		}
		return false
	}, nil)

	after := complexity(f, fset)
	for i := range reports {
		if reports[i].Rewritten() {
			reports[i].ComplexityAfter = after[reports[i].Pos.Offset]
		} else {
			reports[i].ComplexityAfter = reports[i].ComplexityBefore
		}
	}

	var buf bytes.Buffer
	if err := format.Node(&buf, fset, f); err != nil {
		return nil, reports, fmt.Errorf("format %s: %w", filename, err)
	}
	return buf.Bytes(), reports, nil
}

func rewriteFunc(fset *token.FileSet, fn *ast.FuncDecl, cfg Config, rep *FuncReport) (*ast.BlockStmt, error) {
	body, err := LowerFunc(fset, fn)
	if err != nil {
		return nil, err
	}
	res, err := eliminate.Eliminate(body, cfg.Options)
	if err != nil {
		return nil, err
	}
	rep.Stats = res.Stats

	if cfg.Verify {
		seed := inputs(fn)
		report := interp.NewVerifier(cfg.Verifier).CheckEquivalence(
			withInputs(seed, body), withInputs(seed, res.Body), res.Decls)
		rep.Verification = &report
		if report.Result == interp.NotEquivalent {
			return nil, fmt.Errorf("%w: %s under script %v: %s",
				ErrNotEquivalent, report.Reason, report.Script, report.Detail)
		}
	}
	raised := RaiseBlock(res.Body, res.Decls)
	if lost := lostNames(fn, raised); len(lost) > 0 {
		return nil, fmt.Errorf("%s would be used outside the scope of its declaration: %w",
			strings.Join(lost, ", "), ErrUnsupported)
	}
	return raised, nil
}

// inputs assigns every receiver, parameter and named result a scripted
// value, so replays can read them.
func inputs(fn *ast.FuncDecl) []ir.Stmt {
	var out []ir.Stmt
	for _, fl := range []*ast.FieldList{fn.Recv, fn.Type.Params, fn.Type.Results} {
		if fl == nil {
			continue
		}
		for _, field := range fl.List {
			for _, id := range field.Names {
				if id.Name == "_" {
					continue
				}
				out = append(out, &ir.Assign{Name: id.Name, Value: ir.Call{Func: id.Name}})
			}
		}
	}
	return out
}

func withInputs(seed []ir.Stmt, b *ir.Block) *ir.Block {
	if len(seed) == 0 {
		return b
	}
	return &ir.Block{Stmts: append(slices.Clone(seed), b.Stmts...), At: b.At}
}

// closingBrace positions the closing brace of a replacement body on the
// line after the opening one, so the printer does not pad a shorter body
// with blank lines up to the old closing line.
func closingBrace(fset *token.FileSet, body *ast.BlockStmt) token.Pos {
	tf := fset.File(body.Lbrace)
	line := tf.Line(body.Lbrace)
	if tf.Line(body.Rbrace) <= line+1 {
		return body.Rbrace
	}
	return tf.LineStart(line + 1)
}

func countGotos(n ast.Node) int {
	count := 0
	ast.Inspect(n, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.BranchStmt:
			if n.Tok == token.GOTO {
				count++
			}
		}
		return true
	})
	return count
}

// dropComments removes the comments inside body; they would otherwise be
// printed at their old offsets among the new statements.
func dropComments(f *ast.File, body *ast.BlockStmt) {
	f.Comments = slices.DeleteFunc(f.Comments, func(cg *ast.CommentGroup) bool {
		return cg.Pos() > body.Lbrace && cg.End() < body.Rbrace
	})
}

// complexity maps the offset of each function to its cyclomatic complexity.
func complexity(f *ast.File, fset *token.FileSet) map[int]int {
	out := make(map[int]int)
	for _, s := range gocyclo.AnalyzeASTFile(f, fset, nil) {
		out[s.Pos.Offset] = s.Complexity
	}
	return out
}

func funcName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return fn.Name.Name
	}
	return recvString(fn.Recv.List[0].Type) + "." + fn.Name.Name
}

func recvString(e ast.Expr) string {
	switch e := e.(type) {
	case *ast.Ident:
		return e.Name
	case *ast.StarExpr:
		return "(*" + recvString(e.X) + ")"
	case *ast.IndexExpr:
		return recvString(e.X)
	case *ast.IndexListExpr:
		return recvString(e.X)
	}
	return "?"
}

// Status is the outcome of one function.
type Status int

const (
	StatusRewritten Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRewritten:
		return "rewritten"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	}
	return "?"
}

// Summary is the plain-data form of a FuncReport, suitable for caching
// and printing.
type Summary struct {
	Name    string
	Line    int
	Column  int
	Gotos   int
	Status  Status
	Detail  string
	Rounds  int
	Flags   int
	Temps   int
	Moves   int
	Verdict string // verification result, empty when not verified

	ComplexityBefore int
	ComplexityAfter  int
}

// Summary flattens r.
func (r FuncReport) Summary() Summary {
	s := Summary{
		Name:             r.Name,
		Line:             r.Pos.Line,
		Column:           r.Pos.Column,
		Gotos:            r.Gotos,
		Rounds:           r.Stats.Rounds,
		Flags:            r.Stats.Flags,
		Temps:            r.Stats.Temps,
		Moves:            r.Stats.Moves,
		ComplexityBefore: r.ComplexityBefore,
		ComplexityAfter:  r.ComplexityAfter,
	}
	switch {
	case r.Skipped:
		s.Status = StatusSkipped
		s.Detail = r.Reason
	case r.Err != nil:
		s.Status = StatusFailed
		s.Detail = r.Err.Error()
	}
	if r.Verification != nil {
		s.Verdict = r.Verification.Result.String()
		if r.Verification.Reason == interp.ReasonBounded || r.Verification.Result == interp.Unknown {
			s.Verdict += " (" + r.Verification.Reason.String() + ")"
		}
	}
	return s
}
