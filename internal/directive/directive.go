package directive

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"
)

// Prefix starts an ignore directive. Anything after a space is a free-form
// reason.
const Prefix = "//degoto:ignore"

// Manager records which parts of a file are excluded from rewriting.
type Manager struct {
	// scopes maps filename to ignored ranges.
	scopes map[string][]scope
}

type scope struct {
	start  token.Position
	end    token.Position
	reason string
}

// ParseComments collects the ignore directives of f.
//
// A directive above the package clause covers the whole file. One in the
// doc comment of a function, or on the line right above it, covers that
// function. Any other directive is ignored, since a function is rewritten
// as a whole or not at all.
func ParseComments(f *ast.File, fset *token.FileSet) *Manager {
	m := &Manager{scopes: make(map[string][]scope)}
	packageLine := fset.Position(f.Package).Line

	for _, cg := range f.Comments {
		for _, c := range cg.List {
			sc, err := parseComment(c, f, fset, packageLine)
			if err != nil {
				continue
			}
			m.scopes[sc.start.Filename] = append(m.scopes[sc.start.Filename], sc)
		}
	}
	return m
}

func parseComment(c *ast.Comment, f *ast.File, fset *token.FileSet, packageLine int) (scope, error) {
	var sc scope
	if !strings.HasPrefix(c.Text, Prefix) {
		return sc, fmt.Errorf("not a directive")
	}
	rest := c.Text[len(Prefix):]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return sc, fmt.Errorf("invalid directive %q", c.Text)
	}
	sc.reason = strings.TrimSpace(rest)
	pos := fset.Position(c.Slash)

	if pos.Line < packageLine {
		sc.start = fset.Position(f.Pos())
		sc.end = fset.Position(f.End())
		return sc, nil
	}

	if fn := funcAfterLine(fset, f, pos.Line); fn != nil {
		inDoc := fn.Doc != nil && c.Pos() >= fn.Doc.Pos() && c.End() <= fn.Doc.End()
		if inDoc || fset.Position(fn.Pos()).Line == pos.Line+1 {
			sc.start = pos
			sc.end = fset.Position(fn.End())
			return sc, nil
		}
	}
	return sc, fmt.Errorf("directive at %s applies to nothing", pos)
}

// funcAfterLine returns the first function declared on or after line.
func funcAfterLine(fset *token.FileSet, f *ast.File, line int) *ast.FuncDecl {
	for _, decl := range f.Decls {
		if fn, ok := decl.(*ast.FuncDecl); ok {
			if fset.Position(fn.Pos()).Line >= line {
				return fn
			}
		}
	}
	return nil
}

// IsIgnored reports whether pos lies in an ignored range, and the reason
// given by the directive.
func (m *Manager) IsIgnored(pos token.Position) (bool, string) {
	for _, sc := range m.scopes[pos.Filename] {
		if pos.Line >= sc.start.Line && pos.Line <= sc.end.Line {
			return true, sc.reason
		}
	}
	return false, ""
}
