package frontend

import (
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"

	"github.com/gnoswap-labs/degoto/internal/ir"
)

// doWhileVar is the first-iteration variable of a raised do-while loop.
const doWhileVar = "first"

type raiser struct {
	taken map[string]struct{}
	// used holds loop labels that some break or continue names; Go rejects
	// labels that are never used.
	used map[string]struct{}
}

// RaiseBlock converts a statement tree back into a Go block. The decls are
// declared first, as zero-valued vars.
//
// Go has no do-while, so one is written as
//
//	for first := true; first || cond; first = false { ... }
//
// which keeps continue meaning "test the condition".
func RaiseBlock(b *ir.Block, decls []ir.Decl) *ast.BlockStmt {
	r := &raiser{taken: ir.Names(b), used: branchTargets(b)}
	for _, d := range decls {
		r.taken[d.Name] = struct{}{}
	}

	out := &ast.BlockStmt{}
	for _, d := range decls {
		out.List = append(out.List, varDecl(d))
	}
	out.List = append(out.List, r.stmts(b.Stmts)...)
	return out
}

func branchTargets(b *ir.Block) map[string]struct{} {
	used := make(map[string]struct{})
	ir.Inspect(b, func(s ir.Stmt) bool {
		switch s := s.(type) {
		case *ir.Break:
			if s.Label != "" {
				used[s.Label] = struct{}{}
			}
		case *ir.Continue:
			if s.Label != "" {
				used[s.Label] = struct{}{}
			}
		}
		return true
	})
	return used
}

func varDecl(d ir.Decl) ast.Stmt {
	spec := &ast.ValueSpec{
		Names: []*ast.Ident{ast.NewIdent(d.Name)},
		Type:  ast.NewIdent(d.Type),
	}
	if d.Init != nil && !isZero(d.Init) {
		spec.Values = []ast.Expr{raiseExpr(d.Init)}
	}
	return &ast.DeclStmt{Decl: &ast.GenDecl{Tok: token.VAR, Specs: []ast.Spec{spec}}}
}

func isZero(e ir.Expr) bool {
	switch e := e.(type) {
	case ir.BoolLit:
		return !e.Val
	case ir.IntLit:
		return e.Val == 0
	}
	return false
}

func (r *raiser) block(b *ir.Block) *ast.BlockStmt {
	if b == nil {
		return &ast.BlockStmt{}
	}
	return &ast.BlockStmt{List: r.stmts(b.Stmts)}
}

func (r *raiser) stmts(list []ir.Stmt) []ast.Stmt {
	var out []ast.Stmt
	for _, s := range list {
		out = append(out, r.stmt(s))
	}
	return out
}

func (r *raiser) labeled(label string, s ast.Stmt) ast.Stmt {
	if _, ok := r.used[label]; !ok || label == "" {
		return s
	}
	return &ast.LabeledStmt{Label: ast.NewIdent(label), Stmt: s}
}

func (r *raiser) stmt(s ir.Stmt) ast.Stmt {
	switch s := s.(type) {
	case *ir.Block:
		return r.block(s)

	case *ir.If:
		out := &ast.IfStmt{Cond: raiseExpr(s.Cond), Body: r.block(s.Then)}
		if s.Else != nil {
			if len(s.Else.Stmts) == 1 {
				if elif, ok := s.Else.Stmts[0].(*ir.If); ok {
					out.Else = r.stmt(elif)
					return out
				}
			}
			out.Else = r.block(s.Else)
		}
		return out

	case *ir.While:
		out := &ast.ForStmt{Body: r.block(s.Body)}
		if !ir.IsTrue(s.Cond) {
			out.Cond = raiseExpr(s.Cond)
		}
		return r.labeled(s.Label, out)

	case *ir.For:
		out := &ast.ForStmt{Body: r.block(s.Body)}
		if s.Init != nil {
			out.Init = r.stmt(s.Init)
		}
		if s.Cond != nil && !ir.IsTrue(s.Cond) {
			out.Cond = raiseExpr(s.Cond)
		}
		if s.Post != nil {
			out.Post = r.stmt(s.Post)
		}
		return r.labeled(s.Label, out)

	case *ir.DoWhile:
		return r.labeled(s.Label, r.doWhile(s))

	case *ir.Switch:
		out := &ast.SwitchStmt{Body: &ast.BlockStmt{}}
		if s.Tag != nil {
			out.Tag = raiseExpr(s.Tag)
		}
		for _, c := range s.Cases {
			cc := &ast.CaseClause{Body: r.stmts(c.Body.Stmts)}
			for _, e := range c.Exprs {
				cc.List = append(cc.List, raiseExpr(e))
			}
			out.Body.List = append(out.Body.List, cc)
		}
		return r.labeled(s.Label, out)

	case *ir.Label:
		return &ast.LabeledStmt{Label: ast.NewIdent(s.Name), Stmt: &ast.EmptyStmt{Implicit: true}}

	case *ir.Goto:
		return &ast.BranchStmt{Tok: token.GOTO, Label: ast.NewIdent(s.Label)}

	case *ir.Break:
		return branch(token.BREAK, s.Label)

	case *ir.Continue:
		return branch(token.CONTINUE, s.Label)

	case *ir.Action:
		return &ast.ExprStmt{X: raiseExpr(s.X)}

	case *ir.Assign:
		tok := token.ASSIGN
		if s.Define {
			tok = token.DEFINE
		}
		return &ast.AssignStmt{
			Lhs: []ast.Expr{ast.NewIdent(s.Name)},
			Tok: tok,
			Rhs: []ast.Expr{raiseExpr(s.Value)},
		}

	case *ir.IncDec:
		tok := token.INC
		if s.Dec {
			tok = token.DEC
		}
		return &ast.IncDecStmt{X: ast.NewIdent(s.Name), Tok: tok}

	case *ir.Return:
		out := &ast.ReturnStmt{}
		for _, e := range s.Results {
			out.Results = append(out.Results, raiseExpr(e))
		}
		return out

	case *ir.Opaque:
		if st, ok := s.Payload.(ast.Stmt); ok {
			return st
		}
		return parseStmt(s.Text)
	}
	return &ast.EmptyStmt{}
}

func (r *raiser) doWhile(s *ir.DoWhile) ast.Stmt {
	body := r.block(s.Body)
	if ir.IsTrue(s.Cond) {
		return &ast.ForStmt{Body: body}
	}
	first := r.fresh(doWhileVar)
	return &ast.ForStmt{
		Init: &ast.AssignStmt{
			Lhs: []ast.Expr{ast.NewIdent(first)},
			Tok: token.DEFINE,
			Rhs: []ast.Expr{ast.NewIdent("true")},
		},
		Cond: &ast.BinaryExpr{X: ast.NewIdent(first), Op: token.LOR, Y: paren(raiseExpr(s.Cond), token.LOR, true)},
		Post: &ast.AssignStmt{
			Lhs: []ast.Expr{ast.NewIdent(first)},
			Tok: token.ASSIGN,
			Rhs: []ast.Expr{ast.NewIdent("false")},
		},
		Body: body,
	}
}

// fresh returns base, or base with a numeric suffix when base is in use.
// Nested loops may share a name since each shadows the one outside.
func (r *raiser) fresh(base string) string {
	name := base
	for i := 2; ; i++ {
		if _, ok := r.taken[name]; !ok {
			return name
		}
		name = base + "_" + strconv.Itoa(i)
	}
}

func branch(tok token.Token, label string) ast.Stmt {
	out := &ast.BranchStmt{Tok: tok}
	if label != "" {
		out.Label = ast.NewIdent(label)
	}
	return out
}

var goBinaryOps = map[ir.BinaryOp]token.Token{
	ir.OpAdd: token.ADD,
	ir.OpSub: token.SUB,
	ir.OpMul: token.MUL,
	ir.OpDiv: token.QUO,
	ir.OpMod: token.REM,
	ir.OpEq:  token.EQL,
	ir.OpNeq: token.NEQ,
	ir.OpLt:  token.LSS,
	ir.OpLte: token.LEQ,
	ir.OpGt:  token.GTR,
	ir.OpGte: token.GEQ,
	ir.OpAnd: token.LAND,
	ir.OpOr:  token.LOR,
}

func raiseExpr(e ir.Expr) ast.Expr {
	switch e := e.(type) {
	case ir.Var:
		return ast.NewIdent(e.Name)
	case ir.BoolLit:
		return ast.NewIdent(strconv.FormatBool(e.Val))
	case ir.IntLit:
		if e.Val < 0 {
			return &ast.UnaryExpr{Op: token.SUB, X: intLit(-e.Val)}
		}
		return intLit(e.Val)
	case ir.Call:
		out := &ast.CallExpr{Fun: funcExpr(e.Func)}
		for _, a := range e.Args {
			out.Args = append(out.Args, raiseExpr(a))
		}
		return out
	case ir.Unary:
		op := token.NOT
		if e.Op == ir.OpNeg {
			op = token.SUB
		}
		x := raiseExpr(e.X)
		if _, ok := e.X.(ir.Binary); ok {
			x = &ast.ParenExpr{X: x}
		}
		return &ast.UnaryExpr{Op: op, X: x}
	case ir.Binary:
		op := goBinaryOps[e.Op]
		return &ast.BinaryExpr{
			X:  paren(raiseExpr(e.Left), op, false),
			Op: op,
			Y:  paren(raiseExpr(e.Right), op, true),
		}
	case ir.RawExpr:
		if x, ok := e.Payload.(ast.Expr); ok {
			return x
		}
		if x, err := parser.ParseExpr(e.Text); err == nil {
			return x
		}
		return ast.NewIdent(e.Text)
	}
	return ast.NewIdent("nil")
}

// paren wraps operand x of a binary op when printing it bare would change
// how it parses.
func paren(x ast.Expr, op token.Token, right bool) ast.Expr {
	b, ok := x.(*ast.BinaryExpr)
	if !ok {
		return x
	}
	p, q := b.Op.Precedence(), op.Precedence()
	if p < q || (right && p == q) {
		return &ast.ParenExpr{X: x}
	}
	return x
}

func intLit(v int64) *ast.BasicLit {
	return &ast.BasicLit{Kind: token.INT, Value: strconv.FormatInt(v, 10)}
}

func funcExpr(name string) ast.Expr {
	parts := strings.Split(name, ".")
	var x ast.Expr = ast.NewIdent(parts[0])
	for _, p := range parts[1:] {
		x = &ast.SelectorExpr{X: x, Sel: ast.NewIdent(p)}
	}
	return x
}

func parseStmt(text string) ast.Stmt {
	f, err := parser.ParseFile(token.NewFileSet(), "", "package p\nfunc _() {\n"+text+"\n}\n", 0)
	if err != nil {
		return &ast.EmptyStmt{}
	}
	body := f.Decls[0].(*ast.FuncDecl).Body
	if len(body.List) != 1 {
		return body
	}
	return body.List[0]
}
