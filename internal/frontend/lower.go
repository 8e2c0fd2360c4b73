package frontend

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/printer"
	"go/token"
	"strconv"

	"github.com/gnoswap-labs/degoto/internal/ir"
)

// ErrUnsupported is returned when a statement the engine cannot model holds
// a jump or a jump target.
var ErrUnsupported = errors.New("unsupported construct")

type lowerer struct {
	fset *token.FileSet
}

// LowerFunc converts the body of fn into a statement tree.
//
// Statements the tree cannot express (range, select, type switches, defer,
// go, declarations, ...) become Opaque leaves carrying the original node,
// as long as no goto or label hides inside them.
func LowerFunc(fset *token.FileSet, fn *ast.FuncDecl) (*ir.Block, error) {
	if fn.Body == nil {
		return nil, fmt.Errorf("%s: function has no body", fn.Name.Name)
	}
	l := &lowerer{fset: fset}
	b, err := l.block(fn.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn.Name.Name, err)
	}
	return b, nil
}

func (l *lowerer) pos(p token.Pos) ir.Pos {
	if !p.IsValid() {
		return ir.Pos{}
	}
	position := l.fset.Position(p)
	return ir.Pos{File: position.Filename, Line: position.Line, Col: position.Column}
}

func (l *lowerer) block(b *ast.BlockStmt) (*ir.Block, error) {
	out := &ir.Block{At: l.pos(b.Lbrace)}
	if err := l.appendStmts(out, b.List); err != nil {
		return nil, err
	}
	return out, nil
}

func (l *lowerer) appendStmts(out *ir.Block, list []ast.Stmt) error {
	for _, s := range list {
		stmts, err := l.stmt(s)
		if err != nil {
			return err
		}
		out.Stmts = append(out.Stmts, stmts...)
	}
	return nil
}

// stmt lowers one Go statement. A labeled statement produces two: the
// marker and the statement itself.
func (l *lowerer) stmt(s ast.Stmt) ([]ir.Stmt, error) {
	at := l.pos(s.Pos())
	switch s := s.(type) {
	case *ast.EmptyStmt:
		return nil, nil

	case *ast.LabeledStmt:
		inner, err := l.stmt(s.Stmt)
		if err != nil {
			return nil, err
		}
		// The Go label doubles as the break/continue name of the loop or
		// switch it labels; it survives the marker's removal.
		if len(inner) > 0 && ir.IsBreakable(inner[0]) {
			ir.SetLoopLabel(inner[0], s.Label.Name)
		}
		// An opaque loop or select keeps its label in its own text when
		// its body breaks or continues to it.
		if op, ok := firstOpaque(inner); ok && branchesTo(s.Stmt, s.Label.Name) {
			op.Text = l.source(s)
			op.Payload = s
		}
		return append([]ir.Stmt{&ir.Label{Name: s.Label.Name, At: at}}, inner...), nil

	case *ast.BlockStmt:
		b, err := l.block(s)
		if err != nil {
			return nil, err
		}
		return []ir.Stmt{b}, nil

	case *ast.BranchStmt:
		return l.branch(s)

	case *ast.IfStmt:
		st, err := l.ifStmt(s)
		if err != nil {
			return nil, err
		}
		return l.withInit(s.Init, st, at)

	case *ast.ForStmt:
		return l.forStmt(s)

	case *ast.SwitchStmt:
		st, ok, err := l.switchStmt(s)
		if err != nil {
			return nil, err
		}
		if !ok {
			return l.opaque(s)
		}
		return l.withInit(s.Init, st, at)

	case *ast.ExprStmt:
		if call, ok := s.X.(*ast.CallExpr); ok {
			if name, ok := callFuncName(call); ok {
				return []ir.Stmt{&ir.Action{X: ir.Call{Func: name, Args: l.exprs(call.Args)}, At: at}}, nil
			}
		}
		return l.opaque(s)

	case *ast.AssignStmt:
		if st, ok := l.assign(s); ok {
			return []ir.Stmt{st}, nil
		}
		return l.opaque(s)

	case *ast.IncDecStmt:
		if id, ok := s.X.(*ast.Ident); ok {
			return []ir.Stmt{&ir.IncDec{Name: id.Name, Dec: s.Tok == token.DEC, At: at}}, nil
		}
		return l.opaque(s)

	case *ast.ReturnStmt:
		return []ir.Stmt{&ir.Return{Results: l.exprs(s.Results), At: at}}, nil

	default:
		// range, select, type switch, defer, go, send, declarations
		return l.opaque(s)
	}
}

func (l *lowerer) branch(s *ast.BranchStmt) ([]ir.Stmt, error) {
	at := l.pos(s.Pos())
	label := ""
	if s.Label != nil {
		label = s.Label.Name
	}
	switch s.Tok {
	case token.GOTO:
		return []ir.Stmt{&ir.Goto{Label: label, At: at}}, nil
	case token.BREAK:
		return []ir.Stmt{&ir.Break{Label: label, At: at}}, nil
	case token.CONTINUE:
		return []ir.Stmt{&ir.Continue{Label: label, At: at}}, nil
	default:
		return nil, fmt.Errorf("%s: %s: %w", at, s.Tok, ErrUnsupported)
	}
}

// withInit scopes an if/switch init statement in a block of its own, the
// way Go scopes it.
func (l *lowerer) withInit(init ast.Stmt, st ir.Stmt, at ir.Pos) ([]ir.Stmt, error) {
	if init == nil {
		return []ir.Stmt{st}, nil
	}
	pre, err := l.stmt(init)
	if err != nil {
		return nil, err
	}
	return []ir.Stmt{&ir.Block{Stmts: append(pre, st), At: at}}, nil
}

func (l *lowerer) ifStmt(s *ast.IfStmt) (*ir.If, error) {
	then, err := l.block(s.Body)
	if err != nil {
		return nil, err
	}
	out := &ir.If{Cond: l.expr(s.Cond), Then: then, At: l.pos(s.Pos())}
	switch e := s.Else.(type) {
	case nil:
	case *ast.BlockStmt:
		if out.Else, err = l.block(e); err != nil {
			return nil, err
		}
	case *ast.IfStmt:
		chain, err := l.stmt(e)
		if err != nil {
			return nil, err
		}
		out.Else = &ir.Block{Stmts: chain, At: l.pos(e.Pos())}
	}
	return out, nil
}

func (l *lowerer) forStmt(s *ast.ForStmt) ([]ir.Stmt, error) {
	at := l.pos(s.Pos())
	body, err := l.block(s.Body)
	if err != nil {
		return nil, err
	}
	var cond ir.Expr
	if s.Cond != nil {
		cond = l.expr(s.Cond)
	}
	if s.Init == nil && s.Post == nil {
		if cond == nil {
			cond = ir.Bool(true)
		}
		return []ir.Stmt{&ir.While{Cond: cond, Body: body, At: at}}, nil
	}

	out := &ir.For{Cond: cond, Body: body, At: at}
	for _, hdr := range []struct {
		src ast.Stmt
		dst *ir.Stmt
	}{{s.Init, &out.Init}, {s.Post, &out.Post}} {
		if hdr.src == nil {
			continue
		}
		st, err := l.stmt(hdr.src)
		if err != nil {
			return nil, err
		}
		if len(st) != 1 {
			return nil, fmt.Errorf("%s: loop header: %w", at, ErrUnsupported)
		}
		*hdr.dst = st[0]
	}
	return []ir.Stmt{out}, nil
}

// switchStmt reports ok=false for a switch using fallthrough, which the
// tree cannot express.
func (l *lowerer) switchStmt(s *ast.SwitchStmt) (*ir.Switch, bool, error) {
	out := &ir.Switch{At: l.pos(s.Pos())}
	if s.Tag != nil {
		out.Tag = l.expr(s.Tag)
	}
	for _, c := range s.Body.List {
		cc := c.(*ast.CaseClause)
		if n := len(cc.Body); n > 0 {
			if br, ok := cc.Body[n-1].(*ast.BranchStmt); ok && br.Tok == token.FALLTHROUGH {
				return nil, false, nil
			}
		}
		body := &ir.Block{At: l.pos(cc.Colon)}
		if err := l.appendStmts(body, cc.Body); err != nil {
			return nil, false, err
		}
		arm := &ir.Case{Body: body, At: l.pos(cc.Case)}
		if cc.List != nil {
			arm.Exprs = l.exprs(cc.List)
		}
		out.Cases = append(out.Cases, arm)
	}
	return out, true, nil
}

func (l *lowerer) assign(s *ast.AssignStmt) (ir.Stmt, bool) {
	if len(s.Lhs) != 1 || len(s.Rhs) != 1 {
		return nil, false
	}
	id, ok := s.Lhs[0].(*ast.Ident)
	if !ok || id.Name == "_" {
		return nil, false
	}
	switch s.Tok {
	case token.ASSIGN, token.DEFINE:
		return &ir.Assign{
			Name:   id.Name,
			Define: s.Tok == token.DEFINE,
			Value:  l.expr(s.Rhs[0]),
			At:     l.pos(s.Pos()),
		}, true
	}
	return nil, false
}

// opaque keeps s as a leaf unless control may enter or leave it by goto.
func (l *lowerer) opaque(s ast.Stmt) ([]ir.Stmt, error) {
	at := l.pos(s.Pos())
	if hasJumps(s) {
		return nil, fmt.Errorf("%s: %T with goto or label: %w", at, s, ErrUnsupported)
	}
	return []ir.Stmt{&ir.Opaque{Text: l.source(s), Payload: s, Writes: writes(s), At: at}}, nil
}

// writes returns the variables s declares or assigns at its own level.
func writes(s ast.Stmt) []string {
	var names []string
	add := func(e ast.Expr) {
		if id, ok := e.(*ast.Ident); ok && id.Name != "_" {
			names = append(names, id.Name)
		}
	}
	switch s := s.(type) {
	case *ast.AssignStmt:
		if s.Tok == token.ASSIGN || s.Tok == token.DEFINE {
			for _, e := range s.Lhs {
				add(e)
			}
		}
	case *ast.DeclStmt:
		if gd, ok := s.Decl.(*ast.GenDecl); ok && gd.Tok == token.VAR {
			for _, spec := range gd.Specs {
				for _, id := range spec.(*ast.ValueSpec).Names {
					add(id)
				}
			}
		}
	case *ast.RangeStmt:
		if s.Tok == token.ASSIGN {
			add(s.Key)
			if s.Value != nil {
				add(s.Value)
			}
		}
	}
	return names
}

func (l *lowerer) source(n ast.Node) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, l.fset, n); err != nil {
		return fmt.Sprintf("%T", n)
	}
	return buf.String()
}

// hasJumps reports whether n contains a goto or a labeled statement outside
// any nested function literal.
func hasJumps(n ast.Node) bool {
	found := false
	ast.Inspect(n, func(n ast.Node) bool {
		if found {
			return false
		}
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.LabeledStmt:
			found = true
		case *ast.BranchStmt:
			found = n.Tok == token.GOTO
		}
		return !found
	})
	return found
}

func firstOpaque(stmts []ir.Stmt) (*ir.Opaque, bool) {
	if len(stmts) == 0 {
		return nil, false
	}
	op, ok := stmts[0].(*ir.Opaque)
	return op, ok
}

// branchesTo reports whether n breaks or continues to label.
func branchesTo(n ast.Node, label string) bool {
	found := false
	ast.Inspect(n, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.FuncLit:
			return false
		case *ast.BranchStmt:
			if n.Label != nil && n.Label.Name == label && n.Tok != token.GOTO {
				found = true
			}
		}
		return !found
	})
	return found
}

func (l *lowerer) exprs(list []ast.Expr) []ir.Expr {
	if len(list) == 0 {
		return nil
	}
	out := make([]ir.Expr, len(list))
	for i, e := range list {
		out[i] = l.expr(e)
	}
	return out
}

var binaryOps = map[token.Token]ir.BinaryOp{
	token.ADD:  ir.OpAdd,
	token.SUB:  ir.OpSub,
	token.MUL:  ir.OpMul,
	token.QUO:  ir.OpDiv,
	token.REM:  ir.OpMod,
	token.EQL:  ir.OpEq,
	token.NEQ:  ir.OpNeq,
	token.LSS:  ir.OpLt,
	token.LEQ:  ir.OpLte,
	token.GTR:  ir.OpGt,
	token.GEQ:  ir.OpGte,
	token.LAND: ir.OpAnd,
	token.LOR:  ir.OpOr,
}

// expr lowers e; anything outside the small expression language is kept
// as a RawExpr.
func (l *lowerer) expr(e ast.Expr) ir.Expr {
	switch e := e.(type) {
	case *ast.ParenExpr:
		return l.expr(e.X)
	case *ast.Ident:
		switch e.Name {
		case "true":
			return ir.Bool(true)
		case "false":
			return ir.Bool(false)
		}
		return ir.V(e.Name)
	case *ast.BasicLit:
		if e.Kind == token.INT {
			if v, err := strconv.ParseInt(e.Value, 0, 64); err == nil {
				return ir.Int(v)
			}
		}
	case *ast.CallExpr:
		if name, ok := callFuncName(e); ok && !e.Ellipsis.IsValid() {
			return ir.Call{Func: name, Args: l.exprs(e.Args)}
		}
	case *ast.UnaryExpr:
		switch e.Op {
		case token.NOT:
			return ir.Unary{Op: ir.OpNot, X: l.expr(e.X)}
		case token.SUB:
			return ir.Unary{Op: ir.OpNeg, X: l.expr(e.X)}
		}
	case *ast.BinaryExpr:
		if op, ok := binaryOps[e.Op]; ok {
			return ir.Binary{Op: op, Left: l.expr(e.X), Right: l.expr(e.Y)}
		}
	}
	return ir.RawExpr{Text: l.source(e), Payload: e}
}

// callFuncName returns the dotted name of a call to a plain or qualified
// function, such as "f" or "pkg.F".
func callFuncName(call *ast.CallExpr) (string, bool) {
	return dotted(call.Fun)
}

func dotted(e ast.Expr) (string, bool) {
	switch e := e.(type) {
	case *ast.Ident:
		return e.Name, true
	case *ast.SelectorExpr:
		x, ok := dotted(e.X)
		if !ok {
			return "", false
		}
		return x + "." + e.Sel.Name, true
	}
	return "", false
}
