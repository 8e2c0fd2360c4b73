package frontend

import (
	"go/ast"
	"go/token"
	"slices"
)

// lostNames lists the local names that resolve in the original body of fn
// but not in body. Wrapping part of a list in a new loop or if moves the
// variables it declares out of reach of the statements after it.
func lostNames(fn *ast.FuncDecl, body *ast.BlockStmt) []string {
	before := unresolved(fn, fn.Body)
	var lost []string
	for name := range unresolved(fn, body) {
		if !before[name] {
			lost = append(lost, name)
		}
	}
	slices.Sort(lost)
	return lost
}

// unresolved returns the names declared somewhere in body that are
// referenced where no such declaration is in scope.
func unresolved(fn *ast.FuncDecl, body *ast.BlockStmt) map[string]bool {
	c := &scopeChecker{declared: declaredNames(body), missing: make(map[string]bool)}
	c.push()
	if fn.Recv != nil {
		c.fields(fn.Recv)
	}
	c.params(fn.Type)
	c.stmt(body)
	c.pop()
	return c.missing
}

func declaredNames(body *ast.BlockStmt) map[string]bool {
	names := make(map[string]bool)
	add := func(e ast.Expr) {
		if id, ok := e.(*ast.Ident); ok && id.Name != "_" {
			names[id.Name] = true
		}
	}
	ast.Inspect(body, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.AssignStmt:
			if n.Tok == token.DEFINE {
				for _, l := range n.Lhs {
					add(l)
				}
			}
		case *ast.RangeStmt:
			if n.Tok == token.DEFINE {
				add(n.Key)
				add(n.Value)
			}
		case *ast.ValueSpec:
			for _, id := range n.Names {
				add(id)
			}
		case *ast.TypeSpec:
			add(n.Name)
		}
		return true
	})
	return names
}

type scopeChecker struct {
	declared map[string]bool
	scopes   []map[string]bool
	missing  map[string]bool
}

func (c *scopeChecker) push() {
	c.scopes = append(c.scopes, make(map[string]bool))
}

func (c *scopeChecker) pop() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *scopeChecker) declare(e ast.Expr) {
	if id, ok := e.(*ast.Ident); ok && id.Name != "_" {
		c.scopes[len(c.scopes)-1][id.Name] = true
	}
}

func (c *scopeChecker) use(id *ast.Ident) {
	if !c.declared[id.Name] {
		return
	}
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if c.scopes[i][id.Name] {
			return
		}
	}
	c.missing[id.Name] = true
}

func (c *scopeChecker) fields(fl *ast.FieldList) {
	if fl == nil {
		return
	}
	for _, f := range fl.List {
		c.expr(f.Type)
		for _, id := range f.Names {
			c.declare(id)
		}
	}
}

func (c *scopeChecker) params(ft *ast.FuncType) {
	c.fields(ft.Params)
	c.fields(ft.Results)
}

func (c *scopeChecker) stmts(list []ast.Stmt) {
	for _, s := range list {
		c.stmt(s)
	}
}

func (c *scopeChecker) stmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.BlockStmt:
		c.push()
		c.stmts(s.List)
		c.pop()
	case *ast.LabeledStmt:
		c.stmt(s.Stmt)
	case *ast.AssignStmt:
		c.exprs(s.Rhs)
		if s.Tok != token.DEFINE {
			c.exprs(s.Lhs)
			return
		}
		for _, l := range s.Lhs {
			c.declare(l)
		}
	case *ast.DeclStmt:
		gd, ok := s.Decl.(*ast.GenDecl)
		if !ok {
			return
		}
		for _, spec := range gd.Specs {
			switch spec := spec.(type) {
			case *ast.ValueSpec:
				c.expr(spec.Type)
				c.exprs(spec.Values)
				for _, id := range spec.Names {
					c.declare(id)
				}
			case *ast.TypeSpec:
				c.declare(spec.Name)
				c.expr(spec.Type)
			}
		}
	case *ast.IfStmt:
		c.push()
		c.stmt(s.Init)
		c.expr(s.Cond)
		c.stmt(s.Body)
		c.stmt(s.Else)
		c.pop()
	case *ast.ForStmt:
		c.push()
		c.stmt(s.Init)
		c.expr(s.Cond)
		c.stmt(s.Post)
		c.stmt(s.Body)
		c.pop()
	case *ast.RangeStmt:
		c.expr(s.X)
		c.push()
		if s.Tok == token.DEFINE {
			c.declare(s.Key)
			c.declare(s.Value)
		} else {
			c.expr(s.Key)
			c.expr(s.Value)
		}
		c.stmt(s.Body)
		c.pop()
	case *ast.SwitchStmt:
		c.push()
		c.stmt(s.Init)
		c.expr(s.Tag)
		for _, cl := range s.Body.List {
			cc := cl.(*ast.CaseClause)
			c.exprs(cc.List)
			c.push()
			c.stmts(cc.Body)
			c.pop()
		}
		c.pop()
	case *ast.TypeSwitchStmt:
		c.push()
		c.stmt(s.Init)
		var bound ast.Expr
		switch a := s.Assign.(type) {
		case *ast.AssignStmt:
			c.exprs(a.Rhs)
			bound = a.Lhs[0]
		case *ast.ExprStmt:
			c.expr(a.X)
		}
		for _, cl := range s.Body.List {
			cc := cl.(*ast.CaseClause)
			c.exprs(cc.List)
			c.push()
			c.declare(bound)
			c.stmts(cc.Body)
			c.pop()
		}
		c.pop()
	case *ast.SelectStmt:
		for _, cl := range s.Body.List {
			cc := cl.(*ast.CommClause)
			c.push()
			c.stmt(cc.Comm)
			c.stmts(cc.Body)
			c.pop()
		}
	case *ast.ExprStmt:
		c.expr(s.X)
	case *ast.SendStmt:
		c.expr(s.Chan)
		c.expr(s.Value)
	case *ast.IncDecStmt:
		c.expr(s.X)
	case *ast.ReturnStmt:
		c.exprs(s.Results)
	case *ast.GoStmt:
		c.expr(s.Call)
	case *ast.DeferStmt:
		c.expr(s.Call)
	}
}

func (c *scopeChecker) exprs(list []ast.Expr) {
	for _, e := range list {
		c.expr(e)
	}
}

func (c *scopeChecker) expr(e ast.Expr) {
	if e == nil {
		return
	}
	ast.Inspect(e, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.Ident:
			c.use(n)
		case *ast.SelectorExpr:
			c.expr(n.X)
			return false
		case *ast.KeyValueExpr:
			// A bare identifier key names a struct field.
			if _, ok := n.Key.(*ast.Ident); !ok {
				c.expr(n.Key)
			}
			c.expr(n.Value)
			return false
		case *ast.Field:
			c.expr(n.Type)
			return false
		case *ast.FuncLit:
			c.push()
			c.params(n.Type)
			c.stmt(n.Body)
			c.pop()
			return false
		}
		return true
	})
}
