package eliminate

import (
	"go.uber.org/zap"

	"github.com/gnoswap-labs/degoto/internal/ir"
)

// rewriter mutates one cloned function body in place.
type rewriter struct {
	root *ir.Block
	reg  *Registry
	log  *zap.Logger
}

// splice replaces b.Stmts[from:to] with repl. The statement list is always
// reallocated so slices taken from the old one stay valid.
func splice(b *ir.Block, from, to int, repl ...ir.Stmt) {
	out := make([]ir.Stmt, 0, len(b.Stmts)-(to-from)+len(repl))
	out = append(out, b.Stmts[:from]...)
	out = append(out, repl...)
	out = append(out, b.Stmts[to:]...)
	b.Stmts = out
}

func prepend(b *ir.Block, s ir.Stmt) {
	splice(b, 0, 0, s)
}

func copyStmts(stmts []ir.Stmt) []ir.Stmt {
	return append([]ir.Stmt(nil), stmts...)
}

// assignFlag stores the decision in the flag, unless the decision already
// is the flag. A decision that reads the flag comes from a jump guarded by
// an earlier one to the same label; a set flag must then stay set.
func assignFlag(f *Flag, d ir.Expr, at ir.Pos) []ir.Stmt {
	if ir.IsVar(d, f.Name) {
		return nil
	}
	if readsVar(d, f.Name) {
		if u, ok := d.(ir.Unary); ok && u.Op == ir.OpNot && ir.IsVar(u.X, f.Name) {
			d = ir.Bool(true)
		} else {
			d = ir.Or(ir.V(f.Name), d)
		}
	}
	return []ir.Stmt{&ir.Assign{Name: f.Name, Value: d, At: at}}
}

func readsVar(e ir.Expr, name string) bool {
	found := false
	ir.VarNames(e, func(n string) {
		if n == name {
			found = true
		}
	})
	return found
}

// guard wraps stmts in `if !flag { ... }`.
func guard(f *Flag, stmts []ir.Stmt, at ir.Pos) []ir.Stmt {
	if len(stmts) == 0 {
		return nil
	}
	return []ir.Stmt{&ir.If{
		Cond: ir.Not(ir.V(f.Name)),
		Then: &ir.Block{Stmts: copyStmts(stmts), At: at},
		At:   at,
	}}
}

// jumpOn re-homes g as `if flag { goto L }`.
func jumpOn(f *Flag, g *ir.Goto) *ir.If {
	return &ir.If{
		Cond: ir.V(f.Name),
		Then: &ir.Block{Stmts: []ir.Stmt{g}, At: g.At},
		At:   g.At,
	}
}

// widen makes cond true while the flag is set, without evaluating cond.
func widen(cond ir.Expr, f *Flag) ir.Expr {
	if cond == nil || ir.IsTrue(cond) {
		return cond
	}
	if b, ok := cond.(ir.Binary); ok && b.Op == ir.OpOr && ir.IsVar(b.Left, f.Name) {
		return cond
	}
	return ir.Or(ir.V(f.Name), cond)
}

// narrow makes cond false while the flag is set, without evaluating cond.
func narrow(cond ir.Expr, f *Flag) ir.Expr {
	if b, ok := cond.(ir.Binary); ok && b.Op == ir.OpAnd {
		if u, ok := b.Left.(ir.Unary); ok && u.Op == ir.OpNot && ir.IsVar(u.X, f.Name) {
			return cond
		}
	}
	return ir.And(ir.Not(ir.V(f.Name)), cond)
}

func anyOf(exprs []ir.Expr) ir.Expr {
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = ir.Or(out, e)
	}
	return out
}

// bindEscapes gives an explicit target to every unlabeled break or continue
// in stmts that would leave stmts. outer is the path to the statement list
// stmts currently live in; its innermost loop or switch is the target,
// which gets a fresh name if it has none.
func (r *rewriter) bindEscapes(stmts []ir.Stmt, outer Path) {
	var brk, cont ir.Stmt
	for _, st := range outer {
		if st.Owner == nil {
			continue
		}
		if ir.IsBreakable(st.Owner) {
			brk = st.Owner
		}
		if ir.IsLoop(st.Owner) {
			cont = st.Owner
		}
	}
	var bind func(s ir.Stmt, inBreakable, inLoop bool)
	bind = func(s ir.Stmt, inBreakable, inLoop bool) {
		switch s := s.(type) {
		case *ir.Break:
			if s.Label == "" && !inBreakable && brk != nil {
				s.Label = r.nameOf(brk)
			}
		case *ir.Continue:
			if s.Label == "" && !inLoop && cont != nil {
				s.Label = r.nameOf(cont)
			}
		}
		inBreakable = inBreakable || ir.IsBreakable(s)
		inLoop = inLoop || ir.IsLoop(s)
		for _, b := range ir.ChildBlocks(s) {
			for _, c := range b.Stmts {
				bind(c, inBreakable, inLoop)
			}
		}
	}
	for _, s := range stmts {
		bind(s, false, false)
	}
}

func (r *rewriter) nameOf(s ir.Stmt) string {
	if name := ir.LoopLabel(s); name != "" {
		return name
	}
	name := r.reg.Fresh("outer")
	ir.SetLoopLabel(s, name)
	return name
}

// finish removes every label marker. A marker whose flag needs a reset
// becomes `flag = false`.
func (r *rewriter) finish(stats *Stats) {
	var visit func(b *ir.Block)
	visit = func(b *ir.Block) {
		out := b.Stmts[:0]
		for _, s := range b.Stmts {
			if m, ok := s.(*ir.Label); ok {
				stats.LabelsRemoved++
				if f, ok := r.reg.Lookup(m.Name); ok && f.NeedsReset {
					stats.Resets++
					out = append(out, &ir.Assign{Name: f.Name, Value: ir.Bool(false), At: m.At})
				}
				continue
			}
			for _, cb := range ir.ChildBlocks(s) {
				visit(cb)
			}
			out = append(out, s)
		}
		b.Stmts = out
	}
	visit(r.root)
}
