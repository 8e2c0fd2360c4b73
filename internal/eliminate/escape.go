package eliminate

import "github.com/gnoswap-labs/degoto/internal/ir"

// escape moves the jump of e out of the structure directly enclosing it.
//
// The decision is stored in the flag and the rest of the enclosing list is
// skipped: a loop body gets `if flag { break }`, any other list wraps its
// remainder in `if !flag { ... }`. The jump is re-homed right after the
// structure as `if flag { goto L }`.
func (r *rewriter) escape(e Edge, f *Flag) error {
	if len(e.JumpPath) < 2 {
		return unclassifiable(e, "jump at top level cannot move outward")
	}
	leaf := e.JumpPath.Leaf()
	parent := e.JumpPath[len(e.JumpPath)-2]
	at := e.Jump.Position()

	b, j := leaf.Block, leaf.Index
	rest := copyStmts(b.Stmts[j+1:])
	repl := assignFlag(f, e.Decision, at)
	if ir.IsLoop(leaf.Owner) {
		repl = append(repl, &ir.If{
			Cond: ir.V(f.Name),
			Then: &ir.Block{Stmts: []ir.Stmt{&ir.Break{At: at}}, At: at},
			At:   at,
		})
		repl = append(repl, rest...)
	} else {
		repl = append(repl, guard(f, rest, at)...)
	}
	splice(b, j, len(b.Stmts), repl...)
	splice(parent.Block, parent.Index+1, parent.Index+1, jumpOn(f, e.Goto))
	f.NeedsReset = true
	return nil
}

// finishSibling removes a jump whose marker follows it in the same list:
// the statements in between run only when the jump is not taken.
func (r *rewriter) finishSibling(e Edge, c Classification, f *Flag) {
	at := e.Jump.Position()
	repl := assignFlag(f, e.Decision, at)
	repl = append(repl, guard(f, c.LCA.Stmts[c.JumpIndex+1:c.LabelIndex], at)...)
	splice(c.LCA, c.JumpIndex, c.LabelIndex, repl...)
	f.NeedsReset = true
}
