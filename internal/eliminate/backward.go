package eliminate

import "github.com/gnoswap-labs/degoto/internal/ir"

// restart removes a jump whose marker precedes it in the same list. The
// marker, the statements up to the jump and the decision are wrapped in
// `do { L; ...; flag = D } while flag`.
func (r *rewriter) restart(e Edge, c Classification, f *Flag) {
	lca, l, j := c.LCA, c.LabelIndex, c.JumpIndex
	at := e.Jump.Position()

	region := copyStmts(lca.Stmts[l:j])
	r.bindEscapes(region, e.JumpPath[:c.Depth+1])
	body := append(region, assignFlag(f, e.Decision, at)...)
	loop := &ir.DoWhile{Body: &ir.Block{Stmts: body, At: at}, Cond: ir.V(f.Name), At: at}
	splice(lca, l, j+1, loop)
}

// lift handles a backward jump whose label is nested in a structure of the
// list. The region from that structure to the jump is wrapped in a loop
// that starts with `if flag { goto L }`, which turns the edge into a
// forward one.
func (r *rewriter) lift(e Edge, c Classification, f *Flag) {
	lca, l, j := c.LCA, c.LabelIndex, c.JumpIndex
	at := e.Jump.Position()

	region := copyStmts(lca.Stmts[l:j])
	r.bindEscapes(region, e.JumpPath[:c.Depth+1])
	body := make([]ir.Stmt, 0, len(region)+2)
	body = append(body, jumpOn(f, e.Goto))
	body = append(body, region...)
	body = append(body, assignFlag(f, e.Decision, at)...)
	loop := &ir.DoWhile{Body: &ir.Block{Stmts: body, At: at}, Cond: ir.V(f.Name), At: at}
	splice(lca, l, j+1, loop)
	f.NeedsReset = true
}
