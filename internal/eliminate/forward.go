package eliminate

import "github.com/gnoswap-labs/degoto/internal/ir"

// moveInward moves a jump one level down into the structure that holds its
// label. The statements skipped by the jump are guarded, the structure is
// made to take the branch, case or iteration leading to the label while
// the flag is set, and the jump is re-homed at the start of that list.
func (r *rewriter) moveInward(e Edge, c Classification, f *Flag) error {
	lca, j, l := c.LCA, c.JumpIndex, c.LabelIndex
	target := e.LabelPath[c.Depth+1]
	at := e.Jump.Position()
	entry := jumpOn(f, e.Goto)

	var hoist ir.Stmt
	switch s := lca.Stmts[l].(type) {
	case *ir.Block:
		prepend(s, entry)
	case *ir.If:
		if target.Slot == SlotElse {
			s.Cond = narrow(s.Cond, f)
			prepend(s.Else, entry)
		} else {
			s.Cond = widen(s.Cond, f)
			prepend(s.Then, entry)
		}
	case *ir.While:
		s.Cond = widen(s.Cond, f)
		prepend(s.Body, entry)
	case *ir.For:
		// Init always runs; the flag only replaces the first test.
		s.Cond = widen(s.Cond, f)
		prepend(s.Body, entry)
	case *ir.DoWhile:
		prepend(s.Body, entry)
	case *ir.Switch:
		hoist = r.forceCase(s, target.Case, f, at)
		prepend(s.Cases[target.Case].Body, entry)
	default:
		return unclassifiable(e, "label nested in %T", s)
	}

	repl := assignFlag(f, e.Decision, at)
	repl = append(repl, guard(f, lca.Stmts[j+1:l], at)...)
	if hoist != nil {
		repl = append(repl, hoist)
	}
	repl = append(repl, lca.Stmts[l])
	splice(lca, j, l+1, repl...)
	f.NeedsReset = true
	return nil
}

// forceCase rewrites s so that case k is selected while the flag is set,
// without evaluating the tag or any case expression. A tagged switch
// becomes tagless with `tag == e` conditions; a tag that may call a
// function is evaluated once into a temporary by the returned statement,
// which must run right before s.
func (r *rewriter) forceCase(s *ir.Switch, k int, f *Flag, at ir.Pos) ir.Stmt {
	var hoist ir.Stmt
	if s.Tag != nil {
		tag := s.Tag
		if ir.HasCall(tag) {
			tmp := r.reg.Temp()
			hoist = &ir.If{
				Cond: ir.Not(ir.V(f.Name)),
				Then: &ir.Block{Stmts: []ir.Stmt{&ir.Assign{Name: tmp, Value: tag, At: at}}, At: at},
				At:   at,
			}
			tag = ir.V(tmp)
		}
		for _, cs := range s.Cases {
			conds := make([]ir.Expr, len(cs.Exprs))
			for i, x := range cs.Exprs {
				conds[i] = ir.Eq(tag, x)
			}
			cs.Exprs = conds
		}
		s.Tag = nil
	}
	for i, cs := range s.Cases {
		if cs.IsDefault() {
			continue
		}
		cond := anyOf(cs.Exprs)
		if i == k {
			cond = widen(cond, f)
		} else {
			cond = narrow(cond, f)
		}
		cs.Exprs = []ir.Expr{cond}
	}
	return hoist
}
