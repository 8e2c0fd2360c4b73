package ir

// ChildBlocks returns the statement lists owned by s in execution order.
// A Block owns itself.
func ChildBlocks(s Stmt) []*Block {
	switch s := s.(type) {
	case *Block:
		return []*Block{s}
	case *If:
		if s.Else != nil {
			return []*Block{s.Then, s.Else}
		}
		return []*Block{s.Then}
	case *While:
		return []*Block{s.Body}
	case *For:
		return []*Block{s.Body}
	case *DoWhile:
		return []*Block{s.Body}
	case *Switch:
		blocks := make([]*Block, len(s.Cases))
		for i, c := range s.Cases {
			blocks[i] = c.Body
		}
		return blocks
	}
	return nil
}

// Inspect traverses the tree rooted at s in pre-order. If fn returns false
// the children of that node are skipped. Loop headers (Init, Post) are
// visited before the body.
func Inspect(s Stmt, fn func(Stmt) bool) {
	if s == nil || !fn(s) {
		return
	}
	switch s := s.(type) {
	case *Block:
		for _, st := range s.Stmts {
			Inspect(st, fn)
		}
		return
	case *For:
		Inspect(s.Init, fn)
		Inspect(s.Post, fn)
	}
	for _, b := range ChildBlocks(s) {
		for _, st := range b.Stmts {
			Inspect(st, fn)
		}
	}
}

// CountGotos returns the number of jump statements under s.
func CountGotos(s Stmt) int {
	n := 0
	Inspect(s, func(st Stmt) bool {
		if _, ok := st.(*Goto); ok {
			n++
		}
		return true
	})
	return n
}

// CountLabels returns the number of label markers under s.
func CountLabels(s Stmt) int {
	n := 0
	Inspect(s, func(st Stmt) bool {
		if _, ok := st.(*Label); ok {
			n++
		}
		return true
	})
	return n
}

// Names collects every identifier used as a variable, label or loop label
// under s, so synthesized names can avoid them.
func Names(s Stmt) map[string]struct{} {
	names := make(map[string]struct{})
	add := func(n string) {
		if n != "" {
			names[n] = struct{}{}
		}
	}
	addExpr := func(e Expr) {
		if e != nil {
			VarNames(e, add)
		}
	}
	Inspect(s, func(st Stmt) bool {
		add(LoopLabel(st))
		switch st := st.(type) {
		case *If:
			addExpr(st.Cond)
		case *While:
			addExpr(st.Cond)
		case *For:
			addExpr(st.Cond)
		case *DoWhile:
			addExpr(st.Cond)
		case *Switch:
			addExpr(st.Tag)
			for _, c := range st.Cases {
				for _, e := range c.Exprs {
					addExpr(e)
				}
			}
		case *Label:
			add(st.Name)
		case *Action:
			addExpr(st.X)
		case *Assign:
			add(st.Name)
			addExpr(st.Value)
		case *IncDec:
			add(st.Name)
		case *Return:
			for _, e := range st.Results {
				addExpr(e)
			}
		case *Opaque:
			for _, w := range st.Writes {
				add(w)
			}
		}
		return true
	})
	return names
}
