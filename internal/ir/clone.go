package ir

// CloneBlock returns a deep copy of b. Expressions are shared since they
// are never mutated in place.
func CloneBlock(b *Block) *Block {
	if b == nil {
		return nil
	}
	out := &Block{Stmts: make([]Stmt, len(b.Stmts)), At: b.At}
	for i, s := range b.Stmts {
		out.Stmts[i] = Clone(s)
	}
	return out
}

// Clone returns a deep copy of s.
func Clone(s Stmt) Stmt {
	switch s := s.(type) {
	case nil:
		return nil
	case *Block:
		return CloneBlock(s)
	case *If:
		return &If{Cond: s.Cond, Then: CloneBlock(s.Then), Else: CloneBlock(s.Else), At: s.At}
	case *While:
		return &While{Label: s.Label, Cond: s.Cond, Body: CloneBlock(s.Body), At: s.At}
	case *For:
		return &For{
			Label: s.Label,
			Init:  Clone(s.Init),
			Cond:  s.Cond,
			Post:  Clone(s.Post),
			Body:  CloneBlock(s.Body),
			At:    s.At,
		}
	case *DoWhile:
		return &DoWhile{Label: s.Label, Body: CloneBlock(s.Body), Cond: s.Cond, At: s.At}
	case *Switch:
		cases := make([]*Case, len(s.Cases))
		for i, c := range s.Cases {
			cases[i] = &Case{Exprs: c.Exprs, Body: CloneBlock(c.Body), At: c.At}
		}
		return &Switch{Label: s.Label, Tag: s.Tag, Cases: cases, At: s.At}
	case *Label:
		c := *s
		return &c
	case *Goto:
		c := *s
		return &c
	case *Action:
		c := *s
		return &c
	case *Assign:
		c := *s
		return &c
	case *IncDec:
		c := *s
		return &c
	case *Return:
		c := *s
		return &c
	case *Break:
		c := *s
		return &c
	case *Continue:
		c := *s
		return &c
	case *Opaque:
		c := *s
		return &c
	}
	panic("ir: unknown statement")
}
