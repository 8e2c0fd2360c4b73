package ir

// Helper functions to construct statements. Positions are left zero;
// the frontend fills them in when lowering real source.

// Body creates a block of statements.
func Body(stmts ...Stmt) *Block {
	return &Block{Stmts: stmts}
}

// IfThen creates an if statement without else.
func IfThen(cond Expr, then ...Stmt) *If {
	return &If{Cond: cond, Then: Body(then...)}
}

// IfElse creates an if statement with both branches.
func IfElse(cond Expr, then, els *Block) *If {
	return &If{Cond: cond, Then: then, Else: els}
}

// WhileLoop creates a pre-tested loop.
func WhileLoop(cond Expr, body ...Stmt) *While {
	return &While{Cond: cond, Body: Body(body...)}
}

// ForLoop creates a counting loop.
func ForLoop(init Stmt, cond Expr, post Stmt, body ...Stmt) *For {
	return &For{Init: init, Cond: cond, Post: post, Body: Body(body...)}
}

// DoLoop creates a post-tested loop.
func DoLoop(cond Expr, body ...Stmt) *DoWhile {
	return &DoWhile{Body: Body(body...), Cond: cond}
}

// SwitchOn creates a switch statement.
func SwitchOn(tag Expr, cases ...*Case) *Switch {
	return &Switch{Tag: tag, Cases: cases}
}

// CaseOf creates a switch arm. No expressions means default.
func CaseOf(exprs []Expr, body ...Stmt) *Case {
	return &Case{Exprs: exprs, Body: Body(body...)}
}

// Default creates the default arm of a switch.
func Default(body ...Stmt) *Case {
	return &Case{Body: Body(body...)}
}

// Mark creates a label marker.
func Mark(name string) *Label {
	return &Label{Name: name}
}

// Jump creates an unconditional jump.
func Jump(label string) *Goto {
	return &Goto{Label: label}
}

// JumpIf creates the conditional jump `if cond { goto label }`.
func JumpIf(cond Expr, label string) *If {
	return IfThen(cond, Jump(label))
}

// Do creates an action call statement.
func Do(fn string, args ...Expr) *Action {
	return &Action{X: Call{Func: fn, Args: args}}
}

// Set creates an assignment.
func Set(name string, value Expr) *Assign {
	return &Assign{Name: name, Value: value}
}

// Define creates a declaring assignment.
func Define(name string, value Expr) *Assign {
	return &Assign{Name: name, Define: true, Value: value}
}

// Inc creates an increment.
func Inc(name string) *IncDec {
	return &IncDec{Name: name}
}

// Ret creates a return statement.
func Ret(results ...Expr) *Return {
	return &Return{Results: results}
}

// Brk creates a break statement, optionally labeled.
func Brk(label ...string) *Break {
	b := &Break{}
	if len(label) > 0 {
		b.Label = label[0]
	}
	return b
}

// Cont creates a continue statement, optionally labeled.
func Cont(label ...string) *Continue {
	c := &Continue{}
	if len(label) > 0 {
		c.Label = label[0]
	}
	return c
}
