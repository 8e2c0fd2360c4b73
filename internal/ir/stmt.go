package ir

import "fmt"

// Pos is a source position attached to every statement.
type Pos struct {
	File string
	Line int
	Col  int
}

func (p Pos) String() string {
	if p.Line == 0 {
		return "-"
	}
	if p.File == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Stmt is a node of the statement tree. The set of variants is closed.
// Children are owned exclusively by their parent; a node never appears
// twice in one tree.
type Stmt interface {
	isStmt()
	Position() Pos
}

// Block is an ordered list of statements.
type Block struct {
	Stmts []Stmt
	At    Pos
}

// If is a two-way conditional. Else may be nil.
type If struct {
	Cond Expr
	Then *Block
	Else *Block
	At   Pos
}

// While is a pre-tested loop.
type While struct {
	Label string // break/continue target name, if any
	Cond  Expr
	Body  *Block
	At    Pos
}

// For is a counting loop. Init and Post may be nil, Cond nil means true.
type For struct {
	Label string
	Init  Stmt
	Cond  Expr
	Post  Stmt
	Body  *Block
	At    Pos
}

// DoWhile is a post-tested loop.
type DoWhile struct {
	Label string
	Body  *Block
	Cond  Expr
	At    Pos
}

// Switch dispatches on Tag. With a nil Tag the case expressions are
// conditions tried in order. Cases never fall through.
type Switch struct {
	Label string
	Tag   Expr
	Cases []*Case
	At    Pos
}

// Case is one arm of a Switch. A case without expressions is the default.
type Case struct {
	Exprs []Expr
	Body  *Block
	At    Pos
}

// IsDefault reports whether c is the default arm.
func (c *Case) IsDefault() bool {
	return len(c.Exprs) == 0
}

// Label marks a jump target. It executes as a no-op.
type Label struct {
	Name string
	At   Pos
}

// Goto is an unconditional jump to a Label in the same function.
type Goto struct {
	Label string
	At    Pos
}

// Action evaluates X for its side effects.
type Action struct {
	X  Expr
	At Pos
}

// Assign stores Value into the variable Name.
type Assign struct {
	Name   string
	Define bool
	Value  Expr
	At     Pos
}

// IncDec increments or decrements the variable Name.
type IncDec struct {
	Name string
	Dec  bool
	At   Pos
}

// Return leaves the function.
type Return struct {
	Results []Expr
	At      Pos
}

// Break leaves the innermost loop or switch, or the one named by Label.
type Break struct {
	Label string
	At    Pos
}

// Continue starts the next iteration of the innermost loop, or of the one
// named by Label.
type Continue struct {
	Label string
	At    Pos
}

// Opaque is a host-language statement the engine does not look into.
// Writes lists the variables it declares or assigns, if known.
type Opaque struct {
	Text    string
	Payload any
	Writes  []string
	At      Pos
}

func (*Block) isStmt()    {}
func (*If) isStmt()       {}
func (*While) isStmt()    {}
func (*For) isStmt()      {}
func (*DoWhile) isStmt()  {}
func (*Switch) isStmt()   {}
func (*Label) isStmt()    {}
func (*Goto) isStmt()     {}
func (*Action) isStmt()   {}
func (*Assign) isStmt()   {}
func (*IncDec) isStmt()   {}
func (*Return) isStmt()   {}
func (*Break) isStmt()    {}
func (*Continue) isStmt() {}
func (*Opaque) isStmt()   {}

func (s *Block) Position() Pos    { return s.At }
func (s *If) Position() Pos       { return s.At }
func (s *While) Position() Pos    { return s.At }
func (s *For) Position() Pos      { return s.At }
func (s *DoWhile) Position() Pos  { return s.At }
func (s *Switch) Position() Pos   { return s.At }
func (s *Label) Position() Pos    { return s.At }
func (s *Goto) Position() Pos     { return s.At }
func (s *Action) Position() Pos   { return s.At }
func (s *Assign) Position() Pos   { return s.At }
func (s *IncDec) Position() Pos   { return s.At }
func (s *Return) Position() Pos   { return s.At }
func (s *Break) Position() Pos    { return s.At }
func (s *Continue) Position() Pos { return s.At }
func (s *Opaque) Position() Pos   { return s.At }

// IsLoop reports whether s is an iterating statement.
func IsLoop(s Stmt) bool {
	switch s.(type) {
	case *While, *For, *DoWhile:
		return true
	}
	return false
}

// IsBreakable reports whether an unlabeled break inside s leaves s.
func IsBreakable(s Stmt) bool {
	_, isSwitch := s.(*Switch)
	return isSwitch || IsLoop(s)
}

// LoopLabel returns the break/continue label of a loop or switch.
func LoopLabel(s Stmt) string {
	switch s := s.(type) {
	case *While:
		return s.Label
	case *For:
		return s.Label
	case *DoWhile:
		return s.Label
	case *Switch:
		return s.Label
	}
	return ""
}

// SetLoopLabel names a loop or switch so break/continue can target it.
func SetLoopLabel(s Stmt, name string) {
	switch s := s.(type) {
	case *While:
		s.Label = name
	case *For:
		s.Label = name
	case *DoWhile:
		s.Label = name
	case *Switch:
		s.Label = name
	}
}

// Decl is a function-scope variable introduced by a rewrite.
type Decl struct {
	Name string
	Type string // "bool" or "int"
	Init Expr
}

func (d Decl) String() string {
	return d.Type + " " + d.Name + " = " + d.Init.String()
}
