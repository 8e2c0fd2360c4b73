package ir

import (
	"strconv"
	"strings"
)

// Expr represents an expression in the statement tree.
// Expressions are immutable values; rewrites build new ones instead of
// editing existing ones, so sharing an Expr between nodes is safe.
type Expr interface {
	isExpr()
	String() string
}

// Var represents a variable reference.
type Var struct {
	Name string
}

func (Var) isExpr() {}
func (e Var) String() string {
	return e.Name
}

// IntLit represents an integer literal.
type IntLit struct {
	Val int64
}

func (IntLit) isExpr() {}
func (e IntLit) String() string {
	return strconv.FormatInt(e.Val, 10)
}

// BoolLit represents a boolean literal.
type BoolLit struct {
	Val bool
}

func (BoolLit) isExpr() {}
func (e BoolLit) String() string {
	return strconv.FormatBool(e.Val)
}

// Call represents a call expression.
// When its value is consumed (a condition, a switch tag, an assignment) it is
// a decision; as the expression of an Action statement it is an action call.
type Call struct {
	Func string
	Args []Expr
}

func (Call) isExpr() {}
func (e Call) String() string {
	var sb strings.Builder
	sb.WriteString(e.Func)
	sb.WriteByte('(')
	for i, arg := range e.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

// UnaryOp represents unary operators.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "!"
	case OpNeg:
		return "-"
	default:
		return "?"
	}
}

// Unary represents a unary expression.
type Unary struct {
	Op UnaryOp
	X  Expr
}

func (Unary) isExpr() {}
func (e Unary) String() string {
	return e.Op.String() + operand(e.X)
}

// BinaryOp represents binary operators.
type BinaryOp int

const (
	_ BinaryOp = iota
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpEq
	OpNeq
	OpLt
	OpLte
	OpGt
	OpGte
	OpAnd
	OpOr
)

func (op BinaryOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	case OpEq:
		return "=="
	case OpNeq:
		return "!="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	default:
		return "?"
	}
}

// Binary represents a binary expression.
type Binary struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
}

func (Binary) isExpr() {}
func (e Binary) String() string {
	return operand(e.Left) + " " + e.Op.String() + " " + operand(e.Right)
}

// RawExpr is a host-language expression the engine does not look into.
// Payload keeps the original node so a printer can emit it unchanged.
type RawExpr struct {
	Text    string
	Payload any
}

func (RawExpr) isExpr() {}
func (e RawExpr) String() string {
	return e.Text
}

func operand(e Expr) string {
	if _, ok := e.(Binary); ok {
		return "(" + e.String() + ")"
	}
	return e.String()
}

// HasCall reports whether evaluating e may call a function.
// Raw expressions are assumed to.
func HasCall(e Expr) bool {
	switch e := e.(type) {
	case Call, RawExpr:
		return true
	case Unary:
		return HasCall(e.X)
	case Binary:
		return HasCall(e.Left) || HasCall(e.Right)
	default:
		return false
	}
}

// IsVar reports whether e is a reference to the variable name.
func IsVar(e Expr, name string) bool {
	v, ok := e.(Var)
	return ok && v.Name == name
}

// IsTrue reports whether e is the literal true.
func IsTrue(e Expr) bool {
	b, ok := e.(BoolLit)
	return ok && b.Val
}

// VarNames calls fn for every variable referenced in e.
func VarNames(e Expr, fn func(string)) {
	switch e := e.(type) {
	case Var:
		fn(e.Name)
	case Call:
		for _, a := range e.Args {
			VarNames(a, fn)
		}
	case Unary:
		VarNames(e.X, fn)
	case Binary:
		VarNames(e.Left, fn)
		VarNames(e.Right, fn)
	}
}

// Helper functions to construct expressions

// V creates a variable reference.
func V(name string) Expr {
	return Var{Name: name}
}

// Int creates an integer literal.
func Int(v int64) Expr {
	return IntLit{Val: v}
}

// Bool creates a boolean literal.
func Bool(v bool) Expr {
	return BoolLit{Val: v}
}

// CallE creates a call expression.
func CallE(fn string, args ...Expr) Expr {
	return Call{Func: fn, Args: args}
}

// Not creates a logical negation, folding double negation and literals.
func Not(e Expr) Expr {
	switch x := e.(type) {
	case BoolLit:
		return BoolLit{Val: !x.Val}
	case Unary:
		if x.Op == OpNot {
			return x.X
		}
	}
	return Unary{Op: OpNot, X: e}
}

// Or creates a logical or expression.
func Or(left, right Expr) Expr {
	return Binary{Op: OpOr, Left: left, Right: right}
}

// And creates a logical and expression.
func And(left, right Expr) Expr {
	return Binary{Op: OpAnd, Left: left, Right: right}
}

// Eq creates an equality expression.
func Eq(left, right Expr) Expr {
	return Binary{Op: OpEq, Left: left, Right: right}
}

// Lt creates a less-than expression.
func Lt(left, right Expr) Expr {
	return Binary{Op: OpLt, Left: left, Right: right}
}
