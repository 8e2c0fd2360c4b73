package eliminate

import (
	"fmt"
	"iter"
	"strings"

	"github.com/gnoswap-labs/degoto/internal/ir"
)

// Slot names which statement list of an owner a Step descends into.
type Slot int

const (
	SlotRoot Slot = iota
	SlotBlock
	SlotThen
	SlotElse
	SlotBody
	SlotCase
)

func (s Slot) String() string {
	switch s {
	case SlotRoot:
		return "root"
	case SlotBlock:
		return "block"
	case SlotThen:
		return "then"
	case SlotElse:
		return "else"
	case SlotBody:
		return "body"
	case SlotCase:
		return "case"
	default:
		return "?"
	}
}

// Step is one hop from the function body towards a node: the statement
// list Block (owned by Owner through Slot) and the index of the statement
// taken next.
type Step struct {
	Owner ir.Stmt // nil for the function body
	Slot  Slot
	Case  int // case index when Slot == SlotCase
	Block *ir.Block
	Index int
}

// Path leads from the function body to a node. The node itself is
// Path[len-1].Block.Stmts[Path[len-1].Index].
type Path []Step

// Node returns the statement the path ends at.
func (p Path) Node() ir.Stmt {
	last := p[len(p)-1]
	return last.Block.Stmts[last.Index]
}

// Leaf returns the final step.
func (p Path) Leaf() Step {
	return p[len(p)-1]
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, st := range p {
		if st.Slot == SlotCase {
			parts[i] = fmt.Sprintf("case%d[%d]", st.Case, st.Index)
			continue
		}
		parts[i] = fmt.Sprintf("%s[%d]", st.Slot, st.Index)
	}
	return strings.Join(parts, ".")
}

// Edge is one jump together with where its label lives.
type Edge struct {
	Goto  *ir.Goto
	Label string
	// Jump is the statement removed when the edge is eliminated: either the
	// Goto itself or an `if D { goto L }` wrapping it.
	Jump     ir.Stmt
	Decision ir.Expr
	// JumpPath leads to Jump, LabelPath to the label marker.
	JumpPath  Path
	LabelPath Path
}

// Locator indexes the label markers of a body and enumerates its jumps.
type Locator struct {
	root   *ir.Block
	labels map[string]Path
}

// NewLocator indexes every label marker under root. Two markers with the
// same name are rejected.
func NewLocator(root *ir.Block) (*Locator, error) {
	l := &Locator{root: root, labels: make(map[string]Path)}
	var dup *Error
	walkBlock(root, nil, nil, SlotRoot, 0, func(p Path, s ir.Stmt) bool {
		m, ok := s.(*ir.Label)
		if !ok {
			return true
		}
		if _, seen := l.labels[m.Name]; seen {
			dup = &Error{Kind: KindDuplicateLabel, Label: m.Name, Pos: m.At}
			return false
		}
		l.labels[m.Name] = p
		return true
	})
	if dup != nil {
		return nil, dup
	}
	return l, nil
}

// LabelPath returns the path to the marker of name.
func (l *Locator) LabelPath(name string) (Path, bool) {
	p, ok := l.labels[name]
	return p, ok
}

// Edges yields every jump in pre-order. A jump to a missing label yields
// an error and ends the sequence.
func (l *Locator) Edges() iter.Seq2[Edge, error] {
	return func(yield func(Edge, error) bool) {
		walkBlock(l.root, nil, nil, SlotRoot, 0, func(p Path, s ir.Stmt) bool {
			g, ok := s.(*ir.Goto)
			if !ok {
				return true
			}
			e, err := l.edgeAt(p, g)
			return yield(e, err) && err == nil
		})
	}
}

// All collects Edges into a slice.
func (l *Locator) All() ([]Edge, error) {
	var edges []Edge
	for e, err := range l.Edges() {
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, nil
}

// Find returns the edge of a specific Goto node.
func (l *Locator) Find(g *ir.Goto) (Edge, bool, error) {
	for e, err := range l.Edges() {
		if err != nil {
			return Edge{}, false, err
		}
		if e.Goto == g {
			return e, true, nil
		}
	}
	return Edge{}, false, nil
}

// edgeAt normalizes the jump found at p. An `if D { goto L }` without else
// whose then-branch holds only the jump is a conditional jump on D;
// anything else is the bare goto with decision true.
func (l *Locator) edgeAt(p Path, g *ir.Goto) (Edge, error) {
	lp, ok := l.labels[g.Label]
	if !ok {
		return Edge{}, &Error{Kind: KindUnresolvedLabel, Label: g.Label, Pos: g.At}
	}
	e := Edge{
		Goto:      g,
		Label:     g.Label,
		Jump:      g,
		Decision:  ir.Bool(true),
		JumpPath:  p,
		LabelPath: lp,
	}
	leaf := p.Leaf()
	if len(p) >= 2 && leaf.Slot == SlotThen && len(leaf.Block.Stmts) == 1 {
		if cond, ok := leaf.Owner.(*ir.If); ok && cond.Else == nil {
			e.Jump = cond
			e.Decision = cond.Cond
			e.JumpPath = p[:len(p)-1]
		}
	}
	return e, nil
}

// walkBlock visits every statement under b in pre-order with its path.
// Each visited path is freshly allocated and may be retained.
func walkBlock(b *ir.Block, prefix Path, owner ir.Stmt, slot Slot, c int, visit func(Path, ir.Stmt) bool) bool {
	for i, s := range b.Stmts {
		p := append(prefix[:len(prefix):len(prefix)], Step{Owner: owner, Slot: slot, Case: c, Block: b, Index: i})
		if !visit(p, s) {
			return false
		}
		if !walkChildren(s, p, visit) {
			return false
		}
	}
	return true
}

func walkChildren(s ir.Stmt, p Path, visit func(Path, ir.Stmt) bool) bool {
	switch s := s.(type) {
	case *ir.Block:
		return walkBlock(s, p, s, SlotBlock, 0, visit)
	case *ir.If:
		if !walkBlock(s.Then, p, s, SlotThen, 0, visit) {
			return false
		}
		if s.Else != nil {
			return walkBlock(s.Else, p, s, SlotElse, 0, visit)
		}
	case *ir.While:
		return walkBlock(s.Body, p, s, SlotBody, 0, visit)
	case *ir.For:
		return walkBlock(s.Body, p, s, SlotBody, 0, visit)
	case *ir.DoWhile:
		return walkBlock(s.Body, p, s, SlotBody, 0, visit)
	case *ir.Switch:
		for k, cs := range s.Cases {
			if !walkBlock(cs.Body, p, s, SlotCase, k, visit) {
				return false
			}
		}
	}
	return true
}
