package eliminate

import "github.com/gnoswap-labs/degoto/internal/ir"

// Class is the kind of rewrite an edge receives.
type Class int

const (
	_ Class = iota
	// ForwardInto: the label follows the jump and sits inside a structure.
	ForwardInto
	// BackwardRestart: the label precedes the jump (or shares its branch
	// structure); the region between them is re-run in a loop.
	BackwardRestart
	// SiblingEscape: the label follows the jump directly in their common
	// block, possibly after the jump is moved out of its structures.
	SiblingEscape
)

func (c Class) String() string {
	switch c {
	case ForwardInto:
		return "forward-into"
	case BackwardRestart:
		return "backward-restart"
	case SiblingEscape:
		return "sibling-escape"
	default:
		return "unknown"
	}
}

// Classification describes where an edge's jump and label meet.
type Classification struct {
	Class Class
	// LCA is the deepest statement list containing both the jump and the
	// label (each possibly nested in a structure of that list).
	LCA *ir.Block
	// Depth is the index of the LCA step in both paths; deeper edges are
	// eliminated first.
	Depth int
	// JumpIndex and LabelIndex are the positions within LCA of the
	// statements containing the jump and the label. They are equal when
	// both sit in different branches of one structure.
	JumpIndex  int
	LabelIndex int
	// EscapeDepth counts the structures the jump must leave to reach LCA.
	EscapeDepth int
	// LabelDirect is set when the marker itself is a statement of LCA.
	LabelDirect bool
}

// Classify computes the classification of e against the current tree.
func Classify(e Edge) (Classification, error) {
	jp, lp := e.JumpPath, e.LabelPath
	if len(jp) == 0 || len(lp) == 0 {
		return Classification{}, unclassifiable(e, "empty path")
	}
	k := 0
	for k < len(jp) && k < len(lp) && jp[k].Block == lp[k].Block && jp[k].Index == lp[k].Index {
		k++
	}
	if k == len(jp) || k == len(lp) {
		return Classification{}, unclassifiable(e, "jump and label are nested in each other at %s", jp)
	}

	var c Classification
	if jp[k].Block == lp[k].Block {
		c.Depth = k
		c.JumpIndex = jp[k].Index
		c.LabelIndex = lp[k].Index
	} else {
		// Different statement lists of the structure at step k-1.
		if k == 0 {
			return Classification{}, unclassifiable(e, "paths do not share a root")
		}
		c.Depth = k - 1
		c.JumpIndex = jp[k-1].Index
		c.LabelIndex = jp[k-1].Index
	}
	c.LCA = jp[c.Depth].Block
	c.EscapeDepth = len(jp) - 1 - c.Depth
	c.LabelDirect = len(lp)-1 == c.Depth

	switch {
	case c.LabelIndex > c.JumpIndex && c.LabelDirect:
		c.Class = SiblingEscape
	case c.LabelIndex > c.JumpIndex:
		c.Class = ForwardInto
	default:
		c.Class = BackwardRestart
	}
	return c, nil
}
