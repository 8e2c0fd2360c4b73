package eliminate

import (
	"go.uber.org/zap"

	"github.com/gnoswap-labs/degoto/internal/ir"
)

const (
	DefaultMaxRounds  = 1000
	DefaultFlagPrefix = "goto_"

	// maxMoves bounds the outward and inward moves spent on a single jump.
	maxMoves = 1 << 12
)

// Options configures Eliminate.
type Options struct {
	// MaxRounds bounds the number of jumps eliminated. Zero means
	// DefaultMaxRounds.
	MaxRounds int
	// FlagPrefix is prepended to a label name to form its flag name.
	FlagPrefix string
	Logger     *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxRounds <= 0 {
		o.MaxRounds = DefaultMaxRounds
	}
	if o.FlagPrefix == "" {
		o.FlagPrefix = DefaultFlagPrefix
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Stats summarizes one transformation.
type Stats struct {
	Rounds          int
	ForwardInto     int
	BackwardRestart int
	SiblingEscape   int
	Moves           int
	Flags           int
	Temps           int
	Resets          int
	LabelsRemoved   int
}

// Result is a jump-free body plus the declarations it relies on. Decls
// must be placed at the top of the function, before Body.
type Result struct {
	Body  *ir.Block
	Decls []ir.Decl
	Flags []*Flag
	Stats Stats
}

// Eliminate rewrites body into an equivalent tree without jumps or label
// markers. body itself is not modified.
//
// Each round picks the jump whose label and jump meet deepest in the tree
// (the first one in pre-order on ties) and removes it completely. A body
// that refers to a missing label or defines a label twice is rejected
// before anything is rewritten.
func Eliminate(body *ir.Block, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	if body == nil {
		body = &ir.Block{}
	}
	root := ir.CloneBlock(body)

	loc, err := NewLocator(root)
	if err != nil {
		return nil, err
	}
	if _, err := loc.All(); err != nil {
		return nil, err
	}

	r := &rewriter{
		root: root,
		reg:  NewRegistry(opts.FlagPrefix, ir.Names(root)),
		log:  opts.Logger,
	}
	res := &Result{Body: root}
	for {
		next, remaining, err := r.pick()
		if err != nil {
			return nil, err
		}
		if next == nil {
			break
		}
		if res.Stats.Rounds >= opts.MaxRounds {
			return nil, &Error{
				Kind:      KindFixpointLimitExceeded,
				Pos:       next.Goto.At,
				Detail:    "round bound reached",
				Remaining: remaining,
			}
		}
		res.Stats.Rounds++

		class, moves, err := r.eliminate(next.Goto)
		if err != nil {
			return nil, err
		}
		res.Stats.Moves += moves
		switch class {
		case ForwardInto:
			res.Stats.ForwardInto++
		case BackwardRestart:
			res.Stats.BackwardRestart++
		case SiblingEscape:
			res.Stats.SiblingEscape++
		}
		r.log.Debug("jump eliminated",
			zap.Int("round", res.Stats.Rounds),
			zap.String("label", next.Label),
			zap.Stringer("pos", next.Goto.At),
			zap.Stringer("class", class),
			zap.Int("moves", moves),
		)
	}

	r.finish(&res.Stats)
	res.Decls = r.reg.Decls()
	res.Flags = r.reg.Flags()
	res.Stats.Flags = len(res.Flags)
	res.Stats.Temps = len(res.Decls) - len(res.Flags)
	return res, nil
}

// pick returns the edge to eliminate next together with every edge still
// in the tree, or nil when no jump is left.
func (r *rewriter) pick() (*Edge, []Edge, error) {
	loc, err := NewLocator(r.root)
	if err != nil {
		return nil, nil, err
	}
	var (
		best      = -1
		bestDepth = -1
		all       []Edge
	)
	for e, err := range loc.Edges() {
		if err != nil {
			return nil, nil, err
		}
		c, err := Classify(e)
		if err != nil {
			return nil, nil, err
		}
		if c.Depth > bestDepth {
			best = len(all)
			bestDepth = c.Depth
		}
		all = append(all, e)
	}
	if best < 0 {
		return nil, nil, nil
	}
	return &all[best], all, nil
}

// eliminate drives one jump to removal. Classification is recomputed from
// the tree after every move; the class reported is the initial one.
func (r *rewriter) eliminate(g *ir.Goto) (Class, int, error) {
	f := r.reg.FlagFor(g.Label)
	f.Jumps++

	var initial Class
	for moves := 0; moves < maxMoves; moves++ {
		loc, err := NewLocator(r.root)
		if err != nil {
			return 0, moves, err
		}
		e, ok, err := loc.Find(g)
		if err != nil {
			return 0, moves, err
		}
		if !ok {
			return 0, moves, &Error{Kind: KindUnclassifiableJump, Label: g.Label, Pos: g.At, Detail: "jump lost during rewrite"}
		}
		c, err := Classify(e)
		if err != nil {
			return 0, moves, err
		}
		if initial == 0 {
			initial = c.Class
		}

		switch {
		case c.EscapeDepth > 0:
			if err := r.escape(e, f); err != nil {
				return 0, moves, err
			}
		case c.Class == SiblingEscape:
			r.finishSibling(e, c, f)
			return initial, moves + 1, nil
		case c.Class == ForwardInto:
			if err := r.moveInward(e, c, f); err != nil {
				return 0, moves, err
			}
		case c.LabelDirect:
			r.restart(e, c, f)
			return initial, moves + 1, nil
		default:
			r.lift(e, c, f)
		}
	}
	return 0, maxMoves, &Error{Kind: KindUnclassifiableJump, Label: g.Label, Pos: g.At, Detail: "no progress"}
}
