package interp

import (
	"fmt"

	"github.com/gnoswap-labs/degoto/internal/ir"
)

const (
	DefaultMaxSteps = 100_000
	DefaultMaxCalls = 256
)

// Config bounds a run.
type Config struct {
	MaxSteps int
	MaxCalls int
	// Fill is the value of a decision once the script is used up.
	Fill int64
}

// DefaultConfig returns the default run configuration.
func DefaultConfig() Config {
	return Config{
		MaxSteps: DefaultMaxSteps,
		MaxCalls: DefaultMaxCalls,
	}
}

type flowKind int

const (
	flowNormal flowKind = iota
	flowBreak
	flowContinue
	flowReturn
	flowGoto
	flowHalt
)

// flow is the way control leaves a statement.
type flow struct {
	kind  flowKind
	label string
}

// halt stops a run early.
type halt struct {
	kind   ResultKind
	detail string
}

func (h *halt) Error() string {
	return h.kind.String() + ": " + h.detail
}

// Machine runs one statement tree once.
type Machine struct {
	cfg    Config
	script []int64
	next   int
	env    *Env
	calls  []CallRecord
	steps  int
	values []Value
	stop   *halt
	labels map[ir.Stmt]map[string]struct{}
}

// NewMachine creates a machine that answers decisions from script.
func NewMachine(cfg Config, script []int64) *Machine {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	if cfg.MaxCalls <= 0 {
		cfg.MaxCalls = DefaultMaxCalls
	}
	return &Machine{
		cfg:    cfg,
		script: script,
		env:    NewEnv(),
		labels: make(map[ir.Stmt]map[string]struct{}),
	}
}

// Env returns the variables as they are after Run.
func (m *Machine) Env() *Env {
	return m.env
}

// Run executes decls (in order) and then body.
func (m *Machine) Run(body *ir.Block, decls []ir.Decl) Result {
	fl := flow{}
	for _, d := range decls {
		v, err := m.eval(d.Init)
		if err != nil {
			fl = m.fail(err)
			break
		}
		m.env.Set(d.Name, v)
	}
	if fl.kind == flowNormal {
		fl = m.execBlock(body, "")
	}

	res := Result{Calls: m.calls, Steps: m.steps}
	switch fl.kind {
	case flowNormal:
		res.Kind = ResultFinished
	case flowReturn:
		res.Kind = ResultReturn
		res.Values = m.values
	case flowHalt:
		res.Kind = m.stop.kind
		res.Detail = m.stop.detail
	case flowGoto:
		res.Kind = ResultFault
		res.Detail = fmt.Sprintf("jump to unknown label %q", fl.label)
	case flowBreak, flowContinue:
		res.Kind = ResultFault
		res.Detail = "break or continue outside a loop"
	}
	return res
}

// Run is a shorthand for NewMachine(cfg, script).Run(body, decls).
func Run(body *ir.Block, decls []ir.Decl, script []int64, cfg Config) Result {
	return NewMachine(cfg, script).Run(body, decls)
}

func (m *Machine) fail(err error) flow {
	if h, ok := err.(*halt); ok {
		m.stop = h
	} else {
		m.stop = &halt{kind: ResultFault, detail: err.Error()}
	}
	return flow{kind: flowHalt}
}

// holds reports whether label is marked anywhere under s.
func (m *Machine) holds(s ir.Stmt, label string) bool {
	set, ok := m.labels[s]
	if !ok {
		set = make(map[string]struct{})
		ir.Inspect(s, func(st ir.Stmt) bool {
			if l, ok := st.(*ir.Label); ok {
				set[l.Name] = struct{}{}
			}
			return true
		})
		m.labels[s] = set
	}
	_, ok = set[label]
	return ok
}

func (m *Machine) indexOf(b *ir.Block, label string) int {
	for i, s := range b.Stmts {
		if m.holds(s, label) {
			return i
		}
	}
	return -1
}

// execBlock runs b. With a non-empty seek, execution starts at the
// statement holding that label. A goto to a label held by b resumes here.
func (m *Machine) execBlock(b *ir.Block, seek string) flow {
	if b == nil {
		return flow{}
	}
	i := 0
	if seek != "" {
		if i = m.indexOf(b, seek); i < 0 {
			return flow{kind: flowGoto, label: seek}
		}
	}
	for i < len(b.Stmts) {
		fl := m.exec(b.Stmts[i], seek)
		seek = ""
		if fl.kind == flowGoto {
			if k := m.indexOf(b, fl.label); k >= 0 {
				i, seek = k, fl.label
				continue
			}
		}
		if fl.kind != flowNormal {
			return fl
		}
		i++
	}
	return flow{}
}

// loopExit decides what a loop does after its body produced fl. It
// reports whether the loop ends and the flow to hand outward.
func loopExit(fl flow, label string) (bool, flow) {
	switch fl.kind {
	case flowNormal:
		return false, flow{}
	case flowBreak:
		if fl.label == "" || fl.label == label {
			return true, flow{}
		}
	case flowContinue:
		if fl.label == "" || fl.label == label {
			return false, flow{}
		}
	}
	return true, fl
}

// tick charges one step against the budget.
func (m *Machine) tick() error {
	m.steps++
	if m.steps > m.cfg.MaxSteps {
		return &halt{kind: ResultExhausted, detail: "step budget"}
	}
	return nil
}

func (m *Machine) exec(s ir.Stmt, seek string) flow {
	if err := m.tick(); err != nil {
		return m.fail(err)
	}

	switch s := s.(type) {
	case *ir.Label:
		return flow{}

	case *ir.Opaque:
		// Values written by host code are unknown; zero keeps reads defined.
		for _, name := range s.Writes {
			m.env.Set(name, IntValue{})
		}
		return flow{}

	case *ir.Goto:
		return flow{kind: flowGoto, label: s.Label}

	case *ir.Block:
		return m.execBlock(s, seek)

	case *ir.If:
		if seek != "" {
			if m.holds(s.Then, seek) {
				return m.execBlock(s.Then, seek)
			}
			return m.execBlock(s.Else, seek)
		}
		c, err := m.cond(s.Cond)
		if err != nil {
			return m.fail(err)
		}
		if c {
			return m.execBlock(s.Then, "")
		}
		return m.execBlock(s.Else, "")

	case *ir.While:
		for first := true; ; first = false {
			if err := m.tick(); err != nil {
				return m.fail(err)
			}
			if !first || seek == "" {
				c, err := m.cond(s.Cond)
				if err != nil {
					return m.fail(err)
				}
				if !c {
					return flow{}
				}
			}
			if done, out := loopExit(m.execBlock(s.Body, seekIf(first, seek)), s.Label); done {
				return out
			}
		}

	case *ir.For:
		if s.Init != nil {
			if fl := m.exec(s.Init, ""); fl.kind != flowNormal {
				return fl
			}
		}
		for first := true; ; first = false {
			if err := m.tick(); err != nil {
				return m.fail(err)
			}
			if (!first || seek == "") && s.Cond != nil {
				c, err := m.cond(s.Cond)
				if err != nil {
					return m.fail(err)
				}
				if !c {
					return flow{}
				}
			}
			if done, out := loopExit(m.execBlock(s.Body, seekIf(first, seek)), s.Label); done {
				return out
			}
			if s.Post != nil {
				if fl := m.exec(s.Post, ""); fl.kind != flowNormal {
					return fl
				}
			}
		}

	case *ir.DoWhile:
		for first := true; ; first = false {
			if err := m.tick(); err != nil {
				return m.fail(err)
			}
			if done, out := loopExit(m.execBlock(s.Body, seekIf(first, seek)), s.Label); done {
				return out
			}
			c, err := m.cond(s.Cond)
			if err != nil {
				return m.fail(err)
			}
			if !c {
				return flow{}
			}
		}

	case *ir.Switch:
		return m.execSwitch(s, seek)

	case *ir.Action:
		if call, ok := s.X.(ir.Call); ok {
			args, err := m.args(call.Args)
			if err != nil {
				return m.fail(err)
			}
			if err := m.record(CallRecord{Func: call.Func, Args: args}); err != nil {
				return m.fail(err)
			}
			return flow{}
		}
		if _, err := m.eval(s.X); err != nil {
			return m.fail(err)
		}
		return flow{}

	case *ir.Assign:
		v, err := m.eval(s.Value)
		if err != nil {
			return m.fail(err)
		}
		m.env.Set(s.Name, v)
		return flow{}

	case *ir.IncDec:
		v, ok := m.env.Get(s.Name)
		if !ok {
			return m.fail(uninitialized(s.Name))
		}
		if s.Dec {
			m.env.Set(s.Name, IntValue{Val: asInt(v) - 1})
		} else {
			m.env.Set(s.Name, IntValue{Val: asInt(v) + 1})
		}
		return flow{}

	case *ir.Return:
		vals, err := m.args(s.Results)
		if err != nil {
			return m.fail(err)
		}
		m.values = vals
		return flow{kind: flowReturn}

	case *ir.Break:
		return flow{kind: flowBreak, label: s.Label}

	case *ir.Continue:
		return flow{kind: flowContinue, label: s.Label}
	}
	return m.fail(fmt.Errorf("unsupported statement %T", s))
}

func seekIf(first bool, seek string) string {
	if first {
		return seek
	}
	return ""
}

// execSwitch dispatches like Go: cases are tried top to bottom, the
// default arm runs only when nothing matched, and a break leaves the switch.
func (m *Machine) execSwitch(s *ir.Switch, seek string) flow {
	var body *ir.Block
	if seek != "" {
		for _, c := range s.Cases {
			if m.holds(c.Body, seek) {
				body = c.Body
				break
			}
		}
	} else {
		var tag Value
		if s.Tag != nil {
			v, err := m.eval(s.Tag)
			if err != nil {
				return m.fail(err)
			}
			tag = v
		}
		var dflt *ir.Block
	cases:
		for _, c := range s.Cases {
			if c.IsDefault() {
				dflt = c.Body
				continue
			}
			for _, e := range c.Exprs {
				v, err := m.eval(e)
				if err != nil {
					return m.fail(err)
				}
				if (tag != nil && tag.Equal(v)) || (tag == nil && IsTruthy(v)) {
					body = c.Body
					break cases
				}
			}
		}
		if body == nil {
			body = dflt
		}
	}
	fl := m.execBlock(body, seek)
	if fl.kind == flowBreak && (fl.label == "" || fl.label == s.Label) {
		return flow{}
	}
	return fl
}

func (m *Machine) record(c CallRecord) error {
	if len(m.calls) >= m.cfg.MaxCalls {
		return &halt{kind: ResultExhausted, detail: "call budget"}
	}
	m.calls = append(m.calls, c)
	return nil
}

func (m *Machine) cond(e ir.Expr) (bool, error) {
	v, err := m.eval(e)
	if err != nil {
		return false, err
	}
	return IsTruthy(v), nil
}

func (m *Machine) args(exprs []ir.Expr) ([]Value, error) {
	vals := make([]Value, len(exprs))
	for i, e := range exprs {
		v, err := m.eval(e)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func uninitialized(name string) error {
	return &halt{kind: ResultFault, detail: fmt.Sprintf("read of uninitialized variable %s", name)}
}

// eval evaluates e. A call takes the next script value.
func (m *Machine) eval(e ir.Expr) (Value, error) {
	switch e := e.(type) {
	case ir.IntLit:
		return IntValue{Val: e.Val}, nil
	case ir.BoolLit:
		return BoolValue{Val: e.Val}, nil
	case ir.Var:
		v, ok := m.env.Get(e.Name)
		if !ok {
			return nil, uninitialized(e.Name)
		}
		return v, nil
	case ir.Call:
		args, err := m.args(e.Args)
		if err != nil {
			return nil, err
		}
		return m.decide(e.Func, args)
	case ir.RawExpr:
		// Host expressions are opaque; each evaluation is a decision.
		return m.decide(e.Text, nil)
	case ir.Unary:
		x, err := m.eval(e.X)
		if err != nil {
			return nil, err
		}
		if e.Op == ir.OpNot {
			return BoolValue{Val: !IsTruthy(x)}, nil
		}
		return IntValue{Val: -asInt(x)}, nil
	case ir.Binary:
		return m.evalBinary(e)
	}
	return nil, &halt{kind: ResultFault, detail: fmt.Sprintf("cannot evaluate %s", e)}
}

func (m *Machine) decide(name string, args []Value) (Value, error) {
	val := m.cfg.Fill
	if m.next < len(m.script) {
		val = m.script[m.next]
		m.next++
	}
	v := IntValue{Val: val}
	if err := m.record(CallRecord{Func: name, Args: args, Decision: true, Result: v}); err != nil {
		return nil, err
	}
	return v, nil
}

func (m *Machine) evalBinary(e ir.Binary) (Value, error) {
	l, err := m.eval(e.Left)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case ir.OpAnd:
		if !IsTruthy(l) {
			return BoolValue{Val: false}, nil
		}
		r, err := m.eval(e.Right)
		if err != nil {
			return nil, err
		}
		return BoolValue{Val: IsTruthy(r)}, nil
	case ir.OpOr:
		if IsTruthy(l) {
			return BoolValue{Val: true}, nil
		}
		r, err := m.eval(e.Right)
		if err != nil {
			return nil, err
		}
		return BoolValue{Val: IsTruthy(r)}, nil
	}

	r, err := m.eval(e.Right)
	if err != nil {
		return nil, err
	}
	a, b := asInt(l), asInt(r)
	switch e.Op {
	case ir.OpAdd:
		return IntValue{Val: a + b}, nil
	case ir.OpSub:
		return IntValue{Val: a - b}, nil
	case ir.OpMul:
		return IntValue{Val: a * b}, nil
	case ir.OpDiv, ir.OpMod:
		if b == 0 {
			return nil, &halt{kind: ResultFault, detail: "division by zero"}
		}
		if e.Op == ir.OpDiv {
			return IntValue{Val: a / b}, nil
		}
		return IntValue{Val: a % b}, nil
	case ir.OpEq:
		return BoolValue{Val: a == b}, nil
	case ir.OpNeq:
		return BoolValue{Val: a != b}, nil
	case ir.OpLt:
		return BoolValue{Val: a < b}, nil
	case ir.OpLte:
		return BoolValue{Val: a <= b}, nil
	case ir.OpGt:
		return BoolValue{Val: a > b}, nil
	case ir.OpGte:
		return BoolValue{Val: a >= b}, nil
	}
	return nil, &halt{kind: ResultFault, detail: fmt.Sprintf("unknown operator %s", e.Op)}
}
