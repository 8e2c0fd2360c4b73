package eliminate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnoswap-labs/degoto/internal/interp"
	. "github.com/gnoswap-labs/degoto/internal/ir"
)

// transform eliminates every jump in body and checks the result against
// the original under every decision script.
func transform(t *testing.T, body *Block) *Result {
	t.Helper()
	res, err := Eliminate(body, Options{})
	require.NoError(t, err)
	assert.Zero(t, CountGotos(res.Body), Format(res.Body))
	assert.Zero(t, CountLabels(res.Body), Format(res.Body))

	report := interp.NewVerifier(interp.DefaultVerifyConfig()).CheckEquivalence(body, res.Body, res.Decls)
	require.Equal(t, interp.Equivalent, report.Result,
		"%s\nscript %v\n--- original\n%s\n--- rewritten\n%s\n%s",
		report.Detail, report.Script, Format(body), FormatDecls(res.Decls), Format(res.Body))
	return res
}

func actions(t *testing.T, res *Result, script ...int64) interp.Result {
	t.Helper()
	return interp.Run(res.Body, res.Decls, script, interp.DefaultConfig())
}

func count(names []string, name string) int {
	n := 0
	for _, s := range names {
		if s == name {
			n++
		}
	}
	return n
}

func TestForwardIntoCountingLoop(t *testing.T) {
	t.Parallel()
	body := Body(
		JumpIf(CallE("jump"), "mid"),
		Do("foo"),
		ForLoop(Set("i", Int(0)), Lt(V("i"), Int(10)), Inc("i"),
			Mark("mid"),
			Do("foo"),
		),
		Ret(Int(0)),
	)
	res := transform(t, body)

	assert.Equal(t, `goto_mid = jump();
if (!goto_mid) {
    foo();
}
for (i = 0; goto_mid || (i < 10); i++) {
    goto_mid = false;
    foo();
}
return 0;`, Format(res.Body))
	assert.Equal(t, "bool goto_mid = false;", FormatDecls(res.Decls))
	assert.Equal(t, 1, res.Stats.ForwardInto)

	taken := actions(t, res, 1)
	assert.Equal(t, 10, count(taken.Actions(), "foo"))
	natural := actions(t, res, 0)
	assert.Equal(t, 11, count(natural.Actions(), "foo"))
}

func TestForwardIntoSwitch(t *testing.T) {
	t.Parallel()
	body := Body(
		Set("v", Int(1)),
		JumpIf(CallE("jump"), "mid"),
		Do("before"),
		SwitchOn(V("v"),
			CaseOf([]Expr{Int(1)}, Do("one"), Mark("mid"), Do("target"), Brk()),
			Default(Do("other")),
		),
	)
	res := transform(t, body)

	assert.Equal(t, []string{"target"}, actions(t, res, 1).Actions())
	assert.Equal(t, []string{"before", "one", "target"}, actions(t, res, 0).Actions())

	var sw *Switch
	Inspect(res.Body, func(s Stmt) bool {
		if x, ok := s.(*Switch); ok {
			sw = x
		}
		return true
	})
	require.NotNil(t, sw)
	assert.Nil(t, sw.Tag)
	assert.Equal(t, "goto_mid || (v == 1)", sw.Cases[0].Exprs[0].String())
	assert.True(t, sw.Cases[1].IsDefault())
	assert.Zero(t, res.Stats.Temps)
}

func TestForwardIntoSwitchWithCallTag(t *testing.T) {
	t.Parallel()
	body := Body(
		JumpIf(CallE("jump"), "mid"),
		Do("before"),
		SwitchOn(CallE("pick"),
			CaseOf([]Expr{Int(0)}, Do("zero")),
			CaseOf([]Expr{Int(1), Int(2)}, Do("small"), Mark("mid"), Do("target")),
			Default(Do("other")),
		),
	)
	res := transform(t, body)
	assert.Equal(t, 1, res.Stats.Temps)
	assert.Equal(t, "bool goto_mid = false;\nint sw_0 = 0;", FormatDecls(res.Decls))
}

func TestBackwardRestart(t *testing.T) {
	t.Parallel()
	body := Body(
		Mark("start"),
		Do("foo"),
		ForLoop(Set("i", Int(0)), Lt(V("i"), Int(10)), Inc("i"),
			JumpIf(CallE("jump"), "start"),
			Do("bar"),
		),
		Ret(Int(0)),
	)
	res := transform(t, body)

	assert.Equal(t, `do {
    goto_start = false;
    foo();
    for (i = 0; i < 10; i++) {
        goto_start = jump();
        if (goto_start) {
            break;
        }
        bar();
    }
} while (goto_start);
return 0;`, Format(res.Body))
	assert.Equal(t, 1, res.Stats.BackwardRestart)

	// A restart on the third pass re-runs the initial call and the whole loop.
	r := actions(t, res, 0, 0, 1)
	require.Equal(t, interp.ResultReturn, r.Kind)
	acts := r.Actions()
	assert.Equal(t, []string{"foo", "bar", "bar", "foo"}, acts[:4])
	assert.Equal(t, 2, count(acts, "foo"))
	assert.Equal(t, 12, count(acts, "bar"))
}

func TestBackwardRestartSameList(t *testing.T) {
	t.Parallel()
	body := Body(
		Mark("again"),
		Do("step"),
		JumpIf(CallE("more"), "again"),
		Do("done"),
	)
	res := transform(t, body)
	assert.Equal(t, `do {
    step();
    goto_again = more();
} while (goto_again);
done();`, Format(res.Body))
	assert.Equal(t, 0, res.Stats.Resets)
}

func TestSiblingEscape(t *testing.T) {
	t.Parallel()
	body := Body(
		JumpIf(CallE("jump"), "end"),
		WhileLoop(Bool(true),
			ForLoop(Set("i", Int(0)), Lt(V("i"), Int(3)), Inc("i"),
				Do("foo"),
			),
		),
		Mark("end"),
		Do("cleanup"),
		Ret(Int(0)),
	)
	res := transform(t, body)
	assert.Equal(t, 1, res.Stats.SiblingEscape)

	taken := actions(t, res, 1)
	assert.Equal(t, interp.ResultReturn, taken.Kind)
	assert.Equal(t, []string{"cleanup"}, taken.Actions())

	spinning := actions(t, res, 0)
	assert.Equal(t, interp.ResultExhausted, spinning.Kind)
	assert.NotContains(t, spinning.Actions(), "cleanup")
}

func TestSharedFlagStaysSet(t *testing.T) {
	t.Parallel()
	body := Body(
		IfThen(CallE("c"), JumpIf(CallE("d"), "L"), Jump("L")),
		Do("skipped"),
		Mark("L"),
		Do("target"),
	)
	res := transform(t, body)

	assert.NotContains(t, Format(res.Body), "goto_L = !goto_L")
	assert.Equal(t, []string{"target"}, actions(t, res, 1, 1).Actions())
	assert.Equal(t, []string{"target"}, actions(t, res, 1, 0).Actions())
	assert.Equal(t, []string{"skipped", "target"}, actions(t, res, 0).Actions())
}

func TestAssignFlagReadingItself(t *testing.T) {
	t.Parallel()
	f := &Flag{Name: "goto_L", Label: "L"}

	assert.Empty(t, assignFlag(f, V("goto_L"), Pos{}))
	assert.Equal(t, "goto_L = true;", Format(assignFlag(f, Not(V("goto_L")), Pos{})[0]))
	assert.Equal(t, "goto_L = goto_L || (x && !goto_L);",
		Format(assignFlag(f, And(V("x"), Not(V("goto_L"))), Pos{})[0]))
	assert.Equal(t, "goto_L = d();", Format(assignFlag(f, CallE("d"), Pos{})[0]))
}

func TestEquivalence(t *testing.T) {
	t.Parallel()
	labeled := func(s Stmt, name string) Stmt {
		SetLoopLabel(s, name)
		return s
	}
	tests := []struct {
		name string
		body *Block
	}{
		{
			name: "two jumps to one label",
			body: Body(
				JumpIf(CallE("a"), "L"),
				Do("x"),
				JumpIf(CallE("b"), "L"),
				Do("y"),
				Mark("L"),
				Do("z"),
			),
		},
		{
			name: "adjacent jumps to one label",
			body: Body(
				IfThen(CallE("c"), JumpIf(CallE("d"), "L"), Jump("L")),
				Do("skipped"),
				Mark("L"),
				Do("target"),
			),
		},
		{
			name: "across branches of one if",
			body: Body(
				IfElse(CallE("p"),
					Body(Do("a"), Mark("L"), Do("b")),
					Body(Do("d"), Jump("L")),
				),
				Do("e"),
			),
		},
		{
			name: "restart from a nested loop",
			body: Body(
				WhileLoop(CallE("w"),
					Mark("L"),
					Do("a"),
					ForLoop(Set("i", Int(0)), Lt(V("i"), Int(2)), Inc("i"),
						JumpIf(CallE("c"), "L"),
						IfThen(CallE("d"), Cont()),
						Do("b"),
					),
					IfThen(CallE("e"), Brk()),
				),
			),
		},
		{
			name: "restart region holds a break",
			body: Body(
				WhileLoop(CallE("w"),
					Mark("L"),
					Do("a"),
					IfThen(CallE("e"), Brk()),
					JumpIf(CallE("c"), "L"),
				),
				Do("after"),
			),
		},
		{
			name: "restart region holds a continue",
			body: Body(
				ForLoop(Set("i", Int(0)), Lt(V("i"), Int(3)), Inc("i"),
					Mark("L"),
					Do("a"),
					IfThen(CallE("d"), Cont()),
					JumpIf(CallE("c"), "L"),
					Do("b"),
				),
			),
		},
		{
			name: "backward into a branch",
			body: Body(
				IfThen(CallE("p"), Do("a"), Mark("L"), Do("b")),
				Do("c"),
				JumpIf(CallE("q"), "L"),
				Do("d"),
			),
		},
		{
			name: "backward into a counting loop",
			body: Body(
				ForLoop(Set("i", Int(0)), Lt(V("i"), Int(3)), Inc("i"),
					Mark("L"),
					Do("a"),
				),
				JumpIf(CallE("c"), "L"),
			),
		},
		{
			name: "forward into else",
			body: Body(
				JumpIf(CallE("j"), "L"),
				IfElse(CallE("p"),
					Body(Do("a")),
					Body(Do("b"), Mark("L"), Do("c")),
				),
			),
		},
		{
			name: "forward into while and do-while",
			body: Body(
				JumpIf(CallE("j"), "L1"),
				WhileLoop(CallE("w"), Do("a"), Mark("L1"), Do("b")),
				JumpIf(CallE("k"), "L2"),
				DoLoop(CallE("u"), Do("c"), Mark("L2"), Do("d")),
			),
		},
		{
			name: "forward into nested structures",
			body: Body(
				JumpIf(CallE("j"), "deep"),
				WhileLoop(CallE("w"),
					Do("a"),
					IfThen(CallE("p"),
						Do("b"),
						SwitchOn(CallE("t"),
							CaseOf([]Expr{Int(1)}, Do("c"), Mark("deep"), Do("d")),
						),
					),
				),
				Do("e"),
			),
		},
		{
			name: "escape from a switch in a loop",
			body: Body(
				ForLoop(Set("i", Int(0)), Lt(V("i"), Int(3)), Inc("i"),
					SwitchOn(V("i"),
						CaseOf([]Expr{Int(1)}, JumpIf(CallE("c"), "out"), Do("a"), Brk()),
						Default(Do("b")),
					),
					Do("d"),
				),
				Mark("out"),
				Do("e"),
			),
		},
		{
			name: "interleaved labels",
			body: Body(
				Mark("L1"),
				Do("a"),
				JumpIf(CallE("p"), "L2"),
				Do("b"),
				JumpIf(CallE("q"), "L1"),
				Mark("L2"),
				Do("c"),
			),
		},
		{
			name: "unconditional jump out of a block",
			body: Body(
				Body(Do("a"), IfThen(CallE("p"), Do("b"), Jump("L")), Do("c")),
				Do("d"),
				Mark("L"),
				Do("e"),
			),
		},
		{
			name: "labeled break survives a restart",
			body: Body(
				labeled(WhileLoop(Bool(true),
					WhileLoop(CallE("w"),
						Mark("L"),
						Do("a"),
						IfThen(CallE("x"), Brk("outer")),
						JumpIf(CallE("c"), "L"),
					),
					Do("b"),
					IfThen(CallE("y"), Brk()),
				), "outer"),
				Do("done"),
			),
		},
		{
			name: "jump to the statement that follows",
			body: Body(Do("a"), Jump("next"), Mark("next"), Do("b")),
		},
		{
			name: "return inside a restarted region",
			body: Body(
				Mark("top"),
				IfThen(CallE("r"), Ret(Int(1))),
				Do("a"),
				JumpIf(CallE("c"), "top"),
				Ret(Int(0)),
			),
		},
		{
			name: "counted escape and re-entry",
			body: Body(
				Set("n", Int(0)),
				Mark("L"),
				Inc("n"),
				ForLoop(Set("i", Int(0)), Lt(V("i"), Int(2)), Inc("i"),
					Do("tick", V("n"), V("i")),
					IfThen(Lt(V("n"), Int(3)), Jump("L")),
				),
				Ret(V("n")),
			),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			transform(t, tt.body)
		})
	}
}

func TestIdempotent(t *testing.T) {
	t.Parallel()
	body := Body(
		Do("a"),
		WhileLoop(CallE("w"), IfThen(CallE("p"), Brk()), Do("b")),
		Ret(),
	)
	res, err := Eliminate(body, Options{})
	require.NoError(t, err)
	assert.Equal(t, Format(body), Format(res.Body))
	assert.Empty(t, res.Decls)
	assert.Zero(t, res.Stats.Rounds)

	// Rewriting a rewritten body changes nothing either.
	first := transform(t, Body(JumpIf(CallE("c"), "L"), Do("a"), Mark("L")))
	second, err := Eliminate(first.Body, Options{})
	require.NoError(t, err)
	assert.Equal(t, Format(first.Body), Format(second.Body))
	assert.Empty(t, second.Decls)
}

func TestInputIsNotModified(t *testing.T) {
	t.Parallel()
	body := Body(
		JumpIf(CallE("j"), "mid"),
		SwitchOn(V("v"), CaseOf([]Expr{Int(1)}, Mark("mid"), Do("a"))),
	)
	before := Format(body)
	_, err := Eliminate(body, Options{})
	require.NoError(t, err)
	assert.Equal(t, before, Format(body))
}

func TestFlagNames(t *testing.T) {
	t.Parallel()
	body := Body(
		Set("goto_L", Int(3)),
		JumpIf(CallE("c"), "L"),
		Do("a"),
		Mark("L"),
		Do("b", V("goto_L")),
	)
	res := transform(t, body)
	require.Len(t, res.Flags, 1)
	assert.Equal(t, "goto_L_2", res.Flags[0].Name)

	res, err := Eliminate(Body(Jump("L"), Mark("L")), Options{FlagPrefix: "jumped_"})
	require.NoError(t, err)
	assert.Equal(t, "jumped_L", res.Flags[0].Name)
}

func TestStaticErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		body  *Block
		want  error
		label string
	}{
		{
			name:  "unresolved",
			body:  Body(Do("a"), Jump("nowhere")),
			want:  ErrUnresolvedLabel,
			label: "nowhere",
		},
		{
			name:  "duplicate",
			body:  Body(Mark("L"), IfThen(CallE("p"), Mark("L")), Jump("L")),
			want:  ErrDuplicateLabel,
			label: "L",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Eliminate(tt.body, Options{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want))

			var e *Error
			require.True(t, errors.As(err, &e))
			assert.True(t, e.IsStatic())
			assert.Equal(t, tt.label, e.Label)
		})
	}
}

func TestFixpointLimit(t *testing.T) {
	t.Parallel()
	body := Body(
		JumpIf(CallE("a"), "L"),
		JumpIf(CallE("b"), "L"),
		Mark("L"),
	)
	_, err := Eliminate(body, Options{MaxRounds: 1})
	require.ErrorIs(t, err, ErrFixpointLimitExceeded)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.Len(t, e.Remaining, 1)
	assert.False(t, e.IsStatic())
}

func TestUnclassifiable(t *testing.T) {
	t.Parallel()
	g := Jump("L")
	root := Body(g)
	p := Path{{Block: root, Index: 0}}
	_, err := Classify(Edge{Goto: g, Label: "L", Jump: g, Decision: Bool(true), JumpPath: p, LabelPath: p})
	assert.ErrorIs(t, err, ErrUnclassifiableJump)
}

func TestInnermostFirst(t *testing.T) {
	t.Parallel()
	inner := JumpIf(CallE("q"), "in")
	body := Body(
		JumpIf(CallE("p"), "out"),
		WhileLoop(CallE("w"),
			inner,
			Do("a"),
			Mark("in"),
			Do("b"),
		),
		Mark("out"),
	)
	loc, err := NewLocator(body)
	require.NoError(t, err)
	r := &rewriter{root: body, reg: NewRegistry("", Names(body))}
	next, all, err := r.pick()
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "in", next.Label)

	p, ok := loc.LabelPath("in")
	require.True(t, ok)
	assert.Equal(t, "root[1].body[2]", p.String())
}
