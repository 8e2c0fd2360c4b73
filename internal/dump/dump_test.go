package dump

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/gnoswap-labs/degoto/internal/ir"
)

func TestRender(t *testing.T) {
	t.Parallel()
	loop := ForLoop(Set("i", Int(0)), Lt(V("i"), Int(10)), Inc("i"),
		Mark("mid"),
		Do("foo"),
	)
	loop.Label = "outer"
	out := Render(Body(
		JumpIf(CallE("jump"), "mid"),
		loop,
		SwitchOn(V("v"), CaseOf([]Expr{Int(1), Int(2)}, Brk()), Default(Ret())),
	))

	for _, want := range []string{
		"if", "cond: jump()", "then", "goto mid",
		"for", "label: outer", "init: i = 0", "cond: i < 10", "post: i++",
		"mid:", "foo()",
		"switch", "tag: v", "case 1, 2", "break", "default", "return",
	} {
		assert.Contains(t, out, want)
	}
}

func TestFprint(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := Fprint(&buf, Body(DoLoop(V("goto_L"), Do("foo"))), []Decl{{Name: "goto_L", Type: "bool", Init: Bool(false)}})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "do-while")
	assert.Contains(t, buf.String(), "bool goto_L = false")
}
