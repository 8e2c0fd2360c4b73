package eliminate

import (
	"fmt"

	"github.com/gnoswap-labs/degoto/internal/ir"
)

// Flag is the boolean that carries a jump to one label.
type Flag struct {
	Name  string
	Label string
	// NeedsReset is set when some rewrite reads the flag before the jump
	// assigns it on every path. The label marker then becomes `flag = false`
	// so the flag is true only while a jump is in flight.
	NeedsReset bool
	Jumps      int
}

// Registry hands out flag and temporary names that do not collide with
// identifiers of the function.
type Registry struct {
	prefix string
	taken  map[string]struct{}
	flags  map[string]*Flag
	order  []*Flag
	temps  []string
}

// NewRegistry creates a registry. taken holds the names already in use.
func NewRegistry(prefix string, taken map[string]struct{}) *Registry {
	if prefix == "" {
		prefix = DefaultFlagPrefix
	}
	r := &Registry{
		prefix: prefix,
		taken:  make(map[string]struct{}, len(taken)),
		flags:  make(map[string]*Flag),
	}
	for n := range taken {
		r.taken[n] = struct{}{}
	}
	return r
}

// FlagFor returns the flag of label, creating it on first use.
func (r *Registry) FlagFor(label string) *Flag {
	if f, ok := r.flags[label]; ok {
		return f
	}
	f := &Flag{Name: r.Fresh(r.prefix + label), Label: label}
	r.flags[label] = f
	r.order = append(r.order, f)
	return f
}

// Lookup returns the flag of label if one was created.
func (r *Registry) Lookup(label string) (*Flag, bool) {
	f, ok := r.flags[label]
	return f, ok
}

// Temp returns a new integer temporary.
func (r *Registry) Temp() string {
	name := r.Fresh(fmt.Sprintf("sw_%d", len(r.temps)))
	r.temps = append(r.temps, name)
	return name
}

// Fresh returns base, or base with a numeric suffix, unused so far.
func (r *Registry) Fresh(base string) string {
	name := base
	for i := 2; ; i++ {
		if _, ok := r.taken[name]; !ok {
			break
		}
		name = fmt.Sprintf("%s_%d", base, i)
	}
	r.taken[name] = struct{}{}
	return name
}

// Flags returns the flags in creation order.
func (r *Registry) Flags() []*Flag {
	return r.order
}

// Decls returns the function-top declarations: every flag false and every
// temporary zero.
func (r *Registry) Decls() []ir.Decl {
	decls := make([]ir.Decl, 0, len(r.order)+len(r.temps))
	for _, f := range r.order {
		decls = append(decls, ir.Decl{Name: f.Name, Type: "bool", Init: ir.Bool(false)})
	}
	for _, t := range r.temps {
		decls = append(decls, ir.Decl{Name: t, Type: "int", Init: ir.Int(0)})
	}
	return decls
}
