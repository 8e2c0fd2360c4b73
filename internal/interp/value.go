package interp

import (
	"fmt"
	"sort"
	"strings"
)

// Value is a concrete integer or boolean.
type Value interface {
	isValue()
	String() string
	Equal(other Value) bool
}

// IntValue represents an integer.
type IntValue struct {
	Val int64
}

func (IntValue) isValue() {}
func (v IntValue) String() string {
	return fmt.Sprintf("%d", v.Val)
}

func (v IntValue) Equal(other Value) bool {
	return other != nil && v.Val == asInt(other)
}

// BoolValue represents a boolean.
type BoolValue struct {
	Val bool
}

func (BoolValue) isValue() {}
func (v BoolValue) String() string {
	return fmt.Sprintf("%t", v.Val)
}

func (v BoolValue) Equal(other Value) bool {
	return other != nil && asInt(v) == asInt(other)
}

// IsTruthy returns true for true and for non-zero integers.
func IsTruthy(v Value) bool {
	switch val := v.(type) {
	case BoolValue:
		return val.Val
	case IntValue:
		return val.Val != 0
	default:
		return false
	}
}

func asInt(v Value) int64 {
	switch val := v.(type) {
	case IntValue:
		return val.Val
	case BoolValue:
		if val.Val {
			return 1
		}
	}
	return 0
}

// Env maps variable names to their values. A name that was never set is
// uninitialized and reading it is a fault.
type Env struct {
	vars map[string]Value
}

// NewEnv creates a new empty environment.
func NewEnv() *Env {
	return &Env{vars: make(map[string]Value)}
}

// Get retrieves the value of a variable.
func (e *Env) Get(name string) (Value, bool) {
	v, ok := e.vars[name]
	return v, ok
}

// Set sets the value of a variable.
func (e *Env) Set(name string, val Value) {
	e.vars[name] = val
}

// Clone creates a copy of the environment.
func (e *Env) Clone() *Env {
	out := &Env{vars: make(map[string]Value, len(e.vars))}
	for k, v := range e.vars {
		out.vars[k] = v
	}
	return out
}

// Keys returns the variable names in sorted order.
func (e *Env) Keys() []string {
	keys := make([]string, 0, len(e.vars))
	for k := range e.vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (e *Env) String() string {
	parts := make([]string, 0, len(e.vars))
	for _, k := range e.Keys() {
		parts = append(parts, k+"="+e.vars[k].String())
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
