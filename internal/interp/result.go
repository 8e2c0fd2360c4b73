package interp

import (
	"fmt"
	"strings"
)

// ResultKind represents how a run ended.
type ResultKind int

const (
	_ ResultKind = iota
	// ResultFinished: control fell off the end of the body.
	ResultFinished
	// ResultReturn: a return statement was executed.
	ResultReturn
	// ResultExhausted: the step or call budget ran out.
	ResultExhausted
	// ResultFault: the tree did something undefined, such as reading a
	// variable that was never assigned.
	ResultFault
)

func (k ResultKind) String() string {
	switch k {
	case ResultFinished:
		return "Finished"
	case ResultReturn:
		return "Return"
	case ResultExhausted:
		return "Exhausted"
	case ResultFault:
		return "Fault"
	default:
		return "?"
	}
}

// CallRecord is one observed call.
type CallRecord struct {
	Func     string
	Args     []Value
	Decision bool
	Result   Value // scripted value of a decision
}

func (c CallRecord) String() string {
	var sb strings.Builder
	sb.WriteString(c.Func)
	sb.WriteByte('(')
	for i, arg := range c.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(arg.String())
	}
	sb.WriteByte(')')
	if c.Decision {
		sb.WriteString("=")
		sb.WriteString(c.Result.String())
	}
	return sb.String()
}

// Equal compares name, arguments, kind and decision value.
func (c CallRecord) Equal(other CallRecord) bool {
	if c.Func != other.Func || c.Decision != other.Decision || len(c.Args) != len(other.Args) {
		return false
	}
	for i := range c.Args {
		if !c.Args[i].Equal(other.Args[i]) {
			return false
		}
	}
	if c.Decision {
		return c.Result.Equal(other.Result)
	}
	return true
}

// Result is the outcome of one run.
type Result struct {
	Kind   ResultKind
	Values []Value // returned values, valid for Return
	Calls  []CallRecord
	Detail string // reason for Fault or Exhausted
	Steps  int
}

// Actions returns the names of the action calls in order.
func (r Result) Actions() []string {
	var out []string
	for _, c := range r.Calls {
		if !c.Decision {
			out = append(out, c.Func)
		}
	}
	return out
}

// Trace renders the call record on one line.
func (r Result) Trace() string {
	parts := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

func (r Result) String() string {
	switch r.Kind {
	case ResultReturn:
		vals := make([]string, len(r.Values))
		for i, v := range r.Values {
			vals[i] = v.String()
		}
		return fmt.Sprintf("Return(%s) [%s]", strings.Join(vals, ", "), r.Trace())
	case ResultExhausted, ResultFault:
		return fmt.Sprintf("%s(%s) [%s]", r.Kind, r.Detail, r.Trace())
	default:
		return fmt.Sprintf("%s [%s]", r.Kind, r.Trace())
	}
}

func callsEqual(a, b []CallRecord) bool {
	if len(a) != len(b) {
		return false
	}
	return commonPrefix(a, b) == len(a)
}

// commonPrefix returns the length of the longest shared prefix.
func commonPrefix(a, b []CallRecord) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if !a[i].Equal(b[i]) {
			return i
		}
	}
	return n
}
