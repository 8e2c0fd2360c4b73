package eliminate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gnoswap-labs/degoto/internal/ir"
)

// ErrorKind identifies why a transformation was rejected.
type ErrorKind int

const (
	_ ErrorKind = iota
	// KindUnresolvedLabel: a jump names a label that does not exist.
	KindUnresolvedLabel
	// KindDuplicateLabel: two markers share one name.
	KindDuplicateLabel
	// KindUnclassifiableJump: no rewrite rule matches the jump.
	KindUnclassifiableJump
	// KindFixpointLimitExceeded: the round bound was hit with jumps left.
	KindFixpointLimitExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnresolvedLabel:
		return "unresolved label"
	case KindDuplicateLabel:
		return "duplicate label"
	case KindUnclassifiableJump:
		return "unclassifiable jump"
	case KindFixpointLimitExceeded:
		return "fixpoint limit exceeded"
	default:
		return "?"
	}
}

// Sentinel errors matched by errors.Is against an *Error of the same kind.
var (
	ErrUnresolvedLabel       = errors.New("unresolved label")
	ErrDuplicateLabel        = errors.New("duplicate label")
	ErrUnclassifiableJump    = errors.New("unclassifiable jump")
	ErrFixpointLimitExceeded = errors.New("fixpoint limit exceeded")
)

// Error is returned by the locator, classifier and driver.
type Error struct {
	Kind   ErrorKind
	Label  string
	Pos    ir.Pos
	Detail string
	// Remaining holds the jumps still present when the round bound was hit.
	Remaining []Edge
}

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s", e.Pos, e.Kind)
	if e.Label != "" {
		fmt.Fprintf(&sb, " %q", e.Label)
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	if len(e.Remaining) > 0 {
		fmt.Fprintf(&sb, " (%d jumps left:", len(e.Remaining))
		for _, r := range e.Remaining {
			fmt.Fprintf(&sb, " %s->%s", r.Goto.At, r.Label)
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindUnresolvedLabel:
		return ErrUnresolvedLabel
	case KindDuplicateLabel:
		return ErrDuplicateLabel
	case KindUnclassifiableJump:
		return ErrUnclassifiableJump
	case KindFixpointLimitExceeded:
		return ErrFixpointLimitExceeded
	}
	return nil
}

// IsStatic reports whether the error describes a malformed input tree
// rather than a failure of the rewrite itself.
func (e *Error) IsStatic() bool {
	return e.Kind == KindUnresolvedLabel || e.Kind == KindDuplicateLabel
}

func unclassifiable(e Edge, format string, args ...any) *Error {
	return &Error{
		Kind:   KindUnclassifiableJump,
		Label:  e.Label,
		Pos:    e.Goto.At,
		Detail: fmt.Sprintf(format, args...),
	}
}
