package interp

import (
	"fmt"
	"iter"

	"github.com/gnoswap-labs/degoto/internal/ir"
)

// VerificationResult represents the result of equivalence verification.
type VerificationResult int

const (
	_ VerificationResult = iota
	// Equivalent: no script distinguishes the two trees.
	Equivalent
	// NotEquivalent: some script produces different behavior.
	NotEquivalent
	// Unknown: the original itself faults, so there is nothing to compare.
	Unknown
)

func (r VerificationResult) String() string {
	switch r {
	case Equivalent:
		return "Equivalent"
	case NotEquivalent:
		return "NotEquivalent"
	case Unknown:
		return "Unknown"
	default:
		return "?"
	}
}

// ReasonCode provides a reason for the verification result.
type ReasonCode int

const (
	ReasonNone ReasonCode = iota
	ReasonSameBehavior
	ReasonBounded
	ReasonDifferentKind
	ReasonDifferentValue
	ReasonDifferentCalls
	ReasonFault
	ReasonOriginalFault
)

func (r ReasonCode) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonSameBehavior:
		return "same behavior for all scripts"
	case ReasonBounded:
		return "same calls up to the run budget"
	case ReasonDifferentKind:
		return "different termination"
	case ReasonDifferentValue:
		return "different return values"
	case ReasonDifferentCalls:
		return "different call sequences"
	case ReasonFault:
		return "rewritten tree faults"
	case ReasonOriginalFault:
		return "original tree faults"
	default:
		return "unknown"
	}
}

// VerificationReport provides detailed information about verification.
type VerificationReport struct {
	Result VerificationResult
	Reason ReasonCode
	Detail string
	// Script is the counterexample, or nil when equivalent.
	Script      []int64
	Original    Result
	Transformed Result
	// Scripts is the number of scripts that were run.
	Scripts int
}

// VerifyConfig configures a Verifier.
type VerifyConfig struct {
	Run Config
	// Depth is the length of every script tried.
	Depth int
	// Alphabet holds the values a decision may take.
	Alphabet []int64
}

// DefaultVerifyConfig tries every boolean script of length 6.
func DefaultVerifyConfig() VerifyConfig {
	return VerifyConfig{
		Run:      DefaultConfig(),
		Depth:    6,
		Alphabet: []int64{0, 1},
	}
}

// Verifier checks two trees against every script of a fixed length.
type Verifier struct {
	config VerifyConfig
}

// NewVerifier creates a new verifier with the given configuration.
func NewVerifier(config VerifyConfig) *Verifier {
	if len(config.Alphabet) == 0 {
		config.Alphabet = []int64{0, 1}
	}
	if config.Depth < 0 {
		config.Depth = 0
	}
	return &Verifier{config: config}
}

// Scripts yields every sequence of length depth over alphabet, in
// lexicographic order. The yielded slice is reused between iterations.
func Scripts(alphabet []int64, depth int) iter.Seq[[]int64] {
	return func(yield func([]int64) bool) {
		idx := make([]int, depth)
		script := make([]int64, depth)
		for {
			for i, k := range idx {
				script[i] = alphabet[k]
			}
			if !yield(script) {
				return
			}
			i := depth - 1
			for ; i >= 0; i-- {
				idx[i]++
				if idx[i] < len(alphabet) {
					break
				}
				idx[i] = 0
			}
			if i < 0 {
				return
			}
		}
	}
}

// CheckEquivalence runs original and transformed (preceded by decls) under
// every script and reports the first difference.
func (v *Verifier) CheckEquivalence(original, transformed *ir.Block, decls []ir.Decl) VerificationReport {
	report := VerificationReport{Result: Equivalent, Reason: ReasonSameBehavior}
	for script := range Scripts(v.config.Alphabet, v.config.Depth) {
		report.Scripts++
		r1 := Run(original, nil, script, v.config.Run)
		r2 := Run(transformed, decls, script, v.config.Run)

		reason, detail := compare(r1, r2)
		switch reason {
		case ReasonSameBehavior:
			continue
		case ReasonBounded:
			report.Reason = ReasonBounded
			continue
		}
		report.Reason = reason
		report.Detail = detail
		report.Script = append([]int64(nil), script...)
		report.Original = r1
		report.Transformed = r2
		if reason == ReasonOriginalFault {
			report.Result = Unknown
		} else {
			report.Result = NotEquivalent
		}
		return report
	}
	return report
}

func compare(r1, r2 Result) (ReasonCode, string) {
	if r1.Kind == ResultFault {
		return ReasonOriginalFault, r1.Detail
	}
	if r2.Kind == ResultFault {
		return ReasonFault, r2.Detail
	}

	if r1.Kind == ResultExhausted || r2.Kind == ResultExhausted {
		// Only the calls both runs got to make can be compared. A run that
		// ended on its own must have made at least as many.
		n := commonPrefix(r1.Calls, r2.Calls)
		if r1.Kind != ResultExhausted && n < len(r2.Calls) ||
			r2.Kind != ResultExhausted && n < len(r1.Calls) ||
			n < min(len(r1.Calls), len(r2.Calls)) {
			return ReasonDifferentCalls, fmt.Sprintf("calls differ at #%d: %s vs %s", n, r1, r2)
		}
		return ReasonBounded, ""
	}

	if r1.Kind != r2.Kind {
		return ReasonDifferentKind, fmt.Sprintf("%s vs %s", r1.Kind, r2.Kind)
	}
	if !callsEqual(r1.Calls, r2.Calls) {
		return ReasonDifferentCalls, fmt.Sprintf("calls differ at #%d: %s vs %s", commonPrefix(r1.Calls, r2.Calls), r1, r2)
	}
	if len(r1.Values) != len(r2.Values) {
		return ReasonDifferentValue, fmt.Sprintf("%s vs %s", r1, r2)
	}
	for i := range r1.Values {
		if !r1.Values[i].Equal(r2.Values[i]) {
			return ReasonDifferentValue, fmt.Sprintf("%s vs %s", r1, r2)
		}
	}
	return ReasonSameBehavior, ""
}
