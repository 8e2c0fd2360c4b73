// Package interp executes statement trees against scripted decisions.
//
// It is the oracle used to check that a jump-free rewrite behaves like
// its input. Every call whose value is consumed (a condition, a switch
// tag, an assignment) is a decision and takes the next value of a script;
// every call made as a statement is an action. Both are recorded in the
// order they happen, and two trees are equivalent when they produce the
// same record for every script.
//
// Jumps are executed directly: a goto unwinds to the innermost statement
// list that contains its label and resumes there, entering nested
// structures on the way without evaluating their tests. Jumping into a
// counting loop runs its initializer and skips the first test.
//
// Non-termination is bounded by a step and a call budget; an exhausted run
// is compared by the prefix of calls it made.
package interp
