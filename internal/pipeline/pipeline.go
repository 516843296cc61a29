// Package pipeline defines the ordered phase lists handed to the execution
// engine, and the contract the engine must satisfy. Phases are opaque
// descriptors: this package only builds, slices, and inserts into the list;
// it never interprets phase semantics.
package pipeline

import (
	"context"
	"fmt"

	"github.com/gqlpipe/gqlpipe/internal/language"
)

// Canonical phase names understood by the default runner.
const (
	PhaseParse       = "parse"
	PhaseValidate    = "validate"
	PhaseCheckMethod = "check_http_method"
	PhaseCoerce      = "coerce_variables"
	PhaseExecute     = "execute"
)

// Phase describes one stage of the execution pipeline.
type Phase struct {
	Name    string
	Options map[string]any
}

// Document is the resolved thing to execute: raw source text, or a syntax
// tree when a provider already supplied a parsed document.
type Document struct {
	Text string
	Tree *language.QueryDocument
}

// Empty reports whether no document was supplied at all.
func (d Document) Empty() bool { return d.Text == "" && d.Tree == nil }

// Params carries the per-request values the runner needs beyond the document.
type Params struct {
	Variables     map[string]any
	OperationName string
	Context       map[string]any
	Root          map[string]any
}

// Result is the engine's outcome in GraphQL response shape. Tree reports the
// parsed document so that build-time compilation can retain it.
type Result struct {
	Data   any
	Errors language.ErrorList
	Tree   *language.QueryDocument
}

// Runner executes a document through an ordered phase list. A nil error with
// a non-empty Result.Errors is a request that ran and produced GraphQL
// errors; a non-nil error is a failure of the pipeline itself.
type Runner interface {
	Run(ctx context.Context, doc Document, phases []Phase, params *Params) (*Result, error)
}

// MethodError reports a mismatch between the HTTP verb and the kind of
// operation the document requests.
type MethodError struct {
	Operation language.Operation
	Method    string
}

func (e *MethodError) Error() string {
	switch e.Operation {
	case language.Mutation:
		return fmt.Sprintf("Can only perform a mutation from a POST request (got %s)", e.Method)
	case language.Subscription:
		return "Subscriptions are not supported over plain HTTP"
	default:
		return fmt.Sprintf("operation not allowed over %s", e.Method)
	}
}

// Default builds the standard parse → validate → coerce → execute sequence.
func Default() []Phase {
	return []Phase{
		{Name: PhaseParse},
		{Name: PhaseValidate},
		{Name: PhaseCoerce},
		{Name: PhaseExecute},
	}
}

// Compilation is the build-time prefix of the default pipeline: everything up
// to, but excluding, variable coercion.
func Compilation() []Phase {
	return UpTo(Default(), PhaseCoerce)
}

// Index returns the position of the first phase named name, or -1.
func Index(phases []Phase, name string) int {
	for i, p := range phases {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// InsertAfter returns phases with insert placed immediately after the first
// phase named name. If name is not present, insert is appended.
func InsertAfter(phases []Phase, name string, insert Phase) []Phase {
	i := Index(phases, name)
	if i < 0 {
		return append(append([]Phase(nil), phases...), insert)
	}
	out := make([]Phase, 0, len(phases)+1)
	out = append(out, phases[:i+1]...)
	out = append(out, insert)
	out = append(out, phases[i+1:]...)
	return out
}

// After slices phases to start immediately after the first phase named name.
// If name is not present, the full list is returned unchanged.
func After(phases []Phase, name string) []Phase {
	i := Index(phases, name)
	if i < 0 {
		return phases
	}
	return phases[i+1:]
}

// UpTo slices phases to end immediately before the first phase named name.
func UpTo(phases []Phase, name string) []Phase {
	i := Index(phases, name)
	if i < 0 {
		return phases
	}
	return phases[:i]
}

// WithMethodCheck inserts the HTTP-method validation phase immediately after
// the phase that determines the current operation, so the check runs once the
// operation kind is known.
func WithMethodCheck(phases []Phase, method string) []Phase {
	return InsertAfter(phases, PhaseValidate, Phase{
		Name:    PhaseCheckMethod,
		Options: map[string]any{"method": method},
	})
}
