// Package provider implements the pluggable chain of strategies that decide
// which document an incoming request should execute. Providers are tried
// strictly in list order; the first to claim the request wins.
package provider

import (
	"github.com/gqlpipe/gqlpipe/internal/pipeline"
	"github.com/gqlpipe/gqlpipe/internal/request"
)

// Action is a provider's verdict on a request.
type Action int

const (
	// Cont declines the request and passes it to the next provider.
	Cont Action = iota
	// Halt claims the request and stops the chain.
	Halt
)

// Options is the arbitrary option map configured per provider binding.
type Options map[string]any

// DocumentProvider resolves which document a request should execute.
type DocumentProvider interface {
	// Name identifies the provider in events and metrics.
	Name() string

	// Resolve inspects (and may rewrite) the request. Returning Halt claims
	// the request; Cont passes it on unchanged or rewritten.
	Resolve(req *request.Request, opts Options) (Action, error)

	// Pipeline returns the phases still required for a request this
	// provider claimed, given the request's configured pipeline.
	Pipeline(req *request.Request) []pipeline.Phase
}

// Binding pairs a provider with its configured options.
type Binding struct {
	Provider DocumentProvider
	Options  Options
}

// Bind normalizes a bare provider reference to a binding with empty options.
func Bind(p DocumentProvider) Binding {
	return Binding{Provider: p, Options: Options{}}
}

// ErrUnresolved is returned when the chain exhausts without any provider
// claiming the request.
var ErrUnresolved = &request.InputError{Message: "no document provider could process the request"}

// ResolveChain folds the request through the bindings in order. The first
// Halt wins and is returned so the caller can apply its residual pipeline;
// exhaustion is an input error.
func ResolveChain(bindings []Binding, req *request.Request) (Binding, error) {
	for _, b := range bindings {
		action, err := b.Provider.Resolve(req, b.Options)
		if err != nil {
			return Binding{}, err
		}
		if action == Halt {
			req.Provider = b.Provider.Name()
			return b, nil
		}
	}
	return Binding{}, ErrUnresolved
}

// Default is the literal-document provider: the request body or query param
// is the document. It declines when no document was extracted so that
// compiled or persisted providers later in the list can supply one.
type Default struct{}

func (Default) Name() string { return "default" }

func (Default) Resolve(req *request.Request, _ Options) (Action, error) {
	if req.Document.Empty() {
		return Cont, nil
	}
	return Halt, nil
}

// Pipeline returns the configured pipeline unchanged: nothing was
// precompiled, so every phase still must run.
func (Default) Pipeline(req *request.Request) []pipeline.Phase {
	return req.Pipeline
}
