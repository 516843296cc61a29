// Package registry holds documents precompiled at startup. Each literal
// document runs through a strict prefix of the runtime pipeline once, before
// the server accepts traffic; lookups at request time are exact-match reads
// over an immutable table.
package registry

import (
	"context"

	"github.com/pkg/errors"

	"github.com/gqlpipe/gqlpipe/internal/language"
	"github.com/gqlpipe/gqlpipe/internal/pipeline"
)

// Entry is one compiled document. Built once, immutable afterward.
type Entry struct {
	ID        string
	Source    string
	Tree      *language.QueryDocument
	LastPhase string
}

// Registry is the immutable id → compiled document table.
type Registry struct {
	module  string
	entries map[string]*Entry
}

// Build compiles every literal document through phases using runner. module
// names the owning registration site and appears in failure messages. Any
// compilation failure is fatal: a broken precompiled document must never
// reach runtime.
func Build(module string, documents map[string]string, runner pipeline.Runner, phases []pipeline.Phase) (*Registry, error) {
	if len(phases) == 0 {
		phases = pipeline.Compilation()
	}
	lastPhase := phases[len(phases)-1].Name

	entries := make(map[string]*Entry, len(documents))
	for id, source := range documents {
		res, err := runner.Run(context.Background(), pipeline.Document{Text: source}, phases, &pipeline.Params{})
		if err != nil {
			return nil, errors.Wrapf(err, "compiling document %q in %s", id, module)
		}
		if len(res.Errors) > 0 {
			return nil, errors.Errorf("compiling document %q in %s: %s", id, module, res.Errors.Error())
		}
		if res.Tree == nil {
			return nil, errors.Errorf("compiling document %q in %s: pipeline produced no syntax tree", id, module)
		}
		entries[id] = &Entry{ID: id, Source: source, Tree: res.Tree, LastPhase: lastPhase}
	}
	return &Registry{module: module, entries: entries}, nil
}

// MustBuild is Build for init-time registration; it panics on failure so a
// broken document aborts startup.
func MustBuild(module string, documents map[string]string, runner pipeline.Runner, phases []pipeline.Phase) *Registry {
	reg, err := Build(module, documents, runner, phases)
	if err != nil {
		panic(err)
	}
	return reg
}

// Module returns the owning registration site.
func (r *Registry) Module() string { return r.module }

// Lookup returns the entry for id. An unknown id is a miss, never an error.
func (r *Registry) Lookup(id string) (*Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Len reports the number of compiled documents.
func (r *Registry) Len() int { return len(r.entries) }
