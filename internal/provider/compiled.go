package provider

import (
	"github.com/gqlpipe/gqlpipe/internal/pipeline"
	"github.com/gqlpipe/gqlpipe/internal/registry"
	"github.com/gqlpipe/gqlpipe/internal/request"
)

// DefaultKeyParam is the request field a Compiled provider looks up when the
// binding options don't override it.
const DefaultKeyParam = "id"

// Compiled resolves documents from a precompiled registry by id. It declines
// when the key field is absent or unknown, so later providers still get a
// chance.
type Compiled struct {
	Registry *registry.Registry
}

func (Compiled) Name() string { return "compiled" }

func (c Compiled) Resolve(req *request.Request, opts Options) (Action, error) {
	key := DefaultKeyParam
	if k, ok := opts["param"].(string); ok && k != "" {
		key = k
	}
	id, ok := req.Params[key].(string)
	if !ok || id == "" {
		return Cont, nil
	}
	entry, found := c.Registry.Lookup(id)
	if !found {
		return Cont, nil
	}
	req.Document = pipeline.Document{Tree: entry.Tree}
	req.ProviderKey = id
	return Halt, nil
}

// Pipeline slices the configured pipeline to start immediately after the
// phase the entry was compiled through: parsing and validation already
// happened at build time.
func (c Compiled) Pipeline(req *request.Request) []pipeline.Phase {
	entry, found := c.Registry.Lookup(req.ProviderKey)
	if !found {
		return req.Pipeline
	}
	return pipeline.After(req.Pipeline, entry.LastPhase)
}
