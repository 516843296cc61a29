package provider

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gqlpipe/gqlpipe/internal/engine"
	"github.com/gqlpipe/gqlpipe/internal/language"
	"github.com/gqlpipe/gqlpipe/internal/pipeline"
	"github.com/gqlpipe/gqlpipe/internal/registry"
)

const compiledTestSDL = `
type Query {
	item(id: ID!): Item
}
type Item {
	name: String
}
`

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	schema := language.MustLoadSchema("test.graphql", compiledTestSDL)
	reg, err := registry.Build("provider_test", map[string]string{
		"itemByID": `query Item($id: ID!) { item(id: $id) { name } }`,
	}, engine.New(schema), pipeline.Compilation())
	require.NoError(t, err)
	return reg
}

func TestCompiledClaimsKnownID(t *testing.T) {
	c := Compiled{Registry: newTestRegistry(t)}
	req := newRequest("")
	req.Params["id"] = "itemByID"

	action, err := c.Resolve(req, Options{})
	require.NoError(t, err)
	require.Equal(t, Halt, action)
	require.NotNil(t, req.Document.Tree, "document must be rewritten to the compiled tree")
	require.Equal(t, "itemByID", req.ProviderKey)
}

func TestCompiledDeclinesUnknownID(t *testing.T) {
	c := Compiled{Registry: newTestRegistry(t)}
	req := newRequest("")
	req.Params["id"] = "nope"

	action, err := c.Resolve(req, Options{})
	require.NoError(t, err)
	require.Equal(t, Cont, action)
	require.True(t, req.Document.Empty())
}

func TestCompiledDeclinesWithoutKeyParam(t *testing.T) {
	c := Compiled{Registry: newTestRegistry(t)}
	action, err := c.Resolve(newRequest(""), Options{})
	require.NoError(t, err)
	require.Equal(t, Cont, action)
}

func TestCompiledHonorsCustomKeyParam(t *testing.T) {
	c := Compiled{Registry: newTestRegistry(t)}
	req := newRequest("")
	req.Params["documentId"] = "itemByID"

	action, err := c.Resolve(req, Options{"param": "documentId"})
	require.NoError(t, err)
	require.Equal(t, Halt, action)
}

func TestCompiledResidualPipelineSkipsCompiledPhases(t *testing.T) {
	c := Compiled{Registry: newTestRegistry(t)}
	req := newRequest("")
	req.Params["id"] = "itemByID"
	_, err := c.Resolve(req, Options{})
	require.NoError(t, err)

	residual := c.Pipeline(req)
	var names []string
	for _, p := range residual {
		names = append(names, p.Name)
	}
	// Parsing and validation already happened at build time; the method
	// check still runs because the verb is per-request.
	require.Equal(t, []string{pipeline.PhaseCheckMethod, pipeline.PhaseCoerce, pipeline.PhaseExecute}, names)
}
