package engine

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/gqlpipe/gqlpipe/internal/language"
	"github.com/gqlpipe/gqlpipe/internal/pipeline"
)

const testSDL = `
type Query {
	item(id: ID!): Item
	hello: String
}
type Mutation {
	bump: Int
}
type Subscription {
	ticks: Int
}
type Item {
	name: String
	tags: [String]
}
`

func testEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	return New(language.MustLoadSchema("test.graphql", testSDL), opts...)
}

func run(t *testing.T, e *Engine, doc string, phases []pipeline.Phase, params *pipeline.Params) (*pipeline.Result, error) {
	t.Helper()
	return e.Run(context.Background(), pipeline.Document{Text: doc}, phases, params)
}

func assembled(method string) []pipeline.Phase {
	return pipeline.WithMethodCheck(pipeline.Default(), method)
}

func TestRunResolverField(t *testing.T) {
	e := testEngine(t, WithField("Query.item", func(ctx context.Context, source any, args map[string]any) (any, error) {
		require.Equal(t, "foo", args["id"])
		return map[string]any{"name": "Foo"}, nil
	}))

	res, err := run(t, e, `{ item(id: "foo") { name } }`, assembled("POST"), nil)
	require.NoError(t, err)
	require.Empty(t, res.Errors)

	want := map[string]any{"item": map[string]any{"name": "Foo"}}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestRunRootDataFallback(t *testing.T) {
	e := testEngine(t, WithRootData(map[string]any{
		"hello": "world",
		"item":  map[string]any{"name": "Foo", "tags": []any{"a", "b"}},
	}))

	res, err := run(t, e, `{ hello item(id: "x") { name tags } }`, assembled("POST"), nil)
	require.NoError(t, err)
	require.Empty(t, res.Errors)

	want := map[string]any{
		"hello": "world",
		"item":  map[string]any{"name": "Foo", "tags": []any{"a", "b"}},
	}
	if diff := cmp.Diff(want, res.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestRunVariablesAreCoerced(t *testing.T) {
	var gotID any
	e := testEngine(t, WithField("Query.item", func(ctx context.Context, source any, args map[string]any) (any, error) {
		gotID = args["id"]
		return map[string]any{"name": "Foo"}, nil
	}))

	res, err := run(t, e, `query Item($id: ID!) { item(id: $id) { name } }`, assembled("POST"), &pipeline.Params{
		Variables: map[string]any{"id": "foo"},
	})
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Equal(t, "foo", gotID)
}

func TestRunMissingRequiredVariableIsResultError(t *testing.T) {
	e := testEngine(t)
	res, err := run(t, e, `query Item($id: ID!) { item(id: $id) { name } }`, assembled("POST"), nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Errors)
}

func TestRunParseErrorIsResultError(t *testing.T) {
	res, err := run(t, testEngine(t), `{ item(bad }`, assembled("POST"), nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Errors)
	require.Nil(t, res.Data)
}

func TestRunValidationErrorIsResultError(t *testing.T) {
	res, err := run(t, testEngine(t), `{ noSuchField }`, assembled("POST"), nil)
	require.NoError(t, err)
	require.NotEmpty(t, res.Errors)
}

func TestRunMutationOverGetIsMethodError(t *testing.T) {
	_, err := run(t, testEngine(t), `mutation { bump }`, assembled("GET"), nil)
	var methodErr *pipeline.MethodError
	require.ErrorAs(t, err, &methodErr)
	require.Equal(t, language.Mutation, methodErr.Operation)
}

func TestRunMutationOverPostIsAllowed(t *testing.T) {
	e := testEngine(t, WithField("Mutation.bump", func(ctx context.Context, source any, args map[string]any) (any, error) {
		return 1, nil
	}))
	res, err := run(t, e, `mutation { bump }`, assembled("POST"), nil)
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"bump": 1}, res.Data)
}

func TestRunSubscriptionIsRejected(t *testing.T) {
	_, err := run(t, testEngine(t), `subscription { ticks }`, assembled("POST"), nil)
	var methodErr *pipeline.MethodError
	require.ErrorAs(t, err, &methodErr)
}

func TestRunPartialPipelineReturnsTree(t *testing.T) {
	res, err := run(t, testEngine(t), `{ hello }`, pipeline.Compilation(), nil)
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.NotNil(t, res.Tree)
	require.Nil(t, res.Data)
}

func TestRunPrecompiledTreeSkipsParse(t *testing.T) {
	e := testEngine(t, WithRootData(map[string]any{"hello": "world"}))

	compile, err := e.Run(context.Background(), pipeline.Document{Text: `{ hello }`}, pipeline.Compilation(), nil)
	require.NoError(t, err)
	require.Empty(t, compile.Errors)

	residual := pipeline.After(assembled("POST"), pipeline.PhaseValidate)
	res, err := e.Run(context.Background(), pipeline.Document{Tree: compile.Tree}, residual, nil)
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"hello": "world"}, res.Data)
}

func TestRunResolverErrorHasPath(t *testing.T) {
	e := testEngine(t, WithField("Query.hello", func(ctx context.Context, source any, args map[string]any) (any, error) {
		return nil, language.Errorf("boom")
	}))
	res, err := run(t, e, `{ hello }`, assembled("POST"), nil)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	require.Equal(t, "boom", res.Errors[0].Message)
	require.Equal(t, language.Path{language.PathName("hello")}, res.Errors[0].Path)
	require.Equal(t, map[string]any{"hello": nil}, res.Data)
}

func TestRunFragmentsAreFlattened(t *testing.T) {
	e := testEngine(t, WithRootData(map[string]any{
		"item": map[string]any{"name": "Foo"},
	}))
	doc := `
		query { item(id: "x") { ...named } }
		fragment named on Item { name }
	`
	res, err := run(t, e, doc, assembled("POST"), nil)
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	require.Equal(t, map[string]any{"item": map[string]any{"name": "Foo"}}, res.Data)
}

func TestRunFieldAlias(t *testing.T) {
	e := testEngine(t, WithRootData(map[string]any{"hello": "world"}))
	res, err := run(t, e, `{ greeting: hello }`, assembled("POST"), nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"greeting": "world"}, res.Data)
}

func TestRunUnknownOperationName(t *testing.T) {
	res, err := run(t, testEngine(t), `query A { hello }`, assembled("POST"), &pipeline.Params{OperationName: "B"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Errors)
}
