package provider

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gqlpipe/gqlpipe/internal/pipeline"
	"github.com/gqlpipe/gqlpipe/internal/request"
)

// stub is a provider with a fixed verdict that records whether it ran.
type stub struct {
	action  Action
	invoked bool
}

func (s *stub) Name() string { return "stub" }

func (s *stub) Resolve(req *request.Request, _ Options) (Action, error) {
	s.invoked = true
	return s.action, nil
}

func (s *stub) Pipeline(req *request.Request) []pipeline.Phase { return req.Pipeline }

func newRequest(doc string) *request.Request {
	req := &request.Request{Params: map[string]any{}}
	if doc != "" {
		req.Document = pipeline.Document{Text: doc}
	}
	req.Pipeline = pipeline.WithMethodCheck(pipeline.Default(), "POST")
	return req
}

func TestChainFirstMatchWins(t *testing.T) {
	head := &stub{action: Halt}
	tail := &stub{action: Halt}

	binding, err := ResolveChain([]Binding{Bind(head), Bind(tail)}, newRequest("{ a }"))
	require.NoError(t, err)
	require.Same(t, head, binding.Provider.(*stub))
	require.True(t, head.invoked)
	require.False(t, tail.invoked, "later provider must not run after a halt")
}

func TestChainStampsClaimingProvider(t *testing.T) {
	req := newRequest("{ a }")
	_, err := ResolveChain([]Binding{Bind(&stub{action: Halt})}, req)
	require.NoError(t, err)
	require.Equal(t, "stub", req.Provider)
}

func TestChainDecliningHeadIsNoOp(t *testing.T) {
	head := &stub{action: Cont}
	tail := &stub{action: Halt}

	binding, err := ResolveChain([]Binding{Bind(head), Bind(tail)}, newRequest("{ a }"))
	require.NoError(t, err)
	require.Same(t, tail, binding.Provider.(*stub))
	require.True(t, head.invoked)
}

func TestChainExhaustionIsInputError(t *testing.T) {
	_, err := ResolveChain([]Binding{Bind(&stub{action: Cont})}, newRequest("{ a }"))
	require.ErrorIs(t, err, ErrUnresolved)

	var inputErr *request.InputError
	require.ErrorAs(t, err, &inputErr)
}

func TestDefaultProviderHaltsOnPresentDocument(t *testing.T) {
	req := newRequest("{ a }")
	action, err := Default{}.Resolve(req, Options{})
	require.NoError(t, err)
	require.Equal(t, Halt, action)
	// The literal document is left untouched.
	require.Equal(t, "{ a }", req.Document.Text)
}

func TestDefaultProviderDeclinesOnAbsentDocument(t *testing.T) {
	action, err := Default{}.Resolve(newRequest(""), Options{})
	require.NoError(t, err)
	require.Equal(t, Cont, action)
}

func TestDefaultProviderKeepsFullPipeline(t *testing.T) {
	req := newRequest("{ a }")
	require.Equal(t, req.Pipeline, Default{}.Pipeline(req))
}
