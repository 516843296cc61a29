// Package engine provides the default pipeline runner. It interprets the
// canonical phase names with gqlparser and executes documents against
// registered field resolvers and a data-backed root value. Any other
// pipeline.Runner can be plugged into the handler in its place.
package engine

import (
	"context"

	"github.com/gqlpipe/gqlpipe/internal/language"
	"github.com/gqlpipe/gqlpipe/internal/pipeline"
)

// FieldFunc resolves one root field. source is the effective root value and
// args are the coerced argument values.
type FieldFunc func(ctx context.Context, source any, args map[string]any) (any, error)

// Engine runs documents through phase lists against a fixed schema.
type Engine struct {
	schema *language.Schema
	root   map[string]any
	fields map[string]FieldFunc
}

// Option configures an Engine.
type Option func(*Engine)

// WithRootData sets the default root value fields are resolved from when no
// resolver is registered.
func WithRootData(root map[string]any) Option {
	return func(e *Engine) { e.root = root }
}

// WithField registers a resolver for a root field, keyed "Type.field"
// (e.g. "Query.item").
func WithField(key string, fn FieldFunc) Option {
	return func(e *Engine) { e.fields[key] = fn }
}

// New creates an Engine for schema.
func New(schema *language.Schema, opts ...Option) *Engine {
	e := &Engine{schema: schema, fields: map[string]FieldFunc{}}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Run executes doc through phases in order. Parse and validation failures are
// returned as GraphQL errors in the result; a method mismatch is returned as
// a *pipeline.MethodError.
func (e *Engine) Run(ctx context.Context, doc pipeline.Document, phases []pipeline.Phase, params *pipeline.Params) (*pipeline.Result, error) {
	if params == nil {
		params = &pipeline.Params{}
	}
	tree := doc.Tree
	vars := params.Variables
	if vars == nil {
		vars = map[string]any{}
	}

	for _, ph := range phases {
		switch ph.Name {
		case pipeline.PhaseParse:
			if tree != nil {
				continue
			}
			parsed, err := language.ParseQuery(doc.Text)
			if err != nil {
				return &pipeline.Result{Errors: language.ToErrorList(err)}, nil
			}
			tree = parsed

		case pipeline.PhaseValidate:
			if errs := language.Validate(e.schema, tree); len(errs) > 0 {
				return &pipeline.Result{Errors: errs, Tree: tree}, nil
			}

		case pipeline.PhaseCheckMethod:
			op, errRes := e.operation(tree, params.OperationName)
			if errRes != nil {
				return errRes, nil
			}
			method, _ := ph.Options["method"].(string)
			if err := checkMethod(op, method); err != nil {
				return nil, err
			}

		case pipeline.PhaseCoerce:
			op, errRes := e.operation(tree, params.OperationName)
			if errRes != nil {
				return errRes, nil
			}
			coerced, err := language.CoerceVariables(e.schema, op, vars)
			if err != nil {
				return &pipeline.Result{Errors: language.ToErrorList(err), Tree: tree}, nil
			}
			vars = coerced

		case pipeline.PhaseExecute:
			op, errRes := e.operation(tree, params.OperationName)
			if errRes != nil {
				return errRes, nil
			}
			data, errs := e.execute(ctx, tree, op, vars, params)
			return &pipeline.Result{Data: data, Errors: errs, Tree: tree}, nil

		default:
			return nil, language.Errorf("unknown pipeline phase %q", ph.Name)
		}
	}

	// Partial pipelines (e.g. build-time compilation) end here with the
	// parsed tree and no data.
	return &pipeline.Result{Tree: tree}, nil
}

// operation selects the requested operation from the document.
func (e *Engine) operation(tree *language.QueryDocument, name string) (*language.OperationDefinition, *pipeline.Result) {
	if tree == nil {
		return nil, &pipeline.Result{Errors: language.ErrorList{language.Errorf("no document to execute")}}
	}
	op := tree.Operations.ForName(name)
	if op == nil {
		if name == "" {
			return nil, &pipeline.Result{Errors: language.ErrorList{language.Errorf("must provide operation name if query contains multiple operations")}, Tree: tree}
		}
		return nil, &pipeline.Result{Errors: language.ErrorList{language.Errorf("operation %q not found in document", name)}, Tree: tree}
	}
	return op, nil
}

func checkMethod(op *language.OperationDefinition, method string) error {
	switch op.Operation {
	case language.Mutation:
		if method != "POST" {
			return &pipeline.MethodError{Operation: language.Mutation, Method: method}
		}
	case language.Subscription:
		return &pipeline.MethodError{Operation: language.Subscription, Method: method}
	}
	return nil
}
