package engine

import (
	"context"

	"github.com/gqlpipe/gqlpipe/internal/language"
	"github.com/gqlpipe/gqlpipe/internal/pipeline"
)

// execution carries per-request state through the selection walk.
type execution struct {
	engine *Engine
	tree   *language.QueryDocument
	vars   map[string]any
	ctx    context.Context
	errs   language.ErrorList
}

type ctxKey int

const executionValuesKey ctxKey = iota

// ContextValues returns the merged execution context the handler attached to
// the request: static mount context, per-connection values, and the uploads
// bucket.
func ContextValues(ctx context.Context) map[string]any {
	v, _ := ctx.Value(executionValuesKey).(map[string]any)
	return v
}

func (e *Engine) execute(ctx context.Context, tree *language.QueryDocument, op *language.OperationDefinition, vars map[string]any, params *pipeline.Params) (any, language.ErrorList) {
	if len(params.Context) > 0 {
		ctx = context.WithValue(ctx, executionValuesKey, params.Context)
	}
	rootType := e.rootTypeName(op.Operation)
	source := any(e.root)
	if len(params.Root) > 0 {
		source = params.Root
	}

	ex := &execution{engine: e, tree: tree, vars: vars, ctx: ctx}
	data := ex.selections(op.SelectionSet, rootType, source, true, nil)
	return data, ex.errs
}

func (e *Engine) rootTypeName(kind language.Operation) string {
	var def *language.Definition
	switch kind {
	case language.Mutation:
		def = e.schema.Mutation
	case language.Subscription:
		def = e.schema.Subscription
	default:
		def = e.schema.Query
	}
	if def == nil {
		return ""
	}
	return def.Name
}

// selections resolves a selection set against source, flattening fragments.
// Registered resolvers are consulted for root fields only; nested fields are
// read from the parent value.
func (ex *execution) selections(sels language.SelectionSet, typeName string, source any, root bool, path []any) map[string]any {
	out := map[string]any{}
	for _, f := range ex.collect(sels) {
		key := f.Alias
		if key == "" {
			key = f.Name
		}
		if f.Name == "__typename" {
			if tn, ok := lookup(source, "__typename").(string); ok && tn != "" {
				out[key] = tn
			} else {
				out[key] = typeName
			}
			continue
		}
		out[key] = ex.field(f, typeName, source, root, append(path, key))
	}
	return out
}

// collect flattens fragment spreads and inline fragments into a flat field
// list. Type conditions are not narrowed: the engine executes against data,
// not against typed objects.
func (ex *execution) collect(sels language.SelectionSet) []*language.Field {
	var fields []*language.Field
	for _, sel := range sels {
		switch s := sel.(type) {
		case *language.Field:
			fields = append(fields, s)
		case *language.InlineFragment:
			fields = append(fields, ex.collect(s.SelectionSet)...)
		case *language.FragmentSpread:
			if def := ex.tree.Fragments.ForName(s.Name); def != nil {
				fields = append(fields, ex.collect(def.SelectionSet)...)
			}
		}
	}
	return fields
}

func (ex *execution) field(f *language.Field, typeName string, source any, root bool, path []any) any {
	args, err := ex.arguments(f)
	if err != nil {
		ex.fail(path, "%s", err.Error())
		return nil
	}

	var value any
	if root {
		if fn, ok := ex.engine.fields[typeName+"."+f.Name]; ok {
			v, err := fn(ex.ctx, source, args)
			if err != nil {
				ex.fail(path, "%s", err.Error())
				return nil
			}
			value = v
		} else {
			value = lookup(source, f.Name)
		}
	} else {
		value = lookup(source, f.Name)
	}

	return ex.complete(f, value, path)
}

func (ex *execution) complete(f *language.Field, value any, path []any) any {
	if value == nil {
		return nil
	}
	if len(f.SelectionSet) == 0 {
		return value
	}
	switch v := value.(type) {
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = ex.complete(f, item, append(path, i))
		}
		return items
	default:
		return ex.selections(f.SelectionSet, "", value, false, path)
	}
}

func (ex *execution) arguments(f *language.Field) (map[string]any, error) {
	args := make(map[string]any, len(f.Arguments))
	for _, a := range f.Arguments {
		v, err := a.Value.Value(ex.vars)
		if err != nil {
			return nil, err
		}
		args[a.Name] = v
	}
	return args, nil
}

func (ex *execution) fail(path []any, format string, a ...any) {
	err := language.Errorf(format, a...)
	for _, p := range path {
		switch v := p.(type) {
		case string:
			err.Path = append(err.Path, language.PathName(v))
		case int:
			err.Path = append(err.Path, language.PathIndex(v))
		}
	}
	ex.errs = append(ex.errs, err)
}

func lookup(source any, name string) any {
	m, ok := source.(map[string]any)
	if !ok {
		return nil
	}
	return m[name]
}
