// Package language is the adapter's only view of GraphQL syntax. It wraps the
// gqlparser parser and validator behind a small surface so the rest of the
// module never imports gqlparser directly.
package language

import (
	"errors"

	gqlparser "github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

// ParseQuery parses an executable document from source text.
func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadSchema parses and validates an SDL schema.
func LoadSchema(name, sdl string) (*Schema, error) {
	return gqlparser.LoadSchema(&ast.Source{Name: name, Input: sdl})
}

// MustLoadSchema is LoadSchema for schemas known to be valid, such as test
// fixtures and embedded defaults.
func MustLoadSchema(name, sdl string) *Schema {
	sch, err := LoadSchema(name, sdl)
	if err != nil {
		panic(err)
	}
	return sch
}

// Validate runs the gqlparser validation rules against doc.
func Validate(schema *Schema, doc *QueryDocument) ErrorList {
	return validator.Validate(schema, doc)
}

// CoerceVariables coerces raw variable values against the operation's
// variable definitions, applying defaults and rejecting type mismatches.
func CoerceVariables(schema *Schema, op *OperationDefinition, variables map[string]any) (map[string]any, error) {
	coerced, err := validator.VariableValues(schema, op, variables)
	if err != nil {
		return nil, err
	}
	return coerced, nil
}

// Error is a located GraphQL error as it appears in a response errors array.
type Error = gqlerror.Error

// ErrorList is an ordered list of GraphQL errors.
type ErrorList = gqlerror.List

// Errorf builds a GraphQL error from a format string.
func Errorf(format string, args ...any) *Error {
	return gqlerror.Errorf(format, args...)
}

// ToErrorList converts any error into a response-shaped error list,
// preserving locations when err already carries GraphQL errors.
func ToErrorList(err error) ErrorList {
	if err == nil {
		return nil
	}
	var list ErrorList
	if errors.As(err, &list) {
		return list
	}
	var gqlErr *Error
	if errors.As(err, &gqlErr) {
		return ErrorList{gqlErr}
	}
	return ErrorList{Errorf("%s", err.Error())}
}
