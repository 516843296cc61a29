// Package request normalizes heterogeneous HTTP request encodings into the
// single Request shape the document-provider chain and the pipeline operate
// on.
package request

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/gqlpipe/gqlpipe/internal/pipeline"
)

// Request is a normalized executable query request, created fresh per HTTP
// request and mutated only during extraction and document resolution.
type Request struct {
	// Document is the thing to execute: raw text, a provider-supplied
	// syntax tree, or empty when nothing resolvable was submitted.
	Document pipeline.Document

	// Params holds the raw request fields (query, variables, operationName,
	// and any provider lookup keys such as a document id).
	Params map[string]any

	// Variables is the decoded variables map, never nil after extraction.
	Variables map[string]any

	// OperationName is empty when the client omitted it or sent "".
	OperationName string

	// Context is the merged execution context: static config context,
	// per-connection injected context, then the reserved uploads bucket,
	// last write wins.
	Context map[string]any

	// Root is the per-connection injected root value, never nil.
	Root map[string]any

	// Uploads maps multipart file field names to their uploads.
	Uploads map[string]*Upload

	// Pipeline is the configured phase list for this request. Providers may
	// slice it to skip phases already satisfied at build time.
	Pipeline []pipeline.Phase

	// Provider names the document provider that claimed the request.
	Provider string

	// ProviderKey is the lookup key used by the provider that claimed the
	// request (e.g. the persisted document id).
	ProviderKey string
}

// Upload is one file received in a multipart form field.
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Header      *multipart.FileHeader
}

// Open returns a reader over the uploaded content.
func (u *Upload) Open() (multipart.File, error) { return u.Header.Open() }

// UploadsContextKey is the reserved context namespace holding the uploaded
// file map.
const UploadsContextKey = "uploads"

// InputError is malformed or unresolvable client input. It is always
// recoverable: the handler maps it to a 400 response.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }

// InputErrorf builds an InputError from a format string.
func InputErrorf(format string, args ...any) *InputError {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}

type ctxKey int

const (
	injectedContextKey ctxKey = iota
	rootValueKey
)

// WithInjectedContext stores a per-connection execution context on ctx.
// Host middleware uses this to pass authentication results and similar data
// into resolution; it overlays the statically configured context.
func WithInjectedContext(ctx context.Context, values map[string]any) context.Context {
	return context.WithValue(ctx, injectedContextKey, values)
}

// InjectedContext returns the per-connection execution context, if any.
func InjectedContext(ctx context.Context) map[string]any {
	v, _ := ctx.Value(injectedContextKey).(map[string]any)
	return v
}

// WithRootValue stores a per-connection root value on ctx.
func WithRootValue(ctx context.Context, root map[string]any) context.Context {
	return context.WithValue(ctx, rootValueKey, root)
}

// RootValue returns the per-connection root value, if any.
func RootValue(ctx context.Context) map[string]any {
	v, _ := ctx.Value(rootValueKey).(map[string]any)
	return v
}
