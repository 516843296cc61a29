package request

import (
	"io"
	"mime"
	"net/http"

	"github.com/pkg/errors"

	"github.com/gqlpipe/gqlpipe/internal/codec"
	"github.com/gqlpipe/gqlpipe/internal/pipeline"
)

const (
	contentTypeGraphQL    = "application/graphql"
	contentTypeJSON       = "application/json"
	contentTypeForm       = "application/x-www-form-urlencoded"
	contentTypeMultipart  = "multipart/form-data"
	defaultMaxMemoryBytes = 32 << 20
)

// Options configures extraction for one mount point.
type Options struct {
	// Codec decodes the variables field. Required.
	Codec codec.Codec

	// Context is the statically configured execution context.
	Context map[string]any

	// MaxBodyBytes limits the request body. 0 means unlimited.
	MaxBodyBytes int64
}

var errBodyTooLarge = &InputError{Message: "request body too large"}

// Extract turns an HTTP request into a normalized Request. Any failure is an
// InputError and short-circuits all provider and pipeline work. The request
// body is read at most once.
func Extract(r *http.Request, opts Options) (*Request, error) {
	params, uploads, rawBody, err := readParams(r, opts.MaxBodyBytes)
	if err != nil {
		return nil, err
	}

	req := &Request{
		Params:  params,
		Uploads: uploads,
		Root:    RootValue(r.Context()),
	}
	if req.Root == nil {
		req.Root = map[string]any{}
	}

	// Document text: the query field wins over the raw body; an empty
	// string normalizes to "document absent".
	if q, ok := params["query"].(string); ok && q != "" {
		req.Document = pipeline.Document{Text: q}
	} else if rawBody != "" {
		req.Document = pipeline.Document{Text: rawBody}
	}

	if name, ok := params["operationName"].(string); ok {
		// An explicit empty name behaves exactly like an omitted one.
		req.OperationName = name
	}

	vars, err := decodeVariables(params["variables"], opts.Codec)
	if err != nil {
		return nil, err
	}
	req.Variables = vars

	req.Context = mergeContext(opts.Context, InjectedContext(r.Context()), uploads)
	return req, nil
}

// readParams parses the request fields according to content type and returns
// the field map, uploaded files, and the raw body when the body itself is the
// document source.
func readParams(r *http.Request, maxBody int64) (map[string]any, map[string]*Upload, string, error) {
	if maxBody > 0 {
		r.Body = http.MaxBytesReader(nil, r.Body, maxBody)
	}

	if r.Method == http.MethodGet {
		return queryParams(r), nil, "", nil
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, nil, "", InputErrorf("unable to parse content type")
	}

	switch mediaType {
	case contentTypeGraphQL:
		// The body is the document verbatim; params come from the query
		// string alone.
		body, err := readBody(r)
		if err != nil {
			return nil, nil, "", err
		}
		return queryParams(r), nil, body, nil

	case contentTypeJSON:
		body, err := readBody(r)
		if err != nil {
			return nil, nil, "", err
		}
		params := map[string]any{}
		if body != "" {
			v, err := codec.JSON{}.Decode(body)
			if err != nil {
				return nil, nil, "", InputErrorf("could not decode request body")
			}
			m, ok := v.(map[string]any)
			if !ok {
				return nil, nil, "", InputErrorf("could not decode request body")
			}
			params = m
		}
		for k, vs := range r.URL.Query() {
			if _, present := params[k]; !present && len(vs) > 0 {
				params[k] = vs[0]
			}
		}
		return params, nil, "", nil

	case contentTypeForm:
		if err := r.ParseForm(); err != nil {
			return nil, nil, "", wrapBodyErr(err, "parse form")
		}
		params := map[string]any{}
		for k, vs := range r.Form {
			if len(vs) > 0 {
				params[k] = vs[0]
			}
		}
		return params, nil, "", nil

	case contentTypeMultipart:
		if err := r.ParseMultipartForm(defaultMaxMemoryBytes); err != nil {
			return nil, nil, "", wrapBodyErr(err, "parse multipart form")
		}
		params := map[string]any{}
		for k, vs := range r.MultipartForm.Value {
			if len(vs) > 0 {
				params[k] = vs[0]
			}
		}
		uploads := map[string]*Upload{}
		for field, headers := range r.MultipartForm.File {
			if len(headers) == 0 {
				continue
			}
			fh := headers[0]
			uploads[field] = &Upload{
				Filename:    fh.Filename,
				Size:        fh.Size,
				ContentType: fh.Header.Get("Content-Type"),
				Header:      fh,
			}
		}
		return params, uploads, "", nil

	default:
		// Unknown content type with no parsed fields: empty document source
		// plus whatever the query string carries.
		return queryParams(r), nil, "", nil
	}
}

func queryParams(r *http.Request) map[string]any {
	params := map[string]any{}
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	return params
}

func readBody(r *http.Request) (string, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return "", wrapBodyErr(err, "read body")
	}
	defer r.Body.Close()
	return string(body), nil
}

func wrapBodyErr(err error, op string) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errBodyTooLarge
	}
	return errors.Wrap(err, op)
}

// decodeVariables applies the accepted literal forms: absent, "", "null" and
// nil all decode to an empty map; a value that is already a map passes
// through; any other string goes through the codec.
func decodeVariables(raw any, c codec.Codec) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	case string:
		if v == "" || v == "null" {
			return map[string]any{}, nil
		}
		decoded, err := c.Decode(v)
		if err != nil {
			return nil, InputErrorf("variable values could not be decoded")
		}
		if decoded == nil {
			return map[string]any{}, nil
		}
		m, ok := decoded.(map[string]any)
		if !ok {
			return nil, InputErrorf("variable values could not be decoded")
		}
		return m, nil
	default:
		return nil, InputErrorf("variable values could not be decoded")
	}
}

// mergeContext is an explicit ordered merge: static config context first,
// per-connection injected context second, the reserved uploads bucket last.
func mergeContext(static, injected map[string]any, uploads map[string]*Upload) map[string]any {
	merged := make(map[string]any, len(static)+len(injected)+1)
	for k, v := range static {
		merged[k] = v
	}
	for k, v := range injected {
		merged[k] = v
	}
	if len(uploads) > 0 {
		merged[UploadsContextKey] = uploads
	}
	return merged
}
