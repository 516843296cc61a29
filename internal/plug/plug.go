// Package plug mounts the GraphQL adapter as an http.Handler: it extracts a
// normalized request, resolves the document through the provider chain,
// assembles the phase list, invokes the pipeline runner, and maps the outcome
// to an HTTP response.
package plug

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/gqlpipe/gqlpipe/internal/codec"
	"github.com/gqlpipe/gqlpipe/internal/eventbus"
	"github.com/gqlpipe/gqlpipe/internal/events"
	"github.com/gqlpipe/gqlpipe/internal/pipeline"
	"github.com/gqlpipe/gqlpipe/internal/provider"
	"github.com/gqlpipe/gqlpipe/internal/reqid"
	"github.com/gqlpipe/gqlpipe/internal/request"
)

// PipelineFunc builds the base phase list for one request.
type PipelineFunc func(cfg *Config, req *request.Request) []pipeline.Phase

// ProvidersFunc builds the ordered document-provider list for one request.
type ProvidersFunc func(cfg *Config, req *request.Request) []provider.Binding

// DefaultNoQueryMessage is the client-facing error when nothing resolvable
// was submitted.
const DefaultNoQueryMessage = "No query document supplied"

// Config is built once per mount and is immutable thereafter.
type Config struct {
	// Runner executes assembled pipelines. Required.
	Runner pipeline.Runner

	// Codec decodes variables and encodes response bodies. Defaults to
	// codec.JSON.
	Codec codec.Codec

	// Context is the statically configured execution context.
	Context map[string]any

	// Pipeline builds the base phase list. Defaults to pipeline.Default.
	Pipeline PipelineFunc

	// Providers builds the document-provider list. Defaults to the literal
	// default provider alone.
	Providers ProvidersFunc

	// NoQueryMessage overrides DefaultNoQueryMessage.
	NoQueryMessage string
}

// Options tune transport behavior, in the same spirit as Config but
// independent of document semantics.
type Options struct {
	// Timeout sets a default timeout if the incoming request context has
	// none. 0 means no default timeout.
	Timeout time.Duration

	// MaxBodyBytes limits the size of the request body. 0 means unlimited.
	MaxBodyBytes int64

	// CORS configuration. If AllowedOrigins is empty, CORS is disabled.
	CORS CORSOptions
}

// CORSOptions holds simple CORS settings.
type CORSOptions struct {
	AllowedOrigins []string
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option { return func(o *Options) { o.Timeout = d } }
func WithMaxBodyBytes(n int64) Option    { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option {
	return func(o *Options) { o.CORS.AllowedOrigins = origins }
}

// Handler serves one GraphQL mount point.
type Handler struct {
	cfg Config
	opt Options
}

// New validates cfg, fills its defaults, and returns the handler.
func New(cfg Config, opts ...Option) (*Handler, error) {
	if cfg.Runner == nil {
		return nil, errors.New("plug: Runner is required")
	}
	if cfg.Codec == nil {
		cfg.Codec = codec.JSON{}
	}
	if cfg.Pipeline == nil {
		cfg.Pipeline = func(*Config, *request.Request) []pipeline.Phase { return pipeline.Default() }
	}
	if cfg.Providers == nil {
		cfg.Providers = func(*Config, *request.Request) []provider.Binding {
			return []provider.Binding{provider.Bind(provider.Default{})}
		}
	}
	if cfg.NoQueryMessage == "" {
		cfg.NoQueryMessage = DefaultNoQueryMessage
	}
	op := Options{}
	for _, f := range opts {
		f(&op)
	}
	return &Handler{cfg: cfg, opt: op}, nil
}

// WithRequestContext re-exports the per-connection context injection hook.
var WithRequestContext = request.WithInjectedContext

// WithRootValue re-exports the per-connection root value injection hook.
var WithRootValue = request.WithRootValue

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}
	ctx, _ = reqid.NewContext(ctx)
	r = r.WithContext(ctx)

	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: time.Since(start)})
	}()

	if len(h.opt.CORS.AllowedOrigins) > 0 {
		setCORSHeaders(w, r, h.opt.CORS)
		if r.Method == http.MethodOptions {
			status = http.StatusNoContent
			w.WriteHeader(status)
			return
		}
	}

	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		status = writeText(w, http.StatusMethodNotAllowed, "Can only accept GET or POST requests")
		return
	}

	status = h.serve(ctx, w, r)
}

// serve runs extraction, document resolution, assembly, and execution, and
// writes the mapped response. It returns the status written.
func (h *Handler) serve(ctx context.Context, w http.ResponseWriter, r *http.Request) int {
	req, err := request.Extract(r, request.Options{
		Codec:        h.cfg.Codec,
		Context:      h.cfg.Context,
		MaxBodyBytes: h.opt.MaxBodyBytes,
	})
	if err != nil {
		return h.writeError(w, err)
	}

	req.Pipeline = pipeline.WithMethodCheck(h.cfg.Pipeline(&h.cfg, req), r.Method)

	binding, err := provider.ResolveChain(h.cfg.Providers(&h.cfg, req), req)
	if err != nil {
		if err == provider.ErrUnresolved && req.Document.Empty() {
			err = &request.InputError{Message: h.cfg.NoQueryMessage}
		}
		return h.writeError(w, err)
	}
	eventbus.Publish(ctx, events.DocumentResolved{
		Provider:   req.Provider,
		DocumentID: req.ProviderKey,
	})
	if req.Document.Empty() {
		return h.writeError(w, &request.InputError{Message: h.cfg.NoQueryMessage})
	}

	phases := binding.Provider.Pipeline(req)

	eventbus.Publish(ctx, events.ExecuteStart{
		OperationName: req.OperationName,
		Provider:      req.Provider,
		DocumentID:    req.ProviderKey,
		Phases:        phaseNames(phases),
	})
	execStart := time.Now()
	res, err := h.cfg.Runner.Run(ctx, req.Document, phases, &pipeline.Params{
		Variables:     req.Variables,
		OperationName: req.OperationName,
		Context:       req.Context,
		Root:          req.Root,
	})
	finish := events.ExecuteFinish{
		OperationName: req.OperationName,
		Provider:      req.Provider,
		DocumentID:    req.ProviderKey,
		Failed:        err != nil,
		Duration:      time.Since(execStart),
	}
	if res != nil {
		finish.ErrorCount = len(res.Errors)
	}
	eventbus.Publish(ctx, finish)

	if err != nil {
		return h.writeError(w, err)
	}
	return h.writeResult(w, res)
}

func phaseNames(phases []pipeline.Phase) []string {
	names := make([]string, len(phases))
	for i, p := range phases {
		names[i] = p.Name
	}
	return names
}
