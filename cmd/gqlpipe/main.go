package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gqlpipe/gqlpipe/internal/codec"
	"github.com/gqlpipe/gqlpipe/internal/engine"
	"github.com/gqlpipe/gqlpipe/internal/eventbus"
	"github.com/gqlpipe/gqlpipe/internal/language"
	"github.com/gqlpipe/gqlpipe/internal/metrics"
	"github.com/gqlpipe/gqlpipe/internal/otel"
	"github.com/gqlpipe/gqlpipe/internal/pipeline"
	"github.com/gqlpipe/gqlpipe/internal/plug"
	"github.com/gqlpipe/gqlpipe/internal/provider"
	"github.com/gqlpipe/gqlpipe/internal/registry"
	"github.com/gqlpipe/gqlpipe/internal/request"
)

const rootUsage = `gqlpipe — GraphQL HTTP adapter

USAGE:
  gqlpipe <command> [flags]

COMMANDS:
  serve            Serve a GraphQL endpoint backed by a schema and root data
  check-documents  Compile a persisted-document manifest and report failures
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -schema.file <file>        GraphQL SDL schema (required)
  -schema.data <file>        JSON root value the engine resolves fields from
  -documents.file <file>     JSON manifest of id -> document for the compiled
                             provider. Any invalid document aborts startup.
  -server.addr <addr>        HTTP listen address (default: :8080)
  -server.path <path>        Mount path (default: /graphql)
  -server.pretty             Pretty-print JSON responses
  -server.timeout <duration> Per-request timeout, e.g. 10s (default: 10s)
  -server.max-body <bytes>   Request body limit. 0 disables (default: 0)
  -metrics.addr <addr>       Serve Prometheus metrics on this address
  -otel.endpoint <addr>      OTLP collector endpoint
  -otel.service <name>       OpenTelemetry service name (default: gqlpipe)
`

const checkDocumentsUsage = `check-documents FLAGS:
  -schema.file <file>     GraphQL SDL schema (required)
  -documents.file <file>  JSON manifest of id -> document (required)
  (Exits non-zero on the first invalid document)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("gqlpipe", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "check-documents":
		return cmdCheckDocuments(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "check-documents":
		fmt.Print(checkDocumentsUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

func cmdServe(args []string) error {
	schemaFile := ""
	dataFile := ""
	documentsFile := ""
	addr := ":8080"
	path := "/graphql"
	pretty := false
	timeout := 10 * time.Second
	maxBody := int64(0)
	metricsAddr := ""
	otelEndpoint := ""
	otelService := "gqlpipe"

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema.file", schemaFile, "GraphQL SDL schema")
	fs.StringVar(&dataFile, "schema.data", dataFile, "JSON root value")
	fs.StringVar(&documentsFile, "documents.file", documentsFile, "Persisted document manifest")
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.StringVar(&path, "server.path", path, "Mount path")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Int64Var(&maxBody, "server.max-body", maxBody, "Request body limit")
	fs.StringVar(&metricsAddr, "metrics.addr", metricsAddr, "Prometheus metrics address")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}
	if schemaFile == "" {
		fmt.Fprint(os.Stderr, serveUsage)
		return fmt.Errorf("-schema.file is required")
	}

	schema, err := loadSchema(schemaFile)
	if err != nil {
		return err
	}

	var engineOpts []engine.Option
	if dataFile != "" {
		root, err := loadRootData(dataFile)
		if err != nil {
			return err
		}
		engineOpts = append(engineOpts, engine.WithRootData(root))
	}
	runner := engine.New(schema, engineOpts...)

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if metricsAddr != "" {
		if _, err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			log.Printf("metrics listening on %s", metricsAddr)
			log.Println(http.ListenAndServe(metricsAddr, mux))
		}()
	}

	providers := func(*plug.Config, *request.Request) []provider.Binding {
		return []provider.Binding{provider.Bind(provider.Default{})}
	}
	if documentsFile != "" {
		documents, err := loadDocuments(documentsFile)
		if err != nil {
			return err
		}
		// Compile up front; a broken persisted document must never reach
		// runtime.
		reg, err := registry.Build(documentsFile, documents, runner, pipeline.Compilation())
		if err != nil {
			return err
		}
		log.Printf("compiled %d persisted documents from %s", reg.Len(), documentsFile)
		compiled := provider.Compiled{Registry: reg}
		providers = func(*plug.Config, *request.Request) []provider.Binding {
			return []provider.Binding{provider.Bind(compiled), provider.Bind(provider.Default{})}
		}
	}

	h, err := plug.New(plug.Config{
		Runner:    runner,
		Codec:     codec.JSON{Pretty: pretty},
		Providers: providers,
	}, plug.WithTimeout(timeout), plug.WithMaxBodyBytes(maxBody))
	if err != nil {
		return fmt.Errorf("handler init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(path, h)

	log.Printf("GraphQL server listening on %s%s", addr, path)
	return http.ListenAndServe(addr, mux)
}

func cmdCheckDocuments(args []string) error {
	schemaFile := ""
	documentsFile := ""
	fs := flag.NewFlagSet("check-documents", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema.file", schemaFile, "GraphQL SDL schema")
	fs.StringVar(&documentsFile, "documents.file", documentsFile, "Persisted document manifest")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, checkDocumentsUsage)
		return err
	}
	if schemaFile == "" || documentsFile == "" {
		fmt.Fprint(os.Stderr, checkDocumentsUsage)
		return fmt.Errorf("-schema.file and -documents.file are required")
	}

	schema, err := loadSchema(schemaFile)
	if err != nil {
		return err
	}
	documents, err := loadDocuments(documentsFile)
	if err != nil {
		return err
	}
	reg, err := registry.Build(documentsFile, documents, engine.New(schema), pipeline.Compilation())
	if err != nil {
		return err
	}
	fmt.Printf("%d documents compiled\n", reg.Len())
	return nil
}

func loadSchema(file string) (*language.Schema, error) {
	sdl, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	schema, err := language.LoadSchema(file, string(sdl))
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return schema, nil
}

func loadRootData(file string) (map[string]any, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read root data: %w", err)
	}
	var root map[string]any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("decode root data: %w", err)
	}
	return root, nil
}

func loadDocuments(file string) (map[string]string, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	var documents map[string]string
	if err := json.Unmarshal(raw, &documents); err != nil {
		return nil, fmt.Errorf("decode documents: %w", err)
	}
	return documents, nil
}
