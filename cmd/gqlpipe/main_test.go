package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunRequiresCommand(t *testing.T) {
	require.Error(t, run(nil))
	require.Error(t, run([]string{"frobnicate"}))
}

func TestHelp(t *testing.T) {
	require.NoError(t, run([]string{"help"}))
	require.NoError(t, run([]string{"help", "serve"}))
	require.Error(t, run([]string{"help", "frobnicate"}))
}

func TestServeRequiresSchema(t *testing.T) {
	require.Error(t, run([]string{"serve"}))
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCheckDocuments(t *testing.T) {
	schema := writeFile(t, "schema.graphql", `type Query { hello: String }`)

	good := writeFile(t, "good.json", `{"hello": "{ hello }"}`)
	require.NoError(t, run([]string{"check-documents", "-schema.file", schema, "-documents.file", good}))

	bad := writeFile(t, "bad.json", `{"bad": "{ noSuchField }"}`)
	err := run([]string{"check-documents", "-schema.file", schema, "-documents.file", bad})
	require.Error(t, err)
	require.Contains(t, err.Error(), `"bad"`)
}
