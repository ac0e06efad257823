package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IBM/igc-x-json-schema/api/igc"
	"github.com/IBM/igc-x-json-schema/internal/observability"
)

// newTestRootCmd returns a pristine root command with global state reset, so
// tests do not contaminate each other through viper or the logger.
func newTestRootCmd(t *testing.T) (*cobra.Command, *bytes.Buffer) {
	t.Helper()
	viper.Reset()
	observability.ResetForTest()
	cfgFile = ""

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	return root, &out
}

func TestRootCmdVersionFlag(t *testing.T) {
	root, out := newTestRootCmd(t)
	root.SetArgs([]string{"--version"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), Version)
}

func TestRootCmdNoArgsShowsHelp(t *testing.T) {
	root, out := newTestRootCmd(t)
	root.SetArgs([]string{})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "generate")
	assert.Contains(t, out.String(), "load")
}

func TestLoadDryRun(t *testing.T) {
	dir := t.TempDir()

	order := `{
		"$schema": "http://json-schema.org/draft-06/schema#",
		"$id": "https://example.com/Sales/Order",
		"title": "Order",
		"type": "object",
		"properties": {
			"customer": {"$ref": "https://example.com/Sales/Customer"},
			"total": {"type": "number"}
		}
	}`
	customer := `{
		"$id": "https://example.com/Sales/Customer",
		"title": "Customer",
		"type": "object",
		"properties": {"name": {"type": "string"}}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "order.json"), []byte(order), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "customer.json"), []byte(customer), 0o644))
	// Sidecar provenance for the customer document.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "customer.json.igc"),
		[]byte(`{"term_id":"t-cust","identity_path":"Sales/Customer"}`), 0o644))

	bundlePath := filepath.Join(dir, "bundle-out.json")
	root, out := newTestRootCmd(t)
	root.SetArgs([]string{"load", "--input", dir, "--dry-run", "--output", bundlePath})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), "Dry run")

	data, err := os.ReadFile(bundlePath)
	require.NoError(t, err)
	var bundle igc.Bundle
	require.NoError(t, json.Unmarshal(data, &bundle))

	assert.Equal(t, "JSchema", bundle.BundleID, "default bundle ID applies")
	require.Len(t, bundle.References, 1, "the cross-document $ref resolved to an edge")

	var foundProvenance bool
	for _, a := range bundle.Assets {
		if a.Attributes["jschema_term_id"] == "t-cust" {
			foundProvenance = true
		}
	}
	assert.True(t, foundProvenance, "sidecar provenance folded onto the schema asset")
}

func TestLoadRequiresInput(t *testing.T) {
	root, _ := newTestRootCmd(t)
	root.SetArgs([]string{"load", "--dry-run"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")
}

func TestGenerateRequiresCatalogURL(t *testing.T) {
	root, _ := newTestRootCmd(t)
	root.SetArgs([]string{"generate", "--output", t.TempDir()})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.url")
}
