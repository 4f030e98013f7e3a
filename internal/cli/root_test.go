package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"breeze-gateway/internal/service"
)

func writeConfig(t *testing.T, publishDir string) string {
	t.Helper()
	content := "logging:\n  level: error\nbreeze:\n  namespace: NorthBreeze.Models\n"
	if publishDir != "" {
		content += "publish:\n  prefix: docs\n  file:\n    enabled: true\n    dir: " + publishDir + "\n"
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "breezegen", cmd.Use)

	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, expected := range []string{"version", "metadata", "publish", "services"} {
		assert.Contains(t, names, expected)
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "breezegen version: dev")
	assert.Contains(t, out, "Go version: go")
}

func TestMetadataToStdout(t *testing.T) {
	out, _, err := execute(t, "metadata", "--service", "NorthBreeze", "--config", writeConfig(t, ""))
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	entities := doc["resourceEntityTypeMap"].(map[string]interface{})
	assert.Equal(t, "Order:#NorthBreeze.Models", entities["Orders"])
}

func TestMetadataToFilePretty(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "metadata.json")
	_, stderr, err := execute(t, "metadata", "-s", "northbreeze", "-o", outFile, "--pretty", "-c", writeConfig(t, ""))
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote "+outFile)

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("{\n  \"localQueryComparisonOptions\"")))
	assert.True(t, json.Valid(data))
}

func TestMetadataRequiresService(t *testing.T) {
	_, _, err := execute(t, "metadata", "--config", writeConfig(t, ""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service")
}

func TestMetadataUnknownService(t *testing.T) {
	_, _, err := execute(t, "metadata", "--service", "Nope", "--config", writeConfig(t, ""))
	assert.Error(t, err)
}

func TestServicesCommand(t *testing.T) {
	out, _, err := execute(t, "services", "--config", writeConfig(t, ""))
	require.NoError(t, err)
	assert.Contains(t, out, "NorthBreeze")
	assert.Contains(t, out, "models")
}

func TestPublishCommand(t *testing.T) {
	dir := t.TempDir()
	out, _, err := execute(t, "publish", "--service", "NorthBreeze", "--config", writeConfig(t, dir))
	require.NoError(t, err)
	assert.Contains(t, out, "published NorthBreeze")

	data, err := os.ReadFile(filepath.Join(dir, "docs", "NorthBreeze", "metadata.json"))
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestPublishWithoutTargets(t *testing.T) {
	_, stderr, err := execute(t, "publish", "--config", writeConfig(t, ""))
	assert.ErrorIs(t, err, service.ErrPublishingDisabled)
	assert.Contains(t, stderr, "NorthBreeze")
}
