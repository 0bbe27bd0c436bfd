package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCmd_ShowYAML(t *testing.T) {
	// Given: a deployment config
	cfgPath := writeTestConfig(t)

	// When: showing the effective config
	out, err := executeCommand(t, "--config", cfgPath, "config", "show")

	// Then: merged sections render as YAML
	require.NoError(t, err)
	assert.Contains(t, out, "storage:")
	assert.Contains(t, out, "backend: hnsw")
	assert.Contains(t, out, "provider: static")
	assert.Contains(t, out, "chunk_size: 1000")
}

func TestConfigCmd_ShowJSON(t *testing.T) {
	cfgPath := writeTestConfig(t)

	out, err := executeCommand(t, "--config", cfgPath, "config", "show", "--json")

	require.NoError(t, err)
	var cfg map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Contains(t, cfg, "storage")
	assert.Contains(t, cfg, "embeddings")
}

func TestConfigCmd_FlagOverridesFile(t *testing.T) {
	// Given: a config selecting the static provider
	cfgPath := writeTestConfig(t)

	// When: overriding the embedder on the command line
	out, err := executeCommand(t, "--config", cfgPath, "--embedder", "ollama", "config", "show")

	// Then: the flag wins
	require.NoError(t, err)
	assert.Contains(t, out, "provider: ollama")
}

func TestConfigCmd_Path(t *testing.T) {
	out, err := executeCommand(t, "config", "path")

	require.NoError(t, err)
	assert.Contains(t, out, "user:")
	assert.Contains(t, out, "deployment:")
}
