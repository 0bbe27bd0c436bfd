package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in      string
		want    ProviderType
		wantErr bool
	}{
		{"", ProviderOllama, false},
		{"ollama", ProviderOllama, false},
		{"OLLAMA", ProviderOllama, false},
		{"static", ProviderStatic, false},
		{" static ", ProviderStatic, false},
		{"openai", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseProvider(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewEmbedder_StaticWrappedInCache(t *testing.T) {
	e, err := NewEmbedder(context.Background(), FactoryOptions{Provider: ProviderStatic})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	cached, ok := e.(*CachedEmbedder)
	require.True(t, ok, "cache wrapper is on by default")
	_, ok = cached.Inner().(*StaticEmbedder)
	assert.True(t, ok)
}

func TestNewEmbedder_CacheDisabled(t *testing.T) {
	e, err := NewEmbedder(context.Background(), FactoryOptions{
		Provider:      ProviderStatic,
		CacheDisabled: true,
	})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, ok := e.(*StaticEmbedder)
	assert.True(t, ok, "disabled cache yields the bare embedder")
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	_, err := NewEmbedder(context.Background(), FactoryOptions{Provider: "onnx"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown embedding provider")
}

func TestNewEmbedder_OllamaUnreachableNoSilentFallback(t *testing.T) {
	_, err := NewEmbedder(context.Background(), FactoryOptions{
		Provider: ProviderOllama,
		Ollama:   OllamaConfig{Host: "http://127.0.0.1:1"},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama unavailable")
	assert.Contains(t, err.Error(), "ollama serve")
}
