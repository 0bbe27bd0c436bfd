package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedEmbedder_EmbedHitsCacheOnRepeat(t *testing.T) {
	inner := &mockEmbedder{}
	cached := NewCachedEmbedder(inner, 10)

	ctx := context.Background()

	// Given two identical embed calls
	first, err := cached.Embed(ctx, "repeated query")
	require.NoError(t, err)
	second, err := cached.Embed(ctx, "repeated query")
	require.NoError(t, err)

	// Then the inner embedder ran once and both results match
	assert.Equal(t, 1, inner.embedCalls)
	assert.Equal(t, first, second)
}

func TestCachedEmbedder_BatchOnlyEmbedsMisses(t *testing.T) {
	inner := &mockEmbedder{}
	cached := NewCachedEmbedder(inner, 10)

	ctx := context.Background()

	_, err := cached.EmbedBatch(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)

	results, err := cached.EmbedBatch(ctx, []string{"beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Only the uncached text reached the inner embedder
	assert.Equal(t, 2, inner.batchCalls)
	assert.Equal(t, []string{"gamma"}, inner.lastBatch)

	// Cached and fresh results land at the right indices
	assert.Equal(t, inner.vectorFor("beta"), results[0])
	assert.Equal(t, inner.vectorFor("gamma"), results[1])
}

func TestCachedEmbedder_FullyCachedBatchSkipsInner(t *testing.T) {
	inner := &mockEmbedder{}
	cached := NewCachedEmbedder(inner, 10)

	ctx := context.Background()
	texts := []string{"one", "two"}

	_, err := cached.EmbedBatch(ctx, texts)
	require.NoError(t, err)
	_, err = cached.EmbedBatch(ctx, texts)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.batchCalls)
}

func TestCachedEmbedder_EmptyBatch(t *testing.T) {
	inner := &mockEmbedder{}
	cached := NewCachedEmbedder(inner, 10)

	results, err := cached.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, 0, inner.batchCalls)
}

func TestCachedEmbedder_ErrorsAreNotCached(t *testing.T) {
	inner := &mockEmbedder{failNext: true}
	cached := NewCachedEmbedder(inner, 10)

	ctx := context.Background()

	_, err := cached.Embed(ctx, "query")
	require.Error(t, err)

	// The failed call left no cache entry; the retry reaches the inner embedder
	vec, err := cached.Embed(ctx, "query")
	require.NoError(t, err)
	assert.Equal(t, inner.vectorFor("query"), vec)
}

func TestCachedEmbedder_Passthroughs(t *testing.T) {
	inner := &mockEmbedder{}
	cached := NewCachedEmbedder(inner, 10)

	assert.Equal(t, inner.Dimensions(), cached.Dimensions())
	assert.Equal(t, inner.ModelName(), cached.ModelName())
	assert.True(t, cached.Available(context.Background()))
	assert.Same(t, inner, cached.Inner())

	require.NoError(t, cached.Close())
	assert.True(t, inner.closed)
}
