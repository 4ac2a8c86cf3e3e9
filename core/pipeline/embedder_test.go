package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/siherrmann/triage/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestHashEmbedder(t *testing.T) {
	ctx := context.Background()
	embedder := NewHashEmbedder(64)

	t.Run("Embeddings are deterministic and normalized", func(t *testing.T) {
		a, err := embedder.Embed(ctx, "Purchase events are missing")
		require.NoError(t, err)
		b, err := embedder.Embed(ctx, "Purchase events are missing")
		require.NoError(t, err)

		assert.Equal(t, a, b)
		assert.Len(t, a, 64)
		assert.InDelta(t, 1.0, cosine(a, a), 1e-5)
	})

	t.Run("Shared words increase similarity", func(t *testing.T) {
		query, _ := embedder.Embed(ctx, "purchase events missing")
		related, _ := embedder.Embed(ctx, "the purchase events are missing since monday")
		unrelated, _ := embedder.Embed(ctx, "invoice address update request")

		assert.Greater(t, cosine(query, related), cosine(query, unrelated))
	})

	t.Run("Batch keeps input order", func(t *testing.T) {
		texts := []string{"first ticket", "second ticket", "third"}
		vectors, err := embedder.EmbedBatch(ctx, texts)
		require.NoError(t, err)
		require.Len(t, vectors, 3)

		for i, text := range texts {
			single, _ := embedder.Embed(ctx, text)
			assert.Equal(t, single, vectors[i])
		}
	})

	t.Run("Text without words still gives a unit vector", func(t *testing.T) {
		v, err := embedder.Embed(ctx, "  ...  ")
		require.NoError(t, err)
		assert.InDelta(t, 1.0, cosine(v, v), 1e-5)
	})

	t.Run("Cancelled context fails", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := embedder.Embed(cancelled, "text")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestCheckVectors(t *testing.T) {
	t.Run("Valid response", func(t *testing.T) {
		vectors, err := CheckVectors([][]float32{{1, 0}, {0, 1}}, 2, 2)
		require.NoError(t, err)
		assert.Len(t, vectors, 2)
	})

	t.Run("Count mismatch is a service error", func(t *testing.T) {
		_, err := CheckVectors([][]float32{{1, 0}}, 2, 2)
		var serviceErr *model.EmbeddingServiceError
		assert.True(t, errors.As(err, &serviceErr))
	})

	t.Run("Empty vector is a service error", func(t *testing.T) {
		_, err := CheckVectors([][]float32{{}}, 1, 0)
		var serviceErr *model.EmbeddingServiceError
		assert.True(t, errors.As(err, &serviceErr))
	})

	t.Run("Dimension mismatch is a service error", func(t *testing.T) {
		_, err := CheckVectors([][]float32{{1, 0, 0}}, 1, 2)
		var serviceErr *model.EmbeddingServiceError
		assert.True(t, errors.As(err, &serviceErr))
	})
}

func TestLocalEmbedder(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping model download in short mode")
	}

	embedder, err := NewLocalEmbedder(t.TempDir(), DefaultModel, 384)
	if err != nil {
		t.Skipf("local model unavailable: %v", err)
	}
	defer embedder.Close()

	t.Run("Generates 384 dimensional embeddings", func(t *testing.T) {
		vectors, err := embedder.EmbedBatch(context.Background(), []string{"GA4 purchase event", "Consent mode"})
		require.NoError(t, err)
		require.Len(t, vectors, 2)
		assert.Len(t, vectors[0], 384)
	})

	t.Run("Empty batch", func(t *testing.T) {
		vectors, err := embedder.EmbedBatch(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, vectors)
	})
}
