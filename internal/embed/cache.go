package embed

import (
	"context"
	"log/slog"
)

// VectorCache persists embedding vectors keyed by text and model name.
type VectorCache interface {
	GetEmbedding(text, model string) ([]float32, error)
	PutEmbedding(text, model string, vec []float32) error
}

// Cached wraps an Embedder with a persistent vector cache so index
// rebuilds over an unchanged knowledge base avoid re-embedding.
type Cached struct {
	inner Embedder
	cache VectorCache
	model string
}

// NewCached creates a caching wrapper. model distinguishes cache entries
// produced by different embedding models.
func NewCached(inner Embedder, cache VectorCache, model string) *Cached {
	return &Cached{inner: inner, cache: cache, model: model}
}

// Embed serves cached vectors where possible and forwards the remaining
// texts to the inner embedder in a single batched call. Cache read or
// write failures degrade to the inner embedder, never to an error.
func (c *Cached) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))

	var missing []string
	var missingIdx []int
	for i, text := range texts {
		vec, err := c.cache.GetEmbedding(text, c.model)
		if err != nil {
			slog.Warn("embedding cache read failed", "error", err)
		}
		if vec != nil {
			vecs[i] = vec
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return vecs, nil
	}

	fresh, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range fresh {
		vecs[missingIdx[j]] = vec
		if err := c.cache.PutEmbedding(missing[j], c.model, vec); err != nil {
			slog.Warn("embedding cache write failed", "error", err)
		}
	}
	return vecs, nil
}

// Ping forwards to the inner embedder.
func (c *Cached) Ping(ctx context.Context) error {
	return c.inner.Ping(ctx)
}
