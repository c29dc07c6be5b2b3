// Package embed maps text to fixed-length vectors through an
// OpenAI-compatible embeddings endpoint and provides cosine similarity
// between the resulting vectors.
package embed

import (
	"context"
	"fmt"
	"math"

	openai "github.com/sashabaranov/go-openai"
)

// Embedder maps a batch of texts to one vector each. Implementations are
// synchronous and potentially slow; callers pass a context with a
// deadline when they need responsiveness, and batch texts in one call to
// amortize cost.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Ping(ctx context.Context) error
}

// Client calls an OpenAI-compatible embeddings API.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient creates an embeddings client. baseURL may point at any
// OpenAI-compatible server (Ollama, vLLM, the OpenAI API itself).
func NewClient(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Model returns the configured embedding model name.
func (c *Client) Model() string {
	return c.model
}

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings API call: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings API returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("embeddings API returned out-of-range index %d", d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("embeddings endpoint unreachable: %w", err)
	}
	return nil
}

// Cosine returns the cosine similarity of two vectors in [-1, 1].
// Mismatched lengths and zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
