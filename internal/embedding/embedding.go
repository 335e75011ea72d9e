// Package embedding provides a pluggable interface for text embedding providers.
package embedding

import (
	"context"
	"math"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/rcliao/campaign-memory/internal/model"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// Embedder generates embedding vectors from text.
// Implementations must be deterministic for a given model version and must
// report failure with an error wrapping model.ErrEncoderUnavailable.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
}

// CosineSimilarity computes cosine similarity between two vectors.
func CosineSimilarity(a, b Vector) float64 {
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

// Config selects and configures a provider.
type Config struct {
	Provider string // hash | openai | ollama | gemini
	Model    string
	BaseURL  string
	APIKey   string
	Dims     int
}

// FromConfig creates the embedder named by cfg.Provider.
func FromConfig(ctx context.Context, cfg Config) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "hash":
		return NewHashEmbedder(cfg.Dims), nil
	case "openai":
		e, err := NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dims)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "ollama":
		e, err := NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dims)
		if err != nil {
			return nil, err
		}
		return e, nil
	case "gemini":
		e, err := NewGeminiEmbedder(ctx, cfg.APIKey, cfg.Model, cfg.Dims)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
	return nil, goerr.New("unknown embedding provider", goerr.V("provider", cfg.Provider))
}

func unavailable(err error, provider string) error {
	return goerr.Wrap(model.ErrEncoderUnavailable, "embedding request failed",
		goerr.V("provider", provider), goerr.V("cause", err.Error()))
}

func checkVector(v Vector, provider string) (Vector, error) {
	if len(v) == 0 {
		return nil, goerr.Wrap(model.ErrEncoderUnavailable, "no embedding returned", goerr.V("provider", provider))
	}
	return v, nil
}
