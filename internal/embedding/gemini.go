package embedding

import (
	"context"

	"github.com/google/generative-ai-go/genai"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
)

// GeminiEmbedder uses the Gemini embedding API.
type GeminiEmbedder struct {
	client *genai.Client
	model  *genai.EmbeddingModel
	dims   int
}

// NewGeminiEmbedder creates an embedder backed by a Gemini embedding model.
// Default model: text-embedding-004 (768 dims). A positive dims overrides the
// size reported for other models.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, dims int) (*GeminiEmbedder, error) {
	if apiKey == "" {
		return nil, goerr.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client")
	}
	if model == "" {
		model = "text-embedding-004"
	}
	if dims <= 0 {
		dims = 768
	}
	return &GeminiEmbedder{
		client: client,
		model:  client.EmbeddingModel(model),
		dims:   dims,
	}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	res, err := e.model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, unavailable(err, "gemini")
	}
	if res.Embedding == nil {
		return checkVector(nil, "gemini")
	}
	return checkVector(res.Embedding.Values, "gemini")
}

func (e *GeminiEmbedder) Dims() int { return e.dims }

// Close releases the underlying client. Store.Close calls it.
func (e *GeminiEmbedder) Close() error {
	return e.client.Close()
}
