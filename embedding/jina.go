package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Jina calls the Jina embeddings endpoint, which speaks the
// OpenAI-compatible embeddings API with bearer-token auth.
type Jina struct {
	client *openai.Client
	model  string
}

func NewJina(baseURL, apiKey, model string) *Jina {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Jina{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (c *Jina) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	embeddings := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		embeddings[i] = d.Embedding
	}
	return embeddings, nil
}
