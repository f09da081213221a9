// Package embeddings provides text embedding clients for the semantic
// rule search index.
package embeddings

import (
	"context"
	"fmt"
	"os"

	chromem "github.com/philippgille/chromem-go"

	"github.com/sfecr/compliagent/internal/config"
)

// Embedder generates vector embeddings for regulation text.
type Embedder interface {
	// Embed generates embeddings for one or more texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the length of the embedding vectors.
	Dimensions() int

	// Name returns the model identifier.
	Name() string
}

// NewEmbedder builds an embedder for the configured provider. API keys
// come from the environment, same as the completion providers.
func NewEmbedder(provider config.ProviderType, model string) (Embedder, error) {
	if model == "" {
		model = config.DefaultEmbeddingModel(provider)
	}

	switch provider {
	case config.ProviderOpenAI:
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY not set")
		}
		return NewOpenAIEmbedder(key, model), nil
	case config.ProviderGoogle:
		key := os.Getenv("GOOGLE_API_KEY")
		if key == "" {
			return nil, fmt.Errorf("GOOGLE_API_KEY not set")
		}
		return NewGoogleEmbedder(key, model), nil
	case config.ProviderOllama:
		return NewOllamaEmbedder(model, 768, os.Getenv("OLLAMA_HOST")), nil
	default:
		return nil, fmt.Errorf("provider %q does not offer an embedding API", provider)
	}
}

// ToChromemFunc adapts an Embedder to the single-text function
// chromem-go expects.
func ToChromemFunc(e Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		results, err := e.Embed(ctx, []string{text})
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, nil
		}
		return results[0], nil
	}
}
