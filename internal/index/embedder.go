package index

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// OllamaEmbedder encodes text with an embedding model served by Ollama. The
// output dimensionality is probed once at construction time and defines what
// a well-formed stored vector looks like.
type OllamaEmbedder struct {
	embedder  *embeddings.EmbedderImpl
	modelName string
	dimension int
}

// NewOllamaEmbedder connects to the Ollama server and probes the model's
// output dimensionality.
func NewOllamaEmbedder(ctx context.Context, serverURL, model string) (*OllamaEmbedder, error) {
	llm, err := ollama.New(
		ollama.WithServerURL(serverURL),
		ollama.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	probe, err := embedder.EmbedQuery(ctx, "test")
	if err != nil {
		return nil, fmt.Errorf("failed to probe embedding dimension: %w", err)
	}
	if len(probe) == 0 {
		return nil, fmt.Errorf("embedding model %s returned an empty vector", model)
	}

	log.Info().Str("model", model).Int("dimension", len(probe)).Msg("Embedding model ready")

	return &OllamaEmbedder{
		embedder:  embedder,
		modelName: model,
		dimension: len(probe),
	}, nil
}

// Embed encodes one text into a fixed-length vector.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed text: %w", err)
	}
	return vec, nil
}

// Dimension returns the model's probed output dimensionality.
func (e *OllamaEmbedder) Dimension() int {
	return e.dimension
}
