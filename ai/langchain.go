package ai

import (
	"context"

	"github.com/tmc/langchaingo/embeddings"
)

// langchainEmbedder exposes an Embedder as a langchaingo embeddings.Embedder.
type langchainEmbedder struct {
	e Embedder
}

// AsLangchainEmbedder adapts e for use with langchaingo vector stores and chains.
func AsLangchainEmbedder(e Embedder) embeddings.Embedder {
	return langchainEmbedder{e: e}
}

func (l langchainEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return l.e.EmbedTexts(ctx, texts)
}

func (l langchainEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return l.e.EmbedText(ctx, text)
}
