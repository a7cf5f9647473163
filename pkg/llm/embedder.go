package llm

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/tmc/langchaingo/embeddings"
	"golang.org/x/sync/errgroup"
)

// EmbedderConfig represents the configuration for an embedder.
type EmbedderConfig struct {
	Model       string // recorded next to every stored vector
	BatchSize   int    // texts per provider request
	Concurrency int    // provider requests in flight
}

// Embedder produces embeddings through a provider client while keeping the
// number of simultaneous requests under the provider's rate limit.
type Embedder struct {
	config EmbedderConfig
	client embeddings.EmbedderClient
}

var _ embeddings.Embedder = (*Embedder)(nil)

func NewEmbedderWithConfig(client embeddings.EmbedderClient, config EmbedderConfig) *Embedder {
	if config.BatchSize <= 0 {
		config.BatchSize = 16
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 5
	}

	return &Embedder{
		config: config,
		client: client,
	}
}

// Model is the identifier of the embedding model behind this embedder.
func (e *Embedder) Model() string {
	return e.config.Model
}

// EmbedDocuments embeds every text, preserving order. The first failing
// request cancels the rest and fails the whole call.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	cleaned := lo.Map(texts, func(t string, _ int) string {
		return strings.ReplaceAll(t, "\n", " ")
	})
	batches := embeddings.BatchTexts(cleaned, e.config.BatchSize)
	vectors := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Concurrency)

	for i, batch := range batches {
		offset := i * e.config.BatchSize
		g.Go(func() error {
			embedded, err := e.client.CreateEmbedding(gctx, batch)
			if err != nil {
				return errors.Wrapf(err, "failed to create embeddings for batch %d", i)
			}
			if len(embedded) != len(batch) {
				return errors.Errorf("batch %d: got %d embeddings for %d texts", i, len(embedded), len(batch))
			}
			copy(vectors[offset:], embedded)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// EmbedQuery embeds a single question.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
