package store

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"

	"github.com/xhad/askdocs/internal/models"
)

// ErrEmbeddingModelMismatch means the index was built with a different
// embedding model than the one used to embed queries.
var ErrEmbeddingModelMismatch = errors.New("embedding model mismatch")

// ModelGuard records the embedding model on every stored record and refuses
// search results produced by another model.
type ModelGuard struct {
	store vectorstores.VectorStore
	model string
}

var _ vectorstores.VectorStore = (*ModelGuard)(nil)

func NewModelGuard(store vectorstores.VectorStore, model string) *ModelGuard {
	return &ModelGuard{store: store, model: model}
}

func (g *ModelGuard) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	stamped := lo.Map(docs, func(d schema.Document, _ int) schema.Document {
		metadata := make(map[string]any, len(d.Metadata)+1)
		for k, v := range d.Metadata {
			metadata[k] = v
		}
		metadata[models.MetadataEmbeddingModel] = g.model
		d.Metadata = metadata
		return d
	})
	return g.store.AddDocuments(ctx, stamped, options...)
}

// SimilaritySearch fails with ErrEmbeddingModelMismatch when a match was
// stored under another model. Records without a model are accepted.
func (g *ModelGuard) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	docs, err := g.store.SimilaritySearch(ctx, query, numDocuments, options...)
	if err != nil {
		return nil, err
	}

	for _, d := range docs {
		stored, ok := d.Metadata[models.MetadataEmbeddingModel]
		if !ok || stored == nil {
			continue
		}
		if s := fmt.Sprint(stored); s != g.model {
			return nil, errors.Wrapf(ErrEmbeddingModelMismatch, "index holds %q vectors, queries use %q", s, g.model)
		}
	}
	return docs, nil
}

// Close releases the underlying store when it holds resources.
func (g *ModelGuard) Close() {
	if c, ok := g.store.(interface{ Close() }); ok {
		c.Close()
	}
}
