package store

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/vectorstores"

	"github.com/xhad/askdocs/pkg/config"
)

// Embedder is an embeddings.Embedder that knows its model name.
type Embedder interface {
	embeddings.Embedder
	Model() string
}

// New opens the vector store the configuration selects, guarded so records
// carry the embedder's model.
func New(ctx context.Context, cfg *config.Config, embedder Embedder, log logrus.FieldLogger) (*ModelGuard, error) {
	var (
		inner vectorstores.VectorStore
		err   error
	)

	switch cfg.VectorStore.Backend {
	case config.BackendPgvector:
		inner, err = NewPgvector(ctx, PgvectorConfig{
			ConnString: cfg.Database.URL,
			TableName:  cfg.Database.TableName,
			VectorDim:  cfg.Database.VectorDim,
		}, embedder)
	case config.BackendPinecone:
		inner, err = NewPinecone(ctx, PineconeConfig{
			APIKey:        cfg.Pinecone.APIKey,
			Environment:   cfg.Pinecone.Environment,
			Index:         cfg.Pinecone.Index,
			Host:          cfg.Pinecone.Host,
			Namespace:     cfg.Pinecone.Namespace,
			ControllerURL: cfg.Pinecone.ControllerURL,
		}, embedder, http.DefaultClient)
	default:
		return nil, errors.Errorf("unknown vector store backend %q", cfg.VectorStore.Backend)
	}
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"backend":         cfg.VectorStore.Backend,
		"embedding_model": embedder.Model(),
	}).Info("Vector store ready")

	return NewModelGuard(inner, embedder.Model()), nil
}
