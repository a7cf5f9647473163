package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"
)

type PgvectorConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// Pgvector keeps chunks and their embeddings in a PostgreSQL table and
// searches them by cosine distance.
type Pgvector struct {
	config   PgvectorConfig
	pool     *pgxpool.Pool
	embedder embeddings.Embedder
	table    string
}

var _ vectorstores.VectorStore = (*Pgvector)(nil)

func NewPgvector(ctx context.Context, config PgvectorConfig, embedder embeddings.Embedder) (*Pgvector, error) {
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536 // Default for OpenAI embeddings
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	vs := &Pgvector{
		config:   config,
		pool:     pool,
		embedder: embedder,
		table:    pgx.Identifier{config.TableName}.Sanitize(),
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *Pgvector) initialize(ctx context.Context) error {
	if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return errors.Wrap(err, "failed to create vector extension")
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			embedding vector(%d),
			metadata JSONB
		)`, vs.table, vs.config.VectorDim)
	if _, err := vs.pool.Exec(ctx, createTable); err != nil {
		return errors.Wrap(err, "failed to create table")
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		pgx.Identifier{vs.config.TableName + "_embedding_idx"}.Sanitize(), vs.table)
	if _, err := vs.pool.Exec(ctx, createIndex); err != nil {
		return errors.Wrap(err, "failed to create index")
	}

	return nil
}

// AddDocuments embeds the documents and upserts them in one transaction.
// Ids derive from the content, so ingesting the same chunk twice overwrites
// the earlier row.
func (vs *Pgvector) AddDocuments(ctx context.Context, docs []schema.Document, options ...vectorstores.Option) ([]string, error) {
	if len(docs) == 0 {
		return []string{}, nil
	}
	opts := vs.options(options)

	contents := lo.Map(docs, func(d schema.Document, _ int) string {
		return sanitizeUTF8(d.PageContent)
	})
	vectors, err := opts.Embedder.EmbedDocuments(ctx, contents)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create embeddings")
	}
	if len(vectors) != len(docs) {
		return nil, errors.Errorf("got %d embeddings for %d documents", len(vectors), len(docs))
	}

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, embedding, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		vs.table)

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	ids := make([]string, len(docs))
	batch := &pgx.Batch{}
	for i, content := range contents {
		ids[i] = uuid.NewSHA1(uuid.NameSpaceURL, []byte(content)).String()
		metadata := docs[i].Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}
		batch.Queue(stmt, ids[i], content, pgvector.NewVector(vectors[i]), metadata)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, errors.Wrap(err, "failed to insert documents")
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to commit transaction")
	}

	return ids, nil
}

// SimilaritySearch returns the numDocuments rows closest to query, best first.
func (vs *Pgvector) SimilaritySearch(ctx context.Context, query string, numDocuments int, options ...vectorstores.Option) ([]schema.Document, error) {
	opts := vs.options(options)

	queryEmbedding, err := opts.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed query")
	}

	sql := fmt.Sprintf(`
		SELECT content, metadata, embedding <=> $1 AS distance
		FROM %s
		ORDER BY distance
		LIMIT $2`,
		vs.table)

	rows, err := vs.pool.Query(ctx, sql, pgvector.NewVector(queryEmbedding), numDocuments)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query documents")
	}
	defer rows.Close()

	docs := []schema.Document{}
	for rows.Next() {
		var (
			doc      schema.Document
			distance float64
		)
		if err := rows.Scan(&doc.PageContent, &doc.Metadata, &distance); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		doc.Score = float32(1 - distance)
		if opts.ScoreThreshold > 0 && doc.Score < opts.ScoreThreshold {
			continue
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read rows")
	}

	return docs, nil
}

func (vs *Pgvector) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func (vs *Pgvector) options(options []vectorstores.Option) vectorstores.Options {
	opts := vectorstores.Options{}
	for _, o := range options {
		o(&opts)
	}
	if opts.Embedder == nil {
		opts.Embedder = vs.embedder
	}
	return opts
}

// sanitizeUTF8 drops invalid bytes, which PostgreSQL rejects in TEXT columns.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
