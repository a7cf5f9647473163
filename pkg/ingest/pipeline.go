package ingest

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
	"github.com/tmc/langchaingo/vectorstores"

	"github.com/xhad/askdocs/internal/models"
	"github.com/xhad/askdocs/pkg/processor"
)

// Scraper fetches pages, leaving out the ones that fail.
type Scraper interface {
	ScrapeAll(ctx context.Context, urls []string) []models.Document
}

type PipelineConfig struct {
	OutputPath string                   // corpus file, parent directories are created
	BatchSize  int                      // chunks per vector store write
	OnStored   func(stored, total int) // called after each write
}

// Result summarizes one ingestion run.
type Result struct {
	URLs      int
	Documents int
	Chunks    int
	Stored    int
	Duration  time.Duration
}

// Pipeline scrapes the source pages, saves the joined corpus, chunks it and
// stores the chunks with their embeddings.
type Pipeline struct {
	config   PipelineConfig
	scraper  Scraper
	splitter textsplitter.TextSplitter
	store    vectorstores.VectorStore
	log      logrus.FieldLogger
}

func NewWithConfig(config PipelineConfig, scraper Scraper, splitter textsplitter.TextSplitter, store vectorstores.VectorStore, log logrus.FieldLogger) *Pipeline {
	if config.OutputPath == "" {
		config.OutputPath = filepath.Join("generated", "all.txt")
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 100
	}

	return &Pipeline{
		config:   config,
		scraper:  scraper,
		splitter: splitter,
		store:    store,
		log:      log,
	}
}

// Run ingests urls. Pages that fail to scrape are skipped; any failure after
// scraping ends the run with an error.
func (p *Pipeline) Run(ctx context.Context, urls []string) (*Result, error) {
	start := time.Now()
	result := &Result{URLs: len(urls)}

	docs := p.scraper.ScrapeAll(ctx, urls)
	result.Documents = len(docs)
	p.log.WithFields(logrus.Fields{
		"scraped": len(docs),
		"total":   len(urls),
	}).Info("Scraping finished")

	corpus := processor.Join(docs)
	if err := WriteCorpus(p.config.OutputPath, corpus); err != nil {
		return nil, err
	}

	chunks, err := p.splitter.SplitText(corpus)
	if err != nil {
		return nil, errors.Wrap(err, "failed to split corpus")
	}
	result.Chunks = len(chunks)

	if len(chunks) == 0 {
		p.log.Warn("Corpus is empty, nothing to index")
		result.Duration = time.Since(start)
		return result, nil
	}

	documents := lo.Map(chunks, func(c string, _ int) schema.Document {
		return schema.Document{PageContent: c}
	})
	for _, batch := range lo.Chunk(documents, p.config.BatchSize) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := p.store.AddDocuments(ctx, batch); err != nil {
			return nil, errors.Wrapf(err, "failed to index chunks %d-%d", result.Stored, result.Stored+len(batch))
		}
		result.Stored += len(batch)
		if p.config.OnStored != nil {
			p.config.OnStored(result.Stored, len(documents))
		}
	}

	result.Duration = time.Since(start)
	p.log.WithFields(logrus.Fields{
		"chunks":   result.Stored,
		"duration": result.Duration,
	}).Info("Indexing finished")

	return result, nil
}

// WriteCorpus writes the corpus to path, creating missing directories.
func WriteCorpus(path, corpus string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", path)
	}
	if err := os.WriteFile(path, []byte(corpus), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}
