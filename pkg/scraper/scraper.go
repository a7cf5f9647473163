package scraper

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/xhad/askdocs/internal/models"
	"github.com/xhad/askdocs/internal/types"
)

// ErrNotFound is returned when the content selector never shows up on a page.
var ErrNotFound = errors.New("content selector not found")

type ScraperConfig struct {
	Concurrency int                          // pages fetched at once
	OnProgress  func(url string, err error) // called once per URL, err nil on success
}

type Scraper struct {
	config    ScraperConfig
	fetcher   types.Fetcher
	extractor types.Extractor
	log       logrus.FieldLogger
}

func NewWithConfig(config ScraperConfig, fetcher types.Fetcher, extractor types.Extractor, log logrus.FieldLogger) *Scraper {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}

	return &Scraper{
		config:    config,
		fetcher:   fetcher,
		extractor: extractor,
		log:       log,
	}
}

// Scrape fetches one page and converts its content region to text.
func (s *Scraper) Scrape(ctx context.Context, url string) (models.Document, error) {
	html, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return models.Document{}, err
	}

	content, err := s.extractor.Extract(html)
	if err != nil {
		return models.Document{}, errors.Wrapf(err, "failed to extract %s", url)
	}

	return models.Document{URL: url, Content: content}, nil
}

// ScrapeAll scrapes every URL and returns the successful documents in input
// order. A failing URL is logged and left out; it never stops the batch.
func (s *Scraper) ScrapeAll(ctx context.Context, urls []string) []models.Document {
	results := make([]*models.Document, len(urls))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.config.Concurrency)

	for i, url := range urls {
		g.Go(func() error {
			doc, err := s.Scrape(ctx, url)

			mu.Lock()
			defer mu.Unlock()
			if s.config.OnProgress != nil {
				s.config.OnProgress(url, err)
			}
			if err != nil {
				s.log.WithError(err).WithField("url", url).Warn("Error scraping URL")
				return nil
			}
			results[i] = &doc
			return nil
		})
	}
	_ = g.Wait()

	documents := make([]models.Document, 0, len(urls))
	for _, doc := range results {
		if doc != nil {
			documents = append(documents, *doc)
		}
	}
	return documents
}
