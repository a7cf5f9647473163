package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/xhad/askdocs/internal/types"
	"github.com/xhad/askdocs/pkg/config"
	"github.com/xhad/askdocs/pkg/extractor"
	"github.com/xhad/askdocs/pkg/ingest"
	"github.com/xhad/askdocs/pkg/processor"
	"github.com/xhad/askdocs/pkg/scraper"
)

func newIngestCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Scrape the configured pages and index them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runIngest(ctx, *configPath)
		},
	}
}

func runIngest(ctx context.Context, configPath string) error {
	a, err := newApp(ctx, configPath, (*config.Config).ValidateIngest)
	if err != nil {
		return err
	}
	defer a.Close()

	urls, err := a.cfg.SourceURLs()
	if err != nil {
		return err
	}

	fetcher, closeFetcher, err := newFetcher(ctx, a)
	if err != nil {
		return err
	}
	defer closeFetcher()

	color.Blue("\nStarting ingestion of %d pages\n", len(urls))

	scrapingBar := getProgressBar(len(urls), "📄 Scraping pages...")
	s := scraper.NewWithConfig(scraper.ScraperConfig{
		Concurrency: a.cfg.Scraper.Concurrency,
		OnProgress: func(url string, err error) {
			_ = scrapingBar.Add(1)
		},
	}, fetcher, extractor.New(), a.log)

	var storageBar *progressbar.ProgressBar
	splitter := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    a.cfg.Processor.ChunkSize,
		ChunkOverlap: a.cfg.Processor.ChunkOverlap,
		Splitter:     a.cfg.Processor.Splitter,
	})
	pipeline := ingest.NewWithConfig(ingest.PipelineConfig{
		OutputPath: a.cfg.Ingest.OutputPath,
		BatchSize:  a.cfg.Database.BatchSize,
		OnStored: func(stored, total int) {
			if storageBar == nil {
				_ = scrapingBar.Finish()
				storageBar = getProgressBar(total, "💾 Storing in vector database...")
			}
			_ = storageBar.Set(stored)
		},
	}, s, splitter, a.store, a.log)

	result, err := pipeline.Run(ctx, urls)
	_ = scrapingBar.Finish()
	if err != nil {
		color.Red("\n✗ Ingestion failed: %v\n", err)
		return err
	}

	color.Green("\n✓ Scraped %d of %d pages\n", result.Documents, result.URLs)
	color.Green("✓ Wrote corpus to %s\n", a.cfg.Ingest.OutputPath)
	color.Green("✓ Indexed %d chunks in %s\n", result.Stored, result.Duration.Round(time.Millisecond))
	return nil
}

// newFetcher builds the page fetcher for the configured mode and returns the
// function that releases it.
func newFetcher(ctx context.Context, a *app) (types.Fetcher, func(), error) {
	switch a.cfg.Scraper.Mode {
	case config.ModeHTTP:
		return scraper.NewHTTPFetcher(scraper.HTTPFetcherConfig{
			Selector:  a.cfg.Scraper.Selector,
			RateLimit: a.cfg.Scraper.RateLimit,
			Timeout:   a.cfg.Scraper.NavigationTimeout,
		}), func() {}, nil
	case config.ModeBrowser:
		browser, err := scraper.NewBrowserFetcher(ctx, scraper.BrowserFetcherConfig{
			Selector:          a.cfg.Scraper.Selector,
			SelectorTimeout:   a.cfg.Scraper.SelectorTimeout,
			NavigationTimeout: a.cfg.Scraper.NavigationTimeout,
			RemoteURL:         a.cfg.Scraper.BrowserURL,
		}, a.log)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to start browser")
		}
		return browser, browser.Close, nil
	default:
		return nil, nil, errors.Errorf("unknown scraper mode %q", a.cfg.Scraper.Mode)
	}
}
