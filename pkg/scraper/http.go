package scraper

import (
	"context"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

type HTTPFetcherConfig struct {
	Selector  string
	RateLimit float64 // requests per second
	Timeout   time.Duration
}

// HTTPFetcher downloads pages without running any script and selects the
// content region from the raw markup.
type HTTPFetcher struct {
	config  HTTPFetcherConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewHTTPFetcher(config HTTPFetcherConfig) *HTTPFetcher {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2 // 2 requests per second by default
	}

	return &HTTPFetcher{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	// Apply rate limiting
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrapf(err, "bad request for %s", url)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "failed to fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("received status code %d for URL: %s", resp.StatusCode, url)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse %s", url)
	}

	selected := doc.Find(f.config.Selector).First()
	if selected.Length() == 0 {
		return "", errors.Wrapf(ErrNotFound, "%s on %s", f.config.Selector, url)
	}

	return selected.Html()
}
