package scraper

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type BrowserFetcherConfig struct {
	Selector          string
	SelectorTimeout   time.Duration
	NavigationTimeout time.Duration
	RemoteURL         string // devtools websocket of a rendering service; empty launches a local headless Chrome
}

// BrowserFetcher renders pages in headless Chrome with JavaScript disabled,
// one tab per page.
type BrowserFetcher struct {
	config        BrowserFetcherConfig
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc
}

func NewBrowserFetcher(ctx context.Context, config BrowserFetcherConfig, log logrus.FieldLogger) (*BrowserFetcher, error) {
	if config.SelectorTimeout == 0 {
		config.SelectorTimeout = time.Second
	}
	if config.NavigationTimeout == 0 {
		config.NavigationTimeout = 30 * time.Second
	}

	var allocCtx context.Context
	var cancelAlloc context.CancelFunc
	if config.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(ctx, config.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.DisableGPU)
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(ctx, opts...)
	}

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(log.Errorf),
	)

	// Start the browser now so a missing Chrome fails before any page is tried.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, errors.Wrap(err, "failed to start browser")
	}

	return &BrowserFetcher{
		config:        config,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}, nil
}

func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	tabCtx, closeTab := chromedp.NewContext(f.browserCtx)
	defer closeTab()
	stop := context.AfterFunc(ctx, closeTab)
	defer stop()

	if err := chromedp.Run(tabCtx, emulation.SetScriptExecutionDisabled(true)); err != nil {
		return "", errors.Wrapf(err, "failed to open page for %s", url)
	}

	navCtx, cancelNav := context.WithTimeout(tabCtx, f.config.NavigationTimeout)
	defer cancelNav()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return "", errors.Wrapf(err, "failed to navigate to %s", url)
	}

	waitCtx, cancelWait := context.WithTimeout(tabCtx, f.config.SelectorTimeout)
	defer cancelWait()

	var html string
	err := chromedp.Run(waitCtx,
		chromedp.WaitReady(f.config.Selector, chromedp.ByQuery),
		chromedp.InnerHTML(f.config.Selector, &html, chromedp.ByQuery),
	)
	if err != nil {
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", errors.Wrapf(ErrNotFound, "%s on %s", f.config.Selector, url)
		}
		return "", errors.Wrapf(err, "failed to read %s", url)
	}

	return html, nil
}

// Close shuts the browser down.
func (f *BrowserFetcher) Close() {
	f.cancelBrowser()
	f.cancelAlloc()
}
