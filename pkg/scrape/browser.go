package scrape

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/phuslu/log"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// ChromeBrowser drives a headless Chrome instance via chromedp.
// Implements types.Browser. The underlying browser process is started
// on first use and must be released with Close on every exit path.
type ChromeBrowser struct {
	mu              sync.Mutex
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc
	headless        bool
	userAgent       string
	logger          *log.Logger
}

type ChromeBrowserConfig struct {
	Headless  bool
	UserAgent string
	Logger    *log.Logger
}

func NewChromeBrowser(config ChromeBrowserConfig) *ChromeBrowser {
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}
	if config.Logger == nil {
		config.Logger = &log.DefaultLogger
	}

	return &ChromeBrowser{
		headless:  config.Headless,
		userAgent: config.UserAgent,
		logger:    config.Logger,
	}
}

// ensure starts the browser if it is not running yet.
func (b *ChromeBrowser) ensure(ctx context.Context) (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCtx != nil {
		return b.browserCtx, nil
	}

	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(b.userAgent),
		chromedp.WindowSize(1366, 768),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx,
		chromedp.WithLogf(func(s string, i ...interface{}) {
			b.logger.Debug().Msgf("chromedp: "+s, i...)
		}),
	)

	// Startup check so a missing Chrome binary fails here, not mid-batch
	testCtx, testCancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer testCancel()
	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocatorCancel()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	b.browserCtx = browserCtx
	b.browserCancel = browserCancel
	b.allocatorCancel = allocatorCancel
	b.logger.Debug().Msg("browser started")

	return b.browserCtx, nil
}

// Navigate loads url, waiting at most timeout.
func (b *ChromeBrowser) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	browserCtx, err := b.ensure(ctx)
	if err != nil {
		return err
	}

	navCtx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// WaitForSelector blocks until selector is present or timeout elapses.
func (b *ChromeBrowser) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	browserCtx, err := b.ensure(ctx)
	if err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(browserCtx, timeout)
	defer cancel()

	if err := chromedp.Run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("selector %q not found: %w", selector, err)
	}
	return nil
}

// ExtractTexts returns the trimmed text content of every element
// matching selector on the current page.
func (b *ChromeBrowser) ExtractTexts(ctx context.Context, selector string) ([]string, error) {
	browserCtx, err := b.ensure(ctx)
	if err != nil {
		return nil, err
	}

	var texts []string
	script := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%q)).map(el => (el.textContent || "").trim())`,
		selector,
	)
	if err := chromedp.Run(browserCtx, chromedp.Evaluate(script, &texts)); err != nil {
		return nil, fmt.Errorf("text extraction failed: %w", err)
	}
	return texts, nil
}

// Close releases the browser process. Safe to call more than once.
func (b *ChromeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browserCancel != nil {
		b.browserCancel()
		b.browserCancel = nil
	}
	if b.allocatorCancel != nil {
		b.allocatorCancel()
		b.allocatorCancel = nil
	}
	b.browserCtx = nil
	return nil
}
