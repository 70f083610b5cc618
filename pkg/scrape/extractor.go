package scrape

import (
	"context"
	"time"

	"github.com/phuslu/log"

	"github.com/xhad/stocknews/internal/models"
	"github.com/xhad/stocknews/internal/types"
)

const (
	// DefaultNavigationTimeout bounds a single page load.
	DefaultNavigationTimeout = 60 * time.Second

	// DefaultSelectorTimeout bounds the wait for paragraph elements.
	DefaultSelectorTimeout = 5 * time.Second

	// DefaultParagraphSelector is what gets extracted from each page.
	DefaultParagraphSelector = "p"
)

// Extractor fetches article bodies one URL at a time. A failed page
// degrades to empty paragraphs; the batch itself never fails, and the
// browser is always closed when the batch is done.
type Extractor struct {
	browser           types.Browser
	navigationTimeout time.Duration
	selectorTimeout   time.Duration
	selector          string
	logger            *log.Logger
}

type ExtractorConfig struct {
	Browser           types.Browser
	NavigationTimeout time.Duration
	SelectorTimeout   time.Duration
	ParagraphSelector string
	Logger            *log.Logger
}

func NewExtractor(config ExtractorConfig) *Extractor {
	if config.NavigationTimeout == 0 {
		config.NavigationTimeout = DefaultNavigationTimeout
	}
	if config.SelectorTimeout == 0 {
		config.SelectorTimeout = DefaultSelectorTimeout
	}
	if config.ParagraphSelector == "" {
		config.ParagraphSelector = DefaultParagraphSelector
	}
	if config.Logger == nil {
		config.Logger = &log.DefaultLogger
	}

	return &Extractor{
		browser:           config.Browser,
		navigationTimeout: config.NavigationTimeout,
		selectorTimeout:   config.SelectorTimeout,
		selector:          config.ParagraphSelector,
		logger:            config.Logger,
	}
}

// ExtractContents returns exactly one ScrapedArticle per input article,
// in input order. The browser is closed before returning, on success
// and on panic alike.
func (e *Extractor) ExtractContents(ctx context.Context, articles []models.NewsArticle) []models.ScrapedArticle {
	defer func() {
		if err := e.browser.Close(); err != nil {
			e.logger.Warn().Err(err).Msg("browser close failed")
		}
	}()

	results := make([]models.ScrapedArticle, 0, len(articles))
	for _, article := range articles {
		results = append(results, models.ScrapedArticle{
			Link:       article.Link,
			Paragraphs: e.extractOne(ctx, article.Link),
		})
	}
	return results
}

// extractOne returns the page's paragraph texts, or nil when any step
// fails. Blank paragraphs are dropped.
func (e *Extractor) extractOne(ctx context.Context, link string) []string {
	if err := e.browser.Navigate(ctx, link, e.navigationTimeout); err != nil {
		e.logger.Warn().Str("url", link).Err(err).Msg("navigation failed, skipping article")
		return nil
	}

	if err := e.browser.WaitForSelector(ctx, e.selector, e.selectorTimeout); err != nil {
		e.logger.Warn().Str("url", link).Err(err).Msg("no paragraph elements found")
		return nil
	}

	texts, err := e.browser.ExtractTexts(ctx, e.selector)
	if err != nil {
		e.logger.Warn().Str("url", link).Err(err).Msg("paragraph extraction failed")
		return nil
	}

	paragraphs := make([]string, 0, len(texts))
	for _, t := range texts {
		if t != "" {
			paragraphs = append(paragraphs, t)
		}
	}

	e.logger.Debug().Str("url", link).Int("paragraphs", len(paragraphs)).Msg("scraped article")
	return paragraphs
}
