package news

import (
	"context"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/time/rate"

	"github.com/xhad/stocknews/internal/models"
	"github.com/xhad/stocknews/internal/types"
)

// DefaultRequestInterval spaces successive provider calls to stay
// under the upstream rate limit.
const DefaultRequestInterval = 1200 * time.Millisecond

// Fetcher pulls news for a set of symbols, one symbol at a time. A
// failing symbol contributes zero articles; the batch never fails.
type Fetcher struct {
	source  types.NewsSource
	limiter *rate.Limiter
	logger  *log.Logger
}

type FetcherConfig struct {
	Source          types.NewsSource
	RequestInterval time.Duration
	Logger          *log.Logger
}

func NewFetcher(config FetcherConfig) *Fetcher {
	if config.RequestInterval == 0 {
		config.RequestInterval = DefaultRequestInterval
	}
	if config.Logger == nil {
		config.Logger = &log.DefaultLogger
	}

	return &Fetcher{
		source:  config.Source,
		limiter: rate.NewLimiter(rate.Every(config.RequestInterval), 1),
		logger:  config.Logger,
	}
}

// FetchNews returns up to maxPerSymbol articles per symbol, in symbol
// order then provider order. Calls are paced sequentially; symbols are
// never fetched in parallel.
func (f *Fetcher) FetchNews(ctx context.Context, symbols []string, maxPerSymbol int) []models.NewsArticle {
	if maxPerSymbol <= 0 {
		maxPerSymbol = 5
	}

	var all []models.NewsArticle
	for _, symbol := range symbols {
		if err := f.limiter.Wait(ctx); err != nil {
			f.logger.Warn().Err(err).Msg("news fetch interrupted")
			break
		}

		articles, err := f.source.Search(ctx, symbol)
		if err != nil {
			f.logger.Warn().Str("symbol", symbol).Err(err).Msg("news fetch failed for symbol")
			continue
		}

		if len(articles) > maxPerSymbol {
			articles = articles[:maxPerSymbol]
		}

		f.logger.Debug().Str("symbol", symbol).Int("articles", len(articles)).Msg("fetched news")
		all = append(all, articles...)
	}

	return all
}
