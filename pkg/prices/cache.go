package prices

import (
	"context"
	"sync"
	"time"

	"github.com/phuslu/log"

	"github.com/xhad/stocknews/internal/types"
)

// DefaultTTL is how long a cached quote stays valid.
const DefaultTTL = 24 * time.Hour

// fallbackPrices are used when the live quote fetch fails. Symbols not
// listed fall back to DefaultFallbackPrice.
var fallbackPrices = map[string]float64{
	"AAPL":  197.30,
	"MSFT":  410.34,
	"AMZN":  183.92,
	"GOOGL": 165.78,
	"META":  471.10,
	"TSLA":  172.82,
	"NVDA":  874.50,
	"JNJ":   147.52,
}

const DefaultFallbackPrice = 100

type entry struct {
	price      float64
	observedAt time.Time
}

// Cache is a per-symbol quote cache with a TTL and a static fallback
// table. A fallback value is cached too, so a failing provider is not
// hammered for the same symbol inside the TTL window.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	source  types.QuoteSource
	ttl     time.Duration
	now     func() time.Time
	logger  *log.Logger
}

type CacheConfig struct {
	Source types.QuoteSource
	TTL    time.Duration
	Now    func() time.Time
	Logger *log.Logger
}

func NewCache(config CacheConfig) *Cache {
	if config.TTL == 0 {
		config.TTL = DefaultTTL
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Logger == nil {
		config.Logger = &log.DefaultLogger
	}

	return &Cache{
		entries: make(map[string]entry),
		source:  config.Source,
		ttl:     config.TTL,
		now:     config.Now,
		logger:  config.Logger,
	}
}

// GetPrice returns the cached price for symbol if fresh, otherwise
// fetches a live quote. When the fetch fails it returns the static
// fallback and caches that instead.
func (c *Cache) GetPrice(ctx context.Context, symbol string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if e, ok := c.entries[symbol]; ok && now.Sub(e.observedAt) < c.ttl {
		c.logger.Debug().Str("symbol", symbol).Float64("price", e.price).Msg("price cache hit")
		return e.price
	}

	price, err := c.fetch(ctx, symbol)
	if err != nil {
		price = Fallback(symbol)
		c.logger.Warn().Str("symbol", symbol).Float64("fallback", price).Err(err).
			Msg("quote fetch failed, using fallback price")
	}

	c.entries[symbol] = entry{price: price, observedAt: now}
	return price
}

func (c *Cache) fetch(ctx context.Context, symbol string) (float64, error) {
	if c.source == nil {
		return 0, ErrNoQuoteSource
	}
	return c.source.Quote(ctx, symbol)
}

// Fallback returns the static default price for a symbol.
func Fallback(symbol string) float64 {
	if p, ok := fallbackPrices[symbol]; ok {
		return p
	}
	return DefaultFallbackPrice
}
