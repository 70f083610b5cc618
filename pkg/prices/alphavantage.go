package prices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Alpha Vantage API endpoint.
	DefaultBaseURL = "https://www.alphavantage.co"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is requests per second against the quote API.
	DefaultRateLimit = 1
)

// ErrNoQuoteSource is returned when the cache has no live provider
// configured (e.g. missing API key) and must fall back.
var ErrNoQuoteSource = errors.New("prices: no quote source configured")

// APIError is a non-200 response from the quote provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("prices: API error %d: %s", e.StatusCode, e.Message)
}

// AlphaVantageClient fetches intraday quotes. Implements types.QuoteSource.
type AlphaVantageClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type ClientOption func(*AlphaVantageClient)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *AlphaVantageClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *AlphaVantageClient) {
		c.httpClient = httpClient
	}
}

// NewAlphaVantageClient creates a quote client. An empty apiKey returns
// an error so callers degrade to the fallback table instead of issuing
// doomed requests.
func NewAlphaVantageClient(apiKey string, opts ...ClientOption) (*AlphaVantageClient, error) {
	if apiKey == "" {
		return nil, ErrNoQuoteSource
	}

	c := &AlphaVantageClient{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type intradayResponse struct {
	TimeSeries map[string]map[string]string `json:"Time Series (5min)"`
	MetaData   map[string]string            `json:"Meta Data"`
}

// Quote returns the close of the most recent 5-minute bar for symbol.
func (c *AlphaVantageClient) Quote(ctx context.Context, symbol string) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_INTRADAY")
	params.Set("symbol", symbol)
	params.Set("interval", "5min")
	params.Set("apikey", c.apiKey)

	reqURL := fmt.Sprintf("%s/query?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var parsed intradayResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(parsed.TimeSeries) == 0 {
		return 0, fmt.Errorf("invalid API response format for %s", symbol)
	}

	// The most recent bar is the lexicographically largest timestamp key.
	var latest string
	for ts := range parsed.TimeSeries {
		if ts > latest {
			latest = ts
		}
	}

	closeStr, ok := parsed.TimeSeries[latest]["4. close"]
	if !ok {
		return 0, fmt.Errorf("missing close price for %s at %s", symbol, latest)
	}

	price, err := strconv.ParseFloat(closeStr, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed close price %q: %w", closeStr, err)
	}

	return price, nil
}
