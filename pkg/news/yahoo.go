package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/xhad/stocknews/internal/models"
)

const (
	// DefaultBaseURL is the Yahoo Finance search endpoint.
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// APIError is a non-200 response from the news provider.
type APIError struct {
	StatusCode int
	Message    string
	Symbol     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("news: API error %d for %s: %s", e.StatusCode, e.Symbol, e.Message)
}

// YahooClient searches Yahoo Finance for news per symbol. Implements
// types.NewsSource.
type YahooClient struct {
	baseURL    string
	httpClient *http.Client
}

type YahooOption func(*YahooClient)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) YahooOption {
	return func(c *YahooClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) YahooOption {
	return func(c *YahooClient) {
		c.httpClient = httpClient
	}
}

func NewYahooClient(opts ...YahooOption) *YahooClient {
	c := &YahooClient{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type searchResponse struct {
	News []struct {
		Title               string `json:"title"`
		Link                string `json:"link"`
		Publisher           string `json:"publisher"`
		ProviderPublishTime int64  `json:"providerPublishTime"`
	} `json:"news"`
}

// Search returns the provider's news list for one symbol, in provider
// order. An empty list is a valid response.
func (c *YahooClient) Search(ctx context.Context, symbol string) ([]models.NewsArticle, error) {
	params := url.Values{}
	params.Set("q", symbol)

	reqURL := fmt.Sprintf("%s/v1/finance/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: string(body), Symbol: symbol}
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	articles := make([]models.NewsArticle, 0, len(parsed.News))
	for _, item := range parsed.News {
		publisher := item.Publisher
		if publisher == "" {
			publisher = "Unknown"
		}
		articles = append(articles, models.NewsArticle{
			Symbol:      symbol,
			Title:       item.Title,
			Link:        item.Link,
			Publisher:   publisher,
			PublishTime: time.Unix(item.ProviderPublishTime, 0).UTC(),
		})
	}

	return articles, nil
}
