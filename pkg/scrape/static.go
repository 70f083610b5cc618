package scrape

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// StaticBrowser extracts from server-rendered HTML over plain HTTP.
// Implements types.Browser for environments without a Chrome binary;
// pages that need JavaScript will come back empty.
type StaticBrowser struct {
	httpClient *http.Client
	doc        *goquery.Document
}

func NewStaticBrowser(httpClient *http.Client) *StaticBrowser {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &StaticBrowser{httpClient: httpClient}
}

func (s *StaticBrowser) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, url)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return err
	}

	s.doc = doc
	return nil
}

func (s *StaticBrowser) WaitForSelector(_ context.Context, selector string, _ time.Duration) error {
	if s.doc == nil {
		return fmt.Errorf("no page loaded")
	}
	if s.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("selector %q not found on page", selector)
	}
	return nil
}

func (s *StaticBrowser) ExtractTexts(_ context.Context, selector string) ([]string, error) {
	if s.doc == nil {
		return nil, fmt.Errorf("no page loaded")
	}

	var texts []string
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(sel.Text()))
	})
	return texts, nil
}

func (s *StaticBrowser) Close() error {
	s.doc = nil
	return nil
}
