package scrape_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/stocknews/internal/models"
	"github.com/xhad/stocknews/pkg/scrape"
)

type fakeBrowser struct {
	pages      map[string][]string
	failNav    map[string]bool
	current    string
	closed     bool
	closeCalls int
}

func (f *fakeBrowser) Navigate(_ context.Context, url string, _ time.Duration) error {
	if f.failNav[url] {
		return errors.New("net::ERR_NAME_NOT_RESOLVED")
	}
	f.current = url
	return nil
}

func (f *fakeBrowser) WaitForSelector(_ context.Context, _ string, _ time.Duration) error {
	if len(f.pages[f.current]) == 0 {
		return errors.New("timeout waiting for selector")
	}
	return nil
}

func (f *fakeBrowser) ExtractTexts(_ context.Context, _ string) ([]string, error) {
	return f.pages[f.current], nil
}

func (f *fakeBrowser) Close() error {
	f.closed = true
	f.closeCalls++
	return nil
}

func TestExtractContents_OneOutputPerInput(t *testing.T) {
	browser := &fakeBrowser{
		pages: map[string][]string{
			"https://news/a": {"first paragraph", "second paragraph"},
			"https://news/c": {"only one"},
		},
		failNav: map[string]bool{"https://news/b": true},
	}

	extractor := scrape.NewExtractor(scrape.ExtractorConfig{Browser: browser})

	articles := []models.NewsArticle{
		{Link: "https://news/a"},
		{Link: "https://news/b"},
		{Link: "https://news/c"},
	}

	got := extractor.ExtractContents(context.Background(), articles)

	require.Len(t, got, len(articles))
	for i := range articles {
		assert.Equal(t, articles[i].Link, got[i].Link)
	}

	assert.Equal(t, []string{"first paragraph", "second paragraph"}, got[0].Paragraphs)
	// Failed navigation degrades to empty paragraphs, not an error
	assert.Empty(t, got[1].Paragraphs)
	assert.Equal(t, []string{"only one"}, got[2].Paragraphs)
}

func TestExtractContents_BrowserClosedAfterBatch(t *testing.T) {
	browser := &fakeBrowser{pages: map[string][]string{}}
	extractor := scrape.NewExtractor(scrape.ExtractorConfig{Browser: browser})

	extractor.ExtractContents(context.Background(), []models.NewsArticle{{Link: "https://x"}})

	assert.True(t, browser.closed)
	assert.Equal(t, 1, browser.closeCalls)
}

func TestExtractContents_BlankParagraphsDropped(t *testing.T) {
	browser := &fakeBrowser{
		pages: map[string][]string{
			"https://news/a": {"text", "", "more"},
		},
	}
	extractor := scrape.NewExtractor(scrape.ExtractorConfig{Browser: browser})

	got := extractor.ExtractContents(context.Background(), []models.NewsArticle{{Link: "https://news/a"}})
	require.Len(t, got, 1)
	assert.Equal(t, []string{"text", "more"}, got[0].Paragraphs)
}

func TestStaticBrowser_ExtractsParagraphs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<p> First. </p>
			<div><p>Second.</p></div>
		</body></html>`))
	}))
	defer server.Close()

	browser := scrape.NewStaticBrowser(nil)
	defer browser.Close()

	ctx := context.Background()
	require.NoError(t, browser.Navigate(ctx, server.URL, 10*time.Second))
	require.NoError(t, browser.WaitForSelector(ctx, "p", time.Second))

	texts, err := browser.ExtractTexts(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"First.", "Second."}, texts)
}

func TestStaticBrowser_MissingSelector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><div>no paragraphs here</div></body></html>`))
	}))
	defer server.Close()

	browser := scrape.NewStaticBrowser(nil)
	defer browser.Close()

	ctx := context.Background()
	require.NoError(t, browser.Navigate(ctx, server.URL, 10*time.Second))
	assert.Error(t, browser.WaitForSelector(ctx, "p", time.Second))
}
