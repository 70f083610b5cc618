package advisor_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/stocknews/internal/models"
	"github.com/xhad/stocknews/pkg/advisor"
)

type fakeRetriever struct {
	results   []models.RetrievalResult
	err       error
	lastQuery string
	lastTopK  int
}

func (f *fakeRetriever) Query(_ context.Context, text string, topK int) ([]models.RetrievalResult, error) {
	f.lastQuery = text
	f.lastTopK = topK
	return f.results, f.err
}

type fakeCompleter struct {
	response   string
	err        error
	lastPrompt string
	lastTemp   float64
	calls      int
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, _ int, temperature float64) (string, error) {
	f.calls++
	f.lastPrompt = prompt
	f.lastTemp = temperature
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func holdings() []models.Holding {
	return []models.Holding{
		{Symbol: "AAPL", Shares: 5, AvgPrice: 180.10, CurrentPrice: 197.30},
	}
}

func TestAdvise_BuildsPromptFromAllInputs(t *testing.T) {
	retriever := &fakeRetriever{results: []models.RetrievalResult{
		{Text: "Apple guidance raised", Link: "https://news/a", RelevanceScore: 0.9},
	}}
	completer := &fakeCompleter{response: "hold and diversify"}

	adv := advisor.NewAdvisor(advisor.AdvisorConfig{
		Retriever: retriever,
		Completer: completer,
	})

	got, err := adv.Advise(context.Background(), holdings(), 10000, "long-term growth")
	require.NoError(t, err)

	assert.Equal(t, "hold and diversify", got.Recommendations)
	assert.NotEmpty(t, got.Explanation)

	// Goal is the retrieval query, topK is 5
	assert.Equal(t, "long-term growth", retriever.lastQuery)
	assert.Equal(t, 5, retriever.lastTopK)

	assert.Contains(t, completer.lastPrompt, "AAPL")
	assert.Contains(t, completer.lastPrompt, "10000.00")
	assert.Contains(t, completer.lastPrompt, "long-term growth")
	assert.Contains(t, completer.lastPrompt, "https://news/a")
	// Low temperature by default
	assert.InDelta(t, 0.2, completer.lastTemp, 1e-9)
}

func TestAdvise_FallsBackToHoldingSymbolAsQuery(t *testing.T) {
	retriever := &fakeRetriever{}
	completer := &fakeCompleter{response: "ok"}

	adv := advisor.NewAdvisor(advisor.AdvisorConfig{Retriever: retriever, Completer: completer})
	_, err := adv.Advise(context.Background(), holdings(), 0, "")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", retriever.lastQuery)
}

func TestAdvise_RetrievalFailureIsNotFatal(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("index offline")}
	completer := &fakeCompleter{response: "advice without news"}

	adv := advisor.NewAdvisor(advisor.AdvisorConfig{Retriever: retriever, Completer: completer})
	got, err := adv.Advise(context.Background(), holdings(), 500, "income")
	require.NoError(t, err)
	assert.Equal(t, "advice without news", got.Recommendations)
}

func TestAdvise_CompletionFailureIsFatal(t *testing.T) {
	adv := advisor.NewAdvisor(advisor.AdvisorConfig{
		Retriever: &fakeRetriever{},
		Completer: &fakeCompleter{err: errors.New("model overloaded")},
	})

	_, err := adv.Advise(context.Background(), holdings(), 500, "income")
	assert.Error(t, err)
}

func TestSummarize_IncludesArticlesAndBodies(t *testing.T) {
	completer := &fakeCompleter{response: "<html>summary</html>"}
	adv := advisor.NewAdvisor(advisor.AdvisorConfig{Retriever: &fakeRetriever{}, Completer: completer})

	articles := []models.NewsArticle{
		{Symbol: "TSLA", Title: "Deliveries up", Link: "https://news/t"},
	}
	scraped := []models.ScrapedArticle{
		{Link: "https://news/t", Paragraphs: []string{"Tesla delivered more cars."}},
	}

	body, err := adv.Summarize(context.Background(), articles, scraped)
	require.NoError(t, err)
	assert.Equal(t, "<html>summary</html>", body)

	assert.Contains(t, completer.lastPrompt, "TSLA")
	assert.Contains(t, completer.lastPrompt, "Deliveries up")
	assert.Contains(t, completer.lastPrompt, "Tesla delivered more cars.")
}
