package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/phuslu/log"

	"github.com/xhad/stocknews/internal/models"
	"github.com/xhad/stocknews/internal/types"
)

// provenance is the fixed explanation attached to every advice result.
const provenance = "Generated from your holdings and recent market news retrieved from the vector corpus, then summarized by the language model."

// adviceTopK is how many news snippets back one advice request.
const adviceTopK = 5

// Retriever is the slice of the search surface the advisor needs.
type Retriever interface {
	Query(ctx context.Context, text string, topK int) ([]models.RetrievalResult, error)
}

// Advisor composes holdings, cash, goal and retrieved news into one
// completion request. Completion failure surfaces to the caller; there
// is no internal retry.
type Advisor struct {
	retriever   Retriever
	completer   types.Completer
	maxTokens   int
	temperature float64
	logger      *log.Logger
}

type AdvisorConfig struct {
	Retriever   Retriever
	Completer   types.Completer
	MaxTokens   int
	Temperature float64
	Logger      *log.Logger
}

func NewAdvisor(config AdvisorConfig) *Advisor {
	if config.MaxTokens == 0 {
		config.MaxTokens = 1024
	}
	if config.Temperature == 0 {
		// Conservative financial language wants near-deterministic output
		config.Temperature = 0.2
	}
	if config.Logger == nil {
		config.Logger = &log.DefaultLogger
	}

	return &Advisor{
		retriever:   config.Retriever,
		completer:   config.Completer,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		logger:      config.Logger,
	}
}

// Advise produces personalized commentary for one portfolio.
func (a *Advisor) Advise(ctx context.Context, holdings []models.Holding, cashBalance float64, goal string) (*models.Advice, error) {
	query := goal
	if query == "" && len(holdings) > 0 {
		query = holdings[0].Symbol
	}

	var news []models.RetrievalResult
	if query != "" {
		retrieved, err := a.retriever.Query(ctx, query, adviceTopK)
		if err != nil {
			// Advice still works without news context
			a.logger.Warn().Err(err).Msg("news retrieval failed, advising without context")
		} else {
			news = retrieved
		}
	}

	prompt := a.buildAdvicePrompt(holdings, cashBalance, goal, news)

	completion, err := a.completer.Complete(ctx, prompt, a.maxTokens, a.temperature)
	if err != nil {
		return nil, fmt.Errorf("advice generation failed: %w", err)
	}

	return &models.Advice{
		Recommendations: completion,
		Explanation:     provenance,
	}, nil
}

// Summarize produces the daily email body from scraped articles.
func (a *Advisor) Summarize(ctx context.Context, articles []models.NewsArticle, scraped []models.ScrapedArticle) (string, error) {
	prompt := buildSummaryPrompt(articles, scraped)

	body, err := a.completer.Complete(ctx, prompt, a.maxTokens, a.temperature)
	if err != nil {
		return "", fmt.Errorf("summary generation failed: %w", err)
	}
	return body, nil
}

func (a *Advisor) buildAdvicePrompt(holdings []models.Holding, cashBalance float64, goal string, news []models.RetrievalResult) string {
	serialized, _ := json.Marshal(holdings)

	var b strings.Builder
	b.WriteString("You are a conservative AI financial advisor.\n\n")
	fmt.Fprintf(&b, "Holdings: %s\n", serialized)
	fmt.Fprintf(&b, "Cash balance: $%.2f\n", cashBalance)
	fmt.Fprintf(&b, "Investment goal: %s\n", goal)

	if len(news) > 0 {
		b.WriteString("\nRelevant recent news:\n")
		for _, n := range news {
			fmt.Fprintf(&b, "- %s (source: %s)\n", n.Text, n.Link)
		}
	}

	b.WriteString("\nProvide personalized portfolio advice grounded in the holdings and news above. Be specific and cautious; do not invent facts.")
	return b.String()
}

func buildSummaryPrompt(articles []models.NewsArticle, scraped []models.ScrapedArticle) string {
	bodies := make(map[string][]string, len(scraped))
	for _, s := range scraped {
		bodies[s.Link] = s.Paragraphs
	}

	var b strings.Builder
	b.WriteString("Write a concise daily stock market summary email in HTML from these articles. Group by ticker, keep a neutral tone, and cite each source link.\n\n")

	for _, article := range articles {
		fmt.Fprintf(&b, "[%s] %s (%s)\n%s\n", article.Symbol, article.Title, article.Link, excerpt(bodies[article.Link]))
	}

	return b.String()
}

// excerpt keeps prompts bounded: the first few paragraphs are enough
// signal for a summary.
func excerpt(paragraphs []string) string {
	const maxParagraphs = 3
	if len(paragraphs) > maxParagraphs {
		paragraphs = paragraphs[:maxParagraphs]
	}
	return strings.Join(paragraphs, "\n")
}
