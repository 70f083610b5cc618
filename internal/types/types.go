package types

import (
	"context"
	"time"

	"github.com/xhad/stocknews/internal/models"
)

// NewsSource is the news search provider boundary. Best effort: an
// empty result is not an error.
type NewsSource interface {
	Search(ctx context.Context, symbol string) ([]models.NewsArticle, error)
}

// Browser is the minimal surface the content extractor relies on.
type Browser interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	ExtractTexts(ctx context.Context, selector string) ([]string, error)
	Close() error
}

// Embedder produces fixed-dimension vectors; the same implementation
// must serve ingestion and query embedding so dimensions match.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is the vector store boundary.
type VectorIndex interface {
	EnsureIndex(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) (int, error)
	Query(ctx context.Context, vector []float32, topK int) ([]SearchHit, error)
}

// SearchHit is one nearest-neighbor result before reranking.
type SearchHit struct {
	ID         string
	Text       string
	Link       string
	Similarity float64
}

// Completer is the LLM completion boundary.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// EmailSender sends one transactional email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, htmlBody string) (id string, err error)
}

// Ledger records workflow run lifecycle. Begin returns the run id used
// for the terminal update.
type Ledger interface {
	Begin(ctx context.Context, workflowType, metadata string) (runID string, err error)
	Finish(ctx context.Context, runID, status, result string) error
}

// SubscriberSource lists recipients eligible for the daily fan-out
// (verified and subscribed only).
type SubscriberSource interface {
	Subscribed(ctx context.Context) ([]models.Subscriber, error)
	AdminEmail(ctx context.Context) (string, error)
}

// QuoteSource fetches a live price for one symbol.
type QuoteSource interface {
	Quote(ctx context.Context, symbol string) (float64, error)
}
