package models

import "time"

// NewsArticle is one headline returned by the news provider for a symbol.
// Link is the natural key used by every downstream stage.
type NewsArticle struct {
	Symbol      string
	Title       string
	Link        string
	Publisher   string
	PublishTime time.Time
}

// ScrapedArticle holds the extracted paragraphs for one article link.
// Empty Paragraphs is a valid terminal state for a failed scrape.
type ScrapedArticle struct {
	Link       string
	Paragraphs []string
}

// Chunk is the unit of embedding and retrieval. ID is deterministic
// (link + "::" + index) so re-ingestion overwrites instead of duplicating.
type Chunk struct {
	ID         string
	Text       string
	SourceLink string
	CreatedAt  time.Time
}

// RetrievalResult is one reranked hit for a query. Never persisted.
type RetrievalResult struct {
	Text           string
	Link           string
	RelevanceScore float64
}

// Holding is one position in a (simulated) portfolio.
type Holding struct {
	Symbol       string  `json:"symbol"`
	Shares       float64 `json:"shares"`
	AvgPrice     float64 `json:"avgPrice"`
	CurrentPrice float64 `json:"currentPrice"`
}

// Advice is the synthesizer's output: the raw completion plus a fixed
// provenance note about how it was produced.
type Advice struct {
	Recommendations string
	Explanation     string
}

// Subscriber is a recipient of the daily summary email.
type Subscriber struct {
	Email         string
	Name          string
	Subscribed    bool
	EmailVerified bool
}

// SendOutcome is the result of one recipient's send attempt.
type SendOutcome struct {
	Recipient string
	Success   bool
	Error     string
}

// BulkSendResult aggregates a fan-out batch.
type BulkSendResult struct {
	SuccessCount int      `json:"successCount"`
	FailureCount int      `json:"failureCount"`
	Errors       []string `json:"errors,omitempty"`
}

// Workflow execution statuses. One row per run, updated in place on the
// terminal outcome.
const (
	StatusStarted   = "STARTED"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// WorkflowExecution is the audit record for one pipeline run.
type WorkflowExecution struct {
	ID           string
	WorkflowType string
	Status       string
	Metadata     string
	Result       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// WorkflowOptions is the trigger surface input.
type WorkflowOptions struct {
	SendToAll        bool   `json:"sendToAll,omitempty"`
	IndividualEmail  string `json:"individualEmail,omitempty"`
	MaxNewsPerSymbol int    `json:"maxNewsPerSymbol,omitempty"`
	TopK             int    `json:"topK,omitempty"`
}

// WorkflowResult is the trigger surface output. Success is false for a
// run that found nothing to summarize, even when no error occurred.
type WorkflowResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Details *BulkSendResult `json:"details,omitempty"`
	Error   string          `json:"error,omitempty"`
}
