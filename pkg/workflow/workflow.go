package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"github.com/xhad/stocknews/internal/models"
	"github.com/xhad/stocknews/internal/types"
)

// WorkflowType labels ledger rows written by this pipeline.
const WorkflowType = "daily-news"

const defaultMaxNewsPerSymbol = 3

// NewsFetcher is the headline collection stage.
type NewsFetcher interface {
	FetchNews(ctx context.Context, symbols []string, maxPerSymbol int) []models.NewsArticle
}

// ContentExtractor is the article body extraction stage.
type ContentExtractor interface {
	ExtractContents(ctx context.Context, articles []models.NewsArticle) []models.ScrapedArticle
}

// Chunker splits scraped bodies into embeddable chunks.
type Chunker interface {
	Process(articles []models.ScrapedArticle) []models.Chunk
}

// Summarizer turns the day's articles into an email body.
type Summarizer interface {
	Summarize(ctx context.Context, articles []models.NewsArticle, scraped []models.ScrapedArticle) (string, error)
}

// BulkSender fans the summary out to recipients.
type BulkSender interface {
	SendBulk(ctx context.Context, subject, body string, recipients []models.Subscriber) models.BulkSendResult
}

// Workflow runs the daily pipeline end to end: fetch headlines, scrape
// bodies, chunk and embed into the vector index, summarize, fan out the
// email, and record the run in the ledger.
type Workflow struct {
	fetcher     NewsFetcher
	extractor   ContentExtractor
	chunker     Chunker
	embedder    types.Embedder
	index       types.VectorIndex
	summarizer  Summarizer
	sender      BulkSender
	ledger      types.Ledger
	subscribers types.SubscriberSource
	symbols     []string
	vectorDim   int
	logger      *log.Logger
}

type Config struct {
	Fetcher     NewsFetcher
	Extractor   ContentExtractor
	Chunker     Chunker
	Embedder    types.Embedder
	Index       types.VectorIndex
	Summarizer  Summarizer
	Sender      BulkSender
	Ledger      types.Ledger
	Subscribers types.SubscriberSource
	Symbols     []string
	VectorDim   int
	Logger      *log.Logger
}

func New(config Config) *Workflow {
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.Logger == nil {
		config.Logger = &log.DefaultLogger
	}

	return &Workflow{
		fetcher:     config.Fetcher,
		extractor:   config.Extractor,
		chunker:     config.Chunker,
		embedder:    config.Embedder,
		index:       config.Index,
		summarizer:  config.Summarizer,
		sender:      config.Sender,
		ledger:      config.Ledger,
		subscribers: config.Subscribers,
		symbols:     config.Symbols,
		vectorDim:   config.VectorDim,
		logger:      config.Logger,
	}
}

// Run executes one pipeline pass. Never panics out: any failure comes
// back as a WorkflowResult with Success false, and the ledger row opened
// at the start always gets a terminal status.
func (w *Workflow) Run(ctx context.Context, opts models.WorkflowOptions) (result models.WorkflowResult) {
	metadata, _ := json.Marshal(opts)

	runID, err := w.ledger.Begin(ctx, WorkflowType, string(metadata))
	if err != nil {
		// The pipeline still runs; only the audit trail is degraded.
		w.logger.Warn().Err(err).Msg("could not record workflow start")
	}

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error().Msgf("workflow panicked: %v", r)
			result = w.fail(ctx, runID, "Workflow failed unexpectedly", fmt.Sprintf("panic: %v", r))
		}
	}()

	maxPerSymbol := opts.MaxNewsPerSymbol
	if maxPerSymbol <= 0 {
		maxPerSymbol = defaultMaxNewsPerSymbol
	}

	w.logger.Info().Strs("symbols", w.symbols).Int("max_per_symbol", maxPerSymbol).
		Msg("starting daily news workflow")

	articles := w.fetcher.FetchNews(ctx, w.symbols, maxPerSymbol)
	if len(articles) == 0 {
		return w.fail(ctx, runID, "No articles found for the configured symbols", "")
	}

	scraped := w.extractor.ExtractContents(ctx, articles)
	chunks := w.chunker.Process(scraped)

	if len(chunks) > 0 {
		if err := w.ingest(ctx, chunks); err != nil {
			return w.fail(ctx, runID, "Failed to index article content", err.Error())
		}
	} else {
		w.logger.Warn().Msg("no article bodies extracted, skipping ingestion")
	}

	body, err := w.summarizer.Summarize(ctx, articles, scraped)
	if err != nil {
		return w.fail(ctx, runID, "Failed to generate summary", err.Error())
	}

	recipients, err := w.resolveRecipients(ctx, opts)
	if err != nil {
		return w.fail(ctx, runID, "Failed to resolve recipients", err.Error())
	}

	subject := fmt.Sprintf("Your Daily Stock News Summary - %s", time.Now().Format("January 2, 2006"))
	sendResult := w.sender.SendBulk(ctx, subject, body, recipients)

	message := fmt.Sprintf("Processed %d articles, sent %d emails (%d failed)",
		len(articles), sendResult.SuccessCount, sendResult.FailureCount)
	w.finish(ctx, runID, models.StatusCompleted, message)

	return models.WorkflowResult{
		Success: true,
		Message: message,
		Details: &sendResult,
	}
}

// ingest embeds every chunk and upserts it into the vector index.
func (w *Workflow) ingest(ctx context.Context, chunks []models.Chunk) error {
	if err := w.index.EnsureIndex(ctx, w.vectorDim); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := w.embedder.CreateEmbedding(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	count, err := w.index.Upsert(ctx, chunks, vectors)
	if err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}

	w.logger.Info().Int("chunks", count).Msg("indexed article content")
	return nil
}

// resolveRecipients picks the send mode: all subscribers first, then a
// single explicit address, then the admin.
func (w *Workflow) resolveRecipients(ctx context.Context, opts models.WorkflowOptions) ([]models.Subscriber, error) {
	switch {
	case opts.SendToAll:
		return w.subscribers.Subscribed(ctx)
	case opts.IndividualEmail != "":
		return []models.Subscriber{{Email: opts.IndividualEmail}}, nil
	default:
		admin, err := w.subscribers.AdminEmail(ctx)
		if err != nil {
			return nil, err
		}
		return []models.Subscriber{{Email: admin}}, nil
	}
}

func (w *Workflow) fail(ctx context.Context, runID, message, detail string) models.WorkflowResult {
	record := message
	if detail != "" {
		record = message + ": " + detail
	}
	w.finish(ctx, runID, models.StatusFailed, record)

	return models.WorkflowResult{
		Success: false,
		Message: message,
		Error:   detail,
	}
}

func (w *Workflow) finish(ctx context.Context, runID, status, result string) {
	if runID == "" {
		return
	}
	if err := w.ledger.Finish(ctx, runID, status, result); err != nil {
		w.logger.Warn().Err(err).Str("run_id", runID).Msg("could not record workflow finish")
	}
}
