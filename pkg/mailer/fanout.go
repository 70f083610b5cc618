package mailer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/time/rate"

	"github.com/xhad/stocknews/internal/models"
	"github.com/xhad/stocknews/internal/types"
)

const (
	// DefaultBatchSize is how many sends go out concurrently.
	DefaultBatchSize = 20

	// DefaultBatchInterval paces batches to stay under provider limits.
	DefaultBatchInterval = time.Second
)

// Fanout sends one email to many recipients: concurrent within a
// batch, paced across batches. One recipient's failure never stops
// the rest.
type Fanout struct {
	sender    types.EmailSender
	batchSize int
	limiter   *rate.Limiter
	logger    *log.Logger
}

type FanoutConfig struct {
	Sender        types.EmailSender
	BatchSize     int
	BatchInterval time.Duration
	Logger        *log.Logger
}

func NewFanout(config FanoutConfig) *Fanout {
	if config.BatchSize == 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.BatchInterval == 0 {
		config.BatchInterval = DefaultBatchInterval
	}
	if config.Logger == nil {
		config.Logger = &log.DefaultLogger
	}

	return &Fanout{
		sender:    config.Sender,
		batchSize: config.BatchSize,
		limiter:   rate.NewLimiter(rate.Every(config.BatchInterval), 1),
		logger:    config.Logger,
	}
}

// SendBulk delivers subject/body to every recipient. The body supports
// {{name}} personalization. Recipients without an address are skipped
// silently, counted neither as success nor failure.
func (f *Fanout) SendBulk(ctx context.Context, subject, body string, recipients []models.Subscriber) models.BulkSendResult {
	result := models.BulkSendResult{}

	eligible := make([]models.Subscriber, 0, len(recipients))
	for _, r := range recipients {
		if r.Email == "" {
			continue
		}
		eligible = append(eligible, r)
	}

	if len(eligible) == 0 {
		f.logger.Info().Msg("no recipients to send to")
		return result
	}

	f.logger.Info().Int("recipients", len(eligible)).Msg("starting email fan-out")

	for start := 0; start < len(eligible); start += f.batchSize {
		if err := f.limiter.Wait(ctx); err != nil {
			result.FailureCount += len(eligible) - start
			result.Errors = append(result.Errors, fmt.Sprintf("fan-out interrupted: %v", err))
			return result
		}

		end := start + f.batchSize
		if end > len(eligible) {
			end = len(eligible)
		}
		batch := eligible[start:end]

		outcomes := make([]models.SendOutcome, len(batch))
		var wg sync.WaitGroup
		for i, recipient := range batch {
			wg.Add(1)
			go func(i int, recipient models.Subscriber) {
				defer wg.Done()
				outcomes[i] = f.sendOne(ctx, subject, body, recipient)
			}(i, recipient)
		}
		wg.Wait()

		for _, outcome := range outcomes {
			if outcome.Success {
				result.SuccessCount++
			} else {
				result.FailureCount++
				result.Errors = append(result.Errors,
					fmt.Sprintf("Failed to send to %s: %s", outcome.Recipient, outcome.Error))
			}
		}
	}

	f.logger.Info().Int("success", result.SuccessCount).Int("failure", result.FailureCount).
		Msg("email fan-out complete")
	return result
}

func (f *Fanout) sendOne(ctx context.Context, subject, body string, recipient models.Subscriber) models.SendOutcome {
	name := recipient.Name
	if name == "" {
		name = "there"
	}
	personalized := strings.ReplaceAll(body, "{{name}}", name)

	if _, err := f.sender.Send(ctx, recipient.Email, subject, personalized); err != nil {
		f.logger.Warn().Str("recipient", recipient.Email).Err(err).Msg("send failed")
		return models.SendOutcome{Recipient: recipient.Email, Success: false, Error: err.Error()}
	}

	return models.SendOutcome{Recipient: recipient.Email, Success: true}
}
