package config

import (
	"fmt"
	"math"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate LLM config
	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "Ollama base URL is required",
		})
	} else if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	// Validate Database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	// Validate News config
	if len(c.News.Symbols) == 0 {
		errors = append(errors, ValidationError{
			Field:   "news.symbols",
			Message: "at least one symbol is required",
		})
	}

	if c.News.MaxPerSymbol < 1 {
		errors = append(errors, ValidationError{
			Field:   "news.max_per_symbol",
			Message: "max_per_symbol must be positive",
		})
	}

	if c.News.RequestIntervalMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "news.request_interval_ms",
			Message: "request_interval_ms must be non-negative",
		})
	}

	// Validate Processor config
	if c.Processor.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	// Validate Rerank config: weights must sum to 1
	sum := c.Rerank.SemanticWeight + c.Rerank.VectorWeight + c.Rerank.PositionWeight
	if math.Abs(sum-1.0) > 1e-9 {
		errors = append(errors, ValidationError{
			Field:   "rerank",
			Message: fmt.Sprintf("weights must sum to 1.0, got %.3f", sum),
		})
	}

	// Validate Mailer config
	if c.Mailer.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "mailer.batch_size",
			Message: "batch_size must be positive",
		})
	}

	return errors
}
