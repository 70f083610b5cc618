package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"
)

// CompleterConfig configures the completion model.
type CompleterConfig struct {
	Model   string
	BaseURL string
}

// Completer generates a single bounded completion per call.
// Implements types.Completer.
type Completer struct {
	config CompleterConfig
	llm    llms.Model
}

func NewCompleterWithConfig(config CompleterConfig) (*Completer, error) {
	if config.Model == "" {
		config.Model = "mistral"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	llm, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &Completer{
		config: config,
		llm:    llm,
	}, nil
}

// Complete runs one completion with a token bound and sampling
// temperature. There is no internal retry; the error surfaces as-is.
func (c *Completer) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	response, err := c.llm.GenerateContent(ctx, content,
		llms.WithMaxTokens(maxTokens),
		llms.WithTemperature(temperature),
	)
	if err != nil {
		return "", fmt.Errorf("completion error: %w", err)
	}

	if response == nil || len(response.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	return response.Choices[0].Content, nil
}
