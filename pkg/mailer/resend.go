package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the Resend API endpoint.
	DefaultBaseURL = "https://api.resend.com"

	// DefaultTimeout is the default HTTP timeout for one send.
	DefaultTimeout = 30 * time.Second
)

// ErrMissingAPIKey means the sender cannot operate at all; there is no
// fallback path for outbound email.
var ErrMissingAPIKey = errors.New("mailer: missing API key")

// APIError is a non-2xx response from the email provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mailer: API error %d: %s", e.StatusCode, e.Message)
}

// ResendClient sends transactional email over the Resend HTTP API.
// Implements types.EmailSender.
type ResendClient struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
}

type ResendOption func(*ResendClient)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ResendOption {
	return func(c *ResendClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ResendOption {
	return func(c *ResendClient) {
		c.httpClient = httpClient
	}
}

func NewResendClient(apiKey, from string, opts ...ResendOption) (*ResendClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if from == "" {
		from = "Daily Stock News <notifications@stocknews.local>"
	}

	c := &ResendClient{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		from:    from,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send delivers one email and returns the provider's message id.
func (c *ResendClient) Send(ctx context.Context, to, subject, htmlBody string) (string, error) {
	if to == "" || subject == "" || htmlBody == "" {
		return "", fmt.Errorf("mailer: missing required field (to, subject, or body)")
	}

	payload, err := json.Marshal(sendRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	var parsed sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return parsed.ID, nil
}
