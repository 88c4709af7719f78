package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"portfolio-chat/internal/domain"
)

const defaultBaseURL = "https://api.openai.com/v1"

// chatRequest is the minimal request shape for a streaming Chat Completions call.
type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	Temperature *float64             `json:"temperature,omitempty"`
	Stream      bool                 `json:"stream"`
}

// streamChunk is one "data:" event of a streamed completion.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

func (c streamChunk) content() string {
	if len(c.Choices) == 0 {
		return ""
	}
	return c.Choices[0].Delta.Content
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type errorEnvelope struct {
	Error *apiError `json:"error"`
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
	// Message is the upstream error.message, when the body carried one.
	Message string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// UpstreamMessage returns the human-readable message reported by the API.
func (e *HTTPStatusError) UpstreamMessage() string {
	return e.Message
}

// Client is a focused OpenAI-compatible client for streamed chat completions.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// NewClient creates a Client. The HTTP client has no overall timeout: streamed
// completions are bounded by the caller's context instead.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		return nil, errors.New("openai: http client must not be nil")
	}
	return c, nil
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return &http.Client{}
}

func chatURL(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if strings.HasSuffix(base, "/v1") {
		return base + "/chat/completions"
	}
	return base + "/v1/chat/completions"
}

// StreamChat requests a streamed completion and calls onDelta with every
// non-empty content delta, in arrival order. It returns nil once the stream
// reports [DONE] or ends, and stops early if onDelta returns an error.
func (c *Client) StreamChat(ctx context.Context, apiKey string, in domain.CompletionRequest, onDelta func(string) error) error {
	if strings.TrimSpace(apiKey) == "" {
		return errors.New("openai: api key must not be empty")
	}
	if in.Model == "" {
		return errors.New("openai: model must not be empty")
	}
	if onDelta == nil {
		return errors.New("openai: delta callback must not be nil")
	}

	temperature := in.Temperature
	body, err := json.Marshal(chatRequest{
		Model:       in.Model,
		Messages:    in.Messages,
		Temperature: &temperature,
		Stream:      true,
	})
	if err != nil {
		return fmt.Errorf("openai: marshal request: %w", err)
	}

	url := chatURL(c.baseURL)

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if reqErr != nil {
		return fmt.Errorf("openai: create request: %w", reqErr)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	res, doErr := c.resolvedHTTPClient().Do(req)
	if doErr != nil {
		return fmt.Errorf("openai: request failed: %w", doErr)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return newHTTPStatusError(res, url)
	}

	return readStream(ctx, res.Body, onDelta)
}

func readStream(ctx context.Context, body io.Reader, onDelta func(string) error) error {
	reader := newSSEReader(body)
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("openai: stream interrupted: %w", err)
		}

		data, err := reader.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("openai: read stream: %w", err)
		}
		if isDone(data) {
			return nil
		}

		var chunk streamChunk
		if decErr := json.Unmarshal(data, &chunk); decErr != nil {
			return fmt.Errorf("openai: decode stream chunk: %w", decErr)
		}
		if chunk.Error != nil {
			return fmt.Errorf("openai: stream error: %s", chunk.Error.Message)
		}

		content := chunk.content()
		if content == "" {
			continue
		}
		if err := onDelta(content); err != nil {
			return err
		}
	}
}

func newHTTPStatusError(res *http.Response, url string) *HTTPStatusError {
	buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	statusErr := &HTTPStatusError{
		StatusCode: res.StatusCode,
		URL:        url,
		Body:       string(buf),
	}
	var env errorEnvelope
	if err := json.Unmarshal(buf, &env); err == nil && env.Error != nil {
		statusErr.Message = env.Error.Message
	}
	return statusErr
}
