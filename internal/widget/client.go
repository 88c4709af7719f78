package widget

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

// ErrNoBody is returned when the transport hands back a response without a body.
var ErrNoBody = errors.New("widget: proxy response has no body")

// ProxyError is a non-success proxy response.
type ProxyError struct {
	StatusCode int
	Message    string
}

func (e *ProxyError) Error() string {
	return fmt.Sprintf("widget: proxy status %d: %s", e.StatusCode, e.Message)
}

// Client posts turns to the chat proxy and reads the streamed reply.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(endpoint string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("widget: endpoint must not be empty")
	}
	c := &Client{endpoint: endpoint, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		return nil, errors.New("widget: http client must not be nil")
	}
	return c, nil
}

// Send posts req and calls onText with the cumulative reply each time more
// text has been decoded. It returns the full reply.
func (c *Client) Send(ctx context.Context, req domain.ChatRequest, onText func(string)) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("widget: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("widget: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("widget: post turn: %w", err)
	}
	if resp.Body == nil {
		return "", ErrNoBody
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ProxyError{StatusCode: resp.StatusCode, Message: proxyMessage(resp.Body)}
	}
	return readReply(resp.Body, onText)
}

func readReply(r io.Reader, onText func(string)) (string, error) {
	var (
		dec     Decoder
		partial strings.Builder
		buf     = make([]byte, 4096)
	)
	emit := func(s string) {
		if s == "" {
			return
		}
		partial.WriteString(s)
		if onText != nil {
			onText(partial.String())
		}
	}
	for {
		n, err := r.Read(buf)
		if n > 0 {
			emit(dec.Write(buf[:n]))
		}
		if errors.Is(err, io.EOF) {
			emit(dec.Flush())
			return partial.String(), nil
		}
		if err != nil {
			return "", fmt.Errorf("widget: read reply: %w", err)
		}
	}
}

// proxyMessage extracts the error field of a proxy error body, falling back
// to the raw text.
func proxyMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return "Network error"
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return "Network error"
}
