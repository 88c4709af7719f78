package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"portfolio-chat/internal/credential"
	"portfolio-chat/internal/domain"
)

const (
	DefaultModel       = "gpt-3.5-turbo"
	DefaultTemperature = 0.4
	DefaultTimeout     = 25 * time.Second
)

type KeySource interface {
	APIKey(ctx context.Context) (string, error)
}

type LLMClient interface {
	StreamChat(ctx context.Context, apiKey string, in domain.CompletionRequest, onDelta func(string) error) error
}

type RateLimiter interface {
	Allow(ctx context.Context, clientID string) (bool, error)
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

type upstreamMessager interface {
	UpstreamMessage() string
}

// Options tunes the upstream call. Zero values select the defaults.
type Options struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// ChatService relays one widget turn to the completion API.
type ChatService struct {
	keys    KeySource
	llm     LLMClient
	limiter RateLimiter

	model       string
	temperature float64
	timeout     time.Duration
}

// ChatInput is a validated widget request. ClientID feeds the rate limiter.
type ChatInput struct {
	System   string
	Messages []domain.ChatMessage
	ClientID string
}

// NewChatService creates a ChatService. limiter may be nil to disable throttling.
func NewChatService(keys KeySource, llm LLMClient, limiter RateLimiter, opts Options) (*ChatService, error) {
	if keys == nil {
		return nil, errors.New("usecase: key source must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Temperature <= 0 {
		opts.Temperature = DefaultTemperature
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &ChatService{
		keys:        keys,
		llm:         llm,
		limiter:     limiter,
		model:       opts.Model,
		temperature: opts.Temperature,
		timeout:     opts.Timeout,
	}, nil
}

// Relay streams the assistant reply for in to sink, one delta per call, in
// order. Every check that can reject the request runs before the first sink
// call, so a caller that has not seen output can still choose the status code.
// A sink error aborts the upstream call.
func (s *ChatService) Relay(ctx context.Context, in ChatInput, sink func(string) error) error {
	if sink == nil {
		return newError(ErrorInternal, "nil_sink", nil)
	}
	if in.Messages == nil {
		return newError(ErrorInvalidInput, "messages_not_array", nil)
	}
	if err := validateMessages(in.Messages); err != nil {
		return err
	}

	apiKey, err := s.keys.APIKey(ctx)
	if errors.Is(err, credential.ErrNotConfigured) {
		return newError(ErrorConfiguration, "missing_api_key", err)
	}
	if err != nil {
		return newError(ErrorInternal, "credential_lookup_error", err)
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, in.ClientID)
		if err != nil {
			return newError(ErrorInternal, "rate_limit_store_error", err)
		}
		if !allowed {
			return newError(ErrorRateLimited, "client_rate_limited", nil)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var sinkErr error
	err = s.llm.StreamChat(runCtx, apiKey, domain.CompletionRequest{
		Model:       s.model,
		Temperature: s.temperature,
		Messages:    buildPromptMessages(in.System, in.Messages),
	}, func(delta string) error {
		if werr := sink(delta); werr != nil {
			sinkErr = werr
			return werr
		}
		return nil
	})
	if err == nil {
		return nil
	}
	return s.classifyStreamError(ctx, runCtx, sinkErr, err)
}

// Complete runs Relay and returns the concatenated reply.
func (s *ChatService) Complete(ctx context.Context, in ChatInput) (string, error) {
	var buf []byte
	err := s.Relay(ctx, in, func(delta string) error {
		buf = append(buf, delta...)
		return nil
	})
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

func (s *ChatService) classifyStreamError(parent, runCtx context.Context, sinkErr, err error) *Error {
	if sinkErr != nil {
		return newError(ErrorInternal, "relay_write_error", sinkErr)
	}
	if parent.Err() != nil {
		return newError(ErrorInternal, "request_canceled", err)
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return &Error{Code: ErrorUpstreamTimeout, Reason: "openai_timeout", Status: http.StatusGatewayTimeout, Err: err}
	}

	status, ok := upstreamStatusCode(err)
	if !ok {
		return newError(ErrorUpstream, "openai_error", err)
	}
	uerr := &Error{Code: ErrorUpstream, Reason: "openai_error", Status: status, Message: upstreamMessage(err), Err: err}
	if status == http.StatusTooManyRequests {
		uerr.Code = ErrorRateLimited
		uerr.Reason = "openai_rate_limited"
	}
	return uerr
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

func upstreamMessage(err error) string {
	var m upstreamMessager
	if !errors.As(err, &m) {
		return ""
	}
	return m.UpstreamMessage()
}

func errorf(format string, args ...any) error {
	return fmt.Errorf("usecase: "+format, args...)
}
