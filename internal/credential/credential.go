// Package credential resolves the upstream completion API key.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"portfolio-chat/internal/integrations/paramstore"
)

// ErrNotConfigured is returned when no source yields a key.
var ErrNotConfigured = errors.New("credential: api key not configured")

// Source yields the API key. Implementations return ErrNotConfigured when
// they hold no value, and other errors when the lookup itself failed.
type Source interface {
	APIKey(ctx context.Context) (string, error)
}

// Getter is the interface that wraps GetParameter.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Static is a key read once from the environment at startup.
type Static string

func (s Static) APIKey(context.Context) (string, error) {
	key := strings.TrimSpace(string(s))
	if key == "" {
		return "", ErrNotConfigured
	}
	return key, nil
}

// tokenPayload is the JSON shape optionally stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

// ParamStore reads the key from an SSM parameter. A successful lookup is
// cached for the lifetime of the process; failures are retried on the next call.
type ParamStore struct {
	getter Getter
	name   string

	mu     sync.Mutex
	cached string
}

// NewParamStore creates a ParamStore source for the named parameter.
func NewParamStore(getter Getter, name string) (*ParamStore, error) {
	if getter == nil {
		return nil, errors.New("credential: paramstore getter must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("credential: parameter name must not be empty")
	}
	return &ParamStore{getter: getter, name: name}, nil
}

func (p *ParamStore) APIKey(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" {
		return p.cached, nil
	}
	raw, err := p.getter.GetParameter(ctx, p.name)
	if errors.Is(err, paramstore.ErrNotFound) {
		return "", fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}
	if err != nil {
		return "", fmt.Errorf("credential: fetch token from paramstore: %w", err)
	}
	key, err := parseToken(raw)
	if err != nil {
		return "", err
	}
	p.cached = key
	return key, nil
}

// parseToken accepts either a bare key or {"token":"..."}.
func parseToken(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrNotConfigured
	}
	if !strings.HasPrefix(raw, "{") {
		return raw, nil
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("credential: unmarshal paramstore token value as JSON: %w", err)
	}
	if strings.TrimSpace(tp.Token) == "" {
		return "", ErrNotConfigured
	}
	return strings.TrimSpace(tp.Token), nil
}

// Chain returns the first key any source yields. Sources reporting
// ErrNotConfigured are skipped; any other error stops the lookup.
type Chain []Source

func (c Chain) APIKey(ctx context.Context) (string, error) {
	for _, src := range c {
		if src == nil {
			continue
		}
		key, err := src.APIKey(ctx)
		if errors.Is(err, ErrNotConfigured) {
			continue
		}
		if err != nil {
			return "", err
		}
		return key, nil
	}
	return "", ErrNotConfigured
}
