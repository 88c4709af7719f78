// Package ratelimit implements advisory per-client throttling over a
// sliding-window ledger. The ledger is an injected Store so the same policy
// runs against process memory or a shared table.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

const (
	DefaultLimit  = 30
	DefaultWindow = 60 * time.Second
)

// Store is a sliding-window ledger keyed by client identifier.
type Store interface {
	// Hit drops entries for key older than now-window. If fewer than limit
	// remain it records now and reports true; otherwise it records nothing
	// and reports false.
	Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, error)
}

// Limiter applies a fixed ceiling per window.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	now    func() time.Time
}

// New creates a Limiter. Non-positive limit or window fall back to defaults.
func New(store Store, limit int, window time.Duration) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("ratelimit: store must not be nil")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{store: store, limit: limit, window: window, now: time.Now}, nil
}

// Allow records a request for clientID and reports whether it is within the ceiling.
func (l *Limiter) Allow(ctx context.Context, clientID string) (bool, error) {
	if clientID == "" {
		clientID = unknownClient
	}
	ok, err := l.store.Hit(ctx, clientID, l.now(), l.window, l.limit)
	if err != nil {
		return false, fmt.Errorf("ratelimit: record hit: %w", err)
	}
	return ok, nil
}

const unknownClient = "unknown"

// ClientID derives the client identifier from the first X-Forwarded-For entry,
// falling back to the host part of the connection address. The header is
// caller-controlled, so the result is only good enough for advisory limits.
func ClientID(forwardedFor, remoteAddr string) string {
	if first, _, _ := strings.Cut(forwardedFor, ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	remoteAddr = strings.TrimSpace(remoteAddr)
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil && host != "" {
		return host
	}
	if remoteAddr != "" {
		return remoteAddr
	}
	return unknownClient
}
