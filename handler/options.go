package handler

import (
	"context"
	"log/slog"
)

// logger is the slice of *slog.Logger the handlers use.
type logger interface {
	ErrorContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
}

type settings struct {
	allowedOrigin string
	maxBodyBytes  int
	log           logger
}

type Option func(*settings)

// WithAllowedOrigin sets the Access-Control-Allow-Origin value (default "*").
func WithAllowedOrigin(origin string) Option {
	return func(s *settings) {
		s.allowedOrigin = origin
	}
}

// WithMaxBodyBytes caps the accepted request body size.
func WithMaxBodyBytes(n int) Option {
	return func(s *settings) {
		s.maxBodyBytes = n
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		allowedOrigin: "*",
		maxBodyBytes:  defaultMaxBodyBytes,
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.maxBodyBytes <= 0 {
		s.maxBodyBytes = defaultMaxBodyBytes
	}
	return s
}
