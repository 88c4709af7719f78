package widget

import "context"

// Persisted keys.
const (
	KeyHistory   = "chatHistory"
	KeyOpen      = "chatOpen"
	KeyCollapsed = "chatCollapsed"
)

// Store is the durable key-value storage the widget persists into.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
