package widget

import (
	"context"
	"encoding/json"
	"fmt"

	"portfolio-chat/internal/domain"
)

// MaxHistory is the number of turns kept and sent to the proxy.
const MaxHistory = 25

// truncate returns the most recent MaxHistory messages in a fresh slice.
func truncate(msgs []domain.ChatMessage) []domain.ChatMessage {
	if len(msgs) > MaxHistory {
		msgs = msgs[len(msgs)-MaxHistory:]
	}
	out := make([]domain.ChatMessage, len(msgs))
	copy(out, msgs)
	return out
}

// decodeHistory parses a stored history. Anything that is not a JSON array of
// messages is reported as an error; the caller starts empty.
func decodeHistory(raw string) ([]domain.ChatMessage, error) {
	if raw == "" {
		return []domain.ChatMessage{}, nil
	}
	var msgs []domain.ChatMessage
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		return []domain.ChatMessage{}, fmt.Errorf("widget: decode history: %w", err)
	}
	return truncate(historyOnly(msgs)), nil
}

// historyOnly drops entries the proxy would reject, such as stray system
// messages, so one bad stored entry cannot fail every later turn.
func historyOnly(msgs []domain.ChatMessage) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if domain.HistoryRole(m.Role) {
			out = append(out, m)
		}
	}
	return out
}

func loadHistory(ctx context.Context, s Store) ([]domain.ChatMessage, error) {
	raw, ok, err := s.Get(ctx, KeyHistory)
	if err != nil {
		return []domain.ChatMessage{}, fmt.Errorf("widget: load history: %w", err)
	}
	if !ok {
		return []domain.ChatMessage{}, nil
	}
	return decodeHistory(raw)
}

func saveHistory(ctx context.Context, s Store, msgs []domain.ChatMessage) error {
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("widget: encode history: %w", err)
	}
	if err := s.Set(ctx, KeyHistory, string(b)); err != nil {
		return fmt.Errorf("widget: save history: %w", err)
	}
	return nil
}
