package usecase

import (
	"strings"

	"portfolio-chat/internal/domain"
)

// buildPromptMessages places the persona prompt, when present, as the single
// system message ahead of the caller's history.
func buildPromptMessages(system string, history []domain.ChatMessage) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(history)+1)
	if strings.TrimSpace(system) != "" {
		messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: system})
	}
	return append(messages, history...)
}

func validateMessages(history []domain.ChatMessage) error {
	for i, m := range history {
		if m.Role == domain.RoleSystem {
			return newError(ErrorInvalidInput, "system_message_in_history", errorf("message %d has role %q", i, m.Role))
		}
		if !domain.HistoryRole(m.Role) {
			return newError(ErrorInvalidInput, "invalid_message_role", errorf("message %d has role %q", i, m.Role))
		}
	}
	return nil
}
