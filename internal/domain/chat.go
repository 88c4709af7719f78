package domain

// Message roles accepted by the completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is the provider-agnostic chat message shape shared by the widget,
// the proxy handler and the LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// HistoryRole reports whether role may appear in a widget-owned history. The
// persona prompt is the only system message and travels separately.
func HistoryRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}

// CompletionRequest is what the proxy sends upstream for one widget turn.
type CompletionRequest struct {
	Model       string
	Temperature float64
	Messages    []ChatMessage
}

// ChatRequest is the wire payload posted by the widget to the proxy.
type ChatRequest struct {
	System   string        `json:"system,omitempty"`
	Messages []ChatMessage `json:"messages"`
}
