package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"portfolio-chat/internal/domain"
	"portfolio-chat/internal/widget"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A78BFA")).
			Bold(true)

	launcherStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#0F172A")).
			Background(lipgloss.Color("#22D3EE")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#22D3EE")).
			Bold(true)

	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A78BFA")).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94A3B8")).
			Italic(true)

	typingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94A3B8"))
)

// termRenderer draws the widget as a transcript on a terminal.
type termRenderer struct {
	out io.Writer

	mu     sync.Mutex
	state  widget.PanelState
	notice string
}

func newTermRenderer(out io.Writer) *termRenderer {
	return &termRenderer{out: out}
}

func (r *termRenderer) SetPanel(state widget.PanelState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
	switch state {
	case widget.PanelOpen:
		fmt.Fprintln(r.out, titleStyle.Render("── Ask Me Anything ──"))
	case widget.PanelCollapsed:
		fmt.Fprintln(r.out, titleStyle.Render("── Ask Me Anything (minimized) ──"))
	default:
		fmt.Fprintln(r.out, launcherStyle.Render("Chat"))
	}
}

func (r *termRenderer) RenderHistory(msgs []domain.ChatMessage) {
	for _, m := range msgs {
		r.AppendMessage(m)
	}
}

func (r *termRenderer) AppendMessage(m domain.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "%s %s\n", roleLabel(m.Role), m.Content)
}

func (r *termRenderer) ShowPlaceholder() widget.Placeholder {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "%s %s", roleLabel(domain.RoleAssistant), typingStyle.Render("…"))
	return &termPlaceholder{out: r.out, typing: true}
}

func (r *termRenderer) ClearMessages() {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Clear screen and home the cursor.
	fmt.Fprint(r.out, "\033[2J\033[H")
}

func (r *termRenderer) ShowNotice(text string) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notice = text
	fmt.Fprintln(r.out, noticeStyle.Render(text))
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.notice == text {
			r.notice = ""
		}
	}
}

func (r *termRenderer) Focus() {}

// prompt is the input prompt for the current state.
func (r *termRenderer) prompt() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	label := "you"
	switch r.state {
	case widget.PanelHidden:
		label = "chat (hidden)"
	case widget.PanelCollapsed:
		label = "chat (minimized)"
	}
	if r.notice != "" {
		label += " · " + r.notice
	}
	return userStyle.Render(label+">") + " "
}

// termPlaceholder prints the growing reply in place. Text that does not
// extend what is already shown starts a fresh line.
type termPlaceholder struct {
	out     io.Writer
	typing  bool
	printed string
}

func (p *termPlaceholder) SetText(text string) {
	if p.typing {
		// Erase the typing indicator.
		fmt.Fprint(p.out, "\b \b")
		p.typing = false
	}
	if strings.HasPrefix(text, p.printed) {
		fmt.Fprint(p.out, text[len(p.printed):])
	} else {
		fmt.Fprintf(p.out, "\n%s %s", roleLabel(domain.RoleAssistant), text)
	}
	p.printed = text
}

func roleLabel(role string) string {
	switch role {
	case domain.RoleUser:
		return userStyle.Render("You:")
	case domain.RoleAssistant:
		return botStyle.Render("Me:")
	default:
		return noticeStyle.Render(role + ":")
	}
}
