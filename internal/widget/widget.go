// Package widget drives the chat panel: panel state, bounded history,
// persisted preferences and the submit and clear operations.
package widget

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"portfolio-chat/internal/domain"
)

const (
	// Apology replaces the placeholder when a turn fails.
	Apology = "⚠️ Sorry, I hit a snag. Please try again."
	// ClearedNotice is shown briefly after the history is cleared.
	ClearedNotice = "Chat cleared. How can I help you?"

	DefaultNoticeDelay = 2 * time.Second
)

// DefaultPersonaPrompt is sent as the system message with every turn.
const DefaultPersonaPrompt = "You are the site owner's AI assistant. Answer questions about their " +
	"experience in project management, software development, IT infrastructure and cybersecurity. " +
	"Speak in the first person, be professional but personable, reference specific projects and " +
	"metrics where you can, and admit gracefully when unsure. If asked about private or confidential " +
	"information, say you can't share specifics."

// ErrBusy is returned when a turn is submitted while another is in flight.
var ErrBusy = errors.New("widget: a reply is already in progress")

// Proxy sends one turn and streams the cumulative reply to onText.
type Proxy interface {
	Send(ctx context.Context, req domain.ChatRequest, onText func(string)) (string, error)
}

// Placeholder is the provisional assistant line shown while a reply streams.
type Placeholder interface {
	SetText(text string)
}

// Renderer draws the widget. Implementations must not call back into Widget.
type Renderer interface {
	SetPanel(state PanelState)
	RenderHistory(msgs []domain.ChatMessage)
	AppendMessage(msg domain.ChatMessage)
	ShowPlaceholder() Placeholder
	ClearMessages()
	// ShowNotice displays a transient line and returns a func that removes it.
	ShowNotice(text string) (dismiss func())
	Focus()
}

type Options struct {
	PersonaPrompt string
	NoticeDelay   time.Duration
	Logger        *slog.Logger
}

// Widget is the chat panel controller.
type Widget struct {
	store   Store
	proxy   Proxy
	render  Renderer
	log     *slog.Logger
	persona string
	delay   time.Duration

	afterFunc func(time.Duration, func())

	mu       sync.Mutex
	prefs    Prefs
	history  []domain.ChatMessage
	rendered bool
	busy     bool
}

// New loads persisted state and restores the panel. A stored history that
// cannot be parsed is dropped and the widget starts empty.
func New(ctx context.Context, store Store, proxy Proxy, render Renderer, opts Options) (*Widget, error) {
	if store == nil {
		return nil, errors.New("widget: store must not be nil")
	}
	if proxy == nil {
		return nil, errors.New("widget: proxy must not be nil")
	}
	if render == nil {
		return nil, errors.New("widget: renderer must not be nil")
	}
	if opts.PersonaPrompt == "" {
		opts.PersonaPrompt = DefaultPersonaPrompt
	}
	if opts.NoticeDelay <= 0 {
		opts.NoticeDelay = DefaultNoticeDelay
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	w := &Widget{
		store:   store,
		proxy:   proxy,
		render:  render,
		log:     opts.Logger,
		persona: opts.PersonaPrompt,
		delay:   opts.NoticeDelay,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}

	prefs, err := loadPrefs(ctx, store)
	if err != nil {
		return nil, err
	}
	history, err := loadHistory(ctx, store)
	if err != nil {
		w.log.WarnContext(ctx, "discarding stored chat history", "err", err)
	}
	w.prefs = prefs
	w.history = history

	w.restore()
	return w, nil
}

// restore reproduces the persisted panel state without writing it back.
func (w *Widget) restore() {
	state := w.prefs.State()
	w.render.SetPanel(state)
	if state != PanelHidden {
		w.renderOnce()
	}
}

func (w *Widget) renderOnce() {
	if w.rendered {
		return
	}
	w.render.RenderHistory(truncate(w.history))
	w.rendered = true
}

func (w *Widget) State() PanelState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.prefs.State()
}

func (w *Widget) LauncherVisible() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.prefs.LauncherVisible()
}

// History returns a copy of the conversation.
func (w *Widget) History() []domain.ChatMessage {
	w.mu.Lock()
	defer w.mu.Unlock()
	return truncate(w.history)
}

// Open shows the panel. Opening an open panel does nothing.
func (w *Widget) Open(ctx context.Context) error {
	return w.transition(ctx, Show)
}

// Close hides the panel from open or collapsed.
func (w *Widget) Close(ctx context.Context) error {
	return w.transition(ctx, Hide)
}

// ToggleCollapse is the minimize control and the header double-click.
func (w *Widget) ToggleCollapse(ctx context.Context) error {
	return w.transition(ctx, ToggleCollapse)
}

func (w *Widget) LauncherClick(ctx context.Context) error {
	return w.transition(ctx, LauncherClick)
}

// transition persists the new preferences before redrawing.
func (w *Widget) transition(ctx context.Context, fn func(Prefs) Prefs) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	prev := w.prefs
	next := fn(prev)
	if next == prev {
		return nil
	}
	if err := savePrefs(ctx, w.store, prev, next); err != nil {
		return err
	}
	w.prefs = next

	state := next.State()
	w.render.SetPanel(state)
	if prev.State() == PanelHidden {
		w.renderOnce()
	}
	if state == PanelOpen {
		w.render.Focus()
	}
	return nil
}

// Submit sends one user turn. Blank input is ignored. On failure the
// placeholder shows Apology and the history ends at the user's message.
func (w *Widget) Submit(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return ErrBusy
	}
	w.busy = true
	userMsg := domain.ChatMessage{Role: domain.RoleUser, Content: text}
	w.render.AppendMessage(userMsg)
	w.history = truncate(append(w.history, userMsg))
	w.persistHistory(ctx)
	req := domain.ChatRequest{System: w.persona, Messages: truncate(w.history)}
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.busy = false
		w.mu.Unlock()
	}()

	placeholder := w.render.ShowPlaceholder()
	shown := ""
	reply, err := w.proxy.Send(ctx, req, func(partial string) {
		shown = partial
		placeholder.SetText(partial)
	})
	if err != nil {
		w.logFailure(ctx, err)
		placeholder.SetText(Apology)
		return err
	}
	if shown != reply {
		placeholder.SetText(reply)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.history = truncate(append(w.history, domain.ChatMessage{Role: domain.RoleAssistant, Content: reply}))
	w.persistHistory(ctx)
	return nil
}

// ClearHistory empties the conversation and shows ClearedNotice for the
// notice delay.
func (w *Widget) ClearHistory(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.busy {
		return ErrBusy
	}

	if err := w.store.Delete(ctx, KeyHistory); err != nil {
		w.log.WarnContext(ctx, "delete chat history", "err", err)
	}
	w.history = []domain.ChatMessage{}
	if err := saveHistory(ctx, w.store, w.history); err != nil {
		return err
	}
	w.render.ClearMessages()
	w.rendered = false

	dismiss := w.render.ShowNotice(ClearedNotice)
	w.afterFunc(w.delay, dismiss)
	return nil
}

// persistHistory must be called with mu held. A storage failure is logged;
// the in-memory conversation carries on.
func (w *Widget) persistHistory(ctx context.Context) {
	if err := saveHistory(ctx, w.store, w.history); err != nil {
		w.log.WarnContext(ctx, "persist chat history", "err", err)
	}
}

func (w *Widget) logFailure(ctx context.Context, err error) {
	var pe *ProxyError
	if errors.As(err, &pe) {
		w.log.ErrorContext(ctx, "chat proxy error", "status", pe.StatusCode, "error", pe.Message)
		return
	}
	w.log.ErrorContext(ctx, "chat request failed", "err", err)
}

// KeyAction is what a key press in the input does.
type KeyAction int

const (
	KeyIgnore KeyAction = iota
	KeySubmit
	KeyNewline
)

// KeyActionFor maps a key press to its action: Enter submits, Shift+Enter
// inserts a newline.
func KeyActionFor(key string, shift bool) KeyAction {
	if key != "Enter" {
		return KeyIgnore
	}
	if shift {
		return KeyNewline
	}
	return KeySubmit
}
