package widget

import (
	"context"
	"errors"
	"sync"
	"time"

	"portfolio-chat/internal/domain"
)

type memStore struct {
	mu     sync.Mutex
	data   map[string]string
	writes []string
	setErr error
}

func newMemStore(kv map[string]string) *memStore {
	data := make(map[string]string, len(kv))
	for k, v := range kv {
		data[k] = v
	}
	return &memStore{data: data}
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.writes = append(m.writes, key+"="+value)
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memStore) value(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.writes)
}

type recordingPlaceholder struct {
	mu    sync.Mutex
	texts []string
	onSet func(string)
}

func (p *recordingPlaceholder) SetText(text string) {
	p.mu.Lock()
	p.texts = append(p.texts, text)
	p.mu.Unlock()
	if p.onSet != nil {
		p.onSet(text)
	}
}

func (p *recordingPlaceholder) seen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.texts...)
}

type recordingRenderer struct {
	mu           sync.Mutex
	states       []PanelState
	renders      [][]domain.ChatMessage
	appended     []domain.ChatMessage
	placeholders []*recordingPlaceholder
	notices      []string
	dismissed    int
	cleared      int
	focused      int

	onSet func(string)
}

func (r *recordingRenderer) SetPanel(state PanelState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *recordingRenderer) RenderHistory(msgs []domain.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.renders = append(r.renders, msgs)
}

func (r *recordingRenderer) AppendMessage(msg domain.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appended = append(r.appended, msg)
}

func (r *recordingRenderer) ShowPlaceholder() Placeholder {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &recordingPlaceholder{onSet: r.onSet}
	r.placeholders = append(r.placeholders, p)
	return p
}

func (r *recordingRenderer) ClearMessages() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
}

func (r *recordingRenderer) ShowNotice(text string) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, text)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.dismissed++
	}
}

func (r *recordingRenderer) Focus() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focused++
}

func (r *recordingRenderer) lastPlaceholder() *recordingPlaceholder {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.placeholders) == 0 {
		return nil
	}
	return r.placeholders[len(r.placeholders)-1]
}

type fakeProxy struct {
	mu       sync.Mutex
	calls    int
	requests []domain.ChatRequest
	reply    func(call int) ([]string, error)
	block    chan struct{}
	started  chan struct{}
}

func (f *fakeProxy) Send(ctx context.Context, req domain.ChatRequest, onText func(string)) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	tokens, err := f.reply(call)
	partial := ""
	for _, tok := range tokens {
		partial += tok
		onText(partial)
	}
	if err != nil {
		return "", err
	}
	return partial, nil
}

func (f *fakeProxy) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func replyWith(tokens ...string) func(int) ([]string, error) {
	return func(int) ([]string, error) { return tokens, nil }
}

var errProxyDown = errors.New("connection refused")

// manualTimer captures the notice dismissal instead of scheduling it.
type manualTimer struct {
	delays []time.Duration
	funcs  []func()
}

func (m *manualTimer) afterFunc(d time.Duration, f func()) {
	m.delays = append(m.delays, d)
	m.funcs = append(m.funcs, f)
}
