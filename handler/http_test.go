package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"portfolio-chat/internal/credential"
	"portfolio-chat/internal/ratelimit"
	"portfolio-chat/internal/usecase"
)

// gatedRelayer emits one token, then waits on gate before the next.
type gatedRelayer struct {
	tokens []string
	gate   chan struct{}
}

func (g *gatedRelayer) Relay(ctx context.Context, _ usecase.ChatInput, sink func(string) error) error {
	for i, tok := range g.tokens {
		if err := sink(tok); err != nil {
			return err
		}
		if i == len(g.tokens)-1 {
			break
		}
		select {
		case <-g.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (g *gatedRelayer) Complete(context.Context, usecase.ChatInput) (string, error) {
	return strings.Join(g.tokens, ""), nil
}

func newTestServer(t *testing.T, chat ChatRelayer, mode RelayMode) *httptest.Server {
	t.Helper()
	h, err := NewHTTPHandler(chat, mode)
	require.NoError(t, err)
	srv := httptest.NewServer(NewRouter(h, DefaultChatPath))
	t.Cleanup(srv.Close)
	return srv
}

func postChat(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+DefaultChatPath, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func readN(t *testing.T, r io.Reader, n int) string {
	t.Helper()
	buf := make([]byte, n)
	_, err := io.ReadFull(r, buf)
	require.NoError(t, err)
	return string(buf)
}

func TestNewHTTPHandler_Validates(t *testing.T) {
	_, err := NewHTTPHandler(nil, RelayStreamed)
	require.Error(t, err)
	_, err = NewHTTPHandler(&stubUseCase{}, RelayMode("sse"))
	require.Error(t, err)
}

func TestHTTP_StreamedDeliversTokensIncrementally(t *testing.T) {
	relayer := &gatedRelayer{tokens: []string{"Hel", "lo", " world"}, gate: make(chan struct{})}
	srv := newTestServer(t, relayer, RelayStreamed)

	resp := postChat(t, srv, validBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	got := readN(t, resp.Body, 3)
	require.Equal(t, "Hel", got)

	relayer.gate <- struct{}{}
	got += readN(t, resp.Body, 2)
	require.Equal(t, "Hello", got)

	relayer.gate <- struct{}{}
	rest, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "Hello world", got+string(rest))
}

func TestHTTP_BufferedWritesWholeReply(t *testing.T) {
	uc := &stubUseCase{out: "Hello world"}
	srv := newTestServer(t, uc, RelayBuffered)

	resp := postChat(t, srv, validBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "Hello world", string(body))
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
}

func TestHTTP_FailureBeforeFirstTokenIsJSON(t *testing.T) {
	uc := &stubUseCase{err: &usecase.Error{Code: usecase.ErrorConfiguration, Reason: "missing_api_key"}}
	srv := newTestServer(t, uc, RelayStreamed)

	resp := postChat(t, srv, validBody)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var out errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "OPENAI_API_KEY not configured", out.Error)
}

func TestHTTP_FailureMidStreamAbortsConnection(t *testing.T) {
	uc := &stubUseCase{
		tokens: []string{"Hel"},
		err:    &usecase.Error{Code: usecase.ErrorUpstream, Reason: "openai_error"},
	}
	srv := newTestServer(t, uc, RelayStreamed)

	resp := postChat(t, srv, validBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_, err := io.ReadAll(resp.Body)
	require.Error(t, err)
}

func TestHTTP_EmptyReplyIsSuccess(t *testing.T) {
	uc := &stubUseCase{}
	srv := newTestServer(t, uc, RelayStreamed)

	resp := postChat(t, srv, validBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Empty(t, body)
}

func TestHTTP_InvalidPayload(t *testing.T) {
	uc := &stubUseCase{}
	srv := newTestServer(t, uc, RelayStreamed)

	resp := postChat(t, srv, `{"messages":"nope"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Equal(t, "Invalid payload: messages must be an array", out.Error)
	require.Zero(t, uc.calls)
}

func TestHTTP_BodyTooLarge(t *testing.T) {
	uc := &stubUseCase{}
	h, err := NewHTTPHandler(uc, RelayStreamed, WithMaxBodyBytes(8))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, DefaultChatPath, strings.NewReader(validBody))
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Zero(t, uc.calls)
}

func TestHTTP_PreflightAndMethods(t *testing.T) {
	uc := &stubUseCase{}
	h, err := NewHTTPHandler(uc, RelayStreamed, WithAllowedOrigin("https://me.dev"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, DefaultChatPath, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())
	require.Equal(t, "https://me.dev", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, DefaultChatPath, nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "https://me.dev", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Zero(t, uc.calls)
}

func TestHTTP_CorrelationIDEchoed(t *testing.T) {
	uc := &stubUseCase{out: "ok"}
	h, err := NewHTTPHandler(uc, RelayBuffered)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, DefaultChatPath, strings.NewReader(validBody))
	req.Header.Set("X-Correlation-Id", "abc")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "abc", rec.Header().Get("X-Correlation-Id"))
	require.Equal(t, "203.0.113.7", uc.in.ClientID)
}

func TestHTTP_RateLimitCeiling(t *testing.T) {
	llm := &countingLLM{tokens: []string{"Hel", "lo", " world"}}
	limiter, err := ratelimit.New(ratelimit.NewMemoryStore(), 3, 0)
	require.NoError(t, err)
	svc, err := usecase.NewChatService(credential.Static("sk-test"), llm, limiter, usecase.Options{})
	require.NoError(t, err)
	srv := newTestServer(t, svc, RelayStreamed)

	var statuses []int
	for i := 0; i < 4; i++ {
		resp := postChat(t, srv, validBody)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
		if resp.StatusCode == http.StatusOK {
			require.Equal(t, "Hello world", string(body))
		} else {
			require.Contains(t, string(body), `"error"`)
		}
	}
	require.Equal(t, []int{200, 200, 200, 429}, statuses)
	require.EqualValues(t, 3, llm.calls.Load())
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t, &stubUseCase{}, RelayStreamed)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
