package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"portfolio-chat/internal/ratelimit"
	"portfolio-chat/internal/usecase"
)

// RelayMode selects how the assistant reply reaches the widget.
type RelayMode string

const (
	// RelayBuffered collects the whole reply and writes it in one body.
	RelayBuffered RelayMode = "buffered"
	// RelayStreamed writes and flushes every token as it arrives.
	RelayStreamed RelayMode = "streamed"
)

// ParseRelayMode accepts "buffered" or "streamed" (case-insensitive).
func ParseRelayMode(s string) (RelayMode, error) {
	switch RelayMode(strings.ToLower(strings.TrimSpace(s))) {
	case RelayBuffered:
		return RelayBuffered, nil
	case RelayStreamed:
		return RelayStreamed, nil
	}
	return "", fmt.Errorf("handler: unknown relay mode %q", s)
}

// HTTPHandler serves the chat proxy from a long-lived net/http server.
type HTTPHandler struct {
	chat ChatRelayer
	mode RelayMode
	settings
}

func NewHTTPHandler(chat ChatRelayer, mode RelayMode, opts ...Option) (*HTTPHandler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	if mode != RelayBuffered && mode != RelayStreamed {
		return nil, fmt.Errorf("handler: unknown relay mode %q", mode)
	}
	return &HTTPHandler{chat: chat, mode: mode, settings: newSettings(opts)}, nil
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	corrID := correlationID(r.Header.Get(headerCorrelationID), newUUID)
	h.writeCommonHeaders(w, corrID)

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		h.fail(ctx, w, corrID, &usecase.Error{Code: usecase.ErrorMethodNotAllowed, Reason: "method_" + strings.ToLower(r.Method)})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, int64(h.maxBodyBytes)+1))
	if err != nil {
		h.fail(ctx, w, corrID, usecase.NewInputError("invalid_json", err))
		return
	}
	in, err := decodeChatRequest(body, h.maxBodyBytes)
	if err != nil {
		h.fail(ctx, w, corrID, err)
		return
	}
	in.ClientID = clientIDFrom(r.Header.Get(headerForwardedFor), r.RemoteAddr)

	if h.mode == RelayBuffered {
		h.serveBuffered(ctx, w, corrID, in)
		return
	}
	h.serveStreamed(ctx, w, corrID, in)
}

func (h *HTTPHandler) serveBuffered(ctx context.Context, w http.ResponseWriter, corrID string, in usecase.ChatInput) {
	answer, err := h.chat.Complete(ctx, in)
	if err != nil {
		h.fail(ctx, w, corrID, err)
		return
	}
	writeTextHeaders(w)
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, answer)
}

// serveStreamed commits the 200 on the first token. A failure before that is
// reported as a JSON error; a failure after it aborts the connection so the
// widget sees an interrupted stream rather than a short but successful reply.
func (h *HTTPHandler) serveStreamed(ctx context.Context, w http.ResponseWriter, corrID string, in usecase.ChatInput) {
	flusher, _ := w.(http.Flusher)
	started := false

	err := h.chat.Relay(ctx, in, func(delta string) error {
		if !started {
			writeTextHeaders(w)
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := io.WriteString(w, delta); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})
	if err == nil {
		if !started {
			writeTextHeaders(w)
			w.WriteHeader(http.StatusOK)
		}
		return
	}
	if !started {
		h.fail(ctx, w, corrID, err)
		return
	}
	logFailure(ctx, h.log, corrID, err)
	panic(http.ErrAbortHandler)
}

func (h *HTTPHandler) fail(ctx context.Context, w http.ResponseWriter, corrID string, err error) {
	logFailure(ctx, h.log, corrID, err)
	status, resp := errorStatus(err)
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_, _ = io.WriteString(w, errorBody(resp))
}

func (h *HTTPHandler) writeCommonHeaders(w http.ResponseWriter, corrID string) {
	for k, v := range corsHeaders(h.allowedOrigin) {
		w.Header().Set(k, v)
	}
	w.Header().Set(headerCorrelationID, corrID)
}

func writeTextHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", contentTypeText)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Content-Type-Options", "nosniff")
}

func clientIDFrom(forwardedFor, remoteAddr string) string {
	return ratelimit.ClientID(forwardedFor, remoteAddr)
}
