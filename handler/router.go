package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// DefaultChatPath is where the widget posts by default.
const DefaultChatPath = "/api/chat"

// NewRouter mounts the chat handler at path with a /health heartbeat.
func NewRouter(chat http.Handler, path string) http.Handler {
	if path == "" {
		path = DefaultChatPath
	}
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Handle(path, chat)
	return r
}
