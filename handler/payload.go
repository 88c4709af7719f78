package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/google/uuid"

	"portfolio-chat/internal/domain"
	"portfolio-chat/internal/usecase"
)

const (
	headerCorrelationID = "X-Correlation-Id"
	headerForwardedFor  = "X-Forwarded-For"

	defaultMaxBodyBytes = 1 << 20
	contentTypeText     = "text/plain; charset=utf-8"
	contentTypeJSON     = "application/json"
)

// ChatRelayer is the use case consumed by both transports.
type ChatRelayer interface {
	Relay(ctx context.Context, in usecase.ChatInput, sink func(string) error) error
	Complete(ctx context.Context, in usecase.ChatInput) (string, error)
}

type chatPayload struct {
	System   string          `json:"system"`
	Messages json.RawMessage `json:"messages"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// decodeChatRequest parses the widget payload. messages must be a JSON array;
// a missing field, null or any other type is rejected.
func decodeChatRequest(body []byte, maxBytes int) (usecase.ChatInput, error) {
	if maxBytes > 0 && len(body) > maxBytes {
		return usecase.ChatInput{}, usecase.NewInputError("body_too_large", nil)
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("{}")
	}

	var p chatPayload
	if err := json.Unmarshal(body, &p); err != nil {
		if typeErr := fieldTypeError(err); typeErr != nil {
			return usecase.ChatInput{}, typeErr
		}
		return usecase.ChatInput{}, usecase.NewInputError("invalid_json", err)
	}
	raw := bytes.TrimSpace(p.Messages)
	if len(raw) == 0 || raw[0] != '[' {
		return usecase.ChatInput{}, usecase.NewInputError("messages_not_array", nil)
	}
	messages := []domain.ChatMessage{}
	if err := json.Unmarshal(raw, &messages); err != nil {
		return usecase.ChatInput{}, usecase.NewInputError("invalid_messages", err)
	}
	return usecase.ChatInput{System: p.System, Messages: messages}, nil
}

// fieldTypeError reports a well-formed body whose field has the wrong JSON
// type, naming the field in the client message.
func fieldTypeError(err error) *usecase.Error {
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) || typeErr.Field == "" || typeErr.Type == nil {
		return nil
	}
	ue := usecase.NewInputError("invalid_field_type", err)
	ue.Message = fmt.Sprintf("Invalid payload: %s must be a %s", typeErr.Field, jsonTypeName(typeErr.Type.Kind()))
	return ue
}

func jsonTypeName(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return "string"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Bool:
		return "boolean"
	default:
		return "number"
	}
}

var inputMessages = map[string]string{
	"messages_not_array":        "Invalid payload: messages must be an array",
	"invalid_json":              "Invalid payload: body must be a JSON object",
	"invalid_messages":          "Invalid payload: messages must be role/content objects",
	"invalid_message_role":      "Invalid payload: unknown message role",
	"system_message_in_history": "Invalid payload: system messages belong in the system field",
	"body_too_large":            "Invalid payload: body too large",
}

// errorStatus maps a use case failure to the HTTP status and the message the
// widget may surface.
func errorStatus(err error) (int, errorResponse) {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		return http.StatusInternalServerError, errorResponse{Error: "Internal server error", Code: string(usecase.ErrorInternal)}
	}
	resp := errorResponse{Code: string(ue.Code)}

	switch ue.Code {
	case usecase.ErrorInvalidInput:
		resp.Error = firstNonEmpty(ue.Message, inputMessages[ue.Reason])
		if resp.Error == "" {
			resp.Error = "Invalid payload"
		}
		return http.StatusBadRequest, resp
	case usecase.ErrorMethodNotAllowed:
		resp.Error = "Method Not Allowed"
		return http.StatusMethodNotAllowed, resp
	case usecase.ErrorConfiguration:
		resp.Error = "OPENAI_API_KEY not configured"
		return http.StatusInternalServerError, resp
	case usecase.ErrorRateLimited:
		resp.Error = firstNonEmpty(ue.Message, "Too many requests, please slow down")
		return http.StatusTooManyRequests, resp
	case usecase.ErrorUpstreamTimeout:
		resp.Error = "Upstream completion timed out"
		return http.StatusGatewayTimeout, resp
	case usecase.ErrorUpstream:
		resp.Error = firstNonEmpty(ue.Message, "Upstream completion failed")
		if ue.Status >= 400 && ue.Status <= 599 {
			return ue.Status, resp
		}
		return http.StatusInternalServerError, resp
	default:
		resp.Error = "Internal server error"
		resp.Code = string(usecase.ErrorInternal)
		return http.StatusInternalServerError, resp
	}
}

func errorBody(resp errorResponse) string {
	b, err := json.Marshal(resp)
	if err != nil {
		return `{"error":"Internal server error"}`
	}
	return string(b)
}

func logFailure(ctx context.Context, log logger, correlationID string, err error) {
	var ue *usecase.Error
	if errors.As(err, &ue) {
		log.ErrorContext(ctx, "chat request failed",
			"correlation_id", correlationID,
			"code", ue.Code,
			"reason", ue.Reason,
			"err", ue.Err,
		)
		return
	}
	log.ErrorContext(ctx, "chat request failed", "correlation_id", correlationID, "err", err)
}

func corsHeaders(origin string) map[string]string {
	if origin == "" {
		origin = "*"
	}
	return map[string]string{
		"Access-Control-Allow-Origin":  origin,
		"Access-Control-Allow-Headers": "Content-Type, X-Correlation-Id",
		"Access-Control-Allow-Methods": "POST, OPTIONS",
	}
}

func correlationID(inbound string, newID func() string) string {
	if id := strings.TrimSpace(inbound); id != "" {
		return id
	}
	return newID()
}

var newUUID = func() string {
	return uuid.NewString()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
