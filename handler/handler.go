package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"portfolio-chat/internal/usecase"
)

// Handler serves the chat proxy behind API Gateway. API Gateway proxy
// integrations return one complete body, so the reply is always buffered.
type Handler struct {
	chat ChatRelayer
	settings
}

func NewHandler(chat ChatRelayer, opts ...Option) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	return &Handler{chat: chat, settings: newSettings(opts)}, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := correlationID(headerValue(req.Headers, headerCorrelationID), newUUID)

	if req.HTTPMethod == http.MethodOptions {
		return h.respond(corrID, http.StatusOK, nil, ""), nil
	}
	if req.HTTPMethod != http.MethodPost {
		return h.fail(ctx, corrID, &usecase.Error{Code: usecase.ErrorMethodNotAllowed, Reason: "method_" + strings.ToLower(req.HTTPMethod)}), nil
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return h.fail(ctx, corrID, usecase.NewInputError("invalid_json", err)), nil
		}
		body = decoded
	}

	in, err := decodeChatRequest(body, h.maxBodyBytes)
	if err != nil {
		return h.fail(ctx, corrID, err), nil
	}
	in.ClientID = lambdaClientID(req)

	answer, err := h.chat.Complete(ctx, in)
	if err != nil {
		return h.fail(ctx, corrID, err), nil
	}

	return h.respond(corrID, http.StatusOK, map[string]string{
		"Content-Type":  contentTypeText,
		"Cache-Control": "no-store",
	}, answer), nil
}

func (h *Handler) fail(ctx context.Context, corrID string, err error) events.APIGatewayProxyResponse {
	logFailure(ctx, h.log, corrID, err)
	status, resp := errorStatus(err)
	return h.respond(corrID, status, map[string]string{"Content-Type": contentTypeJSON}, errorBody(resp))
}

func (h *Handler) respond(corrID string, status int, extra map[string]string, body string) events.APIGatewayProxyResponse {
	headers := corsHeaders(h.allowedOrigin)
	headers[headerCorrelationID] = corrID
	for k, v := range extra {
		headers[k] = v
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       body,
	}
}

func lambdaClientID(req events.APIGatewayProxyRequest) string {
	return clientIDFrom(headerValue(req.Headers, headerForwardedFor), req.RequestContext.Identity.SourceIP)
}

// headerValue looks a header up case-insensitively; API Gateway preserves the
// caller's casing.
func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
