package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"portfolio-chat/handler"
	"portfolio-chat/internal/app"
	"portfolio-chat/internal/config"
	"portfolio-chat/internal/logging"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	// API Gateway proxy integrations cannot emit a chunked body, so the
	// Lambda target always buffers.
	cfg, err := config.LoadProxy(string(handler.RelayBuffered))
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger, err := logging.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		slog.Error("failed to set up logging", "err", err)
		os.Exit(1)
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.Backend == config.BackendMemory {
		logger.Warn("in-memory rate limiting is per Lambda instance; use RATE_LIMIT_BACKEND=dynamodb for a shared ledger")
	}

	// ---- Clients ----
	proxy, err := app.NewProxy(ctx, cfg, app.DefaultAWSLoader)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(proxy.Chat,
		handler.WithAllowedOrigin(cfg.AllowedOrigin),
		handler.WithMaxBodyBytes(cfg.MaxBodyBytes),
		handler.WithLogger(logger),
	)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}
