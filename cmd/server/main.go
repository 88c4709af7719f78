package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"portfolio-chat/handler"
	"portfolio-chat/internal/app"
	"portfolio-chat/internal/config"
	"portfolio-chat/internal/logging"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "err", err)
	}

	cfg, err := config.LoadProxy(string(handler.RelayStreamed))
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger, err := logging.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		slog.Error("failed to set up logging", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	proxy, err := app.NewProxy(ctx, cfg, app.DefaultAWSLoader)
	if err != nil {
		slog.Error("failed to create chat service", "err", err)
		os.Exit(1)
	}
	if proxy.Memory != nil {
		go proxy.Memory.RunEviction(ctx, cfg.RateLimit.Window)
	}

	mode, err := handler.ParseRelayMode(cfg.RelayMode)
	if err != nil {
		slog.Error("invalid relay mode", "err", err)
		os.Exit(1)
	}
	chat, err := handler.NewHTTPHandler(proxy.Chat, mode,
		handler.WithAllowedOrigin(cfg.AllowedOrigin),
		handler.WithMaxBodyBytes(cfg.MaxBodyBytes),
		handler.WithLogger(logger),
	)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           handler.NewRouter(chat, handler.DefaultChatPath),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Streamed replies are bounded by UPSTREAM_TIMEOUT instead.
		WriteTimeout: 0,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("chat proxy listening", "addr", srv.Addr, "relay_mode", mode, "path", handler.DefaultChatPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.UpstreamTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "err", err)
		os.Exit(1)
	}
	logger.Info("chat proxy stopped")
}
