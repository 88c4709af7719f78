package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/peterh/liner"

	"portfolio-chat/internal/config"
	"portfolio-chat/internal/logging"
	"portfolio-chat/internal/storage"
	"portfolio-chat/internal/widget"
)

const helpText = `Commands:
  /open      open the chat panel
  /close     close the panel
  /min       minimize or expand the panel
  /launcher  click the launcher
  /clear     clear the conversation
  /help      show this help
  /quit      exit
End a line with \ to continue on the next line (Shift+Enter).`

func main() {
	configPath := flag.String("config", "widget.toml", "path to the widget TOML config")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "err", err)
	}

	cfg, err := config.LoadWidget(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	logger, err := logging.Setup(os.Stderr, cfg.LogLevel, "text")
	if err != nil {
		slog.Error("failed to set up logging", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		slog.Error("widget failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Widget, logger *slog.Logger) error {
	ctx := context.Background()

	store, err := storage.OpenSQLite(cfg.StorePath)
	if err != nil {
		return err
	}
	defer store.Close()

	client, err := widget.NewClient(cfg.Endpoint, widget.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout.Duration}))
	if err != nil {
		return err
	}

	render := newTermRenderer(os.Stdout)
	w, err := widget.New(ctx, store, client, render, widget.Options{
		PersonaPrompt: cfg.PersonaPrompt,
		NoticeDelay:   cfg.NoticeDelay.Duration,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(true)

	fmt.Println(noticeStyle.Render("Type /help for commands."))

	var pending []string
	for {
		prompt := render.prompt()
		if len(pending) > 0 {
			prompt = "... "
		}
		input, err := line.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		trimmed := strings.TrimRight(input, " ")
		shift := strings.HasSuffix(trimmed, `\`)
		if widget.KeyActionFor("Enter", shift) == widget.KeyNewline {
			pending = append(pending, strings.TrimSuffix(trimmed, `\`))
			continue
		}
		text := strings.Join(append(pending, input), "\n")
		pending = nil

		if strings.HasPrefix(strings.TrimSpace(text), "/") {
			quit, err := command(ctx, w, strings.TrimSpace(text))
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			if quit {
				return nil
			}
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if w.State() != widget.PanelOpen {
			fmt.Println(noticeStyle.Render("The panel is not open. Use /open or /launcher."))
			continue
		}

		line.AppendHistory(strings.TrimSpace(text))
		if err := w.Submit(ctx, text); err != nil && errors.Is(err, widget.ErrBusy) {
			fmt.Println(noticeStyle.Render("Still answering, hang on."))
		}
		fmt.Println()
	}
}

func command(ctx context.Context, w *widget.Widget, input string) (bool, error) {
	switch strings.Fields(input)[0] {
	case "/open":
		return false, w.Open(ctx)
	case "/close":
		return false, w.Close(ctx)
	case "/min":
		return false, w.ToggleCollapse(ctx)
	case "/launcher":
		return false, w.LauncherClick(ctx)
	case "/clear":
		return false, w.ClearHistory(ctx)
	case "/help":
		fmt.Println(helpText)
		return false, nil
	case "/quit", "/exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %s; try /help", input)
	}
}
