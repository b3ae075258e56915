package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"medatlas/internal/api"
	"medatlas/internal/auth"
	"medatlas/internal/cli"
	"medatlas/internal/config"
	"medatlas/internal/history"
	"medatlas/internal/session"
)

func main() {
	cfg := config.Load()

	server := flag.String("server", cfg.ServerURL, "backend base URL")
	timeout := flag.Duration("timeout", cfg.HTTPTimeout, "HTTP timeout")
	tokenFile := flag.String("token-file", cfg.TokenFile, "path for the persisted login token")
	historyDB := flag.String("history-db", cfg.HistoryDB, "path for the local attempt history database")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	tokens, err := auth.NewStore(*tokenFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	var attempts cli.AttemptHistory
	store, err := history.NewStore(*historyDB)
	if err != nil {
		// The client is still usable without local history.
		logger.Warn("attempt history unavailable", "path", *historyDB, "error", err)
	} else {
		defer store.Close()
		attempts = store
	}

	client := api.NewClient(*server, &http.Client{Timeout: *timeout}, tokens)
	manager := session.NewManager(client, session.WithTextNormalization(cfg.NormalizeText))
	app := cli.NewApp(client, manager, tokens, attempts, cli.Config{Logger: logger})

	if err := app.Run(context.Background(), os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
