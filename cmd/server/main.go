package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/compare"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/config"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/fetch"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/model"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/scrape"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/server"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/session"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/storage"
	"github.com/noobyalan/Multi-Platform-Social-Media-Content-Filter/internal/summarizer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	repo, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = repo.Close() }()

	httpClient := &http.Client{Timeout: 30 * time.Second}

	registry := fetch.NewRegistry()
	registry.Register(model.PlatformReddit,
		fetch.NewCached(fetch.NewReddit(httpClient, cfg.Reddit.UserAgent), cfg.FetchCacheTTL()))
	registry.Register(model.PlatformYouTube,
		fetch.NewCached(fetch.NewYouTube(httpClient, cfg.YouTube.APIKey), cfg.FetchCacheTTL()))

	llm := summarizer.NewClient(&http.Client{Timeout: 2 * time.Minute}, summarizer.Keys{
		OpenAI:   cfg.LLM.OpenAIAPIKey,
		Gemini:   cfg.LLM.GeminiAPIKey,
		DeepSeek: cfg.LLM.DeepSeekAPIKey,
		Zhipu:    cfg.LLM.ZhipuAPIKey,
	}, cfg.LLM.DefaultModel, log)

	sessions := session.NewStore(cfg.SessionTTL())
	scraper := scrape.NewOrchestrator(registry, llm, sessions, cfg.ScrapeLimit, log)
	comparer := compare.NewEngine(repo, llm, cfg.LLM.DefaultModel)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(sessions, repo, scraper, comparer, llm.AvailableModels(), cfg.LLM.DefaultModel, log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown", "error", err)
		}
	}()

	log.Info("starting server", "addr", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("serve", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
