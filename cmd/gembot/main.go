package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ntroshkin/gembot/internal/adapters/llm"
	firestorestore "github.com/ntroshkin/gembot/internal/adapters/storage/firestore"
	memstore "github.com/ntroshkin/gembot/internal/adapters/storage/memory"
	sqlitestore "github.com/ntroshkin/gembot/internal/adapters/storage/sqlite"
	"github.com/ntroshkin/gembot/internal/adapters/telegram"
	"github.com/ntroshkin/gembot/internal/app/chat"
	"github.com/ntroshkin/gembot/internal/app/quicktools"
	"github.com/ntroshkin/gembot/internal/bot"
	"github.com/ntroshkin/gembot/internal/config"
	"github.com/ntroshkin/gembot/internal/domain"
	"github.com/ntroshkin/gembot/internal/observability"
)

func main() {
	log := observability.Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := quicktools.Validate(); err != nil {
		log.Error("invalid tool registry", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var llmClient domain.LLMClient
	if cfg.UseMockLLM {
		log.Info("using mock LLM client")
		llmClient = llm.NewMockLLM()
	} else {
		log.Info("using Gemini LLM client")
		llmClient, err = llm.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			log.Error("initializing Gemini client failed", "error", err)
			os.Exit(1)
		}
	}

	var (
		settings domain.SettingsStore
		history  domain.HistoryStore
		files    domain.FileContextStore
		buffer   domain.BufferStore
	)

	switch cfg.StorageBackend {
	case "firestore":
		log.Info("using Firestore storage", "project", cfg.GCPProjectID)
		store, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Error("initializing Firestore failed", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		settings, history, files, buffer = store, store, store, store

	case "sqlite":
		log.Info("using SQLite storage", "path", cfg.SQLitePath)
		store, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			log.Error("opening SQLite failed", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		settings, history, files, buffer = store, store, store, store

	default:
		log.Info("using in-memory storage")
		settings = memstore.NewSettingsStore()
		history = memstore.NewHistoryStore()
		files = memstore.NewFileContextStore()
		buffer = memstore.NewBufferStore()
	}

	// HTTP timeout must outlast the long poll plus file uploads.
	httpTimeout := time.Duration(cfg.PollTimeoutSec+90) * time.Second
	tg := telegram.NewClient(cfg.TelegramToken, httpTimeout)

	svc := chat.NewService(cfg, llmClient, settings, history, files, buffer, tg)
	tools := quicktools.NewRunner(cfg, llmClient)

	d := bot.NewDispatcher(tg, bot.New(cfg, tg, svc, tools), cfg.PollTimeoutSec)

	log.Info("bot started", "storage", cfg.StorageBackend)
	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("dispatcher exited", "error", err)
		os.Exit(1)
	}
	log.Info("bot stopped")
}
