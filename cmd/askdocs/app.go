package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/xhad/askdocs/pkg/config"
	"github.com/xhad/askdocs/pkg/llm"
	"github.com/xhad/askdocs/pkg/logger"
	"github.com/xhad/askdocs/pkg/qa"
	"github.com/xhad/askdocs/pkg/store"
)

// app holds the clients every command shares. They are created once and
// reused for the life of the process.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	embedder *llm.Embedder
	chat     *llm.ChatEngine
	store    *store.ModelGuard
}

// newApp loads and validates the configuration, then opens the shared
// clients.
func newApp(ctx context.Context, configPath string, validate func(*config.Config) []config.ValidationError) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := config.Check(validate(cfg)); err != nil {
		return nil, err
	}

	log := logger.New(cfg.Log)

	client, err := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:         cfg.OpenAI.APIKey,
		BaseURL:        cfg.OpenAI.BaseURL,
		ChatModel:      cfg.OpenAI.ChatModel,
		EmbeddingModel: cfg.OpenAI.EmbeddingModel,
	})
	if err != nil {
		return nil, err
	}

	embedder := llm.NewEmbedderWithConfig(client, llm.EmbedderConfig{
		Model:       cfg.OpenAI.EmbeddingModel,
		BatchSize:   cfg.OpenAI.EmbedBatchSize,
		Concurrency: cfg.OpenAI.EmbedConcurrency,
	})

	chat, err := llm.NewWithConfig(llm.ChatConfig{
		Model:       cfg.OpenAI.ChatModel,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
	}, client)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize chat engine")
	}

	vectorStore, err := store.New(ctx, cfg, embedder, log)
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize vector store")
	}

	return &app{
		cfg:      cfg,
		log:      log,
		embedder: embedder,
		chat:     chat,
		store:    vectorStore,
	}, nil
}

func (a *app) answerer() *qa.Service {
	return qa.NewWithConfig(qa.ServiceConfig{TopK: a.cfg.VectorStore.TopK}, a.store, a.chat, a.log)
}

func (a *app) Close() {
	a.store.Close()
}
