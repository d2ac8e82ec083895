package main

import (
	"fmt"
	"path/filepath"

	"grantwright/internal/config"
	"grantwright/internal/embedding"
	"grantwright/internal/generation"
	"grantwright/internal/retrieval"
	"grantwright/internal/store"
)

// app bundles the wired-up components commands work with.
type app struct {
	cfg       *config.Config
	store     *store.Store
	embedder  embedding.Engine
	retriever *retrieval.Retriever
	engine    generation.Engine
}

// newApp loads config and wires the store, embedding engine, retriever, and
// generation engine. strategyOverride replaces the configured generation
// strategy when non-empty.
func newApp(strategyOverride string) (*app, error) {
	cfg, err := config.LoadFromWorkspace(workspace)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	dbPath := cfg.Store.DatabasePath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(workspace, dbPath)
	}
	st, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	embedder, err := embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		ServiceURL:     cfg.Embedding.ServiceURL,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
		TaskType:       cfg.Embedding.TaskType,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create embedding engine: %w", err)
	}

	genCfg := cfg.Generation
	if strategyOverride != "" {
		genCfg.Strategy = strategyOverride
	}
	engine, err := generation.NewEngine(genCfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create generation engine: %w", err)
	}

	return &app{
		cfg:       cfg,
		store:     st,
		embedder:  embedder,
		retriever: retrieval.New(st, embedder, cfg.Retrieval),
		engine:    engine,
	}, nil
}

func (a *app) Close() {
	a.store.Close()
}
