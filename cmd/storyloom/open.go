package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"storyloom/internal/config"
	"storyloom/internal/engine"
	"storyloom/internal/gen"
	"storyloom/internal/logger"
	"storyloom/internal/search"
	"storyloom/internal/search/postgres"
	"storyloom/internal/search/sqlite"
	"storyloom/internal/store/fs"
)

const configFile = "storyloom.yaml"

func loadConfig() (*config.ProjectConfig, error) {
	return config.LoadProjectConfig(configFile)
}

func openStore(cfg *config.ProjectConfig) (*fs.Client, error) {
	return fs.New(cfg.Store.Path)
}

// openIndex picks the search backend by DSN scheme.
func openIndex(ctx context.Context, cfg *config.ProjectConfig) (search.Index, error) {
	switch {
	case strings.HasPrefix(cfg.Search.DSN, "sqlite://"):
		return sqlite.New(ctx, cfg.Search.DSN)
	case strings.HasPrefix(cfg.Search.DSN, "postgres://"):
		return postgres.New(ctx, cfg.Search.DSN)
	}
	return nil, fmt.Errorf("unsupported search dsn: %s", cfg.Search.DSN)
}

func newEngine(ctx context.Context, cfg *config.ProjectConfig) (*engine.Engine, *fs.Client, search.Index, *zap.Logger, error) {
	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	index, err := openIndex(ctx, cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	apiKey := os.Getenv(cfg.Generation.APIKeyEnv)
	if apiKey == "" {
		return nil, nil, nil, nil, fmt.Errorf("environment variable %s is not set", cfg.Generation.APIKeyEnv)
	}
	service := gen.NewOpenAI(cfg.Generation.BaseURL, apiKey, cfg.Generation.Model)

	eng, err := engine.New(engine.Options{
		Store:      st,
		Gen:        service,
		Index:      index,
		Config:     cfg,
		Log:        log,
		StoreRoot:  st.Root(),
		ProjectDir: ".",
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return eng, st, index, log, nil
}
