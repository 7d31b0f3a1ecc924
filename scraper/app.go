package main

import (
	"context"
	"fmt"
	"os"

	"techup/lib/config"
	"techup/lib/discover"
	"techup/lib/llm"
	"techup/lib/logger"
	"techup/lib/readability"
	"techup/lib/reconcile"
	"techup/lib/runner"
	"techup/lib/store"
	"techup/lib/types"
	"techup/lib/web"
)

type stateStore interface {
	runner.Store
	Cache(ctx context.Context) (types.Cache, bool, error)
	Trends(ctx context.Context) (types.Trends, error)
}

type app struct {
	cfg config.Config
	log *logger.Logger
}

// setup loads the configuration. Commands that print documents log to
// stderr only so their output stays parseable.
func setup(logToFile bool) (*app, error) {
	envFile, err := config.LoadEnv(flagEnv)
	if err != nil {
		return nil, err
	}
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level := logger.GetLogLevelFromString(cfg.LogLevel)
	var log *logger.Logger
	if logToFile {
		log, err = logger.NewLogger("TECHUP", cfg.LogPath, cfg.LogMaxSize, cfg.LogMaxBackups, cfg.LogMaxAge, level)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
	} else {
		log = logger.New("TECHUP", os.Stderr, level)
	}

	if envFile == "" {
		log.Debug("No .env file found, using the environment only")
	} else {
		log.Debug("Loaded %s", envFile)
	}
	if !cfg.HasOpenAIKey() {
		log.Warning("OPENAI_API_KEY is not set: runs will stop at the first article that needs a summary")
	}
	return &app{cfg: cfg, log: log}, nil
}

func (a *app) store() stateStore {
	if a.cfg.DatabaseURL != "" {
		return store.NewPgStore(a.cfg.DatabaseURL, a.log.Module("STORE"))
	}
	return store.NewFileStore(store.Paths{
		Cache:    a.cfg.CachePath,
		Ledger:   a.cfg.LedgerPath,
		Rejected: a.cfg.RejectedPath,
		Trends:   a.cfg.TrendsPath,
	}, a.log.Module("STORE"))
}

func (a *app) runner() *runner.Runner {
	cfg := a.cfg
	client := web.NewClient(web.Options{
		Timeout:           cfg.HTTPTimeout,
		UserAgent:         cfg.UserAgent,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	engine := reconcile.New(
		discover.New(client, cfg.MaxLinks, cfg.SkipHosts, a.log.Module("DISCOVER")),
		readability.NewFetcher(client, cfg.MaxContentLength, a.log.Module("FETCH")),
		llm.NewSummarizer(llm.Options{
			Token:   cfg.OpenAIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.SummarizeTimeout,
		}, a.log.Module("LLM")),
		a.log.Module("RECONCILE"),
		reconcile.Options{
			Concurrency:     cfg.Concurrency,
			RejectTTL:       cfg.RejectTTL,
			DedupeHeadlines: cfg.DedupeHeadlines,
		},
	)
	return runner.New(a.store(), engine, runner.Options{
		CatalogPath:    cfg.CatalogPath,
		PersistPartial: cfg.PersistPartial,
	}, a.log.Module("RUNNER"))
}
