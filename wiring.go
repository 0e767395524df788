package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jan-sahayak/server/internal/agent/cache"
	"github.com/jan-sahayak/server/internal/agent/graph"
	"github.com/jan-sahayak/server/internal/agent/graph/nodes"
	"github.com/jan-sahayak/server/internal/agent/model"
	"github.com/jan-sahayak/server/internal/agent/repo"
	"github.com/jan-sahayak/server/internal/agent/retrieval"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

type app struct {
	engine  *graph.Engine
	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func buildApp(ctx context.Context, cfg AppConfig) (*app, error) {
	a := &app{}

	gws, err := nodes.NewGateways(ctx, nodes.ChatModelConfig{
		APIKey:   cfg.APIKey,
		BaseURL:  cfg.BaseURL,
		Router:   cfg.Router.Params(),
		Analysis: cfg.Analysis.Params(),
		Response: cfg.Response.Params(),
		Timeout:  cfg.Timeouts.Model,
	})
	if err != nil {
		return nil, err
	}

	corpus, err := retrieval.LoadCorpus(cfg.Retrieval.CorpusDir, cfg.Retrieval.TopK)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	logx.Info().Str("dir", cfg.Retrieval.CorpusDir).Int("documents", corpus.Len()).Msg("Retrieval corpus loaded")

	caches := cache.NewService(cfg.Cache)

	store, err := openStore(ctx, cfg, a)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.engine, err = graph.BuildEngine(ctx, graph.Config{
		Gateways:     gws,
		Retrieval:    retrieval.NewService(corpus, caches.Retrieval, cfg.Timeouts.Retrieval),
		Cache:        caches,
		Conversation: cfg.Conversation,
		Repo:         store,
		ToolTimeout:  cfg.Timeouts.Tool,
		StoreTimeout: cfg.Timeouts.Store,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// openStore picks the session backend and registers its closer on a.
func openStore(ctx context.Context, cfg AppConfig, a *app) (model.SessionRepository, error) {
	switch cfg.Store.Backend {
	case model.StoreMemory, "":
		return repo.NewMemorySessionRepository(), nil
	case model.StoreRedis:
		rdb, err := cfg.Redis.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to initialise Redis client: %w", err)
		}
		a.closers = append(a.closers, rdb.Close)
		logx.Info().Msg("Connected to Redis successfully")
		return repo.NewRedisSessionRepository(rdb, cfg.Store.TTL), nil
	case model.StoreSQLite, model.StorePostgres:
		r, err := repo.OpenSQL(ctx, string(cfg.Store.Backend), cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, r.Close)
		return r, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
