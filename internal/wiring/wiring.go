// Package wiring constructs the core's collaborators from a config.Config.
// It exists so cmd/plannerctl and cmd/plannerd share one assembly path
// instead of duplicating collaborator construction.
package wiring

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/beefkknd/deterministic-planner/internal/config"
	"github.com/beefkknd/deterministic-planner/internal/dataservice"
	"github.com/beefkknd/deterministic-planner/internal/dataservice/sqlstore"
	"github.com/beefkknd/deterministic-planner/internal/dataservice/typesensestore"
	"github.com/beefkknd/deterministic-planner/internal/driver"
	"github.com/beefkknd/deterministic-planner/internal/engine"
	"github.com/beefkknd/deterministic-planner/internal/executor"
	"github.com/beefkknd/deterministic-planner/internal/joinreduce"
	"github.com/beefkknd/deterministic-planner/internal/llmclient"
	"github.com/beefkknd/deterministic-planner/internal/memory"
	"github.com/beefkknd/deterministic-planner/internal/memory/redisstore"
	"github.com/beefkknd/deterministic-planner/internal/normalizer"
	"github.com/beefkknd/deterministic-planner/internal/planner"
	"github.com/beefkknd/deterministic-planner/internal/registry"
	"github.com/beefkknd/deterministic-planner/internal/runlog"
	"github.com/beefkknd/deterministic-planner/internal/session"
	"github.com/beefkknd/deterministic-planner/internal/synthesizer"
	"github.com/beefkknd/deterministic-planner/internal/telemetry"
	"github.com/beefkknd/deterministic-planner/workers"
)

// App bundles the assembled collaborators a CLI or daemon needs.
type App struct {
	Config   config.Config
	Registry *registry.Registry
	LLM      llmclient.Client
	Data     dataservice.Service
	Memory   memory.Store
	Sessions session.Store
	RunLog   runlog.Store
	Driver   *driver.Driver
	Logger   telemetry.Logger
}

// Build assembles an App from cfg using Clue-backed metrics/tracing,
// suitable for the one-shot plannerctl CLI. It opens network connections
// (Redis, Postgres) lazily only when the corresponding provider is selected.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	return BuildWithMetrics(ctx, cfg, telemetry.NewClueMetrics())
}

// BuildWithMetrics assembles an App from cfg, using the given Metrics
// recorder instead of the Clue default. plannerd uses this to plug in a
// PrometheusMetrics instance backed by its own /metrics registry.
func BuildWithMetrics(ctx context.Context, cfg config.Config, metrics telemetry.Metrics) (*App, error) {
	logger := telemetry.NewClueLogger()
	tracer := telemetry.NewClueTracer()

	reg := registry.New()
	bodies := executor.NewBodies()

	llm, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}
	data, err := buildData(cfg)
	if err != nil {
		return nil, err
	}
	mem, err := buildMemory(cfg)
	if err != nil {
		return nil, err
	}

	workerSet := &workers.Set{LLM: llm, Data: data}
	workerSet.RegisterAll(reg, bodies)

	if cfg.RegistryManifestPath != "" {
		if err := registry.LoadFile(reg, cfg.RegistryManifestPath); err != nil {
			return nil, fmt.Errorf("wiring: load registry manifest: %w", err)
		}
	}

	norm := normalizer.New(llm, logger)
	plan := planner.New(llm, reg, logger)
	exec := executor.New(bodies, logger)
	join := joinreduce.New(reg)
	synth := synthesizer.New(llm, reg)
	eng := engine.New()
	runlogStore := runlog.NewInMemStore()
	sessions := session.NewInMemStore()

	drv := driver.New(norm, plan, exec, join, synth, eng, runlogStore, logger, metrics, tracer)

	return &App{
		Config:   cfg,
		Registry: reg,
		LLM:      llm,
		Data:     data,
		Memory:   mem,
		Sessions: sessions,
		RunLog:   runlogStore,
		Driver:   drv,
		Logger:   logger,
	}, nil
}

func buildLLM(cfg config.Config) (llmclient.Client, error) {
	switch cfg.LLMProvider {
	case "anthropic":
		return llmclient.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, 1024), nil
	case "openai":
		return llmclient.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	case "fake":
		return llmclient.NewFakeClient(), nil
	default:
		return nil, fmt.Errorf("wiring: unknown LLM provider %q", cfg.LLMProvider)
	}
}

func buildData(cfg config.Config) (dataservice.Service, error) {
	switch cfg.DataServiceProvider {
	case "typesense":
		return typesensestore.New(cfg.TypesenseURL, cfg.TypesenseAPIKey, cfg.TypesenseCollection), nil
	case "sql":
		return sqlstore.New(cfg.PostgresDSN, cfg.PostgresTable)
	case "fake":
		return dataservice.NewFakeService(nil), nil
	default:
		return nil, fmt.Errorf("wiring: unknown data-service provider %q", cfg.DataServiceProvider)
	}
}

func buildMemory(cfg config.Config) (memory.Store, error) {
	switch cfg.MemoryProvider {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return redisstore.New(client, "planner:history"), nil
	case "mem":
		return memory.NewInMemStore(), nil
	default:
		return nil, fmt.Errorf("wiring: unknown memory provider %q", cfg.MemoryProvider)
	}
}
