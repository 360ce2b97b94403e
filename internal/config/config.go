// Package config loads process configuration for the demo CLI and daemon.
// Configuration loading is an explicit collaborator concern (spec §1
// Non-goals), not part of the core; this package only exists to wire the
// core's collaborators (LLM provider, data-service endpoint, round budget)
// from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the environment-derived settings the demo CLI/daemon use to
// construct the core's collaborators.
type Config struct {
	// LLMProvider selects the llmclient.Client implementation: "anthropic",
	// "openai", or "fake".
	LLMProvider string
	AnthropicAPIKey string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIModel     string

	// DataServiceProvider selects the dataservice.Service implementation:
	// "typesense", "sql", or "fake".
	DataServiceProvider string
	TypesenseURL        string
	TypesenseAPIKey     string
	TypesenseCollection string
	PostgresDSN         string
	PostgresTable       string

	// MemoryProvider selects the memory.Store implementation: "redis" or "mem".
	MemoryProvider string
	RedisAddr      string

	MaxRounds int

	// RegistryManifestPath, when set, is watched for hot-reload of the
	// worker-capability registry (spec §4.2, §9).
	RegistryManifestPath string

	// HTTPAddr is the listen address for cmd/plannerd.
	HTTPAddr string
	// JWTSecret authenticates cmd/plannerd's HTTP endpoint (ambient only,
	// not a core concern — spec §1 excludes authN/authZ from the core).
	JWTSecret string
}

// Load reads a .env file if present (ignoring its absence) and then layers
// environment variables over defaults.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		LLMProvider:          getEnv("PLANNER_LLM_PROVIDER", "fake"),
		AnthropicAPIKey:      os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:       getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4o"),
		DataServiceProvider:  getEnv("PLANNER_DATA_PROVIDER", "fake"),
		TypesenseURL:         getEnv("TYPESENSE_URL", "http://localhost:8108"),
		TypesenseAPIKey:      os.Getenv("TYPESENSE_API_KEY"),
		TypesenseCollection:  getEnv("TYPESENSE_COLLECTION", "shipments"),
		PostgresDSN:          os.Getenv("POSTGRES_DSN"),
		PostgresTable:        getEnv("POSTGRES_TABLE", "entity_reference"),
		MemoryProvider:       getEnv("PLANNER_MEMORY_PROVIDER", "mem"),
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		MaxRounds:            getEnvInt("PLANNER_MAX_ROUNDS", 10),
		RegistryManifestPath: os.Getenv("PLANNER_REGISTRY_MANIFEST"),
		HTTPAddr:             getEnv("PLANNER_HTTP_ADDR", ":8080"),
		JWTSecret:            os.Getenv("PLANNER_JWT_SECRET"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations that would construct an unusable
// collaborator, e.g. an "anthropic" LLM provider without an API key.
func (c Config) Validate() error {
	if c.MaxRounds <= 0 {
		return fmt.Errorf("config: PLANNER_MAX_ROUNDS must be positive, got %d", c.MaxRounds)
	}
	switch c.LLMProvider {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("config: PLANNER_LLM_PROVIDER=anthropic requires ANTHROPIC_API_KEY")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("config: PLANNER_LLM_PROVIDER=openai requires OPENAI_API_KEY")
		}
	case "fake":
	default:
		return fmt.Errorf("config: unknown PLANNER_LLM_PROVIDER %q", c.LLMProvider)
	}
	switch c.DataServiceProvider {
	case "typesense", "sql", "fake":
	default:
		return fmt.Errorf("config: unknown PLANNER_DATA_PROVIDER %q", c.DataServiceProvider)
	}
	switch c.MemoryProvider {
	case "redis", "mem":
	default:
		return fmt.Errorf("config: unknown PLANNER_MEMORY_PROVIDER %q", c.MemoryProvider)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
