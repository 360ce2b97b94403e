package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		LLMProvider:         "fake",
		DataServiceProvider: "fake",
		MemoryProvider:      "mem",
		MaxRounds:           10,
	}
}

func TestValidate_AcceptsDefaultFakeConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_RejectsNonPositiveMaxRounds(t *testing.T) {
	cfg := validConfig()
	cfg.MaxRounds = 0
	assert.Error(t, cfg.Validate())

	cfg.MaxRounds = -1
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownLLMProvider(t *testing.T) {
	cfg := validConfig()
	cfg.LLMProvider = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestValidate_AnthropicProviderRequiresAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.LLMProvider = "anthropic"
	assert.Error(t, cfg.Validate())

	cfg.AnthropicAPIKey = "sk-ant-test"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_OpenAIProviderRequiresAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.LLMProvider = "openai"
	assert.Error(t, cfg.Validate())

	cfg.OpenAIAPIKey = "sk-test"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsUnknownDataServiceProvider(t *testing.T) {
	cfg := validConfig()
	cfg.DataServiceProvider = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsUnknownMemoryProvider(t *testing.T) {
	cfg := validConfig()
	cfg.MemoryProvider = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestLoad_AppliesDefaultsWithNoEnvironment(t *testing.T) {
	t.Setenv("PLANNER_LLM_PROVIDER", "")
	t.Setenv("PLANNER_DATA_PROVIDER", "")
	t.Setenv("PLANNER_MEMORY_PROVIDER", "")
	t.Setenv("PLANNER_MAX_ROUNDS", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, "fake", cfg.LLMProvider)
	assert.Equal(t, "fake", cfg.DataServiceProvider)
	assert.Equal(t, "mem", cfg.MemoryProvider)
	assert.Equal(t, 10, cfg.MaxRounds)
}

func TestLoad_OverridesFromEnvironment(t *testing.T) {
	t.Setenv("PLANNER_MAX_ROUNDS", "20")
	t.Setenv("PLANNER_HTTP_ADDR", ":9090")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, 20, cfg.MaxRounds)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
}

func TestLoad_InvalidMaxRoundsFallsBackToDefault(t *testing.T) {
	t.Setenv("PLANNER_MAX_ROUNDS", "not-a-number")

	cfg, err := Load()
	assert.NoError(t, err)
	assert.Equal(t, 10, cfg.MaxRounds)
}

func TestLoad_PropagatesValidationFailure(t *testing.T) {
	t.Setenv("PLANNER_LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := Load()
	assert.Error(t, err)
}
