package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actflow/internal/config"
)

func TestLLMConfig_Providers_PrimaryOnly(t *testing.T) {
	cfg := config.LLMConfig{
		Primary: config.LLMProviderConfig{Provider: "openai", APIKey: "sk-test"},
	}

	providers := cfg.Providers()

	require.Len(t, providers, 1)
	assert.Equal(t, "openai", providers[0].Provider)
}

func TestLLMConfig_Providers_FallbackOrder(t *testing.T) {
	cfg := config.LLMConfig{
		Primary:   config.LLMProviderConfig{Provider: "openai"},
		Secondary: config.LLMProviderConfig{Provider: "claude"},
		Tertiary:  config.LLMProviderConfig{Provider: "gemini"},
	}

	providers := cfg.Providers()

	require.Len(t, providers, 3)
	assert.Equal(t, "openai", providers[0].Provider)
	assert.Equal(t, "claude", providers[1].Provider)
	assert.Equal(t, "gemini", providers[2].Provider)
}

func TestLLMConfig_Providers_SkipsEmptySecondary(t *testing.T) {
	cfg := config.LLMConfig{
		Primary:  config.LLMProviderConfig{Provider: "openai"},
		Tertiary: config.LLMProviderConfig{Provider: "gemini"},
	}

	providers := cfg.Providers()

	require.Len(t, providers, 2)
	assert.Equal(t, "gemini", providers[1].Provider)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Primary.Provider)
	assert.Equal(t, "gpt-4o", cfg.LLM.Primary.DefaultModel)
	assert.Equal(t, 2.0, cfg.PDF.Zoom)
	assert.Equal(t, 1, cfg.Pipeline.PageConcurrency)
	assert.Equal(t, 10*time.Minute, cfg.Pipeline.DocumentTimeout())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ACTFLOW_LLM_SECONDARY_PROVIDER", "claude")
	t.Setenv("ACTFLOW_LLM_SECONDARY_API_KEY", "sk-ant")
	t.Setenv("ACTFLOW_PIPELINE_PAGE_CONCURRENCY", "4")
	t.Setenv("ACTFLOW_DB_NAME", "acts")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "claude", cfg.LLM.Secondary.Provider)
	assert.Equal(t, "sk-ant", cfg.LLM.Secondary.APIKey)
	assert.Equal(t, 4, cfg.Pipeline.PageConcurrency)
	assert.Contains(t, cfg.DB.DSN(), "/acts?")
}

func TestLoad_PortOverride(t *testing.T) {
	t.Setenv("PORT", "9090")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
}

func TestPipelineConfig_DocumentTimeout(t *testing.T) {
	p := config.PipelineConfig{DocumentTimeoutSecs: 30}
	assert.Equal(t, 30*time.Second, p.DocumentTimeout())
}
