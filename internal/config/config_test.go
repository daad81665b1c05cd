package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/anuvad/internal/llm"
)

const fullYAML = `
server:
  addr: ":8080"
  request_timeout: 45s
  shutdown_timeout: 5s

session:
  timeout: 2h
  tracking_timeout: 12h
  sweep_interval: 1m

tutor:
  generation_attempts: 3
  prior_sentences: 4

store:
  driver: postgres
  dsn: postgres://anuvad@localhost/anuvad?sslmode=disable

keepalive:
  url: https://anuvad.example.com/healthz
  interval: 14m

log:
  level: DEBUG
  format: json

llm:
  provider: openai
  model: gpt-4o
  api_key: sk-file
  base_url: http://localhost:11434/v1
  timeout: 20s
  max_attempts: 2
`

// clearEnv blanks every variable the package reads so host settings
// cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ANUVAD_ADDR", "ANUVAD_STORE_DRIVER", "ANUVAD_DB", "ANUVAD_LOG_LEVEL",
		"ANUVAD_LOG_FORMAT", "ANUVAD_KEEPALIVE_URL", "ANUVAD_LLM_PROVIDER",
		"ANUVAD_GEMINI_API_KEY", "ANUVAD_GEMINI_MODEL", "ANUVAD_OPENAI_API_KEY",
		"ANUVAD_OPENAI_MODEL", "ANUVAD_OPENAI_BASE_URL", "ANUVAD_ANTHROPIC_API_KEY",
		"ANUVAD_ANTHROPIC_MODEL", "ANUVAD_OPENROUTER_API_KEY", "ANUVAD_OPENROUTER_MODEL",
		"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestParse_FullConfig(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte(fullYAML))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 45*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 2*time.Hour, cfg.Session.Timeout)
	assert.Equal(t, 12*time.Hour, cfg.Session.TrackingTimeout)
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, 3, cfg.Tutor.GenerationAttempts)
	assert.Equal(t, 4, cfg.Tutor.PriorSentences)
	assert.Equal(t, 5, cfg.Tutor.RecentAttempts, "unset fields still get defaults")
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 14*time.Minute, cfg.KeepAlive.Interval)
	assert.Equal(t, "debug", cfg.Log.Level, "level is normalised to lower case")
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse(nil)
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 6*time.Hour, cfg.Session.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Session.TrackingTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, 5, cfg.Tutor.GenerationAttempts)
	assert.Equal(t, 10, cfg.Tutor.PriorSentences)
	assert.Equal(t, 20, cfg.Tutor.HistoryTurns)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Empty(t, cfg.Store.DSN)
	assert.Empty(t, cfg.KeepAlive.URL)
	assert.Equal(t, 10*time.Minute, cfg.KeepAlive.Interval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	assert.Equal(t, cfg, Default())
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANUVAD_ADDR", ":9000")
	t.Setenv("ANUVAD_STORE_DRIVER", "sqlite")
	t.Setenv("ANUVAD_DB", "/tmp/anuvad-test.db")
	t.Setenv("ANUVAD_LOG_LEVEL", "warn")
	t.Setenv("ANUVAD_KEEPALIVE_URL", "http://localhost:9000/")

	cfg, err := Parse([]byte(fullYAML))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/anuvad-test.db", cfg.Store.DSN)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "http://localhost:9000/", cfg.KeepAlive.URL)
}

func TestValidationCollectsAllErrors(t *testing.T) {
	clearEnv(t)

	_, err := Parse([]byte(`
store:
  driver: postgres
log:
  level: loud
  format: xml
session:
  timeout: -1s
`))
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "store.dsn is required")
	assert.Contains(t, msg, `log.level "loud"`)
	assert.Contains(t, msg, `log.format "xml"`)
	assert.Contains(t, msg, "session.timeout must not be negative")
}

func TestUnknownStoreDriver(t *testing.T) {
	clearEnv(t)
	_, err := Parse([]byte("store:\n  driver: mysql\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver "mysql"`)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: [unterminated"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: parse")
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "anuvad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  addr: \":7000\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.Server.Addr)
}

func TestLLMModelConfig_FromFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Parse([]byte(fullYAML))
	require.NoError(t, err)

	lc := cfg.LLMModelConfig()
	assert.Equal(t, llm.ProviderOpenAI, lc.Provider)
	assert.Equal(t, "gpt-4o", lc.OpenAI.Model)
	assert.Equal(t, "sk-file", lc.OpenAI.APIKey)
	assert.Equal(t, "http://localhost:11434/v1", lc.OpenAI.BaseURL)
	assert.Equal(t, 20*time.Second, lc.Timeout)
	assert.Equal(t, 2, lc.Retry.MaxAttempts)
	assert.NoError(t, lc.Validate())
}

func TestLLMModelConfig_Discovery(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	lc := Default().LLMModelConfig()
	assert.Equal(t, llm.ProviderAnthropic, lc.Provider)
	assert.Equal(t, "sk-ant", lc.Anthropic.APIKey)
	assert.Equal(t, 3, lc.Retry.MaxAttempts)
}

func TestLLMModelConfig_EnvWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANUVAD_LLM_PROVIDER", "gemini")
	t.Setenv("ANUVAD_GEMINI_API_KEY", "g-env")
	t.Setenv("ANUVAD_GEMINI_MODEL", "gemini-pro")

	cfg, err := Parse([]byte(fullYAML))
	require.NoError(t, err)

	lc := cfg.LLMModelConfig()
	assert.Equal(t, llm.ProviderGemini, lc.Provider)
	assert.Equal(t, "g-env", lc.Gemini.APIKey)
	assert.Equal(t, "gemini-pro", lc.Gemini.Model)
}

func TestLLMModelConfig_NoKey(t *testing.T) {
	clearEnv(t)

	lc := Default().LLMModelConfig()
	assert.Equal(t, llm.ProviderGemini, lc.Provider)
	assert.False(t, lc.HasKey())
	assert.Error(t, lc.Validate())
}
