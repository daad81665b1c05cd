// Package config loads the anuvad server configuration from an optional
// YAML file with ANUVAD_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/anuvad/internal/llm"
)

// Config is the top-level configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Session   SessionConfig   `yaml:"session"`
	Tutor     TutorConfig     `yaml:"tutor"`
	Store     StoreConfig     `yaml:"store"`
	KeepAlive KeepAliveConfig `yaml:"keepalive"`
	Log       LogConfig       `yaml:"log"`
	LLM       LLMConfig       `yaml:"llm"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SessionConfig holds the expiry windows and the janitor cadence.
type SessionConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	TrackingTimeout time.Duration `yaml:"tracking_timeout"`
	SweepInterval   time.Duration `yaml:"sweep_interval"`
}

type TutorConfig struct {
	GenerationAttempts int `yaml:"generation_attempts"`
	PriorSentences     int `yaml:"prior_sentences"`
	RecentAttempts     int `yaml:"recent_attempts"`
	HistoryTurns       int `yaml:"history_turns"`
}

// StoreConfig selects the audit log database. An empty DSN with the sqlite
// driver means the default data path.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// KeepAliveConfig enables the self ping when URL is set.
type KeepAliveConfig struct {
	URL      string        `yaml:"url"`
	Interval time.Duration `yaml:"interval"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// LLMConfig is the file view of the model backend. Anything left empty
// falls back to key discovery and llm defaults.
type LLMConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// Default returns the configuration used with no file and no environment.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file from path and returns a validated Config.
// An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes, applies environment overrides and defaults,
// and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ANUVAD_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("ANUVAD_STORE_DRIVER"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("ANUVAD_DB"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("ANUVAD_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("ANUVAD_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("ANUVAD_KEEPALIVE_URL"); v != "" {
		c.KeepAlive.URL = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":5000"
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if c.Session.Timeout == 0 {
		c.Session.Timeout = 6 * time.Hour
	}
	if c.Session.TrackingTimeout == 0 {
		c.Session.TrackingTimeout = 24 * time.Hour
	}
	if c.Session.SweepInterval == 0 {
		c.Session.SweepInterval = 5 * time.Minute
	}

	if c.Tutor.GenerationAttempts == 0 {
		c.Tutor.GenerationAttempts = 5
	}
	if c.Tutor.PriorSentences == 0 {
		c.Tutor.PriorSentences = 10
	}
	if c.Tutor.RecentAttempts == 0 {
		c.Tutor.RecentAttempts = 5
	}
	if c.Tutor.HistoryTurns == 0 {
		c.Tutor.HistoryTurns = 20
	}

	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.KeepAlive.Interval == 0 {
		c.KeepAlive.Interval = 10 * time.Minute
	}

	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Format = strings.ToLower(c.Log.Format)
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// validate collects every problem instead of stopping at the first.
func (c *Config) validate() error {
	var errs []error
	nonNegative := func(name string, d time.Duration) {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	nonNegative("server.request_timeout", c.Server.RequestTimeout)
	nonNegative("server.shutdown_timeout", c.Server.ShutdownTimeout)
	nonNegative("session.timeout", c.Session.Timeout)
	nonNegative("session.tracking_timeout", c.Session.TrackingTimeout)
	nonNegative("session.sweep_interval", c.Session.SweepInterval)
	nonNegative("keepalive.interval", c.KeepAlive.Interval)
	nonNegative("llm.timeout", c.LLM.Timeout)

	if c.Tutor.GenerationAttempts < 1 {
		errs = append(errs, errors.New("tutor.generation_attempts must be at least 1"))
	}

	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of sqlite, postgres", c.Store.Driver))
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: validation failed: %w", err)
	}
	return nil
}

// LLMModelConfig merges the file's llm section over key discovery and
// defaults, then applies the ANUVAD_* model variables on top.
func (c *Config) LLMModelConfig() llm.Config {
	cfg, ok := llm.DiscoverConfig()
	if !ok {
		cfg = llm.DefaultConfig()
	}

	f := c.LLM
	if f.Provider != "" {
		cfg.Provider = f.Provider
	}
	switch cfg.Provider {
	case llm.ProviderGemini:
		setIf(&cfg.Gemini.Model, f.Model)
		setIf(&cfg.Gemini.APIKey, f.APIKey)
	case llm.ProviderOpenAI:
		setIf(&cfg.OpenAI.Model, f.Model)
		setIf(&cfg.OpenAI.APIKey, f.APIKey)
		setIf(&cfg.OpenAI.BaseURL, f.BaseURL)
	case llm.ProviderAnthropic:
		setIf(&cfg.Anthropic.Model, f.Model)
		setIf(&cfg.Anthropic.APIKey, f.APIKey)
	case llm.ProviderOpenRouter:
		setIf(&cfg.OpenRouter.Model, f.Model)
		setIf(&cfg.OpenRouter.APIKey, f.APIKey)
	}
	if f.Timeout > 0 {
		cfg.Timeout = f.Timeout
	}
	if f.MaxAttempts > 0 {
		cfg.Retry.MaxAttempts = f.MaxAttempts
	}

	llm.ApplyEnv(&cfg)
	return cfg
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
