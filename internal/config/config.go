// Package config loads quizcraft settings: built-in defaults, then an
// optional YAML file, then QUIZCRAFT_* environment variables (a .env file in
// the working directory is read first).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/quizcraft/internal/llm"
	"github.com/abhisek/quizcraft/internal/personalize"
)

// Config is the full application configuration.
type Config struct {
	// DBPath is the SQLite file. Empty means store.DefaultDBPath.
	DBPath  string `yaml:"db_path"`
	LogMode string `yaml:"log_mode"`

	LLM         llm.Config               `yaml:"llm"`
	Personalize personalize.Config       `yaml:"personalize"`
	Runner      personalize.RunnerConfig `yaml:"runner"`

	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogMode:       "dev",
		LLM:           llm.DefaultConfig(),
		Personalize:   personalize.DefaultConfig(),
		Runner:        personalize.DefaultRunnerConfig(),
		SweepInterval: 10 * time.Minute,
	}
}

// Load builds the configuration. path names a YAML file; when empty,
// QUIZCRAFT_CONFIG is consulted and a missing variable means no file.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("QUIZCRAFT_CONFIG")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	discoverLLM(&cfg.LLM)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	llm.ApplyEnv(&cfg.LLM)

	if v := os.Getenv("QUIZCRAFT_DB"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("QUIZCRAFT_LOG_MODE"); v != "" {
		cfg.LogMode = v
	}
	if v := os.Getenv("QUIZCRAFT_PERSONALIZE_MODE"); v != "" {
		cfg.Personalize.Mode = personalize.Mode(v)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"QUIZCRAFT_PERSONALIZE_MAX_ATTEMPTS", &cfg.Personalize.MaxAttempts},
		{"QUIZCRAFT_RUNNER_CONCURRENCY", &cfg.Runner.Concurrency},
	}
	for _, e := range ints {
		if v := os.Getenv(e.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = n
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"QUIZCRAFT_PERSONALIZE_TIMEOUT", &cfg.Personalize.Timeout},
		{"QUIZCRAFT_RUNNER_TASK_TIMEOUT", &cfg.Runner.TaskTimeout},
		{"QUIZCRAFT_SWEEP_INTERVAL", &cfg.SweepInterval},
	}
	for _, e := range durations {
		if v := os.Getenv(e.key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = d
		}
	}
	return nil
}

// discoverLLM falls back to the vendors' standard key variables when the
// configured provider has no key of its own.
func discoverLLM(c *llm.Config) {
	if c.HasKey() {
		return
	}
	found, ok := llm.DiscoverConfig()
	if !ok {
		return
	}
	c.Provider = found.Provider
	switch found.Provider {
	case "gemini":
		c.Gemini.APIKey = found.Gemini.APIKey
	case "openai":
		c.OpenAI.APIKey = found.OpenAI.APIKey
	case "anthropic":
		c.Anthropic.APIKey = found.Anthropic.APIKey
	case "openrouter":
		c.OpenRouter.APIKey = found.OpenRouter.APIKey
	}
}

// Validate checks everything except LLM credentials, which only commands
// that generate content need (see ValidateLLM).
func (c Config) Validate() error {
	switch c.LogMode {
	case "dev", "prod":
	default:
		return fmt.Errorf("log_mode must be dev or prod, got %q", c.LogMode)
	}
	if err := c.Personalize.Validate(); err != nil {
		return fmt.Errorf("personalize: %w", err)
	}
	if c.Runner.Concurrency < 1 {
		return fmt.Errorf("runner concurrency must be at least 1, got %d", c.Runner.Concurrency)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("sweep_interval must be positive, got %s", c.SweepInterval)
	}
	return nil
}

// ValidateLLM checks the generation provider settings.
func (c Config) ValidateLLM() error {
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	return nil
}
