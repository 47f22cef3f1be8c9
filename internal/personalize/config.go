package personalize

import (
	"fmt"
	"time"
)

// Config bounds a personalization run.
type Config struct {
	Mode Mode `yaml:"mode"`

	// MaxAttempts caps generation calls per run, malformed responses included.
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier"`

	// Timeout is the overall deadline of one run, all attempts included.
	Timeout time.Duration `yaml:"timeout"`

	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// RunnerConfig bounds asynchronous execution.
type RunnerConfig struct {
	Concurrency int           `yaml:"concurrency"`
	TaskTimeout time.Duration `yaml:"task_timeout"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Mode:           ModeLines,
		MaxAttempts:    4,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     8 * time.Second,
		Multiplier:     2,
		Timeout:        3 * time.Minute,
		MaxTokens:      8192,
	}
}

// DefaultRunnerConfig returns production defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		Concurrency: 4,
		TaskTimeout: 5 * time.Minute,
	}
}

// Validate rejects configurations that cannot run.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeLines, ModeStructured:
	default:
		return fmt.Errorf("unknown personalization mode %q", c.Mode)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	return nil
}
