package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizcraft/internal/config"
	"github.com/abhisek/quizcraft/internal/llm"
	"github.com/abhisek/quizcraft/internal/logger"
	"github.com/abhisek/quizcraft/internal/personalize"
	"github.com/abhisek/quizcraft/internal/store"
)

// env bundles what a command needs: configuration, logger and the store.
type env struct {
	cfg   config.Config
	log   *logger.Logger
	store *store.Store
}

// loadConfig resolves configuration with --config, --db and --log-mode
// applied on top.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DBPath = p
	}
	if m, _ := cmd.Flags().GetString("log-mode"); m != "" {
		cfg.LogMode = m
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openEnv loads configuration and opens the store. Callers must Close it.
func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	log.Debug("database opened", "path", dbPath)
	return &env{cfg: cfg, log: log, store: st}, nil
}

// resolveDBPath returns the configured database path, falling back to
// QUIZCRAFT_DB and then the default XDG path.
func resolveDBPath(cfg config.Config) (string, error) {
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

func (e *env) Close() {
	e.store.Close()
	e.log.Sync()
}

// provider builds the generation provider with the standard middleware.
func (e *env) provider(ctx context.Context) (llm.Provider, error) {
	if err := e.cfg.ValidateLLM(); err != nil {
		return nil, fmt.Errorf("LLM provider not configured: %w", err)
	}
	return llm.NewProvider(ctx, e.cfg.LLM, e.store, e.log)
}

// personalizer builds the personalization service.
func (e *env) personalizer(ctx context.Context) (*personalize.Service, error) {
	p, err := e.provider(ctx)
	if err != nil {
		return nil, err
	}
	return personalize.NewService(e.store, p, e.cfg.Personalize, e.log), nil
}

// runner builds a background personalization runner bound to ctx.
func (e *env) runner(ctx context.Context) (*personalize.Runner, error) {
	svc, err := e.personalizer(ctx)
	if err != nil {
		return nil, err
	}
	return personalize.NewRunner(ctx, svc, e.cfg.Runner, e.log, personalize.WithObserver(func(o personalize.Outcome) {
		if o.Err == nil {
			fmt.Printf("personalized %s (%d accepted, %d kept)\n", o.Key, len(o.Report.Accepted), len(o.Report.Rejected))
		}
	})), nil
}

// studentFlags registers --student and --class on cmd.
func studentFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("student", "s", "", "Student id")
	cmd.Flags().StringP("class", "c", "", "Class id")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("class")
}
