// Package main implements the docsd CLI: a documentation QA assistant that
// indexes markdown documentation per category and answers questions through
// a sub-question router, either directly or over MCP stdio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/docsd/internal/assistant"
	"github.com/fyrsmithlabs/docsd/internal/config"
	"github.com/fyrsmithlabs/docsd/internal/docs"
	"github.com/fyrsmithlabs/docsd/internal/embeddings"
	"github.com/fyrsmithlabs/docsd/internal/index"
	"github.com/fyrsmithlabs/docsd/internal/logging"
)

var (
	// configPath is the YAML config file; empty means defaults plus env.
	configPath string
	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docsd",
	Short: "Documentation QA assistant",
	Long: `docsd indexes markdown documentation into per-category vector indexes
and answers questions by decomposing them into per-category sub-questions.

Indexes persist across runs; a category is only re-embedded when its
snapshot is missing or no longer matches the configured embedding model.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(reindexCmd)
	rootCmd.AddCommand(serveCmd)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// loadConfigOnly loads configuration without touching models or storage,
// for commands that only inspect the setup.
func loadConfigOnly() (*config.Config, error) {
	return config.Load(configPath)
}

// bootstrap loads config and assembles the assistant's dependencies.
// The returned cleanup releases the embedding provider and flushes logs.
func bootstrap() (*config.Config, assistant.Dependencies, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, assistant.Dependencies{}, nil, err
	}

	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		return nil, assistant.Dependencies{}, nil, fmt.Errorf("initializing logger: %w", err)
	}

	registry, err := cfg.Registry()
	if err != nil {
		return nil, assistant.Dependencies{}, nil, err
	}

	embedder, err := embeddings.NewProvider(cfg.Embeddings)
	if err != nil {
		return nil, assistant.Dependencies{}, nil, fmt.Errorf("initializing embeddings: %w", err)
	}

	manager, err := index.NewManager(cfg.Storage, embedder, logger)
	if err != nil {
		embedder.Close()
		return nil, assistant.Dependencies{}, nil, err
	}

	llmOpts := []openai.Option{openai.WithModel(cfg.LLM.Model)}
	if cfg.LLM.APIKey != "" {
		llmOpts = append(llmOpts, openai.WithToken(cfg.LLM.APIKey))
	}
	llm, err := openai.New(llmOpts...)
	if err != nil {
		embedder.Close()
		return nil, assistant.Dependencies{}, nil, fmt.Errorf("initializing LLM: %w", err)
	}

	deps := assistant.Dependencies{
		Registry:     registry,
		Loader:       docs.NewLoader(logger),
		Indexes:      manager,
		LLM:          llm,
		ToolConfig:   cfg.Tools,
		RouterConfig: cfg.Router,
		Logger:       logger,
	}
	cleanup := func() {
		if err := embedder.Close(); err != nil {
			logger.Warn("closing embedder", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return cfg, deps, cleanup, nil
}
