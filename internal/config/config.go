// Package config provides configuration loading for docsd.
//
// Configuration comes from a YAML file overridden by environment variables,
// with hardcoded defaults covering the standard documentation layout.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/fyrsmithlabs/docsd/internal/category"
	"github.com/fyrsmithlabs/docsd/internal/embeddings"
	"github.com/fyrsmithlabs/docsd/internal/index"
	"github.com/fyrsmithlabs/docsd/internal/logging"
	"github.com/fyrsmithlabs/docsd/internal/router"
	"github.com/fyrsmithlabs/docsd/internal/tools"
)

// CategoryConfig declares one documentation category.
type CategoryConfig struct {
	Name        string `koanf:"name"`
	Path        string `koanf:"path"`
	Description string `koanf:"description"`
}

// LLMConfig holds language model configuration for routing and synthesis.
type LLMConfig struct {
	// Model is the chat model used for decomposition and synthesis.
	Model string `koanf:"model"`

	// APIKey authenticates against the API. Falls back to OPENAI_API_KEY.
	APIKey string `koanf:"api_key"`
}

// Config holds the complete docsd configuration.
type Config struct {
	Categories []CategoryConfig          `koanf:"categories"`
	Storage    index.Config              `koanf:"storage"`
	Embeddings embeddings.ProviderConfig `koanf:"embeddings"`
	LLM        LLMConfig                 `koanf:"llm"`
	Tools      tools.Config              `koanf:"tools"`
	Router     router.Config             `koanf:"router"`
	Logging    logging.Config            `koanf:"logging"`
}

// DefaultDocsRoot is where category sources live when not configured.
const DefaultDocsRoot = "docs"

// defaultCategories mirrors the standard documentation layout.
func defaultCategories() []CategoryConfig {
	join := func(parts ...string) string {
		return filepath.Join(append([]string{DefaultDocsRoot}, parts...)...)
	}
	return []CategoryConfig{
		{
			Name:        "Getting Started",
			Path:        join("getting_started"),
			Description: "Useful for answering questions about installing and running the project, as well as basic explanations of how it works.",
		},
		{
			Name:        "Community",
			Path:        join("community"),
			Description: "Useful for answering questions about integrations and other apps built by the community.",
		},
		{
			Name:        "Data Modules",
			Path:        join("core_modules", "data_modules"),
			Description: "Useful for answering questions about data loaders, documents, nodes, and index structures.",
		},
		{
			Name:        "Agent Modules",
			Path:        join("core_modules", "agent_modules"),
			Description: "Useful for answering questions about data agents, agent configurations, and tools.",
		},
		{
			Name:        "Model Modules",
			Path:        join("core_modules", "model_modules"),
			Description: "Useful for answering questions about using and configuring LLMs, embedding models, and prompts.",
		},
		{
			Name:        "Query Modules",
			Path:        join("core_modules", "query_modules"),
			Description: "Useful for answering questions about query engines, query configurations, and using various parts of the query engine pipeline.",
		},
		{
			Name:        "Supporting Modules",
			Path:        join("core_modules", "supporting_modules"),
			Description: "Useful for answering questions about supporting modules, such as callbacks, service context, and evaluation.",
		},
		{
			Name:        "Tutorials",
			Path:        join("end_to_end_tutorials"),
			Description: "Useful for answering questions about end-to-end tutorials and giving examples of specific use-cases.",
		},
		{
			Name:        "Contributing",
			Path:        join("development"),
			Description: "Useful for answering questions about contributing to the project, including how to contribute to the codebase and how to build documentation.",
		},
	}
}

// defaultLLMModel is used when no chat model is configured.
const defaultLLMModel = "gpt-3.5-turbo"

// applyDefaults fills in anything the file and environment left unset.
func applyDefaults(cfg *Config) {
	if len(cfg.Categories) == 0 {
		cfg.Categories = defaultCategories()
	}
	if cfg.Storage.BaseDir == "" {
		cfg.Storage.BaseDir = index.NewDefaultConfig().BaseDir
	}
	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "fastembed"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaultLLMModel
	}
	if cfg.Logging.Level == "" || cfg.Logging.Format == "" {
		defaults := logging.NewDefaultConfig()
		if cfg.Logging.Level == "" {
			cfg.Logging.Level = defaults.Level
		}
		if cfg.Logging.Format == "" {
			cfg.Logging.Format = defaults.Format
		}
		if cfg.Logging.Fields == nil {
			cfg.Logging.Fields = defaults.Fields
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}
	if _, err := c.Registry(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// Registry builds the ordered category registry from the configuration.
// Order follows the configuration file.
func (c *Config) Registry() (*category.Registry, error) {
	cats := make([]category.Category, len(c.Categories))
	for i, cc := range c.Categories {
		cats[i] = category.Category{
			Name:        cc.Name,
			Path:        cc.Path,
			Description: cc.Description,
		}
	}
	return category.NewRegistry(cats)
}
