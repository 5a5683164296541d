package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// maxConfigFileSize caps how large a config file may be.
const maxConfigFileSize = 1024 * 1024

// envPrefix scopes which environment variables are read.
const envPrefix = "DOCSD_"

// Load loads configuration with the following precedence, highest first:
//
//  1. Environment variables (DOCSD_STORAGE_BASE_DIR, DOCSD_LLM_MODEL, ...)
//  2. YAML config file, when configPath is non-empty
//  3. Hardcoded defaults
//
// A non-empty configPath that does not exist is an error: the user named a
// file, so running on defaults instead would hide the typo.
//
// Environment variables map to config keys by stripping the DOCSD_ prefix,
// lowercasing, and splitting on the first underscore:
//
//	DOCSD_STORAGE_BASE_DIR   -> storage.base_dir
//	DOCSD_EMBEDDINGS_MODEL   -> embeddings.model
//	DOCSD_LOGGING_LEVEL      -> logging.level
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := loadFile(k, configPath); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)
		if len(parts) == 1 {
			return lower
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFile reads and parses a YAML config file into k.
func loadFile(k *koanf.Koanf, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}
