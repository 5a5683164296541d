package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewServer_RequiresAssistant(t *testing.T) {
	_, err := NewServer(DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "docsd", cfg.Name)
	assert.Equal(t, "dev", cfg.Version)
	assert.NotNil(t, cfg.Logger)
}
