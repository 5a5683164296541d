package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRootCommandWiring(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "ask")
	assert.Contains(t, names, "tools")
	assert.Contains(t, names, "reindex")
	assert.Contains(t, names, "serve")
}

func TestAskCommandFlags(t *testing.T) {
	assert.NotNil(t, askCmd.Flags().Lookup("stream"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}
