package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docsd/internal/assistant"
	"github.com/fyrsmithlabs/docsd/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the assistant over MCP stdio",
	Long: `Serve brings up every category index and exposes the assistant over the
Model Context Protocol on stdin/stdout: an ask_docs tool routed across all
categories, one search tool per category, and list_categories.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	_, deps, cleanup, err := bootstrap()
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := assistant.New(ctx, deps)
	if err != nil {
		return err
	}

	srv, err := mcp.NewServer(&mcp.Config{
		Name:    "docsd",
		Version: version,
		Logger:  deps.Logger,
	}, a)
	if err != nil {
		return err
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
