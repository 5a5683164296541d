package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docsd/internal/assistant"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Discard persisted indexes and rebuild them from source documents",
	Long: `Reindex removes every category's persisted snapshot and re-embeds all
source documents. Use after editing documentation or switching the
embedding model.`,
	RunE: runReindex,
}

func runReindex(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	_, deps, cleanup, err := bootstrap()
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := assistant.Reindex(ctx, deps)
	if err != nil {
		return err
	}

	for _, cat := range a.Registry().Categories() {
		ix, _ := a.Index(cat.Key())
		fmt.Fprintf(os.Stdout, "%s: %d sections\n", cat.Name, ix.Len())
	}
	return nil
}
