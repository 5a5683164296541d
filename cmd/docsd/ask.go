package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/docsd/internal/assistant"
)

var askStream bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question against the indexed documentation",
	Long: `Ask answers a question by routing it across every documentation category.

Examples:
  # Ask with the complete answer printed at once
  docsd ask "how do I define a custom data loader?"

  # Stream the answer as it is generated
  docsd ask --stream "how do agents use tools?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askStream, "stream", false, "stream the answer as it is generated")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

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

	if askStream {
		stream, err := a.AskStream(ctx, question)
		if err != nil {
			return err
		}
		for f := range stream {
			if f.Err != nil {
				fmt.Fprintln(os.Stdout)
				return f.Err
			}
			fmt.Fprint(os.Stdout, f.Text)
		}
		fmt.Fprintln(os.Stdout)
		return nil
	}

	resp, err := a.Ask(ctx, question)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, resp.Text)

	if len(resp.SubAnswers) > 0 {
		fmt.Fprintln(os.Stdout, "\nSources:")
		for _, sa := range resp.SubAnswers {
			for _, c := range sa.Citations {
				if c.HeaderPath != "" {
					fmt.Fprintf(os.Stdout, "  %s (%s)\n", c.FileName, c.HeaderPath)
				} else {
					fmt.Fprintf(os.Stdout, "  %s\n", c.FileName)
				}
			}
		}
	}
	return nil
}
