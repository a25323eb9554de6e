package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAboutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "about",
		Short: "Show a short description and link",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "deckforge — formatting-preserving slide-deck translation")
			fmt.Fprintln(out, "https://github.com/deckforge/deckforge")
		},
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	return cmd
}
