package main

import (
	"fmt"
	"os"

	"github.com/deckforge/deckforge/internal/glossary"
	"github.com/deckforge/deckforge/internal/pipeline"
	"github.com/spf13/cobra"
)

func newGlossaryCmd() *cobra.Command {
	var path, format string
	cmd := &cobra.Command{
		Use:   "glossary <path>",
		Short: "Print the entries a glossary file compiles to",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return fmt.Errorf("a glossary path is required")
			}
			return runGlossaryShow(cmd, path, format)
		},
		SilenceUsage: true,
	}
	cmd.SetUsageTemplate(subcommandUsageTemplate)
	cmd.Flags().StringVar(&format, "format", "json", "Glossary file format (json, yaml, csv)")
	return cmd
}

func runGlossaryShow(cmd *cobra.Command, path, format string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening glossary: %w", err)
	}
	defer f.Close()

	gl, err := glossary.Load(f, glossary.Format(format))
	if err != nil {
		return err
	}

	mgr := pipeline.NewManager(gl, nil)
	entries := mgr.GlossaryEntries()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d glossary entries:\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(out, "  %-30s -> %-30s (priority=%d, case_sensitive=%v)\n", e.Source, e.Target, e.Priority, e.CaseSensitive)
	}
	return nil
}
