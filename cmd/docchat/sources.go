package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List indexed documents",
	RunE:  runSources,
}

var sourcesRemoveCmd = &cobra.Command{
	Use:   "rm [source]",
	Short: "Remove a document's chunks from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesRemove,
}

func init() {
	sourcesCmd.AddCommand(sourcesRemoveCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	a, err := openApp(newLogger())
	if err != nil {
		return err
	}
	defer a.Close()

	sources, err := a.Index.Sources(cmd.Context())
	if err != nil {
		return fmt.Errorf("list sources: %w", err)
	}
	if len(sources) == 0 {
		cmd.Println("Index is empty.")
		return nil
	}
	total := 0
	for _, s := range sources {
		cmd.Printf("%6d  %s\n", s.Chunks, s.Source)
		total += s.Chunks
	}
	cmd.Printf("%6d  total in %d documents\n", total, len(sources))
	return nil
}

func runSourcesRemove(cmd *cobra.Command, args []string) error {
	a, err := openApp(newLogger())
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.Index.DeleteSource(cmd.Context(), filepath.Clean(args[0]))
	if err != nil {
		return fmt.Errorf("remove source: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s is not indexed", args[0])
	}
	cmd.Printf("Removed %d chunks of %s\n", n, args[0])
	return nil
}
