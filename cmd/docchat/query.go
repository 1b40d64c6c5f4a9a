package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	queryJSON    bool
	querySources bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a single question",
	Long: `Answers one question from the indexed documents and the remembered
conversation, then records the exchange.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output the answer as JSON")
	queryCmd.Flags().BoolVar(&querySources, "sources", false, "list the retrieved chunks")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := openApp(newLogger())
	if err != nil {
		return err
	}
	defer a.Close()

	ans, err := a.RAG.Query(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		data, err := json.MarshalIndent(ans, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(ans.Text)
	if querySources && len(ans.Sources) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for i, s := range ans.Sources {
			cmd.Printf("  [%d] %s page %d (score %.3f)\n", i+1, s.Source, s.Page+1, s.Score)
		}
	}
	return nil
}
