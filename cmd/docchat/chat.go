package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dgallion1/docchat/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	// Log lines would tear the full-screen UI.
	log := slog.New(slog.DiscardHandler)
	if verbose {
		f, err := os.OpenFile("docchat.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		log = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	a, err := openApp(log)
	if err != nil {
		return err
	}
	defer a.Close()

	m := tui.New(cmd.Context(), a.RAG)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
