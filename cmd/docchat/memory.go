package main

import (
	"github.com/spf13/cobra"

	"github.com/dgallion1/docchat/internal/memory"
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect or clear the chat memory",
}

var memoryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the remembered conversation",
	RunE:  runMemoryShow,
}

var memoryClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the conversation and start over",
	RunE:  runMemoryClear,
}

func init() {
	memoryCmd.AddCommand(memoryShowCmd, memoryClearCmd)
	rootCmd.AddCommand(memoryCmd)
}

func runMemoryShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(newLogger())
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.Memory.Session(cmd.Context())
	if s.Timestamp.IsZero() || len(s.Entries) == 0 {
		cmd.Println("No saved conversation.")
		return nil
	}
	cmd.Printf("Saved %s (%d exchanges)\n\n", s.Timestamp.Format(memory.TimestampLayout), len(s.Entries))
	for _, e := range s.Entries {
		cmd.Printf("You: %s\nBot: %s\n\n", e.User, e.Bot)
	}
	return nil
}

func runMemoryClear(cmd *cobra.Command, args []string) error {
	a, err := openApp(newLogger())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.RAG.ResetMemory(cmd.Context()); err != nil {
		return err
	}
	cmd.Println("Chat memory cleared.")
	return nil
}
