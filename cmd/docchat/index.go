package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docchat/internal/indexer"
)

var (
	indexSource string
	indexReset  bool
)

var indexCmd = &cobra.Command{
	Use:   "index [files...]",
	Short: "Index documents into the vector store",
	Long: `Loads every supported document under the source directory (or only the
given files), splits it into chunks and adds the chunks that are not
indexed yet. Re-running on unchanged documents adds nothing.`,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexSource, "source", "s", "", "directory to index (default DATA_DIR)")
	indexCmd.Flags().BoolVar(&indexReset, "reset", false, "clear the whole index before indexing")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := openApp(newLogger())
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := indexer.Options{Files: args, Reset: indexReset}
	if len(args) == 0 {
		opts.SourceDir = indexSource
		if opts.SourceDir == "" {
			opts.SourceDir = a.Config.DataDir
		}
	}

	rep, err := a.Indexer.Run(ctx, opts, &progressPrinter{w: cmd.OutOrStdout(), chunkSize: a.Config.ChunkSize})
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	cmd.Println()
	cmd.Printf("Documents: %d\n", rep.Documents)
	cmd.Printf("Chunks:    %d (~%d tokens)\n", rep.Chunks, rep.Tokens)
	cmd.Printf("Existing:  %d\n", rep.Existing)
	if rep.Duplicates > 0 {
		cmd.Printf("Duplicate: %d\n", rep.Duplicates)
	}
	if rep.Added == 0 {
		cmd.Println("No new documents to add.")
	} else {
		cmd.Printf("Added:     %d in %d batches\n", rep.Added, rep.Batches)
	}
	cmd.Printf("Took %s\n", rep.Duration.Round(time.Millisecond))
	return nil
}

// progressPrinter reports indexing progress on the terminal.
type progressPrinter struct {
	w         io.Writer
	chunkSize int
}

func (p *progressPrinter) EnterPhase(name string) {
	if name == indexer.PhaseResetting {
		fmt.Fprintln(p.w, "Clearing index...")
	}
}

func (p *progressPrinter) Loaded(documents int) {
	fmt.Fprintf(p.w, "Loaded %d documents\n", documents)
}

func (p *progressPrinter) Chunked(chunks int) {
	fmt.Fprintf(p.w, "Split into %d chunks (chunk size %d)\n", chunks, p.chunkSize)
}

func (p *progressPrinter) Planned(fresh, batches int) {
	if fresh > 0 {
		fmt.Fprintf(p.w, "Adding %d new chunks in %d batches\n", fresh, batches)
	}
}

func (p *progressPrinter) Batch(done, total, committed int) {
	fmt.Fprintf(p.w, "  batch %d/%d (%d chunks)\n", done, total, committed)
}
