package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"grantwright/internal/ingest"
)

var (
	ingestGrantID   string
	ingestChunkSize int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a text document into a grant's context corpus",
	Long: `Reads a text or markdown file, splits it into sentence-boundary chunks,
embeds each chunk, and stores the document and embedding rows. Once ingested,
the content is retrievable as generation context for the grant.

Example:
  grantwright ingest annual_report.md --grant 4f1c...`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestGrantID, "grant", "", "Grant id to scope the document to")
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 0, "Maximum chunk size in bytes (default 8000)")
	ingestCmd.MarkFlagRequired("grant")
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := newApp("")
	if err != nil {
		return err
	}
	defer a.Close()

	path := args[0]
	logger.Info("ingesting document", zap.String("file", path), zap.String("grant", ingestGrantID))

	in := ingest.New(a.store, a.embedder, ingestChunkSize)
	docID, chunks, err := in.IngestFile(cmd.Context(), path, ingestGrantID)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Ingested %s\n", path)
	fmt.Printf("Document id: %s\n", docID)
	fmt.Printf("Chunks stored: %d\n", chunks)
	return nil
}
