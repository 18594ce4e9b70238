package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/raphaelgruber/detective-go/internal/service"
)

var (
	ingestNoEmbeddings bool
	ingestDocument     string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <case-id>",
	Short: "Chunk and embed a case's evidence for semantic search",
	Long: `Chunk every document of a case and store the pieces with embeddings.
Re-running replaces a document's previous chunks, so ingest is safe to
repeat after editing evidence.

Examples:
  detective ingest 0d9c1a...
  detective ingest 0d9c1a... --document 7f3b2e...
  detective ingest 0d9c1a... --no-embeddings`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestNoEmbeddings, "no-embeddings", false, "store chunks without vectors (not searchable)")
	ingestCmd.Flags().StringVar(&ingestDocument, "document", "", "ingest a single document instead of the whole case")
}

func runIngest(cmd *cobra.Command, args []string) error {
	caseID := args[0]
	ctx := context.Background()
	opts := service.IngestOptions{SkipEmbeddings: ingestNoEmbeddings}

	svc, err := ingestService()
	if err != nil {
		return err
	}

	if ingestDocument != "" {
		result, err := svc.IngestDocument(ctx, caseID, ingestDocument, opts)
		if err != nil {
			return fmt.Errorf("ingest document: %w", err)
		}
		fmt.Printf("Ingested document %s: %d chunks, %d embeddings (%d replaced)\n",
			result.DocumentID, result.ChunksCreated, result.EmbeddingsGenerated, result.ChunksDeleted)
		return nil
	}

	docs, err := dbClient.QueryListDocuments(ctx, caseID, nil)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}
	if len(docs) == 0 {
		fmt.Println("Case has no documents to ingest.")
		return nil
	}

	// Interactive progress bar on a terminal, plain service call otherwise
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return RunIngestProgress(svc, caseID, docs, opts)
	}

	result, err := svc.IngestCase(ctx, caseID, opts)
	if err != nil {
		return fmt.Errorf("ingest case: %w", err)
	}

	fmt.Printf("Ingested %d documents, %d chunks created, %d embeddings generated\n",
		result.DocumentsProcessed, result.ChunksCreated, result.EmbeddingsGenerated)
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", e)
	}
	return nil
}
