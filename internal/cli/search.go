package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/detective-go/internal/models"
	"github.com/raphaelgruber/detective-go/internal/service"
)

var (
	searchK        int
	searchTypes    []string
	searchLanguage string
	searchMinScore float64
)

var searchCmd = &cobra.Command{
	Use:   "search <case-id> <query>",
	Short: "Semantic search over a case's evidence",
	Long: `Search a case's ingested evidence by meaning, not keywords.

Examples:
  detective search 0d9c1a... "suspicious invoice amounts"
  detective search 0d9c1a... "who approved the payment" --type email,chat
  detective search 0d9c1a... "altered totals" --min-score 0.4`,
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

var similarCmd = &cobra.Command{
	Use:   "similar <case-id> <chunk-id>",
	Short: "Find evidence segments similar to a known one",
	Args:  cobra.ExactArgs(2),
	RunE:  runSimilar,
}

var similarSameDoc bool

func init() {
	searchCmd.Flags().IntVarP(&searchK, "k", "n", service.DefaultK, "max results")
	searchCmd.Flags().StringSliceVarP(&searchTypes, "type", "t", nil, "filter by document types")
	searchCmd.Flags().StringVarP(&searchLanguage, "language", "l", "", "filter by language")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "discard results below this similarity")

	similarCmd.Flags().IntVarP(&searchK, "k", "n", service.DefaultK, "max results")
	similarCmd.Flags().BoolVar(&similarSameDoc, "same-document", false, "only look within the same document")
}

func printResults(results []service.SearchResult) {
	if len(results) == 0 {
		fmt.Println("No results found.")
		return
	}

	fmt.Printf("Found %d results:\n\n", len(results))
	for i, r := range results {
		header := fmt.Sprintf("%d. [%.3f] %s", i+1, r.Score, r.DocType)
		if r.Subject != nil && *r.Subject != "" {
			header += " - " + *r.Subject
		}
		fmt.Println(header)

		text := r.Text
		if len(text) > 200 {
			text = text[:200] + "..."
		}
		fmt.Printf("   %s\n", text)
		if verbose {
			fmt.Printf("   doc=%s chunk=%s ts=%s\n", r.DocumentID, r.ChunkID, r.TS.Format("2006-01-02 15:04"))
		}
		fmt.Println()
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	caseID, query := args[0], args[1]
	ctx := context.Background()

	svc, err := searchService()
	if err != nil {
		return err
	}

	docTypes := make([]models.DocType, 0, len(searchTypes))
	for _, t := range searchTypes {
		docTypes = append(docTypes, models.DocType(t))
	}

	results, err := svc.Search(ctx, caseID, service.SearchOptions{
		Query:    query,
		K:        searchK,
		DocTypes: docTypes,
		Language: searchLanguage,
		MinScore: searchMinScore,
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	printResults(results)
	return nil
}

func runSimilar(cmd *cobra.Command, args []string) error {
	caseID, chunkID := args[0], args[1]
	ctx := context.Background()

	svc, err := searchService()
	if err != nil {
		return err
	}

	results, err := svc.SimilarTo(ctx, caseID, chunkID, searchK, similarSameDoc)
	if err != nil {
		return fmt.Errorf("similar: %w", err)
	}

	printResults(results)
	return nil
}
