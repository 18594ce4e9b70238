package agent

import (
	"fmt"

	"github.com/raphaelgruber/detective-go/internal/models"
)

// maxQuoteLen bounds the quoted evidence carried by a citation.
const maxQuoteLen = 200

// buildCitations folds the turn's tool results into one citation per
// distinct document. The first item referencing a document wins: its quote,
// its chunk, its relevance note. Order of first appearance is preserved.
func buildCitations(items []citedItem) []models.Citation {
	citations := make([]models.Citation, 0, len(items))
	seen := make(map[string]bool, len(items))

	for _, item := range items {
		if item.DocID == "" || seen[item.DocID] {
			continue
		}
		seen[item.DocID] = true

		relevance := fmt.Sprintf("Found via %s", item.Tool)
		if item.Score != nil {
			relevance = fmt.Sprintf("Found via %s with score %.2f", item.Tool, *item.Score)
		}

		citations = append(citations, models.Citation{
			DocID:     item.DocID,
			ChunkID:   item.ChunkID,
			Quote:     truncate(item.Quote, maxQuoteLen),
			Relevance: relevance,
		})
	}

	return citations
}
