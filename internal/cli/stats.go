package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/detective-go/internal/metrics"
)

var statsCmd = &cobra.Command{
	Use:   "stats <case-id>",
	Short: "Show what a case holds and how the engine performed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		counts, err := dbClient.QueryCaseCounts(ctx, args[0])
		if err != nil {
			return fmt.Errorf("case counts: %w", err)
		}

		fmt.Println("Case contents:")
		fmt.Printf("  Entities:  %d\n", counts.Entities)
		fmt.Printf("  Documents: %d\n", counts.Documents)
		fmt.Printf("  Chunks:    %d (%d embedded)\n", counts.Chunks, counts.Embedded)

		stats, err := graphService().GraphStats(ctx, args[0])
		if err != nil {
			return fmt.Errorf("graph stats: %w", err)
		}
		fmt.Printf("\nGraph: %d nodes, %d edges\n", stats.Nodes, stats.Edges)

		printMetrics(collector.Snapshot())
		return nil
	},
}

func printMetrics(snap metrics.Snapshot) {
	rows := []struct {
		name string
		op   *metrics.OperationSnapshot
	}{
		{"embedding", snap.Embedding},
		{"llm", snap.LLMGenerate},
		{"ingest", snap.Ingest},
		{"search", snap.Search},
		{"graph sync", snap.GraphSync},
		{"agent tool", snap.AgentTool},
	}

	printed := false
	for _, row := range rows {
		if row.op == nil {
			continue
		}
		if !printed {
			fmt.Println("\nThis run:")
			printed = true
		}
		fmt.Printf("  %-11s %d calls, avg %.0fms (min %dms, max %dms)\n",
			row.name, row.op.Count, row.op.AvgTimeMs, row.op.MinTimeMs, row.op.MaxTimeMs)
	}
}
