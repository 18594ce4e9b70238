package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/detective-go/internal/graph"
)

var (
	graphMaxDepth int
	graphDepth    int
	graphLimit    int
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Build and query the case knowledge graph",
}

var graphSyncCmd = &cobra.Command{
	Use:   "sync <case-id>",
	Short: "Rebuild the knowledge graph from the case's records",
	Long: `Rebuild the graph projection: one node per entity and document, one
"authored" edge per document with a known author. The previous
projection is wiped first; run this after changing a case's records.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := graphService().Sync(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("sync graph: %w", err)
		}
		fmt.Printf("Graph rebuilt: %d nodes, %d edges (removed %d/%d)\n",
			result.NodesCreated, result.RelationshipsCreated,
			result.NodesRemoved, result.EdgesRemoved)
		return nil
	},
}

func nodeLine(n graph.Node) string {
	return fmt.Sprintf("%s [%s] %s", n.RefID, n.SubType, n.Label)
}

var graphPathCmd = &cobra.Command{
	Use:   "path <case-id> <from-id> <to-id>",
	Short: "Shortest connection between two records",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := graphService().ShortestPath(context.Background(), args[0], args[1], args[2], graphMaxDepth)
		if err != nil {
			return fmt.Errorf("shortest path: %w", err)
		}

		if !result.Found {
			fmt.Printf("No connection within %d hops.\n", graphMaxDepth)
			return nil
		}

		fmt.Printf("Connected in %d hops:\n", result.Length)
		for i, n := range result.Nodes {
			fmt.Printf("  %s\n", nodeLine(n))
			if i < len(result.Edges) {
				fmt.Printf("    | %s\n", result.Edges[i].RelType)
			}
		}
		return nil
	},
}

var graphNeighborsCmd = &cobra.Command{
	Use:   "neighbors <case-id> <record-id>",
	Short: "Records connected to one record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := graphService().Neighbors(context.Background(), args[0], args[1], graphDepth)
		if err != nil {
			return fmt.Errorf("neighbors: %w", err)
		}

		if len(result.Nodes) == 0 {
			fmt.Println("No connected records.")
			return nil
		}

		fmt.Printf("%d records within %d hops:\n", len(result.Nodes), graphDepth)
		for _, n := range result.Nodes {
			fmt.Printf("  %s\n", nodeLine(n))
		}
		return nil
	},
}

var graphHubsCmd = &cobra.Command{
	Use:   "hubs <case-id>",
	Short: "Most connected actors in the case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hubs, err := graphService().Hubs(context.Background(), args[0], graphLimit)
		if err != nil {
			return fmt.Errorf("hubs: %w", err)
		}

		if len(hubs) == 0 {
			fmt.Println("Graph is empty. Run 'detective graph sync' first.")
			return nil
		}

		for i, h := range hubs {
			fmt.Printf("%d. %s (%d connections)\n", i+1, nodeLine(h.Node), h.Degree)
		}
		return nil
	},
}

var graphStatsCmd = &cobra.Command{
	Use:   "stats <case-id>",
	Short: "Node and edge counts of the case graph",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := graphService().GraphStats(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("graph stats: %w", err)
		}

		fmt.Printf("Nodes: %d\n", stats.Nodes)
		printBreakdown(stats.NodesByLabel)
		fmt.Printf("Edges: %d\n", stats.Edges)
		printBreakdown(stats.EdgesByLabel)
		return nil
	},
}

func printBreakdown(byLabel map[string]int) {
	labels := make([]string, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		fmt.Printf("  %-12s %d\n", label, byLabel[label])
	}
}

func init() {
	graphPathCmd.Flags().IntVar(&graphMaxDepth, "max-depth", 5, "give up beyond this many hops")
	graphNeighborsCmd.Flags().IntVar(&graphDepth, "depth", 1, "neighborhood radius in hops")
	graphHubsCmd.Flags().IntVarP(&graphLimit, "limit", "n", 10, "max hubs")

	graphCmd.AddCommand(graphSyncCmd)
	graphCmd.AddCommand(graphPathCmd)
	graphCmd.AddCommand(graphNeighborsCmd)
	graphCmd.AddCommand(graphHubsCmd)
	graphCmd.AddCommand(graphStatsCmd)
}
