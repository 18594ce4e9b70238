// Package cli provides the command-line interface for detective.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/detective-go/internal/agent"
	"github.com/raphaelgruber/detective-go/internal/config"
	"github.com/raphaelgruber/detective-go/internal/db"
	"github.com/raphaelgruber/detective-go/internal/graph"
	"github.com/raphaelgruber/detective-go/internal/llm"
	"github.com/raphaelgruber/detective-go/internal/metrics"
	"github.com/raphaelgruber/detective-go/internal/service"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, logging and db client
	cfg        config.Config
	dbClient   *db.Client
	logCleanup func() error
	collector  = metrics.NewCollector()

	// Lazy-initialized LLM components
	embedder *llm.Embedder
	model    *llm.Model
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "detective",
	Short: "Retrieval-augmented investigation game engine",
	Long: `Detective is the engine behind an investigation game: cases hold
entities and evidence documents, evidence is chunked and embedded for
semantic search, authorship is projected into a knowledge graph, and an
AI assistant answers player questions with citations.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		}
		logger, cleanup := config.SetupLogger(cfg.LogFile, level)
		logCleanup = cleanup
		slog.SetDefault(logger)

		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, logger)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		if err := dbClient.InitSchema(ctx, cfg.EmbedDimension); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

// getEmbedder lazily initializes the embedding client. Commands that only
// read structured data never pay for provider setup.
func getEmbedder() (*llm.Embedder, error) {
	if embedder == nil {
		var err error
		embedder, err = llm.NewEmbedder(cfg)
		if err != nil {
			return nil, fmt.Errorf("init embedder: %w", err)
		}
	}
	return embedder, nil
}

func getModel(ctx context.Context) (*llm.Model, error) {
	if model == nil {
		var err error
		model, err = llm.NewModel(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("init model: %w", err)
		}
	}
	return model, nil
}

func ingestService() (*service.IngestService, error) {
	emb, err := getEmbedder()
	if err != nil {
		return nil, err
	}
	return service.NewIngestService(dbClient, emb, collector), nil
}

func searchService() (*service.SearchService, error) {
	emb, err := getEmbedder()
	if err != nil {
		return nil, err
	}
	return service.NewSearchService(dbClient, emb, collector), nil
}

func graphService() *graph.Service {
	return graph.NewService(dbClient, collector)
}

func agentService(ctx context.Context) (*agent.Service, error) {
	m, err := getModel(ctx)
	if err != nil {
		return nil, err
	}
	search, err := searchService()
	if err != nil {
		return nil, err
	}
	return agent.NewService(m, search, dbClient, dbClient, graphService(), collector, slog.Default(), agent.Options{
		MaxIterations: cfg.AgentMaxIterations,
		HintBudget:    cfg.HintBudget,
	}), nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(caseCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(wipeCmd)
}

// exitWithError prints an error message and exits with code 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
