package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/detective-go/internal/models"
)

var (
	caseScenario   string
	caseDifficulty int
	caseBriefing   string
	caseLanguage   string
)

var caseCmd = &cobra.Command{
	Use:   "case",
	Short: "Manage investigation cases",
}

var caseCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new case",
	Long: `Create a new investigation case.

Examples:
  detective case create "The Phantom Vendor" --scenario vendor_fraud --difficulty 3
  detective case create "Der Maulwurf" --scenario data_leak --language de`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		c, err := dbClient.QueryCreateCase(ctx, models.CaseInput{
			Title:      args[0],
			Scenario:   models.ScenarioType(caseScenario),
			Difficulty: caseDifficulty,
			Briefing:   caseBriefing,
			Language:   caseLanguage,
		})
		if err != nil {
			return fmt.Errorf("create case: %w", err)
		}

		fmt.Printf("Created case %s\n", models.MustRecordIDString(c.ID))
		return nil
	},
}

var caseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all cases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cases, err := dbClient.QueryListCases(context.Background())
		if err != nil {
			return fmt.Errorf("list cases: %w", err)
		}

		if len(cases) == 0 {
			fmt.Println("No cases yet. Create one with 'detective case create' or 'detective seed'.")
			return nil
		}

		for _, c := range cases {
			fmt.Printf("%s  %s [%s, difficulty %d/5, %s]\n",
				models.MustRecordIDString(c.ID), c.Title, c.Scenario, c.Difficulty, c.Language)
			if verbose && c.Briefing != "" {
				fmt.Printf("    %s\n", c.Briefing)
			}
		}
		return nil
	},
}

var caseDeleteCmd = &cobra.Command{
	Use:   "delete <case-id>",
	Short: "Delete a case and all its evidence",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := dbClient.QueryDeleteCase(context.Background(), args[0]); err != nil {
			return fmt.Errorf("delete case: %w", err)
		}
		fmt.Printf("Deleted case %s\n", args[0])
		return nil
	},
}

var caseShowCmd = &cobra.Command{
	Use:   "show <case-id>",
	Short: "Show a case briefing and its contents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		c, err := dbClient.QueryGetCase(ctx, args[0])
		if err != nil {
			return fmt.Errorf("get case: %w", err)
		}
		counts, err := dbClient.QueryCaseCounts(ctx, args[0])
		if err != nil {
			return fmt.Errorf("count case contents: %w", err)
		}

		fmt.Printf("%s [%s, difficulty %d/5, %s]\n\n", c.Title, c.Scenario, c.Difficulty, c.Language)
		fmt.Println(c.Briefing)
		fmt.Printf("\nEntities: %d  Documents: %d  Chunks: %d (%d embedded)\n",
			counts.Entities, counts.Documents, counts.Chunks, counts.Embedded)
		return nil
	},
}

func init() {
	caseCreateCmd.Flags().StringVar(&caseScenario, "scenario", string(models.ScenarioVendorFraud), "scenario type")
	caseCreateCmd.Flags().IntVar(&caseDifficulty, "difficulty", 2, "difficulty from 1 to 5")
	caseCreateCmd.Flags().StringVar(&caseBriefing, "briefing", "", "briefing text shown to the player")
	caseCreateCmd.Flags().StringVar(&caseLanguage, "language", "en", "case language")

	caseCmd.AddCommand(caseCreateCmd)
	caseCmd.AddCommand(caseListCmd)
	caseCmd.AddCommand(caseDeleteCmd)
	caseCmd.AddCommand(caseShowCmd)
}
