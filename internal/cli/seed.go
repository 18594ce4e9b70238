package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/raphaelgruber/detective-go/internal/models"
)

// caseFixture is the YAML shape of a seedable case. Documents reference
// their author by entity key, not by id, so fixtures stay portable.
type caseFixture struct {
	Title      string            `yaml:"title"`
	Scenario   string            `yaml:"scenario"`
	Difficulty int               `yaml:"difficulty"`
	Briefing   string            `yaml:"briefing"`
	Language   string            `yaml:"language"`
	Entities   []entityFixture   `yaml:"entities"`
	Documents  []documentFixture `yaml:"documents"`
}

type entityFixture struct {
	Key   string         `yaml:"key"`
	Type  string         `yaml:"type"`
	Name  string         `yaml:"name"`
	Attrs map[string]any `yaml:"attrs"`
}

type documentFixture struct {
	Type    string    `yaml:"type"`
	TS      time.Time `yaml:"ts"`
	Author  string    `yaml:"author"`
	Subject string    `yaml:"subject"`
	Body    string    `yaml:"body"`
}

func loadFixture(path string) (*caseFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var fixture caseFixture
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}

	if fixture.Title == "" {
		return nil, fmt.Errorf("fixture has no title")
	}
	if fixture.Language == "" {
		fixture.Language = "en"
	}

	keys := make(map[string]bool, len(fixture.Entities))
	for _, e := range fixture.Entities {
		if e.Key == "" || e.Name == "" {
			return nil, fmt.Errorf("entity needs both key and name")
		}
		if keys[e.Key] {
			return nil, fmt.Errorf("duplicate entity key %q", e.Key)
		}
		keys[e.Key] = true
	}
	for i, d := range fixture.Documents {
		if d.Body == "" {
			return nil, fmt.Errorf("document %d has no body", i)
		}
		if d.Author != "" && !keys[d.Author] {
			return nil, fmt.Errorf("document %d references unknown author %q", i, d.Author)
		}
	}

	return &fixture, nil
}

// seedFixture writes a fixture into the database and returns the case id.
func seedFixture(ctx context.Context, fixture *caseFixture) (string, error) {
	c, err := dbClient.QueryCreateCase(ctx, models.CaseInput{
		Title:      fixture.Title,
		Scenario:   models.ScenarioType(fixture.Scenario),
		Difficulty: fixture.Difficulty,
		Briefing:   fixture.Briefing,
		Language:   fixture.Language,
	})
	if err != nil {
		return "", fmt.Errorf("create case: %w", err)
	}
	caseID := models.MustRecordIDString(c.ID)

	entityIDs := make(map[string]string, len(fixture.Entities))
	for _, e := range fixture.Entities {
		created, err := dbClient.QueryCreateEntity(ctx, models.EntityInput{
			CaseID: caseID,
			Type:   models.EntityType(e.Type),
			Name:   e.Name,
			Attrs:  e.Attrs,
		})
		if err != nil {
			return "", fmt.Errorf("create entity %q: %w", e.Key, err)
		}
		entityIDs[e.Key] = models.MustRecordIDString(created.ID)
	}

	for i, d := range fixture.Documents {
		input := models.DocumentInput{
			CaseID:   caseID,
			Type:     models.DocType(d.Type),
			TS:       d.TS,
			Body:     d.Body,
			Language: fixture.Language,
		}
		if d.Subject != "" {
			subject := d.Subject
			input.Subject = &subject
		}
		if d.Author != "" {
			authorID := entityIDs[d.Author]
			input.AuthorID = &authorID
		}
		if _, err := dbClient.QueryCreateDocument(ctx, input); err != nil {
			return "", fmt.Errorf("create document %d: %w", i, err)
		}
	}

	return caseID, nil
}

var seedCmd = &cobra.Command{
	Use:   "seed <fixture.yaml>",
	Short: "Load a case fixture into the database",
	Long: `Load a YAML case fixture: the case record, its entities and its
documents. Run 'detective ingest' afterwards to make the evidence
searchable and 'detective graph sync' to build the knowledge graph.

Example:
  detective seed fixtures/phantom_vendor.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		fixture, err := loadFixture(args[0])
		if err != nil {
			return err
		}

		caseID, err := seedFixture(ctx, fixture)
		if err != nil {
			return err
		}

		fmt.Printf("Seeded case %s (%d entities, %d documents)\n",
			caseID, len(fixture.Entities), len(fixture.Documents))
		fmt.Printf("Next: detective ingest %s && detective graph sync %s\n", caseID, caseID)
		return nil
	},
}
