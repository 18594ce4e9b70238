// Package db provides SurrealDB query functions for investigation cases.
package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"

	"github.com/raphaelgruber/detective-go/internal/models"
)

// QueryCreateCase creates a new case with a generated ID.
func (c *Client) QueryCreateCase(ctx context.Context, in models.CaseInput) (*models.Case, error) {
	sql := `
		CREATE type::record("case", $id) CONTENT {
			title: $title,
			scenario: $scenario,
			difficulty: $difficulty,
			briefing: $briefing,
			language: $language
		} RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Case](ctx, c.db, sql, map[string]any{
		"id":         uuid.New().String(),
		"title":      in.Title,
		"scenario":   string(in.Scenario),
		"difficulty": in.Difficulty,
		"briefing":   in.Briefing,
		"language":   in.Language,
	})
	if err != nil {
		return nil, fmt.Errorf("create case: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create case: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// QueryGetCase retrieves a case by ID. Returns ErrNotFound if it doesn't exist.
func (c *Client) QueryGetCase(ctx context.Context, id string) (*models.Case, error) {
	results, err := surrealdb.Query[[]models.Case](ctx, c.db, `
		SELECT * FROM type::record("case", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get case: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("get case %q: %w", id, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// QueryListCases returns all cases ordered by creation time.
func (c *Client) QueryListCases(ctx context.Context) ([]models.Case, error) {
	results, err := surrealdb.Query[[]models.Case](ctx, c.db, `
		SELECT * FROM case ORDER BY created ASC
	`, nil)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Case{}, nil
	}
	return (*results)[0].Result, nil
}

// CaseCounts summarizes how much material a case holds.
type CaseCounts struct {
	Entities  int
	Documents int
	Chunks    int
	Embedded  int
}

func (c *Client) countByCase(ctx context.Context, table, extra, caseID string) (int, error) {
	sql := fmt.Sprintf(`
		SELECT count() AS count FROM %s
		WHERE case_id = type::record("case", $id)%s
		GROUP ALL
	`, table, extra)

	results, err := surrealdb.Query[[]struct {
		Count int `json:"count"`
	}](ctx, c.db, sql, map[string]any{"id": caseID})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return 0, nil
	}
	return (*results)[0].Result[0].Count, nil
}

// QueryCaseCounts returns entity/document/chunk totals for a case, plus how
// many chunks actually carry an embedding.
func (c *Client) QueryCaseCounts(ctx context.Context, id string) (*CaseCounts, error) {
	if _, err := c.QueryGetCase(ctx, id); err != nil {
		return nil, err
	}

	counts := &CaseCounts{}
	var err error
	if counts.Entities, err = c.countByCase(ctx, "entity", "", id); err != nil {
		return nil, err
	}
	if counts.Documents, err = c.countByCase(ctx, "document", "", id); err != nil {
		return nil, err
	}
	if counts.Chunks, err = c.countByCase(ctx, "chunk", "", id); err != nil {
		return nil, err
	}
	if counts.Embedded, err = c.countByCase(ctx, "chunk", " AND embedding != NONE", id); err != nil {
		return nil, err
	}
	return counts, nil
}

// QueryDeleteCase deletes a case and everything owned by it: graph edges,
// graph nodes, chunks, documents and entities. Returns ErrNotFound if the
// case doesn't exist.
func (c *Client) QueryDeleteCase(ctx context.Context, id string) error {
	if _, err := c.QueryGetCase(ctx, id); err != nil {
		return err
	}

	// Cascade order matters: relations first, then records that reference
	// other records, then the case itself.
	sql := `
		LET $case = type::record("case", $id);
		DELETE connects WHERE case_id = $case;
		DELETE node WHERE case_id = $case;
		DELETE chunk WHERE case_id = $case;
		DELETE document WHERE case_id = $case;
		DELETE entity WHERE case_id = $case;
		DELETE $case;
	`
	if _, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{"id": id}); err != nil {
		return fmt.Errorf("delete case: %w", wrapQueryError(err))
	}
	return nil
}
