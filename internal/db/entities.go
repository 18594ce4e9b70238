package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/raphaelgruber/detective-go/internal/models"
)

// ownedByCase reports whether a case_id record link points at the given case.
func ownedByCase(rid surrealmodels.RecordID, caseID string) bool {
	s, err := models.RecordIDString(rid)
	return err == nil && s == caseID
}

// QueryCreateEntity creates a new entity under a case.
// Returns ErrNotFound if the case doesn't exist.
func (c *Client) QueryCreateEntity(ctx context.Context, in models.EntityInput) (*models.Entity, error) {
	if _, err := c.QueryGetCase(ctx, in.CaseID); err != nil {
		return nil, err
	}

	sql := `
		CREATE type::record("entity", $id) CONTENT {
			case_id: type::record("case", $case_id),
			entity_type: $entity_type,
			name: $name,
			attrs: $attrs
		} RETURN AFTER
	`

	results, err := surrealdb.Query[[]models.Entity](ctx, c.db, sql, map[string]any{
		"id":          uuid.New().String(),
		"case_id":     in.CaseID,
		"entity_type": string(in.Type),
		"name":        in.Name,
		"attrs":       in.Attrs,
	})
	if err != nil {
		return nil, fmt.Errorf("create entity: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create entity: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// QueryGetEntity retrieves an entity by ID, scoped to a case.
// Returns ErrNotFound if it doesn't exist and ErrWrongCase if it exists
// under a different case.
func (c *Client) QueryGetEntity(ctx context.Context, caseID, id string) (*models.Entity, error) {
	results, err := surrealdb.Query[[]models.Entity](ctx, c.db, `
		SELECT * FROM type::record("entity", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get entity: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("get entity %q: %w", id, ErrNotFound)
	}

	entity := (*results)[0].Result[0]
	if !ownedByCase(entity.CaseID, caseID) {
		return nil, fmt.Errorf("get entity %q: %w", id, ErrWrongCase)
	}
	return &entity, nil
}

// QueryListEntities returns all entities of a case, optionally filtered by
// type, ordered by name for stable output.
func (c *Client) QueryListEntities(ctx context.Context, caseID string, entityType *models.EntityType) ([]models.Entity, error) {
	typeClause := ""
	vars := map[string]any{"case_id": caseID}
	if entityType != nil {
		typeClause = "AND entity_type = $entity_type"
		vars["entity_type"] = string(*entityType)
	}

	sql := fmt.Sprintf(`
		SELECT * FROM entity
		WHERE case_id = type::record("case", $case_id) %s
		ORDER BY name ASC
	`, typeClause)

	results, err := surrealdb.Query[[]models.Entity](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Entity{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryDeleteEntity deletes an entity and clears authorship on any documents
// that pointed at it. Scoped to a case like QueryGetEntity.
func (c *Client) QueryDeleteEntity(ctx context.Context, caseID, id string) error {
	if _, err := c.QueryGetEntity(ctx, caseID, id); err != nil {
		return err
	}

	sql := `
		LET $entity = type::record("entity", $id);
		UPDATE document SET author = NONE WHERE author = $entity;
		DELETE $entity;
	`
	if _, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{"id": id}); err != nil {
		return fmt.Errorf("delete entity: %w", wrapQueryError(err))
	}
	return nil
}
