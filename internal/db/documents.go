package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"

	"github.com/raphaelgruber/detective-go/internal/models"
)

// QueryCreateDocument creates a new document under a case. The author, when
// given, must be an entity of the same case.
func (c *Client) QueryCreateDocument(ctx context.Context, in models.DocumentInput) (*models.Document, error) {
	if _, err := c.QueryGetCase(ctx, in.CaseID); err != nil {
		return nil, err
	}

	authorClause := ""
	vars := map[string]any{
		"id":       uuid.New().String(),
		"case_id":  in.CaseID,
		"doc_type": string(in.Type),
		"ts":       in.TS,
		"subject":  in.Subject,
		"body":     in.Body,
		"language": in.Language,
		"meta":     in.Meta,
	}
	if in.AuthorID != nil {
		if _, err := c.QueryGetEntity(ctx, in.CaseID, *in.AuthorID); err != nil {
			return nil, err
		}
		authorClause = `author: type::record("entity", $author_id),`
		vars["author_id"] = *in.AuthorID
	}

	sql := fmt.Sprintf(`
		CREATE type::record("document", $id) CONTENT {
			case_id: type::record("case", $case_id),
			doc_type: $doc_type,
			ts: <datetime>$ts,
			%s
			subject: $subject,
			body: $body,
			language: $language,
			meta: $meta
		} RETURN AFTER
	`, authorClause)

	results, err := surrealdb.Query[[]models.Document](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("create document: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create document: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// QueryGetDocument retrieves a document by ID, scoped to a case.
// Returns ErrNotFound if it doesn't exist and ErrWrongCase if it exists
// under a different case.
func (c *Client) QueryGetDocument(ctx context.Context, caseID, id string) (*models.Document, error) {
	results, err := surrealdb.Query[[]models.Document](ctx, c.db, `
		SELECT * FROM type::record("document", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get document: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("get document %q: %w", id, ErrNotFound)
	}

	doc := (*results)[0].Result[0]
	if !ownedByCase(doc.CaseID, caseID) {
		return nil, fmt.Errorf("get document %q: %w", id, ErrWrongCase)
	}
	return &doc, nil
}

// QueryListDocuments returns all documents of a case in timeline order,
// optionally filtered by type. Ties on ts break by record ID so ingestion
// order is reproducible.
func (c *Client) QueryListDocuments(ctx context.Context, caseID string, docType *models.DocType) ([]models.Document, error) {
	typeClause := ""
	vars := map[string]any{"case_id": caseID}
	if docType != nil {
		typeClause = "AND doc_type = $doc_type"
		vars["doc_type"] = string(*docType)
	}

	sql := fmt.Sprintf(`
		SELECT * FROM document
		WHERE case_id = type::record("case", $case_id) %s
		ORDER BY ts ASC, id ASC
	`, typeClause)

	results, err := surrealdb.Query[[]models.Document](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.Document{}, nil
	}
	return (*results)[0].Result, nil
}
