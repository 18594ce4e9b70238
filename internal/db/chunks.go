package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/raphaelgruber/detective-go/internal/models"
)

// ChunkHit is a chunk scored against a query embedding.
type ChunkHit struct {
	models.Chunk
	Score float64 `json:"score"`
}

// SearchFilter narrows a vector search beyond the case scope.
type SearchFilter struct {
	DocTypes     []models.DocType
	Language     string
	ExcludeChunk *surrealmodels.RecordID
	// OnlyDocument restricts results to one document's chunks.
	OnlyDocument *surrealmodels.RecordID
}

// QueryDeleteChunksByDocument removes all chunks of a document and returns
// how many were deleted. Re-ingestion calls this before inserting.
func (c *Client) QueryDeleteChunksByDocument(ctx context.Context, docID string) (int, error) {
	results, err := surrealdb.Query[[]models.Chunk](ctx, c.db, `
		DELETE chunk WHERE document = type::record("document", $doc_id) RETURN BEFORE
	`, map[string]any{"doc_id": docID})
	if err != nil {
		return 0, fmt.Errorf("delete chunks: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}

func chunkRows(chunks []models.ChunkInput) []map[string]any {
	rows := make([]map[string]any, 0, len(chunks))
	for _, ch := range chunks {
		row := map[string]any{
			"id":       surrealmodels.RecordID{Table: "chunk", ID: uuid.New().String()},
			"document": surrealmodels.RecordID{Table: "document", ID: ch.DocumentID},
			"case_id":  surrealmodels.RecordID{Table: "case", ID: ch.CaseID},
			"idx":      ch.Index,
			"text":     ch.Text,
			"language": ch.Language,
			"doc_type": string(ch.DocType),
			"subject":  ch.Subject,
			"ts":       ch.TS,
			"meta":     ch.Meta,
		}
		if ch.Embedding != nil {
			row["embedding"] = ch.Embedding
		}
		rows = append(rows, row)
	}
	return rows
}

// QueryInsertChunks inserts a batch of chunks in one statement.
func (c *Client) QueryInsertChunks(ctx context.Context, chunks []models.ChunkInput) error {
	if len(chunks) == 0 {
		return nil
	}

	_, err := surrealdb.Query[any](ctx, c.db, `INSERT INTO chunk $rows`,
		map[string]any{"rows": chunkRows(chunks)})
	if err != nil {
		return fmt.Errorf("insert chunks: %w", wrapQueryError(err))
	}
	return nil
}

// QueryReplaceDocumentChunks swaps a document's chunks for a new set inside
// one transaction, so a failed insert rolls the delete back. Returns how
// many old chunks were removed. An empty set just clears the document.
func (c *Client) QueryReplaceDocumentChunks(ctx context.Context, docID string, chunks []models.ChunkInput) (int, error) {
	results, err := surrealdb.Query[[]models.Chunk](ctx, c.db, `
		BEGIN TRANSACTION;
		DELETE chunk WHERE document = type::record("document", $doc_id) RETURN BEFORE;
		INSERT INTO chunk $rows;
		COMMIT TRANSACTION;
	`, map[string]any{
		"doc_id": docID,
		"rows":   chunkRows(chunks),
	})
	if err != nil {
		return 0, fmt.Errorf("replace chunks: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return 0, nil
	}
	return len((*results)[0].Result), nil
}

// QueryGetChunk retrieves a chunk by ID, scoped to a case.
func (c *Client) QueryGetChunk(ctx context.Context, caseID, id string) (*models.Chunk, error) {
	results, err := surrealdb.Query[[]models.Chunk](ctx, c.db, `
		SELECT * FROM type::record("chunk", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("get chunk: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("get chunk %q: %w", id, ErrNotFound)
	}

	chunk := (*results)[0].Result[0]
	if !ownedByCase(chunk.CaseID, caseID) {
		return nil, fmt.Errorf("get chunk %q: %w", id, ErrWrongCase)
	}
	return &chunk, nil
}

// QueryVectorSearch ranks a case's chunks by cosine similarity to the query
// embedding and returns the top k. Chunks without embeddings are skipped.
// Ties on score break by record ID so rankings are reproducible.
//
// Ranking is an exact scan over the case's chunks (narrowed by the
// chunk_case index) rather than an HNSW KNN lookup: the KNN operator picks
// candidates before the case filter applies, so a small case sharing the
// database with large ones could lose hits to its neighbors. Case corpora
// are small enough that the exact scan stays cheap, and exact scores keep
// rankings reproducible.
func (c *Client) QueryVectorSearch(ctx context.Context, caseID string, embedding []float32, k int, filter SearchFilter) ([]ChunkHit, error) {
	vars := map[string]any{
		"case_id": caseID,
		"emb":     embedding,
		"k":       k,
	}

	where := `case_id = type::record("case", $case_id) AND embedding != NONE`
	if len(filter.DocTypes) > 0 {
		where += " AND doc_type IN $doc_types"
		docTypes := make([]string, len(filter.DocTypes))
		for i, dt := range filter.DocTypes {
			docTypes[i] = string(dt)
		}
		vars["doc_types"] = docTypes
	}
	if filter.Language != "" {
		where += " AND language = $language"
		vars["language"] = filter.Language
	}
	if filter.ExcludeChunk != nil {
		where += " AND id != $exclude_chunk"
		vars["exclude_chunk"] = *filter.ExcludeChunk
	}
	if filter.OnlyDocument != nil {
		where += " AND document = $only_doc"
		vars["only_doc"] = *filter.OnlyDocument
	}

	sql := fmt.Sprintf(`
		SELECT id, document, case_id, idx, text, language, doc_type, subject, ts, meta,
			vector::similarity::cosine(embedding, $emb) AS score
		FROM chunk
		WHERE %s
		ORDER BY score DESC, id ASC
		LIMIT $k
	`, where)

	results, err := surrealdb.Query[[]ChunkHit](ctx, c.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []ChunkHit{}, nil
	}
	return (*results)[0].Result, nil
}
