package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// Chunk is a bounded-length slice of a document's text, the unit of
// semantic search. Chunks carry the case id redundantly so scoped
// queries need no join, and indices are contiguous from 0 within a
// document. Re-ingesting a document replaces all of its chunks.
type Chunk struct {
	ID        surrealmodels.RecordID `json:"id"`
	Document  surrealmodels.RecordID `json:"document"`
	CaseID    surrealmodels.RecordID `json:"case_id"`
	Index     int                    `json:"idx"`
	Text      string                 `json:"text"`
	Embedding []float32              `json:"embedding,omitempty"`
	Language  string                 `json:"language"`
	DocType   DocType                `json:"doc_type"`
	Subject   *string                `json:"subject,omitempty"`
	TS        time.Time              `json:"ts"`
	Meta      map[string]any         `json:"meta,omitempty"`
	Created   time.Time              `json:"created,omitempty"`
}

// ChunkInput is the input structure for persisting chunks during ingestion.
type ChunkInput struct {
	DocumentID string         `json:"document_id"`
	CaseID     string         `json:"case_id"`
	Index      int            `json:"idx"`
	Text       string         `json:"text"`
	Embedding  []float32      `json:"embedding,omitempty"`
	Language   string         `json:"language"`
	DocType    DocType        `json:"doc_type"`
	Subject    *string        `json:"subject,omitempty"`
	TS         time.Time      `json:"ts"`
	Meta       map[string]any `json:"meta,omitempty"`
}
