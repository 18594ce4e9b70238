// Package service provides business logic for the investigation engine.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/detective-go/internal/chunker"
	"github.com/raphaelgruber/detective-go/internal/db"
	"github.com/raphaelgruber/detective-go/internal/llm"
	"github.com/raphaelgruber/detective-go/internal/metrics"
	"github.com/raphaelgruber/detective-go/internal/models"
)

// Embedder is the slice of llm.Embedder the services need. Tests substitute
// a deterministic fake.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// IngestService turns documents into searchable chunks.
type IngestService struct {
	db       *db.Client
	embedder Embedder
	chunker  *chunker.Chunker
	metrics  *metrics.Collector
}

// NewIngestService creates a new ingest service. The metrics collector is
// optional.
func NewIngestService(dbClient *db.Client, embedder Embedder, collector *metrics.Collector) *IngestService {
	return &IngestService{
		db:       dbClient,
		embedder: embedder,
		chunker:  chunker.New(0, 0),
		metrics:  collector,
	}
}

// IngestOptions configures document ingestion.
type IngestOptions struct {
	// SkipEmbeddings stores chunks without vectors. They stay invisible to
	// search until the document is re-ingested with embeddings.
	SkipEmbeddings bool
}

// IngestResult summarizes one document's ingestion. EmbeddingsGenerated
// equals ChunksCreated when vectors were computed and 0 otherwise.
type IngestResult struct {
	DocumentID          string
	ChunksCreated       int
	ChunksDeleted       int
	EmbeddingsGenerated int
}

// CaseIngestResult aggregates ingestion over a whole case.
type CaseIngestResult struct {
	DocumentsProcessed  int
	ChunksCreated       int
	EmbeddingsGenerated int
	Errors              []string
}

// IngestDocument chunks and embeds one document, replacing any chunks from
// earlier runs. Re-ingesting is idempotent: the old chunks are deleted
// before the new ones are written.
func (s *IngestService) IngestDocument(ctx context.Context, caseID, docID string, opts IngestOptions) (*IngestResult, error) {
	start := time.Now()

	doc, err := s.db.QueryGetDocument(ctx, caseID, docID)
	if err != nil {
		return nil, err
	}

	pieces, err := s.chunker.SplitDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("chunk document: %w", err)
	}

	var vectors [][]float32
	embedded := false
	if !opts.SkipEmbeddings && s.embedder != nil && len(pieces) > 0 {
		texts := make([]string, len(pieces))
		for i, p := range pieces {
			texts[i] = p.Text
		}

		embedStart := time.Now()
		vectors, err = s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		embedded = true
		if s.metrics != nil {
			s.metrics.RecordTiming(metrics.OpEmbedding, time.Since(embedStart))
		}
	}

	inputs := make([]models.ChunkInput, len(pieces))
	for i, p := range pieces {
		inputs[i] = models.ChunkInput{
			DocumentID: docID,
			CaseID:     caseID,
			Index:      p.Index,
			Text:       p.Text,
			Language:   doc.Language,
			DocType:    doc.Type,
			Subject:    doc.Subject,
			TS:         doc.TS,
			Meta:       doc.Meta,
		}
		if embedded {
			inputs[i].Embedding = vectors[i]
		}
	}

	// Delete and insert run in one transaction so a failed insert cannot
	// leave the document chunkless.
	deleted, err := s.db.QueryReplaceDocumentChunks(ctx, docID, inputs)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordTiming(metrics.OpIngest, time.Since(start))
	}
	slog.Info("document ingested",
		"case", caseID, "document", docID,
		"chunks", len(inputs), "replaced", deleted, "embeddings", len(vectors))

	return &IngestResult{
		DocumentID:          docID,
		ChunksCreated:       len(inputs),
		ChunksDeleted:       deleted,
		EmbeddingsGenerated: len(vectors),
	}, nil
}

// IngestCase ingests every document of a case in timeline order. Individual
// document failures are collected and ingestion continues, except for fatal
// provider errors which abort the run.
func (s *IngestService) IngestCase(ctx context.Context, caseID string, opts IngestOptions) (*CaseIngestResult, error) {
	docs, err := s.db.QueryListDocuments(ctx, caseID, nil)
	if err != nil {
		return nil, err
	}

	result := &CaseIngestResult{}
	for _, doc := range docs {
		docID, err := models.RecordIDString(doc.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("document id: %v", err))
			continue
		}

		res, err := s.IngestDocument(ctx, caseID, docID, opts)
		if err != nil {
			if errors.Is(err, llm.ErrFatalAPI) {
				return result, fmt.Errorf("ingest aborted at document %s: %w", docID, err)
			}
			result.Errors = append(result.Errors, fmt.Sprintf("document %s: %v", docID, err))
			continue
		}

		result.DocumentsProcessed++
		result.ChunksCreated += res.ChunksCreated
		result.EmbeddingsGenerated += res.EmbeddingsGenerated
	}

	return result, nil
}
