package service

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/detective-go/internal/db"
	"github.com/raphaelgruber/detective-go/internal/metrics"
	"github.com/raphaelgruber/detective-go/internal/models"
)

// SearchService answers semantic queries over a case's chunks.
type SearchService struct {
	db       *db.Client
	embedder Embedder
	metrics  *metrics.Collector
}

// NewSearchService creates a new search service.
func NewSearchService(dbClient *db.Client, embedder Embedder, collector *metrics.Collector) *SearchService {
	return &SearchService{
		db:       dbClient,
		embedder: embedder,
		metrics:  collector,
	}
}

// SearchOptions configures a semantic search.
type SearchOptions struct {
	Query    string
	K        int
	DocTypes []models.DocType
	Language string
	MinScore float64
}

// DefaultK is the result count when the caller doesn't specify one.
const DefaultK = 8

// SearchResult is one scored chunk with enough context to cite it.
type SearchResult struct {
	ChunkID    string
	DocumentID string
	Text       string
	Score      float64
	DocType    models.DocType
	Subject    *string
	TS         time.Time
	Language   string
}

func hitToResult(hit db.ChunkHit) (SearchResult, error) {
	chunkID, err := models.RecordIDString(hit.ID)
	if err != nil {
		return SearchResult{}, fmt.Errorf("chunk id: %w", err)
	}
	docID, err := models.RecordIDString(hit.Document)
	if err != nil {
		return SearchResult{}, fmt.Errorf("document id: %w", err)
	}
	return SearchResult{
		ChunkID:    chunkID,
		DocumentID: docID,
		Text:       hit.Text,
		Score:      hit.Score,
		DocType:    hit.DocType,
		Subject:    hit.Subject,
		TS:         hit.TS,
		Language:   hit.Language,
	}, nil
}

// Search embeds the query and returns the case's best-matching chunks.
// The top k are fetched first and the score floor is applied afterwards,
// so a high floor can return fewer than k results even when more chunks
// exist below it.
func (s *SearchService) Search(ctx context.Context, caseID string, opts SearchOptions) ([]SearchResult, error) {
	start := time.Now()

	if opts.Query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if opts.K <= 0 {
		opts.K = DefaultK
	}

	embedding, err := s.embedder.Embed(ctx, opts.Query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := s.db.QueryVectorSearch(ctx, caseID, embedding, opts.K, db.SearchFilter{
		DocTypes: opts.DocTypes,
		Language: opts.Language,
	})
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < opts.MinScore {
			continue
		}
		r, err := hitToResult(hit)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}

	if s.metrics != nil {
		s.metrics.RecordTiming(metrics.OpSearch, time.Since(start))
	}
	return results, nil
}

// SimilarTo finds chunks close to an existing chunk, excluding the chunk
// itself. With sameDocument the search stays within the chunk's document.
// The stored embedding is reused, so no provider call is made.
func (s *SearchService) SimilarTo(ctx context.Context, caseID, chunkID string, k int, sameDocument bool) ([]SearchResult, error) {
	if k <= 0 {
		k = DefaultK
	}

	chunk, err := s.db.QueryGetChunk(ctx, caseID, chunkID)
	if err != nil {
		return nil, err
	}
	if len(chunk.Embedding) == 0 {
		return nil, fmt.Errorf("chunk %s has no embedding", chunkID)
	}

	filter := db.SearchFilter{ExcludeChunk: &chunk.ID}
	if sameDocument {
		filter.OnlyDocument = &chunk.Document
	}

	hits, err := s.db.QueryVectorSearch(ctx, caseID, chunk.Embedding, k, filter)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		r, err := hitToResult(hit)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, nil
}
