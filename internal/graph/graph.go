// Package graph maintains and queries the per-case knowledge graph
// projection. The projection mirrors relational truth (entities, documents,
// authorship) and is rebuilt wholesale on every sync, never edited in place.
package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/raphaelgruber/detective-go/internal/db"
	"github.com/raphaelgruber/detective-go/internal/metrics"
	"github.com/raphaelgruber/detective-go/internal/models"
)

// RelAuthored is the edge label for (author entity -> document).
const RelAuthored = "authored"

// Node types in the projection.
const (
	NodeEntity   = "entity"
	NodeDocument = "document"
)

// Node is a graph node as seen by queries.
type Node struct {
	ID      string
	RefID   string
	Type    string
	SubType string
	Label   string
	TS      *time.Time
}

// Edge is a directed graph edge. Queries traverse it in both directions.
type Edge struct {
	From    string
	To      string
	RelType string
	TS      *time.Time
}

// SyncResult reports what a rebuild created. Counts are observability,
// not API: callers should only rely on them matching the case's current
// entity and authored-document counts.
type SyncResult struct {
	NodesCreated         int
	RelationshipsCreated int
	NodesRemoved         int
	EdgesRemoved         int
}

// Service owns the graph projection for all cases.
type Service struct {
	db      *db.Client
	metrics *metrics.Collector
}

// NewService creates a graph service. The metrics collector is optional.
func NewService(dbClient *db.Client, collector *metrics.Collector) *Service {
	return &Service{db: dbClient, metrics: collector}
}

// Sync rebuilds one case's graph projection from relational state: wipe
// everything tagged with the case, project a node per entity and per
// document, then an authored edge per document with a known author.
// Upserts are keyed by (case, source record) so re-running after a partial
// failure is safe.
func (s *Service) Sync(ctx context.Context, caseID string) (*SyncResult, error) {
	start := time.Now()

	if _, err := s.db.QueryGetCase(ctx, caseID); err != nil {
		return nil, err
	}

	removedNodes, removedEdges, err := s.db.QueryWipeCaseGraph(ctx, caseID)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{NodesRemoved: removedNodes, EdgesRemoved: removedEdges}

	entities, err := s.db.QueryListEntities(ctx, caseID, nil)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		refID, err := models.RecordIDString(e.ID)
		if err != nil {
			return nil, fmt.Errorf("entity id: %w", err)
		}
		err = s.db.QueryUpsertNode(ctx, db.NodeInput{
			CaseID:   caseID,
			RefTable: "entity",
			RefID:    refID,
			NodeType: NodeEntity,
			SubType:  string(e.Type),
			Label:    e.Name,
		})
		if err != nil {
			return nil, err
		}
		result.NodesCreated++
	}

	docs, err := s.db.QueryListDocuments(ctx, caseID, nil)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		refID, err := models.RecordIDString(d.ID)
		if err != nil {
			return nil, fmt.Errorf("document id: %w", err)
		}

		label := string(d.Type)
		if d.Subject != nil && *d.Subject != "" {
			label = *d.Subject
		}
		ts := d.TS
		err = s.db.QueryUpsertNode(ctx, db.NodeInput{
			CaseID:   caseID,
			RefTable: "document",
			RefID:    refID,
			NodeType: NodeDocument,
			SubType:  string(d.Type),
			Label:    label,
			TS:       &ts,
		})
		if err != nil {
			return nil, err
		}
		result.NodesCreated++

		if d.Author == nil {
			continue
		}
		authorID, err := models.RecordIDString(*d.Author)
		if err != nil {
			return nil, fmt.Errorf("author id: %w", err)
		}
		err = s.db.QueryRelateNodes(ctx, caseID,
			db.NodeRecordID(caseID, authorID),
			db.NodeRecordID(caseID, refID),
			RelAuthored, &ts)
		if err != nil {
			// Already present from this rebuild, nothing to repair
			if errors.Is(err, db.ErrConflict) {
				continue
			}
			return nil, err
		}
		result.RelationshipsCreated++
	}

	if s.metrics != nil {
		s.metrics.RecordTiming(metrics.OpGraphSync, time.Since(start))
	}
	slog.Info("graph synced", "case", caseID,
		"nodes", result.NodesCreated, "edges", result.RelationshipsCreated)
	return result, nil
}
