package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// GraphNode is a row of the graph projection's node table.
type GraphNode struct {
	ID       surrealmodels.RecordID `json:"id"`
	CaseID   surrealmodels.RecordID `json:"case_id"`
	Ref      surrealmodels.RecordID `json:"ref"`
	NodeType string                 `json:"node_type"`
	SubType  string                 `json:"sub_type"`
	Label    string                 `json:"label"`
	TS       *time.Time             `json:"ts,omitempty"`
}

// GraphEdge is a row of the connects relation table.
type GraphEdge struct {
	ID      surrealmodels.RecordID `json:"id"`
	In      surrealmodels.RecordID `json:"in"`
	Out     surrealmodels.RecordID `json:"out"`
	RelType string                 `json:"rel_type"`
	TS      *time.Time             `json:"ts,omitempty"`
}

// NodeInput describes a node to project into the graph. The node ID is
// derived from case and source record so repeated syncs are idempotent.
type NodeInput struct {
	CaseID   string
	RefTable string
	RefID    string
	NodeType string
	SubType  string
	Label    string
	TS       *time.Time
}

// NodeRecordID returns the deterministic node ID for a source record.
func NodeRecordID(caseID, refID string) string {
	return caseID + "_" + refID
}

// QueryWipeCaseGraph deletes a case's graph projection, edges first.
// Returns how many nodes and edges were removed.
func (c *Client) QueryWipeCaseGraph(ctx context.Context, caseID string) (nodes, edges int, err error) {
	edgeResults, err := surrealdb.Query[[]GraphEdge](ctx, c.db, `
		DELETE connects WHERE case_id = type::record("case", $case_id) RETURN BEFORE
	`, map[string]any{"case_id": caseID})
	if err != nil {
		return 0, 0, fmt.Errorf("wipe graph edges: %w", wrapQueryError(err))
	}
	if edgeResults != nil && len(*edgeResults) > 0 {
		edges = len((*edgeResults)[0].Result)
	}

	nodeResults, err := surrealdb.Query[[]GraphNode](ctx, c.db, `
		DELETE node WHERE case_id = type::record("case", $case_id) RETURN BEFORE
	`, map[string]any{"case_id": caseID})
	if err != nil {
		return 0, edges, fmt.Errorf("wipe graph nodes: %w", wrapQueryError(err))
	}
	if nodeResults != nil && len(*nodeResults) > 0 {
		nodes = len((*nodeResults)[0].Result)
	}

	return nodes, edges, nil
}

// QueryUpsertNode creates or replaces a graph node.
func (c *Client) QueryUpsertNode(ctx context.Context, in NodeInput) error {
	sql := `
		UPSERT type::record("node", $id) SET
			case_id = type::record("case", $case_id),
			ref = type::record($ref_table, $ref_id),
			node_type = $node_type,
			sub_type = $sub_type,
			label = $label,
			ts = $ts
	`
	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"id":        NodeRecordID(in.CaseID, in.RefID),
		"case_id":   in.CaseID,
		"ref_table": in.RefTable,
		"ref_id":    in.RefID,
		"node_type": in.NodeType,
		"sub_type":  in.SubType,
		"label":     in.Label,
		"ts":        in.TS,
	})
	if err != nil {
		return fmt.Errorf("upsert node: %w", wrapQueryError(err))
	}
	return nil
}

// QueryRelateNodes creates an edge between two graph nodes. A duplicate
// [in, out, rel_type] triple fails the unique index and surfaces as
// ErrConflict; sync treats that as already-present.
func (c *Client) QueryRelateNodes(ctx context.Context, caseID, fromNodeID, toNodeID, relType string, ts *time.Time) error {
	sql := `
		RELATE type::record("node", $from_id)->connects->type::record("node", $to_id) SET
			rel_type = $rel_type,
			case_id = type::record("case", $case_id),
			ts = $ts
	`
	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"from_id":  fromNodeID,
		"to_id":    toNodeID,
		"rel_type": relType,
		"case_id":  caseID,
		"ts":       ts,
	})
	if err != nil {
		return fmt.Errorf("relate nodes: %w", wrapQueryError(err))
	}
	return nil
}

// QueryCaseNodes returns all graph nodes of a case, ordered by ID for
// deterministic traversal.
func (c *Client) QueryCaseNodes(ctx context.Context, caseID string) ([]GraphNode, error) {
	results, err := surrealdb.Query[[]GraphNode](ctx, c.db, `
		SELECT * FROM node WHERE case_id = type::record("case", $case_id) ORDER BY id ASC
	`, map[string]any{"case_id": caseID})
	if err != nil {
		return nil, fmt.Errorf("case nodes: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []GraphNode{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryCaseEdges returns all graph edges of a case, ordered by ID.
func (c *Client) QueryCaseEdges(ctx context.Context, caseID string) ([]GraphEdge, error) {
	results, err := surrealdb.Query[[]GraphEdge](ctx, c.db, `
		SELECT * FROM connects WHERE case_id = type::record("case", $case_id) ORDER BY id ASC
	`, map[string]any{"case_id": caseID})
	if err != nil {
		return nil, fmt.Errorf("case edges: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []GraphEdge{}, nil
	}
	return (*results)[0].Result, nil
}

// NodeTypeCount is a node type/sub-type with its node count.
type NodeTypeCount struct {
	NodeType string `json:"node_type"`
	SubType  string `json:"sub_type"`
	Count    int    `json:"count"`
}

// RelTypeCount is a relation type with its edge count.
type RelTypeCount struct {
	RelType string `json:"rel_type"`
	Count   int    `json:"count"`
}

// QueryNodeTypeCounts returns node counts grouped by type and sub-type.
func (c *Client) QueryNodeTypeCounts(ctx context.Context, caseID string) ([]NodeTypeCount, error) {
	results, err := surrealdb.Query[[]NodeTypeCount](ctx, c.db, `
		SELECT node_type, sub_type, count() AS count FROM node
		WHERE case_id = type::record("case", $case_id)
		GROUP BY node_type, sub_type
		ORDER BY node_type ASC, sub_type ASC
	`, map[string]any{"case_id": caseID})
	if err != nil {
		return nil, fmt.Errorf("node type counts: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []NodeTypeCount{}, nil
	}
	return (*results)[0].Result, nil
}

// QueryRelTypeCounts returns edge counts grouped by relation type.
func (c *Client) QueryRelTypeCounts(ctx context.Context, caseID string) ([]RelTypeCount, error) {
	results, err := surrealdb.Query[[]RelTypeCount](ctx, c.db, `
		SELECT rel_type, count() AS count FROM connects
		WHERE case_id = type::record("case", $case_id)
		GROUP BY rel_type
		ORDER BY rel_type ASC
	`, map[string]any{"case_id": caseID})
	if err != nil {
		return nil, fmt.Errorf("rel type counts: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []RelTypeCount{}, nil
	}
	return (*results)[0].Result, nil
}
