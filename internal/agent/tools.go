package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/raphaelgruber/detective-go/internal/db"
	"github.com/raphaelgruber/detective-go/internal/graph"
	"github.com/raphaelgruber/detective-go/internal/models"
	"github.com/raphaelgruber/detective-go/internal/service"
)

// Tool names as exposed to the model.
const (
	toolSearchDocs  = "search_docs"
	toolGetDocument = "get_document"
	toolGetEntity   = "get_entity"
	toolGraphQuery  = "graph_query"
)

// maxToolResultText bounds the chunk text echoed back to the model per hit.
const maxToolResultText = 500

// RequestContext carries the per-turn scoping a tool invocation runs under.
// The model never supplies these values; they are fixed when the turn starts.
type RequestContext struct {
	CaseID         string
	Language       string
	ConversationID string
}

// Searcher is the slice of the search service the agent needs.
type Searcher interface {
	Search(ctx context.Context, caseID string, opts service.SearchOptions) ([]service.SearchResult, error)
}

// DocumentStore resolves case-scoped document lookups.
type DocumentStore interface {
	QueryGetDocument(ctx context.Context, caseID, id string) (*models.Document, error)
}

// EntityStore resolves case-scoped entity lookups.
type EntityStore interface {
	QueryGetEntity(ctx context.Context, caseID, id string) (*models.Entity, error)
}

// GraphQuerier is the slice of the graph service the agent needs. It is
// optional; without one the graph_query tool is not offered to the model.
type GraphQuerier interface {
	ShortestPath(ctx context.Context, caseID, fromID, toID string, maxDepth int) (*graph.PathResult, error)
	Neighbors(ctx context.Context, caseID, refID string, depth int) (*graph.NeighborsResult, error)
	Hubs(ctx context.Context, caseID string, limit int) ([]graph.Hub, error)
}

// citedItem is one document reference harvested from a tool result, kept in
// execution order so citations come out in order of first appearance.
type citedItem struct {
	Tool    string
	DocID   string
	ChunkID *string
	Quote   string
	Score   *float64
}

func (s *Service) toolDefinitions() []llms.Tool {
	tools := []llms.Tool{
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        toolSearchDocs,
				Description: "Semantic search over the case's evidence documents. Returns the best-matching text segments with scores.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{
							"type":        "string",
							"description": "What to look for, in natural language",
						},
						"k": map[string]any{
							"type":        "integer",
							"description": "Maximum number of segments to return (default 8)",
						},
						"doc_types": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Restrict to document types, e.g. email, invoice, chat",
						},
						"min_score": map[string]any{
							"type":        "number",
							"description": "Discard results scoring below this similarity",
						},
					},
					"required": []string{"query"},
				},
			},
		},
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        toolGetDocument,
				Description: "Fetch a full evidence document by its id, including body and author.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"document_id": map[string]any{
							"type":        "string",
							"description": "The document id, e.g. document:abc123",
						},
					},
					"required": []string{"document_id"},
				},
			},
		},
		{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        toolGetEntity,
				Description: "Fetch a person, organization or other actor by its id.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"entity_id": map[string]any{
							"type":        "string",
							"description": "The entity id, e.g. entity:abc123",
						},
					},
					"required": []string{"entity_id"},
				},
			},
		},
	}

	if s.graph != nil {
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        toolGraphQuery,
				Description: "Query the case's knowledge graph. Supports query_type 'path' (shortest connection between two records), 'neighbors' (what surrounds a record) and 'hubs' (most connected actors).",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query_type": map[string]any{
							"type":        "string",
							"enum":        []string{"path", "neighbors", "hubs"},
							"description": "Which graph question to ask",
						},
						"from_id": map[string]any{
							"type":        "string",
							"description": "Path start (entity or document id)",
						},
						"to_id": map[string]any{
							"type":        "string",
							"description": "Path goal (entity or document id)",
						},
						"max_depth": map[string]any{
							"type":        "integer",
							"description": "Maximum hops for path search (default 5)",
						},
						"entity_id": map[string]any{
							"type":        "string",
							"description": "Center record for neighbors (entity or document id)",
						},
						"depth": map[string]any{
							"type":        "integer",
							"description": "Neighborhood radius in hops (default 1)",
						},
						"limit": map[string]any{
							"type":        "integer",
							"description": "Number of hubs to return (default 10)",
						},
					},
					"required": []string{"query_type"},
				},
			},
		})
	}

	return tools
}

// errorPayload is what the model sees when a tool call fails. The message is
// safe to show: lookup errors only, never internals.
func errorPayload(msg string) string {
	out, _ := json.Marshal(map[string]string{"error": msg})
	return string(out)
}

func lookupErrorPayload(kind, id string, err error) string {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return errorPayload(fmt.Sprintf("%s %q not found in this case", kind, id))
	case errors.Is(err, db.ErrWrongCase):
		return errorPayload(fmt.Sprintf("%s %q belongs to a different case", kind, id))
	default:
		return errorPayload(fmt.Sprintf("%s lookup failed", kind))
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}

// executeTool runs one model-requested tool call and returns the JSON payload
// for the tool-result message. Failures become structured error payloads so
// the model can recover; the returned error is reserved for context
// cancellation and marshalling bugs.
func (s *Service) executeTool(ctx context.Context, rc RequestContext, call llms.ToolCall, cited *[]citedItem) string {
	if call.FunctionCall == nil {
		return errorPayload("malformed tool call")
	}

	switch call.FunctionCall.Name {
	case toolSearchDocs:
		return s.runSearchDocs(ctx, rc, call.FunctionCall.Arguments, cited)
	case toolGetDocument:
		return s.runGetDocument(ctx, rc, call.FunctionCall.Arguments, cited)
	case toolGetEntity:
		return s.runGetEntity(ctx, rc, call.FunctionCall.Arguments)
	case toolGraphQuery:
		if s.graph == nil {
			return errorPayload("graph queries are not available for this case")
		}
		return s.runGraphQuery(ctx, rc, call.FunctionCall.Arguments)
	default:
		return errorPayload(fmt.Sprintf("unknown tool %q", call.FunctionCall.Name))
	}
}

type searchArgs struct {
	Query    string   `json:"query"`
	K        int      `json:"k"`
	DocTypes []string `json:"doc_types"`
	MinScore float64  `json:"min_score"`
}

type searchResultItem struct {
	DocID   string  `json:"doc_id"`
	ChunkID string  `json:"chunk_id"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
	DocType string  `json:"doc_type"`
	Subject string  `json:"subject,omitempty"`
	TS      string  `json:"ts"`
}

func (s *Service) runSearchDocs(ctx context.Context, rc RequestContext, rawArgs string, cited *[]citedItem) string {
	var args searchArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return errorPayload("invalid search_docs arguments")
	}
	if args.Query == "" {
		return errorPayload("search_docs requires a query")
	}

	docTypes := make([]models.DocType, 0, len(args.DocTypes))
	for _, dt := range args.DocTypes {
		docTypes = append(docTypes, models.DocType(dt))
	}

	results, err := s.search.Search(ctx, rc.CaseID, service.SearchOptions{
		Query:    args.Query,
		K:        args.K,
		DocTypes: docTypes,
		Language: rc.Language,
		MinScore: args.MinScore,
	})
	if err != nil {
		s.log.Error("search tool failed", "case", rc.CaseID, "error", err)
		return errorPayload("search failed")
	}

	items := make([]searchResultItem, 0, len(results))
	for _, r := range results {
		score := r.Score
		item := searchResultItem{
			DocID:   r.DocumentID,
			ChunkID: r.ChunkID,
			Text:    truncate(r.Text, maxToolResultText),
			Score:   score,
			DocType: string(r.DocType),
			TS:      r.TS.Format("2006-01-02 15:04"),
		}
		if r.Subject != nil {
			item.Subject = *r.Subject
		}
		items = append(items, item)

		chunkID := r.ChunkID
		*cited = append(*cited, citedItem{
			Tool:    toolSearchDocs,
			DocID:   r.DocumentID,
			ChunkID: &chunkID,
			Quote:   r.Text,
			Score:   &score,
		})
	}

	out, _ := json.Marshal(map[string]any{"results": items})
	return string(out)
}

type getDocumentArgs struct {
	DocumentID string `json:"document_id"`
}

func (s *Service) runGetDocument(ctx context.Context, rc RequestContext, rawArgs string, cited *[]citedItem) string {
	var args getDocumentArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return errorPayload("invalid get_document arguments")
	}
	if args.DocumentID == "" {
		return errorPayload("get_document requires a document_id")
	}

	doc, err := s.docs.QueryGetDocument(ctx, rc.CaseID, args.DocumentID)
	if err != nil {
		return lookupErrorPayload("document", args.DocumentID, err)
	}

	docID := models.MustRecordIDString(doc.ID)
	payload := map[string]any{
		"doc_id":   docID,
		"doc_type": string(doc.Type),
		"ts":       doc.TS.Format("2006-01-02 15:04"),
		"body":     doc.Body,
		"language": doc.Language,
	}
	if doc.Subject != nil {
		payload["subject"] = *doc.Subject
	}
	if doc.Author != nil {
		payload["author_id"] = models.MustRecordIDString(*doc.Author)
	}

	*cited = append(*cited, citedItem{
		Tool:  toolGetDocument,
		DocID: docID,
		Quote: doc.Body,
	})

	out, _ := json.Marshal(payload)
	return string(out)
}

type getEntityArgs struct {
	EntityID string `json:"entity_id"`
}

func (s *Service) runGetEntity(ctx context.Context, rc RequestContext, rawArgs string) string {
	var args getEntityArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return errorPayload("invalid get_entity arguments")
	}
	if args.EntityID == "" {
		return errorPayload("get_entity requires an entity_id")
	}

	entity, err := s.entities.QueryGetEntity(ctx, rc.CaseID, args.EntityID)
	if err != nil {
		return lookupErrorPayload("entity", args.EntityID, err)
	}

	payload := map[string]any{
		"entity_id":   models.MustRecordIDString(entity.ID),
		"entity_type": string(entity.Type),
		"name":        entity.Name,
	}
	if len(entity.Attrs) > 0 {
		payload["attrs"] = entity.Attrs
	}

	out, _ := json.Marshal(payload)
	return string(out)
}

// graphQueryKind is the closed set of graph operations. The model sends a
// free-text tag; anything outside the set gets an error payload back.
type graphQueryKind string

const (
	queryPath      graphQueryKind = "path"
	queryNeighbors graphQueryKind = "neighbors"
	queryHubs      graphQueryKind = "hubs"
)

type graphQueryArgs struct {
	QueryType string `json:"query_type"`
	FromID    string `json:"from_id"`
	ToID      string `json:"to_id"`
	MaxDepth  int    `json:"max_depth"`
	EntityID  string `json:"entity_id"`
	Depth     int    `json:"depth"`
	Limit     int    `json:"limit"`
}

type graphNodeItem struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

type graphEdgeItem struct {
	From string `json:"from"`
	To   string `json:"to"`
	Type string `json:"type"`
}

func toGraphNodeItems(nodes []graph.Node) []graphNodeItem {
	items := make([]graphNodeItem, 0, len(nodes))
	for _, n := range nodes {
		items = append(items, graphNodeItem{ID: n.RefID, Type: n.SubType, Label: n.Label})
	}
	return items
}

func toGraphEdgeItems(edges []graph.Edge) []graphEdgeItem {
	items := make([]graphEdgeItem, 0, len(edges))
	for _, e := range edges {
		items = append(items, graphEdgeItem{From: e.From, To: e.To, Type: e.RelType})
	}
	return items
}

func (s *Service) runGraphQuery(ctx context.Context, rc RequestContext, rawArgs string) string {
	var args graphQueryArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return errorPayload("invalid graph_query arguments")
	}

	switch graphQueryKind(args.QueryType) {
	case queryPath:
		if args.FromID == "" || args.ToID == "" {
			return errorPayload("path query requires from_id and to_id")
		}
		if args.MaxDepth <= 0 {
			args.MaxDepth = 5
		}
		path, err := s.graph.ShortestPath(ctx, rc.CaseID, args.FromID, args.ToID, args.MaxDepth)
		if err != nil {
			return lookupErrorPayload("graph node", args.FromID+" or "+args.ToID, err)
		}
		out, _ := json.Marshal(map[string]any{
			"found":  path.Found,
			"length": path.Length,
			"nodes":  toGraphNodeItems(path.Nodes),
			"edges":  toGraphEdgeItems(path.Edges),
		})
		return string(out)

	case queryNeighbors:
		if args.EntityID == "" {
			return errorPayload("neighbors query requires entity_id")
		}
		if args.Depth <= 0 {
			args.Depth = 1
		}
		res, err := s.graph.Neighbors(ctx, rc.CaseID, args.EntityID, args.Depth)
		if err != nil {
			return lookupErrorPayload("graph node", args.EntityID, err)
		}
		out, _ := json.Marshal(map[string]any{
			"nodes": toGraphNodeItems(res.Nodes),
			"edges": toGraphEdgeItems(res.Edges),
		})
		return string(out)

	case queryHubs:
		if args.Limit <= 0 {
			args.Limit = 10
		}
		hubs, err := s.graph.Hubs(ctx, rc.CaseID, args.Limit)
		if err != nil {
			s.log.Error("hubs query failed", "case", rc.CaseID, "error", err)
			return errorPayload("graph query failed")
		}
		type hubItem struct {
			ID     string `json:"id"`
			Label  string `json:"label"`
			Degree int    `json:"degree"`
		}
		items := make([]hubItem, 0, len(hubs))
		for _, h := range hubs {
			items = append(items, hubItem{ID: h.Node.RefID, Label: h.Node.Label, Degree: h.Degree})
		}
		out, _ := json.Marshal(map[string]any{"hubs": items})
		return string(out)

	default:
		return errorPayload(fmt.Sprintf("unrecognized query_type %q, expected path, neighbors or hubs", args.QueryType))
	}
}
