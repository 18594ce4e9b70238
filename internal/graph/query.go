package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/raphaelgruber/detective-go/internal/db"
	"github.com/raphaelgruber/detective-go/internal/models"
)

// PathResult is the outcome of a shortest-path query. Found is false when
// no path of length <= maxDepth exists; the search never looks further.
type PathResult struct {
	Found  bool
	Length int
	Nodes  []Node
	Edges  []Edge
}

// NeighborsResult holds every distinct node reachable within the depth
// bound, plus all edges traversed to reach them.
type NeighborsResult struct {
	Nodes []Node
	Edges []Edge
}

// Hub is an entity ranked by how many edges touch it.
type Hub struct {
	Node   Node
	Degree int
}

// Stats summarizes a case's graph projection.
type Stats struct {
	Nodes        int
	Edges        int
	NodesByLabel map[string]int
	EdgesByLabel map[string]int
}

// subgraph is one case's projection loaded into memory for traversal.
// SurrealQL's graph operators walk a fixed direction per step; the query
// semantics here are undirected with exact depth bounds and deterministic
// ordering, which is simpler to guarantee with an explicit traversal over
// the (small, case-scoped) edge list.
type subgraph struct {
	nodes map[string]Node
	edges []Edge
	// adjacency: node id -> indices into edges, sorted for determinism
	adj map[string][]int
}

func toNode(row db.GraphNode) (Node, error) {
	id, err := models.RecordIDString(row.ID)
	if err != nil {
		return Node{}, fmt.Errorf("node id: %w", err)
	}
	refID, err := models.RecordIDString(row.Ref)
	if err != nil {
		return Node{}, fmt.Errorf("node ref: %w", err)
	}
	return Node{
		ID:      id,
		RefID:   refID,
		Type:    row.NodeType,
		SubType: row.SubType,
		Label:   row.Label,
		TS:      row.TS,
	}, nil
}

func (s *Service) loadSubgraph(ctx context.Context, caseID string) (*subgraph, error) {
	nodeRows, err := s.db.QueryCaseNodes(ctx, caseID)
	if err != nil {
		return nil, err
	}
	edgeRows, err := s.db.QueryCaseEdges(ctx, caseID)
	if err != nil {
		return nil, err
	}

	g := &subgraph{
		nodes: make(map[string]Node, len(nodeRows)),
		edges: make([]Edge, 0, len(edgeRows)),
		adj:   make(map[string][]int),
	}
	for _, row := range nodeRows {
		n, err := toNode(row)
		if err != nil {
			return nil, err
		}
		g.nodes[n.ID] = n
	}
	for _, row := range edgeRows {
		from, err := models.RecordIDString(row.In)
		if err != nil {
			return nil, fmt.Errorf("edge in: %w", err)
		}
		to, err := models.RecordIDString(row.Out)
		if err != nil {
			return nil, fmt.Errorf("edge out: %w", err)
		}
		idx := len(g.edges)
		g.edges = append(g.edges, Edge{From: from, To: to, RelType: row.RelType, TS: row.TS})
		g.adj[from] = append(g.adj[from], idx)
		g.adj[to] = append(g.adj[to], idx)
	}
	return g, nil
}

// other returns the far end of an edge relative to a node.
func (e Edge) other(nodeID string) string {
	if e.From == nodeID {
		return e.To
	}
	return e.From
}

// ShortestPath finds the shortest undirected path between two records of a
// case, up to maxDepth hops. The endpoints are entity or document IDs.
// Returns ErrNotFound if either endpoint has no node in the projection.
func (s *Service) ShortestPath(ctx context.Context, caseID, fromID, toID string, maxDepth int) (*PathResult, error) {
	if maxDepth <= 0 {
		maxDepth = 1
	}

	g, err := s.loadSubgraph(ctx, caseID)
	if err != nil {
		return nil, err
	}

	start := db.NodeRecordID(caseID, fromID)
	goal := db.NodeRecordID(caseID, toID)
	if _, ok := g.nodes[start]; !ok {
		return nil, fmt.Errorf("graph node for %q: %w", fromID, db.ErrNotFound)
	}
	if _, ok := g.nodes[goal]; !ok {
		return nil, fmt.Errorf("graph node for %q: %w", toID, db.ErrNotFound)
	}

	if start == goal {
		return &PathResult{Found: true, Length: 0, Nodes: []Node{g.nodes[start]}, Edges: []Edge{}}, nil
	}

	// BFS with parent tracking; frontier expansion in sorted neighbor order
	// keeps tie-broken paths stable across runs.
	parents := map[string]cameFrom{start: {node: "", edge: -1}}
	frontier := []string{start}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, cur := range frontier {
			neighbors := make([]cameFrom, 0, len(g.adj[cur]))
			for _, ei := range g.adj[cur] {
				neighbors = append(neighbors, cameFrom{node: g.edges[ei].other(cur), edge: ei})
			}
			sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].node < neighbors[j].node })

			for _, nb := range neighbors {
				if _, seen := parents[nb.node]; seen {
					continue
				}
				parents[nb.node] = cameFrom{node: cur, edge: nb.edge}
				if nb.node == goal {
					return g.reconstructPath(start, goal, parents), nil
				}
				next = append(next, nb.node)
			}
		}
		frontier = next
	}

	return &PathResult{Found: false, Nodes: []Node{}, Edges: []Edge{}}, nil
}

// cameFrom records how BFS first reached a node.
type cameFrom struct {
	node string
	edge int
}

func (g *subgraph) reconstructPath(start, goal string, parents map[string]cameFrom) *PathResult {
	var nodes []Node
	var edges []Edge

	cur := goal
	for cur != start {
		p := parents[cur]
		nodes = append(nodes, g.nodes[cur])
		edges = append(edges, g.edges[p.edge])
		cur = p.node
	}
	nodes = append(nodes, g.nodes[start])

	// Reverse into start -> goal order
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}
	for i, j := 0, len(edges)-1; i < j; i, j = i+1, j-1 {
		edges[i], edges[j] = edges[j], edges[i]
	}

	return &PathResult{Found: true, Length: len(edges), Nodes: nodes, Edges: edges}
}

// Neighbors returns every distinct node reachable from a record within the
// depth bound, excluding the start node itself, plus all edges traversed.
// Traversal is exhaustive within the bound, so the edge list can include
// edges that are not on any shortest path.
func (s *Service) Neighbors(ctx context.Context, caseID, refID string, depth int) (*NeighborsResult, error) {
	if depth <= 0 {
		depth = 1
	}

	g, err := s.loadSubgraph(ctx, caseID)
	if err != nil {
		return nil, err
	}

	start := db.NodeRecordID(caseID, refID)
	if _, ok := g.nodes[start]; !ok {
		return nil, fmt.Errorf("graph node for %q: %w", refID, db.ErrNotFound)
	}

	visited := map[string]bool{start: true}
	usedEdges := map[int]bool{}
	frontier := []string{start}

	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []string
		for _, cur := range frontier {
			for _, ei := range g.adj[cur] {
				usedEdges[ei] = true
				nb := g.edges[ei].other(cur)
				if !visited[nb] {
					visited[nb] = true
					next = append(next, nb)
				}
			}
		}
		frontier = next
	}

	result := &NeighborsResult{Nodes: []Node{}, Edges: []Edge{}}
	ids := make([]string, 0, len(visited))
	for id := range visited {
		if id != start {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		result.Nodes = append(result.Nodes, g.nodes[id])
	}

	edgeIdx := make([]int, 0, len(usedEdges))
	for ei := range usedEdges {
		edgeIdx = append(edgeIdx, ei)
	}
	sort.Ints(edgeIdx)
	for _, ei := range edgeIdx {
		result.Edges = append(result.Edges, g.edges[ei])
	}

	return result, nil
}

// Hubs ranks a case's entities by undirected degree, descending. Ties break
// by node id to keep the ranking stable.
func (s *Service) Hubs(ctx context.Context, caseID string, limit int) ([]Hub, error) {
	if limit <= 0 {
		limit = 10
	}

	g, err := s.loadSubgraph(ctx, caseID)
	if err != nil {
		return nil, err
	}

	hubs := make([]Hub, 0)
	for id, n := range g.nodes {
		if n.Type != NodeEntity {
			continue
		}
		hubs = append(hubs, Hub{Node: n, Degree: len(g.adj[id])})
	}
	sort.Slice(hubs, func(i, j int) bool {
		if hubs[i].Degree != hubs[j].Degree {
			return hubs[i].Degree > hubs[j].Degree
		}
		return hubs[i].Node.ID < hubs[j].Node.ID
	})

	if len(hubs) > limit {
		hubs = hubs[:limit]
	}
	return hubs, nil
}

// GraphStats returns node/edge totals and per-label breakdowns.
func (s *Service) GraphStats(ctx context.Context, caseID string) (*Stats, error) {
	nodeCounts, err := s.db.QueryNodeTypeCounts(ctx, caseID)
	if err != nil {
		return nil, err
	}
	relCounts, err := s.db.QueryRelTypeCounts(ctx, caseID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		NodesByLabel: make(map[string]int, len(nodeCounts)),
		EdgesByLabel: make(map[string]int, len(relCounts)),
	}
	for _, nc := range nodeCounts {
		stats.NodesByLabel[nc.SubType] += nc.Count
		stats.Nodes += nc.Count
	}
	for _, rc := range relCounts {
		stats.EdgesByLabel[rc.RelType] += rc.Count
		stats.Edges += rc.Count
	}
	return stats, nil
}
