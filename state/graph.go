package state

import (
	"slices"
	"sync"

	"github.com/sweetpotato0/ragdeck/api"
)

// Selection is the graph's selected and focused elements. Empty strings
// mean none.
type Selection struct {
	SelectedNode string
	FocusedNode  string
	SelectedEdge string
	FocusedEdge  string
}

// Graph is the loaded knowledge subgraph.
type Graph struct {
	mu      sync.RWMutex
	nodes   []api.GraphNode
	edges   []api.GraphEdge
	byID    map[string]int
	sel     Selection
	loading bool
	empty   bool
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{byID: make(map[string]int)}
}

// Load replaces the graph with data and clears the selection.
func (g *Graph) Load(data api.GraphData) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = slices.Clone(data.Nodes)
	g.edges = slices.Clone(data.Edges)
	g.byID = make(map[string]int, len(g.nodes))
	for i, n := range g.nodes {
		g.byID[n.ID] = i
	}
	g.sel = Selection{}
	g.empty = len(g.nodes) == 0
	g.loading = false
}

// Nodes returns a copy of the nodes.
func (g *Graph) Nodes() []api.GraphNode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.nodes)
}

// Edges returns a copy of the edges.
func (g *Graph) Edges() []api.GraphEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.edges)
}

// Node looks a node up by ID.
func (g *Graph) Node(id string) (api.GraphNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i, ok := g.byID[id]
	if !ok {
		return api.GraphNode{}, false
	}
	return g.nodes[i], true
}

// Neighbors returns the IDs of nodes sharing an edge with id, in either
// direction, sorted.
func (g *Graph) Neighbors(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, e := range g.edges {
		switch id {
		case e.Source:
			seen[e.Target] = struct{}{}
		case e.Target:
			seen[e.Source] = struct{}{}
		}
	}
	delete(seen, id)
	out := make([]string, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// SetSelectedNode selects a node.
func (g *Graph) SetSelectedNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sel.SelectedNode = id
}

// SetFocusedNode focuses a node.
func (g *Graph) SetFocusedNode(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sel.FocusedNode = id
}

// SetSelectedEdge selects an edge.
func (g *Graph) SetSelectedEdge(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sel.SelectedEdge = id
}

// SetFocusedEdge focuses an edge.
func (g *Graph) SetFocusedEdge(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sel.FocusedEdge = id
}

// Selection returns the current selection.
func (g *Graph) Selection() Selection {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.sel
}

// ClearSelection drops every selected and focused element.
func (g *Graph) ClearSelection() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sel = Selection{}
}

// SetLoading marks a fetch in progress.
func (g *Graph) SetLoading(loading bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loading = loading
}

// Loading reports whether a fetch is in progress.
func (g *Graph) Loading() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.loading
}

// IsEmpty reports whether the last load returned no nodes.
func (g *Graph) IsEmpty() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.empty
}

// Reset returns the graph to its initial state.
func (g *Graph) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes, g.edges = nil, nil
	g.byID = make(map[string]int)
	g.sel = Selection{}
	g.loading, g.empty = false, false
}
