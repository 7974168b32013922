package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sweetpotato0/ragdeck/api"
)

// Graph query defaults.
const (
	DefaultMaxDepth    = 3
	DefaultMaxNodes    = 1000
	DefaultSearchLimit = 50
)

// GraphAPI reads and edits the knowledge graph.
type GraphAPI struct {
	c *Client
}

// Query fetches the subgraph around label. Non-positive depth or node
// limits fall back to the defaults.
func (g *GraphAPI) Query(ctx context.Context, label string, maxDepth, maxNodes int) (api.GraphData, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	q := url.Values{}
	q.Set("label", label)
	q.Set("max_depth", strconv.Itoa(maxDepth))
	q.Set("max_nodes", strconv.Itoa(maxNodes))

	var out api.GraphData
	err := g.c.doJSON(ctx, http.MethodGet, "/graphs", q, nil, &out, g.c.timeout)
	return out, err
}

// Labels lists every graph label.
func (g *GraphAPI) Labels(ctx context.Context) ([]string, error) {
	var out []string
	err := g.c.doJSON(ctx, http.MethodGet, "/graph/label/list", nil, nil, &out, g.c.timeout)
	return out, err
}

// SearchLabels finds labels matching query.
func (g *GraphAPI) SearchLabels(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))

	var out []string
	err := g.c.doJSON(ctx, http.MethodGet, "/graph/label/search", q, nil, &out, g.c.timeout)
	return out, err
}

// UpdateEntity edits an entity's properties, optionally renaming it.
func (g *GraphAPI) UpdateEntity(ctx context.Context, name string, data map[string]any, allowRename bool) (api.EntityUpdateResponse, error) {
	var out api.EntityUpdateResponse
	req := api.EntityUpdateRequest{EntityName: name, UpdatedData: data, AllowRename: allowRename}
	err := g.c.doJSON(ctx, http.MethodPost, "/graph/entity/edit", nil, req, &out, g.c.timeout)
	return out, err
}
