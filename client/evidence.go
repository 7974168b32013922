package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sweetpotato0/ragdeck/api"
)

// DefaultEvidenceLimit caps the /kg listing endpoints.
const DefaultEvidenceLimit = 100

// EvidenceAPI queries graded evidence chains. Its requests use the
// evidence timeout rather than the general one.
type EvidenceAPI struct {
	c *Client
}

// enveloped calls an /evidence endpoint and unwraps its {code,message,data} reply.
func enveloped[T any](ctx context.Context, c *Client, method, path string, query url.Values, in any) (T, error) {
	var env api.Envelope[T]
	if err := c.doJSON(ctx, method, path, query, in, &env, c.evidenceTimeout); err != nil {
		var zero T
		return zero, err
	}
	if err := env.Err(); err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return env.Data, nil
}

// Query searches evidence entities.
func (e *EvidenceAPI) Query(ctx context.Context, params api.EvidenceQueryParams) (api.EvidenceQueryResponse, error) {
	return enveloped[api.EvidenceQueryResponse](ctx, e.c, http.MethodPost, "/evidence/query", nil, params)
}

// Stats returns evidence statistics, optionally for one scene.
func (e *EvidenceAPI) Stats(ctx context.Context, sceneTag string) (api.EvidenceStats, error) {
	var q url.Values
	if sceneTag != "" {
		q = url.Values{"scene_tag": {sceneTag}}
	}
	return enveloped[api.EvidenceStats](ctx, e.c, http.MethodGet, "/evidence/stats", q, nil)
}

// Entity returns one entity with its evidence chains.
func (e *EvidenceAPI) Entity(ctx context.Context, name string) (api.EvidenceEntity, error) {
	return enveloped[api.EvidenceEntity](ctx, e.c, http.MethodGet, "/evidence/entity/"+url.PathEscape(name), nil, nil)
}

// Chain returns the raw details of one evidence chain.
func (e *EvidenceAPI) Chain(ctx context.Context, id string) (map[string]any, error) {
	return enveloped[map[string]any](ctx, e.c, http.MethodGet, "/evidence/chain/"+url.PathEscape(id), nil, nil)
}

// Visualize returns a graph of evidence around an entity.
func (e *EvidenceAPI) Visualize(ctx context.Context, req api.VisualizeRequest) (api.EvidenceGraphData, error) {
	return enveloped[api.EvidenceGraphData](ctx, e.c, http.MethodPost, "/evidence/visualize", nil, req)
}

// EntitiesByLevel lists entities graded at level.
func (e *EvidenceAPI) EntitiesByLevel(ctx context.Context, level api.EvidenceLevel, limit int) ([]map[string]any, error) {
	return e.list(ctx, "/kg/entities/by-evidence-level", url.Values{"level": {string(level)}}, limit)
}

// RelationsByLevel lists relations graded at level.
func (e *EvidenceAPI) RelationsByLevel(ctx context.Context, level api.EvidenceLevel, limit int) ([]map[string]any, error) {
	return e.list(ctx, "/kg/relations/by-evidence-level", url.Values{"level": {string(level)}}, limit)
}

// RelationsByType lists relations of one type.
func (e *EvidenceAPI) RelationsByType(ctx context.Context, typ api.RelationType, limit int) ([]map[string]any, error) {
	return e.list(ctx, "/kg/relations/by-type", url.Values{"type": {string(typ)}}, limit)
}

// EntitiesByLevelAndScene lists entities graded at level within scene.
func (e *EvidenceAPI) EntitiesByLevelAndScene(ctx context.Context, level api.EvidenceLevel, scene string, limit int) ([]map[string]any, error) {
	return e.list(ctx, "/kg/entities/by-level-and-scene", url.Values{"level": {string(level)}, "scene": {scene}}, limit)
}

// SupportContradict returns the supporting and contradicting evidence for an entity.
func (e *EvidenceAPI) SupportContradict(ctx context.Context, name string, minCount int) (api.SupportContradict, error) {
	if minCount <= 0 {
		minCount = 1
	}
	var out api.SupportContradict
	q := url.Values{"min_count": {strconv.Itoa(minCount)}}
	err := e.c.doJSON(ctx, http.MethodGet, "/kg/evidence/support-contradict/"+url.PathEscape(name), q, nil, &out, e.c.evidenceTimeout)
	return out, err
}

// Aggregate aggregates evidence for an entity or level.
func (e *EvidenceAPI) Aggregate(ctx context.Context, req api.AggregateRequest) (map[string]any, error) {
	var out map[string]any
	err := e.c.doJSON(ctx, http.MethodPost, "/kg/evidence/aggregate", nil, req, &out, e.c.evidenceTimeout)
	return out, err
}

// list calls a /kg listing endpoint; these reply without an envelope.
func (e *EvidenceAPI) list(ctx context.Context, path string, q url.Values, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = DefaultEvidenceLimit
	}
	q.Set("limit", strconv.Itoa(limit))
	var out []map[string]any
	err := e.c.doJSON(ctx, http.MethodGet, path, q, nil, &out, e.c.evidenceTimeout)
	return out, err
}
