package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sweetpotato0/ragdeck/api"
)

type capture struct {
	method string
	path   string
	query  string
	body   []byte
	header http.Header
}

func recordingHandler(c *capture, reply any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.method = r.Method
		c.path = r.URL.EscapedPath()
		c.query = r.URL.RawQuery
		c.header = r.Header.Clone()
		c.body, _ = io.ReadAll(r.Body)
		writeJSON(w, reply)
	}
}

func TestDocumentsEndpoints(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		call   func(c *Client) error
		method string
		path   string
		body   string
	}{
		{
			name:   "all",
			call:   func(c *Client) error { _, err := c.Documents().All(ctx); return err },
			method: http.MethodGet, path: "/documents",
		},
		{
			name: "paginated",
			call: func(c *Client) error {
				_, err := c.Documents().Paginated(ctx, api.PaginatedDocsRequest{Page: 2, PageSize: 10, SortDirection: api.SortDesc})
				return err
			},
			method: http.MethodPost, path: "/documents/paginated",
			body: `{"page":2,"page_size":10,"status_filter":null,"sort_direction":"desc"}`,
		},
		{
			name:   "insert text",
			call:   func(c *Client) error { _, err := c.Documents().InsertText(ctx, "hello"); return err },
			method: http.MethodPost, path: "/documents/text", body: `{"text":"hello"}`,
		},
		{
			name:   "scan",
			call:   func(c *Client) error { _, err := c.Documents().Scan(ctx); return err },
			method: http.MethodPost, path: "/documents/scan",
		},
		{
			name: "delete",
			call: func(c *Client) error {
				_, err := c.Documents().Delete(ctx, api.DeleteDocumentsRequest{DocIDs: []string{"d1"}, DeleteFile: true})
				return err
			},
			method: http.MethodDelete, path: "/documents/delete_document",
			body: `{"doc_ids":["d1"],"delete_file":true,"delete_llm_cache":false}`,
		},
		{
			name:   "clear",
			call:   func(c *Client) error { _, err := c.Documents().Clear(ctx); return err },
			method: http.MethodDelete, path: "/documents",
		},
		{
			name:   "pipeline status",
			call:   func(c *Client) error { _, err := c.Documents().PipelineStatus(ctx); return err },
			method: http.MethodGet, path: "/documents/pipeline_status",
		},
		{
			name:   "cancel pipeline",
			call:   func(c *Client) error { _, err := c.Documents().CancelPipeline(ctx); return err },
			method: http.MethodPost, path: "/documents/cancel_pipeline",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got capture
			c := newTestClient(t, recordingHandler(&got, map[string]any{}))
			if err := tt.call(c); err != nil {
				t.Fatalf("call: %v", err)
			}
			if got.method != tt.method || got.path != tt.path {
				t.Errorf("request = %s %s, want %s %s", got.method, got.path, tt.method, tt.path)
			}
			if tt.body != "" && strings.TrimSpace(string(got.body)) != tt.body {
				t.Errorf("body = %s, want %s", got.body, tt.body)
			}
			if tt.body != "" && got.header.Get("Content-Type") != "application/json" {
				t.Errorf("Content-Type = %s", got.header.Get("Content-Type"))
			}
		})
	}
}

func TestUpload(t *testing.T) {
	var gotName, gotContent string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName, gotContent = header.Filename, string(data)
		writeJSON(w, api.DocActionResponse{Status: api.DocActionSuccess, TrackID: "t1"})
	}))

	content := strings.Repeat("x", 10000)
	var progress []int
	resp, err := c.Documents().Upload(context.Background(), "notes.txt", strings.NewReader(content), int64(len(content)), func(p int) {
		progress = append(progress, p)
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if resp.Status != api.DocActionSuccess || resp.TrackID != "t1" {
		t.Errorf("resp = %+v", resp)
	}
	if gotName != "notes.txt" || gotContent != content {
		t.Errorf("server got %q with %d bytes", gotName, len(gotContent))
	}
	if len(progress) == 0 || progress[len(progress)-1] != 100 {
		t.Fatalf("progress = %v", progress)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Errorf("progress went backwards: %v", progress)
		}
	}
}

func TestProgressReaderUnknownSize(t *testing.T) {
	var last int
	pr := &progressReader{r: bytes.NewReader([]byte("abc")), total: 0, fn: func(p int) { last = p }}
	io.ReadAll(pr)
	if last != 100 {
		t.Errorf("last = %d, want 100", last)
	}
}

func TestGraphEndpoints(t *testing.T) {
	ctx := context.Background()

	t.Run("query applies defaults and escapes label", func(t *testing.T) {
		var got capture
		c := newTestClient(t, recordingHandler(&got, api.GraphData{Nodes: []api.GraphNode{{ID: "n1"}}}))
		data, err := c.Graph().Query(ctx, "A & B", 0, 0)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(data.Nodes) != 1 {
			t.Errorf("nodes = %v", data.Nodes)
		}
		if got.path != "/graphs" || got.query != "label=A+%26+B&max_depth=3&max_nodes=1000" {
			t.Errorf("request = %s?%s", got.path, got.query)
		}
	})

	t.Run("search labels", func(t *testing.T) {
		var got capture
		c := newTestClient(t, recordingHandler(&got, []string{"Alpha"}))
		labels, err := c.Graph().SearchLabels(ctx, "al", 5)
		if err != nil {
			t.Fatalf("SearchLabels: %v", err)
		}
		if len(labels) != 1 || got.query != "limit=5&q=al" {
			t.Errorf("labels = %v query = %s", labels, got.query)
		}
	})

	t.Run("update entity", func(t *testing.T) {
		var got capture
		c := newTestClient(t, recordingHandler(&got, api.EntityUpdateResponse{Status: "success"}))
		resp, err := c.Graph().UpdateEntity(ctx, "Alpha", map[string]any{"description": "d"}, true)
		if err != nil {
			t.Fatalf("UpdateEntity: %v", err)
		}
		if resp.Status != "success" {
			t.Errorf("status = %s", resp.Status)
		}
		want := `{"entity_name":"Alpha","updated_data":{"description":"d"},"allow_rename":true}`
		if strings.TrimSpace(string(got.body)) != want {
			t.Errorf("body = %s", got.body)
		}
	})
}

func TestAuthEndpoints(t *testing.T) {
	ctx := context.Background()

	t.Run("login posts multipart form", func(t *testing.T) {
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Errorf("ParseMultipartForm: %v", err)
			}
			if r.FormValue("username") != "admin" || r.FormValue("password") != "pw" {
				t.Errorf("form = %v", r.MultipartForm.Value)
			}
			writeJSON(w, api.LoginResponse{AccessToken: "tok", TokenType: "bearer", AuthMode: api.AuthModeEnabled})
		}))
		resp, err := c.Auth().Login(ctx, "admin", "pw")
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if resp.AccessToken != "tok" {
			t.Errorf("token = %s", resp.AccessToken)
		}
	})

	t.Run("status", func(t *testing.T) {
		var got capture
		c := newTestClient(t, recordingHandler(&got, api.AuthStatus{AuthConfigured: false, AccessToken: "guest", AuthMode: api.AuthModeDisabled}))
		st, err := c.Auth().Status(ctx)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if got.path != "/auth-status" || st.AuthMode != api.AuthModeDisabled {
			t.Errorf("path = %s status = %+v", got.path, st)
		}
	})
}

func TestEvidenceEndpoints(t *testing.T) {
	ctx := context.Background()

	t.Run("unwraps envelope", func(t *testing.T) {
		var got capture
		c := newTestClient(t, recordingHandler(&got, api.Envelope[api.EvidenceStats]{Code: 200, Data: api.EvidenceStats{Total: 7}}))
		stats, err := c.Evidence().Stats(ctx, "finance")
		if err != nil {
			t.Fatalf("Stats: %v", err)
		}
		if stats.Total != 7 || got.query != "scene_tag=finance" {
			t.Errorf("stats = %+v query = %s", stats, got.query)
		}
	})

	t.Run("envelope error code", func(t *testing.T) {
		c := newTestClient(t, recordingHandler(&capture{}, api.Envelope[any]{Code: 500, Message: "neo4j down"}))
		_, err := c.Evidence().Query(ctx, api.EvidenceQueryParams{Keyword: "k"})
		if err == nil || !strings.Contains(err.Error(), "neo4j down") {
			t.Errorf("expected envelope error, got %v", err)
		}
	})

	t.Run("entity name is path escaped", func(t *testing.T) {
		var got capture
		c := newTestClient(t, recordingHandler(&got, api.Envelope[api.EvidenceEntity]{Data: api.EvidenceEntity{EntityName: "a/b"}}))
		ent, err := c.Evidence().Entity(ctx, "a/b")
		if err != nil {
			t.Fatalf("Entity: %v", err)
		}
		if got.path != "/evidence/entity/a%2Fb" || ent.EntityName != "a/b" {
			t.Errorf("path = %s entity = %+v", got.path, ent)
		}
	})

	t.Run("kg listings are not enveloped", func(t *testing.T) {
		var got capture
		c := newTestClient(t, recordingHandler(&got, []map[string]any{{"name": "x"}}))
		items, err := c.Evidence().EntitiesByLevelAndScene(ctx, api.EvidenceLevelS, "bank", 0)
		if err != nil {
			t.Fatalf("EntitiesByLevelAndScene: %v", err)
		}
		if len(items) != 1 || got.query != "level=S&limit=100&scene=bank" {
			t.Errorf("items = %v query = %s", items, got.query)
		}
	})

	t.Run("support contradict defaults min count", func(t *testing.T) {
		var got capture
		c := newTestClient(t, recordingHandler(&got, api.SupportContradict{SupportCount: 2}))
		sc, err := c.Evidence().SupportContradict(ctx, "Alpha", 0)
		if err != nil {
			t.Fatalf("SupportContradict: %v", err)
		}
		if sc.SupportCount != 2 || got.query != "min_count=1" {
			t.Errorf("sc = %+v query = %s", sc, got.query)
		}
	})

	t.Run("evidence timeout", func(t *testing.T) {
		release := make(chan struct{})
		c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}), WithEvidenceTimeout(50*time.Millisecond), WithTimeout(0))
		defer close(release)

		_, err := c.Evidence().Chain(ctx, "c1")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("aggregate", func(t *testing.T) {
		var got capture
		c := newTestClient(t, recordingHandler(&got, map[string]any{"count": 3}))
		out, err := c.Evidence().Aggregate(ctx, api.AggregateRequest{EntityName: "A", MinCount: 2})
		if err != nil {
			t.Fatalf("Aggregate: %v", err)
		}
		var body map[string]any
		json.Unmarshal(got.body, &body)
		if out["count"] != float64(3) || body["min_count"] != float64(2) {
			t.Errorf("out = %v body = %v", out, body)
		}
	})
}
