package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sweetpotato0/ragdeck/api"
	"github.com/sweetpotato0/ragdeck/client"
	"github.com/sweetpotato0/ragdeck/pkg/logging"
	"github.com/sweetpotato0/ragdeck/state"
)

func sampleStatuses() api.DocsStatusesResponse {
	return api.DocsStatusesResponse{Statuses: map[api.DocStatus][]api.Document{
		api.DocStatusProcessed:    {{ID: "a"}, {ID: "b"}, {ID: "c"}},
		api.DocStatusPending:      {{ID: "d"}},
		api.DocStatusProcessing:   {{ID: "e"}, {ID: "f"}},
		api.DocStatusFailed:       {{ID: "g"}},
		api.DocStatusPreprocessed: {{ID: "h"}},
	}}
}

type fakeDocs struct {
	mu    sync.Mutex
	resp  api.DocsStatusesResponse
	err   error
	calls int
}

func (f *fakeDocs) All(context.Context) (api.DocsStatusesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.resp, f.err
}

type fakeHealth struct {
	resp api.HealthStatus
	err  error
}

func (f fakeHealth) Check(context.Context) (api.HealthStatus, error) { return f.resp, f.err }

type fakePipeline struct {
	resp api.PipelineStatus
	err  error
}

func (f fakePipeline) PipelineStatus(context.Context) (api.PipelineStatus, error) {
	return f.resp, f.err
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name        string
		health      api.HealthStatus
		wantVersion string
	}{
		{"with version", api.HealthStatus{Status: "healthy", CoreVersion: "1.4.0"}, "1.4.0"},
		{"missing version", api.HealthStatus{Status: "healthy"}, UnknownVersion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(sampleStatuses(), tt.health)
			if s.Total != 8 || s.Processed != 3 || s.Pending != 3 || s.Failed != 1 {
				t.Errorf("counts = %+v", s)
			}
			if s.HealthStatus != "healthy" || s.Version != tt.wantVersion {
				t.Errorf("health = %q version = %q", s.HealthStatus, s.Version)
			}
			if s.Counts[api.DocStatusPreprocessed] != 1 {
				t.Errorf("Counts = %v", s.Counts)
			}
		})
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(api.DocsStatusesResponse{}, api.HealthStatus{Status: "healthy"})
	if s.Total != 0 || s.Processed != 0 || s.Pending != 0 || s.Failed != 0 {
		t.Errorf("empty counts = %+v", s)
	}
}

func TestSnapshot(t *testing.T) {
	src := Source{
		Documents: &fakeDocs{resp: sampleStatuses()},
		Health:    fakeHealth{resp: api.HealthStatus{Status: "healthy", CoreVersion: "v2"}},
		Pipeline:  fakePipeline{resp: api.PipelineStatus{Busy: true, JobName: "indexing"}},
	}
	s, err := Snapshot(context.Background(), src)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if s.Total != 8 || s.Version != "v2" {
		t.Errorf("stats = %+v", s)
	}
	if s.Pipeline == nil || !s.Pipeline.Busy || s.Pipeline.JobName != "indexing" {
		t.Errorf("pipeline = %+v", s.Pipeline)
	}
}

func TestSnapshotErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name    string
		src     Source
		wantErr bool
	}{
		{"documents fail", Source{Documents: &fakeDocs{err: boom}, Health: fakeHealth{}}, true},
		{"health fails", Source{Documents: &fakeDocs{}, Health: fakeHealth{err: boom}}, true},
		{"missing source", Source{Health: fakeHealth{}}, true},
		{"pipeline fails", Source{Documents: &fakeDocs{}, Health: fakeHealth{}, Pipeline: fakePipeline{err: boom}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Snapshot(context.Background(), tt.src)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && s.Pipeline != nil {
				t.Error("failed pipeline should leave Pipeline nil")
			}
		})
	}
}

func TestSnapshotFromClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/documents":
			w.Write([]byte(`{"statuses":{"processed":[{"id":"a"}],"failed":[{"id":"b"}]}}`))
		case "/health":
			w.Write([]byte(`{"status":"healthy","pipeline_busy":false}`))
		case "/documents/pipeline_status":
			w.Write([]byte(`{"busy":false,"latest_message":"idle"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := client.New(srv.URL, client.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatal(err)
	}
	s, err := Snapshot(context.Background(), FromClient(c))
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if s.Total != 2 || s.Processed != 1 || s.Failed != 1 || s.Version != UnknownVersion {
		t.Errorf("stats = %+v", s)
	}
	if s.Pipeline == nil || s.Pipeline.LatestMessage != "idle" {
		t.Errorf("pipeline = %+v", s.Pipeline)
	}
}

func TestPollerRefresh(t *testing.T) {
	docs := &fakeDocs{resp: sampleStatuses()}
	st := state.NewDocuments()
	p := NewPoller(docs, st, WithLogger(logging.Discard()))

	if err := p.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if st.Len() != 8 {
		t.Errorf("Len = %d, want 8", st.Len())
	}
	if st.StatusCounts()[string(api.DocStatusProcessing)] != 2 {
		t.Errorf("StatusCounts = %v", st.StatusCounts())
	}
	if st.Loading() {
		t.Error("Loading left set")
	}

	docs.err = errors.New("offline")
	if err := p.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if st.Len() != 8 {
		t.Error("failed refresh cleared the state")
	}
}

func TestPollerRun(t *testing.T) {
	docs := &fakeDocs{err: errors.New("offline")}
	st := state.NewDocuments()

	var refreshes atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPoller(docs, st,
		WithInterval(10*time.Millisecond),
		WithLogger(logging.Discard()),
		OnRefresh(func(err error) {
			if refreshes.Add(1) == 3 {
				cancel()
			}
		}),
	)

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatal("Run did not stop")
	}
	if n := refreshes.Load(); n < 3 {
		t.Errorf("refreshes = %d, want at least 3", n)
	}
}
