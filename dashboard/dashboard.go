// Package dashboard summarizes the backend's document pipeline and health.
package dashboard

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sweetpotato0/ragdeck/api"
	"github.com/sweetpotato0/ragdeck/client"
	"github.com/sweetpotato0/ragdeck/pkg/logging"
)

// UnknownVersion is reported when the backend does not send a core version.
const UnknownVersion = "unknown"

// DocumentLister returns every document grouped by status.
type DocumentLister interface {
	All(ctx context.Context) (api.DocsStatusesResponse, error)
}

// HealthChecker reports backend health.
type HealthChecker interface {
	Check(ctx context.Context) (api.HealthStatus, error)
}

// PipelineReporter reports the ingestion pipeline.
type PipelineReporter interface {
	PipelineStatus(ctx context.Context) (api.PipelineStatus, error)
}

// Source bundles the endpoints a snapshot reads. Pipeline is optional.
type Source struct {
	Documents DocumentLister
	Health    HealthChecker
	Pipeline  PipelineReporter
}

// FromClient reads everything through c.
func FromClient(c *client.Client) Source {
	docs := c.Documents()
	return Source{Documents: docs, Health: c.Health(), Pipeline: docs}
}

// Stats is one dashboard snapshot.
type Stats struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	// Pending includes documents being processed.
	Pending int `json:"pending"`
	Failed  int `json:"failed"`

	HealthStatus string `json:"health_status"`
	Version      string `json:"version"`
	APIVersion   string `json:"api_version,omitempty"`
	PipelineBusy bool   `json:"pipeline_busy"`

	// Pipeline is nil when the pipeline status could not be read.
	Pipeline *api.PipelineStatus `json:"pipeline,omitempty"`
	// Counts maps every reported status to its document count.
	Counts map[api.DocStatus]int `json:"counts"`
}

// Summarize computes the document and health figures.
func Summarize(docs api.DocsStatusesResponse, health api.HealthStatus) Stats {
	s := Stats{
		Total:        len(docs.All()),
		Processed:    docs.Count(api.DocStatusProcessed),
		Pending:      docs.Count(api.DocStatusPending, api.DocStatusProcessing),
		Failed:       docs.Count(api.DocStatusFailed),
		HealthStatus: health.Status,
		Version:      health.CoreVersion,
		APIVersion:   health.APIVersion,
		PipelineBusy: health.PipelineBusy,
		Counts:       make(map[api.DocStatus]int, len(docs.Statuses)),
	}
	if s.Version == "" {
		s.Version = UnknownVersion
	}
	for status, group := range docs.Statuses {
		s.Counts[status] = len(group)
	}
	return s
}

// Snapshot fetches documents, health and pipeline status concurrently.
// Documents and health are required; a pipeline failure is logged and
// leaves Stats.Pipeline nil.
func Snapshot(ctx context.Context, src Source) (Stats, error) {
	if src.Documents == nil || src.Health == nil {
		return Stats{}, fmt.Errorf("dashboard: documents and health sources are required")
	}
	logger := logging.WithComponent("dashboard")

	var (
		docs     api.DocsStatusesResponse
		health   api.HealthStatus
		pipeline *api.PipelineStatus
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		docs, err = src.Documents.All(gctx)
		if err != nil {
			return fmt.Errorf("dashboard: documents: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		health, err = src.Health.Check(gctx)
		if err != nil {
			return fmt.Errorf("dashboard: health: %w", err)
		}
		return nil
	})
	if src.Pipeline != nil {
		g.Go(func() error {
			ps, err := src.Pipeline.PipelineStatus(gctx)
			if err != nil {
				if gctx.Err() == nil {
					logger.Warn("pipeline status unavailable", "error", err)
				}
				return nil
			}
			pipeline = &ps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	s := Summarize(docs, health)
	s.Pipeline = pipeline
	return s, nil
}
