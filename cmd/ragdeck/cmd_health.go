package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ragdeck/api"
	"github.com/sweetpotato0/ragdeck/dashboard"
)

func newHealthCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check backend health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			h, err := a.client.Health().Check(cmd.Context())
			if err != nil {
				return err
			}
			if h.CoreVersion != "" {
				if err := a.session.SetVersion(cmd.Context(), h.CoreVersion, h.APIVersion); err != nil {
					a.logger.Warn("failed to store backend version", "error", err)
				}
			}
			return a.emit(h, func(w io.Writer) error {
				fmt.Fprintf(w, "Status:        %s\n", h.Status)
				fmt.Fprintf(w, "Core version:  %s\n", orUnknown(h.CoreVersion))
				fmt.Fprintf(w, "API version:   %s\n", orUnknown(h.APIVersion))
				fmt.Fprintf(w, "Auth mode:     %s\n", orUnknown(string(h.AuthMode)))
				fmt.Fprintf(w, "Pipeline busy: %t\n", h.PipelineBusy)
				fmt.Fprintf(w, "Working dir:   %s\n", h.WorkingDirectory)
				fmt.Fprintf(w, "Input dir:     %s\n", h.InputDirectory)
				return nil
			})
		},
	}
}

func orUnknown(s string) string {
	if s == "" {
		return dashboard.UnknownVersion
	}
	return s
}

func newDashboardCmd(get func() *app) *cobra.Command {
	var watch time.Duration
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Summarize documents, health and the ingestion pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			if watch <= 0 {
				return a.showDashboard(ctx)
			}

			defer a.followSession(ctx)()
			ticker := time.NewTicker(watch)
			defer ticker.Stop()
			for {
				if err := a.showDashboard(ctx); err != nil {
					if ctx.Err() != nil {
						return nil
					}
					a.logger.Warn("dashboard refresh failed", "error", err)
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					a.printf("\n")
				}
			}
		},
	}
	cmd.Flags().DurationVarP(&watch, "watch", "w", 0, "refresh at this interval until interrupted (e.g. 5s)")
	return cmd
}

func (a *app) showDashboard(ctx context.Context) error {
	s, err := dashboard.Snapshot(ctx, dashboard.FromClient(a.client))
	if err != nil {
		return err
	}
	return a.emit(s, func(w io.Writer) error {
		if err := a.table([][]string{
			{"TOTAL", "PROCESSED", "PENDING", "FAILED"},
			{strconv.Itoa(s.Total), strconv.Itoa(s.Processed), strconv.Itoa(s.Pending), strconv.Itoa(s.Failed)},
		}); err != nil {
			return err
		}
		fmt.Fprintf(w, "\nHealth: %s   Version: %s\n", s.HealthStatus, s.Version)
		if p := s.Pipeline; p != nil {
			fmt.Fprintln(w, pipelineLine(*p))
		}
		return nil
	})
}

func pipelineLine(p api.PipelineStatus) string {
	if !p.Busy {
		msg := "Pipeline: idle"
		if p.LatestMessage != "" {
			msg += " (" + p.LatestMessage + ")"
		}
		return msg
	}
	return fmt.Sprintf("Pipeline: %s batch %d/%d, %d docs: %s",
		p.JobName, p.CurBatch, p.Batchs, p.Docs, p.LatestMessage)
}
