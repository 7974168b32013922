package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ragdeck/api"
	"github.com/sweetpotato0/ragdeck/dashboard"
	"github.com/sweetpotato0/ragdeck/preprocess"
	"github.com/sweetpotato0/ragdeck/state"
)

func newDocsCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "docs",
		Aliases: []string{"documents"},
		Short:   "Manage ingested documents",
	}
	cmd.AddCommand(
		newDocsListCmd(get),
		newDocsWatchCmd(get),
		newDocsUploadCmd(get),
		newDocsInsertCmd(get),
		newDocsScanCmd(get),
		newDocsDeleteCmd(get),
		newDocsClearCmd(get),
		newDocsPipelineCmd(get),
		newDocsCancelCmd(get),
	)
	return cmd
}

func parseStatus(s string) (*api.DocStatus, error) {
	if s == "" {
		return nil, nil
	}
	st := api.DocStatus(s)
	if !st.Valid() {
		return nil, fmt.Errorf("unknown document status %q", s)
	}
	return &st, nil
}

func newDocsListCmd(get func() *app) *cobra.Command {
	var (
		status   string
		sortBy   string
		desc     bool
		page     int
		pageSize int
		all      bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"page"},
		Short:   "List documents one page at a time",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			st, err := parseStatus(status)
			if err != nil {
				return err
			}
			dir := api.SortAsc
			if desc {
				dir = api.SortDesc
			}

			var resp api.PaginatedDocsResponse
			if all {
				// Older backends lack the paginated endpoint; page locally.
				groups, err := a.client.Documents().All(cmd.Context())
				if err != nil {
					return err
				}
				docs := state.NewDocuments()
				docs.Set(groups.All())
				q := state.PageQuery{Page: page, PageSize: pageSize, SortField: sortBy, SortDir: dir}
				if st != nil {
					q.Status = *st
				}
				resp = docs.Page(q)
			} else {
				resp, err = a.client.Documents().Paginated(cmd.Context(), api.PaginatedDocsRequest{
					Page:          page,
					PageSize:      pageSize,
					StatusFilter:  st,
					SortField:     sortBy,
					SortDirection: dir,
				})
				if err != nil {
					return err
				}
			}

			return a.emit(resp, func(w io.Writer) error {
				rows := [][]string{{"ID", "STATUS", "FILE", "LENGTH", "CHUNKS", "UPDATED"}}
				for _, d := range resp.Documents {
					file := d.FilePath
					if d.ErrorMsg != "" {
						file += " (" + truncate(d.ErrorMsg, 40) + ")"
					}
					rows = append(rows, []string{
						d.ID,
						string(d.Status),
						truncate(file, 60),
						strconv.Itoa(d.ContentLength),
						strconv.Itoa(d.ChunksCount),
						d.UpdatedAt,
					})
				}
				if err := a.table(rows); err != nil {
					return err
				}
				p := resp.Pagination
				fmt.Fprintf(w, "\nPage %d of %d, %d documents", p.Page, max(p.TotalPages, 1), p.TotalCount)
				if len(resp.StatusCounts) > 0 {
					var parts []string
					for _, s := range api.DocStatuses {
						if n := resp.StatusCounts[string(s)]; n > 0 {
							parts = append(parts, fmt.Sprintf("%s %d", s, n))
						}
					}
					fmt.Fprintf(w, " (%s)", strings.Join(parts, ", "))
				}
				_, err := fmt.Fprintln(w)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "only documents with this status")
	cmd.Flags().StringVar(&sortBy, "sort", state.SortByUpdated, "sort field: created_at, updated_at, id, file_path")
	cmd.Flags().BoolVar(&desc, "desc", true, "sort descending")
	cmd.Flags().IntVarP(&page, "page", "p", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", state.DefaultPageSize, "documents per page")
	cmd.Flags().BoolVar(&all, "all", false, "fetch every document and page locally")
	return cmd
}

func newDocsWatchCmd(get func() *app) *cobra.Command {
	var (
		interval time.Duration
		status   string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Refresh document status counts until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			st, err := parseStatus(status)
			if err != nil {
				return err
			}
			docs := state.NewDocuments()
			poller := dashboard.NewPoller(a.client.Documents(), docs,
				dashboard.WithInterval(interval),
				dashboard.OnRefresh(func(err error) {
					if err != nil {
						return
					}
					a.printDocCounts(docs, st)
				}),
			)
			if err := poller.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().DurationVarP(&interval, "interval", "i", dashboard.DefaultPollInterval, "refresh interval")
	cmd.Flags().StringVarP(&status, "status", "s", "", "also list documents with this status")
	return cmd
}

func (a *app) printDocCounts(docs *state.Documents, status *api.DocStatus) {
	counts := docs.StatusCounts()
	if a.jsonOut {
		_ = a.printJSON(counts)
		return
	}
	parts := []string{time.Now().Format(time.TimeOnly)}
	for _, s := range api.DocStatuses {
		parts = append(parts, fmt.Sprintf("%s %d", s, counts[string(s)]))
	}
	a.printf("%s\n", strings.Join(parts, "  "))
	if status == nil {
		return
	}
	for _, d := range docs.Filter(*status) {
		a.printf("  %s  %s\n", d.ID, truncate(d.FilePath, 60))
	}
}

func newDocsUploadCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload files for ingestion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			var failed []error
			for _, path := range args {
				resp, err := a.uploadFile(cmd, path)
				if err != nil {
					failed = append(failed, fmt.Errorf("%s: %w", path, err))
					continue
				}
				a.printf("%s: %s %s\n", filepath.Base(path), resp.Status, resp.Message)
			}
			return errors.Join(failed...)
		},
	}
}

func (a *app) uploadFile(cmd *cobra.Command, path string) (api.DocActionResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return api.DocActionResponse{}, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return api.DocActionResponse{}, err
	}

	progress := cmd.ErrOrStderr()
	name := filepath.Base(path)
	resp, err := a.client.Documents().Upload(cmd.Context(), name, f, info.Size(), func(pct int) {
		if !a.jsonOut {
			fmt.Fprintf(progress, "\r%s %3d%%", name, pct)
		}
	})
	if !a.jsonOut {
		fmt.Fprintln(progress)
	}
	return resp, err
}

func newDocsInsertCmd(get func() *app) *cobra.Command {
	var (
		file string
		html bool
		raw  bool
	)
	cmd := &cobra.Command{
		Use:   "insert [text]",
		Short: "Insert text directly",
		Long: `Inserts text given as arguments, read from --file, or read from stdin
when neither is given. Text is cleaned before sending; --html extracts the
readable text of an HTML page first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			var src io.Reader
			switch {
			case file != "":
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				src = f
			case len(args) > 0:
				src = strings.NewReader(strings.Join(args, " "))
			default:
				src = a.in
			}

			var text string
			if html {
				var err error
				if text, err = preprocess.PreprocessHTML(src); err != nil {
					return err
				}
			} else {
				b, err := io.ReadAll(src)
				if err != nil {
					return err
				}
				text = string(b)
				if !raw {
					text = preprocess.Preprocess(text)
				}
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("nothing to insert")
			}

			resp, err := a.client.Documents().InsertText(cmd.Context(), text)
			if err != nil {
				return err
			}
			return a.emit(resp, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: %s\n", resp.Status, resp.Message)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read text from this file")
	cmd.Flags().BoolVar(&html, "html", false, "input is HTML")
	cmd.Flags().BoolVar(&raw, "raw", false, "send text without cleaning")
	return cmd
}

func newDocsScanCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Scan the backend input directory for new files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			resp, err := a.client.Documents().Scan(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(resp, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: %s (track %s)\n", resp.Status, resp.Message, resp.TrackID)
				return err
			})
		},
	}
}

func newDocsDeleteCmd(get func() *app) *cobra.Command {
	var req api.DeleteDocumentsRequest
	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			req.DocIDs = args
			resp, err := a.client.Documents().Delete(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.emit(resp, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: %s\n", resp.Status, resp.Message)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&req.DeleteFile, "delete-file", false, "also delete the uploaded file")
	cmd.Flags().BoolVar(&req.DeleteLLMCache, "delete-cache", false, "also delete cached LLM results")
	return cmd
}

func newDocsClearCmd(get func() *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to clear all documents without --yes")
			}
			a := get()
			resp, err := a.client.Documents().Clear(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(resp, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: %s\n", resp.Status, resp.Message)
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")
	return cmd
}

func newDocsPipelineCmd(get func() *app) *cobra.Command {
	var logs bool
	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"pipeline"},
		Short:   "Show the ingestion pipeline status",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			p, err := a.client.Documents().PipelineStatus(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(p, func(w io.Writer) error {
				fmt.Fprintln(w, pipelineLine(p))
				if p.CancellationRequested {
					fmt.Fprintln(w, "Cancellation requested.")
				}
				if logs {
					for _, m := range p.HistoryMessages {
						fmt.Fprintf(w, "  %s\n", m)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&logs, "logs", "l", false, "print the pipeline message history")
	return cmd
}

func newDocsCancelCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the running ingestion pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			resp, err := a.client.Documents().CancelPipeline(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(resp, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: %s\n", resp.Status, resp.Message)
				return err
			})
		},
	}
}
