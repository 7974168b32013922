package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ragdeck/api"
	"github.com/sweetpotato0/ragdeck/history"
	"github.com/sweetpotato0/ragdeck/session"
)

type queryFlags struct {
	mode     string
	topK     int
	noStream bool
}

func (f queryFlags) options() ([]session.Option, error) {
	var opts []session.Option
	if f.mode != "" {
		m, err := api.ParseQueryMode(f.mode)
		if err != nil {
			return nil, err
		}
		opts = append(opts, session.WithMode(m))
	}
	if f.topK > 0 {
		opts = append(opts, session.WithTopK(f.topK))
	}
	return opts, nil
}

func newQueryCmd(get func() *app) *cobra.Command {
	var f queryFlags
	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Ask the knowledge base one question",
		Long: `Streams the answer to stdout as it is generated. Error notices the
backend sends mid-stream go to stderr and do not end the answer.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			question := strings.Join(args, " ")
			if f.noStream {
				return a.searchOnce(cmd.Context(), question, f)
			}

			opts, err := a.conversationOptions(cmd.Context())
			if err != nil {
				return err
			}
			extra, err := f.options()
			if err != nil {
				return err
			}
			conv := session.NewConversation(uuid.NewString(), a.client.Query(), append(opts, extra...)...)

			errOut := cmd.ErrOrStderr()
			reply, err := conv.Send(cmd.Context(), question, a.fragmentPrinter())
			return a.finishReply(errOut, reply, err)
		},
	}
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "query mode: naive, local, global, hybrid, mix or bypass")
	cmd.Flags().IntVarP(&f.topK, "top-k", "k", 0, "number of items to retrieve")
	cmd.Flags().BoolVar(&f.noStream, "no-stream", false, "wait for the full answer instead of streaming")
	return cmd
}

// fragmentPrinter writes fragments straight through, unless --json
// collects the answer for a single document.
func (a *app) fragmentPrinter() func(string) {
	if a.jsonOut {
		return nil
	}
	return func(text string) { fmt.Fprint(a.out, text) }
}

func (a *app) finishReply(errOut io.Writer, reply session.Reply, err error) error {
	if a.jsonOut {
		if jerr := a.printJSON(replyView(reply)); jerr != nil {
			return jerr
		}
		return err
	}
	if reply.Response != "" {
		fmt.Fprintln(a.out)
	}
	for _, msg := range reply.Errors {
		fmt.Fprintf(errOut, "error: %s\n", msg)
	}
	if reply.Stats.Dropped > 0 {
		fmt.Fprintf(errOut, "warning: %d malformed frames skipped\n", reply.Stats.Dropped)
	}
	return err
}

type replyJSON struct {
	Response string   `json:"response"`
	Errors   []string `json:"errors,omitempty"`
	Dropped  int      `json:"dropped,omitempty"`
	Trimmed  int      `json:"trimmed,omitempty"`
	Duration string   `json:"duration"`
}

func replyView(r session.Reply) replyJSON {
	return replyJSON{
		Response: r.Response,
		Errors:   r.Errors,
		Dropped:  r.Stats.Dropped,
		Trimmed:  r.Trimmed,
		Duration: r.Duration.Round(time.Millisecond).String(),
	}
}

func (a *app) searchOnce(ctx context.Context, question string, f queryFlags) error {
	mode := a.settings.QueryMode()
	if f.mode != "" {
		m, err := api.ParseQueryMode(f.mode)
		if err != nil {
			return err
		}
		mode = m
	}
	topK := a.settings.TopK()
	if f.topK > 0 {
		topK = f.topK
	}

	streaming := false
	start := time.Now()
	resp, err := a.client.Query().Search(ctx, api.QueryRequest{
		Query:  question,
		Mode:   mode,
		Stream: &streaming,
		TopK:   topK,
	})
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	hist, err := a.historyStore(ctx)
	if err != nil {
		return err
	}
	if hist != nil {
		rec := &history.Record{Query: question, Mode: mode, Response: resp.Response, Duration: elapsed}
		if err := hist.Add(ctx, rec); err != nil {
			a.logger.Warn("failed to record query history", "error", err)
		}
	}
	return a.emit(resp, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, resp.Response)
		return err
	})
}

func newChatCmd(get func() *app) *cobra.Command {
	var (
		f  queryFlags
		id string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Hold a multi-turn conversation with the knowledge base",
		Long: `Reads one question per line. Earlier turns are sent as conversation
history. Commands: /clear forgets the conversation, /mode <name> switches
the query mode, /exit quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			mgr, err := a.sessionManager(ctx)
			if err != nil {
				return err
			}
			conv, err := mgr.GetOrCreate(ctx, id)
			if err != nil {
				return err
			}
			if f.mode != "" {
				m, err := api.ParseQueryMode(f.mode)
				if err != nil {
					return err
				}
				if err := conv.SetMode(m); err != nil {
					return err
				}
			}
			defer a.followSession(ctx)()
			return a.chatLoop(ctx, conv, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&id, "session", "", "resume the conversation with this id")
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "query mode for this conversation")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			mgr, err := a.sessionManager(cmd.Context())
			if err != nil {
				return err
			}
			ids, err := mgr.List(cmd.Context())
			if err != nil {
				return err
			}
			return a.emit(ids, func(w io.Writer) error {
				for _, id := range ids {
					fmt.Fprintln(w, id)
				}
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete stored conversations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			mgr, err := a.sessionManager(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := mgr.Delete(cmd.Context(), id); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
			}
			a.printf("Deleted %d conversation(s).\n", len(args))
			return nil
		},
	})
	return cmd
}

func (a *app) chatLoop(ctx context.Context, conv *session.Conversation, errOut io.Writer) error {
	a.printf("Conversation %s (mode %s). Type /exit to quit.\n", conv.ID(), conv.Mode())
	sc := bufio.NewScanner(a.in)
	for {
		a.printf("> ")
		if !sc.Scan() {
			a.printf("\n")
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == "/exit" || line == "/quit":
			return nil
		case line == "/clear":
			if err := conv.Clear(ctx); err != nil {
				return err
			}
			a.printf("Conversation cleared.\n")
			continue
		case strings.HasPrefix(line, "/mode"):
			name := strings.TrimSpace(strings.TrimPrefix(line, "/mode"))
			if name == "" {
				a.printf("Mode: %s\n", conv.Mode())
				continue
			}
			m, err := api.ParseQueryMode(name)
			if err == nil {
				err = conv.SetMode(m)
			}
			if err != nil {
				fmt.Fprintf(errOut, "error: %v\n", err)
				continue
			}
			a.printf("Mode set to %s.\n", m)
			continue
		}

		reply, err := conv.Send(ctx, line, a.fragmentPrinter())
		if err = a.finishReply(errOut, reply, err); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, session.ErrBusy) {
				return err
			}
			fmt.Fprintf(errOut, "error: %v\n", err)
		}
	}
}

func newHistoryCmd(get func() *app) *cobra.Command {
	var (
		limit int
		full  bool
	)
	cmd := &cobra.Command{
		Use:   "history [search terms]",
		Short: "List or search past queries",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()
			hist, err := a.historyStore(ctx)
			if err != nil {
				return err
			}
			if hist == nil {
				return errors.New("query history is disabled")
			}

			var recs []*history.Record
			if len(args) > 0 {
				recs, err = hist.Search(ctx, strings.Join(args, " "), limit)
			} else {
				recs, err = hist.Recent(ctx, limit)
			}
			if err != nil {
				return err
			}
			return a.emit(recs, func(w io.Writer) error {
				if len(recs) == 0 {
					_, err := fmt.Fprintln(w, "No queries recorded.")
					return err
				}
				if full {
					for _, r := range recs {
						fmt.Fprintf(w, "[%s] %s (%s)\nQ: %s\nA: %s\n\n",
							r.CreatedAt.Local().Format(time.DateTime), r.ID, r.Mode, r.Query, r.Response)
					}
					return nil
				}
				rows := [][]string{{"WHEN", "MODE", "QUERY", "ANSWER", "ERRORS"}}
				for _, r := range recs {
					rows = append(rows, []string{
						r.CreatedAt.Local().Format(time.DateTime),
						string(r.Mode),
						truncate(r.Query, 40),
						truncate(strings.ReplaceAll(r.Response, "\n", " "), 60),
						strconv.Itoa(len(r.Errors)),
					})
				}
				return a.table(rows)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries, 0 for all")
	cmd.Flags().BoolVar(&full, "full", false, "print whole queries and answers")

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			hist, err := a.historyStore(cmd.Context())
			if err != nil {
				return err
			}
			if hist == nil {
				return errors.New("query history is disabled")
			}
			if err := hist.Clear(cmd.Context()); err != nil {
				return err
			}
			a.printf("History cleared.\n")
			return nil
		},
	})
	return cmd
}
