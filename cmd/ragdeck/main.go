// Command ragdeck is a terminal client for a retrieval-augmented generation
// backend: documents, knowledge graph, evidence and streaming queries.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	errorskg "github.com/sweetpotato0/ragdeck/errors"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(os.Stdout, os.Stdin)
	if err := root.ExecuteContext(ctx); err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError prints err with a re-login hint when the backend rejected
// the stored credentials.
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, "Error:", err)
	if errors.Is(err, errorskg.ErrUnauthorized) {
		fmt.Fprintln(w, "Your session is no longer valid; run `ragdeck login` to sign in again.")
	}
}

func newRootCmd(out io.Writer, in io.Reader) *cobra.Command {
	var (
		flags globalFlags
		a     *app
	)
	get := func() *app { return a }

	root := &cobra.Command{
		Use:           "ragdeck",
		Short:         "Terminal client for a RAG knowledge-graph backend",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			a, err = newApp(cmd.Context(), flags, out, in)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a == nil {
				return nil
			}
			return a.close(context.WithoutCancel(cmd.Context()))
		},
	}
	root.SetOut(out)
	root.SetIn(in)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file (default $RAGDECK_HOME/config.yaml)")
	pf.StringVar(&flags.backendURL, "url", "", "backend base URL, overrides the config file")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&flags.jsonOut, "json", false, "print raw JSON")

	root.AddCommand(
		newLoginCmd(get),
		newLogoutCmd(get),
		newStatusCmd(get),
		newHealthCmd(get),
		newDashboardCmd(get),
		newQueryCmd(get),
		newChatCmd(get),
		newHistoryCmd(get),
		newDocsCmd(get),
		newGraphCmd(get),
		newEvidenceCmd(get),
		newSettingsCmd(get),
	)
	return root
}
