package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ragdeck/auth"
)

func newLoginCmd(get func() *app) *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the backend",
		Long: `Signs in and stores the access token.

When the backend runs without authentication, login signs in as a guest
and no credentials are needed. The password may also come from
RAGDECK_PASSWORD or be typed on stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			ctx := cmd.Context()

			required, err := auth.Discover(ctx, a.client.Auth(), a.session)
			if err != nil {
				return err
			}
			if !required {
				a.printf("Authentication is disabled on this backend; signed in as guest.\n")
				return nil
			}

			if password == "" {
				password = os.Getenv("RAGDECK_PASSWORD")
			}
			reader := bufio.NewReader(a.in)
			if username == "" {
				if username, err = prompt(a.out, reader, "Username: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = prompt(a.out, reader, "Password: "); err != nil {
					return err
				}
			}

			resp, err := auth.Login(ctx, a.client.Auth(), a.session, username, password)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return a.printJSON(a.session.Snapshot())
			}
			who := username
			if a.session.Snapshot().Guest {
				who = "guest"
			}
			a.printf("Signed in as %s", who)
			if resp.CoreVersion != "" {
				a.printf(" (core %s, api %s)", resp.CoreVersion, resp.APIVersion)
			}
			a.printf("\n")
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	return cmd
}

func prompt(w io.Writer, r *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}

func newLogoutCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			a.printf("Signed out.\n")
			return nil
		},
	}
}

func newStatusCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the stored sign-in state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			st := a.session.Snapshot()
			st.Token = ""
			return a.emit(st, func(w io.Writer) error {
				switch {
				case !st.Authenticated:
					fmt.Fprintln(w, "Not signed in.")
				case st.Guest:
					fmt.Fprintln(w, "Signed in as guest.")
				default:
					fmt.Fprintf(w, "Signed in as %s.\n", st.Username)
				}
				if st.CoreVersion != "" {
					fmt.Fprintf(w, "Backend core %s, api %s\n", st.CoreVersion, st.APIVersion)
				}
				fmt.Fprintf(w, "Backend URL %s\n", a.client.BaseURL())
				return nil
			})
		},
	}
}
