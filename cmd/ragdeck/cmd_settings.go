package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ragdeck/api"
)

const settingKeys = "api-key, mode, top-k, max-nodes, health-check"

func newSettingsCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change saved preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			v := a.settings.Values()
			if v.APIKey != "" {
				v.APIKey = "set"
			}
			return a.emit(v, func(w io.Writer) error {
				apiKey := "(none)"
				if v.APIKey != "" {
					apiKey = "(set)"
				}
				fmt.Fprintf(w, "api-key       %s\n", apiKey)
				fmt.Fprintf(w, "mode          %s\n", v.QueryMode)
				fmt.Fprintf(w, "top-k         %d\n", v.TopK)
				fmt.Fprintf(w, "max-nodes     %d\n", v.GraphMaxNodes)
				_, err := fmt.Fprintf(w, "health-check  %t\n", v.EnableHealthCheck)
				return err
			})
		},
	}
	cmd.AddCommand(newSettingsSetCmd(get))
	return cmd
}

func newSettingsSetCmd(get func() *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one preference (" + settingKeys + ")",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			key, value := args[0], args[1]
			s := a.settings

			switch key {
			case "api-key":
				s.SetAPIKey(value)
			case "mode":
				m, err := api.ParseQueryMode(value)
				if err != nil {
					return err
				}
				if err := s.SetQueryMode(m); err != nil {
					return err
				}
			case "top-k":
				k, err := strconv.Atoi(value)
				if err != nil || k <= 0 {
					return fmt.Errorf("top-k must be a positive integer, got %q", value)
				}
				s.SetTopK(k)
			case "max-nodes":
				n, err := strconv.Atoi(value)
				if err != nil || n <= 0 {
					return fmt.Errorf("max-nodes must be a positive integer, got %q", value)
				}
				if !force {
					h, err := a.client.Health().Check(cmd.Context())
					if err != nil {
						return fmt.Errorf("read backend node limit (use --force to skip): %w", err)
					}
					if capN, err := strconv.Atoi(strings.TrimSpace(h.Configuration.MaxGraphNodes)); err == nil {
						s.SetBackendMaxGraphNodes(capN)
					}
				}
				if got := s.SetGraphMaxNodes(n, force); got != n {
					a.printf("max-nodes clamped to the backend limit of %d\n", got)
				}
			case "health-check":
				b, err := strconv.ParseBool(value)
				if err != nil {
					return fmt.Errorf("health-check must be true or false, got %q", value)
				}
				s.SetEnableHealthCheck(b)
			default:
				return fmt.Errorf("unknown setting %q (want one of %s)", key, settingKeys)
			}

			if err := s.Save(); err != nil {
				return err
			}
			a.printf("Saved %s.\n", key)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "skip the backend limit for max-nodes")
	return cmd
}
