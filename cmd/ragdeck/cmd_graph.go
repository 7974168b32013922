package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ragdeck/client"
	"github.com/sweetpotato0/ragdeck/state"
)

func newGraphCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Explore and edit the knowledge graph",
	}
	cmd.AddCommand(
		newGraphLabelsCmd(get),
		newGraphSearchCmd(get),
		newGraphQueryCmd(get),
		newGraphEditCmd(get),
	)
	return cmd
}

func newGraphLabelsCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "labels",
		Short: "List every graph label",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			labels, err := a.client.Graph().Labels(cmd.Context())
			if err != nil {
				return err
			}
			return a.printLabels(labels)
		},
	}
}

func newGraphSearchCmd(get func() *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Find graph labels matching text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			labels, err := a.client.Graph().SearchLabels(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return a.printLabels(labels)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", client.DefaultSearchLimit, "maximum results")
	return cmd
}

func (a *app) printLabels(labels []string) error {
	return a.emit(labels, func(w io.Writer) error {
		for _, l := range labels {
			fmt.Fprintln(w, l)
		}
		return nil
	})
}

func newGraphQueryCmd(get func() *app) *cobra.Command {
	var depth, maxNodes int
	cmd := &cobra.Command{
		Use:     "query <label>",
		Aliases: []string{"show"},
		Short:   "Show the subgraph around a label",
		Long:    `Use "*" as the label to fetch the whole graph up to the node limit.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			if maxNodes <= 0 {
				maxNodes = a.settings.GraphMaxNodes()
			}
			data, err := a.client.Graph().Query(cmd.Context(), args[0], depth, maxNodes)
			if err != nil {
				return err
			}
			g := state.NewGraph()
			g.Load(data)

			return a.emit(data, func(w io.Writer) error {
				if g.IsEmpty() {
					_, err := fmt.Fprintf(w, "No nodes found for %q.\n", args[0])
					return err
				}
				rows := [][]string{{"NODE", "LABELS", "NEIGHBORS", "TYPE"}}
				for _, n := range g.Nodes() {
					typ, _ := n.Properties["entity_type"].(string)
					rows = append(rows, []string{
						n.ID,
						strings.Join(n.Labels, ","),
						strconv.Itoa(len(g.Neighbors(n.ID))),
						typ,
					})
				}
				if err := a.table(rows); err != nil {
					return err
				}
				_, err := fmt.Fprintf(w, "\n%d nodes, %d edges\n", len(g.Nodes()), len(g.Edges()))
				return err
			})
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", client.DefaultMaxDepth, "maximum traversal depth")
	cmd.Flags().IntVarP(&maxNodes, "max-nodes", "n", 0, "maximum nodes (defaults to the settings value)")
	return cmd
}

func newGraphEditCmd(get func() *app) *cobra.Command {
	var rename bool
	cmd := &cobra.Command{
		Use:   "edit <entity> key=value...",
		Short: "Update entity properties",
		Long: `Each value is parsed as JSON when possible and kept as a string
otherwise. Setting entity_name renames the entity and needs --rename.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			data, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			resp, err := a.client.Graph().UpdateEntity(cmd.Context(), args[0], data, rename)
			if err != nil {
				return err
			}
			return a.emit(resp, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: %s\n", resp.Status, resp.Message)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&rename, "rename", false, "allow entity_name to change")
	return cmd
}

func parseAssignments(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		out[key] = v
	}
	return out, nil
}
