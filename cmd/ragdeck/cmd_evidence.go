package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ragdeck/api"
)

func newEvidenceCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evidence",
		Short: "Query graded evidence",
	}
	cmd.AddCommand(
		newEvidenceQueryCmd(get),
		newEvidenceStatsCmd(get),
		newEvidenceEntityCmd(get),
		newEvidenceChainCmd(get),
		newEvidenceSupportCmd(get),
	)
	return cmd
}

func parseLevels(in []string) ([]api.EvidenceLevel, error) {
	out := make([]api.EvidenceLevel, 0, len(in))
	for _, s := range in {
		l := api.EvidenceLevel(strings.ToUpper(s))
		if !slices.Contains(api.EvidenceLevels, l) {
			return nil, fmt.Errorf("unknown evidence level %q", s)
		}
		out = append(out, l)
	}
	return out, nil
}

func parseRelations(in []string) ([]api.RelationType, error) {
	out := make([]api.RelationType, 0, len(in))
	for _, s := range in {
		r := api.RelationType(strings.ToLower(s))
		if !slices.Contains(api.RelationTypes, r) {
			return nil, fmt.Errorf("unknown relation type %q", s)
		}
		out = append(out, r)
	}
	return out, nil
}

func newEvidenceQueryCmd(get func() *app) *cobra.Command {
	var (
		p         api.EvidenceQueryParams
		levels    []string
		relations []string
		desc      bool
	)
	cmd := &cobra.Command{
		Use:   "query [keyword]",
		Short: "Search evidence entities",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			var err error
			if p.EvidenceLevels, err = parseLevels(levels); err != nil {
				return err
			}
			if p.RelationTypes, err = parseRelations(relations); err != nil {
				return err
			}
			if len(args) == 1 {
				p.Keyword = args[0]
			}
			p.SortOrder = api.SortAsc
			if desc {
				p.SortOrder = api.SortDesc
			}

			resp, err := a.client.Evidence().Query(cmd.Context(), p)
			if err != nil {
				return err
			}
			return a.emit(resp, func(w io.Writer) error {
				rows := [][]string{{"ENTITY", "TYPE", "LEVEL", "CONFIDENCE", "CHAINS", "SOURCE"}}
				for _, e := range resp.Items {
					rows = append(rows, []string{
						e.EntityName,
						e.EntityType,
						string(e.EvidenceLevel),
						strconv.FormatFloat(e.Confidence, 'f', 2, 64),
						strconv.Itoa(len(e.EvidenceChains)),
						truncate(e.SourceProvenance.FileName, 40),
					})
				}
				if err := a.table(rows); err != nil {
					return err
				}
				_, err := fmt.Fprintf(w, "\nPage %d of %d, %d entities\n", resp.Page, max(resp.TotalPages, 1), resp.Total)
				return err
			})
		},
	}
	cmd.Flags().StringSliceVarP(&levels, "level", "l", nil, "evidence levels to include (S, A, B, C)")
	cmd.Flags().StringSliceVarP(&relations, "relation", "r", nil, "relation types to include")
	cmd.Flags().StringSliceVar(&p.SceneTags, "scene", nil, "scene tags to include")
	cmd.Flags().IntVarP(&p.Page, "page", "p", 1, "page number")
	cmd.Flags().IntVar(&p.PageSize, "page-size", 20, "entities per page")
	cmd.Flags().StringVar(&p.SortBy, "sort", api.EvidenceSortRelevance, "sort key: relevance, evidence_level, confidence, update_time")
	cmd.Flags().BoolVar(&desc, "desc", true, "sort descending")
	return cmd
}

func newEvidenceStatsCmd(get func() *app) *cobra.Command {
	var scene string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize evidence by level, relation and scene",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			s, err := a.client.Evidence().Stats(cmd.Context(), scene)
			if err != nil {
				return err
			}
			return a.emit(s, func(w io.Writer) error {
				fmt.Fprintf(w, "Total: %d\n\nBy level:\n", s.Total)
				for _, l := range api.EvidenceLevels {
					fmt.Fprintf(w, "  %-4s %-8d %s\n", l, s.ByLevel[l], api.LevelCatalog[l].Description)
				}
				fmt.Fprintln(w, "\nBy relation:")
				for _, r := range api.RelationTypes {
					fmt.Fprintf(w, "  %s %-11s %d\n", api.RelationCatalog[r].Icon, r, s.ByRelationType[r])
				}
				if len(s.ByScene) > 0 {
					fmt.Fprintln(w, "\nBy scene:")
					for _, tag := range slices.Sorted(maps.Keys(s.ByScene)) {
						fmt.Fprintf(w, "  %-20s %d\n", tag, s.ByScene[tag])
					}
				}
				r := s.SupportContradictRatio
				_, err := fmt.Fprintf(w, "\nSupport/contradict: %d/%d (%s)\n", r.Support, r.Contradict, r.Ratio)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&scene, "scene", "", "restrict to one scene tag")
	return cmd
}

func newEvidenceEntityCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "entity <name>",
		Short: "Show an entity and its evidence chains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			e, err := a.client.Evidence().Entity(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.emit(e, func(w io.Writer) error {
				fmt.Fprintf(w, "%s (%s), level %s, confidence %.2f\n", e.EntityName, e.EntityType, e.EvidenceLevel, e.Confidence)
				if e.Description != "" {
					fmt.Fprintf(w, "%s\n", e.Description)
				}
				if src := e.SourceProvenance; src.FileName != "" {
					fmt.Fprintf(w, "Source: %s (doc %s, chunk %s)\n", src.FileName, src.DocID, src.ChunkID)
				}
				chains := slices.Clone(e.EvidenceChains)
				slices.SortStableFunc(chains, func(x, y api.EvidenceChain) int {
					return x.EvidenceLevel.Rank() - y.EvidenceLevel.Rank()
				})
				if len(chains) == 0 {
					return nil
				}
				fmt.Fprintln(w)
				rows := [][]string{{"CHAIN", "RELATION", "TARGET", "LEVEL", "CONFIDENCE"}}
				for _, c := range chains {
					rows = append(rows, []string{
						c.ChainID,
						api.RelationCatalog[c.ChainType].Icon + " " + string(c.ChainType),
						c.TargetEntity,
						string(c.EvidenceLevel),
						strconv.FormatFloat(c.Confidence, 'f', 2, 64),
					})
				}
				return a.table(rows)
			})
		},
	}
}

func newEvidenceChainCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "chain <id>",
		Short: "Show the details of one evidence chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			c, err := a.client.Evidence().Chain(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printJSON(c)
		},
	}
}

func newEvidenceSupportCmd(get func() *app) *cobra.Command {
	var minCount int
	cmd := &cobra.Command{
		Use:   "support <entity>",
		Short: "Count supporting and contradicting evidence for an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			sc, err := a.client.Evidence().SupportContradict(cmd.Context(), args[0], minCount)
			if err != nil {
				return err
			}
			return a.emit(sc, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "%s: %d supporting, %d contradicting\n", args[0], sc.SupportCount, sc.ContradictCount)
				return err
			})
		},
	}
	cmd.Flags().IntVar(&minCount, "min", 1, "minimum evidence count")
	return cmd
}
