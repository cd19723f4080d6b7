package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kevinmichaelchen/helix-tools/internal/decision"
	"github.com/kevinmichaelchen/helix-tools/internal/query"
	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
)

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find decisions similar to a query",
		Long:  "Sync the index against the decisions directory, then run a semantic similarity search over it.",
		Args:  cobra.ExactArgs(1),
		RunE:  runSearch,
	}

	cmd.Flags().Int("limit", 10, "maximum number of results")
	cmd.Flags().String("status", "", "filter to decisions with this status")
	cmd.Flags().StringSlice("tags", nil, "filter to decisions carrying all of these tags")
	cmd.Flags().Bool("enrich", false, "attach each result's one-hop neighbors")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	eng, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	if _, err := eng.sync(ctx, cmd, false); err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	statusRaw, _ := cmd.Flags().GetString("status")
	tags, _ := cmd.Flags().GetStringSlice("tags")
	enrich, _ := cmd.Flags().GetBool("enrich")

	var status decision.Status
	if statusRaw != "" {
		status, err = decision.ParseStatus(statusRaw)
		if err != nil {
			return helixerr.Wrap(err, helixerr.CodeCLIInputInvalid, "parsing --status")
		}
	}

	resp, err := query.Search(ctx, eng.store, eng.embedder, args[0], query.SearchOptions{
		Limit:  limit,
		Status: status,
		Tags:   tags,
		Enrich: enrich,
	})
	if err != nil {
		return err
	}

	if resp.Count == 0 {
		return helixerr.New(helixerr.CodeQueryEmptyResult, "search returned no results")
	}

	if wantsJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	return renderSearchTable(cmd, resp)
}

func renderSearchTable(cmd *cobra.Command, resp *decision.SearchResponse) error {
	header := lipgloss.NewStyle().Bold(true)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)

	fmt.Fprintln(w, header.Render("ID\tTITLE\tSTATUS\tSCORE\tTAGS"))
	for _, r := range resp.Results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.3f\t%s\n", r.ID, r.Title, r.Status, r.Score, strings.Join(r.Tags, ","))
		for _, n := range r.Related {
			fmt.Fprintf(w, "  ↳ %s %d (%s)\t\t\t\t\n", n.Relation, n.ID, n.Title)
		}
	}
	return w.Flush()
}
