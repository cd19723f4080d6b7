package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/kevinmichaelchen/helix-tools/internal/decision"
	"github.com/kevinmichaelchen/helix-tools/internal/query"
	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
)

func newRelatedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "related <id>",
		Short: "Find decisions within N hops of a decision",
		Long: "Sync the index, then breadth-first search outward from the given decision id " +
			"treating all four relationship kinds as undirected, annotating each result " +
			"with the relationship kind it was reached by; the edge direction is not reported.",
		Args: cobra.ExactArgs(1),
		RunE: runRelated,
	}

	cmd.Flags().Int("depth", 1, "maximum BFS depth to traverse")

	return cmd
}

func runRelated(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return helixerr.Wrap(err, helixerr.CodeCLIInputInvalid, "parsing decision id")
	}
	depth, _ := cmd.Flags().GetInt("depth")

	eng, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	if _, err := eng.sync(ctx, cmd, true); err != nil {
		return err
	}

	resp, err := query.Related(ctx, eng.store, uint32(id), depth)
	if err != nil {
		return err
	}

	if wantsJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	return renderRelatedTable(cmd, resp)
}

func renderRelatedTable(cmd *cobra.Command, resp *decision.RelatedResponse) error {
	header := lipgloss.NewStyle().Bold(true)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)

	fmt.Fprintln(w, header.Render("ID\tTITLE\tRELATION\tDEPTH"))
	for _, r := range resp.Related {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", r.ID, r.Title, r.Relation, r.Depth)
	}
	return w.Flush()
}
