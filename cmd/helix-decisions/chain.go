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

func newChainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chain <id>",
		Short: "Walk the supersession chain from a decision",
		Long: "Sync the index, then walk outgoing SUPERSEDES edges from the given decision id — " +
			"\"what does this decision replace\" — until a decision with no further " +
			"SUPERSEDES edge is reached; that last decision is marked current.",
		Args: cobra.ExactArgs(1),
		RunE: runChain,
	}
}

func runChain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return helixerr.Wrap(err, helixerr.CodeCLIInputInvalid, "parsing decision id")
	}

	eng, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	if _, err := eng.sync(ctx, cmd, true); err != nil {
		return err
	}

	resp, err := query.Chain(ctx, eng.store, uint32(id))
	if err != nil {
		return err
	}

	if wantsJSON(cmd) {
		return writeJSON(cmd.OutOrStdout(), resp)
	}
	return renderChainTable(cmd, resp)
}

func renderChainTable(cmd *cobra.Command, resp *decision.ChainResponse) error {
	header := lipgloss.NewStyle().Bold(true)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)

	fmt.Fprintln(w, header.Render("ID\tTITLE\tSTATUS\tCURRENT"))
	for _, n := range resp.Chain {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\n", n.ID, n.Title, n.Status, n.IsCurrent)
	}
	if resp.Truncated {
		fmt.Fprintln(w, "(chain truncated: a cycle was detected)")
	}
	return w.Flush()
}
