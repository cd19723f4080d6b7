package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root helix-decisions command with all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "helix-decisions",
		Short:         "Query and sync a local decision-record index",
		Long: "helix-decisions indexes a directory of markdown decision records " +
			"into a local vector + relationship-graph store, then answers " +
			"similarity search, supersession-chain, and related-decision queries " +
			"against it.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringP("directory", "d", "", "decisions directory (overrides config)")
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().Bool("json", false, "emit machine-readable JSON instead of a table")
	root.PersistentFlags().Bool("allow-reembed", false, "re-embed every decision even if the embedder fingerprint changed")

	root.AddCommand(
		newSearchCmd(),
		newChainCmd(),
		newRelatedCmd(),
		newDoctorCmd(),
		newInitCmd(),
	)

	return root
}
