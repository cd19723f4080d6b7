package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kevinmichaelchen/helix-tools/internal/config"
	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Bootstrap a default config and decisions directory",
		Long: "Write a commented default config to the standard discovery path if one " +
			"does not already exist, and create the decisions directory it points at.",
		RunE: runInit,
	}

	cmd.Flags().Bool("force", false, "overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	force, _ := cmd.Flags().GetBool("force")

	cfgPath, err := config.DefaultConfigPath()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()

	if _, statErr := os.Stat(cfgPath); statErr == nil && !force {
		fmt.Fprintf(w, "config already exists at %s (use --force to overwrite)\n", cfgPath)
	} else {
		if force {
			if rmErr := os.Remove(cfgPath); rmErr != nil && !os.IsNotExist(rmErr) {
				return helixerr.Wrap(rmErr, helixerr.CodeConfigBootstrapFailed, "removing existing config")
			}
		}
		written := config.BootstrapConfig()
		if written == "" {
			return helixerr.New(helixerr.CodeConfigBootstrapFailed, "failed to write default config")
		}
		fmt.Fprintf(w, "wrote default config to %s\n", written)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Index.Directory, 0o700); err != nil {
		return helixerr.Wrap(err, helixerr.CodeConfigBootstrapFailed, "creating decisions directory", helixerr.FieldDirectory(cfg.Index.Directory))
	}
	fmt.Fprintf(w, "decisions directory ready at %s\n", cfg.Index.Directory)

	return nil
}
