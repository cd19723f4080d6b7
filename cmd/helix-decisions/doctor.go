package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	"github.com/kevinmichaelchen/helix-tools/internal/config"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the binary, platform, config, index directory, and disk space for this installation.",
		RunE:  runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, cfgErr := config.Load(cfgPath)

	dir, _ := cmd.Flags().GetString("directory")
	if dir == "" && cfg != nil {
		dir = cfg.Index.Directory
	}

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Config", func() string { return checkConfig(cfgPath, cfgErr) }},
		{"Embedder", func() string { return checkEmbedder(cfg) }},
		{"Index directory", func() string { return checkIndexDir(dir) }},
		{"Disk space", func() string { return checkDiskSpace(dir) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-18s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}

	return nil
}

func checkBinary() string {
	return fmt.Sprintf("helix-decisions (%s/%s)", runtime.GOOS, runtime.GOARCH)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig(cfgPath string, err error) string {
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	if cfgPath != "" {
		return fmt.Sprintf("loaded from %s", cfgPath)
	}
	if discovered, derr := config.DefaultConfigPath(); derr == nil {
		if _, statErr := os.Stat(discovered); statErr == nil {
			return fmt.Sprintf("loaded from %s", discovered)
		}
	}
	return "using built-in defaults (no config file found)"
}

func checkEmbedder(cfg *config.Config) string {
	if cfg == nil {
		return "unavailable (config failed to load)"
	}
	return fmt.Sprintf("%s, model=%s, dimension=%d", cfg.Embedder.Provider, cfg.Embedder.Model, cfg.Embedder.Dimension)
}

func checkIndexDir(dir string) string {
	if dir == "" {
		return "not configured"
	}
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return fmt.Sprintf("does not exist yet: %s", dir)
	}
	if err != nil {
		return fmt.Sprintf("error: %s", err)
	}
	if !info.IsDir() {
		return fmt.Sprintf("%s exists but is not a directory", dir)
	}
	return dir
}

func checkDiskSpace(dir string) string {
	path := dir
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path, _ = os.UserHomeDir()
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)
	return formatBytes(availBytes) + " available"
}

func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}

