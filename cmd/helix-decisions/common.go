package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kevinmichaelchen/helix-tools/internal/config"
	"github.com/kevinmichaelchen/helix-tools/internal/delta"
	"github.com/kevinmichaelchen/helix-tools/internal/embedder"
	"github.com/kevinmichaelchen/helix-tools/internal/lock"
	"github.com/kevinmichaelchen/helix-tools/internal/secrets"
	"github.com/kevinmichaelchen/helix-tools/internal/store"
	"github.com/kevinmichaelchen/helix-tools/internal/store/sqlite"
	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
)

// engine bundles everything a subcommand needs to run a sync and then a
// query: the resolved config, the open store, the embedder, and the
// directory lock held for the command's lifetime. Close releases all of
// it in the right order.
type engine struct {
	cfg      *config.Config
	store    store.Store
	embedder embedder.Embedder
	lock     *lock.Lock
	dir      string
}

// openEngine loads configuration, resolves the index directory and
// embedder credentials, opens the store, and acquires the directory
// lock. The search, chain, and related subcommands all go through this
// single setup path; doctor and init do not open the store.
func openEngine(cmd *cobra.Command) (*engine, error) {
	cfgPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	config.WarnInsecurePermissions(cfgPath)

	dir, _ := cmd.Flags().GetString("directory")
	if dir == "" {
		dir = cfg.Index.Directory
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "creating index directory", helixerr.FieldDirectory(dir))
	}

	l, err := lock.AcquireExclusive(dir)
	if err != nil {
		return nil, err
	}

	emb, err := buildEmbedder(cfg.Embedder)
	if err != nil {
		_ = l.Release()
		return nil, err
	}

	st, err := sqlite.Open(store.Config{
		Path:           filepath.Join(dir, "index.db"),
		Dimension:      cfg.Embedder.Dimension,
		M:              cfg.Embedder.M,
		EFConstruction: cfg.Embedder.EFConstruction,
		EFSearch:       cfg.Embedder.EFSearch,
	})
	if err != nil {
		_ = l.Release()
		return nil, err
	}

	return &engine{cfg: cfg, store: st, embedder: emb, lock: l, dir: dir}, nil
}

func (e *engine) Close() {
	if e == nil {
		return
	}
	if e.store != nil {
		_ = e.store.Close()
	}
	_ = e.lock.Release()
}

// buildEmbedder resolves the configured embedder's api_key_ref through the
// OS keyring (if it names a keyring:// URI) and constructs the provider
// implementation named by cfg.Provider.
func buildEmbedder(cfg config.EmbedderConfig) (embedder.Embedder, error) {
	switch cfg.Provider {
	case "openai":
		apiKey, err := secrets.ResolveKeyringURI(secrets.NewKeyringStore(), cfg.APIKeyRef)
		if err != nil {
			return nil, err
		}
		return embedder.NewOpenAI(embedder.Config{
			Provider:  cfg.Provider,
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		}, apiKey)
	default:
		return embedder.NewHash(cfg.Dimension), nil
	}
}

// sync runs the delta engine against e's directory. For a write-bearing
// command (search) an embedding failure is fatal. For a read-only command
// (chain, related) an embedding failure during sync is logged and
// swallowed so the query can still answer from the index as it last
// stood — per §7's "read-only ops unaffected" carve-out for
// EmbeddingFailure.
func (e *engine) sync(ctx context.Context, cmd *cobra.Command, readOnly bool) (*delta.Stats, error) {
	allowReembed, _ := cmd.Flags().GetBool("allow-reembed")

	stats, err := delta.Run(ctx, e.dir, e.store, e.embedder, delta.Options{AllowReembed: allowReembed})
	if err != nil {
		if readOnly && helixerr.CodeOf(err) == helixerr.CodeEmbedderRequestFailure {
			slog.Warn("sync skipped: embedder unavailable, answering from existing index", "error", err)
			return nil, nil
		}
		return nil, err
	}

	for _, w := range stats.Warnings {
		slog.Warn("skipped malformed decision", "path", w.Path, "reason", w.Reason)
	}

	return stats, nil
}

func wantsJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
