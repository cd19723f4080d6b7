// Package delta implements the reconciliation algorithm that brings a
// persistent store into alignment with a directory of markdown decision
// records, by comparing content hashes and rewriting only what changed.
package delta

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"

	"github.com/kevinmichaelchen/helix-tools/internal/decision"
	"github.com/kevinmichaelchen/helix-tools/internal/embedder"
	"github.com/kevinmichaelchen/helix-tools/internal/loader"
	"github.com/kevinmichaelchen/helix-tools/internal/store"
	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
)

// Stats summarizes the effect of one Run call.
type Stats struct {
	Added          int
	Updated        int
	Removed        int
	Unchanged      int
	EdgesRewritten int
	Warnings       []loader.Warning
	Reembedded     bool
}

// Options controls a single Run invocation.
type Options struct {
	// AllowReembed permits a sync to proceed even though the configured
	// embedder's fingerprint differs from the one recorded at last sync;
	// every indexed decision is then treated as changed and re-embedded.
	AllowReembed bool
}

// Run brings st into alignment with the markdown files in dir, following
// the nine-step algorithm of §4.D: load, diff by content hash, remove
// vanished decisions, embed and upsert changed ones, then reconcile edges
// for unchanged neighbors that reference a newly-added id. Every log line
// carries the sync's ULID so concurrent invocations can be told apart.
func Run(ctx context.Context, dir string, st store.Store, emb embedder.Embedder, opts Options) (*Stats, error) {
	syncID := ulid.Make()
	log := slog.With("sync_id", syncID.String(), "directory", dir)
	log.Info("sync starting")

	recorded, reembedAll, err := checkFingerprint(ctx, st, emb, opts.AllowReembed)
	if err != nil {
		return nil, err
	}

	current, warnings, err := loader.Load(dir)
	if err != nil {
		return nil, err
	}
	if len(warnings) > 0 {
		log.Warn("skipped malformed decisions", "count", len(warnings))
	}

	stored, err := st.AllContentHashes(ctx)
	if err != nil {
		return nil, err
	}

	added, updated, unchanged := partition(current, stored, reembedAll)
	changed := append(append([]decision.Decision{}, added...), updated...)
	toRemove := removedPaths(current, stored)

	for _, path := range toRemove {
		decisionID, err := st.DecisionIDForPath(ctx, path)
		if err != nil {
			if helixerr.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if err := st.DeleteDecision(ctx, decisionID); err != nil {
			return nil, err
		}
		log.Info("removed decision", "decision_id", decisionID, "path", path)
	}

	var edgesRewritten int
	if len(changed) > 0 {
		bodies := lo.Map(changed, func(d decision.Decision, _ int) string { return d.Body })

		vectors, err := emb.EmbedBatch(ctx, bodies)
		if err != nil {
			return nil, helixerr.Wrap(err, helixerr.CodeEmbedderRequestFailure, "embedding changed decisions")
		}

		newIDs := make(map[uint32]bool, len(changed))
		for i, d := range changed {
			d.Embedding = vectors[i]
			if _, err := st.UpsertDecision(ctx, &d); err != nil {
				return nil, err
			}
			if err := st.UpsertEdges(ctx, d.ID, d.Edges()); err != nil {
				return nil, err
			}
			newIDs[d.ID] = true
		}

		edgesRewritten, err = reconcileNeighbors(ctx, st, unchanged, newIDs)
		if err != nil {
			return nil, err
		}
	}

	if recorded != emb.Fingerprint() {
		if err := st.SetFingerprint(ctx, emb.Fingerprint()); err != nil {
			return nil, err
		}
	}

	stats := &Stats{
		Added:          len(added),
		Updated:        len(updated),
		Removed:        len(toRemove),
		Unchanged:      len(unchanged),
		EdgesRewritten: edgesRewritten,
		Warnings:       warnings,
		Reembedded:     reembedAll,
	}
	log.Info("sync complete",
		"added", stats.Added, "updated", stats.Updated, "removed", stats.Removed,
		"edges_rewritten", stats.EdgesRewritten)
	return stats, nil
}

// checkFingerprint compares the configured embedder's fingerprint against
// the one recorded at last sync. A mismatch is fatal unless allowReembed
// is set, resolving §9's open question in favor of safety. It returns the
// recorded fingerprint so Run can skip rewriting it when nothing changed.
func checkFingerprint(ctx context.Context, st store.Store, emb embedder.Embedder, allowReembed bool) (string, bool, error) {
	recorded, err := st.Fingerprint(ctx)
	if err != nil {
		return "", false, err
	}
	if recorded == "" || recorded == emb.Fingerprint() {
		return recorded, false, nil
	}
	if !allowReembed {
		return "", false, helixerr.New(helixerr.CodeEmbedderFingerprintMismatch,
			"embedder fingerprint changed since last sync; pass --allow-reembed to re-embed every decision",
			helixerr.Field("recorded", recorded), helixerr.Field("configured", emb.Fingerprint()))
	}
	return recorded, true, nil
}

// partition splits current into added (file path not previously indexed),
// updated (indexed but with a different content hash, or every decision
// when reembedAll is set), and unchanged.
func partition(current []decision.Decision, stored map[string]string, reembedAll bool) (added, updated, unchanged []decision.Decision) {
	for _, d := range current {
		priorHash, existed := stored[d.FilePath]
		switch {
		case !existed:
			added = append(added, d)
		case reembedAll || priorHash != d.ContentHash:
			updated = append(updated, d)
		default:
			unchanged = append(unchanged, d)
		}
	}
	return added, updated, unchanged
}

// removedPaths returns stored file paths that no longer appear in current.
func removedPaths(current []decision.Decision, stored map[string]string) []string {
	present := lo.SliceToMap(current, func(d decision.Decision) (string, bool) { return d.FilePath, true })
	return lo.Filter(lo.Keys(stored), func(path string, _ int) bool { return !present[path] })
}

// reconcileNeighbors re-invokes upsert_edges for every unchanged decision
// whose frontmatter references any id in newIDs, so an edge declared
// toward a decision that was previously skipped (because its target
// wasn't indexed yet) is finally written (§4.D step 8). It returns the
// number of decisions whose edges were rewritten this way.
func reconcileNeighbors(ctx context.Context, st store.Store, unchanged []decision.Decision, newIDs map[uint32]bool) (int, error) {
	var rewritten int
	for _, d := range unchanged {
		if !referencesAny(&d, newIDs) {
			continue
		}
		if err := st.UpsertEdges(ctx, d.ID, d.Edges()); err != nil {
			return rewritten, err
		}
		rewritten++
	}
	return rewritten, nil
}

func referencesAny(d *decision.Decision, ids map[uint32]bool) bool {
	for _, kind := range decision.RelationKinds {
		for _, target := range d.Relations[kind] {
			if ids[target] {
				return true
			}
		}
	}
	return false
}
