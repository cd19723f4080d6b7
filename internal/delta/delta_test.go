package delta_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevinmichaelchen/helix-tools/internal/decision"
	"github.com/kevinmichaelchen/helix-tools/internal/delta"
	"github.com/kevinmichaelchen/helix-tools/internal/embedder"
	"github.com/kevinmichaelchen/helix-tools/internal/store"
	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
)

// fakeStore is an in-memory store.Store stand-in, keyed by decision id, used
// to exercise the delta algorithm without a real database.
type fakeStore struct {
	byID        map[uint32]*decision.Decision
	fingerprint string
	edges       map[uint32][]decision.Relationship
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		byID:  make(map[uint32]*decision.Decision),
		edges: make(map[uint32][]decision.Relationship),
	}
}

func (f *fakeStore) UpsertDecision(_ context.Context, d *decision.Decision) (store.NodeRef, error) {
	copied := *d
	f.byID[d.ID] = &copied
	return store.NodeRef(d.ID), nil
}

func (f *fakeStore) DeleteDecision(_ context.Context, decisionID uint32) error {
	delete(f.byID, decisionID)
	delete(f.edges, decisionID)
	return nil
}

func (f *fakeStore) UpsertEdges(_ context.Context, fromDecisionID uint32, edges []decision.Relationship) error {
	var kept []decision.Relationship
	for _, e := range edges {
		if _, ok := f.byID[e.To]; ok {
			kept = append(kept, e)
		}
	}
	f.edges[fromDecisionID] = kept
	return nil
}

func (f *fakeStore) AllContentHashes(_ context.Context) (map[string]string, error) {
	hashes := make(map[string]string)
	for _, d := range f.byID {
		hashes[d.FilePath] = d.ContentHash
	}
	return hashes, nil
}

func (f *fakeStore) DecisionIDForPath(_ context.Context, filePath string) (uint32, error) {
	for _, d := range f.byID {
		if d.FilePath == filePath {
			return d.ID, nil
		}
	}
	return 0, helixerr.Errorf(helixerr.CodeStoreNotFound, "file %s is not indexed", filePath)
}

func (f *fakeStore) Fingerprint(_ context.Context) (string, error) { return f.fingerprint, nil }

func (f *fakeStore) SetFingerprint(_ context.Context, fingerprint string) error {
	f.fingerprint = fingerprint
	return nil
}

func (f *fakeStore) Close() error { return nil }

// The remaining Store methods are unused by the delta engine; they are
// implemented to satisfy the interface.
func (f *fakeStore) VectorSearch(context.Context, []float32, int) ([]store.VectorMatch, error) {
	return nil, nil
}
func (f *fakeStore) NodeProperties(context.Context, store.NodeRef) (store.PropertyMap, error) {
	return nil, nil
}
func (f *fakeStore) NodeByDecisionID(context.Context, uint32) (store.NodeRef, error) { return 0, nil }
func (f *fakeStore) Outgoing(context.Context, store.NodeRef, decision.RelationKind) ([]store.NodeRef, error) {
	return nil, nil
}
func (f *fakeStore) Incoming(context.Context, store.NodeRef, decision.RelationKind) ([]store.NodeRef, error) {
	return nil, nil
}

func writeDecision(t *testing.T, dir string, id uint32, title, status string, relatedTo string) string {
	t.Helper()
	var rel string
	if relatedTo != "" {
		rel = "related_to: " + relatedTo + "\n"
	}
	content := fmt.Sprintf(`---
id: %d
title: %q
status: %s
date: 2026-01-01
%s---
Body for %s.
`, id, title, status, rel, title)
	name := filepath.Join(dir, fmt.Sprintf("%04d.md", id))
	require.NoError(t, os.WriteFile(name, []byte(content), 0o644))
	return name
}

func TestSync_AddsNewDecisions(t *testing.T) {
	dir := t.TempDir()
	writeDecision(t, dir, 1, "First", "accepted", "")

	st := newFakeStore()
	emb := embedder.NewHash(8)

	stats, err := delta.Run(context.Background(), dir, st, emb, delta.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 0, stats.Removed)
	assert.Equal(t, 0, stats.Unchanged)

	_, ok := st.byID[1]
	assert.True(t, ok)
}

func TestSync_SecondRunWithNoChangesLeavesUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeDecision(t, dir, 1, "First", "accepted", "")

	st := newFakeStore()
	emb := embedder.NewHash(8)
	ctx := context.Background()

	_, err := delta.Run(ctx, dir, st, emb, delta.Options{})
	require.NoError(t, err)

	stats, err := delta.Run(ctx, dir, st, emb, delta.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Added)
	assert.Equal(t, 1, stats.Unchanged)
}

func TestSync_RemovesVanishedDecision(t *testing.T) {
	dir := t.TempDir()
	path := writeDecision(t, dir, 1, "First", "accepted", "")

	st := newFakeStore()
	emb := embedder.NewHash(8)
	ctx := context.Background()

	_, err := delta.Run(ctx, dir, st, emb, delta.Options{})
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	stats, err := delta.Run(ctx, dir, st, emb, delta.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	_, ok := st.byID[1]
	assert.False(t, ok)
}

func TestSync_ReconcilesEdgeToLateAddedNeighbor(t *testing.T) {
	dir := t.TempDir()
	writeDecision(t, dir, 1, "First", "accepted", "2")

	st := newFakeStore()
	emb := embedder.NewHash(8)
	ctx := context.Background()

	// First sync: decision 1 references 2, which isn't indexed yet, so the
	// edge is dropped by UpsertEdges.
	_, err := delta.Run(ctx, dir, st, emb, delta.Options{})
	require.NoError(t, err)
	assert.Empty(t, st.edges[1])

	// Second sync adds decision 2; edge reconciliation should rewrite 1's
	// edges now that 2 exists.
	writeDecision(t, dir, 2, "Second", "accepted", "")
	stats, err := delta.Run(ctx, dir, st, emb, delta.Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Unchanged)
	require.Len(t, st.edges[1], 1)
	assert.Equal(t, uint32(2), st.edges[1][0].To)
}

func TestSync_FingerprintMismatchIsFatalWithoutAllowReembed(t *testing.T) {
	dir := t.TempDir()
	writeDecision(t, dir, 1, "First", "accepted", "")

	st := newFakeStore()
	ctx := context.Background()

	_, err := delta.Run(ctx, dir, st, embedder.NewHash(8), delta.Options{})
	require.NoError(t, err)

	differentEmbedder := embedder.NewHash(16)
	_, err = delta.Run(ctx, dir, st, differentEmbedder, delta.Options{})
	require.Error(t, err)
	assert.Equal(t, helixerr.CodeEmbedderFingerprintMismatch, helixerr.CodeOf(err))
}

func TestSync_AllowReembedReindexesEveryDecision(t *testing.T) {
	dir := t.TempDir()
	writeDecision(t, dir, 1, "First", "accepted", "")

	st := newFakeStore()
	ctx := context.Background()

	_, err := delta.Run(ctx, dir, st, embedder.NewHash(8), delta.Options{})
	require.NoError(t, err)

	differentEmbedder := embedder.NewHash(16)
	stats, err := delta.Run(ctx, dir, st, differentEmbedder, delta.Options{AllowReembed: true})
	require.NoError(t, err)
	assert.True(t, stats.Reembedded)
	assert.Equal(t, 1, stats.Updated)
	assert.Equal(t, 0, stats.Unchanged)
}

func TestSync_MissingDirectoryIsFatal(t *testing.T) {
	st := newFakeStore()
	_, err := delta.Run(context.Background(), filepath.Join(t.TempDir(), "missing"), st, embedder.NewHash(8), delta.Options{})
	require.Error(t, err)
}

func TestSync_ElapsedStatsCarryLoaderWarnings(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.md"), []byte("not frontmatter at all"), 0o644))
	writeDecision(t, dir, 1, "First", "accepted", "")

	st := newFakeStore()
	stats, err := delta.Run(context.Background(), dir, st, embedder.NewHash(8), delta.Options{})
	require.NoError(t, err)
	require.Len(t, stats.Warnings, 1)
}
