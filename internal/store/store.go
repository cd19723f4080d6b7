// Package store defines the facade the sync-and-query engine uses over an
// embedded graph+vector storage engine: node upsert with properties and a
// vector, typed edge CRUD, vector k-NN, and the property/content-hash
// scans the delta engine needs to compute what changed on disk.
package store

import (
	"context"

	"github.com/kevinmichaelchen/helix-tools/internal/decision"
)

// NodeRef is an opaque internal node identity, stable across renumbering
// of the author-assigned decision ids it is resolved from.
type NodeRef uint64

// VectorMatch is one row of a vector_search result.
type VectorMatch struct {
	Node     NodeRef
	Distance float32
}

// PropertyMap is the full set of properties persisted on a decision node,
// keyed by the same field names used in frontmatter plus decision_id,
// file_path, and content_hash.
type PropertyMap map[string]any

// Store is the typed facade over the embedded graph+vector engine that
// the delta and query engines depend on. Every method opens at most one
// write transaction; callers batch their own multi-step operations.
type Store interface {
	// UpsertDecision inserts or replaces the node carrying d's properties
	// and embedding, atomically in one transaction.
	UpsertDecision(ctx context.Context, d *decision.Decision) (NodeRef, error)

	// DeleteDecision removes the node, its embedding, and every edge
	// incident to it, identified by author-assigned decision id.
	DeleteDecision(ctx context.Context, decisionID uint32) error

	// UpsertEdges deletes all existing outgoing edges from fromDecisionID
	// whose kind appears in edges, then inserts the given edges, silently
	// dropping any whose target is not currently indexed.
	UpsertEdges(ctx context.Context, fromDecisionID uint32, edges []decision.Relationship) error

	// VectorSearch returns the k nearest neighbors of query by cosine
	// distance over the "decision" vector label.
	VectorSearch(ctx context.Context, query []float32, k int) ([]VectorMatch, error)

	// NodeProperties fetches every property recorded on ref.
	NodeProperties(ctx context.Context, ref NodeRef) (PropertyMap, error)

	// NodeByDecisionID resolves an author-assigned decision id to its
	// current NodeRef via the secondary index.
	NodeByDecisionID(ctx context.Context, decisionID uint32) (NodeRef, error)

	// Outgoing lists the NodeRefs reachable by a single edge of kind from
	// ref, in insertion order.
	Outgoing(ctx context.Context, ref NodeRef, kind decision.RelationKind) ([]NodeRef, error)

	// Incoming lists the NodeRefs with an edge of kind pointing at ref.
	Incoming(ctx context.Context, ref NodeRef, kind decision.RelationKind) ([]NodeRef, error)

	// AllContentHashes returns every indexed file_path mapped to its last
	// recorded content_hash, used once per sync to compute the delta.
	AllContentHashes(ctx context.Context) (map[string]string, error)

	// DecisionIDForPath resolves an indexed file_path back to the
	// author-assigned decision id recorded against it, for removing
	// decisions whose file has disappeared from the directory.
	DecisionIDForPath(ctx context.Context, filePath string) (uint32, error)

	// Fingerprint returns the embedder fingerprint recorded at last sync,
	// or "" if the index has never been synced.
	Fingerprint(ctx context.Context) (string, error)

	// SetFingerprint records the embedder fingerprint used by the latest
	// sync; the delta engine calls it once a sync's writes are done.
	SetFingerprint(ctx context.Context, fingerprint string) error

	// Close releases the underlying database handle.
	Close() error
}
