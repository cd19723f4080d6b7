package sqlite

import (
	"context"
	"strings"

	"github.com/kevinmichaelchen/helix-tools/internal/decision"
	"github.com/kevinmichaelchen/helix-tools/internal/store"
	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
)

// UpsertEdges deletes the existing outgoing edges from fromDecisionID
// whose kind appears in edges, then inserts the new edges, silently
// dropping any whose target is not currently indexed (§4.C.4). Outgoing
// edges of kinds that do not appear in edges are left untouched, so an
// empty edges slice deletes nothing.
func (s *Store) UpsertEdges(ctx context.Context, fromDecisionID uint32, edges []decision.Relationship) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "beginning edge transaction")
	}
	defer func() { _ = tx.Rollback() }()

	fromNode, err := nodeByDecisionIDTx(ctx, tx, fromDecisionID)
	if err != nil {
		return err
	}

	args := make([]any, 0, len(decision.RelationKinds)+1)
	args = append(args, fromNode)
	for _, k := range decision.RelationKinds {
		for _, e := range edges {
			if e.Kind == k {
				args = append(args, string(k))
				break
			}
		}
	}
	if kinds := len(args) - 1; kinds > 0 {
		placeholders := strings.Repeat("?,", kinds)
		placeholders = placeholders[:len(placeholders)-1]
		q := `DELETE FROM edges WHERE from_node = ? AND kind IN (` + placeholders + `)`
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "clearing previous outgoing edges")
		}
	}

	const insertQ = `INSERT INTO edges(from_node, kind, to_node) VALUES (?, ?, ?)
ON CONFLICT(from_node, kind, to_node) DO NOTHING`

	for _, e := range edges {
		toNode, err := nodeByDecisionIDTx(ctx, tx, e.To)
		if err != nil {
			if helixerr.IsNotFound(err) {
				continue // target not currently indexed: drop silently per contract
			}
			return err
		}
		if _, err := tx.ExecContext(ctx, insertQ, fromNode, string(e.Kind), toNode); err != nil {
			return helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "inserting edge")
		}
	}

	if err := tx.Commit(); err != nil {
		return helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "committing edge upsert")
	}
	return nil
}

// Outgoing lists the NodeRefs reachable by a single edge of kind from ref.
func (s *Store) Outgoing(ctx context.Context, ref store.NodeRef, kind decision.RelationKind) ([]store.NodeRef, error) {
	return s.neighbors(ctx, `SELECT to_node FROM edges WHERE from_node = ? AND kind = ?`, ref, kind)
}

// Incoming lists the NodeRefs with an edge of kind pointing at ref.
func (s *Store) Incoming(ctx context.Context, ref store.NodeRef, kind decision.RelationKind) ([]store.NodeRef, error) {
	return s.neighbors(ctx, `SELECT from_node FROM edges WHERE to_node = ? AND kind = ?`, ref, kind)
}

func (s *Store) neighbors(ctx context.Context, query string, ref store.NodeRef, kind decision.RelationKind) ([]store.NodeRef, error) {
	rows, err := s.db.QueryContext(ctx, query, int64(ref), string(kind))
	if err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "querying edge neighbors")
	}
	defer func() { _ = rows.Close() }()

	var refs []store.NodeRef
	for rows.Next() {
		var nodeID int64
		if err := rows.Scan(&nodeID); err != nil {
			return nil, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "scanning edge neighbor")
		}
		refs = append(refs, store.NodeRef(nodeID))
	}
	if err := rows.Err(); err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "iterating edge neighbors")
	}

	return refs, nil
}
