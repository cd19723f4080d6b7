package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/kevinmichaelchen/helix-tools/internal/decision"
	"github.com/kevinmichaelchen/helix-tools/internal/store"
	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
)

// nodeProperties is the JSON shape persisted in decisions.properties,
// carrying every frontmatter field the query engine needs back.
type nodeProperties struct {
	DecisionID  uint32   `json:"decision_id"`
	UUID        string   `json:"uuid,omitempty"`
	Title       string   `json:"title"`
	Status      string   `json:"status"`
	Date        string   `json:"date"`
	Deciders    []string `json:"deciders"`
	Tags        []string `json:"tags"`
	FilePath    string   `json:"file_path"`
	ContentHash string   `json:"content_hash"`
	GitCommit   string   `json:"git_commit,omitempty"`
}

// UpsertDecision inserts or replaces the node carrying d's properties and
// embedding, atomically in one transaction (§4.C.2).
func (s *Store) UpsertDecision(ctx context.Context, d *decision.Decision) (store.NodeRef, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "beginning upsert transaction")
	}
	defer func() { _ = tx.Rollback() }()

	props := nodeProperties{
		DecisionID:  d.ID,
		UUID:        d.UUID,
		Title:       d.Title,
		Status:      string(d.Status),
		Date:        d.Date.Format("2006-01-02"),
		Deciders:    d.Deciders,
		Tags:        d.Tags,
		FilePath:    d.FilePath,
		ContentHash: d.ContentHash,
		GitCommit:   d.GitCommit,
	}
	propJSON, err := json.Marshal(props)
	if err != nil {
		return 0, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "marshalling decision properties")
	}

	const upsertQ = `INSERT INTO decisions(decision_id, file_path, content_hash, properties)
VALUES (?, ?, ?, ?)
ON CONFLICT(decision_id) DO UPDATE SET
	file_path = excluded.file_path,
	content_hash = excluded.content_hash,
	properties = excluded.properties`

	if _, err := tx.ExecContext(ctx, upsertQ, d.ID, d.FilePath, d.ContentHash, string(propJSON)); err != nil {
		return 0, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "upserting decision row")
	}

	nodeID, err := nodeByDecisionIDTx(ctx, tx, d.ID)
	if err != nil {
		return 0, err
	}

	if len(d.Embedding) > 0 {
		blob, err := sqlite_vec.SerializeFloat32(d.Embedding)
		if err != nil {
			return 0, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "serializing embedding")
		}

		// vec0 has no ON CONFLICT support; delete-then-insert for upsert.
		if _, err := tx.ExecContext(ctx, `DELETE FROM decision_vectors WHERE node_id = ?`, nodeID); err != nil {
			return 0, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "clearing previous embedding")
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO decision_vectors(node_id, embedding) VALUES (?, ?)`, nodeID, blob); err != nil {
			return 0, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "inserting embedding")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "committing decision upsert")
	}

	return store.NodeRef(nodeID), nil
}

// DeleteDecision removes the node, its embedding, and every edge incident
// to it (§4.C.3).
func (s *Store) DeleteDecision(ctx context.Context, decisionID uint32) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "beginning delete transaction")
	}
	defer func() { _ = tx.Rollback() }()

	nodeID, err := nodeByDecisionIDTx(ctx, tx, decisionID)
	if err != nil {
		if helixerr.IsNotFound(err) {
			return nil
		}
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE from_node = ? OR to_node = ?`, nodeID, nodeID); err != nil {
		return helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "deleting incident edges")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM decision_vectors WHERE node_id = ?`, nodeID); err != nil {
		return helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "deleting embedding")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM decisions WHERE node_id = ?`, nodeID); err != nil {
		return helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "deleting decision row")
	}

	if err := tx.Commit(); err != nil {
		return helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "committing decision delete")
	}
	return nil
}

// NodeProperties fetches every property recorded on ref (§4.C.6).
func (s *Store) NodeProperties(ctx context.Context, ref store.NodeRef) (store.PropertyMap, error) {
	var propJSON string
	err := s.db.QueryRowContext(ctx, `SELECT properties FROM decisions WHERE node_id = ?`, int64(ref)).Scan(&propJSON)
	if err == sql.ErrNoRows {
		return nil, helixerr.Errorf(helixerr.CodeStoreNotFound, "node %d is not indexed", ref)
	}
	if err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "reading node properties")
	}

	var props nodeProperties
	if err := json.Unmarshal([]byte(propJSON), &props); err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "decoding node properties")
	}

	return store.PropertyMap{
		"decision_id":  props.DecisionID,
		"uuid":         props.UUID,
		"title":        props.Title,
		"status":       props.Status,
		"date":         props.Date,
		"deciders":     props.Deciders,
		"tags":         props.Tags,
		"file_path":    props.FilePath,
		"content_hash": props.ContentHash,
		"git_commit":   props.GitCommit,
	}, nil
}

// AllContentHashes returns every indexed file_path mapped to its last
// recorded content_hash (§4.C.8), used once per sync.
func (s *Store) AllContentHashes(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT file_path, content_hash FROM decisions`)
	if err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "scanning content hashes")
	}
	defer func() { _ = rows.Close() }()

	hashes := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "scanning content hash row")
		}
		hashes[path] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "iterating content hashes")
	}

	return hashes, nil
}

// DecisionIDForPath resolves an indexed file_path back to its decision_id.
func (s *Store) DecisionIDForPath(ctx context.Context, filePath string) (uint32, error) {
	var decisionID uint32
	err := s.db.QueryRowContext(ctx, `SELECT decision_id FROM decisions WHERE file_path = ?`, filePath).Scan(&decisionID)
	if err == sql.ErrNoRows {
		return 0, helixerr.Errorf(helixerr.CodeStoreNotFound, "file %s is not indexed", filePath)
	}
	if err != nil {
		return 0, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "resolving decision id for path")
	}
	return decisionID, nil
}

// VectorSearch returns the k nearest neighbors of query by cosine distance
// over the decision_vectors vec0 table (§4.C.5).
func (s *Store) VectorSearch(ctx context.Context, query []float32, k int) ([]store.VectorMatch, error) {
	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "serializing query vector")
	}

	const q = `SELECT node_id, distance FROM decision_vectors WHERE embedding MATCH ? AND k = ? ORDER BY distance`
	rows, err := s.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "vector search")
	}
	defer func() { _ = rows.Close() }()

	var matches []store.VectorMatch
	for rows.Next() {
		var nodeID int64
		var dist float32
		if err := rows.Scan(&nodeID, &dist); err != nil {
			return nil, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "scanning vector match")
		}
		matches = append(matches, store.VectorMatch{Node: store.NodeRef(nodeID), Distance: dist})
	}
	if err := rows.Err(); err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "iterating vector matches")
	}

	return matches, nil
}
