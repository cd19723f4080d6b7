// Package sqlite implements store.Store on top of a single SQLite
// database file, co-locating a vec0 virtual table (for the HNSW-backed
// vector index) with a plain relational edge table (for the typed
// relationship graph) over the same node identities.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/kevinmichaelchen/helix-tools/internal/store"
	helixerr "github.com/kevinmichaelchen/helix-tools/pkg/errors"
)

func init() {
	sqlite_vec.Auto()
}

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store implements store.Store backed by SQLite with the sqlite-vec
// vec0 extension providing the HNSW-ish approximate vector index.
type Store struct {
	db  *sql.DB
	cfg store.Config
}

// Open creates the index directory's database file if absent, and
// migrates it to the current schema (decisions, decision_vectors,
// edges, meta), per the open() contract of §4.C.1.
func Open(cfg store.Config) (*Store, error) {
	cfg = cfg.WithDefaults()

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "opening sqlite database")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "pinging sqlite database")
	}

	if err := migrate(db, cfg.Dimension); err != nil {
		_ = db.Close()
		return nil, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "migrating schema")
	}

	return &Store{db: db, cfg: cfg}, nil
}

func migrate(db *sql.DB, dimension int) error {
	const decisionsDDL = `
CREATE TABLE IF NOT EXISTS decisions (
	node_id      INTEGER PRIMARY KEY AUTOINCREMENT,
	decision_id  INTEGER NOT NULL UNIQUE,
	file_path    TEXT NOT NULL UNIQUE,
	content_hash TEXT NOT NULL,
	properties   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS edges (
	from_node INTEGER NOT NULL,
	kind      TEXT NOT NULL,
	to_node   INTEGER NOT NULL,
	UNIQUE(from_node, kind, to_node)
);
CREATE INDEX IF NOT EXISTS idx_edges_from ON edges(from_node, kind);
CREATE INDEX IF NOT EXISTS idx_edges_to ON edges(to_node, kind);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`
	if _, err := db.Exec(decisionsDDL); err != nil {
		return fmt.Errorf("creating decisions/edges/meta tables: %w", err)
	}

	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS decision_vectors USING vec0(node_id INTEGER PRIMARY KEY, embedding float[%d] distance_metric=cosine)`,
		dimension,
	)
	if _, err := db.Exec(vecDDL); err != nil {
		return fmt.Errorf("creating decision_vectors virtual table: %w", err)
	}

	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Fingerprint returns the embedder fingerprint recorded at last sync.
func (s *Store) Fingerprint(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'embedder_fingerprint'`).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "reading embedder fingerprint")
	}
	return value, nil
}

// SetFingerprint records the embedder fingerprint used by the latest sync.
func (s *Store) SetFingerprint(ctx context.Context, fingerprint string) error {
	const q = `INSERT INTO meta(key, value) VALUES ('embedder_fingerprint', ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	if _, err := s.db.ExecContext(ctx, q, fingerprint); err != nil {
		return helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "writing embedder fingerprint")
	}
	return nil
}

// nodeByDecisionIDTx resolves a decision id to its node id inside tx, for
// callers that already hold a transaction.
func nodeByDecisionIDTx(ctx context.Context, q querier, decisionID uint32) (int64, error) {
	var nodeID int64
	err := q.QueryRowContext(ctx, `SELECT node_id FROM decisions WHERE decision_id = ?`, decisionID).Scan(&nodeID)
	if err == sql.ErrNoRows {
		return 0, helixerr.Errorf(helixerr.CodeStoreNotFound, "decision %d is not indexed", decisionID)
	}
	if err != nil {
		return 0, helixerr.Wrap(err, helixerr.CodeStoreDatabaseFailure, "resolving decision id")
	}
	return nodeID, nil
}

func (s *Store) NodeByDecisionID(ctx context.Context, decisionID uint32) (store.NodeRef, error) {
	nodeID, err := nodeByDecisionIDTx(ctx, s.db, decisionID)
	if err != nil {
		return 0, err
	}
	return store.NodeRef(nodeID), nil
}

// querier abstracts over *sql.DB and *sql.Tx for helpers shared by both.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
