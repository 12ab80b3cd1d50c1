// Package state persists per-node incremental records in a SQLite database
// under the workspace state directory.
package state

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.FingerprintStore = (*SQLiteStore)(nil)

const (
	kindInput  = "in"
	kindOutput = "out"
)

// SQLiteStore implements ports.FingerprintStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens or creates the store at the given path. Use
// ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), domain.DirPerm); err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreOpenFailed.Error()), "path", dbPath)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreOpenFailed.Error()), "path", dbPath)
	}

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStoreOpenFailed.Error()), "path", dbPath)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS node_history (
		node_key TEXT PRIMARY KEY,
		command_signature TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS artifacts (
		node_key TEXT NOT NULL,
		kind TEXT NOT NULL,
		path TEXT NOT NULL,
		hash TEXT NOT NULL,
		size INTEGER NOT NULL,
		mtime INTEGER NOT NULL,
		PRIMARY KEY (node_key, kind, path)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// GetNode retrieves the record for a node identity key. Missing, corrupted
// or unreadable rows all report as no history, so the node rebuilds instead
// of failing the run.
func (s *SQLiteStore) GetNode(nodeKey string) (*domain.NodeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := &domain.NodeRecord{
		NodeKey: nodeKey,
		Inputs:  make(map[string]domain.Fingerprint),
		Outputs: make(map[string]domain.Fingerprint),
	}

	var updatedAt int64
	err := s.db.QueryRow(
		"SELECT command_signature, updated_at FROM node_history WHERE node_key = ?",
		nodeKey,
	).Scan(&rec.CommandSignature, &updatedAt)
	if err != nil {
		return nil, nil
	}
	rec.UpdatedAt = time.Unix(updatedAt, 0)

	rows, err := s.db.Query(
		"SELECT kind, path, hash, size, mtime FROM artifacts WHERE node_key = ?",
		nodeKey,
	)
	if err != nil {
		return nil, nil
	}
	defer rows.Close()

	for rows.Next() {
		var kind, path string
		var fp domain.Fingerprint
		if err := rows.Scan(&kind, &path, &fp.Hash, &fp.Size, &fp.MTime); err != nil {
			return nil, nil
		}
		switch kind {
		case kindInput:
			rec.Inputs[path] = fp
		case kindOutput:
			rec.Outputs[path] = fp
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil
	}

	return rec, nil
}

// PutNode commits the record in one transaction, replacing any previous
// record for the same node key. An interrupted commit rolls back to the
// prior record, never to a half-written one.
func (s *SQLiteStore) PutNode(rec domain.NodeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	if _, err := tx.Exec("DELETE FROM node_history WHERE node_key = ?", rec.NodeKey); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	if _, err := tx.Exec("DELETE FROM artifacts WHERE node_key = ?", rec.NodeKey); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}

	if _, err := tx.Exec(
		"INSERT INTO node_history (node_key, command_signature, updated_at) VALUES (?, ?, ?)",
		rec.NodeKey, rec.CommandSignature, rec.UpdatedAt.Unix(),
	); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}

	if err := insertArtifacts(tx, rec.NodeKey, kindInput, rec.Inputs); err != nil {
		return err
	}
	if err := insertArtifacts(tx, rec.NodeKey, kindOutput, rec.Outputs); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
	}
	return nil
}

func insertArtifacts(tx *sql.Tx, nodeKey, kind string, fps map[string]domain.Fingerprint) error {
	for path, fp := range fps {
		if _, err := tx.Exec(
			"INSERT INTO artifacts (node_key, kind, path, hash, size, mtime) VALUES (?, ?, ?, ?, ?, ?)",
			nodeKey, kind, path, fp.Hash, fp.Size, fp.MTime,
		); err != nil {
			return zerr.Wrap(err, domain.ErrStoreWriteFailed.Error())
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
