package ports

import "go.trai.ch/forge/internal/core/domain"

// FingerprintStore persists per-node incremental state across runs.
//
// Implementations must commit each record atomically: a crash between node
// execution and commit leaves the prior record in place, so the node is
// rebuilt on the next run rather than falsely claimed up to date. Corrupted
// or unreadable state is reported as "no history", never as a fatal error.
//
//go:generate go run go.uber.org/mock/mockgen -source=store.go -destination=mocks/mock_store.go -package=mocks
type FingerprintStore interface {
	// GetNode retrieves the record for a node identity key.
	// Returns nil, nil if no history exists.
	GetNode(nodeKey string) (*domain.NodeRecord, error)

	// PutNode commits the record for a node transactionally, replacing any
	// previous record.
	PutNode(rec domain.NodeRecord) error

	// Close releases the underlying storage.
	Close() error
}
