package domain

import "time"

// Fingerprint identifies the content of an artifact: an xxhash content hash
// together with the file size and modification time. Two fingerprints are
// considered equal only if the content hash matches; size and mtime are
// carried so cheap pre-checks and diagnostics are possible.
type Fingerprint struct {
	Hash  string `json:"hash"`
	Size  int64  `json:"size"`
	MTime int64  `json:"mtime"`
}

// IsZero reports whether the fingerprint is unset.
func (f Fingerprint) IsZero() bool {
	return f.Hash == "" && f.Size == 0 && f.MTime == 0
}

// Equal reports whether two fingerprints refer to the same content.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Hash == other.Hash
}

// Artifact is a file path plus the fingerprint observed for it during a
// run. An artifact is produced by exactly one node and may be consumed by
// many; it is read-only once produced within a run.
type Artifact struct {
	Path        string
	Producer    NodeID
	Fingerprint Fingerprint
}

// NodeRecord is the persisted incremental state for one build node: the
// fingerprints of its inputs and outputs and the signature of the exact
// command used to produce them last time. Records are committed only after
// a node succeeds; a node with no record is always stale.
type NodeRecord struct {
	NodeKey          string                 `json:"nodeKey"`
	CommandSignature string                 `json:"commandSignature"`
	Inputs           map[string]Fingerprint `json:"inputs"`
	Outputs          map[string]Fingerprint `json:"outputs"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}
