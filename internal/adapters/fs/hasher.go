// Package fs contains filesystem-backed adapters: artifact fingerprinting
// and command signatures.
package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Hasher = (*Hasher)(nil)

// Hasher computes content fingerprints with XXHash. Relative artifact paths
// are resolved against the workspace root.
type Hasher struct {
	root string
}

// NewHasher creates a new Hasher rooted at the given workspace directory.
func NewHasher(root string) *Hasher {
	return &Hasher{root: root}
}

// FingerprintFile computes the content hash, size and mtime of one file.
func (h *Hasher) FingerprintFile(path string) (domain.Fingerprint, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(h.root, path)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return domain.Fingerprint{}, zerr.With(zerr.Wrap(err, domain.ErrPathStatFailed.Error()), "path", path)
	}

	f, err := os.Open(abs) //nolint:gosec // Path is controlled by caller
	if err != nil {
		return domain.Fingerprint{}, zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return domain.Fingerprint{}, zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}

	return domain.Fingerprint{
		Hash:  fmt.Sprintf("%016x", hasher.Sum64()),
		Size:  info.Size(),
		MTime: info.ModTime().UnixNano(),
	}, nil
}

// CommandSignature computes the signature of the exact invocation a node
// would run. It covers the operation and the full argv, so any flag change
// invalidates the node even when no file content changed.
func (h *Hasher) CommandSignature(node *domain.BuildNode) string {
	hasher := xxhash.New()

	_, _ = hasher.WriteString(string(node.Operation))
	_, _ = hasher.Write([]byte{0})

	for _, arg := range node.Argv {
		_, _ = hasher.WriteString(arg)
		_, _ = hasher.Write([]byte{0})
	}

	return fmt.Sprintf("%016x", hasher.Sum64())
}
