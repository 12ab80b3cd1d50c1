package ports

import "go.trai.ch/forge/internal/core/domain"

// Hasher computes artifact fingerprints and node command signatures.
//
//go:generate go run go.uber.org/mock/mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// FingerprintFile computes the fingerprint of one file.
	FingerprintFile(path string) (domain.Fingerprint, error)

	// CommandSignature computes the signature of the exact command and
	// settings a node would run with. A changed flag must change the
	// signature even when no file content changed.
	CommandSignature(node *domain.BuildNode) string
}
