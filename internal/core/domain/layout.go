package domain

import "path/filepath"

const (
	// ForgeDirName is the name of the internal workspace directory.
	ForgeDirName = ".forge"

	// StateFileName is the name of the incremental state database.
	StateFileName = "state.db"

	// HCLFileName is the name of the HCL workspace configuration file.
	HCLFileName = "forge.hcl"

	// YAMLFileName is the name of the YAML workspace configuration file.
	YAMLFileName = "forge.yaml"

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// DefaultForgePath returns the default root directory for forge metadata.
func DefaultForgePath() string {
	return ForgeDirName
}

// DefaultStatePath returns the default path of the incremental state database,
// relative to the workspace root.
func DefaultStatePath() string {
	return filepath.Join(ForgeDirName, StateFileName)
}
