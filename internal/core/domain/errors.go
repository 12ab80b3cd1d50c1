package domain

import "go.trai.ch/zerr"

var (
	// ErrUnresolvedPlaceholder is returned when a macro template references a
	// key that is not present in the variable table.
	ErrUnresolvedPlaceholder = zerr.New("unresolved placeholder")

	// ErrUnbalancedPlaceholder is returned when a macro template contains an
	// opening brace without a matching closing brace.
	ErrUnbalancedPlaceholder = zerr.New("unbalanced placeholder braces")

	// ErrInvalidAxisCombination is returned when a target declares zero valid
	// (architecture, toolchain, configuration) combinations and is not
	// marked optional.
	ErrInvalidAxisCombination = zerr.New("target has no valid axis combination")

	// ErrUnsatisfiedContextDependency is returned when a target depends on
	// another target that is not built for a matching axis combination.
	ErrUnsatisfiedContextDependency = zerr.New("dependency has no matching build context")

	// ErrDependencyCycle is returned when a cycle is detected in the build
	// node graph.
	ErrDependencyCycle = zerr.New("dependency cycle detected")

	// ErrDuplicateTarget is returned when two targets share the same name.
	ErrDuplicateTarget = zerr.New("duplicate target name")

	// ErrDuplicateNode is returned when toolchain discovery produces two
	// nodes with the same identity key.
	ErrDuplicateNode = zerr.New("duplicate build node")

	// ErrDuplicateProducer is returned when two nodes declare the same
	// output artifact.
	ErrDuplicateProducer = zerr.New("artifact produced by more than one node")

	// ErrMissingDependency is returned when a target references a dependency
	// that does not exist in the workspace.
	ErrMissingDependency = zerr.New("missing dependency")

	// ErrTargetNotFound is returned when a requested target is not declared.
	ErrTargetNotFound = zerr.New("target not found")

	// ErrInvalidTargetName is returned when a target name contains invalid
	// characters.
	ErrInvalidTargetName = zerr.New("target name can only contain alphanumeric characters, hyphens and underscores")

	// ErrNodeNotFound is returned when a node identity is not in the graph.
	ErrNodeNotFound = zerr.New("build node not found")

	// ErrUnknownToolchain is returned when a build context selects a
	// toolchain that is not registered for its architecture.
	ErrUnknownToolchain = zerr.New("toolchain not registered")

	// ErrToolchainAlreadyRegistered is returned when two toolchains are
	// registered under the same (name, architecture) pair.
	ErrToolchainAlreadyRegistered = zerr.New("toolchain already registered")

	// ErrDiscoveryFailed is returned when toolchain discovery fails for a
	// build context. Discovery failures are fatal configuration errors.
	ErrDiscoveryFailed = zerr.New("toolchain discovery failed")

	// ErrNodeExecutionFailed is returned when a toolchain invocation for a
	// node fails.
	ErrNodeExecutionFailed = zerr.New("node execution failed")

	// ErrBuildFailed is returned when one or more nodes in a run failed.
	ErrBuildFailed = zerr.New("build failed")

	// ErrConfigNotFound is returned when no forge.hcl or forge.yaml can be
	// found in the working directory or any of its parents.
	ErrConfigNotFound = zerr.New("could not find forge.hcl or forge.yaml")

	// ErrConfigReadFailed is returned when the configuration file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read configuration file")

	// ErrConfigParseFailed is returned when the configuration file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse configuration file")

	// ErrStoreOpenFailed is returned when the incremental state database
	// cannot be opened.
	ErrStoreOpenFailed = zerr.New("failed to open incremental state store")

	// ErrStoreReadFailed is returned when a node record cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read node record")

	// ErrStoreWriteFailed is returned when a node record cannot be committed.
	ErrStoreWriteFailed = zerr.New("failed to commit node record")

	// ErrFileOpenFailed is returned when a file cannot be opened for hashing.
	ErrFileOpenFailed = zerr.New("failed to open file")

	// ErrFileHashFailed is returned when hashing a file fails.
	ErrFileHashFailed = zerr.New("failed to hash file content")

	// ErrPathStatFailed is returned when stating a path fails.
	ErrPathStatFailed = zerr.New("failed to stat path")

	// ErrCommandStartFailed is returned when an external tool process cannot
	// be started.
	ErrCommandStartFailed = zerr.New("failed to start command")

	// ErrCommandFailed is returned when an external tool process exits with
	// a non-zero status.
	ErrCommandFailed = zerr.New("command failed")

	// ErrWatcherStartFailed is returned when the file system watcher cannot
	// be started.
	ErrWatcherStartFailed = zerr.New("failed to start file watcher")
)
