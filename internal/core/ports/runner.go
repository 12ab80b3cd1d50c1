package ports

import (
	"context"
	"io"
)

// CommandSpec describes one external process invocation.
type CommandSpec struct {
	Argv []string
	Dir  string
	Env  []string
}

// CommandRunner dispatches external tool processes. Toolchain
// implementations use it so the engine owns the process lifecycle contract:
// cancellation of ctx kills the process.
//
//go:generate go run go.uber.org/mock/mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks
type CommandRunner interface {
	// Run starts the process and waits for it, streaming its output to the
	// given writers. A non-zero exit is returned as an error carrying the
	// exit code.
	Run(ctx context.Context, spec CommandSpec, stdout, stderr io.Writer) error
}
