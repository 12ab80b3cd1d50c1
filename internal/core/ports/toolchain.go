// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"

	"go.trai.ch/forge/internal/core/domain"
)

// Toolchain is the pluggable capability interface the engine dispatches
// through. One implementation is registered per (toolchain name,
// architecture) pair and must be deterministic for the same inputs, which
// the staleness comparison depends on.
//
// Discovery failures are fatal configuration errors; execution failures are
// local to one node.
//
//go:generate go run go.uber.org/mock/mockgen -source=toolchain.go -destination=mocks/mock_toolchain.go -package=mocks
type Toolchain interface {
	// Discover returns the concrete build nodes needed for one context and
	// its declared source inputs, each with its inputs, outputs and fully
	// resolved command line.
	Discover(ctx context.Context, bc *domain.BuildContext, sources []string) ([]domain.NodeSpec, error)

	// Execute synchronously runs the external process for one node,
	// streaming diagnostic output to the given writers. Cancellation of ctx
	// terminates the underlying process.
	Execute(ctx context.Context, node *domain.BuildNode, stdout, stderr io.Writer) error
}
