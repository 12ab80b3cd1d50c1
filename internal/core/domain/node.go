package domain

// NodeID is the arena index of a build node within a graph. Using integer
// identities instead of pointers keeps the edge sets cycle-safe and compact.
type NodeID int32

// InvalidNode is the zero-value-safe sentinel for "no node".
const InvalidNode NodeID = -1

// ToolOperation names the toolchain capability a node invokes.
type ToolOperation string

const (
	// OpCompile turns one source artifact into one object artifact.
	OpCompile ToolOperation = "compile"
	// OpLink combines object artifacts into an executable or shared library.
	OpLink ToolOperation = "link"
	// OpArchive combines object artifacts into a static library.
	OpArchive ToolOperation = "archive"
	// OpTool is a generic tool invocation for toolchains with custom steps.
	OpTool ToolOperation = "tool"
)

// NodeStatus is the scheduling state of a build node.
type NodeStatus uint8

const (
	// StatusPending indicates the node is waiting for its predecessors.
	StatusPending NodeStatus = iota
	// StatusReady indicates all predecessors succeeded and the node can be
	// dispatched.
	StatusReady
	// StatusRunning indicates the node's toolchain invocation is in flight.
	StatusRunning
	// StatusSucceeded indicates the node finished successfully or was found
	// up to date.
	StatusSucceeded
	// StatusFailed indicates the node's toolchain invocation failed.
	StatusFailed
	// StatusSkipped indicates the node was not attempted because a
	// predecessor failed or was itself skipped. Terminal and propagating.
	StatusSkipped
)

// String returns the human-readable status name.
func (s NodeStatus) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusReady:
		return "Ready"
	case StatusRunning:
		return "Running"
	case StatusSucceeded:
		return "Succeeded"
	case StatusFailed:
		return "Failed"
	case StatusSkipped:
		return "Skipped"
	default:
		return "Unknown"
	}
}

// Terminal reports whether the status is final.
func (s NodeStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// NodeSpec is what toolchain discovery reports for one build node: its
// label, operation, ordered inputs, outputs and the fully resolved command
// line. The core treats the command as opaque.
type NodeSpec struct {
	Label     string
	Operation ToolOperation
	Inputs    []string
	Outputs   []string
	Argv      []string
}

// BuildNode is the atomic unit of scheduling. Its identity key is unique
// across the whole graph and stable across runs, so it doubles as the key
// into the incremental state store.
type BuildNode struct {
	ID        NodeID
	Key       InternedString
	Label     string
	Context   *BuildContext
	Operation ToolOperation
	Inputs    []string
	Outputs   []string
	Argv      []string
}

// NodeKey derives the stable identity key of a node from its owning context
// and discovery label.
func NodeKey(ctx *BuildContext, label string) InternedString {
	return NewInternedString(ctx.Key() + "|" + label)
}
