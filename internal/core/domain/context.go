package domain

// BuildContext is one (target, architecture, toolchain, configuration)
// combination with its fully resolved variable table. Contexts are created
// by the expander at the start of a run and discarded at run end; only
// their effects (artifacts and node records) are persisted.
type BuildContext struct {
	Target        *Target
	Architecture  InternedString
	Toolchain     InternedString
	Configuration InternedString

	// Vars is the flattened macro table for this context. It contains the
	// axis names, the target name and all user-declared variables, with no
	// nested placeholder references remaining.
	Vars map[string]string

	// OutputDir and OutputName are fully macro-resolved.
	OutputDir  string
	OutputName string

	// Flags are the resolved extra tool flags for this context.
	Flags []string

	Sources []string

	// DependencyArtifacts are the combined artifacts of the target's
	// dependency contexts on the same axis triple, in declaration order.
	// Combining nodes consume them as inputs so cross-target edges and
	// staleness propagation follow from the artifact index.
	DependencyArtifacts []string
}

// Key returns the unique identity of this context within a run.
func (c *BuildContext) Key() string {
	return c.Target.Name.String() + "|" + c.AxisKey()
}

// AxisKey returns the axis triple identity shared by corresponding contexts
// of different targets. Target-level dependency edges are matched on it.
func (c *BuildContext) AxisKey() string {
	return c.Toolchain.String() + "|" + c.Architecture.String() + "|" + c.Configuration.String()
}
