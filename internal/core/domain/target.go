package domain

import "slices"

// OutputKind describes what a target produces.
type OutputKind string

const (
	// KindExecutable produces a linked executable.
	KindExecutable OutputKind = "executable"
	// KindStaticLibrary produces an archived static library.
	KindStaticLibrary OutputKind = "static-library"
	// KindSharedLibrary produces a linked shared library.
	KindSharedLibrary OutputKind = "shared-library"
	// KindObjectCollection produces compiled objects with no link step.
	KindObjectCollection OutputKind = "object-collection"
)

// AxisFilter restricts which values of one build axis a target participates
// in. An empty include list means all values; exclusions always win.
type AxisFilter struct {
	Include []string
	Exclude []string
}

// Allows reports whether the given axis value passes the filter.
func (f AxisFilter) Allows(name string) bool {
	if slices.Contains(f.Exclude, name) {
		return false
	}
	return len(f.Include) == 0 || slices.Contains(f.Include, name)
}

// SettingsLayer is one precedence layer of target settings: a variable table
// for macro resolution and a list of extra tool flags.
type SettingsLayer struct {
	Vars  map[string]string
	Flags []string
}

// Settings holds the layered per-target settings. Layers are merged in a
// fixed precedence order before macro resolution: defaults, then
// architecture, toolchain and configuration overrides. Scalar values
// override, flag lists append.
type Settings struct {
	Defaults        SettingsLayer
	ByArchitecture  map[string]SettingsLayer
	ByToolchain     map[string]SettingsLayer
	ByConfiguration map[string]SettingsLayer
}

// Flatten merges the settings layers for one axis combination into a single
// layer. The result shares no storage with the input layers.
func (s Settings) Flatten(architecture, toolchain, configuration string) SettingsLayer {
	out := SettingsLayer{Vars: make(map[string]string)}

	absorb := func(layer SettingsLayer) {
		for k, v := range layer.Vars {
			out.Vars[k] = v
		}
		out.Flags = append(out.Flags, layer.Flags...)
	}

	absorb(s.Defaults)
	absorb(s.ByArchitecture[architecture])
	absorb(s.ByToolchain[toolchain])
	absorb(s.ByConfiguration[configuration])

	return out
}

// Target is a named build unit declared by the user. It is immutable once
// graph construction begins.
type Target struct {
	Name    InternedString
	Kind    OutputKind
	Sources []string
	Depends []InternedString

	// Optional suppresses the invalid-axis-combination error when the
	// target retains zero combinations (header-only and similar targets).
	Optional bool

	Architectures  AxisFilter
	Toolchains     AxisFilter
	Configurations AxisFilter

	Settings Settings
}

// EnabledFor reports whether the target participates in the given axis
// combination.
func (t *Target) EnabledFor(architecture, toolchain, configuration string) bool {
	return t.Architectures.Allows(architecture) &&
		t.Toolchains.Allows(toolchain) &&
		t.Configurations.Allows(configuration)
}

// ToolRule describes how one toolchain operation is invoked: which source
// suffixes it consumes, the suffix/prefix of the artifact it produces and
// the command template. Argv entries may contain {name} placeholders that
// are resolved against the context's variable table plus the per-node
// {input}, {inputs} and {output} variables.
type ToolRule struct {
	Suffixes     []string
	OutputPrefix string
	OutputSuffix string
	Argv         []string
}

// ArtifactPath returns the path of the combined artifact the rule produces
// for the given output directory and base name.
func (r *ToolRule) ArtifactPath(outputDir, outputName string) string {
	return outputDir + "/" + r.OutputPrefix + outputName + r.OutputSuffix
}

// ToolchainSpec is the declarative description of a command toolchain: the
// per-operation rules the generic command toolchain dispatches through.
type ToolchainSpec struct {
	Name          string
	Architectures []string
	Compile       *ToolRule
	Link          *ToolRule
	Archive       *ToolRule
}

// CombineRule returns the rule producing the combined artifact for the
// given target kind, or nil when the kind has no combining step.
func (s *ToolchainSpec) CombineRule(kind OutputKind) *ToolRule {
	switch kind {
	case KindStaticLibrary:
		return s.Archive
	case KindObjectCollection:
		return nil
	default:
		return s.Link
	}
}

// Workspace is the fully loaded, pre-expansion build declaration: the run
// axes, the toolchain specifications and the target set.
type Workspace struct {
	Root           string
	Architectures  []string
	Toolchains     []string
	Configurations []string
	ToolchainSpecs []ToolchainSpec
	Targets        []*Target
}

// ToolchainSpecByName returns the declared toolchain spec with the given
// name. Toolchains registered programmatically have no spec.
func (w *Workspace) ToolchainSpecByName(name string) (*ToolchainSpec, bool) {
	for i := range w.ToolchainSpecs {
		if w.ToolchainSpecs[i].Name == name {
			return &w.ToolchainSpecs[i], true
		}
	}
	return nil, false
}

// TargetByName returns the declared target with the given name.
func (w *Workspace) TargetByName(name InternedString) (*Target, bool) {
	for _, t := range w.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}
