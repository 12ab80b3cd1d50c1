package toolchain

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/macro"
	"go.trai.ch/zerr"
)

// Argv entries with splice semantics: {inputs} expands to every input path
// as separate arguments, {flags} to the context's resolved extra flags.
const (
	spliceInputs = "{inputs}"
	spliceFlags  = "{flags}"
)

var _ ports.Toolchain = (*CommandToolchain)(nil)

// CommandToolchain is the generic toolchain implementation: it knows
// nothing about any compiler's syntax, only how to turn declarative rules
// into build nodes and dispatch their command lines through a runner.
type CommandToolchain struct {
	spec   *domain.ToolchainSpec
	runner ports.CommandRunner
}

// NewCommandToolchain creates a CommandToolchain from one spec.
func NewCommandToolchain(spec *domain.ToolchainSpec, runner ports.CommandRunner) *CommandToolchain {
	return &CommandToolchain{spec: spec, runner: runner}
}

// Discover produces one compile node per matching source file plus one
// combining node (link or archive) per the target's output kind.
func (t *CommandToolchain) Discover(
	_ context.Context,
	bc *domain.BuildContext,
	sources []string,
) ([]domain.NodeSpec, error) {
	var specs []domain.NodeSpec
	var objects []string

	for _, source := range sources {
		rule := t.ruleForSource(source)
		if rule == nil {
			return nil, zerr.With(domain.ErrDiscoveryFailed, "unmatched_source", source)
		}

		object := objectPath(bc, source, rule.OutputSuffix)
		argv, err := resolveArgv(rule.Argv, bc, []string{source}, object)
		if err != nil {
			return nil, zerr.Wrap(err, domain.ErrDiscoveryFailed.Error())
		}

		specs = append(specs, domain.NodeSpec{
			Label:     "compile " + source,
			Operation: domain.OpCompile,
			Inputs:    []string{source},
			Outputs:   []string{object},
			Argv:      argv,
		})
		objects = append(objects, object)
	}

	combine, err := t.combineNode(bc, objects)
	if err != nil {
		return nil, err
	}
	if combine != nil {
		specs = append(specs, *combine)
	}

	return specs, nil
}

// combineNode builds the link or archive node for the context, or nil for
// object collections. The combined artifacts of the context's dependencies
// are inputs of the node; link nodes additionally receive them on the
// command line so dependency libraries are linked without declaring them
// per target.
func (t *CommandToolchain) combineNode(bc *domain.BuildContext, objects []string) (*domain.NodeSpec, error) {
	rule := t.spec.CombineRule(bc.Target.Kind)
	op := domain.OpLink
	if bc.Target.Kind == domain.KindStaticLibrary {
		op = domain.OpArchive
	}

	if bc.Target.Kind == domain.KindObjectCollection {
		return nil, nil
	}
	if rule == nil {
		return nil, zerr.With(domain.ErrDiscoveryFailed, "missing_rule", string(op))
	}
	if len(objects) == 0 {
		return nil, nil
	}

	inputs := objects
	if len(bc.DependencyArtifacts) > 0 {
		inputs = make([]string, 0, len(objects)+len(bc.DependencyArtifacts))
		inputs = append(inputs, objects...)
		inputs = append(inputs, bc.DependencyArtifacts...)
	}

	// Archives contain only their own objects; the dependency artifacts
	// stay inputs for ordering and staleness.
	argvInputs := objects
	if op == domain.OpLink {
		argvInputs = inputs
	}

	output := rule.ArtifactPath(bc.OutputDir, bc.OutputName)
	argv, err := resolveArgv(rule.Argv, bc, argvInputs, output)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrDiscoveryFailed.Error())
	}

	return &domain.NodeSpec{
		Label:     string(op) + " " + bc.OutputName,
		Operation: op,
		Inputs:    inputs,
		Outputs:   []string{output},
		Argv:      argv,
	}, nil
}

// Execute dispatches the node's resolved command line through the runner.
// Output directories are created first so tools never race on mkdir.
func (t *CommandToolchain) Execute(
	ctx context.Context,
	node *domain.BuildNode,
	stdout, stderr io.Writer,
) error {
	root := node.Context.Vars["workspaceRoot"]

	for _, output := range node.Outputs {
		dir := filepath.Dir(filepath.Join(root, output))
		if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrNodeExecutionFailed.Error()), "dir", dir)
		}
	}

	return t.runner.Run(ctx, ports.CommandSpec{
		Argv: node.Argv,
		Dir:  root,
	}, stdout, stderr)
}

// ruleForSource returns the rule whose suffix list matches the source.
func (t *CommandToolchain) ruleForSource(source string) *domain.ToolRule {
	if t.spec.Compile == nil {
		return nil
	}
	for _, suffix := range t.spec.Compile.Suffixes {
		if strings.HasSuffix(source, suffix) {
			return t.spec.Compile
		}
	}
	return nil
}

// objectPath derives the object artifact path for a source file. The
// source's relative path is flattened so same-named files in different
// directories never collide.
func objectPath(bc *domain.BuildContext, source, suffix string) string {
	flat := strings.NewReplacer("/", "_", "\\", "_").Replace(strings.TrimSuffix(source, filepath.Ext(source)))
	return bc.OutputDir + "/" + flat + suffix
}

// resolveArgv expands one rule's command template against the context's
// variable table plus the per-node input/output variables. The {inputs}
// and {flags} entries splice in multiple arguments.
func resolveArgv(template []string, bc *domain.BuildContext, inputs []string, output string) ([]string, error) {
	table := make(map[string]string, len(bc.Vars)+2)
	for k, v := range bc.Vars {
		table[k] = v
	}
	table["output"] = output
	if len(inputs) == 1 {
		table["input"] = inputs[0]
	}

	argv := make([]string, 0, len(template)+len(inputs)+len(bc.Flags))
	for _, entry := range template {
		switch entry {
		case spliceInputs:
			argv = append(argv, inputs...)
		case spliceFlags:
			argv = append(argv, bc.Flags...)
		default:
			resolved, err := macro.Resolve(entry, table)
			if err != nil {
				return nil, err
			}
			argv = append(argv, resolved)
		}
	}
	return argv, nil
}
