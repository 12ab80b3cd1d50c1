// Package expand implements the context expander: it turns each declared
// target into one build context per retained (architecture, toolchain,
// configuration) combination, with a fully resolved macro table.
package expand

import (
	"path/filepath"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/engine/macro"
	"go.trai.ch/zerr"
)

// Well-known settings keys consumed by the expander itself. Anything else
// in the flattened variable table is passed through for toolchains to use.
const (
	// KeyOutputDir is the templated output directory for a context.
	KeyOutputDir = "outputDir"
	// KeyOutputName is the templated base name of the context's final artifact.
	KeyOutputName = "outputName"
)

// defaultOutputDir is used when a target declares no outputDir setting.
const defaultOutputDir = "build/{toolchainName}/{architectureName}/{configurationName}/{targetName}"

// Expand computes the cross-product of the workspace axes for every target,
// skipping combinations a target does not support, and emits one build
// context per retained combination.
//
// A target that retains zero combinations and is not marked optional fails
// with domain.ErrInvalidAxisCombination.
func Expand(ws *domain.Workspace) ([]*domain.BuildContext, error) {
	contexts := make([]*domain.BuildContext, 0, len(ws.Targets))

	for _, target := range ws.Targets {
		retained := 0

		for _, arch := range ws.Architectures {
			for _, toolchain := range ws.Toolchains {
				if !toolchainSupports(ws, toolchain, arch) {
					continue
				}
				for _, config := range ws.Configurations {
					if !target.EnabledFor(arch, toolchain, config) {
						continue
					}

					bc, err := buildContext(ws, target, arch, toolchain, config)
					if err != nil {
						return nil, err
					}
					contexts = append(contexts, bc)
					retained++
				}
			}
		}

		if retained == 0 && !target.Optional {
			return nil, zerr.With(domain.ErrInvalidAxisCombination, "target", target.Name.String())
		}
	}

	wireDependencyArtifacts(ws, contexts)

	return contexts, nil
}

// wireDependencyArtifacts resolves each context's dependency targets to
// their combined artifacts on the same axis triple, so combining nodes can
// consume them. Missing dependency targets and contexts are reported by the
// graph builder, not here; toolchains without a declarative spec expose no
// artifact naming and are skipped.
func wireDependencyArtifacts(ws *domain.Workspace, contexts []*domain.BuildContext) {
	byKey := make(map[string]*domain.BuildContext, len(contexts))
	for _, bc := range contexts {
		byKey[bc.Key()] = bc
	}

	for _, bc := range contexts {
		spec, ok := ws.ToolchainSpecByName(bc.Toolchain.String())
		if !ok {
			continue
		}
		for _, dep := range bc.Target.Depends {
			depCtx, ok := byKey[dep.String()+"|"+bc.AxisKey()]
			if !ok {
				continue
			}
			rule := spec.CombineRule(depCtx.Target.Kind)
			if rule == nil {
				continue
			}
			bc.DependencyArtifacts = append(
				bc.DependencyArtifacts,
				rule.ArtifactPath(depCtx.OutputDir, depCtx.OutputName),
			)
		}
	}
}

// toolchainSupports reports whether a toolchain spec is declared for the
// given architecture. A spec with no architecture list supports all.
func toolchainSupports(ws *domain.Workspace, toolchain, arch string) bool {
	for i := range ws.ToolchainSpecs {
		spec := &ws.ToolchainSpecs[i]
		if spec.Name != toolchain {
			continue
		}
		if len(spec.Architectures) == 0 {
			return true
		}
		for _, a := range spec.Architectures {
			if a == arch {
				return true
			}
		}
		return false
	}
	// No spec declared; registration is checked at graph build time.
	return true
}

// buildContext flattens the target's settings layers for one combination,
// builds the macro table and resolves all templated settings.
func buildContext(
	ws *domain.Workspace,
	target *domain.Target,
	arch, toolchain, config string,
) (*domain.BuildContext, error) {
	layer := target.Settings.Flatten(arch, toolchain, config)

	// The base table has no nested references; user variables may reference
	// it and are flattened here so the resolver never needs to recurse.
	base := map[string]string{
		"targetName":        target.Name.String(),
		"architectureName":  arch,
		"toolchainName":     toolchain,
		"configurationName": config,
		"workspaceRoot":     ws.Root,
	}

	vars, err := macro.ResolveTable(layer.Vars, base)
	if err != nil {
		return nil, zerr.With(err, "target", target.Name.String())
	}
	for k, v := range base {
		vars[k] = v
	}

	outputName := target.Name.String()
	if v, ok := vars[KeyOutputName]; ok && v != "" {
		outputName = v
	}
	vars[KeyOutputName] = outputName

	outputDirTemplate := defaultOutputDir
	if v, ok := layer.Vars[KeyOutputDir]; ok && v != "" {
		outputDirTemplate = v
	}
	outputDir, err := macro.Resolve(outputDirTemplate, vars)
	if err != nil {
		return nil, zerr.With(err, "target", target.Name.String())
	}
	outputDir = filepath.ToSlash(filepath.Clean(outputDir))
	vars[KeyOutputDir] = outputDir

	flags, err := macro.ResolveAll(layer.Flags, vars)
	if err != nil {
		return nil, zerr.With(err, "target", target.Name.String())
	}

	return &domain.BuildContext{
		Target:        target,
		Architecture:  domain.NewInternedString(arch),
		Toolchain:     domain.NewInternedString(toolchain),
		Configuration: domain.NewInternedString(config),
		Vars:          vars,
		OutputDir:     outputDir,
		OutputName:    outputName,
		Flags:         flags,
		Sources:       target.Sources,
	}, nil
}
