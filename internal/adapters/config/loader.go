// Package config loads the declarative build input from forge.hcl or
// forge.yaml files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader. It walks up from the working
// directory until it finds a build file; HCL is preferred when both formats
// exist in the same directory.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

type fileFormat uint8

const (
	formatHCL fileFormat = iota
	formatYAML
)

var validTargetNameRegex = regexp.MustCompile("^[a-zA-Z0-9_-]+$")

// Load reads the workspace declaration starting from the given working
// directory.
func (l *Loader) Load(cwd string) (*domain.Workspace, error) {
	path, format, err := l.findConfiguration(cwd)
	if err != nil {
		return nil, err
	}

	var decl *declaration
	switch format {
	case formatHCL:
		decl, err = decodeHCLFile(path)
	case formatYAML:
		decl, err = decodeYAMLFile(path)
	}
	if err != nil {
		return nil, err
	}

	return l.buildWorkspace(filepath.Dir(path), decl)
}

func (l *Loader) findConfiguration(cwd string) (string, fileFormat, error) {
	currentDir := cwd

	for {
		hclPath := filepath.Join(currentDir, domain.HCLFileName)
		if _, err := os.Stat(hclPath); err == nil {
			return hclPath, formatHCL, nil
		}

		yamlPath := filepath.Join(currentDir, domain.YAMLFileName)
		if _, err := os.Stat(yamlPath); err == nil {
			return yamlPath, formatYAML, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return "", 0, zerr.With(domain.ErrConfigNotFound, "cwd", cwd)
}

func (l *Loader) buildWorkspace(root string, decl *declaration) (*domain.Workspace, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	ws := &domain.Workspace{
		Root:           absRoot,
		Architectures:  decl.Workspace.Architectures,
		Toolchains:     decl.Workspace.Toolchains,
		Configurations: decl.Workspace.Configurations,
	}

	for _, dto := range decl.Toolchains {
		spec, err := buildToolchainSpec(dto)
		if err != nil {
			return nil, err
		}
		ws.ToolchainSpecs = append(ws.ToolchainSpecs, spec)
	}

	applyAxisDefaults(ws)
	if len(ws.Toolchains) == 0 {
		return nil, zerr.With(domain.ErrConfigParseFailed, "reason", "no toolchains declared")
	}

	seen := make(map[string]bool, len(decl.Targets))
	for _, dto := range decl.Targets {
		if seen[dto.Name] {
			return nil, zerr.With(domain.ErrDuplicateTarget, "target", dto.Name)
		}
		seen[dto.Name] = true

		target, err := buildTarget(dto)
		if err != nil {
			return nil, err
		}
		ws.Targets = append(ws.Targets, target)
	}

	for _, target := range ws.Targets {
		for _, dep := range target.Depends {
			if _, ok := ws.TargetByName(dep); !ok {
				err := zerr.With(domain.ErrMissingDependency, "dependency", dep.String())
				return nil, zerr.With(err, "target", target.Name.String())
			}
		}
	}

	l.warnUnusedAxis(ws)

	return ws, nil
}

// applyAxisDefaults fills missing axes the way a single-machine build would
// expect: the host architecture, a debug configuration, and every declared
// toolchain.
func applyAxisDefaults(ws *domain.Workspace) {
	if len(ws.Architectures) == 0 {
		ws.Architectures = []string{"native"}
	}
	if len(ws.Configurations) == 0 {
		ws.Configurations = []string{"debug"}
	}
	if len(ws.Toolchains) == 0 {
		for _, spec := range ws.ToolchainSpecs {
			ws.Toolchains = append(ws.Toolchains, spec.Name)
		}
	}
}

func buildToolchainSpec(dto *toolchainDTO) (domain.ToolchainSpec, error) {
	if dto.Name == "" {
		return domain.ToolchainSpec{}, zerr.With(domain.ErrConfigParseFailed, "reason", "toolchain without name")
	}

	return domain.ToolchainSpec{
		Name:          dto.Name,
		Architectures: dto.Architectures,
		Compile:       buildRule(dto.Compile),
		Link:          buildRule(dto.Link),
		Archive:       buildRule(dto.Archive),
	}, nil
}

func buildRule(dto *ruleDTO) *domain.ToolRule {
	if dto == nil {
		return nil
	}
	return &domain.ToolRule{
		Suffixes:     dto.Suffixes,
		OutputPrefix: dto.OutputPrefix,
		OutputSuffix: dto.OutputSuffix,
		Argv:         dto.Argv,
	}
}

func buildTarget(dto *targetDTO) (*domain.Target, error) {
	if err := validateTargetName(dto.Name); err != nil {
		return nil, err
	}

	kind, err := parseKind(dto.Name, dto.Kind)
	if err != nil {
		return nil, err
	}

	target := &domain.Target{
		Name:           domain.NewInternedString(dto.Name),
		Kind:           kind,
		Sources:        dto.Sources,
		Depends:        domain.NewInternedStrings(dto.Depends),
		Optional:       dto.Optional,
		Architectures:  buildFilter(dto.Architectures),
		Toolchains:     buildFilter(dto.Toolchains),
		Configurations: buildFilter(dto.Configurations),
	}

	settings, err := buildSettings(dto)
	if err != nil {
		return nil, err
	}
	target.Settings = settings

	return target, nil
}

func validateTargetName(name string) error {
	if name == "" || !validTargetNameRegex.MatchString(name) {
		return zerr.With(domain.ErrInvalidTargetName, "target", name)
	}
	return nil
}

func parseKind(target, kind string) (domain.OutputKind, error) {
	switch domain.OutputKind(kind) {
	case domain.KindExecutable, domain.KindStaticLibrary, domain.KindSharedLibrary, domain.KindObjectCollection:
		return domain.OutputKind(kind), nil
	}
	err := zerr.With(domain.ErrConfigParseFailed, "target", target)
	return "", zerr.With(err, "kind", kind)
}

func buildFilter(dto *filterDTO) domain.AxisFilter {
	if dto == nil {
		return domain.AxisFilter{}
	}
	return domain.AxisFilter{Include: dto.Include, Exclude: dto.Exclude}
}

// buildSettings folds the declared settings layers into the fixed
// precedence structure. Repeated layers for the same axis value merge in
// declaration order: later vars override, flags append.
func buildSettings(dto *targetDTO) (domain.Settings, error) {
	settings := domain.Settings{
		Defaults:        domain.SettingsLayer{Vars: make(map[string]string)},
		ByArchitecture:  make(map[string]domain.SettingsLayer),
		ByToolchain:     make(map[string]domain.SettingsLayer),
		ByConfiguration: make(map[string]domain.SettingsLayer),
	}

	for _, layer := range dto.Settings {
		axes := 0
		if layer.Architecture != "" {
			axes++
		}
		if layer.Toolchain != "" {
			axes++
		}
		if layer.Configuration != "" {
			axes++
		}
		if axes > 1 {
			err := zerr.With(domain.ErrConfigParseFailed, "target", dto.Name)
			return settings, zerr.With(err, "reason", "settings block scopes more than one axis")
		}

		switch {
		case layer.Architecture != "":
			settings.ByArchitecture[layer.Architecture] = mergeLayer(settings.ByArchitecture[layer.Architecture], layer)
		case layer.Toolchain != "":
			settings.ByToolchain[layer.Toolchain] = mergeLayer(settings.ByToolchain[layer.Toolchain], layer)
		case layer.Configuration != "":
			settings.ByConfiguration[layer.Configuration] = mergeLayer(settings.ByConfiguration[layer.Configuration], layer)
		default:
			settings.Defaults = mergeLayer(settings.Defaults, layer)
		}
	}

	return settings, nil
}

func mergeLayer(base domain.SettingsLayer, dto *settingsDTO) domain.SettingsLayer {
	if base.Vars == nil {
		base.Vars = make(map[string]string)
	}
	for k, v := range dto.Vars {
		base.Vars[k] = v
	}
	base.Flags = append(base.Flags, dto.Flags...)
	return base
}

// warnUnusedAxis reports axis filters that reference values the workspace
// never declares; a typo here silently drops build contexts otherwise.
func (l *Loader) warnUnusedAxis(ws *domain.Workspace) {
	declared := make(map[string]bool)
	for _, v := range ws.Architectures {
		declared[v] = true
	}
	for _, v := range ws.Toolchains {
		declared[v] = true
	}
	for _, v := range ws.Configurations {
		declared[v] = true
	}

	for _, target := range ws.Targets {
		for _, f := range []domain.AxisFilter{target.Architectures, target.Toolchains, target.Configurations} {
			for _, v := range append(f.Include, f.Exclude...) {
				if !declared[v] {
					l.Logger.Warn(fmt.Sprintf("target %s filters on undeclared axis value %q", target.Name.String(), v))
				}
			}
		}
	}
}
