package config

import (
	"os"
	"slices"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

type yamlRoot struct {
	Architectures  []string                 `yaml:"architectures"`
	Toolchains     []string                 `yaml:"toolchains"`
	Configurations []string                 `yaml:"configurations"`
	ToolchainSpecs map[string]*toolchainDTO `yaml:"toolchainSpecs"`
	Targets        map[string]*targetDTO    `yaml:"targets"`
}

// decodeYAMLFile reads one YAML build file. Map entries are ordered by name
// so repeated loads produce identical workspaces.
func decodeYAMLFile(path string) (*declaration, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path discovered under the workspace
	if err != nil {
		return nil, zerr.With(
			zerr.Wrap(err, domain.ErrConfigReadFailed.Error()),
			"path", path,
		)
	}

	var root yamlRoot
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, zerr.With(
			zerr.Wrap(err, domain.ErrConfigParseFailed.Error()),
			"path", path,
		)
	}

	decl := &declaration{
		Workspace: workspaceDTO{
			Architectures:  root.Architectures,
			Toolchains:     root.Toolchains,
			Configurations: root.Configurations,
		},
	}

	for _, name := range sortedKeys(root.ToolchainSpecs) {
		dto := root.ToolchainSpecs[name]
		if dto == nil {
			dto = &toolchainDTO{}
		}
		dto.Name = name
		decl.Toolchains = append(decl.Toolchains, dto)
	}
	for _, name := range sortedKeys(root.Targets) {
		dto := root.Targets[name]
		if dto == nil {
			dto = &targetDTO{}
		}
		dto.Name = name
		decl.Targets = append(decl.Targets, dto)
	}

	return decl, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
