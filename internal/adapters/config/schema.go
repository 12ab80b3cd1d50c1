package config

// The DTO types double as the HCL block schema and the YAML document
// schema; both formats build the same domain.Workspace.

type workspaceDTO struct {
	Architectures  []string `hcl:"architectures,optional" yaml:"architectures"`
	Toolchains     []string `hcl:"toolchains,optional" yaml:"toolchains"`
	Configurations []string `hcl:"configurations,optional" yaml:"configurations"`
}

type ruleDTO struct {
	Suffixes     []string `hcl:"suffixes,optional" yaml:"suffixes"`
	OutputPrefix string   `hcl:"output_prefix,optional" yaml:"outputPrefix"`
	OutputSuffix string   `hcl:"output_suffix,optional" yaml:"outputSuffix"`
	Argv         []string `hcl:"argv" yaml:"argv"`
}

type toolchainDTO struct {
	Name          string   `hcl:"name,label" yaml:"-"`
	Architectures []string `hcl:"architectures,optional" yaml:"architectures"`
	Compile       *ruleDTO `hcl:"compile,block" yaml:"compile"`
	Link          *ruleDTO `hcl:"link,block" yaml:"link"`
	Archive       *ruleDTO `hcl:"archive,block" yaml:"archive"`
}

type filterDTO struct {
	Include []string `hcl:"include,optional" yaml:"include"`
	Exclude []string `hcl:"exclude,optional" yaml:"exclude"`
}

// settingsDTO is one settings layer. At most one of the axis attributes may
// be set; a layer with none becomes the target's default layer.
type settingsDTO struct {
	Architecture  string            `hcl:"architecture,optional" yaml:"architecture"`
	Toolchain     string            `hcl:"toolchain,optional" yaml:"toolchain"`
	Configuration string            `hcl:"configuration,optional" yaml:"configuration"`
	Vars          map[string]string `hcl:"vars,optional" yaml:"vars"`
	Flags         []string          `hcl:"flags,optional" yaml:"flags"`
}

type targetDTO struct {
	Name           string         `hcl:"name,label" yaml:"-"`
	Kind           string         `hcl:"kind" yaml:"kind"`
	Sources        []string       `hcl:"sources,optional" yaml:"sources"`
	Depends        []string       `hcl:"depends,optional" yaml:"depends"`
	Optional       bool           `hcl:"optional,optional" yaml:"optional"`
	Architectures  *filterDTO     `hcl:"architectures,block" yaml:"architectures"`
	Toolchains     *filterDTO     `hcl:"toolchains,block" yaml:"toolchains"`
	Configurations *filterDTO     `hcl:"configurations,block" yaml:"configurations"`
	Settings       []*settingsDTO `hcl:"settings,block" yaml:"settings"`
}

// declaration is the format-independent result of decoding one build file.
type declaration struct {
	Workspace  workspaceDTO
	Toolchains []*toolchainDTO
	Targets    []*targetDTO
}
