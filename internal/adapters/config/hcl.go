package config

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/zerr"
)

type hclVariable struct {
	Name  string `hcl:"name,label"`
	Value string `hcl:"value"`
}

// hclVarPass decodes only the variable blocks so their values can seed the
// evaluation context for the rest of the file.
type hclVarPass struct {
	Variables []*hclVariable `hcl:"variable,block"`
	Remain    hcl.Body       `hcl:",remain"`
}

type hclRoot struct {
	Workspace  *workspaceDTO   `hcl:"workspace,block"`
	Toolchains []*toolchainDTO `hcl:"toolchain,block"`
	Targets    []*targetDTO    `hcl:"target,block"`
}

// decodeHCLFile parses and decodes one build file. Variable blocks must
// hold constant values; every other attribute may reference them as
// var.<name>.
func decodeHCLFile(path string) (*declaration, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, zerr.With(
			zerr.Wrap(diags, domain.ErrConfigParseFailed.Error()),
			"path", path,
		)
	}

	var varPass hclVarPass
	if diags := gohcl.DecodeBody(file.Body, nil, &varPass); diags.HasErrors() {
		return nil, zerr.With(
			zerr.Wrap(diags, domain.ErrConfigParseFailed.Error()),
			"path", path,
		)
	}

	values := make(map[string]cty.Value, len(varPass.Variables))
	for _, v := range varPass.Variables {
		values[v.Name] = cty.StringVal(v.Value)
	}
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"var": cty.ObjectVal(values)},
	}

	var root hclRoot
	if diags := gohcl.DecodeBody(varPass.Remain, evalCtx, &root); diags.HasErrors() {
		return nil, zerr.With(
			zerr.Wrap(diags, domain.ErrConfigParseFailed.Error()),
			"path", path,
		)
	}

	decl := &declaration{
		Toolchains: root.Toolchains,
		Targets:    root.Targets,
	}
	if root.Workspace != nil {
		decl.Workspace = *root.Workspace
	}
	return decl, nil
}
