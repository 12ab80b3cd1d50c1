package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/config"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func newLoader(t *testing.T) *config.Loader {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := mocks.NewMockLogger(ctrl)
	logger.EXPECT().Warn(gomock.Any()).AnyTimes()
	logger.EXPECT().Info(gomock.Any()).AnyTimes()
	return config.NewLoader(logger)
}

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

const hclConfig = `
variable "std" {
  value = "-std=c11"
}

workspace {
  architectures  = ["x64", "arm64"]
  toolchains     = ["gcc"]
  configurations = ["debug", "release"]
}

toolchain "gcc" {
  architectures = ["x64", "arm64"]

  compile {
    suffixes = [".c"]
    argv     = ["gcc", "-c", "{flags}", "{input}", "-o", "{output}"]
  }

  link {
    argv = ["gcc", "{inputs}", "-o", "{output}"]
  }

  archive {
    output_prefix = "lib"
    output_suffix = ".a"
    argv          = ["ar", "rcs", "{output}", "{inputs}"]
  }
}

target "core" {
  kind    = "static-library"
  sources = ["src/core.c"]

  settings {
    flags = [var.std]
  }
}

target "app" {
  kind    = "executable"
  sources = ["src/main.c"]
  depends = ["core"]

  configurations {
    exclude = []
  }

  settings {
    vars = { appVersion = "1.2.3" }
  }

  settings {
    configuration = "release"
    flags         = ["-O2"]
  }
}
`

func TestLoad_HCL(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, domain.HCLFileName, hclConfig)

	ws, err := newLoader(t).Load(dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"x64", "arm64"}, ws.Architectures)
	assert.Equal(t, []string{"gcc"}, ws.Toolchains)
	assert.Equal(t, []string{"debug", "release"}, ws.Configurations)
	require.Len(t, ws.ToolchainSpecs, 1)
	require.NotNil(t, ws.ToolchainSpecs[0].Archive)
	assert.Equal(t, "lib", ws.ToolchainSpecs[0].Archive.OutputPrefix)

	require.Len(t, ws.Targets, 2)

	core, ok := ws.TargetByName(domain.NewInternedString("core"))
	require.True(t, ok)
	assert.Equal(t, domain.KindStaticLibrary, core.Kind)
	// Variable reference resolved into the default layer.
	assert.Equal(t, []string{"-std=c11"}, core.Settings.Defaults.Flags)

	app, ok := ws.TargetByName(domain.NewInternedString("app"))
	require.True(t, ok)
	assert.Equal(t, []domain.InternedString{core.Name}, app.Depends)
	assert.Equal(t, "1.2.3", app.Settings.Defaults.Vars["appVersion"])
	assert.Equal(t, []string{"-O2"}, app.Settings.ByConfiguration["release"].Flags)
}

const yamlConfig = `
architectures: [x64]
configurations: [debug]
toolchainSpecs:
  gcc:
    compile:
      suffixes: [".c"]
      argv: ["gcc", "-c", "{input}", "-o", "{output}"]
    link:
      argv: ["gcc", "{inputs}", "-o", "{output}"]
targets:
  app:
    kind: executable
    sources: [main.c]
    settings:
      - configuration: debug
        flags: ["-g"]
`

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, domain.YAMLFileName, yamlConfig)

	ws, err := newLoader(t).Load(dir)
	require.NoError(t, err)

	// Toolchains default to the declared spec names.
	assert.Equal(t, []string{"gcc"}, ws.Toolchains)
	require.Len(t, ws.Targets, 1)
	assert.Equal(t, []string{"-g"}, ws.Targets[0].Settings.ByConfiguration["debug"].Flags)
}

func TestLoad_WalksUpToFindConfiguration(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeConfig(t, root, domain.YAMLFileName, yamlConfig)
	nested := filepath.Join(root, "src", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	ws, err := newLoader(t).Load(nested)
	require.NoError(t, err)

	resolvedRoot, err := filepath.EvalSymlinks(ws.Root)
	require.NoError(t, err)
	expectedRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, expectedRoot, resolvedRoot)
}

func TestLoad_PrefersHCLOverYAML(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, domain.HCLFileName, hclConfig)
	writeConfig(t, dir, domain.YAMLFileName, yamlConfig)

	ws, err := newLoader(t).Load(dir)
	require.NoError(t, err)
	require.Len(t, ws.Targets, 2) // the HCL file declares two targets
}

func TestLoad_NotFound(t *testing.T) {
	t.Parallel()

	_, err := newLoader(t).Load(t.TempDir())
	require.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestLoad_DuplicateTarget(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, domain.HCLFileName, `
toolchain "gcc" {
  compile { argv = ["gcc"] }
}
target "app" { kind = "executable" }
target "app" { kind = "executable" }
`)

	_, err := newLoader(t).Load(dir)
	require.ErrorIs(t, err, domain.ErrDuplicateTarget)
}

func TestLoad_MissingDependency(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, domain.HCLFileName, `
toolchain "gcc" {
  compile { argv = ["gcc"] }
}
target "app" {
  kind    = "executable"
  depends = ["ghost"]
}
`)

	_, err := newLoader(t).Load(dir)
	require.ErrorIs(t, err, domain.ErrMissingDependency)
}

func TestLoad_InvalidTargetName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, domain.HCLFileName, `
toolchain "gcc" {
  compile { argv = ["gcc"] }
}
target "bad name" { kind = "executable" }
`)

	_, err := newLoader(t).Load(dir)
	require.ErrorIs(t, err, domain.ErrInvalidTargetName)
}

func TestLoad_UnknownKind(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, domain.HCLFileName, `
toolchain "gcc" {
  compile { argv = ["gcc"] }
}
target "app" { kind = "plugin" }
`)

	_, err := newLoader(t).Load(dir)
	require.ErrorIs(t, err, domain.ErrConfigParseFailed)
}

func TestLoad_SettingsBlockWithTwoAxes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, domain.HCLFileName, `
toolchain "gcc" {
  compile { argv = ["gcc"] }
}
target "app" {
  kind = "executable"
  settings {
    architecture  = "x64"
    configuration = "debug"
    flags         = ["-g"]
  }
}
`)

	_, err := newLoader(t).Load(dir)
	require.ErrorIs(t, err, domain.ErrConfigParseFailed)
}

func TestLoad_NoToolchains(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, domain.HCLFileName, `
target "app" { kind = "executable" }
`)

	_, err := newLoader(t).Load(dir)
	require.ErrorIs(t, err, domain.ErrConfigParseFailed)
}
