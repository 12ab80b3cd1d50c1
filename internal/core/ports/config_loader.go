package ports

import "go.trai.ch/forge/internal/core/domain"

// ConfigLoader loads the declarative build input: targets, axes and
// toolchain specifications.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the workspace declaration starting from the given working
	// directory.
	Load(cwd string) (*domain.Workspace, error)
}
