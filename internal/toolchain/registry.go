// Package toolchain implements the toolchain registry and the generic
// command toolchain that dispatches declaratively configured compiler,
// linker and archiver invocations.
package toolchain

import (
	"sync"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// Registry maps (toolchain name, architecture) pairs to implementations.
// It is populated before a run starts and read-only afterwards.
type Registry struct {
	mu       sync.RWMutex
	byPair   map[string]ports.Toolchain
	fallback map[string]ports.Toolchain // name -> architecture-independent implementation
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byPair:   make(map[string]ports.Toolchain),
		fallback: make(map[string]ports.Toolchain),
	}
}

func pairKey(name, architecture string) string {
	return name + "|" + architecture
}

// Register adds an implementation for one (name, architecture) pair.
// An empty architecture registers the implementation for all architectures
// that have no explicit registration.
func (r *Registry) Register(name, architecture string, tc ports.Toolchain) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if architecture == "" {
		if _, exists := r.fallback[name]; exists {
			return zerr.With(domain.ErrToolchainAlreadyRegistered, "toolchain", name)
		}
		r.fallback[name] = tc
		return nil
	}

	key := pairKey(name, architecture)
	if _, exists := r.byPair[key]; exists {
		return zerr.With(domain.ErrToolchainAlreadyRegistered, "toolchain", key)
	}
	r.byPair[key] = tc
	return nil
}

// Lookup returns the implementation for a (name, architecture) pair,
// falling back to an architecture-independent registration.
func (r *Registry) Lookup(name, architecture string) (ports.Toolchain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if tc, ok := r.byPair[pairKey(name, architecture)]; ok {
		return tc, nil
	}
	if tc, ok := r.fallback[name]; ok {
		return tc, nil
	}
	return nil, zerr.With(domain.ErrUnknownToolchain, "toolchain", pairKey(name, architecture))
}

// RegisterSpecs builds a command toolchain from every spec and registers it
// for each architecture the spec declares.
func (r *Registry) RegisterSpecs(specs []domain.ToolchainSpec, runner ports.CommandRunner) error {
	for i := range specs {
		spec := &specs[i]
		tc := NewCommandToolchain(spec, runner)

		if len(spec.Architectures) == 0 {
			if err := r.Register(spec.Name, "", tc); err != nil {
				return err
			}
			continue
		}
		for _, arch := range spec.Architectures {
			if err := r.Register(spec.Name, arch, tc); err != nil {
				return err
			}
		}
	}
	return nil
}
