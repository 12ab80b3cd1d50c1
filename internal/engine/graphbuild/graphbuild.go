// Package graphbuild implements the dependency graph builder: it queries
// toolchain discovery for every build context and assembles the node graph
// with file-level edges.
package graphbuild

import (
	"context"
	"runtime"
	"sync"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// ToolchainLookup resolves the implementation for one (toolchain name,
// architecture) pair.
type ToolchainLookup func(name, architecture string) (ports.Toolchain, error)

// Builder assembles the build node graph from expanded contexts.
type Builder struct {
	lookup ToolchainLookup
	tracer ports.Tracer
}

// NewBuilder creates a Builder using the given toolchain lookup.
func NewBuilder(lookup ToolchainLookup, tracer ports.Tracer) *Builder {
	return &Builder{lookup: lookup, tracer: tracer}
}

// discovery holds the result of toolchain discovery for one context.
type discovery struct {
	bc    *domain.BuildContext
	specs []domain.NodeSpec
}

// Build runs discovery for every context and assembles the graph in two
// phases: node population, then edge wiring and cycle validation. Any
// failure here is a fatal configuration error; no node has executed yet.
func (b *Builder) Build(
	ctx context.Context,
	ws *domain.Workspace,
	contexts []*domain.BuildContext,
) (*domain.Graph, error) {
	ctx, span := b.tracer.Start(ctx, "Building graph")
	defer span.End()

	discoveries, err := b.discoverAll(ctx, contexts)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	graph := domain.NewGraph()
	graph.SetRoot(ws.Root)

	producers, err := populateNodes(graph, discoveries)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := wireEdges(graph, producers); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := checkContextDependencies(ws, contexts); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := graph.Validate(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttribute("forge.nodes", graph.Len())
	return graph, nil
}

// discoverAll invokes toolchain discovery for every context concurrently.
// Results keep the input context order so node IDs are deterministic.
func (b *Builder) discoverAll(ctx context.Context, contexts []*domain.BuildContext) ([]discovery, error) {
	discoveries := make([]discovery, len(contexts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	var mu sync.Mutex
	for i, bc := range contexts {
		g.Go(func() error {
			tc, err := b.lookup(bc.Toolchain.String(), bc.Architecture.String())
			if err != nil {
				return zerr.With(err, "context", bc.Key())
			}

			specs, err := tc.Discover(ctx, bc, bc.Sources)
			if err != nil {
				return zerr.With(zerr.Wrap(err, domain.ErrDiscoveryFailed.Error()), "context", bc.Key())
			}

			mu.Lock()
			discoveries[i] = discovery{bc: bc, specs: specs}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return discoveries, nil
}

// populateNodes adds every discovered node to the arena and indexes output
// artifacts by their producing node. Each artifact may have exactly one
// producer.
func populateNodes(graph *domain.Graph, discoveries []discovery) (map[string]domain.NodeID, error) {
	producers := make(map[string]domain.NodeID)

	for _, d := range discoveries {
		for _, spec := range d.specs {
			node := &domain.BuildNode{
				Key:       domain.NodeKey(d.bc, spec.Label),
				Label:     spec.Label,
				Context:   d.bc,
				Operation: spec.Operation,
				Inputs:    spec.Inputs,
				Outputs:   spec.Outputs,
				Argv:      spec.Argv,
			}

			id, err := graph.AddNode(node)
			if err != nil {
				return nil, err
			}

			for _, output := range spec.Outputs {
				if prev, exists := producers[output]; exists {
					err := zerr.With(domain.ErrDuplicateProducer, "artifact", output)
					return nil, zerr.With(err, "nodes", graph.Node(prev).Key.String()+", "+node.Key.String())
				}
				producers[output] = id
			}
		}
	}

	return producers, nil
}

// wireEdges adds one edge per real input-to-output relationship. An input
// with no producer is a source artifact living outside the graph.
func wireEdges(graph *domain.Graph, producers map[string]domain.NodeID) error {
	for node := range allNodes(graph) {
		for _, input := range node.Inputs {
			producer, ok := producers[input]
			if !ok {
				continue // source artifact
			}
			if producer == node.ID {
				continue
			}
			if err := graph.AddEdge(producer, node.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// allNodes iterates the arena in insertion order, independent of the
// topological order which is not yet computed.
func allNodes(graph *domain.Graph) func(yield func(*domain.BuildNode) bool) {
	return func(yield func(*domain.BuildNode) bool) {
		for id := range graph.Len() {
			if !yield(graph.Node(domain.NodeID(id))) {
				return
			}
		}
	}
}

// checkContextDependencies verifies that every target-level dependency has
// a matching build context for each of the dependent's axis combinations.
func checkContextDependencies(ws *domain.Workspace, contexts []*domain.BuildContext) error {
	byTarget := make(map[domain.InternedString]map[string]bool)
	for _, bc := range contexts {
		axes := byTarget[bc.Target.Name]
		if axes == nil {
			axes = make(map[string]bool)
			byTarget[bc.Target.Name] = axes
		}
		axes[bc.AxisKey()] = true
	}

	for _, bc := range contexts {
		for _, dep := range bc.Target.Depends {
			depTarget, ok := ws.TargetByName(dep)
			if !ok {
				return zerr.With(domain.ErrMissingDependency, "dependency", dep.String())
			}
			if depTarget.Optional {
				continue
			}
			if !byTarget[dep][bc.AxisKey()] {
				err := zerr.With(domain.ErrUnsatisfiedContextDependency, "context", bc.Key())
				return zerr.With(err, "dependency", dep.String())
			}
		}
	}
	return nil
}
