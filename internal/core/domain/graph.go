// Package domain contains the core domain models for the build graph.
package domain

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Graph is the dependency graph of build nodes. Nodes live in an arena
// indexed by NodeID; edge sets hold IDs, never pointers.
type Graph struct {
	root  string
	nodes []*BuildNode
	byKey map[InternedString]NodeID
	preds [][]NodeID
	succs [][]NodeID
	order []NodeID
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		byKey: make(map[InternedString]NodeID),
	}
}

// SetRoot sets the workspace root directory for the graph.
func (g *Graph) SetRoot(root string) {
	g.root = root
}

// Root returns the workspace root directory.
func (g *Graph) Root() string {
	return g.root
}

// AddNode adds a node to the arena and assigns its ID.
// It returns an error if a node with the same key already exists.
func (g *Graph) AddNode(n *BuildNode) (NodeID, error) {
	if _, exists := g.byKey[n.Key]; exists {
		return InvalidNode, zerr.With(ErrDuplicateNode, "node", n.Key.String())
	}
	id := NodeID(len(g.nodes))
	n.ID = id
	g.nodes = append(g.nodes, n)
	g.preds = append(g.preds, nil)
	g.succs = append(g.succs, nil)
	g.byKey[n.Key] = id
	return id, nil
}

// AddEdge records that node to depends on node from. Duplicate edges are
// silently deduplicated.
func (g *Graph) AddEdge(from, to NodeID) error {
	if !g.valid(from) || !g.valid(to) {
		return zerr.With(ErrNodeNotFound, "edge", fmt.Sprintf("%d -> %d", from, to))
	}
	if slices.Contains(g.preds[to], from) {
		return nil
	}
	g.preds[to] = append(g.preds[to], from)
	g.succs[from] = append(g.succs[from], to)
	return nil
}

func (g *Graph) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes)
}

// Node returns the node with the given ID.
func (g *Graph) Node(id NodeID) *BuildNode {
	if !g.valid(id) {
		return nil
	}
	return g.nodes[id]
}

// NodeByKey returns the node with the given identity key.
func (g *Graph) NodeByKey(key InternedString) (*BuildNode, bool) {
	id, ok := g.byKey[key]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Predecessors returns the IDs of the nodes that must reach a terminal
// state before the given node may run.
func (g *Graph) Predecessors(id NodeID) []NodeID {
	if !g.valid(id) {
		return nil
	}
	return g.preds[id]
}

// Dependents returns the IDs of the nodes that consume outputs of the given
// node.
func (g *Graph) Dependents(id NodeID) []NodeID {
	if !g.valid(id) {
		return nil
	}
	return g.succs[id]
}

const (
	colorWhite = 0 // unvisited
	colorGray  = 1 // on the current DFS path
	colorBlack = 2 // fully explored
)

type dfsFrame struct {
	id   NodeID
	next int
}

// Validate checks the graph for cycles with an iterative three-color DFS
// and populates the topological execution order. Any back edge is reported
// as a dependency cycle naming the full cycle path. Validation must pass
// before any node executes.
func (g *Graph) Validate() error {
	g.order = make([]NodeID, 0, len(g.nodes))
	color := make([]uint8, len(g.nodes))

	for start := range g.nodes {
		if color[start] != colorWhite {
			continue
		}

		stack := []dfsFrame{{id: NodeID(start)}}
		color[start] = colorGray

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			deps := g.preds[top.id]

			if top.next < len(deps) {
				dep := deps[top.next]
				top.next++

				switch color[dep] {
				case colorGray:
					return g.cycleError(stack, dep)
				case colorWhite:
					color[dep] = colorGray
					stack = append(stack, dfsFrame{id: dep})
				}
				continue
			}

			color[top.id] = colorBlack
			g.order = append(g.order, top.id)
			stack = stack[:len(stack)-1]
		}
	}

	return nil
}

// cycleError builds the dependency-cycle error from the DFS stack, naming
// the full cycle path.
func (g *Graph) cycleError(stack []dfsFrame, back NodeID) error {
	startIdx := 0
	for i, f := range stack {
		if f.id == back {
			startIdx = i
			break
		}
	}

	var b strings.Builder
	for i := startIdx; i < len(stack); i++ {
		b.WriteString(g.nodes[stack[i].id].Key.String())
		b.WriteString(" -> ")
	}
	b.WriteString(g.nodes[back].Key.String())

	return zerr.With(ErrDependencyCycle, "cycle", b.String())
}

// Walk returns an iterator that yields nodes in a valid execution order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[*BuildNode] {
	return func(yield func(*BuildNode) bool) {
		for _, id := range g.order {
			if !yield(g.nodes[id]) {
				return
			}
		}
	}
}

// SnapshotNode is one node in an exported graph snapshot.
type SnapshotNode struct {
	Key       string   `json:"key"`
	Target    string   `json:"target"`
	Label     string   `json:"label"`
	Operation string   `json:"operation"`
	Inputs    []string `json:"inputs"`
	Outputs   []string `json:"outputs"`
	DependsOn []string `json:"dependsOn"`
}

// GraphSnapshot is a read-only copy of the node set and its edges, suitable
// for external rendering. It shares no storage with the graph.
type GraphSnapshot struct {
	Root  string         `json:"root"`
	Nodes []SnapshotNode `json:"nodes"`
}

// Export takes a snapshot of the graph for visualization collaborators.
// The snapshot is taken after graph build and reflects no execution state.
func (g *Graph) Export() GraphSnapshot {
	snap := GraphSnapshot{
		Root:  g.root,
		Nodes: make([]SnapshotNode, 0, len(g.nodes)),
	}

	for _, n := range g.nodes {
		deps := make([]string, 0, len(g.preds[n.ID]))
		for _, p := range g.preds[n.ID] {
			deps = append(deps, g.nodes[p].Key.String())
		}
		snap.Nodes = append(snap.Nodes, SnapshotNode{
			Key:       n.Key.String(),
			Target:    n.Context.Target.Name.String(),
			Label:     n.Label,
			Operation: string(n.Operation),
			Inputs:    slices.Clone(n.Inputs),
			Outputs:   slices.Clone(n.Outputs),
			DependsOn: deps,
		})
	}

	return snap
}
