// Package scheduler executes the build graph with bounded parallelism,
// incremental skipping and fail-soft error collection.
package scheduler

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// ToolchainLookup resolves the implementation for one (toolchain name,
// architecture) pair.
type ToolchainLookup func(name, architecture string) (ports.Toolchain, error)

// Options tune one run.
type Options struct {
	// Targets restricts the run to the named targets and their transitive
	// dependencies. Empty or containing "all" runs everything.
	Targets []string

	// Parallelism bounds the number of concurrently running nodes. Values
	// below one fall back to the CPU count.
	Parallelism int

	// NoIncremental bypasses the staleness check so every node executes.
	// Fingerprints are still recorded for the next run.
	NoIncremental bool
}

// Scheduler drives node execution over a validated graph. Workers decide
// staleness and run toolchain processes; all state store writes happen on
// the coordinator loop so each record commits exactly once per node.
type Scheduler struct {
	lookup ToolchainLookup
	store  ports.FingerprintStore
	hasher ports.Hasher
	tracer ports.Tracer
	logger ports.Logger
}

// NewScheduler creates a new Scheduler with the given collaborators.
func NewScheduler(
	lookup ToolchainLookup,
	store ports.FingerprintStore,
	hasher ports.Hasher,
	tracer ports.Tracer,
	logger ports.Logger,
) *Scheduler {
	return &Scheduler{
		lookup: lookup,
		store:  store,
		hasher: hasher,
		tracer: tracer,
		logger: logger,
	}
}

// Run executes the selected portion of the graph and reports the outcome of
// every selected node. Node failures do not abort the run; they fail the
// node's dependent subtree and leave independent subtrees running. The
// returned error joins all node failures and, on cancellation, the context
// error.
func (s *Scheduler) Run(ctx context.Context, graph *domain.Graph, opts Options) (*domain.RunResult, error) {
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	state, err := s.newRunState(ctx, graph, opts)
	if err != nil {
		return nil, err
	}

	planned := make([]string, 0, state.selected)
	for node := range graph.Walk() {
		if state.inRun[node.ID] {
			planned = append(planned, node.Key.String())
		}
	}
	s.tracer.EmitPlan(ctx, planned)

	start := time.Now()
	runErr := state.runExecutionLoop()

	res := state.collect(graph)
	res.WallTime = time.Since(start)
	res.Success = runErr == nil && res.Executed+res.UpToDate == state.selected
	return res, runErr
}

// result is what one worker reports back to the coordinator.
type result struct {
	id          domain.NodeID
	err         error
	upToDate    bool
	record      domain.NodeRecord
	diagnostics string
	duration    time.Duration
}

type runState struct {
	ctx         context.Context
	s           *Scheduler
	graph       *domain.Graph
	parallelism int
	noIncr      bool

	inRun    []bool
	selected int

	// remaining counts unfinished in-run predecessors per node; poisoned
	// carries the first failed ancestor once any predecessor fails.
	remaining []int
	poisoned  []domain.NodeID

	ready     []domain.NodeID
	active    int
	resultsCh chan result

	statuses []domain.NodeStatus
	outcomes []domain.NodeResult
	errs     error
}

func (s *Scheduler) newRunState(ctx context.Context, graph *domain.Graph, opts Options) (*runState, error) {
	inRun, selected, err := selectNodes(graph, opts.Targets)
	if err != nil {
		return nil, err
	}

	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = runtime.NumCPU()
	}

	state := &runState{
		ctx:         ctx,
		s:           s,
		graph:       graph,
		parallelism: parallelism,
		noIncr:      opts.NoIncremental,
		inRun:       inRun,
		selected:    selected,
		remaining:   make([]int, graph.Len()),
		poisoned:    make([]domain.NodeID, graph.Len()),
		resultsCh:   make(chan result, parallelism),
		statuses:    make([]domain.NodeStatus, graph.Len()),
		outcomes:    make([]domain.NodeResult, graph.Len()),
	}

	for id := range graph.Len() {
		nid := domain.NodeID(id)
		state.poisoned[id] = domain.InvalidNode
		if !inRun[id] {
			continue
		}

		degree := 0
		for _, dep := range graph.Predecessors(nid) {
			if inRun[dep] {
				degree++
			}
		}
		state.remaining[id] = degree
		if degree == 0 {
			state.markReady(nid)
		}
	}

	return state, nil
}

// selectNodes resolves the run set: every node when no target filter is
// given, otherwise the nodes of the named targets plus their transitive
// predecessors.
func selectNodes(graph *domain.Graph, targets []string) ([]bool, int, error) {
	inRun := make([]bool, graph.Len())

	if len(targets) == 0 || slices.Contains(targets, "all") {
		for i := range inRun {
			inRun[i] = true
		}
		return inRun, graph.Len(), nil
	}

	wanted := make(map[domain.InternedString]bool, len(targets))
	for _, name := range targets {
		wanted[domain.NewInternedString(name)] = true
	}

	var queue []domain.NodeID
	found := make(map[domain.InternedString]bool)
	for id := range graph.Len() {
		node := graph.Node(domain.NodeID(id))
		if wanted[node.Context.Target.Name] {
			found[node.Context.Target.Name] = true
			queue = append(queue, node.ID)
		}
	}

	for name := range wanted {
		if !found[name] {
			return nil, 0, zerr.With(domain.ErrTargetNotFound, "target", name.String())
		}
	}

	selected := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if inRun[id] {
			continue
		}
		inRun[id] = true
		selected++
		queue = append(queue, graph.Predecessors(id)...)
	}

	return inRun, selected, nil
}

func (state *runState) runExecutionLoop() error {
	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil && state.active == 0 {
			return errors.Join(state.errs, state.ctx.Err())
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}

	if state.ctx.Err() != nil {
		state.errs = errors.Join(state.errs, state.ctx.Err())
	}

	return state.errs
}

func (state *runState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *runState) markReady(id domain.NodeID) {
	state.statuses[id] = domain.StatusReady
	state.ready = append(state.ready, id)
}

func (state *runState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && state.ctx.Err() == nil {
		id := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		state.statuses[id] = domain.StatusRunning

		go state.executeNode(state.graph.Node(id))
	}
}

func (state *runState) executeNode(node *domain.BuildNode) {
	// The span must end before the result is sent so the coordinator never
	// observes a node whose span is still open.
	res := func() result {
		start := time.Now()
		ctx, span := state.s.tracer.Start(state.ctx, node.Label)
		defer span.End()

		tc, err := state.s.lookup(node.Context.Toolchain.String(), node.Context.Architecture.String())
		if err != nil {
			span.RecordError(err)
			return result{id: node.ID, err: err, duration: time.Since(start)}
		}

		signature := state.s.hasher.CommandSignature(node)

		inputs, err := state.s.fingerprintAll(node.Inputs)
		if err != nil {
			span.RecordError(err)
			return result{id: node.ID, err: err, duration: time.Since(start)}
		}

		if !state.noIncr && state.s.upToDate(node, signature, inputs) {
			span.SetAttribute("forge.up_to_date", true)
			return result{id: node.ID, upToDate: true, duration: time.Since(start)}
		}

		var diag bytes.Buffer
		if err := tc.Execute(ctx, node, &diag, &diag); err != nil {
			span.RecordError(err)
			return result{
				id:          node.ID,
				err:         err,
				diagnostics: diag.String(),
				duration:    time.Since(start),
			}
		}

		outputs, err := state.s.fingerprintAll(node.Outputs)
		if err != nil {
			// A node that claims success but produced no output is failed.
			span.RecordError(err)
			return result{
				id:          node.ID,
				err:         err,
				diagnostics: diag.String(),
				duration:    time.Since(start),
			}
		}

		return result{
			id: node.ID,
			record: domain.NodeRecord{
				NodeKey:          node.Key.String(),
				CommandSignature: signature,
				Inputs:           inputs,
				Outputs:          outputs,
				UpdatedAt:        time.Now(),
			},
			diagnostics: diag.String(),
			duration:    time.Since(start),
		}
	}()

	state.resultsCh <- res
}

// fingerprintAll fingerprints every path, failing on the first unreadable
// one.
func (s *Scheduler) fingerprintAll(paths []string) (map[string]domain.Fingerprint, error) {
	fps := make(map[string]domain.Fingerprint, len(paths))
	for _, path := range paths {
		fp, err := s.hasher.FingerprintFile(path)
		if err != nil {
			return nil, zerr.With(err, "file", path)
		}
		fps[path] = fp
	}
	return fps, nil
}

// upToDate decides whether a node can be skipped: its record must exist,
// its command signature and every input fingerprint must match, and every
// recorded output must still be present with matching content. Any doubt
// means stale.
func (s *Scheduler) upToDate(node *domain.BuildNode, signature string, inputs map[string]domain.Fingerprint) bool {
	rec, err := s.store.GetNode(node.Key.String())
	if err != nil || rec == nil {
		return false
	}

	if rec.CommandSignature != signature {
		return false
	}

	if len(rec.Inputs) != len(inputs) {
		return false
	}
	for path, fp := range inputs {
		prev, ok := rec.Inputs[path]
		if !ok || !prev.Equal(fp) {
			return false
		}
	}

	if len(rec.Outputs) != len(node.Outputs) {
		return false
	}
	for _, path := range node.Outputs {
		prev, ok := rec.Outputs[path]
		if !ok {
			return false
		}
		current, err := s.hasher.FingerprintFile(path)
		if err != nil || !prev.Equal(current) {
			return false
		}
	}

	return true
}

func (state *runState) handleResult(res result) {
	state.active--

	node := state.graph.Node(res.id)
	outcome := &state.outcomes[res.id]
	outcome.Key = node.Key.String()
	outcome.Target = node.Context.Target.Name.String()
	outcome.Label = node.Label
	outcome.Diagnostics = res.diagnostics
	outcome.Duration = res.duration

	if res.err != nil {
		state.statuses[res.id] = domain.StatusFailed
		outcome.Status = domain.StatusFailed
		outcome.CausedBy = node.Key.String()

		wrapped := zerr.With(
			zerr.Wrap(res.err, domain.ErrNodeExecutionFailed.Error()),
			"node", node.Key.String(),
		)
		state.errs = errors.Join(state.errs, wrapped)

		// Once the run is canceled, undispatched nodes stay Pending instead
		// of being skipped.
		if state.ctx.Err() == nil {
			state.release(res.id, res.id)
		}
		return
	}

	state.statuses[res.id] = domain.StatusSucceeded
	outcome.Status = domain.StatusSucceeded
	outcome.UpToDate = res.upToDate

	if !res.upToDate {
		if err := state.s.store.PutNode(res.record); err != nil {
			// A failed commit costs one rebuild next run, not this build.
			state.s.logger.Warn("state commit failed for " + node.Key.String() + ": " + err.Error())
		}
	}

	state.release(res.id, domain.InvalidNode)
}

// release settles the in-run dependents of a finished node. A valid cause
// poisons them; a poisoned node whose last predecessor settles is skipped
// immediately and cascades to its own dependents.
func (state *runState) release(id, cause domain.NodeID) {
	for _, dep := range state.graph.Dependents(id) {
		if !state.inRun[dep] {
			continue
		}
		if cause != domain.InvalidNode && state.poisoned[dep] == domain.InvalidNode {
			state.poisoned[dep] = cause
		}
		state.remaining[dep]--
		if state.remaining[dep] > 0 {
			continue
		}
		if state.poisoned[dep] != domain.InvalidNode {
			state.markSkipped(dep)
			continue
		}
		state.markReady(dep)
	}
}

func (state *runState) markSkipped(id domain.NodeID) {
	cause := state.poisoned[id]
	node := state.graph.Node(id)
	state.statuses[id] = domain.StatusSkipped
	state.outcomes[id] = domain.NodeResult{
		Key:      node.Key.String(),
		Target:   node.Context.Target.Name.String(),
		Label:    node.Label,
		Status:   domain.StatusSkipped,
		CausedBy: state.graph.Node(cause).Key.String(),
	}

	state.release(id, cause)
}

// collect assembles the run result in topological order. Nodes never
// dispatched because of cancellation stay Pending.
func (state *runState) collect(graph *domain.Graph) *domain.RunResult {
	res := &domain.RunResult{
		RunID: uuid.NewString(),
		Nodes: make([]domain.NodeResult, 0, state.selected),
	}

	for node := range graph.Walk() {
		if !state.inRun[node.ID] {
			continue
		}
		outcome := state.outcomes[node.ID]
		if !state.statuses[node.ID].Terminal() {
			outcome = domain.NodeResult{
				Key:    node.Key.String(),
				Target: node.Context.Target.Name.String(),
				Label:  node.Label,
				Status: domain.StatusPending,
			}
		}
		res.Nodes = append(res.Nodes, outcome)
	}

	res.Counts()
	return res
}
