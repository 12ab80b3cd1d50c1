package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"testing/synctest"

	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/internal/adapters/telemetry"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/core/ports/mocks"
	"go.trai.ch/forge/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

type schedulerTestMocks struct {
	toolchain *mocks.MockToolchain
	store     *mocks.MockFingerprintStore
	hasher    *mocks.MockHasher
	logger    *mocks.MockLogger
}

// setupSchedulerTest creates a scheduler and common mocks. The hasher
// fingerprints every path deterministically by its name and every command
// signature by the node's argv, so staleness outcomes are driven entirely
// by what the store mock returns.
func setupSchedulerTest(t *testing.T) (*scheduler.Scheduler, schedulerTestMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := schedulerTestMocks{
		toolchain: mocks.NewMockToolchain(ctrl),
		store:     mocks.NewMockFingerprintStore(ctrl),
		hasher:    mocks.NewMockHasher(ctrl),
		logger:    mocks.NewMockLogger(ctrl),
	}

	m.hasher.EXPECT().FingerprintFile(gomock.Any()).DoAndReturn(
		func(path string) (domain.Fingerprint, error) {
			return domain.Fingerprint{Hash: "fp:" + path}, nil
		},
	).AnyTimes()
	m.hasher.EXPECT().CommandSignature(gomock.Any()).DoAndReturn(
		func(node *domain.BuildNode) string {
			sig := "sig"
			for _, arg := range node.Argv {
				sig += ":" + arg
			}
			return sig
		},
	).AnyTimes()
	m.logger.EXPECT().Warn(gomock.Any()).AnyTimes()

	lookup := func(_, _ string) (ports.Toolchain, error) {
		return m.toolchain, nil
	}
	s := scheduler.NewScheduler(lookup, m.store, m.hasher, telemetry.NewNoOpTracer(), m.logger)
	return s, m
}

func testTarget(name string) *domain.Target {
	return &domain.Target{Name: domain.NewInternedString(name), Kind: domain.KindExecutable}
}

func testContext(target *domain.Target) *domain.BuildContext {
	return &domain.BuildContext{
		Target:        target,
		Architecture:  domain.NewInternedString("x64"),
		Toolchain:     domain.NewInternedString("gcc"),
		Configuration: domain.NewInternedString("debug"),
	}
}

type nodeDef struct {
	label   string
	inputs  []string
	outputs []string
}

// createGraphHelper builds a validated graph from node definitions; edges
// are implied by shared artifact names, as the graph builder would wire
// them.
func createGraphHelper(t *testing.T, bc *domain.BuildContext, defs []nodeDef) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	g.SetRoot("/ws")

	producers := make(map[string]domain.NodeID)
	for _, def := range defs {
		id, err := g.AddNode(&domain.BuildNode{
			Key:       domain.NodeKey(bc, def.label),
			Label:     def.label,
			Context:   bc,
			Operation: domain.OpTool,
			Inputs:    def.inputs,
			Outputs:   def.outputs,
			Argv:      []string{"tool", def.label},
		})
		require.NoError(t, err)
		for _, out := range def.outputs {
			producers[out] = id
		}
	}

	for _, def := range defs {
		node, ok := g.NodeByKey(domain.NodeKey(bc, def.label))
		require.True(t, ok)
		for _, in := range def.inputs {
			if producer, found := producers[in]; found {
				require.NoError(t, g.AddEdge(producer, node.ID))
			}
		}
	}

	require.NoError(t, g.Validate())
	return g
}

// nodeMatcher implements gomock.Matcher for build nodes by label.
type nodeMatcher struct {
	label string
}

func (m nodeMatcher) Matches(x any) bool {
	node, ok := x.(*domain.BuildNode)
	if !ok {
		return false
	}
	return node.Label == m.label
}

func (m nodeMatcher) String() string {
	return "node label is " + m.label
}

func matchNode(label string) gomock.Matcher {
	return nodeMatcher{label: label}
}

func resultFor(t *testing.T, res *domain.RunResult, label string) domain.NodeResult {
	t.Helper()
	for _, n := range res.Nodes {
		if n.Label == label {
			return n
		}
	}
	t.Fatalf("no result for node %q", label)
	return domain.NodeResult{}
}

func TestRun_DiamondDependencyOrder(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		// base feeds left and right, which both feed top.
		bc := testContext(testTarget("app"))
		g := createGraphHelper(t, bc, []nodeDef{
			{label: "base", inputs: []string{"src"}, outputs: []string{"base.out"}},
			{label: "left", inputs: []string{"base.out"}, outputs: []string{"left.out"}},
			{label: "right", inputs: []string{"base.out"}, outputs: []string{"right.out"}},
			{label: "top", inputs: []string{"left.out", "right.out"}, outputs: []string{"top.out"}},
		})
		s, m := setupSchedulerTest(t)

		m.store.EXPECT().GetNode(gomock.Any()).Return(nil, nil).AnyTimes()
		m.store.EXPECT().PutNode(gomock.Any()).Return(nil).Times(4)

		baseCall := m.toolchain.EXPECT().
			Execute(gomock.Any(), matchNode("base"), gomock.Any(), gomock.Any()).
			Return(nil).Times(1)
		leftCall := m.toolchain.EXPECT().
			Execute(gomock.Any(), matchNode("left"), gomock.Any(), gomock.Any()).
			Return(nil).Times(1).After(baseCall)
		rightCall := m.toolchain.EXPECT().
			Execute(gomock.Any(), matchNode("right"), gomock.Any(), gomock.Any()).
			Return(nil).Times(1).After(baseCall)
		m.toolchain.EXPECT().
			Execute(gomock.Any(), matchNode("top"), gomock.Any(), gomock.Any()).
			Return(nil).Times(1).After(leftCall).After(rightCall)

		res, err := s.Run(context.Background(), g, scheduler.Options{Parallelism: 4})
		require.NoError(t, err)
		require.True(t, res.Success)
		require.Equal(t, 4, res.Executed)
		require.NotEmpty(t, res.RunID)
	})
}

func TestRun_UpToDateNodeIsNotDispatched(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		bc := testContext(testTarget("app"))
		g := createGraphHelper(t, bc, []nodeDef{
			{label: "build", inputs: []string{"a.c"}, outputs: []string{"a.o"}},
		})
		s, m := setupSchedulerTest(t)

		node, ok := g.NodeByKey(domain.NodeKey(bc, "build"))
		require.True(t, ok)

		m.store.EXPECT().GetNode(node.Key.String()).Return(&domain.NodeRecord{
			NodeKey:          node.Key.String(),
			CommandSignature: "sig:tool:build",
			Inputs:           map[string]domain.Fingerprint{"a.c": {Hash: "fp:a.c"}},
			Outputs:          map[string]domain.Fingerprint{"a.o": {Hash: "fp:a.o"}},
		}, nil).Times(1)
		// No Execute and no PutNode: an up-to-date node commits nothing.

		res, err := s.Run(context.Background(), g, scheduler.Options{Parallelism: 1})
		require.NoError(t, err)
		require.True(t, res.Success)
		require.Equal(t, 0, res.Executed)
		require.Equal(t, 1, res.UpToDate)
		require.True(t, resultFor(t, res, "build").UpToDate)
	})
}

func TestRun_ChangedInputInvalidatesNode(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		bc := testContext(testTarget("app"))
		g := createGraphHelper(t, bc, []nodeDef{
			{label: "build", inputs: []string{"a.c"}, outputs: []string{"a.o"}},
		})
		s, m := setupSchedulerTest(t)

		m.store.EXPECT().GetNode(gomock.Any()).Return(&domain.NodeRecord{
			CommandSignature: "sig:tool:build",
			Inputs:           map[string]domain.Fingerprint{"a.c": {Hash: "stale"}},
			Outputs:          map[string]domain.Fingerprint{"a.o": {Hash: "fp:a.o"}},
		}, nil).Times(1)
		m.store.EXPECT().PutNode(gomock.Any()).Return(nil).Times(1)
		m.toolchain.EXPECT().
			Execute(gomock.Any(), matchNode("build"), gomock.Any(), gomock.Any()).
			Return(nil).Times(1)

		res, err := s.Run(context.Background(), g, scheduler.Options{Parallelism: 1})
		require.NoError(t, err)
		require.Equal(t, 1, res.Executed)
	})
}

func TestRun_ChangedCommandSignatureInvalidatesNode(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		// Identical file fingerprints, different recorded command line.
		bc := testContext(testTarget("app"))
		g := createGraphHelper(t, bc, []nodeDef{
			{label: "build", inputs: []string{"a.c"}, outputs: []string{"a.o"}},
		})
		s, m := setupSchedulerTest(t)

		m.store.EXPECT().GetNode(gomock.Any()).Return(&domain.NodeRecord{
			CommandSignature: "sig:tool:build:-O2",
			Inputs:           map[string]domain.Fingerprint{"a.c": {Hash: "fp:a.c"}},
			Outputs:          map[string]domain.Fingerprint{"a.o": {Hash: "fp:a.o"}},
		}, nil).Times(1)
		m.store.EXPECT().PutNode(gomock.Any()).Return(nil).Times(1)
		m.toolchain.EXPECT().
			Execute(gomock.Any(), matchNode("build"), gomock.Any(), gomock.Any()).
			Return(nil).Times(1)

		res, err := s.Run(context.Background(), g, scheduler.Options{Parallelism: 1})
		require.NoError(t, err)
		require.Equal(t, 1, res.Executed)
	})
}

func TestRun_NoIncrementalBypassesStalenessCheck(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		bc := testContext(testTarget("app"))
		g := createGraphHelper(t, bc, []nodeDef{
			{label: "build", inputs: []string{"a.c"}, outputs: []string{"a.o"}},
		})
		s, m := setupSchedulerTest(t)

		// The store is never consulted, but the fresh record still commits.
		m.store.EXPECT().PutNode(gomock.Any()).Return(nil).Times(1)
		m.toolchain.EXPECT().
			Execute(gomock.Any(), matchNode("build"), gomock.Any(), gomock.Any()).
			Return(nil).Times(1)

		res, err := s.Run(context.Background(), g, scheduler.Options{Parallelism: 1, NoIncremental: true})
		require.NoError(t, err)
		require.Equal(t, 1, res.Executed)
	})
}

func TestRun_FailurePropagatesToDependentsOnly(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		// broken feeds consumer and transitively grandchild; independent has
		// no relation and must still run.
		bc := testContext(testTarget("app"))
		g := createGraphHelper(t, bc, []nodeDef{
			{label: "broken", inputs: []string{"a.c"}, outputs: []string{"a.o"}},
			{label: "consumer", inputs: []string{"a.o"}, outputs: []string{"b.o"}},
			{label: "grandchild", inputs: []string{"b.o"}, outputs: []string{"c.o"}},
			{label: "independent", inputs: []string{"z.c"}, outputs: []string{"z.o"}},
		})
		s, m := setupSchedulerTest(t)

		m.store.EXPECT().GetNode(gomock.Any()).Return(nil, nil).AnyTimes()
		m.store.EXPECT().PutNode(gomock.Any()).Return(nil).Times(1)

		failure := errors.New("exit status 1")
		m.toolchain.EXPECT().
			Execute(gomock.Any(), matchNode("broken"), gomock.Any(), gomock.Any()).
			Return(failure).Times(1)
		m.toolchain.EXPECT().
			Execute(gomock.Any(), matchNode("independent"), gomock.Any(), gomock.Any()).
			Return(nil).Times(1)
		// consumer and grandchild are never dispatched.

		res, err := s.Run(context.Background(), g, scheduler.Options{Parallelism: 4})
		require.Error(t, err)
		require.ErrorIs(t, err, failure)
		require.ErrorIs(t, err, domain.ErrNodeExecutionFailed)

		require.False(t, res.Success)
		require.Equal(t, 1, res.Failed)
		require.Equal(t, 2, res.Skipped)
		require.Equal(t, 1, res.Executed)

		brokenKey := resultFor(t, res, "broken").Key
		require.Equal(t, domain.StatusSkipped, resultFor(t, res, "consumer").Status)
		require.Equal(t, brokenKey, resultFor(t, res, "consumer").CausedBy)
		require.Equal(t, domain.StatusSkipped, resultFor(t, res, "grandchild").Status)
		require.Equal(t, brokenKey, resultFor(t, res, "grandchild").CausedBy)
		require.Equal(t, domain.StatusSucceeded, resultFor(t, res, "independent").Status)
	})
}

func TestRun_FailedNodeCommitsNothing(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		bc := testContext(testTarget("app"))
		g := createGraphHelper(t, bc, []nodeDef{
			{label: "broken", inputs: []string{"a.c"}, outputs: []string{"a.o"}},
		})
		s, m := setupSchedulerTest(t)

		m.store.EXPECT().GetNode(gomock.Any()).Return(nil, nil).AnyTimes()
		// No PutNode: a failed node must leave its prior record untouched.
		m.toolchain.EXPECT().
			Execute(gomock.Any(), matchNode("broken"), gomock.Any(), gomock.Any()).
			Return(errors.New("exit status 1")).Times(1)

		res, err := s.Run(context.Background(), g, scheduler.Options{Parallelism: 1})
		require.Error(t, err)
		require.Equal(t, 1, res.Failed)
	})
}

func TestRun_TargetSelection(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		libCtx := testContext(testTarget("lib"))
		appCtx := testContext(testTarget("app"))

		g := domain.NewGraph()
		g.SetRoot("/ws")
		libID, err := g.AddNode(&domain.BuildNode{
			Key: domain.NodeKey(libCtx, "archive lib"), Label: "archive lib",
			Context: libCtx, Operation: domain.OpArchive,
			Inputs: []string{"lib.o"}, Outputs: []string{"liblib.a"},
			Argv: []string{"ar", "liblib.a"},
		})
		require.NoError(t, err)
		appID, err := g.AddNode(&domain.BuildNode{
			Key: domain.NodeKey(appCtx, "link app"), Label: "link app",
			Context: appCtx, Operation: domain.OpLink,
			Inputs: []string{"liblib.a"}, Outputs: []string{"app"},
			Argv: []string{"ld", "app"},
		})
		require.NoError(t, err)
		require.NoError(t, g.AddEdge(libID, appID))
		require.NoError(t, g.Validate())

		s, m := setupSchedulerTest(t)
		m.store.EXPECT().GetNode(gomock.Any()).Return(nil, nil).AnyTimes()
		m.store.EXPECT().PutNode(gomock.Any()).Return(nil).Times(1)

		// Selecting lib runs only lib's node.
		m.toolchain.EXPECT().
			Execute(gomock.Any(), matchNode("archive lib"), gomock.Any(), gomock.Any()).
			Return(nil).Times(1)

		res, err := s.Run(context.Background(), g, scheduler.Options{Targets: []string{"lib"}, Parallelism: 2})
		require.NoError(t, err)
		require.Len(t, res.Nodes, 1)
	})
}

func TestRun_TargetSelectionPullsInDependencies(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		libCtx := testContext(testTarget("lib"))
		appCtx := testContext(testTarget("app"))

		g := domain.NewGraph()
		g.SetRoot("/ws")
		libID, err := g.AddNode(&domain.BuildNode{
			Key: domain.NodeKey(libCtx, "archive lib"), Label: "archive lib",
			Context: libCtx, Operation: domain.OpArchive,
			Outputs: []string{"liblib.a"}, Argv: []string{"ar"},
		})
		require.NoError(t, err)
		appID, err := g.AddNode(&domain.BuildNode{
			Key: domain.NodeKey(appCtx, "link app"), Label: "link app",
			Context: appCtx, Operation: domain.OpLink,
			Inputs: []string{"liblib.a"}, Outputs: []string{"app"}, Argv: []string{"ld"},
		})
		require.NoError(t, err)
		require.NoError(t, g.AddEdge(libID, appID))
		require.NoError(t, g.Validate())

		s, m := setupSchedulerTest(t)
		m.store.EXPECT().GetNode(gomock.Any()).Return(nil, nil).AnyTimes()
		m.store.EXPECT().PutNode(gomock.Any()).Return(nil).Times(2)
		m.toolchain.EXPECT().
			Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil).Times(2)

		res, err := s.Run(context.Background(), g, scheduler.Options{Targets: []string{"app"}, Parallelism: 2})
		require.NoError(t, err)
		require.Len(t, res.Nodes, 2)
	})
}

func TestRun_UnknownTarget(t *testing.T) {
	t.Parallel()

	bc := testContext(testTarget("app"))
	g := createGraphHelper(t, bc, []nodeDef{
		{label: "build", outputs: []string{"a.o"}},
	})
	s, _ := setupSchedulerTest(t)

	_, err := s.Run(context.Background(), g, scheduler.Options{Targets: []string{"ghost"}})
	require.ErrorIs(t, err, domain.ErrTargetNotFound)
}

func TestRun_Cancellation(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		// running blocks until canceled; waiting depends on it and must stay
		// pending.
		bc := testContext(testTarget("app"))
		g := createGraphHelper(t, bc, []nodeDef{
			{label: "running", inputs: []string{"a.c"}, outputs: []string{"a.o"}},
			{label: "waiting", inputs: []string{"a.o"}, outputs: []string{"b.o"}},
		})
		s, m := setupSchedulerTest(t)

		m.store.EXPECT().GetNode(gomock.Any()).Return(nil, nil).AnyTimes()
		m.toolchain.EXPECT().
			Execute(gomock.Any(), matchNode("running"), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ *domain.BuildNode, _, _ any) error {
				<-ctx.Done()
				return ctx.Err()
			}).Times(1)

		ctx, cancel := context.WithCancel(context.Background())

		type runOutcome struct {
			res *domain.RunResult
			err error
		}
		outcomeCh := make(chan runOutcome, 1)
		go func() {
			res, err := s.Run(ctx, g, scheduler.Options{Parallelism: 2})
			outcomeCh <- runOutcome{res: res, err: err}
		}()

		synctest.Wait()
		cancel()
		synctest.Wait()

		outcome := <-outcomeCh
		require.Error(t, outcome.err)
		require.ErrorIs(t, outcome.err, context.Canceled)
		require.False(t, outcome.res.Success)
		require.Equal(t, domain.StatusPending, resultFor(t, outcome.res, "waiting").Status)
	})
}
