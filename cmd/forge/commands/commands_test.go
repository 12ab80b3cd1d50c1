package commands_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/forge/cmd/forge/commands"
	"go.trai.ch/forge/internal/app"
	"go.trai.ch/forge/internal/build"
	"go.trai.ch/forge/internal/core/domain"
)

type mockApp struct {
	buildFunc func(ctx context.Context, cwd string, opts app.BuildOptions) (*domain.RunResult, error)
	watchFunc func(ctx context.Context, cwd string, opts app.BuildOptions) error
	graphFunc func(ctx context.Context, cwd string) (domain.GraphSnapshot, error)
	cleanFunc func(ctx context.Context, cwd string, opts app.CleanOptions) error
}

func (m *mockApp) Build(ctx context.Context, cwd string, opts app.BuildOptions) (*domain.RunResult, error) {
	if m.buildFunc != nil {
		return m.buildFunc(ctx, cwd, opts)
	}
	return &domain.RunResult{Success: true}, nil
}

func (m *mockApp) Watch(ctx context.Context, cwd string, opts app.BuildOptions) error {
	if m.watchFunc != nil {
		return m.watchFunc(ctx, cwd, opts)
	}
	return nil
}

func (m *mockApp) Graph(ctx context.Context, cwd string) (domain.GraphSnapshot, error) {
	if m.graphFunc != nil {
		return m.graphFunc(ctx, cwd)
	}
	return domain.GraphSnapshot{}, nil
}

func (m *mockApp) Clean(ctx context.Context, cwd string, opts app.CleanOptions) error {
	if m.cleanFunc != nil {
		return m.cleanFunc(ctx, cwd, opts)
	}
	return nil
}

func TestCommands_Build(t *testing.T) {
	t.Run("wires flags correctly", func(t *testing.T) {
		var capturedOpts app.BuildOptions
		called := false

		mock := &mockApp{
			buildFunc: func(_ context.Context, _ string, opts app.BuildOptions) (*domain.RunResult, error) {
				capturedOpts = opts
				called = true
				return &domain.RunResult{Success: true}, nil
			},
		}

		cli := commands.New(mock)
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))
		cli.SetArgs([]string{"build", "app", "core", "--no-incremental", "--jobs", "4"})

		err := cli.Execute(context.Background())
		require.NoError(t, err)
		assert.True(t, called)
		assert.True(t, capturedOpts.NoIncremental)
		assert.Equal(t, 4, capturedOpts.Jobs)
		assert.Equal(t, []string{"app", "core"}, capturedOpts.Targets)
	})

	t.Run("routes --watch to the watch loop", func(t *testing.T) {
		watchCalled := false

		mock := &mockApp{
			buildFunc: func(_ context.Context, _ string, _ app.BuildOptions) (*domain.RunResult, error) {
				panic("should not be called in watch mode")
			},
			watchFunc: func(_ context.Context, _ string, _ app.BuildOptions) error {
				watchCalled = true
				return nil
			},
		}

		cli := commands.New(mock)
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))
		cli.SetArgs([]string{"build", "--watch"})

		err := cli.Execute(context.Background())
		require.NoError(t, err)
		assert.True(t, watchCalled)
	})

	t.Run("prints the summary and signals node failures", func(t *testing.T) {
		mock := &mockApp{
			buildFunc: func(_ context.Context, _ string, _ app.BuildOptions) (*domain.RunResult, error) {
				res := &domain.RunResult{
					Nodes: []domain.NodeResult{
						{Key: "app|gcc|native|debug|link app", Status: domain.StatusFailed, CausedBy: "app|gcc|native|debug|link app", Diagnostics: "undefined reference to `frobnicate'"},
					},
				}
				res.Counts()
				return res, errors.Join(domain.ErrBuildFailed, domain.ErrNodeExecutionFailed)
			},
		}

		cli := commands.New(mock)
		buf := new(bytes.Buffer)
		cli.SetOutput(buf, buf)
		cli.SetArgs([]string{"build"})

		err := cli.Execute(context.Background())
		require.Error(t, err)
		require.ErrorIs(t, err, domain.ErrBuildFailed)
		assert.Contains(t, buf.String(), "link app")
		assert.Contains(t, buf.String(), "undefined reference")
		assert.Contains(t, buf.String(), "1 failed")
	})

	t.Run("returns configuration errors unchanged", func(t *testing.T) {
		mock := &mockApp{
			buildFunc: func(_ context.Context, _ string, _ app.BuildOptions) (*domain.RunResult, error) {
				return nil, domain.ErrConfigNotFound
			},
		}

		cli := commands.New(mock)
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))
		cli.SetArgs([]string{"build"})

		err := cli.Execute(context.Background())
		require.ErrorIs(t, err, domain.ErrConfigNotFound)
	})
}

func TestCommands_Graph(t *testing.T) {
	snap := domain.GraphSnapshot{
		Root: "/ws",
		Nodes: []domain.SnapshotNode{
			{Key: "a", Label: "compile a.c", Operation: "compile"},
			{Key: "b", Label: "link app", Operation: "link", DependsOn: []string{"a"}},
		},
	}

	t.Run("exports json by default", func(t *testing.T) {
		mock := &mockApp{
			graphFunc: func(_ context.Context, _ string) (domain.GraphSnapshot, error) {
				return snap, nil
			},
		}

		cli := commands.New(mock)
		buf := new(bytes.Buffer)
		cli.SetOutput(buf, buf)
		cli.SetArgs([]string{"graph"})

		err := cli.Execute(context.Background())
		require.NoError(t, err)
		assert.Contains(t, buf.String(), `"root": "/ws"`)
		assert.Contains(t, buf.String(), `"compile a.c"`)
	})

	t.Run("exports dot", func(t *testing.T) {
		mock := &mockApp{
			graphFunc: func(_ context.Context, _ string) (domain.GraphSnapshot, error) {
				return snap, nil
			},
		}

		cli := commands.New(mock)
		buf := new(bytes.Buffer)
		cli.SetOutput(buf, buf)
		cli.SetArgs([]string{"graph", "--format", "dot"})

		err := cli.Execute(context.Background())
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "digraph forge")
		assert.Contains(t, buf.String(), `"a" -> "b";`)
	})

	t.Run("rejects unknown formats", func(t *testing.T) {
		mock := &mockApp{}

		cli := commands.New(mock)
		cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))
		cli.SetArgs([]string{"graph", "--format", "svg"})

		err := cli.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown graph format")
	})
}

func TestCommands_Clean(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want app.CleanOptions
	}{
		{
			name: "default cleans artifacts",
			args: []string{"clean"},
			want: app.CleanOptions{Artifacts: true},
		},
		{
			name: "state only",
			args: []string{"clean", "--state"},
			want: app.CleanOptions{State: true},
		},
		{
			name: "all",
			args: []string{"clean", "--all"},
			want: app.CleanOptions{Artifacts: true, State: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured app.CleanOptions
			mock := &mockApp{
				cleanFunc: func(_ context.Context, _ string, opts app.CleanOptions) error {
					captured = opts
					return nil
				},
			}

			cli := commands.New(mock)
			cli.SetOutput(new(bytes.Buffer), new(bytes.Buffer))
			cli.SetArgs(tt.args)

			err := cli.Execute(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, captured)
		})
	}
}

func TestCommands_Version(t *testing.T) {
	mock := &mockApp{}
	cli := commands.New(mock)

	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs([]string{"version"})

	err := cli.Execute(context.Background())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), build.Version)
}
