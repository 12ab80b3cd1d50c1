// Package app implements the application layer for forge.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.trai.ch/forge/internal/adapters/fs"
	"go.trai.ch/forge/internal/adapters/state"
	"go.trai.ch/forge/internal/adapters/telemetry"
	"go.trai.ch/forge/internal/adapters/watcher"
	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/forge/internal/engine/expand"
	"go.trai.ch/forge/internal/engine/graphbuild"
	"go.trai.ch/forge/internal/engine/scheduler"
	"go.trai.ch/forge/internal/toolchain"
	"go.trai.ch/zerr"
)

// App represents the main application logic.
type App struct {
	loader  ports.ConfigLoader
	runner  ports.CommandRunner
	logger  ports.Logger
	watcher ports.Watcher
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	runner ports.CommandRunner,
	log ports.Logger,
	watch ports.Watcher,
) *App {
	return &App{
		loader:  loader,
		runner:  runner,
		logger:  log,
		watcher: watch,
	}
}

// BuildOptions configuration for the Build method.
type BuildOptions struct {
	Targets       []string
	Jobs          int
	NoIncremental bool
	Verbose       bool
}

// Build runs the full pipeline for the working directory: load, expand,
// discover, schedule. The returned RunResult is populated even when nodes
// failed; the error then wraps domain.ErrBuildFailed.
func (a *App) Build(ctx context.Context, cwd string, opts BuildOptions) (*domain.RunResult, error) {
	shutdown := telemetry.Setup(a.logger, opts.Verbose)
	defer func() {
		_ = shutdown(ctx)
	}()

	tracer := telemetry.NewOTelTracer("forge")

	ws, graph, registry, err := a.prepare(ctx, cwd, tracer)
	if err != nil {
		return nil, err
	}

	store, err := state.NewSQLiteStore(filepath.Join(ws.Root, domain.DefaultStatePath()))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to open incremental state store")
	}
	defer func() {
		_ = store.Close()
	}()

	sched := scheduler.NewScheduler(
		registry.Lookup,
		store,
		fs.NewHasher(ws.Root),
		tracer,
		a.logger,
	)

	res, err := sched.Run(ctx, graph, scheduler.Options{
		Targets:       opts.Targets,
		Parallelism:   opts.Jobs,
		NoIncremental: opts.NoIncremental,
	})
	if err != nil {
		return res, errors.Join(domain.ErrBuildFailed, err)
	}
	return res, nil
}

// Watch runs an initial build and then rebuilds whenever watched files
// change, coalescing event bursts through the debouncer. It returns when
// ctx is canceled.
func (a *App) Watch(ctx context.Context, cwd string, opts BuildOptions) error {
	ws, err := a.loader.Load(cwd)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	a.runOnce(ctx, cwd, opts)

	// Output directories are excluded from the watch set so a rebuild's
	// artifact writes never trigger the next one. An expansion failure was
	// already reported by the initial build.
	var skip []string
	if contexts, err := expand.Expand(ws); err == nil {
		skip = outputDirs(ws.Root, contexts)
	}

	if err := a.watcher.Start(ctx, ws.Root, skip...); err != nil {
		return zerr.Wrap(err, "failed to start file watcher")
	}
	defer func() {
		_ = a.watcher.Stop()
	}()

	// A buffered single-slot trigger: bursts arriving during a build
	// collapse into one pending rebuild.
	trigger := make(chan struct{}, 1)
	deb := watcher.NewDebouncer(watcher.DefaultDebounceWindow, func(paths []string) {
		a.logger.Info(fmt.Sprintf("%d file(s) changed, rebuilding", len(paths)))
		select {
		case trigger <- struct{}{}:
		default:
		}
	})

	go func() {
		for event := range a.watcher.Events() {
			deb.Add(event.Path)
		}
	}()

	a.logger.Info("watching for changes, press ctrl-c to stop")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-trigger:
			a.runOnce(ctx, cwd, opts)
		}
	}
}

// runOnce executes one watch-mode build. Failures are reported and absorbed
// so the watch loop keeps running.
func (a *App) runOnce(ctx context.Context, cwd string, opts BuildOptions) {
	res, err := a.Build(ctx, cwd, opts)
	if err != nil && ctx.Err() == nil {
		a.logger.Error(err)
	}
	if res != nil {
		a.logger.Info(fmt.Sprintf(
			"%d executed, %d up to date, %d failed, %d skipped in %s",
			res.Executed, res.UpToDate, res.Failed, res.Skipped,
			res.WallTime.Round(summaryDurationUnit),
		))
	}
}

// Graph builds the dependency graph without executing anything and returns
// its snapshot for export.
func (a *App) Graph(ctx context.Context, cwd string) (domain.GraphSnapshot, error) {
	tracer := telemetry.NewOTelTracer("forge")

	_, graph, _, err := a.prepare(ctx, cwd, tracer)
	if err != nil {
		return domain.GraphSnapshot{}, err
	}
	return graph.Export(), nil
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	Artifacts bool
	State     bool
}

// Clean removes build output directories and incremental state based on the
// provided options.
func (a *App) Clean(_ context.Context, cwd string, options CleanOptions) error {
	ws, err := a.loader.Load(cwd)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	var errs error

	remove := func(path string, name string) {
		a.logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)))
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	if options.Artifacts {
		contexts, err := expand.Expand(ws)
		if err != nil {
			return zerr.Wrap(err, "failed to expand build contexts")
		}
		for _, dir := range outputDirs(ws.Root, contexts) {
			remove(dir, "output directory "+dir)
		}
	}

	if options.State {
		remove(filepath.Join(ws.Root, domain.ForgeDirName), "incremental state")
	}

	return errs
}

// outputDirs returns the deduplicated output directories of the contexts,
// resolved against root. Contexts of one target share output directories
// across axes only when configured to.
func outputDirs(root string, contexts []*domain.BuildContext) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, bc := range contexts {
		dir := bc.OutputDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(root, dir)
		}
		if seen[dir] {
			continue
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	return dirs
}

// prepare runs the non-executing front half of the pipeline: configuration
// load, context expansion, toolchain registration and graph assembly.
func (a *App) prepare(
	ctx context.Context,
	cwd string,
	tracer ports.Tracer,
) (*domain.Workspace, *domain.Graph, *toolchain.Registry, error) {
	ws, err := a.loader.Load(cwd)
	if err != nil {
		return nil, nil, nil, zerr.Wrap(err, "failed to load configuration")
	}

	contexts, err := expand.Expand(ws)
	if err != nil {
		return nil, nil, nil, zerr.Wrap(err, "failed to expand build contexts")
	}

	registry := toolchain.NewRegistry()
	if err := registry.RegisterSpecs(ws.ToolchainSpecs, a.runner); err != nil {
		return nil, nil, nil, zerr.Wrap(err, "failed to register toolchains")
	}

	graph, err := graphbuild.NewBuilder(registry.Lookup, tracer).Build(ctx, ws, contexts)
	if err != nil {
		return nil, nil, nil, zerr.Wrap(err, "failed to build dependency graph")
	}

	return ws, graph, registry, nil
}
