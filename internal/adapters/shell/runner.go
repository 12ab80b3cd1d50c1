// Package shell runs external tool processes for the build engine.
package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.CommandRunner = (*Runner)(nil)

// Runner implements ports.CommandRunner using os/exec. Cancellation of the
// context kills the process.
type Runner struct {
	logger ports.Logger
}

// NewRunner creates a new Runner.
func NewRunner(logger ports.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run starts the process and waits for it. Tool output is streamed to the
// given writers and, line by line, to the logger.
func (r *Runner) Run(ctx context.Context, spec ports.CommandSpec, stdout, stderr io.Writer) error {
	if len(spec.Argv) == 0 {
		return nil
	}

	stdoutLog := &logWriter{logger: r.logger, level: "info"}
	stderrLog := &logWriter{logger: r.logger, level: "error"}
	defer stdoutLog.Close() //nolint:errcheck // Flushes the last partial line
	defer stderrLog.Close() //nolint:errcheck

	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...) //nolint:gosec // Command comes from the toolchain spec
	cmd.Dir = spec.Dir
	cmd.Env = resolveEnvironment(os.Environ(), spec.Env)
	cmd.Stdout = io.MultiWriter(stdoutLog, stdout)
	cmd.Stderr = io.MultiWriter(stderrLog, stderr)

	if err := cmd.Start(); err != nil {
		return zerr.With(
			zerr.Wrap(err, domain.ErrCommandStartFailed.Error()),
			"command", spec.Argv[0],
		)
	}

	if err := cmd.Wait(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return zerr.With(
			zerr.Wrap(err, domain.ErrCommandFailed.Error()),
			"exit_code", exitCode,
		)
	}

	return nil
}

// logWriter buffers tool output and forwards complete lines to the logger.
type logWriter struct {
	logger ports.Logger
	level  string
	buf    []byte
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.buf = append(w.buf, p...)

	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}

		w.logLine(w.buf[:i])
		w.buf = w.buf[i+1:]
	}

	return len(p), nil
}

func (w *logWriter) Close() error {
	if len(w.buf) > 0 {
		w.logLine(w.buf)
		w.buf = nil
	}
	return nil
}

func (w *logWriter) logLine(line []byte) {
	msg := strings.TrimSuffix(string(line), "\r")
	if msg == "" {
		return
	}

	if w.level == "info" {
		w.logger.Info(msg)
	} else {
		w.logger.Error(zerr.New(msg))
	}
}

// allowListedEnvVars are the system environment variables tool processes
// may inherit. Everything else must come from the toolchain spec so builds
// stay reproducible across machines.
var allowListedEnvVars = map[string]struct{}{
	"HOME": {},
	"TERM": {},
	"USER": {},
	"PATH": {},
}

// resolveEnvironment merges the allow-listed system environment with the
// spec's explicit variables, which win on conflict.
func resolveEnvironment(sysEnv, specEnv []string) []string {
	envMap := make(map[string]string)
	for _, kv := range sysEnv {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, allowed := allowListedEnvVars[k]; allowed {
			envMap[k] = v
		}
	}

	for _, kv := range specEnv {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		envMap[k] = v
	}

	env := make([]string, 0, len(envMap))
	for k, v := range envMap {
		env = append(env, k+"="+v)
	}
	return env
}
