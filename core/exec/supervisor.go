// Package exec spawns pipeline stages as child processes, wires their
// standard streams, and collects exit statuses.
package exec

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	osexec "os/exec"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"falsh/core/shell"
)

// StatusNotFound is reported when a stage failed to start at all,
// mirroring the shell convention for "command not found".
const StatusNotFound = 127

// ErrBuiltinInPipeline is returned when a builtin stage reaches the
// supervisor. Builtins run in-process and may only appear as the sole
// stage of a pipeline.
var ErrBuiltinInPipeline = errors.New("builtin in pipeline position")

// RedirectionError reports a redirection target that could not be
// opened. Stream wiring is a precondition, so this aborts the whole
// pipeline before any process spawns.
type RedirectionError struct {
	Path string
	Err  error
}

func (e *RedirectionError) Error() string {
	return fmt.Sprintf("cannot redirect %s: %v", e.Path, e.Err)
}

func (e *RedirectionError) Unwrap() error { return e.Err }

// StageFailure records a stage that never started, either because the
// resolver found no executable or because the OS refused the spawn.
type StageFailure struct {
	Stage string
	Err   error
}

// Result is the aggregate outcome of one pipeline run.
type Result struct {
	// ExitStatus is the numeric exit status of the last stage, or
	// StatusNotFound if the last stage never started.
	ExitStatus int

	// Failures lists stages that failed to start. Sibling stages
	// still ran and were waited on.
	Failures []StageFailure
}

// Failed reports whether any stage failed to start. This takes
// precedence over a merely nonzero exit status for error reporting.
func (r Result) Failed() bool { return len(r.Failures) > 0 }

// Resolver maps a command name to an executable path.
type Resolver interface {
	Resolve(name string) (string, error)
}

// Supervisor runs validated pipelines. Unredirected streams of the
// end stages inherit Stdin/Stdout/Stderr.
type Supervisor struct {
	Resolver Resolver

	// Env supplies the environment for child processes; nil means
	// os.Environ.
	Env func() []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Log *slog.Logger
}

// New returns a Supervisor inheriting the shell's own streams.
func New(resolver Resolver, log *slog.Logger) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	return &Supervisor{
		Resolver: resolver,
		Env:      os.Environ,
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Log:      log,
	}
}

// Run executes every external stage of pipeline concurrently and
// waits for all of them. Redirection targets are opened before any
// stage spawns: a redirection failure aborts the pipeline, and an
// output target is created (and truncated) even if its stage later
// fails to start. A stage that cannot start aborts only itself;
// siblings still run and are still waited on. When Stdin is the
// controlling terminal the pipeline owns it while it runs; the shell
// takes it back before Run returns.
func (s *Supervisor) Run(pipeline *shell.Pipeline) (Result, error) {
	if pipeline.HasBuiltin() {
		return Result{ExitStatus: 1}, ErrBuiltinInPipeline
	}

	stdio, err := s.openRedirects(pipeline)
	if err != nil {
		return Result{ExitStatus: 1}, err
	}
	defer stdio.Close()

	n := len(pipeline.Stages)
	cmds := make([]*osexec.Cmd, n)
	failures := make([]*StageFailure, n)
	env := s.env()

	for i, stage := range pipeline.Stages {
		path, err := s.Resolver.Resolve(stage.Name)
		if err != nil {
			failures[i] = &StageFailure{Stage: stage.Name, Err: err}
			continue
		}
		cmds[i] = &osexec.Cmd{
			Path:   path,
			Args:   stage.Argv(),
			Env:    env,
			Stderr: s.Stderr,
		}
	}

	// One pipe per adjacent stage pair. The shell closes its copies
	// of every end once the children hold theirs, so a vanished stage
	// reads as EOF rather than a hang.
	pipes := make([]pipePair, n-1)
	for i := range pipes {
		r, w, err := os.Pipe()
		if err != nil {
			closePipes(pipes[:i])
			return Result{ExitStatus: 1}, fmt.Errorf("creating pipe: %w", err)
		}
		pipes[i] = pipePair{r: r, w: w}
	}

	for i, cmd := range cmds {
		if cmd == nil {
			continue
		}
		if i == 0 {
			cmd.Stdin = stdio.in
		} else {
			cmd.Stdin = pipes[i-1].r
		}
		if i == n-1 {
			cmd.Stdout = stdio.out
		} else {
			cmd.Stdout = pipes[i].w
		}
	}

	// Spawn in order. Every child joins one process group, led by the
	// first started stage, so an interrupt can target the pipeline
	// without hitting the shell. When stdin is a terminal the group
	// also becomes its foreground group, so a stage that reads the
	// terminal is not stopped with SIGTTIN.
	pgid := 0
	restoreTTY := func() {}
	for i, cmd := range cmds {
		if cmd == nil {
			continue
		}
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true, Pgid: pgid}
		if err := cmd.Start(); err != nil {
			failures[i] = &StageFailure{Stage: pipeline.Stages[i].Name, Err: err}
			cmds[i] = nil
			continue
		}
		if pgid == 0 {
			pgid = cmd.Process.Pid
			restoreTTY = s.foreground(pgid)
		}
		s.Log.Debug("stage started", "stage", pipeline.Stages[i].Name, "pid", cmd.Process.Pid)
	}

	closePipes(pipes)

	// Forward interrupts to the pipeline's process group while any
	// stage is still running, then keep waiting: the shell must not
	// die, and no child may be left unreaped.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigCh:
				if pgid != 0 {
					_ = unix.Kill(-pgid, unix.SIGINT)
				}
			case <-done:
				return
			}
		}
	}()

	statuses := make([]int, n)
	for i, cmd := range cmds {
		if cmd == nil {
			continue
		}
		statuses[i] = waitStatus(cmd)
	}

	restoreTTY()
	signal.Stop(sigCh)
	close(done)

	return s.aggregate(pipeline, cmds, failures, statuses), nil
}

func (s *Supervisor) aggregate(pipeline *shell.Pipeline, cmds []*osexec.Cmd, failures []*StageFailure, statuses []int) Result {
	var res Result
	for _, failure := range failures {
		if failure == nil {
			continue
		}
		s.Log.Warn("stage failed to start", "stage", failure.Stage, "error", failure.Err)
		res.Failures = append(res.Failures, *failure)
	}

	last := len(pipeline.Stages) - 1
	switch {
	case failures[last] != nil:
		res.ExitStatus = StatusNotFound
	case cmds[last] != nil:
		res.ExitStatus = statuses[last]
	}
	return res
}

func waitStatus(cmd *osexec.Cmd) int {
	err := cmd.Wait()

	var exitErr *osexec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return 1
	}
	if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return cmd.ProcessState.ExitCode()
}

// foreground hands the terminal's foreground process group to the
// pipeline and returns a func that gives it back to the shell. Both
// are no-ops when Stdin is not the shell's controlling terminal.
func (s *Supervisor) foreground(pgid int) func() {
	nop := func() {}
	f, ok := s.Stdin.(*os.File)
	if !ok || pgid == 0 {
		return nop
	}

	fd := int(f.Fd())
	prev, err := unix.IoctlGetInt(fd, unix.TIOCGPGRP)
	if err != nil {
		return nop
	}

	// TIOCSPGRP from a group that is not (or is about to stop being)
	// the foreground group raises SIGTTOU, so it stays ignored for the
	// handover in both directions.
	signal.Ignore(unix.SIGTTOU)
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, pgid); err != nil {
		signal.Reset(unix.SIGTTOU)
		s.Log.Warn("terminal handover failed", "error", err)
		return nop
	}
	return func() {
		if err := unix.IoctlSetPointerInt(fd, unix.TIOCSPGRP, prev); err != nil {
			s.Log.Warn("terminal restore failed", "error", err)
		}
		signal.Reset(unix.SIGTTOU)
	}
}

func (s *Supervisor) env() []string {
	if s.Env != nil {
		return s.Env()
	}
	return os.Environ()
}

type pipePair struct {
	r, w *os.File
}

func closePipes(pipes []pipePair) {
	for _, p := range pipes {
		if p.r != nil {
			p.r.Close()
		}
		if p.w != nil {
			p.w.Close()
		}
	}
}

// stageIO holds the opened end-stage streams and owns any files the
// supervisor opened for redirection.
type stageIO struct {
	in  io.Reader
	out io.Writer

	files []*os.File
}

func (sio *stageIO) Close() {
	for _, fd := range sio.files {
		fd.Close()
	}
}

// openRedirects opens the pipeline's redirection targets: "<" for
// reading, ">" truncating, ">>" appending, both creating if absent.
func (s *Supervisor) openRedirects(pipeline *shell.Pipeline) (*stageIO, error) {
	stdio := &stageIO{in: s.Stdin, out: s.Stdout}

	if r := pipeline.In(); r != nil {
		fd, err := os.Open(r.Path)
		if err != nil {
			return nil, &RedirectionError{Path: r.Path, Err: err}
		}
		stdio.in = fd
		stdio.files = append(stdio.files, fd)
	}

	if r := pipeline.Out(); r != nil {
		flags := os.O_WRONLY | os.O_CREATE
		if r.Append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		fd, err := os.OpenFile(r.Path, flags, 0644)
		if err != nil {
			stdio.Close()
			return nil, &RedirectionError{Path: r.Path, Err: err}
		}
		stdio.out = fd
		stdio.files = append(stdio.files, fd)
	}

	return stdio, nil
}
