// Package core ties the tokenizer, glob expander, parser, path store,
// builtin dispatcher and process supervisor into a command interpreter.
package core

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"falsh/core/config"
	"falsh/core/exec"
	"falsh/core/glob"
	"falsh/core/pathstore"
	"falsh/core/shell"
	"falsh/core/token"
)

const (
	EnvHome = "HOME"
	EnvPath = "PATH"
)

// Shell is the command interpreter: one complete input line in, one
// exit status out. It owns the process-wide path store; builtins
// mutate it synchronously so a later line always observes the result.
type Shell struct {
	Store      *pathstore.Store
	Supervisor *exec.Supervisor
	Config     *config.Configuration
	Log        *slog.Logger

	Stdout io.Writer
	Stderr io.Writer

	// Quit is set by the exit builtin; ExitStatus is the status to
	// leave the process with.
	Quit       bool
	ExitStatus int

	parser  *shell.Parser
	lastRet int
}

// NewShell loads the path store, seeds it with the inherited $PATH,
// and exports the effective search path back into the environment so
// child processes see it too.
func NewShell(fs afero.Fs, cfg *config.Configuration, log *slog.Logger) (*Shell, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("session", uuid.NewString())

	store := pathstore.New(fs, cfg.PathFile, log)
	if err := store.Load(); err != nil {
		return nil, err
	}
	store.SeedEnv(os.Getenv(EnvPath))
	os.Setenv(EnvPath, store.PathList())

	s := &Shell{
		Store:      store,
		Supervisor: exec.New(store, log),
		Config:     cfg,
		Log:        log,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
	s.parser = shell.NewParser(glob.New(fs), builtinNames{})
	return s, nil
}

// Run executes one complete line. Errors are reported to Stderr as a
// one-line description; a malformed line never terminates the shell.
// The returned status is the last stage's exit status, or 127 when a
// stage failed to start.
func (s *Shell) Run(line string) int {
	res, err := s.runLine(line)
	if err != nil {
		fmt.Fprintf(s.Stderr, "falsh: %v\n", err)
	}
	for _, failure := range res.Failures {
		fmt.Fprintf(s.Stderr, "falsh: %s: %v\n", failure.Stage, failure.Err)
	}

	s.lastRet = res.ExitStatus
	return res.ExitStatus
}

func (s *Shell) runLine(line string) (exec.Result, error) {
	tokens, err := token.Tokenize(line)
	if err != nil {
		return exec.Result{ExitStatus: 1}, err
	}

	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	pipeline, err := s.parser.Parse(wd, tokens)
	if err != nil {
		return exec.Result{ExitStatus: 1}, err
	}

	if pipeline.HasBuiltin() {
		if len(pipeline.Stages) > 1 {
			return exec.Result{ExitStatus: 1}, exec.ErrBuiltinInPipeline
		}
		return s.runBuiltin(pipeline.Stages[0])
	}

	return s.Supervisor.Run(pipeline)
}

// runBuiltin dispatches a sole-stage builtin on the shell's own
// control path. Output redirection is honored; input redirection is
// refused because no builtin reads standard input.
func (s *Shell) runBuiltin(stage *shell.Stage) (exec.Result, error) {
	builtin := AllBuiltins[stage.Name]

	if stage.In != nil {
		return exec.Result{ExitStatus: 1},
			fmt.Errorf("%s: input redirection not supported for builtins", stage.Name)
	}

	stdout := s.Stdout
	if r := stage.Out; r != nil {
		flags := os.O_WRONLY | os.O_CREATE
		if r.Append {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		fd, err := os.OpenFile(r.Path, flags, 0644)
		if err != nil {
			return exec.Result{ExitStatus: 1}, &exec.RedirectionError{Path: r.Path, Err: err}
		}
		defer fd.Close()
		stdout = fd
	}

	return exec.Result{ExitStatus: builtin.Main(s, stage.Argv(), stdout)}, nil
}

// RunStartupFile executes path line by line through the interpreter,
// the way an rc file is sourced. Blank lines and #-comments are
// skipped; a failing line is reported with its line number and the
// rest of the file still runs. A missing file is not an error.
func (s *Shell) RunStartupFile(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		res, err := s.runLine(line)
		if err != nil {
			fmt.Fprintf(s.Stderr, "%s:%d: %v\n", path, i+1, err)
		}
		for _, failure := range res.Failures {
			fmt.Fprintf(s.Stderr, "%s:%d: %s: %v\n", path, i+1, failure.Stage, failure.Err)
		}

		if s.Quit {
			break
		}
	}
	return nil
}

// LastStatus returns the exit status of the most recent line.
func (s *Shell) LastStatus() int {
	return s.lastRet
}
