// Package shell parses token streams into executable pipelines.
package shell

import "strings"

// StageKind distinguishes stages that spawn a process from stages
// that run inside the shell.
type StageKind int

const (
	// External stages spawn a child process.
	External StageKind = iota
	// Builtin stages run in-process and mutate shell state directly.
	Builtin
)

// Redirect names a file standing in for a stage's input or output.
type Redirect struct {
	Path string
	// Append opens the output for appending instead of truncating.
	Append bool
}

// Stage is one command of a pipeline: a name, its post-expansion
// arguments, and optional redirections at the pipeline's ends.
type Stage struct {
	Kind StageKind
	Name string
	Args []string

	// In is only ever set on the first stage of a pipeline, Out only
	// on the last; the parser enforces this.
	In  *Redirect
	Out *Redirect
}

// Argv returns the stage's full argument vector, name first.
func (s *Stage) Argv() []string {
	return append([]string{s.Name}, s.Args...)
}

// Pipeline is an ordered chain of at least one stage. Adjacent stages
// are connected output-to-input; a pipeline of N stages needs exactly
// N-1 connections.
type Pipeline struct {
	Stages []*Stage
}

// In returns the pipeline's input redirection, if any.
func (p *Pipeline) In() *Redirect {
	return p.Stages[0].In
}

// Out returns the pipeline's output redirection, if any.
func (p *Pipeline) Out() *Redirect {
	return p.Stages[len(p.Stages)-1].Out
}

// HasBuiltin reports whether any stage is a builtin.
func (p *Pipeline) HasBuiltin() bool {
	for _, stage := range p.Stages {
		if stage.Kind == Builtin {
			return true
		}
	}
	return false
}

func (p *Pipeline) String() string {
	var parts []string
	for _, stage := range p.Stages {
		parts = append(parts, strings.Join(stage.Argv(), " "))
	}
	return strings.Join(parts, " | ")
}
