package exec

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"falsh/core/pathstore"
	"falsh/core/shell"
	"falsh/core/token"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestSupervisor resolves against the real $PATH and captures the
// shell-inherited streams in buffers.
func newTestSupervisor(t *testing.T) (*Supervisor, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	store := pathstore.New(afero.NewOsFs(), filepath.Join(t.TempDir(), "path"), quietLogger())
	store.SeedEnv(os.Getenv("PATH"))

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	s := New(store, quietLogger())
	s.Stdin = strings.NewReader("")
	s.Stdout = stdout
	s.Stderr = stderr
	return s, stdout, stderr
}

func mustParse(t *testing.T, line string) *shell.Pipeline {
	t.Helper()

	tokens, err := token.Tokenize(line)
	require.NoError(t, err)

	pipeline, err := shell.NewParser(nil, nil).Parse("/", tokens)
	require.NoError(t, err)
	return pipeline
}

func TestRunSingleStage(t *testing.T) {
	s, stdout, _ := newTestSupervisor(t)

	res, err := s.Run(mustParse(t, "echo hello"))
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitStatus)
	assert.False(t, res.Failed())
	assert.Equal(t, "hello\n", stdout.String())
}

func TestRunPipeline(t *testing.T) {
	s, stdout, _ := newTestSupervisor(t)

	res, err := s.Run(mustParse(t, "echo hello | wc -w"))
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitStatus)
	assert.False(t, res.Failed())
	// The first stage's output went into the pipe, not to the shell.
	assert.NotContains(t, stdout.String(), "hello")
	assert.Equal(t, "1", strings.TrimSpace(stdout.String()))
}

func TestRunThreeStages(t *testing.T) {
	s, stdout, _ := newTestSupervisor(t)

	res, err := s.Run(mustParse(t, "echo one | cat | wc -l"))
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitStatus)
	assert.Equal(t, "1", strings.TrimSpace(stdout.String()))
}

func TestRunExitStatus(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	res, err := s.Run(mustParse(t, "sh -c 'exit 3'"))
	require.NoError(t, err)

	assert.Equal(t, 3, res.ExitStatus)
	assert.False(t, res.Failed(), "a nonzero exit is not a start failure")
}

func TestRunLastStageStatusWins(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	res, err := s.Run(mustParse(t, "sh -c 'exit 3' | sh -c 'exit 0'"))
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitStatus)
}

func TestRunRedirectIn(t *testing.T) {
	s, stdout, _ := newTestSupervisor(t)

	in := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(in, []byte("three little words\n"), 0644))

	res, err := s.Run(mustParse(t, "wc -w <"+in))
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitStatus)
	assert.Equal(t, "3", strings.TrimSpace(stdout.String()))
}

func TestRunRedirectOutTruncates(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	out := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(out, []byte("old contents\n"), 0644))

	_, err := s.Run(mustParse(t, "echo fresh >"+out))
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "fresh\n", string(data))
}

func TestRunRedirectOutAppends(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	out := filepath.Join(t.TempDir(), "out.txt")

	_, err := s.Run(mustParse(t, "echo one >>"+out))
	require.NoError(t, err)
	_, err = s.Run(mustParse(t, "echo two >>"+out))
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))
}

func TestRunRedirectInMissing(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	_, err := s.Run(mustParse(t, "cat </does/not/exist"))
	require.Error(t, err)

	var redirErr *RedirectionError
	assert.ErrorAs(t, err, &redirErr)
}

func TestRunCommandNotFound(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	res, err := s.Run(mustParse(t, "no-such-command-xyz"))
	require.NoError(t, err)

	assert.Equal(t, StatusNotFound, res.ExitStatus)
	require.True(t, res.Failed())
	assert.Equal(t, "no-such-command-xyz", res.Failures[0].Stage)
	assert.ErrorIs(t, res.Failures[0].Err, pathstore.ErrNotFound)
}

// A redirection target is opened (and truncated) before spawn is
// attempted, so it exists even when the stage never starts.
func TestRunRedirectOpensBeforeSpawn(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	out := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, os.WriteFile(out, []byte("old contents\n"), 0644))

	res, err := s.Run(mustParse(t, "no-such-command-xyz >"+out))
	require.NoError(t, err)
	require.True(t, res.Failed())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Empty(t, data, "target should be created and truncated")
}

// A stage that fails to start aborts only itself; siblings run and
// are waited on.
func TestRunSiblingsSurviveStartFailure(t *testing.T) {
	s, stdout, _ := newTestSupervisor(t)

	res, err := s.Run(mustParse(t, "echo hi | no-such-command-xyz | wc -l"))
	require.NoError(t, err)

	require.True(t, res.Failed())
	assert.Equal(t, "no-such-command-xyz", res.Failures[0].Stage)

	// The last stage still ran; its input pipe was closed so it saw EOF.
	assert.Equal(t, 0, res.ExitStatus)
	assert.Equal(t, "0", strings.TrimSpace(stdout.String()))
}

func TestRunLastStageNotFound(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	res, err := s.Run(mustParse(t, "echo hi | no-such-command-xyz"))
	require.NoError(t, err)

	assert.Equal(t, StatusNotFound, res.ExitStatus)
	assert.True(t, res.Failed())
}

// A stage with no input redirection reads the shell's inherited stdin
// and runs to completion.
func TestRunStageReadsInheritedStdin(t *testing.T) {
	s, stdout, _ := newTestSupervisor(t)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()

	_, err = w.WriteString("hello there\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	s.Stdin = r

	res, err := s.Run(mustParse(t, "wc -w"))
	require.NoError(t, err)

	assert.Equal(t, 0, res.ExitStatus)
	assert.Equal(t, "2", strings.TrimSpace(stdout.String()))
}

// The terminal handover degrades to a no-op when stdin is not the
// controlling terminal; the returned restore func is always callable.
func TestForegroundNonTerminalStdin(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	s.Stdin = r
	restore := s.foreground(os.Getpid())
	restore()

	s.Stdin = strings.NewReader("")
	restore = s.foreground(os.Getpid())
	restore()
}

func TestRunRejectsBuiltinStage(t *testing.T) {
	s, _, _ := newTestSupervisor(t)

	pipeline := &shell.Pipeline{Stages: []*shell.Stage{
		{Kind: shell.Builtin, Name: "cd", Args: []string{"/"}},
		{Name: "wc"},
	}}

	_, err := s.Run(pipeline)
	assert.ErrorIs(t, err, ErrBuiltinInPipeline)
}
