package core

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pborman/getopt/v2"

	"falsh/core/pathstore"
)

// AllBuiltins holds every registered shell builtin. A stage whose
// command name appears here never spawns a process; its handler runs
// synchronously and its side effects are visible to the next line.
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string, stdout io.Writer) int
}

type ShellBuiltinFunc func(s *Shell, args []string, stdout io.Writer) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string, stdout io.Writer) int {
	return f(s, args, stdout)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// builtinNames lets the parser tag builtin stages without reaching
// into the registry.
type builtinNames struct{}

func (builtinNames) IsBuiltin(name string) bool {
	_, ok := AllBuiltins[name]
	return ok
}

// Cd is the directory-change builtin. With no argument it changes to
// $HOME.
func Cd(s *Shell, args []string, stdout io.Writer) int {
	switch len(args) {
	case 1:
		args = append(args, os.Getenv(EnvHome))
		fallthrough
	case 2:
		if err := os.Chdir(args[1]); err != nil {
			fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
			return 1
		}
	default:
		fmt.Fprintf(s.Stderr, "%s: too many arguments\n", args[0])
		return 1
	}
	return 0
}

// Pwd prints the working directory.
func Pwd(s *Shell, args []string, stdout io.Writer) int {
	wd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
		return 1
	}
	fmt.Fprintln(stdout, wd)
	return 0
}

// Exit quits the shell with an optional numeric status.
func Exit(s *Shell, args []string, stdout io.Writer) int {
	status := s.lastRet
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			fmt.Fprintf(s.Stderr, "%s: %s: numeric argument required\n", args[0], args[1])
			n = 2
		}
		status = n
	}

	s.Quit = true
	s.ExitStatus = status
	return status
}

// Export sets environment variables from VAR=VALUE arguments; with no
// arguments it prints the environment.
func Export(s *Shell, args []string, stdout io.Writer) int {
	if len(args) == 1 {
		for _, kv := range os.Environ() {
			fmt.Fprintln(stdout, kv)
		}
		return 0
	}

	ret := 0
	for _, assignment := range args[1:] {
		key, value, ok := strings.Cut(assignment, "=")
		if !ok || key == "" {
			fmt.Fprintf(s.Stderr, "%s: invalid syntax %q, expected VAR=VALUE\n", args[0], assignment)
			ret = 1
			continue
		}
		os.Setenv(key, value)
	}
	return ret
}

// AddToPath appends a directory to the path store. The mutation is
// persisted immediately unless --temp is given. Adding a directory
// that is already present is a warning, not a failure.
func AddToPath(s *Shell, args []string, stdout io.Writer) int {
	opts := getopt.New()
	temp := opts.BoolLong("temp", 't', "only change the current session, don't persist")

	if err := opts.Getopt(args, nil); err != nil {
		fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
		return 1
	}
	rest := opts.Args()
	if len(rest) != 1 {
		fmt.Fprintf(s.Stderr, "usage: %s [--temp] <dir>\n", args[0])
		return 1
	}

	if err := s.Store.Add(rest[0]); err != nil {
		if errors.Is(err, pathstore.ErrDuplicate) {
			fmt.Fprintf(s.Stderr, "%s: warning: %v\n", args[0], err)
			return 0
		}
		fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
		return 1
	}
	os.Setenv(EnvPath, s.Store.PathList())

	if *temp {
		return 0
	}
	if err := s.Store.Persist(); err != nil {
		// In-memory state keeps the new entry; only persistence failed.
		fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// RemoveFromPath removes the first exact match of a directory from
// the path store and persists the result.
func RemoveFromPath(s *Shell, args []string, stdout io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintf(s.Stderr, "usage: %s <dir>\n", args[0])
		return 1
	}

	if err := s.Store.Remove(args[1]); err != nil {
		fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
		return 1
	}
	os.Setenv(EnvPath, s.Store.PathList())

	if err := s.Store.Persist(); err != nil {
		fmt.Fprintf(s.Stderr, "%s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// ListPaths prints the current in-memory search list, one directory
// per line, in resolution order.
func ListPaths(s *Shell, args []string, stdout io.Writer) int {
	for _, dir := range s.Store.List() {
		fmt.Fprintln(stdout, dir)
	}
	return 0
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["pwd"] = ShellBuiltinFunc(Pwd)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
	AllBuiltins["export"] = ShellBuiltinFunc(Export)
	AllBuiltins["addToPath"] = ShellBuiltinFunc(AddToPath)
	AllBuiltins["removeFromPath"] = ShellBuiltinFunc(RemoveFromPath)
	AllBuiltins["listPaths"] = ShellBuiltinFunc(ListPaths)
}
