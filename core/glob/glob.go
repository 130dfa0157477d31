// Package glob expands filesystem wildcard patterns.
package glob

import (
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Expander matches wildcard patterns against a filesystem. Patterns
// use "*" (any run of characters within one path segment) and "?"
// (exactly one character within one path segment). Neither wildcard
// ever matches a path separator.
type Expander struct {
	fs afero.Fs
}

// New returns an Expander over fs.
func New(fs afero.Fs) *Expander {
	return &Expander{fs: fs}
}

// HasWildcard reports whether s would be treated as a pattern.
func HasWildcard(s string) bool {
	return strings.ContainsAny(s, "*?")
}

// Expand returns the paths under dir matching pattern, sorted
// lexicographically. Entries whose name starts with "." are skipped
// unless the corresponding pattern segment itself starts with a
// literal ".". If the pattern contains no wildcards, or nothing
// matches, the literal pattern is returned unchanged so a command
// never silently loses an argument.
func (e *Expander) Expand(dir, pattern string) []string {
	if !HasWildcard(pattern) {
		return []string{pattern}
	}

	segments := strings.Split(pattern, "/")

	// prefixes holds the pattern text matched so far, exactly as it
	// will appear in the results. A leading empty segment means the
	// pattern is absolute.
	prefixes := []string{""}
	if segments[0] == "" {
		prefixes = []string{"/"}
		segments = segments[1:]
	}

	for i, segment := range segments {
		last := i == len(segments)-1
		var next []string
		for _, prefix := range prefixes {
			next = append(next, e.expandSegment(dir, prefix, segment, last)...)
		}
		if len(next) == 0 {
			return []string{pattern}
		}
		prefixes = next
	}

	sort.Strings(prefixes)
	return prefixes
}

// ExpandAll expands every element of args in order, splicing the
// matches into the result.
func (e *Expander) ExpandAll(dir string, args []string) []string {
	var out []string
	for _, arg := range args {
		out = append(out, e.Expand(dir, arg)...)
	}
	return out
}

func (e *Expander) expandSegment(dir, prefix, segment string, last bool) []string {
	join := func(name string) string {
		if prefix == "" {
			return name
		}
		if strings.HasSuffix(prefix, "/") {
			return prefix + name
		}
		return prefix + "/" + name
	}

	// Literal segments extend the prefix directly, but only if the
	// resulting path exists; a dead prefix produces no matches.
	if !HasWildcard(segment) {
		candidate := join(segment)
		if _, err := e.fs.Stat(resolve(dir, candidate)); err != nil {
			return nil
		}
		return []string{candidate}
	}

	searchDir := resolve(dir, prefix)
	if searchDir == "" {
		searchDir = "."
	}

	infos, err := afero.ReadDir(e.fs, searchDir)
	if err != nil {
		return nil
	}

	var out []string
	for _, info := range infos {
		name := info.Name()
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(segment, ".") {
			continue
		}
		ok, err := path.Match(segment, name)
		if err != nil || !ok {
			continue
		}
		// Non-final segments must be directories to descend into.
		if !last && !info.IsDir() {
			continue
		}
		out = append(out, join(name))
	}
	return out
}

// resolve anchors a possibly relative match path at dir.
func resolve(dir, p string) string {
	if strings.HasPrefix(p, "/") {
		return p
	}
	if p == "" {
		return dir
	}
	return path.Join(dir, p)
}
