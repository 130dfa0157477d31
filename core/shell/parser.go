package shell

import (
	"fmt"

	"falsh/core/token"
)

// SyntaxError reports structurally invalid input: the pipeline is
// never built and nothing is spawned.
type SyntaxError struct {
	msg string
}

func (e *SyntaxError) Error() string {
	return "syntax error: " + e.msg
}

func syntaxErrorf(format string, args ...interface{}) error {
	return &SyntaxError{msg: fmt.Sprintf(format, args...)}
}

// Expander expands a single word into zero or more arguments.
// Non-pattern words pass through unchanged.
type Expander interface {
	Expand(dir, pattern string) []string
}

// BuiltinNamer reports whether a command name is a shell builtin, so
// stages can be tagged once at parse time.
type BuiltinNamer interface {
	IsBuiltin(name string) bool
}

// Parser turns token streams into pipelines.
type Parser struct {
	expander Expander
	builtins BuiltinNamer
}

// NewParser returns a Parser. expander may be nil to skip glob
// expansion; builtins may be nil if no builtins exist.
func NewParser(expander Expander, builtins BuiltinNamer) *Parser {
	return &Parser{expander: expander, builtins: builtins}
}

// Parse consumes tokens and builds a Pipeline. Word tokens are glob
// expanded against dir; redirections attach to their enclosing stage,
// are only legal at the pipeline's ends, and may appear at most once
// per direction.
func (p *Parser) Parse(dir string, tokens []token.Token) (*Pipeline, error) {
	groups, err := splitStages(tokens)
	if err != nil {
		return nil, err
	}

	pipeline := &Pipeline{}
	for i, group := range groups {
		stage, err := p.parseStage(dir, group, i == 0, i == len(groups)-1)
		if err != nil {
			return nil, err
		}
		pipeline.Stages = append(pipeline.Stages, stage)
	}

	return pipeline, nil
}

// splitStages cuts the stream on Pipe tokens. Empty stages (leading,
// trailing, or doubled pipes) and empty input are syntax errors.
func splitStages(tokens []token.Token) ([][]token.Token, error) {
	var groups [][]token.Token
	var current []token.Token

	for _, t := range tokens {
		switch t.Kind {
		case token.Pipe:
			if len(current) == 0 {
				return nil, syntaxErrorf("unexpected %q", "|")
			}
			groups = append(groups, current)
			current = nil
		case token.End:
			// handled after the loop
		default:
			current = append(current, t)
		}
	}

	switch {
	case len(current) == 0 && len(groups) == 0:
		return nil, syntaxErrorf("empty command")
	case len(current) == 0:
		return nil, syntaxErrorf("missing command after %q", "|")
	}

	return append(groups, current), nil
}

func (p *Parser) parseStage(dir string, group []token.Token, first, last bool) (*Stage, error) {
	stage := &Stage{}
	var words []string

	for _, t := range group {
		switch t.Kind {
		case token.Word:
			words = append(words, p.expandWord(dir, t.Text)...)

		case token.RedirectIn:
			if !first {
				return nil, syntaxErrorf("redirection only valid at pipeline ends")
			}
			if stage.In != nil {
				return nil, syntaxErrorf("duplicate %q redirection", "<")
			}
			stage.In = &Redirect{Path: t.Text}

		case token.RedirectOut:
			if !last {
				return nil, syntaxErrorf("redirection only valid at pipeline ends")
			}
			if stage.Out != nil {
				return nil, syntaxErrorf("duplicate %q redirection", ">")
			}
			stage.Out = &Redirect{Path: t.Text, Append: t.Append}

		default:
			return nil, syntaxErrorf("unexpected token %s", t)
		}
	}

	if len(words) == 0 {
		return nil, syntaxErrorf("missing command name")
	}

	stage.Name = words[0]
	if len(words) > 1 {
		stage.Args = words[1:]
	}
	if p.builtins != nil && p.builtins.IsBuiltin(stage.Name) {
		stage.Kind = Builtin
	}

	return stage, nil
}

func (p *Parser) expandWord(dir, text string) []string {
	if p.expander == nil {
		return []string{text}
	}
	return p.expander.Expand(dir, text)
}
