// Package token splits raw command lines into typed tokens.
package token

import "fmt"

// Kind tags the type of a token.
type Kind int

const (
	// Word is a run of non-operator text, with quoting already resolved.
	Word Kind = iota
	// Pipe is the "|" operator.
	Pipe
	// RedirectIn is "<" with its target file attached.
	RedirectIn
	// RedirectOut is ">" or ">>" with its target file attached.
	RedirectOut
	// End marks the end of the token stream.
	End
)

func (k Kind) String() string {
	switch k {
	case Word:
		return "word"
	case Pipe:
		return "pipe"
	case RedirectIn:
		return "redirect-in"
	case RedirectOut:
		return "redirect-out"
	case End:
		return "end"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Token is a single lexed element of a command line. Tokens are
// immutable once produced.
type Token struct {
	Kind Kind

	// Text is the literal word text for Word tokens and the target
	// file for redirection tokens.
	Text string

	// Append distinguishes ">>" from ">" on RedirectOut tokens.
	Append bool
}

func (t Token) String() string {
	switch t.Kind {
	case Word:
		return fmt.Sprintf("word(%q)", t.Text)
	case RedirectIn:
		return fmt.Sprintf("<%s", t.Text)
	case RedirectOut:
		if t.Append {
			return fmt.Sprintf(">>%s", t.Text)
		}
		return fmt.Sprintf(">%s", t.Text)
	default:
		return t.Kind.String()
	}
}
