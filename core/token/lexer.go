package token

import (
	"fmt"
	"strings"
)

// SyntaxError reports a malformed command line. The line is rejected
// before any pipeline is built.
type SyntaxError struct {
	msg string
}

func (e *SyntaxError) Error() string {
	return "syntax error: " + e.msg
}

func syntaxErrorf(format string, args ...interface{}) error {
	return &SyntaxError{msg: fmt.Sprintf(format, args...)}
}

// Tokenize splits line into Word, Pipe and redirection tokens. The
// operators "|", "<", ">" and ">>" delimit words whether or not they
// are surrounded by whitespace. Inside single or double quotes every
// character is literal. A backslash outside quotes escapes the next
// character; inside double quotes it escapes only `"` and `\`.
//
// Redirection operators consume the following word as their target.
// The returned stream always finishes with an End token.
func Tokenize(line string) ([]Token, error) {
	raw, err := scan(line)
	if err != nil {
		return nil, err
	}

	// Fold redirection targets into their operators.
	var out []Token
	for i := 0; i < len(raw); i++ {
		t := raw[i]
		if t.Kind != RedirectIn && t.Kind != RedirectOut {
			out = append(out, t)
			continue
		}
		if i+1 >= len(raw) || raw[i+1].Kind != Word {
			return nil, syntaxErrorf("%q requires a filename", operatorText(t))
		}
		t.Text = raw[i+1].Text
		out = append(out, t)
		i++
	}

	return append(out, Token{Kind: End}), nil
}

func operatorText(t Token) string {
	if t.Kind == RedirectIn {
		return "<"
	}
	if t.Append {
		return ">>"
	}
	return ">"
}

// scan produces the low-level token stream; redirection tokens come
// out without targets.
func scan(line string) ([]Token, error) {
	var (
		tokens   []Token
		current  strings.Builder
		haveWord bool
	)

	flush := func() {
		if haveWord {
			tokens = append(tokens, Token{Kind: Word, Text: current.String()})
			current.Reset()
			haveWord = false
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch c {
		case '\'':
			end := strings.IndexByte(line[i+1:], '\'')
			if end < 0 {
				return nil, syntaxErrorf("unterminated quote")
			}
			current.WriteString(line[i+1 : i+1+end])
			haveWord = true
			i += end + 1

		case '"':
			text, consumed, err := scanDoubleQuoted(line[i+1:])
			if err != nil {
				return nil, err
			}
			current.WriteString(text)
			haveWord = true
			i += consumed

		case '\\':
			if i+1 >= len(line) {
				return nil, syntaxErrorf("unterminated escape")
			}
			current.WriteByte(line[i+1])
			haveWord = true
			i++

		case ' ', '\t':
			flush()

		case '|':
			flush()
			tokens = append(tokens, Token{Kind: Pipe})

		case '<':
			flush()
			tokens = append(tokens, Token{Kind: RedirectIn})

		case '>':
			flush()
			t := Token{Kind: RedirectOut}
			if i+1 < len(line) && line[i+1] == '>' {
				t.Append = true
				i++
			}
			tokens = append(tokens, t)

		default:
			current.WriteByte(c)
			haveWord = true
		}
	}
	flush()

	return tokens, nil
}

func scanDoubleQuoted(rest string) (text string, consumed int, err error) {
	var out strings.Builder
	for i := 0; i < len(rest); i++ {
		switch c := rest[i]; c {
		case '"':
			return out.String(), i + 1, nil
		case '\\':
			if i+1 < len(rest) && (rest[i+1] == '"' || rest[i+1] == '\\') {
				out.WriteByte(rest[i+1])
				i++
				continue
			}
			out.WriteByte(c)
		default:
			out.WriteByte(c)
		}
	}
	return "", 0, syntaxErrorf("unterminated quote")
}
