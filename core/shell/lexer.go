package shell

import (
	"strings"

	"github.com/anmitsu/go-shlex"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokPipe
	tokAnd
	tokOr
	tokSemi
	tokAmp
	tokRedirIn
	tokRedirOut
	tokRedirAppend
)

func (k tokenKind) String() string {
	switch k {
	case tokPipe:
		return "|"
	case tokAnd:
		return "&&"
	case tokOr:
		return "||"
	case tokSemi:
		return ";"
	case tokAmp:
		return "&"
	case tokRedirIn:
		return "<"
	case tokRedirOut:
		return ">"
	case tokRedirAppend:
		return ">>"
	default:
		return "word"
	}
}

type token struct {
	kind tokenKind
	// raw holds the word exactly as typed, quotes included.
	raw string
	pos int
	end int
}

func (t token) text() string {
	if t.kind == tokWord {
		return t.raw
	}
	return t.kind.String()
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// lex breaks a normalized line into words and operators. Quotes and escapes
// are kept in the raw word text; they are removed later by unquote.
func lex(line string) ([]token, error) {
	var (
		toks      []token
		word      strings.Builder
		wordStart = -1
	)

	flush := func(end int) {
		if wordStart < 0 {
			return
		}
		toks = append(toks, token{kind: tokWord, raw: word.String(), pos: wordStart, end: end})
		word.Reset()
		wordStart = -1
	}
	startWord := func(i int) {
		if wordStart < 0 {
			wordStart = i
		}
	}
	op := func(kind tokenKind, i, width int) {
		flush(i)
		toks = append(toks, token{kind: kind, pos: i, end: i + width})
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		next := byte(0)
		if i+1 < len(line) {
			next = line[i+1]
		}

		switch {
		case c == '\\':
			if i+1 >= len(line) {
				return nil, newParseError(ErrUnterminatedQuote, i, `\`)
			}
			startWord(i)
			word.WriteString(line[i : i+2])
			i++

		case c == '\'':
			end := strings.IndexByte(line[i+1:], '\'')
			if end < 0 {
				return nil, newParseError(ErrUnterminatedQuote, i, line[i:])
			}
			startWord(i)
			word.WriteString(line[i : i+end+2])
			i += end + 1

		case c == '"':
			j := i + 1
			for ; j < len(line) && line[j] != '"'; j++ {
				if line[j] == '\\' {
					j++
				}
			}
			if j >= len(line) {
				return nil, newParseError(ErrUnterminatedQuote, i, line[i:])
			}
			startWord(i)
			word.WriteString(line[i : j+1])
			i = j

		case isBlank(c):
			flush(i)

		case c == '#' && wordStart < 0:
			// Comment to the end of the line.
			flush(i)
			return toks, nil

		case c == '|' && next == '|':
			op(tokOr, i, 2)
			i++
		case c == '|':
			op(tokPipe, i, 1)
		case c == '&' && next == '&':
			op(tokAnd, i, 2)
			i++
		case c == '&':
			op(tokAmp, i, 1)
		case c == ';':
			op(tokSemi, i, 1)
		case c == '>' && next == '>':
			op(tokRedirAppend, i, 2)
			i++
		case c == '>':
			op(tokRedirOut, i, 1)
		case c == '<':
			op(tokRedirIn, i, 1)

		default:
			startWord(i)
			word.WriteByte(c)
		}
	}
	flush(len(line))

	return toks, nil
}

// foldEscapes drops the backslash from \$ and \` inside double quotes, which
// shlex keeps but POSIX quote removal doesn't.
func foldEscapes(raw string) string {
	if !strings.Contains(raw, `"`) {
		return raw
	}

	var out strings.Builder
	var quote byte
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case quote == '\'':
			if c == '\'' {
				quote = 0
			}
		case c == '\\' && i+1 < len(raw):
			next := raw[i+1]
			i++
			if quote == '"' && (next == '$' || next == '`') {
				out.WriteByte(next)
				continue
			}
			out.WriteByte(c)
			c = next
		case c == '"':
			if quote == '"' {
				quote = 0
			} else {
				quote = c
			}
		case c == '\'' && quote == 0:
			quote = c
		}
		out.WriteByte(c)
	}
	return out.String()
}

// unquote performs quote removal on a raw word and expands a leading
// unquoted ~ to home.
func unquote(t token, home string) (string, error) {
	raw := t.raw
	words, err := shlex.Split(foldEscapes(raw), true)
	if err != nil {
		return "", newParseError(ErrUnterminatedQuote, t.pos, raw)
	}

	// The lexer never hands over unquoted blanks so shlex produces at most one
	// word; an empty quoted string produces none.
	out := strings.Join(words, "")

	if home != "" && (raw == "~" || strings.HasPrefix(raw, "~/")) {
		out = home + strings.TrimPrefix(out, "~")
	}
	return out, nil
}
