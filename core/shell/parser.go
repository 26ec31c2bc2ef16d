// Package shell turns command lines into pipelines.
//
// The grammar is a small subset of
// https://pubs.opengroup.org/onlinepubs/9699919799/utilities/V3_chap02.html
//
//  1. The line is normalized: surrounding whitespace is trimmed.
//
//  2. The line is broken into tokens: words and the operators
//     | && || ; & < > >>. Quoting (single, double, backslash) is respected so
//     whitespace and operators inside quotes are literal. An unquoted # at the
//     start of a word begins a comment.
//
//  3. Tokens are grouped into a list of pipelines joined by && || and ;,
//     each pipeline into stages separated by |.
//
//  4. Redirections are removed from each stage's arguments and attached to
//     the stage. Quotes are removed and a leading unquoted ~ is expanded.
//
// Parsing has no side effects.
package shell

import (
	"strings"
)

// Operator joins two pipelines in a List.
type Operator string

const (
	// OpNone marks the last pipeline in a list.
	OpNone Operator = ""
	// OpAnd runs the next pipeline only if this one succeeded.
	OpAnd Operator = "&&"
	// OpOr runs the next pipeline only if this one failed.
	OpOr Operator = "||"
	// OpSeq always runs the next pipeline.
	OpSeq Operator = ";"
)

// Command is a single pipeline stage.
type Command struct {
	// Name is the program or builtin to run.
	Name string
	// Args holds the arguments, not including Name.
	Args []string
	// Stdin is a file to read from, empty to read from the pipe or terminal.
	Stdin string
	// Stdout is a file to write to, empty to write to the pipe or terminal.
	Stdout string
	// Append opens Stdout in append mode rather than truncating it.
	Append bool
}

// Argv returns the command name followed by its arguments.
func (c *Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

// Pipeline is an ordered list of stages whose output flows left to right.
type Pipeline struct {
	Commands   []Command
	Background bool
	// Source holds the text the pipeline was parsed from, without a trailing &.
	Source string
}

// ListItem is a pipeline and the operator that follows it.
type ListItem struct {
	Pipeline *Pipeline
	Op       Operator
}

// List is a sequence of pipelines joined by control operators.
type List struct {
	Items []ListItem
}

// Empty is true if the line held nothing to execute.
func (l *List) Empty() bool {
	return len(l.Items) == 0
}

// Normalize prepares a raw line for tokenizing.
func Normalize(line string) string {
	return strings.TrimSpace(line)
}

// Parse parses a line holding exactly one pipeline. Home is used to expand ~;
// if blank ~ is left alone.
func Parse(line, home string) (*Pipeline, error) {
	list, err := ParseList(line, home)
	if err != nil {
		return nil, err
	}

	switch len(list.Items) {
	case 0:
		return nil, newParseError(ErrEmptyStage, 0, "")
	case 1:
		return list.Items[0].Pipeline, nil
	default:
		return nil, newParseError(ErrNotPipeline, 0, line)
	}
}

// ParseList parses a line into a list of pipelines. A blank line or a line
// holding only a comment produces an empty list.
func ParseList(line, home string) (*List, error) {
	src := Normalize(line)
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}

	background := false
	for i, tok := range toks {
		if tok.kind != tokAmp {
			continue
		}
		if i != len(toks)-1 {
			return nil, newParseError(ErrMisplacedBackground, tok.pos, tok.text())
		}
		background = true
		toks = toks[:i]
	}
	if background && len(toks) == 0 {
		return nil, newParseError(ErrEmptyCommand, 0, "&")
	}
	if background && toks[len(toks)-1].kind == tokSemi {
		return nil, newParseError(ErrMisplacedBackground, len(src)-1, "&")
	}

	list := &List{}
	var current []token
	for _, tok := range toks {
		var op Operator
		switch tok.kind {
		case tokAnd:
			op = OpAnd
		case tokOr:
			op = OpOr
		case tokSemi:
			op = OpSeq
		default:
			current = append(current, tok)
			continue
		}

		if len(current) == 0 {
			return nil, newParseError(ErrEmptyCommand, tok.pos, tok.text())
		}
		p, err := parsePipeline(src, current, home)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, ListItem{Pipeline: p, Op: op})
		current = nil
	}

	if len(current) == 0 {
		// A trailing ; is allowed, other trailing operators need a right side.
		if n := len(list.Items); n > 0 && list.Items[n-1].Op != OpSeq {
			last := toks[len(toks)-1]
			return nil, newParseError(ErrEmptyCommand, last.pos, last.text())
		}
		if n := len(list.Items); n > 0 {
			list.Items[n-1].Op = OpNone
		}
	} else {
		p, err := parsePipeline(src, current, home)
		if err != nil {
			return nil, err
		}
		list.Items = append(list.Items, ListItem{Pipeline: p})
	}

	if background {
		n := len(list.Items)
		// Only the final pipeline may be backgrounded, and only if it doesn't
		// depend on the status of the one before it.
		if n > 1 && list.Items[n-2].Op != OpSeq {
			return nil, newParseError(ErrMisplacedBackground, len(src)-1, "&")
		}
		list.Items[n-1].Pipeline.Background = true
	}

	return list, nil
}

func parsePipeline(src string, toks []token, home string) (*Pipeline, error) {
	p := &Pipeline{
		Source: strings.TrimSpace(src[toks[0].pos:toks[len(toks)-1].end]),
	}

	var stage []token
	for _, tok := range toks {
		if tok.kind != tokPipe {
			stage = append(stage, tok)
			continue
		}
		if len(stage) == 0 {
			return nil, newParseError(ErrEmptyStage, tok.pos, tok.text())
		}
		cmd, err := parseStage(stage, home)
		if err != nil {
			return nil, err
		}
		p.Commands = append(p.Commands, cmd)
		stage = nil
	}
	if len(stage) == 0 {
		last := toks[len(toks)-1]
		return nil, newParseError(ErrEmptyStage, last.pos, last.text())
	}
	cmd, err := parseStage(stage, home)
	if err != nil {
		return nil, err
	}
	p.Commands = append(p.Commands, cmd)

	return p, nil
}

func parseStage(toks []token, home string) (Command, error) {
	var (
		cmd   Command
		words []string
	)

	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		switch tok.kind {
		case tokWord:
			word, err := unquote(tok, home)
			if err != nil {
				return Command{}, err
			}
			words = append(words, word)

		case tokRedirIn, tokRedirOut, tokRedirAppend:
			if i+1 >= len(toks) || toks[i+1].kind != tokWord {
				return Command{}, newParseError(ErrMissingRedirectTarget, tok.pos, tok.text())
			}
			i++
			target, err := unquote(toks[i], home)
			if err != nil {
				return Command{}, err
			}
			if target == "" {
				return Command{}, newParseError(ErrMissingRedirectTarget, toks[i].pos, toks[i].raw)
			}

			switch tok.kind {
			case tokRedirIn:
				cmd.Stdin = target
			case tokRedirOut:
				cmd.Stdout, cmd.Append = target, false
			case tokRedirAppend:
				cmd.Stdout, cmd.Append = target, true
			}

		default:
			return Command{}, newParseError(ErrEmptyStage, tok.pos, tok.text())
		}
	}

	if len(words) == 0 {
		return Command{}, newParseError(ErrEmptyStage, toks[0].pos, toks[0].text())
	}
	cmd.Name = words[0]
	if len(words) > 1 {
		cmd.Args = words[1:]
	}
	return cmd, nil
}
