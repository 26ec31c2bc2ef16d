package shell

import (
	"errors"
	"fmt"
)

var (
	// ErrUnterminatedQuote is returned when a quote is opened and not closed or
	// the line ends in a lone backslash.
	ErrUnterminatedQuote = errors.New("unterminated quote")
	// ErrEmptyStage is returned when two pipe operators are adjacent, or the
	// line begins or ends with a bare pipe.
	ErrEmptyStage = errors.New("empty pipeline stage")
	// ErrEmptyCommand is returned when one side of &&, || or ; is empty.
	ErrEmptyCommand = errors.New("empty command")
	// ErrMissingRedirectTarget is returned when <, > or >> has no file name.
	ErrMissingRedirectTarget = errors.New("missing redirection target")
	// ErrMisplacedBackground is returned when & appears anywhere but the end of
	// the line.
	ErrMisplacedBackground = errors.New("& is only allowed at the end of a line")
	// ErrNotPipeline is returned by Parse when the line holds a list.
	ErrNotPipeline = errors.New("line contains more than one pipeline")
)

// ParseError describes why a line couldn't be parsed.
type ParseError struct {
	// Err is one of the Err* kinds above.
	Err error
	// Pos is the byte offset into the normalized line.
	Pos int
	// Near holds the text at Pos, if any.
	Near string
}

func (e *ParseError) Error() string {
	if e.Near == "" {
		return fmt.Sprintf("syntax error: %v", e.Err)
	}
	return fmt.Sprintf("syntax error near %q: %v", e.Near, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newParseError(kind error, pos int, near string) *ParseError {
	return &ParseError{Err: kind, Pos: pos, Near: near}
}
