package parser

import (
	"strings"

	"github.com/harp-pm/harp/tokenize"
)

// ErrorKind tags the origin of a spec parsing failure.
type ErrorKind int

const (
	// ErrTokenization: the raw text contains spans no token kind matches.
	ErrTokenization ErrorKind = iota
	// ErrParse: a grammar rule's required continuation was not found.
	ErrParse
	// ErrDomain: the node or edge rejected a mutation (conflicting
	// variant, bad edge attribute, invalid toolchain). Reported with the
	// same positional context as parse errors.
	ErrDomain
	// ErrFileReference: a spec file referenced by name does not exist.
	ErrFileReference
)

// Error is the single error type raised by this package. It carries the
// original input so callers can render a precise diagnostic without
// re-fetching context.
type Error struct {
	Kind    ErrorKind
	Message string
	Text    string
	// Spans are the byte ranges to underline in Text.
	Spans [][2]int
	Cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Text == "" {
		return b.String()
	}
	b.WriteByte('\n')
	b.WriteString(e.Text)
	if len(e.Spans) == 0 {
		return b.String()
	}
	b.WriteByte('\n')
	underline := make([]byte, len(e.Text))
	for i := range underline {
		underline[i] = ' '
	}
	last := 0
	for _, span := range e.Spans {
		for i := span[0]; i < span[1] && i < len(underline); i++ {
			underline[i] = '^'
			if i >= last {
				last = i + 1
			}
		}
	}
	b.Write(underline[:last])
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// newTokenizationError reports every unexpected span of the input in a
// single error.
func newTokenizationError(tokens []tokenize.Token, text string) *Error {
	e := &Error{
		Kind:    ErrTokenization,
		Message: "unexpected characters in the spec string",
		Text:    text,
	}
	for _, tok := range tokens {
		if tok.Kind == TokenUnexpected {
			e.Spans = append(e.Spans, [2]int{tok.Start, tok.End})
		}
	}
	return e
}

// newParseError anchors a message at the span of one token. A nil token
// leaves the underline out.
func newParseError(message string, tok *tokenize.Token, text string) *Error {
	return anchoredError(ErrParse, message, tok, text, nil)
}

// newDomainError re-wraps an error raised by a node or edge mutation so
// it presents the same positional context as a parse error.
func newDomainError(cause error, tok *tokenize.Token, text string) *Error {
	return anchoredError(ErrDomain, cause.Error(), tok, text, cause)
}

func anchoredError(kind ErrorKind, message string, tok *tokenize.Token, text string, cause error) *Error {
	e := &Error{Kind: kind, Message: message, Text: text, Cause: cause}
	if tok != nil {
		e.Spans = [][2]int{{tok.Start, tok.End}}
	}
	return e
}

// newFileReferenceError reports a missing spec file. The filename token
// is the whole reference, so no underline is needed.
func newFileReferenceError(path string) *Error {
	return &Error{Kind: ErrFileReference, Message: "no such spec file: '" + path + "'"}
}
