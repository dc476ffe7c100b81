package parser

import "github.com/harp-pm/harp/tokenize"

// A TokenContext is a pull-based cursor over a token sequence. It keeps
// one token of lookahead (Next) plus the last accepted token (Current),
// and a small pushback stack so callers can splice synthesized tokens in
// front of the stream.
type TokenContext struct {
	stream []tokenize.Token
	index  int

	// Current is the last accepted token; Next is the lookahead.
	Current *tokenize.Token
	Next    *tokenize.Token

	// back of the slice is the front of the stream
	pushed []*tokenize.Token
}

func newTokenContext(tokens []tokenize.Token) *TokenContext {
	ctx := &TokenContext{stream: tokens}
	ctx.Advance()
	return ctx
}

// Advance moves one token forward: Next becomes Current, and Next is
// refilled from the pushback stack or the underlying sequence (nil at
// end).
func (c *TokenContext) Advance() {
	c.Current = c.Next
	if n := len(c.pushed); n > 0 {
		c.Next = c.pushed[n-1]
		c.pushed = c.pushed[:n-1]
		return
	}
	if c.index < len(c.stream) {
		tok := c.stream[c.index]
		c.index++
		c.Next = &tok
		return
	}
	c.Next = nil
}

// Accept advances past the next token if it is of the given kind. This is
// the only way grammar rules consume tokens.
func (c *TokenContext) Accept(kind tokenize.Kind) bool {
	if c.Next != nil && c.Next.Kind == kind {
		c.Advance()
		return true
	}
	return false
}

// PushFront inserts a synthesized token in front of the current
// lookahead. The bumped token is restored by a later Advance.
func (c *TokenContext) PushFront(tok tokenize.Token) {
	c.pushed = append(c.pushed, c.Next)
	c.Next = &tok
}

// Expect reports whether the next token is one of the given kinds,
// without consuming anything.
func (c *TokenContext) Expect(kinds ...tokenize.Kind) bool {
	if c.Next == nil {
		return false
	}
	for _, kind := range kinds {
		if c.Next.Kind == kind {
			return true
		}
	}
	return false
}
