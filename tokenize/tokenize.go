// Package tokenize provides building blocks for tokenizing strings.
// Callers define a token language as an ordered list of kind patterns;
// the Tokenizer tries them in order at each input offset and the first
// match wins. Unclassifiable input must be covered by a catch-all kind so
// tokenizing itself never fails.
package tokenize

import "regexp"

// Kind identifies a token kind within one token table. Values are only
// meaningful relative to the table they were declared for.
type Kind int

// A Def pairs a token kind with the regular expression that matches it.
// Named capture groups in the pattern become Token.Subvalues. Trim, if
// set, may shorten a raw match after the fact; it receives the matched
// text and the remaining input and returns the number of bytes to keep
// (<= 0 keeps the whole match). It exists for context-sensitive fixups
// that regular expressions without lookahead cannot express.
type Def struct {
	Kind    Kind
	Name    string
	Pattern string
	Trim    func(value, rest string) int
}

// A Token is one classified span of input. Start and End are byte offsets
// into the original text. Subvalues holds named captures, or nil when the
// pattern has none or none matched. Tokens are immutable once produced.
type Token struct {
	Kind      Kind
	Value     string
	Start     int
	End       int
	Subvalues map[string]string
}

// A Tokenizer matches an ordered token table against input text. It is
// immutable after construction and safe for concurrent use.
type Tokenizer struct {
	defs  []Def
	regex []*regexp.Regexp
	names map[Kind]string
}

// New compiles a token table. Patterns are anchored at the current input
// offset. Invalid patterns panic: tables are static program data.
func New(defs []Def) *Tokenizer {
	t := &Tokenizer{
		defs:  defs,
		regex: make([]*regexp.Regexp, len(defs)),
		names: make(map[Kind]string, len(defs)),
	}
	for i, def := range defs {
		t.regex[i] = regexp.MustCompile(`^(?:` + def.Pattern + `)`)
		t.names[def.Kind] = def.Name
	}
	return t
}

// Name returns the declared name of a kind, for diagnostics.
func (t *Tokenizer) Name(kind Kind) string {
	return t.names[kind]
}

// A Scanner yields the tokens of one input string, pull-style. A fresh
// Scanner restarts from the beginning of the same text.
type Scanner struct {
	t    *Tokenizer
	text string
	pos  int
}

func (t *Tokenizer) Scan(text string) *Scanner {
	return &Scanner{t: t, text: text}
}

// Next returns the next token, or false at end of input.
func (s *Scanner) Next() (Token, bool) {
	if s.pos >= len(s.text) {
		return Token{}, false
	}
	rest := s.text[s.pos:]
	for i, def := range s.t.defs {
		re := s.t.regex[i]
		loc := re.FindStringSubmatchIndex(rest)
		if loc == nil || loc[1] == 0 {
			continue
		}
		end := loc[1]
		if def.Trim != nil {
			if keep := def.Trim(rest[:end], rest[end:]); keep > 0 && keep < end {
				end = keep
				loc = re.FindStringSubmatchIndex(rest[:end])
				if loc == nil {
					continue
				}
			}
		}
		tok := Token{
			Kind:  def.Kind,
			Value: rest[:end],
			Start: s.pos,
			End:   s.pos + end,
		}
		tok.Subvalues = subvalues(re, rest, loc)
		s.pos += end
		return tok, true
	}
	// unreachable as long as the table ends with a catch-all kind
	tok := Token{Value: rest[:1], Start: s.pos, End: s.pos + 1, Kind: s.t.defs[len(s.t.defs)-1].Kind}
	s.pos++
	return tok, true
}

func subvalues(re *regexp.Regexp, text string, loc []int) map[string]string {
	var out map[string]string
	for gi, name := range re.SubexpNames() {
		if name == "" || 2*gi+1 >= len(loc) {
			continue
		}
		start, end := loc[2*gi], loc[2*gi+1]
		if start < 0 || start == end {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		out[name] = text[start:end]
	}
	return out
}

// Tokenize collects every token of text. It never fails; unclassifiable
// spans surface as whatever catch-all kind the table declares.
func (t *Tokenizer) Tokenize(text string) []Token {
	var out []Token
	sc := t.Scan(text)
	for {
		tok, ok := sc.Next()
		if !ok {
			return out
		}
		out = append(out, tok)
	}
}
