package parser

import (
	"regexp"

	"github.com/harp-pm/harp/tokenize"
)

// Building blocks for the spec grammar. Identifiers deliberately exclude
// most word characters from other scripts; version ids may contain dots
// while other ids may not.
const (
	identifier       = `(?:[a-zA-Z_0-9][a-zA-Z_0-9\-]*)`
	dottedIdentifier = `(?:` + identifier + `(?:\.` + identifier + `)+)`
	gitHash          = `(?:[A-Fa-f0-9]{40})`

	// Git refs include branch names, and can contain "." and "/"
	gitRef            = `(?:[a-zA-Z_0-9][a-zA-Z_0-9./\-]*)`
	gitVersionPattern = `(?:(?:git\.(?:` + gitRef + `))|(?:` + gitHash + `))`

	// Substitute a package for one or more virtuals, e.g. c,cxx=gcc.
	// Overlaps with key-value pairs, so kinds embedding it must come
	// first in the table.
	virtualAssignment = `(?:` +
		`(?P<virtuals>` + identifier + `(?:,` + identifier + `)*)` +
		`=(?P<substitute>` + dottedIdentifier + `|` + identifier + `)` +
		`)`

	star = `\*`
	name = `[a-zA-Z_0-9][a-zA-Z_0-9\-.]*`
	hash = `[a-zA-Z_0-9]+`

	// Values that can be written bare, without quotes.
	value = `(?:[a-zA-Z_0-9\-+*.,:=%^~/\\]+)`

	// Quoted values can contain anything, with backslash-escaped quotes.
	quotedValue = `(?:'(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*")`

	version      = `=?(?:[a-zA-Z0-9_][a-zA-Z_0-9\-.]*\b)`
	versionRange = `(?:(?:` + version + `)?:(?:` + version + `)?)`
	versionList  = `(?:` + versionRange + `|` + version + `)` +
		`(?:\s*,\s*(?:` + versionRange + `|` + version + `))*`

	// A filename starts with ".", "/" or "name/", and ends in .json or .yaml
	filename = `(?:\.|/|[a-zA-Z0-9-_]*/)(?:[a-zA-Z0-9-_./]*)(?:\.json|\.yaml)`
)

// Token kinds of the spec grammar. Declaration order is the matching
// priority order: the tokenizer takes the first kind that matches at a
// given offset.
const (
	TokenStartEdgeProperties tokenize.Kind = iota
	TokenEndEdgeProperties
	TokenDependency
	TokenVersionHashPair
	TokenGitVersion
	TokenVersion
	TokenPropagatedBoolVariant
	TokenBoolVariant
	TokenPropagatedKeyValuePair
	TokenKeyValuePair
	TokenFilename
	TokenFullyQualifiedPackageName
	TokenUnqualifiedPackageName
	TokenDagHash
	TokenWhitespace
	TokenUnexpected
)

// trailingRangeEnd matches a version list whose final element is the end
// of a range. Used by trimVersionRange.
var trailingRangeEnd = regexp.MustCompile(`^(.*:)([a-zA-Z0-9_][a-zA-Z_0-9\-.]*)$`)

var leadingEquals = regexp.MustCompile(`^\s*=`)

// trimVersionRange keeps a range end from swallowing the key of a
// following key-value pair: in "@3:backend=mpi" the version constraint is
// "3:" and "backend=mpi" is a flag. The original grammar expresses this
// with a negative lookahead, which RE2 does not support.
func trimVersionRange(value, rest string) int {
	m := trailingRangeEnd.FindStringSubmatch(value)
	if m == nil || !leadingEquals.MatchString(rest) {
		return 0
	}
	return len(m[1])
}

var specTokenDefs = []tokenize.Def{
	{Kind: TokenStartEdgeProperties, Name: "START_EDGE_PROPERTIES", Pattern: `(?:[\^%]\[)`},
	{Kind: TokenEndEdgeProperties, Name: "END_EDGE_PROPERTIES", Pattern: `(?:\](?:\s*` + virtualAssignment + `)?)`},
	{Kind: TokenDependency, Name: "DEPENDENCY", Pattern: `(?:[\^%](?:\s*` + virtualAssignment + `)?)`},
	{Kind: TokenVersionHashPair, Name: "VERSION_HASH_PAIR", Pattern: `(?:@(?:` + gitVersionPattern + `)=(?:` + version + `))`},
	{Kind: TokenGitVersion, Name: "GIT_VERSION", Pattern: `@(?:` + gitVersionPattern + `)`},
	{Kind: TokenVersion, Name: "VERSION", Pattern: `(?:@\s*(?:` + versionList + `))`, Trim: trimVersionRange},
	{Kind: TokenPropagatedBoolVariant, Name: "PROPAGATED_BOOL_VARIANT", Pattern: `(?:(?:\+\+|~~|--)\s*` + name + `)`},
	{Kind: TokenBoolVariant, Name: "BOOL_VARIANT", Pattern: `(?:[~+-]\s*` + name + `)`},
	{Kind: TokenPropagatedKeyValuePair, Name: "PROPAGATED_KEY_VALUE_PAIR", Pattern: `(?:` + name + `:?==(?:` + value + `|` + quotedValue + `))`},
	{Kind: TokenKeyValuePair, Name: "KEY_VALUE_PAIR", Pattern: `(?:` + name + `:?=(?:` + value + `|` + quotedValue + `))`},
	{Kind: TokenFilename, Name: "FILENAME", Pattern: `(?:` + filename + `)`},
	{Kind: TokenFullyQualifiedPackageName, Name: "FULLY_QUALIFIED_PACKAGE_NAME", Pattern: `(?:` + dottedIdentifier + `)`},
	{Kind: TokenUnqualifiedPackageName, Name: "UNQUALIFIED_PACKAGE_NAME", Pattern: `(?:` + identifier + `|` + star + `)`},
	{Kind: TokenDagHash, Name: "DAG_HASH", Pattern: `(?:/(?:` + hash + `))`},
	{Kind: TokenWhitespace, Name: "WS", Pattern: `(?:\s+)`},
	{Kind: TokenUnexpected, Name: "UNEXPECTED", Pattern: `(?:.[\s]*)`},
}

// Pattern fragments exported for the legacy spec-string rewriter, which
// reconstructs the old grammar from the current one.
const (
	NamePattern        = name
	VersionListPattern = versionList
)

// SpecTokenDef returns the table entry for a spec token kind, so other
// token tables can reuse its pattern.
func SpecTokenDef(kind tokenize.Kind) tokenize.Def {
	for _, def := range specTokenDefs {
		if def.Kind == kind {
			return def
		}
	}
	return tokenize.Def{}
}

// specTokenizer matches the spec grammar. Shared and immutable.
var specTokenizer = tokenize.New(specTokenDefs)

// Tokenize returns the raw tokens of text, including whitespace and
// unexpected spans. It never fails.
func Tokenize(text string) []tokenize.Token {
	return specTokenizer.Tokenize(text)
}

// Tokens returns the non-whitespace tokens of text, or a tokenization
// error if any span of the input is unclassifiable. The error underlines
// every unexpected span at once.
func Tokens(text string) ([]tokenize.Token, error) {
	raw := Tokenize(text)
	var out []tokenize.Token
	for _, tok := range raw {
		if tok.Kind == TokenUnexpected {
			return nil, newTokenizationError(raw, text)
		}
		if tok.Kind == TokenWhitespace {
			continue
		}
		out = append(out, tok)
	}
	return out, nil
}
