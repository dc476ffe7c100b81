// Package format upgrades spec strings written in the old grammar, where
// a compiler clause could appear between other node attributes, to the
// canonical form that keeps the compiler clause at the end of its node.
package format

import (
	"github.com/harp-pm/harp/parser"
	"github.com/harp-pm/harp/tokenize"
)

// Token kinds of the old spec grammar. The table mirrors the current
// grammar, minus "%" dependency sigils, plus the old standalone compiler
// clauses.
const (
	legacyStartEdgeProperties tokenize.Kind = iota
	legacyEndEdgeProperties
	legacyDependency
	legacyVersionHashPair
	legacyGitVersion
	legacyVersion
	legacyPropagatedBoolVariant
	legacyBoolVariant
	legacyPropagatedKeyValuePair
	legacyKeyValuePair
	legacyCompilerAndVersion
	legacyCompiler
	legacyFilename
	legacyFullyQualifiedPackageName
	legacyUnqualifiedPackageName
	legacyDagHash
	legacyWhitespace
	legacyUnexpected
)

func reuse(kind tokenize.Kind, as tokenize.Kind, name string) tokenize.Def {
	def := parser.SpecTokenDef(kind)
	def.Kind = as
	def.Name = name
	return def
}

var legacyTokenizer = tokenize.New([]tokenize.Def{
	{Kind: legacyStartEdgeProperties, Name: "START_EDGE_PROPERTIES", Pattern: `(?:\^\[)`},
	{Kind: legacyEndEdgeProperties, Name: "END_EDGE_PROPERTIES", Pattern: `(?:\])`},
	{Kind: legacyDependency, Name: "DEPENDENCY", Pattern: `(?:\^)`},
	reuse(parser.TokenVersionHashPair, legacyVersionHashPair, "VERSION_HASH_PAIR"),
	reuse(parser.TokenGitVersion, legacyGitVersion, "GIT_VERSION"),
	reuse(parser.TokenVersion, legacyVersion, "VERSION"),
	reuse(parser.TokenPropagatedBoolVariant, legacyPropagatedBoolVariant, "PROPAGATED_BOOL_VARIANT"),
	reuse(parser.TokenBoolVariant, legacyBoolVariant, "BOOL_VARIANT"),
	reuse(parser.TokenPropagatedKeyValuePair, legacyPropagatedKeyValuePair, "PROPAGATED_KEY_VALUE_PAIR"),
	reuse(parser.TokenKeyValuePair, legacyKeyValuePair, "KEY_VALUE_PAIR"),
	{Kind: legacyCompilerAndVersion, Name: "COMPILER_AND_VERSION",
		Pattern: `(?:%\s*(?:` + parser.NamePattern + `)(?:[\s]*)@\s*(?:` + parser.VersionListPattern + `))`},
	{Kind: legacyCompiler, Name: "COMPILER", Pattern: `(?:%\s*(?:` + parser.NamePattern + `))`},
	reuse(parser.TokenFilename, legacyFilename, "FILENAME"),
	reuse(parser.TokenFullyQualifiedPackageName, legacyFullyQualifiedPackageName, "FULLY_QUALIFIED_PACKAGE_NAME"),
	reuse(parser.TokenUnqualifiedPackageName, legacyUnqualifiedPackageName, "UNQUALIFIED_PACKAGE_NAME"),
	reuse(parser.TokenDagHash, legacyDagHash, "DAG_HASH"),
	reuse(parser.TokenWhitespace, legacyWhitespace, "WS"),
	reuse(parser.TokenUnexpected, legacyUnexpected, "UNEXPECTED"),
})

// reorderCompiler rotates the compiler block at idx to the end of the
// block list, keeping at least one space before it and no leading
// whitespace at the start of the string.
func reorderCompiler(idx int, blocks [][]tokenize.Token) [][]tokenize.Token {
	// only move the compiler if it exists and is not already at the end
	if idx < 0 || idx >= len(blocks)-1 {
		return blocks
	}
	// if there's only whitespace after the compiler, don't move it
	trailing := false
	for _, block := range blocks[idx+1:] {
		for _, tok := range block {
			if tok.Kind != legacyWhitespace {
				trailing = true
			}
		}
	}
	if !trailing {
		return blocks
	}
	compiler := blocks[idx]
	blocks = append(blocks[:idx], blocks[idx+1:]...)
	if compiler[0].Kind != legacyWhitespace {
		compiler = append([]tokenize.Token{{Kind: legacyWhitespace, Value: " "}}, compiler...)
	}
	for idx == 0 && len(blocks) > 0 && len(blocks[0]) > 0 && blocks[0][0].Kind == legacyWhitespace {
		blocks[0] = blocks[0][1:]
	}
	return append(blocks, compiler)
}

// FormatSpecString parses text as an old-style spec string and rotates
// the compiler clause of each node to the end of that node's clauses.
// Returns the rewritten string and true only if the string changed.
// Strings that cannot be rewritten safely (unrecognized characters, more
// than one compiler clause per node) are reported unchanged.
func FormatSpecString(specStr string) (string, bool) {
	// Blocks of tokens include their leading whitespace; the compiler
	// block moves to the end when a dependency or the end of the string
	// is reached:
	//   [@3.1][ +foo][ +bar][ %gcc@3.1][ +baz]
	//   [@3.1][ +foo][ +bar][ +baz][ %gcc@3.1]
	var current []tokenize.Token
	var blocks [][]tokenize.Token
	compilerBlockIdx := -1
	inEdgeAttr := false

	flush := func(tok tokenize.Token) {
		current = append(current, tok)
		blocks = append(blocks, current)
		current = nil
	}

	for _, tok := range legacyTokenizer.Tokenize(specStr) {
		switch tok.Kind {
		case legacyUnexpected:
			// parsing error, we cannot fix this string
			return "", false
		case legacyCompiler, legacyCompilerAndVersion:
			// multiple compilers per node were not expressible in the
			// old grammar, so bail out instead of guessing
			if compilerBlockIdx != -1 {
				return "", false
			}
			flush(tok)
			compilerBlockIdx = len(blocks) - 1
		case legacyStartEdgeProperties, legacyDependency,
			legacyUnqualifiedPackageName, legacyFullyQualifiedPackageName:
			blocks = reorderCompiler(compilerBlockIdx, blocks)
			compilerBlockIdx = -1
			if tok.Kind == legacyStartEdgeProperties {
				inEdgeAttr = true
			}
			flush(tok)
		case legacyEndEdgeProperties:
			inEdgeAttr = false
			flush(tok)
		case legacyWhitespace:
			current = append(current, tok)
		default:
			if inEdgeAttr {
				current = append(current, tok)
			} else {
				flush(tok)
			}
		}
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	blocks = reorderCompiler(compilerBlockIdx, blocks)

	var out []byte
	for _, block := range blocks {
		for _, tok := range block {
			out = append(out, tok.Value...)
		}
	}
	if string(out) == specStr {
		return "", false
	}
	return string(out), true
}
