// Package parser turns spec literals into spec.Spec dependency-graph
// fragments.
//
// The EBNF grammar for a spec:
//
//	spec  = [name] [node_options] { ^[edge_properties] node } |
//	        [name] [node_options] hash |
//	        filename
//
//	node  = name [node_options] |
//	        [name] [node_options] hash |
//	        filename
//
//	node_options    = [@(version_list|version_pair)] [%compiler] { variant }
//	edge_properties = [ { bool_variant | key_value } ]
//
//	hash          = / id
//	filename      = (.|/|[a-zA-Z0-9-_]*/)([a-zA-Z0-9-_./]*)(.json|.yaml)
//
//	name          = id | namespace id
//	namespace     = { id . }
//
//	variant       = bool_variant | key_value | propagated_bv | propagated_kv
//	bool_variant  =  +id |  ~id |  -id
//	propagated_bv = ++id | ~~id | --id
//	key_value     =  id=id |  id=quoted_id
//	propagated_kv = id==id | id==quoted_id
//
// There is one ambiguity: since "-" is allowed in an id, whitespace is
// needed before "-variant" for it to tokenize as a variant. "~variant"
// means the same thing and avoids the problem, at the cost of shell
// expansion surprises on the command line.
package parser

import (
	"fmt"
	"os"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/harp-pm/harp/spec"
	"github.com/harp-pm/harp/tokenize"
)

var log = commonlog.GetLogger("harp.parser")

// Standalone compiler names from the old grammar and the built-in
// packages that provide them now.
var legacyCompilerToBuiltin = map[string]string{
	"clang":  "llvm",
	"oneapi": "intel-oneapi-compilers",
	"rocmcc": "llvm-amdgpu",
	"intel":  "intel-oneapi-compilers-classic",
	"arm":    "acfl",
	"fj":     "fujitsu",
}

func init() {
	spec.RegisterParser(func(text string) (*spec.Spec, error) {
		return ParseOne(text)
	})
}

// An Option configures a SpecParser.
type Option func(*SpecParser)

// WithToolchains injects the read-only toolchain configuration the
// parser consults when a "%" sigil is followed by a toolchain name. The
// default is no toolchains.
func WithToolchains(provider ToolchainProvider) Option {
	return func(p *SpecParser) {
		p.toolchains = provider
	}
}

// A SpecParser parses one or more specs from a single text. Parsers are
// single-use and single-threaded; independent parsers share no state, so
// any number may run concurrently.
type SpecParser struct {
	text             string
	ctx              *TokenContext
	toolchains       ToolchainProvider
	parsedToolchains map[string]*spec.Spec
	warnings         []string
}

// NewSpecParser tokenizes text and prepares a parser over it. Returns a
// tokenization error if any span of the input is unclassifiable.
func NewSpecParser(text string, opts ...Option) (*SpecParser, error) {
	tokens, err := Tokens(text)
	if err != nil {
		return nil, err
	}
	p := &SpecParser{
		text:             text,
		ctx:              newTokenContext(tokens),
		parsedToolchains: make(map[string]*spec.Spec),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Tokens returns the non-whitespace tokens of the input text.
func (p *SpecParser) Tokens() ([]tokenize.Token, error) {
	return Tokens(p.text)
}

// Warnings returns the non-fatal issues collected so far, such as
// variants placed after a compiler attachment.
func (p *SpecParser) Warnings() []string {
	return p.warnings
}

// NextSpec parses the next spec from the text onto initial (a fresh node
// when nil). Returns initial unchanged when the input is exhausted, so a
// nil argument signals the end of the stream.
func (p *SpecParser) NextSpec(initial *spec.Spec) (*spec.Spec, error) {
	if p.ctx.Next == nil {
		return initial, nil
	}
	if initial == nil {
		initial = spec.New()
	}

	root, warnings, err := p.parseNodeInto(initial, false)
	if err != nil {
		return nil, err
	}
	current := root

	for {
		if p.ctx.Accept(TokenStartEdgeProperties) {
			isDirect := p.ctx.Current.Value[0] == '%'
			attrs, err := (&edgeAttributeParser{ctx: p.ctx, text: p.text, parser: p}).parse()
			if err != nil {
				return nil, err
			}

			dependency, childWarnings, err := p.parseDependencyNode(root, isDirect)
			if err != nil {
				return nil, err
			}
			warnings = append(warnings, childWarnings...)

			target := root
			if isDirect {
				target = current
				applyLegacyCompilerAlias(dependency)
			} else {
				current = dependency
			}
			edge := spec.DependencySpec{
				Direct:   isDirect,
				Virtuals: attrs.virtuals,
				DepFlag:  attrs.depflag,
				When:     attrs.when,
			}
			if err := target.AddDependency(dependency, edge); err != nil {
				return nil, newDomainError(err, p.ctx.Current, p.text)
			}

		} else if p.ctx.Accept(TokenDependency) {
			isDirect := p.ctx.Current.Value[0] == '%'
			virtuals := parseVirtualAssignment(p.ctx)

			// no virtual assignment: a bare name after "%" may refer to
			// a configured toolchain
			if len(virtuals) == 0 && isDirect && p.isToolchain(p.ctx.Next) {
				p.ctx.Accept(TokenUnqualifiedPackageName)
				if err := p.applyToolchain(current, p.ctx.Current.Value); err != nil {
					return nil, newDomainError(err, p.ctx.Current, p.text)
				}
				continue
			}

			dependency, childWarnings, err := p.parseDependencyNode(root, isDirect)
			if err != nil {
				return nil, err
			}
			warnings = append(warnings, childWarnings...)

			target := root
			if isDirect {
				target = current
				applyLegacyCompilerAlias(dependency)
			} else {
				current = dependency
			}
			edge := spec.DependencySpec{Direct: isDirect, Virtuals: virtuals}
			if err := target.AddDependency(dependency, edge); err != nil {
				return nil, newDomainError(err, p.ctx.Current, p.text)
			}

		} else {
			break
		}
	}

	if len(warnings) > 0 {
		p.warnings = append(p.warnings, warnings...)
		log.Warningf("%s in `%s`", strings.Join(warnings, ", "), p.text)
	}
	return root, nil
}

// AllSpecs parses every spec that remains in the text.
func (p *SpecParser) AllSpecs() ([]*spec.Spec, error) {
	var out []*spec.Spec
	for {
		s, err := p.NextSpec(nil)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return out, nil
		}
		out = append(out, s)
	}
}

func (p *SpecParser) parseNodeInto(initial *spec.Spec, direct bool) (*spec.Spec, []string, error) {
	np := &specNodeParser{ctx: p.ctx, text: p.text, direct: direct}
	return np.parse(initial)
}

// parseDependencyNode parses the node after a dependency sigil and its
// optional edge attributes.
func (p *SpecParser) parseDependencyNode(root *spec.Spec, direct bool) (*spec.Spec, []string, error) {
	dependency, warnings, err := p.parseNodeInto(spec.New(), direct)
	if err != nil {
		return nil, nil, err
	}
	if dependency.Anonymous() && dependency.String() == "" {
		msg := "the dependency sigil and any optional edge attributes must be followed by a " +
			"package name or a node attribute (version, variant, etc.)"
		return nil, nil, newParseError(msg, p.ctx.Current, p.text)
	}
	if root.Concrete {
		err := fmt.Errorf("cannot add dependency \"^%s\" to the concrete spec %q", dependency.String(), root.Name)
		return nil, nil, newDomainError(err, p.ctx.Current, p.text)
	}
	return dependency, warnings, nil
}

func (p *SpecParser) isToolchain(tok *tokenize.Token) bool {
	if p.toolchains == nil || tok == nil || tok.Kind != TokenUnqualifiedPackageName {
		return false
	}
	_, ok := p.toolchains.Toolchain(tok.Value)
	return ok
}

func applyLegacyCompilerAlias(dependency *spec.Spec) {
	if builtin, ok := legacyCompilerToBuiltin[dependency.Name]; ok {
		dependency.Name = builtin
	}
}

// parseVirtualAssignment extracts the virtuals from the current token's
// subvalues and splices a synthesized name token for the substitute
// package in front of the stream, so "^c,cxx=gcc" parses like
// "^[virtuals=c,cxx] gcc". Returns nil when the token carries no
// assignment.
func parseVirtualAssignment(ctx *TokenContext) []string {
	sub := ctx.Current.Subvalues
	if sub == nil {
		return nil
	}
	pkg := sub["substitute"]
	kind := TokenUnqualifiedPackageName
	if strings.Contains(pkg, ".") {
		kind = TokenFullyQualifiedPackageName
	}
	offset := strings.Index(ctx.Current.Value, pkg)
	start := ctx.Current.Start + offset
	ctx.PushFront(tokenize.Token{Kind: kind, Value: pkg, Start: start, End: start + len(pkg)})
	return strings.Split(sub["virtuals"], ",")
}

// specNodeParser parses a single spec node from the token stream.
type specNodeParser struct {
	ctx        *TokenContext
	text       string
	direct     bool
	hasVersion bool
}

func (np *specNodeParser) parse(initial *spec.Spec) (*spec.Spec, []string, error) {
	var warnings []string
	lastCompiler := ""

	if np.ctx.Next == nil || np.ctx.Expect(TokenDependency) {
		return initial, warnings, nil
	}

	// A node has at most one leading package name.
	if np.ctx.Accept(TokenUnqualifiedPackageName) {
		// "*" denotes an anonymous spec
		if np.ctx.Current.Value != "*" {
			initial.Name = np.ctx.Current.Value
		}
		if np.direct {
			lastCompiler = "%" + np.ctx.Current.Value
		}
	} else if np.ctx.Accept(TokenFullyQualifiedPackageName) {
		value := np.ctx.Current.Value
		dot := strings.LastIndex(value, ".")
		initial.Namespace = value[:dot]
		initial.Name = value[dot+1:]
		if np.direct {
			lastCompiler = "%" + value
		}
	} else if np.ctx.Accept(TokenFilename) {
		err := parseSpecFile(np.ctx.Current.Value, initial)
		return initial, warnings, err
	}

	warnIfAfterCompiler := func(token string) {
		if lastCompiler != "" {
			warnings = append(warnings, fmt.Sprintf("`%s` should go before `%s`", token, lastCompiler))
		}
	}

	addFlag := func(v spec.Variant) error {
		if err := initial.AddFlag(v); err != nil {
			return newDomainError(err, np.ctx.Current, np.text)
		}
		return nil
	}

	for {
		switch {
		case np.ctx.Accept(TokenVersionHashPair) ||
			np.ctx.Accept(TokenGitVersion) ||
			np.ctx.Accept(TokenVersion):
			if np.hasVersion {
				return nil, nil, newParseError("Spec cannot have multiple versions", np.ctx.Current, np.text)
			}
			initial.Versions = spec.ParseVersionList(strings.TrimSpace(np.ctx.Current.Value[1:]))
			initial.AttachGitVersionLookup()
			np.hasVersion = true
			// on a "%" node the version clause constrains the compiler
			// itself, so it is fine after the name

		case np.ctx.Accept(TokenBoolVariant):
			value := np.ctx.Current.Value
			name := strings.TrimSpace(value[1:])
			if err := addFlag(spec.BoolVariant(name, value[0] == '+', false)); err != nil {
				return nil, nil, err
			}
			warnIfAfterCompiler(value)

		case np.ctx.Accept(TokenPropagatedBoolVariant):
			value := np.ctx.Current.Value
			name := strings.TrimSpace(value[2:])
			if err := addFlag(spec.BoolVariant(name, value[:2] == "++", true)); err != nil {
				return nil, nil, err
			}
			warnIfAfterCompiler(value)

		case np.ctx.Accept(TokenKeyValuePair):
			name, value, _ := strings.Cut(np.ctx.Current.Value, "=")
			concrete := strings.HasSuffix(name, ":")
			name = strings.TrimSuffix(name, ":")
			flag := spec.ValueVariant(name, spec.StripQuotesAndUnescape(value), false, concrete)
			if err := addFlag(flag); err != nil {
				return nil, nil, err
			}
			warnIfAfterCompiler(np.ctx.Current.Value)

		case np.ctx.Accept(TokenPropagatedKeyValuePair):
			name, value, _ := strings.Cut(np.ctx.Current.Value, "==")
			concrete := strings.HasSuffix(name, ":")
			name = strings.TrimSuffix(name, ":")
			flag := spec.ValueVariant(name, spec.StripQuotesAndUnescape(value), true, concrete)
			if err := addFlag(flag); err != nil {
				return nil, nil, err
			}
			warnIfAfterCompiler(np.ctx.Current.Value)

		case np.ctx.Expect(TokenDagHash):
			if initial.AbstractHash != "" {
				return initial, warnings, nil
			}
			np.ctx.Accept(TokenDagHash)
			initial.AbstractHash = np.ctx.Current.Value[1:]
			warnIfAfterCompiler(np.ctx.Current.Value)

		default:
			return initial, warnings, nil
		}
	}
}

// parseSpecFile loads a serialized spec tree onto target in place.
func parseSpecFile(path string, target *spec.Spec) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newFileReferenceError(path)
		}
		return fmt.Errorf("open spec file: %w", err)
	}
	defer f.Close()

	var loaded *spec.Spec
	if strings.HasSuffix(path, ".json") {
		loaded, err = spec.FromJSON(f)
	} else {
		loaded, err = spec.FromYAML(f)
	}
	if err != nil {
		return err
	}
	target.Dup(loaded)
	return nil
}

// edgeAttributeParser parses the bracketed attribute block of an edge.
type edgeAttributeParser struct {
	ctx    *TokenContext
	text   string
	parser *SpecParser
}

type edgeAttributes struct {
	virtuals []string
	depflag  spec.DepFlag
	when     *spec.Spec
}

func (ep *edgeAttributeParser) parse() (edgeAttributes, error) {
	var attrs edgeAttributes
	var deptypes []string
	var whenText string

	for {
		if ep.ctx.Accept(TokenKeyValuePair) {
			name, value, _ := strings.Cut(ep.ctx.Current.Value, "=")
			name = strings.TrimSuffix(name, ":")
			values := strings.Split(strings.Trim(value, `'" `), ",")
			switch name {
			case "deptypes":
				deptypes = values
			case "virtuals":
				attrs.virtuals = append(attrs.virtuals, values...)
			case "when":
				whenText = values[0]
			default:
				msg := `the only edge attributes that are currently accepted are "deptypes", "virtuals", and "when"`
				return attrs, newParseError(msg, ep.ctx.Current, ep.text)
			}
		} else if ep.ctx.Accept(TokenEndEdgeProperties) {
			attrs.virtuals = append(attrs.virtuals, parseVirtualAssignment(ep.ctx)...)
			break
		} else {
			return attrs, newParseError("unexpected token in edge attributes", ep.ctx.Next, ep.text)
		}
	}

	if deptypes != nil {
		depflag, err := spec.CanonicalizeDeptypes(deptypes)
		if err != nil {
			return attrs, newDomainError(err, ep.ctx.Current, ep.text)
		}
		attrs.depflag = depflag
	}
	if whenText != "" {
		when, err := ParseOne(whenText, WithToolchains(ep.parser.toolchains))
		if err != nil {
			return attrs, newDomainError(err, ep.ctx.Current, ep.text)
		}
		attrs.when = when
	}
	return attrs, nil
}

// Parse returns every spec in text, in order.
func Parse(text string, opts ...Option) ([]*spec.Spec, error) {
	p, err := NewSpecParser(text, opts...)
	if err != nil {
		return nil, err
	}
	return p.AllSpecs()
}

// ParseOne parses exactly one spec from text. Trailing unparsed text and
// empty input are both errors.
func ParseOne(text string, opts ...Option) (*spec.Spec, error) {
	p, err := NewSpecParser(text, opts...)
	if err != nil {
		return nil, err
	}
	result, err := p.NextSpec(nil)
	if err != nil {
		return nil, err
	}
	if p.ctx.Next != nil {
		return nil, newParseError("expected a single spec, but got more", p.ctx.Next, text)
	}
	if result == nil {
		return nil, newParseError("expected a single spec, but got none", nil, text)
	}
	return result, nil
}
