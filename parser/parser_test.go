package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/harp-pm/harp/spec"
)

func mustParseOne(t *testing.T, text string, opts ...Option) *spec.Spec {
	t.Helper()
	s, err := ParseOne(text, opts...)
	if err != nil {
		t.Fatalf("ParseOne(%q) error: %v", text, err)
	}
	return s
}

func TestParseSimple(t *testing.T) {
	s := mustParseOne(t, "foo@1.0+bar")
	if s.Name != "foo" {
		t.Errorf("Name = %q, want %q", s.Name, "foo")
	}
	if got := s.Versions.String(); got != "1.0" {
		t.Errorf("Versions = %q, want %q", got, "1.0")
	}
	v, ok := s.Variants.Get("bar")
	if !ok {
		t.Fatal("variant bar not found")
	}
	if !v.Boolean || !v.BoolValue {
		t.Errorf("variant bar = %+v, want boolean true", v)
	}
}

func TestParseNamespace(t *testing.T) {
	s := mustParseOne(t, "builtin.mpich")
	if s.Namespace != "builtin" {
		t.Errorf("Namespace = %q, want %q", s.Namespace, "builtin")
	}
	if s.Name != "mpich" {
		t.Errorf("Name = %q, want %q", s.Name, "mpich")
	}
	if s.FullName() != "builtin.mpich" {
		t.Errorf("FullName = %q, want %q", s.FullName(), "builtin.mpich")
	}
}

func TestParseMultipleVersionsError(t *testing.T) {
	_, err := ParseOne("foo@1.0@2.0")
	if err == nil {
		t.Fatal("ParseOne() error = nil, want multiple versions error")
	}
	if !strings.Contains(err.Error(), "multiple versions") {
		t.Errorf("error = %q, want mention of multiple versions", err)
	}
}

func TestParseVariantConflict(t *testing.T) {
	_, err := ParseOne("foo +debug ~debug")
	if err == nil {
		t.Fatal("ParseOne() error = nil, want variant conflict")
	}
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if perr.Kind != ErrDomain {
		t.Errorf("Kind = %v, want ErrDomain", perr.Kind)
	}
	if !strings.Contains(err.Error(), "already set to") {
		t.Errorf("error = %q, want conflict message", err)
	}
}

func TestParseVariantForms(t *testing.T) {
	tests := []struct {
		input string
		name  string
		want  spec.Variant
	}{
		{"foo ~shared", "shared", spec.BoolVariant("shared", false, false)},
		{"foo ++shared", "shared", spec.BoolVariant("shared", true, true)},
		{"foo backend=mpi", "backend", spec.ValueVariant("backend", "mpi", false, false)},
		{"foo backend:=mpi", "backend", spec.ValueVariant("backend", "mpi", false, true)},
		{"foo backend==mpi", "backend", spec.ValueVariant("backend", "mpi", true, false)},
		{"foo backend:==mpi", "backend", spec.ValueVariant("backend", "mpi", true, true)},
		{"foo cflags='-O3 -g'", "cflags", spec.ValueVariant("cflags", "-O3 -g", false, false)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			s := mustParseOne(t, tt.input)
			got, ok := s.Variants.Get(tt.name)
			if !ok {
				t.Fatalf("variant %q not found", tt.name)
			}
			if got != tt.want {
				t.Errorf("variant = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseDependencies(t *testing.T) {
	s := mustParseOne(t, "foo ^bar@1.0 ^baz")
	if len(s.Edges) != 2 {
		t.Fatalf("len(Edges) = %d, want 2", len(s.Edges))
	}
	if s.Edges[0].Direct || s.Edges[1].Direct {
		t.Error("edges from ^ must not be direct")
	}
	if s.Edges[0].Spec.Name != "bar" || s.Edges[1].Spec.Name != "baz" {
		t.Errorf("edge names = %q, %q; want bar, baz", s.Edges[0].Spec.Name, s.Edges[1].Spec.Name)
	}
}

// "^" dependencies always attach to the root; "%" dependencies attach to
// the most recently parsed node.
func TestParseDirectEdgeAttachment(t *testing.T) {
	s := mustParseOne(t, "foo ^bar %gcc")
	if len(s.Edges) != 1 {
		t.Fatalf("len(root.Edges) = %d, want 1", len(s.Edges))
	}
	bar := s.Edges[0].Spec
	if bar.Name != "bar" {
		t.Fatalf("child = %q, want bar", bar.Name)
	}
	if len(bar.Edges) != 1 || !bar.Edges[0].Direct {
		t.Fatalf("bar.Edges = %v, want one direct edge", bar.Edges)
	}
	if bar.Edges[0].Spec.Name != "gcc" {
		t.Errorf("compiler = %q, want gcc", bar.Edges[0].Spec.Name)
	}
}

func TestParseDuplicateDependencyNames(t *testing.T) {
	s := mustParseOne(t, "foo ^bar ^bar")
	if len(s.Edges) != 2 {
		t.Fatalf("len(Edges) = %d, want 2", len(s.Edges))
	}
}

func TestParseLegacyCompilerAliases(t *testing.T) {
	tests := []struct {
		written string
		builtin string
	}{
		{"clang", "llvm"},
		{"oneapi", "intel-oneapi-compilers"},
		{"rocmcc", "llvm-amdgpu"},
		{"intel", "intel-oneapi-compilers-classic"},
		{"arm", "acfl"},
		{"fj", "fujitsu"},
		{"gcc", "gcc"},
	}
	for _, tt := range tests {
		t.Run(tt.written, func(t *testing.T) {
			s := mustParseOne(t, "foo %"+tt.written)
			if len(s.Edges) != 1 {
				t.Fatalf("len(Edges) = %d, want 1", len(s.Edges))
			}
			if got := s.Edges[0].Spec.Name; got != tt.builtin {
				t.Errorf("compiler name = %q, want %q", got, tt.builtin)
			}
		})
	}
}

// Aliasing only applies to "%" attachments, not to plain dependencies.
func TestParseNoAliasForPlainDependency(t *testing.T) {
	s := mustParseOne(t, "foo ^clang")
	if got := s.Edges[0].Spec.Name; got != "clang" {
		t.Errorf("dependency name = %q, want %q", got, "clang")
	}
}

func TestParseWarnsVariantAfterCompiler(t *testing.T) {
	p, err := NewSpecParser("foo %clang +bar")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.AllSpecs(); err != nil {
		t.Fatal(err)
	}
	warnings := p.Warnings()
	if len(warnings) != 1 {
		t.Fatalf("Warnings() = %v, want one warning", warnings)
	}
	want := "`+bar` should go before `%clang`"
	if warnings[0] != want {
		t.Errorf("warning = %q, want %q", warnings[0], want)
	}
}

// The version clause of a "%" node constrains the compiler itself, so
// it must not trigger the ordering warning. In particular the canonical
// form produced by the legacy rewriter parses silently.
func TestParseNoWarningForCompilerVersion(t *testing.T) {
	for _, text := range []string{
		"foo %gcc@12",
		"foo @3.1 +foo +baz %gcc@3.1",
	} {
		t.Run(text, func(t *testing.T) {
			p, err := NewSpecParser(text)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := p.AllSpecs(); err != nil {
				t.Fatal(err)
			}
			if warnings := p.Warnings(); len(warnings) != 0 {
				t.Errorf("Warnings() = %v, want none", warnings)
			}
		})
	}

	// variants after the compiler clause still warn
	p, err := NewSpecParser("foo %gcc@12 +bar")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.AllSpecs(); err != nil {
		t.Fatal(err)
	}
	warnings := p.Warnings()
	if len(warnings) != 1 || warnings[0] != "`+bar` should go before `%gcc`" {
		t.Errorf("Warnings() = %v, want the single ordering warning", warnings)
	}
}

func TestParseVirtualAssignmentShorthand(t *testing.T) {
	long := mustParseOne(t, "zlib ^[virtuals=c,cxx] gcc")
	short := mustParseOne(t, "zlib ^c,cxx=gcc")
	if long.String() != short.String() {
		t.Errorf("long form %q != short form %q", long.String(), short.String())
	}
	if len(short.Edges) != 1 {
		t.Fatalf("len(Edges) = %d, want 1", len(short.Edges))
	}
	edge := short.Edges[0]
	if edge.Spec.Name != "gcc" {
		t.Errorf("child = %q, want gcc", edge.Spec.Name)
	}
	if strings.Join(edge.Virtuals, ",") != "c,cxx" {
		t.Errorf("Virtuals = %v, want [c cxx]", edge.Virtuals)
	}
}

func TestParseEdgeAttributes(t *testing.T) {
	s := mustParseOne(t, "foo ^[deptypes=build,link virtuals=mpi] openmpi")
	edge := s.Edges[0]
	if got := edge.DepFlag.String(); got != "build,link" {
		t.Errorf("DepFlag = %q, want %q", got, "build,link")
	}
	if strings.Join(edge.Virtuals, ",") != "mpi" {
		t.Errorf("Virtuals = %v, want [mpi]", edge.Virtuals)
	}
}

func TestParseEdgeWhenCondition(t *testing.T) {
	s := mustParseOne(t, "foo ^[when='+mpi'] openmpi")
	edge := s.Edges[0]
	if edge.When == nil {
		t.Fatal("When = nil, want condition")
	}
	if got := edge.When.String(); got != "+mpi" {
		t.Errorf("When = %q, want %q", got, "+mpi")
	}
}

func TestParseBadEdgeAttribute(t *testing.T) {
	_, err := ParseOne("foo ^[foo=bar] baz")
	if err == nil {
		t.Fatal("ParseOne() error = nil, want edge attribute error")
	}
	if !strings.Contains(err.Error(), `"deptypes", "virtuals", and "when"`) {
		t.Errorf("error = %q, want accepted attribute list", err)
	}
}

func TestParseUnexpectedTokenInEdgeAttributes(t *testing.T) {
	_, err := ParseOne("foo ^[+bar] baz")
	if err == nil {
		t.Fatal("ParseOne() error = nil, want parse error")
	}
	if !strings.Contains(err.Error(), "unexpected token in edge attributes") {
		t.Errorf("error = %q, want edge attribute parse error", err)
	}
}

func TestParseEmptyDependency(t *testing.T) {
	_, err := ParseOne("foo ^")
	if err == nil {
		t.Fatal("ParseOne() error = nil, want parse error")
	}
	if !strings.Contains(err.Error(), "must be followed by") {
		t.Errorf("error = %q, want dangling sigil message", err)
	}
}

func TestParseAnonymousSpecs(t *testing.T) {
	s := mustParseOne(t, "+debug")
	if !s.Anonymous() {
		t.Errorf("Anonymous() = false, want true")
	}
	if got := s.String(); got != "+debug" {
		t.Errorf("String() = %q, want %q", got, "+debug")
	}

	star := mustParseOne(t, "*@1.0")
	if !star.Anonymous() {
		t.Errorf("star spec Anonymous() = false, want true")
	}
	if got := star.Versions.String(); got != "1.0" {
		t.Errorf("star spec Versions = %q, want %q", got, "1.0")
	}
}

func TestParseAbstractHash(t *testing.T) {
	s := mustParseOne(t, "foo/abc123")
	if s.AbstractHash != "abc123" {
		t.Errorf("AbstractHash = %q, want %q", s.AbstractHash, "abc123")
	}
}

func TestParseGitVersionLookup(t *testing.T) {
	s := mustParseOne(t, "foo@git.develop")
	if !s.NeedsGitLookup() {
		t.Error("NeedsGitLookup() = false, want true")
	}
	plain := mustParseOne(t, "foo@1.0")
	if plain.NeedsGitLookup() {
		t.Error("NeedsGitLookup() = true for a plain version, want false")
	}
}

func TestParseVersionRangeBeforeFlag(t *testing.T) {
	s := mustParseOne(t, "foo@3:backend=mpi")
	if got := s.Versions.String(); got != "3:" {
		t.Errorf("Versions = %q, want %q", got, "3:")
	}
	if _, ok := s.Variants.Get("backend"); !ok {
		t.Error("variant backend not found")
	}
}

func TestParseMultipleSpecs(t *testing.T) {
	specs, err := Parse("mvapich emacs@1.1.1 %gcc cflags=-O3")
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 2 {
		t.Fatalf("len(specs) = %d, want 2", len(specs))
	}
	if specs[0].Name != "mvapich" || specs[1].Name != "emacs" {
		t.Errorf("names = %q, %q; want mvapich, emacs", specs[0].Name, specs[1].Name)
	}
}

func TestNextSpecExhausted(t *testing.T) {
	p, err := NewSpecParser("foo")
	if err != nil {
		t.Fatal(err)
	}
	first, err := p.NextSpec(nil)
	if err != nil || first == nil {
		t.Fatalf("NextSpec() = %v, %v; want spec, nil", first, err)
	}
	second, err := p.NextSpec(nil)
	if err != nil {
		t.Fatal(err)
	}
	if second != nil {
		t.Errorf("NextSpec() after end = %v, want nil", second)
	}
}

func TestParseOneErrors(t *testing.T) {
	if _, err := ParseOne("foo bar"); err == nil ||
		!strings.Contains(err.Error(), "expected a single spec, but got more") {
		t.Errorf("trailing input error = %v", err)
	}
	if _, err := ParseOne(""); err == nil ||
		!strings.Contains(err.Error(), "expected a single spec, but got none") {
		t.Errorf("empty input error = %v", err)
	}
}

func TestParseToolchain(t *testing.T) {
	toolchains := Toolchains{
		"gcc12": {{Spec: "%gcc@12"}},
	}
	s := mustParseOne(t, "foo %gcc12", WithToolchains(toolchains))
	if len(s.Edges) != 1 {
		t.Fatalf("len(Edges) = %d, want 1", len(s.Edges))
	}
	edge := s.Edges[0]
	if !edge.Direct {
		t.Error("Direct = false, want true")
	}
	if edge.Spec.Name != "gcc" {
		t.Errorf("child = %q, want gcc", edge.Spec.Name)
	}
	if got := edge.Spec.Versions.String(); got != "12" {
		t.Errorf("Versions = %q, want %q", got, "12")
	}
}

func TestParseToolchainWithCondition(t *testing.T) {
	toolchains := Toolchains{
		"mixed": {{Spec: "%gcc@12", When: "+mpi"}},
	}
	s := mustParseOne(t, "foo +mpi %mixed", WithToolchains(toolchains))
	if len(s.Edges) != 1 {
		t.Fatalf("len(Edges) = %d, want 1", len(s.Edges))
	}
	when := s.Edges[0].When
	if when == nil {
		t.Fatal("When = nil, want condition")
	}
	if got := when.String(); got != "+mpi" {
		t.Errorf("When = %q, want %q", got, "+mpi")
	}
}

func TestParseToolchainRejectsTransitiveEdges(t *testing.T) {
	toolchains := Toolchains{
		"bad": {{Spec: "gcc ^zlib"}},
	}
	_, err := ParseOne("foo %bad", WithToolchains(toolchains))
	if err == nil {
		t.Fatal("ParseOne() error = nil, want toolchain error")
	}
	if !strings.Contains(err.Error(), "cannot use '^' in toolchain definitions") {
		t.Errorf("error = %q, want transitive edge rejection", err)
	}
}

// A name that is not a configured toolchain stays a package dependency.
func TestParseToolchainNameMiss(t *testing.T) {
	toolchains := Toolchains{"gcc12": {{Spec: "%gcc@12"}}}
	s := mustParseOne(t, "foo %gcc", WithToolchains(toolchains))
	if s.Edges[0].Spec.Name != "gcc" {
		t.Errorf("child = %q, want gcc", s.Edges[0].Spec.Name)
	}
}

func TestParseSpecFileReference(t *testing.T) {
	original := mustParseOne(t, "zlib@1.2.8 +shared")
	path := filepath.Join(t.TempDir(), "zlib.json")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := original.ToJSON(f); err != nil {
		t.Fatal(err)
	}
	f.Close()

	loaded := mustParseOne(t, path)
	if loaded.String() != original.String() {
		t.Errorf("loaded = %q, want %q", loaded.String(), original.String())
	}

	withDep := mustParseOne(t, "mpileaks ^"+path)
	if len(withDep.Edges) != 1 {
		t.Fatalf("len(Edges) = %d, want 1", len(withDep.Edges))
	}
	if got := withDep.Edges[0].Spec.String(); got != original.String() {
		t.Errorf("dependency = %q, want %q", got, original.String())
	}
}

func TestParseMissingSpecFile(t *testing.T) {
	_, err := ParseOne("./no-such-spec.json")
	if err == nil {
		t.Fatal("ParseOne() error = nil, want file reference error")
	}
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if perr.Kind != ErrFileReference {
		t.Errorf("Kind = %v, want ErrFileReference", perr.Kind)
	}
	want := "no such spec file: './no-such-spec.json'"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		input     string
		canonical string
	}{
		{"zlib", "zlib"},
		{"zlib@1.2.8+shared", "zlib@1.2.8 +shared"},
		{"builtin.zlib @1.2:1.4,1.6", "builtin.zlib@1.2:1.4,1.6"},
		{"foo ^bar@1.0 ^baz", "foo ^bar@1.0 ^baz"},
		{"foo %gcc@12", "foo %gcc@12"},
		{"zlib ^c,cxx=gcc", "zlib ^[virtuals=c,cxx] gcc"},
		{"foo cflags='-O3 -g'", "foo cflags='-O3 -g'"},
		{"foo/abc123", "foo/abc123"},
		{"foo@git.develop=1.0", "foo@git.develop=1.0"},
		{"foo@3:backend=mpi", "foo@3: backend=mpi"},
		{"foo ~~shared", "foo ~~shared"},
		{"%gcc", "%gcc"},
		{"foo ^[deptypes=build,link] cmake", "foo ^[deptypes=build,link] cmake"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			first := mustParseOne(t, tt.input)
			if first.String() != tt.canonical {
				t.Fatalf("String() = %q, want %q", first.String(), tt.canonical)
			}
			second := mustParseOne(t, first.String())
			if second.String() != first.String() {
				t.Errorf("reparse = %q, want %q", second.String(), first.String())
			}
		})
	}
}
