// Package spec models a (possibly partial) description of a desired
// software build: a package name, version constraints, variant settings,
// and dependency edges to other specs. Parsing populates these nodes; the
// concretizer (external to this repository) turns them into concrete
// build plans.
package spec

import (
	"fmt"
	"strings"
)

// A DependencySpec is a directed edge from a parent node to a child node.
// Direct edges come from the "%" sigil and attach toolchain-style
// dependencies to the node itself; non-direct edges come from "^" and
// express true dependencies. Virtuals lists the abstract capabilities the
// child provides to the parent. When, if set, restricts the conditions
// under which the edge applies.
type DependencySpec struct {
	Spec     *Spec
	Direct   bool
	Virtuals []string
	DepFlag  DepFlag
	When     *Spec
}

func (d *DependencySpec) String() string {
	sigil := "^"
	if d.Direct {
		sigil = "%"
	}
	var attrs []string
	if d.DepFlag != 0 {
		attrs = append(attrs, "deptypes="+d.DepFlag.String())
	}
	if len(d.Virtuals) > 0 {
		attrs = append(attrs, "virtuals="+strings.Join(d.Virtuals, ","))
	}
	if d.When != nil {
		attrs = append(attrs, "when="+QuoteIfNeeded(d.When.String()))
	}
	if len(attrs) > 0 {
		return sigil + "[" + strings.Join(attrs, " ") + "] " + d.Spec.String()
	}
	return sigil + d.Spec.String()
}

// A Spec is one node in a dependency graph.
type Spec struct {
	Name         string
	Namespace    string
	Versions     VersionList
	Variants     VariantMap
	AbstractHash string
	Concrete     bool
	Edges        []*DependencySpec

	gitLookup bool
}

func New() *Spec {
	return &Spec{}
}

// Anonymous reports whether the spec carries no package name.
func (s *Spec) Anonymous() bool {
	return s.Name == ""
}

// AddFlag merges a variant onto the node.
func (s *Spec) AddFlag(v Variant) error {
	return s.Variants.Add(v)
}

// AddDependency appends an edge to the node. Multiple edges to
// same-named children are allowed at this stage; reconciling them is the
// concretizer's job.
func (s *Spec) AddDependency(child *Spec, edge DependencySpec) error {
	if s.Concrete {
		name := child.Name
		if name == "" {
			name = child.String()
		}
		return fmt.Errorf("cannot add dependency %q to the concrete spec %q", name, s.Name)
	}
	edge.Spec = child
	s.Edges = append(s.Edges, &edge)
	return nil
}

// AttachGitVersionLookup marks the node for deferred git ref resolution
// when its version constraint refers to a git ref or commit. Resolution
// happens outside the parser.
func (s *Spec) AttachGitVersionLookup() {
	if s.Versions.HasGit() {
		s.gitLookup = true
	}
}

// NeedsGitLookup reports whether a deferred git version lookup is pending.
func (s *Spec) NeedsGitLookup() bool {
	return s.gitLookup
}

// TraverseEdges returns all edges reachable from the node in depth-first
// preorder.
func (s *Spec) TraverseEdges() []*DependencySpec {
	var out []*DependencySpec
	seen := make(map[*Spec]bool)
	var walk func(*Spec)
	walk = func(node *Spec) {
		if seen[node] {
			return
		}
		seen[node] = true
		for _, edge := range node.Edges {
			out = append(out, edge)
			walk(edge.Spec)
		}
	}
	walk(s)
	return out
}

// Constrain merges the constraints of other onto the receiver. Name,
// namespace, version, variant or hash disagreements are errors; edges
// are unioned.
func (s *Spec) Constrain(other *Spec) error {
	if other == nil {
		return nil
	}
	if other.Name != "" {
		if s.Name != "" && s.Name != other.Name {
			return fmt.Errorf("cannot constrain %q by %q: names differ", s.Name, other.Name)
		}
		s.Name = other.Name
	}
	if other.Namespace != "" {
		if s.Namespace != "" && s.Namespace != other.Namespace {
			return fmt.Errorf("cannot constrain namespace %q by %q", s.Namespace, other.Namespace)
		}
		s.Namespace = other.Namespace
	}
	if !s.Versions.Intersect(other.Versions) {
		return fmt.Errorf("conflicting versions: %q and %q", s.Versions.String(), other.Versions.String())
	}
	for _, name := range other.Variants.Names() {
		v, _ := other.Variants.Get(name)
		if err := s.Variants.Add(v); err != nil {
			return err
		}
	}
	if other.AbstractHash != "" {
		if s.AbstractHash != "" && s.AbstractHash != other.AbstractHash {
			return fmt.Errorf("conflicting hashes: %q and %q", s.AbstractHash, other.AbstractHash)
		}
		s.AbstractHash = other.AbstractHash
	}
	for _, edge := range other.Edges {
		copied := *edge
		copied.Spec = edge.Spec.Copy()
		if edge.When != nil {
			copied.When = edge.When.Copy()
		}
		s.Edges = append(s.Edges, &copied)
	}
	return nil
}

// Copy returns a deep copy of the spec tree rooted at s.
func (s *Spec) Copy() *Spec {
	out := New()
	out.Dup(s)
	return out
}

// Dup replaces the receiver's contents with a deep copy of other,
// preserving the receiver's identity so callers holding the pointer see
// the substituted node.
func (s *Spec) Dup(other *Spec) {
	s.Name = other.Name
	s.Namespace = other.Namespace
	s.Versions = VersionList{}
	s.Versions.Intersect(other.Versions)
	s.Variants.copyFrom(&other.Variants)
	s.AbstractHash = other.AbstractHash
	s.Concrete = other.Concrete
	s.gitLookup = other.gitLookup
	s.Edges = nil
	for _, edge := range other.Edges {
		copied := *edge
		copied.Virtuals = append([]string(nil), edge.Virtuals...)
		copied.Spec = edge.Spec.Copy()
		if edge.When != nil {
			copied.When = edge.When.Copy()
		}
		s.Edges = append(s.Edges, &copied)
	}
}

// FullName returns the namespace-qualified package name.
func (s *Spec) FullName() string {
	if s.Namespace != "" {
		return s.Namespace + "." + s.Name
	}
	return s.Name
}

// String renders the spec in canonical literal form. Parsing the result
// yields a structurally identical spec.
func (s *Spec) String() string {
	var b strings.Builder
	b.WriteString(s.FullName())
	if !s.Versions.Empty() {
		b.WriteByte('@')
		b.WriteString(s.Versions.String())
	}
	if s.Variants.Len() > 0 {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s.Variants.String())
	}
	if s.AbstractHash != "" {
		b.WriteByte('/')
		b.WriteString(s.AbstractHash)
	}
	for _, edge := range s.Edges {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(edge.String())
	}
	return b.String()
}
