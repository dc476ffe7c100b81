package spec

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// specfileNode is the serialized form of a spec tree, shared between the
// JSON and YAML specfile formats.
type specfileNode struct {
	Name         string            `json:"name,omitempty" yaml:"name,omitempty"`
	Namespace    string            `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Versions     []string          `json:"versions,omitempty" yaml:"versions,omitempty"`
	Variants     []specfileVariant `json:"variants,omitempty" yaml:"variants,omitempty"`
	Hash         string            `json:"hash,omitempty" yaml:"hash,omitempty"`
	Concrete     bool              `json:"concrete,omitempty" yaml:"concrete,omitempty"`
	Dependencies []specfileEdge    `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

type specfileVariant struct {
	Name      string `json:"name" yaml:"name"`
	Boolean   bool   `json:"boolean,omitempty" yaml:"boolean,omitempty"`
	BoolValue bool   `json:"bool_value,omitempty" yaml:"bool_value,omitempty"`
	Value     string `json:"value,omitempty" yaml:"value,omitempty"`
	Propagate bool   `json:"propagate,omitempty" yaml:"propagate,omitempty"`
	Concrete  bool   `json:"concrete,omitempty" yaml:"concrete,omitempty"`
}

type specfileEdge struct {
	Spec     specfileNode `json:"spec" yaml:"spec"`
	Direct   bool         `json:"direct,omitempty" yaml:"direct,omitempty"`
	Deptypes []string     `json:"deptypes,omitempty" yaml:"deptypes,omitempty"`
	Virtuals []string     `json:"virtuals,omitempty" yaml:"virtuals,omitempty"`
	When     string       `json:"when,omitempty" yaml:"when,omitempty"`
}

// specfile wraps the root node so specfiles are self-describing.
type specfile struct {
	Spec specfileNode `json:"spec" yaml:"spec"`
}

func (s *Spec) toNode() specfileNode {
	node := specfileNode{
		Name:      s.Name,
		Namespace: s.Namespace,
		Hash:      s.AbstractHash,
		Concrete:  s.Concrete,
	}
	for _, v := range s.Versions.Versions() {
		node.Versions = append(node.Versions, v.String())
	}
	for _, name := range s.Variants.Names() {
		v, _ := s.Variants.Get(name)
		node.Variants = append(node.Variants, specfileVariant{
			Name:      v.Name,
			Boolean:   v.Boolean,
			BoolValue: v.BoolValue,
			Value:     v.Value,
			Propagate: v.Propagate,
			Concrete:  v.Concrete,
		})
	}
	for _, edge := range s.Edges {
		se := specfileEdge{
			Spec:     edge.Spec.toNode(),
			Direct:   edge.Direct,
			Deptypes: edge.DepFlag.Types(),
			Virtuals: edge.Virtuals,
		}
		if edge.When != nil {
			se.When = edge.When.String()
		}
		node.Dependencies = append(node.Dependencies, se)
	}
	return node
}

// specFromString rebuilds a "when" condition from its serialized literal
// form. It is injected by the parser package to avoid an import cycle;
// until the parser registers itself, conditions load as opaque anonymous
// specs.
var specFromString = func(text string) (*Spec, error) {
	s := New()
	return s, nil
}

// RegisterParser installs the spec-literal parsing function used to
// rebuild "when" conditions from serialized specfiles.
func RegisterParser(parse func(text string) (*Spec, error)) {
	specFromString = parse
}

func (n specfileNode) toSpec(target *Spec) error {
	target.Name = n.Name
	target.Namespace = n.Namespace
	target.AbstractHash = n.Hash
	target.Concrete = n.Concrete
	target.Versions = VersionList{}
	for _, raw := range n.Versions {
		target.Versions.items = append(target.Versions.items, NewVersion(raw))
	}
	target.Variants = VariantMap{}
	for _, v := range n.Variants {
		err := target.Variants.Add(Variant{
			Name:      v.Name,
			Boolean:   v.Boolean,
			BoolValue: v.BoolValue,
			Value:     v.Value,
			Propagate: v.Propagate,
			Concrete:  v.Concrete,
		})
		if err != nil {
			return err
		}
	}
	target.Edges = nil
	for _, se := range n.Dependencies {
		depflag, err := CanonicalizeDeptypes(se.Deptypes)
		if err != nil {
			return err
		}
		child := New()
		if err := se.Spec.toSpec(child); err != nil {
			return err
		}
		edge := DependencySpec{
			Spec:     child,
			Direct:   se.Direct,
			Virtuals: se.Virtuals,
			DepFlag:  depflag,
		}
		if se.When != "" {
			when, err := specFromString(se.When)
			if err != nil {
				return fmt.Errorf("invalid when condition %q: %w", se.When, err)
			}
			edge.When = when
		}
		target.Edges = append(target.Edges, &edge)
	}
	return nil
}

// FromJSON loads a spec tree from a JSON specfile.
func FromJSON(r io.Reader) (*Spec, error) {
	var file specfile
	dec := json.NewDecoder(r)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("read JSON specfile: %w", err)
	}
	out := New()
	if err := file.Spec.toSpec(out); err != nil {
		return nil, err
	}
	return out, nil
}

// FromYAML loads a spec tree from a YAML specfile.
func FromYAML(r io.Reader) (*Spec, error) {
	var file specfile
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("read YAML specfile: %w", err)
	}
	out := New()
	if err := file.Spec.toSpec(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ToJSON writes the spec tree as a JSON specfile.
func (s *Spec) ToJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(specfile{Spec: s.toNode()})
}

// ToYAML writes the spec tree as a YAML specfile.
func (s *Spec) ToYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(specfile{Spec: s.toNode()})
}
