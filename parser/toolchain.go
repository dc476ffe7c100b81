package parser

import (
	"fmt"

	"github.com/harp-pm/harp/spec"
)

// A ToolchainEntry is one constraint of a toolchain definition: a spec
// literal, optionally guarded by a condition under which it applies.
type ToolchainEntry struct {
	Spec string
	When string
}

// A ToolchainProvider resolves toolchain names to their configured
// definitions. Implementations must be read-only: the parser consults
// the provider during parsing and memoizes what it expands.
type ToolchainProvider interface {
	Toolchain(name string) ([]ToolchainEntry, bool)
}

// Toolchains is a static in-memory ToolchainProvider.
type Toolchains map[string][]ToolchainEntry

func (t Toolchains) Toolchain(name string) ([]ToolchainEntry, bool) {
	entries, ok := t[name]
	return entries, ok
}

// applyToolchain expands the named toolchain and constrains target with
// it. Expansions are memoized for the lifetime of the parser.
func (p *SpecParser) applyToolchain(target *spec.Spec, name string) error {
	toolchain, ok := p.parsedToolchains[name]
	if !ok {
		var err error
		toolchain, err = p.parseToolchain(name)
		if err != nil {
			return err
		}
		p.parsedToolchains[name] = toolchain
	}
	return target.Constrain(toolchain)
}

func (p *SpecParser) parseToolchain(name string) (*spec.Spec, error) {
	entries, _ := p.toolchains.Toolchain(name)
	toolchain := spec.New()
	for _, entry := range entries {
		part, err := ParseOne(entry.Spec, WithToolchains(p.toolchains))
		if err != nil {
			return nil, fmt.Errorf("invalid spec in toolchain %q: %w", name, err)
		}
		if err := ensureAllDirectEdges(part); err != nil {
			return nil, err
		}
		if entry.When != "" {
			when, err := ParseOne(entry.When, WithToolchains(p.toolchains))
			if err != nil {
				return nil, fmt.Errorf("invalid condition in toolchain %q: %w", name, err)
			}
			// the condition applies to every edge of this entry
			for _, edge := range part.TraverseEdges() {
				if edge.When == nil {
					edge.When = when.Copy()
				} else if err := edge.When.Constrain(when); err != nil {
					return nil, err
				}
			}
		}
		if err := toolchain.Constrain(part); err != nil {
			return nil, err
		}
	}
	return toolchain, nil
}

// ensureAllDirectEdges rejects toolchain definitions that express true
// dependencies: only "%" edges are allowed.
func ensureAllDirectEdges(constraint *spec.Spec) error {
	for _, edge := range constraint.TraverseEdges() {
		if !edge.Direct {
			return fmt.Errorf("cannot use '^' in toolchain definitions, and the current toolchain contains '%s'", edge.String())
		}
	}
	return nil
}
