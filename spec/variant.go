package spec

import (
	"fmt"
	"strings"
)

// A Variant is a named build option on a spec node. Boolean variants come
// from +name/~name syntax; string variants from name=value. Propagate
// marks the value as imposed on dependencies; Concrete marks it as
// non-overridable by the concretizer.
type Variant struct {
	Name      string
	Boolean   bool
	BoolValue bool
	Value     string
	Propagate bool
	Concrete  bool
}

func BoolVariant(name string, value, propagate bool) Variant {
	return Variant{Name: name, Boolean: true, BoolValue: value, Propagate: propagate, Concrete: true}
}

func ValueVariant(name, value string, propagate, concrete bool) Variant {
	return Variant{Name: name, Value: value, Propagate: propagate, Concrete: concrete}
}

func (v Variant) equalValue(other Variant) bool {
	if v.Boolean != other.Boolean {
		return false
	}
	if v.Boolean {
		return v.BoolValue == other.BoolValue
	}
	return v.Value == other.Value
}

func (v Variant) String() string {
	if v.Boolean {
		sigil := "+"
		if !v.BoolValue {
			sigil = "~"
		}
		if v.Propagate {
			sigil += sigil
		}
		return sigil + v.Name
	}
	var b strings.Builder
	b.WriteString(v.Name)
	if v.Concrete {
		b.WriteByte(':')
	}
	b.WriteByte('=')
	if v.Propagate {
		b.WriteByte('=')
	}
	b.WriteString(QuoteIfNeeded(v.Value))
	return b.String()
}

// A VariantMap holds variants in insertion order.
type VariantMap struct {
	names  []string
	byName map[string]*Variant
}

func (m *VariantMap) Len() int {
	return len(m.names)
}

func (m *VariantMap) Names() []string {
	return m.names
}

func (m *VariantMap) Get(name string) (Variant, bool) {
	if m.byName == nil {
		return Variant{}, false
	}
	v, ok := m.byName[name]
	if !ok {
		return Variant{}, false
	}
	return *v, true
}

// Add merges a variant into the map. Re-adding the same name with the
// same value is idempotent; a different value is a conflict.
func (m *VariantMap) Add(v Variant) error {
	if m.byName == nil {
		m.byName = make(map[string]*Variant)
	}
	if existing, ok := m.byName[v.Name]; ok {
		if !existing.equalValue(v) {
			return fmt.Errorf("cannot constrain variant %q to %q: already set to %q",
				v.Name, v.valueString(), existing.valueString())
		}
		existing.Propagate = existing.Propagate || v.Propagate
		existing.Concrete = existing.Concrete || v.Concrete
		return nil
	}
	stored := v
	m.byName[v.Name] = &stored
	m.names = append(m.names, v.Name)
	return nil
}

func (v Variant) valueString() string {
	if v.Boolean {
		if v.BoolValue {
			return "true"
		}
		return "false"
	}
	return v.Value
}

func (m *VariantMap) String() string {
	var parts []string
	for _, name := range m.names {
		parts = append(parts, m.byName[name].String())
	}
	return strings.Join(parts, " ")
}

func (m *VariantMap) copyFrom(other *VariantMap) {
	m.names = nil
	m.byName = nil
	for _, name := range other.names {
		// adding into a fresh map cannot conflict
		_ = m.Add(*other.byName[name])
	}
}
