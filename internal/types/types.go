// Package types keeps the named resource types that can be managed.
// Types are declared with a Definition and may derive from a parent, in
// which case they inherit the parent's namevar, parameters and
// properties.
package types

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Name is the canonical form of a type name: trimmed and lower case.
type Name string

// Normalize returns the canonical form of s.
func Normalize(s string) Name {
	return Name(strings.ToLower(strings.TrimSpace(s)))
}

// Definition customizes a type.
type Definition struct {
	Doc string

	// Namevar is the attribute that identifies an instance. Inherited
	// from the parent when empty.
	Namevar string

	// Parameters and Properties are added to the parent's.
	Parameters []string
	Properties []string

	// Validate checks an instance's attributes. It runs after the
	// parent's validation.
	Validate func(attrs map[string]any) error
}

// Type is an immutable registered type.
type Type struct {
	name   Name
	parent *Type
	def    Definition
}

// Root is the type every other type derives from.
var Root = &Type{
	name: "type",
	def: Definition{
		Doc:        "The root of all types.",
		Namevar:    "name",
		Parameters: []string{"name"},
	},
}

func (t *Type) Name() Name     { return t.name }
func (t *Type) Parent() *Type  { return t.parent }
func (t *Type) Doc() string    { return t.def.Doc }
func (t *Type) String() string { return string(t.name) }

// Namevar returns the nearest namevar declared by t or its ancestors.
func (t *Type) Namevar() string {
	for c := t; c != nil; c = c.parent {
		if c.def.Namevar != "" {
			return c.def.Namevar
		}
	}
	return ""
}

// Parameters returns the parameters of t's ancestors followed by t's
// own, without duplicates.
func (t *Type) Parameters() []string {
	return t.collect(func(d Definition) []string { return d.Parameters })
}

// Properties returns the properties of t's ancestors followed by t's
// own, without duplicates.
func (t *Type) Properties() []string {
	return t.collect(func(d Definition) []string { return d.Properties })
}

func (t *Type) collect(field func(Definition) []string) []string {
	var chain []*Type
	for c := t; c != nil; c = c.parent {
		chain = append(chain, c)
	}
	seen := make(map[string]struct{})
	var out []string
	for i := len(chain) - 1; i >= 0; i-- {
		for _, v := range field(chain[i].def) {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// IsA reports whether t is the type called name or derives from it.
func (t *Type) IsA(name string) bool {
	n := Normalize(name)
	for c := t; c != nil; c = c.parent {
		if c.name == n {
			return true
		}
	}
	return false
}

// UnknownAttributeError is returned by Validate for an attribute that is
// neither a parameter nor a property of the type.
type UnknownAttributeError struct {
	Type      Name
	Attribute string
}

// Error implements the error interface.
func (e UnknownAttributeError) Error() string {
	return fmt.Sprintf("type %s has no attribute %s", e.Type, e.Attribute)
}

// MissingNamevarError is returned by Validate when the namevar is unset.
type MissingNamevarError struct {
	Type    Name
	Namevar string
}

// Error implements the error interface.
func (e MissingNamevarError) Error() string {
	return fmt.Sprintf("type %s requires %s", e.Type, e.Namevar)
}

// Validate checks attrs against t: every attribute must be known, the
// namevar must be set and each Definition.Validate from the root down
// must pass.
func (t *Type) Validate(attrs map[string]any) error {
	known := make(map[string]struct{})
	for _, a := range t.Parameters() {
		known[a] = struct{}{}
	}
	for _, a := range t.Properties() {
		known[a] = struct{}{}
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := known[k]; !ok {
			return UnknownAttributeError{Type: t.name, Attribute: k}
		}
	}

	if nv := t.Namevar(); nv != "" {
		if _, ok := attrs[nv]; !ok {
			return MissingNamevarError{Type: t.name, Namevar: nv}
		}
	}

	var chain []*Type
	for c := t; c != nil; c = c.parent {
		chain = append(chain, c)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		if v := chain[i].def.Validate; v != nil {
			if err := v(attrs); err != nil {
				return fmt.Errorf("%s: %w", t.name, err)
			}
		}
	}
	return nil
}

// Registry maps names to types. The zero value is ready to use and safe
// for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[Name]*Type
}

// Register creates a type called name derived from parent, or from Root
// if parent is nil, stores it under its normalized name, replacing any
// earlier registration, and returns it. def's slices are copied.
func (r *Registry) Register(name string, parent *Type, def Definition) *Type {
	if parent == nil {
		parent = Root
	}
	def.Parameters = append([]string(nil), def.Parameters...)
	def.Properties = append([]string(nil), def.Properties...)

	t := &Type{name: Normalize(name), parent: parent, def: def}

	r.mu.Lock()
	if r.types == nil {
		r.types = make(map[Name]*Type)
	}
	r.types[t.name] = t
	r.mu.Unlock()

	slog.Debug("registered type", "type", string(t.name), "parent", string(parent.name))
	return t
}

// Lookup returns the type registered under name.
func (r *Registry) Lookup(name string) (*Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.types == nil {
		return nil, false
	}
	t, ok := r.types[Normalize(name)]
	return t, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]Name, 0, len(r.types))
	for n := range r.types {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
