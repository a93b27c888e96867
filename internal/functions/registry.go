// Package functions models the function registry served by the backend and
// builds default argument bags from it.
package functions

import (
	"sort"

	"github.com/samber/lo"

	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/shape"
)

// ArgumentDescriptor declares one argument of a registry function. Type is a
// free-form hint such as "list[int]" or "bool"; a JSON null default decodes
// to nil and counts as absent.
type ArgumentDescriptor struct {
	Name     string      `json:"name" yaml:"name"`
	Type     string      `json:"type,omitempty" yaml:"type,omitempty"`
	Default  interface{} `json:"default" yaml:"default"`
	Required bool        `json:"required" yaml:"required"`
}

// HasDefault reports whether a usable default was declared
func (a ArgumentDescriptor) HasDefault() bool {
	return a.Default != nil
}

// Shape infers the editor shape for this argument
func (a ArgumentDescriptor) Shape() *shape.Shape {
	return shape.Infer(shape.Descriptor{Type: a.Type, Default: a.Default})
}

// FunctionSpec is one registry entry. A nil Args means the backend could not
// describe the function's signature.
type FunctionSpec struct {
	Args []ArgumentDescriptor `json:"args" yaml:"args"`
	Doc  string               `json:"doc,omitempty" yaml:"doc,omitempty"`
}

// Arg returns the descriptor with the given name
func (f FunctionSpec) Arg(name string) (ArgumentDescriptor, bool) {
	return lo.Find(f.Args, func(a ArgumentDescriptor) bool {
		return a.Name == name
	})
}

// ArgNames lists declared argument names in declaration order
func (f FunctionSpec) ArgNames() []string {
	return lo.Map(f.Args, func(a ArgumentDescriptor, _ int) string {
		return a.Name
	})
}

// Registry maps function names to their specs, as returned by GET /functions
type Registry map[string]FunctionSpec

// Names returns the registered function names in sorted order
func (r Registry) Names() []string {
	names := lo.Keys(r)
	sort.Strings(names)
	return names
}

// Lookup returns a function spec or a not-found error
func (r Registry) Lookup(name string) (FunctionSpec, error) {
	spec, ok := r[name]
	if !ok {
		return FunctionSpec{}, errors.NotFoundError("function " + name)
	}
	return spec, nil
}
