// Package editor is a headless, recursive argument editor. Render builds a
// Field for a shape and a current value; every interaction is a method call
// on the field, and every committed change is pushed to the OnChange
// callback straight away so the pipeline document stays the only source of
// truth.
//
// Fields never fail: unparsable numbers commit nil, blank list items are
// dropped from the committed list and dict pairs with blank keys are left out
// of the committed mapping.
package editor

import (
	"fmt"
	"reflect"
	"sort"

	"pipeline-builder/internal/shape"
)

// OnChange receives the committed value after each edit
type OnChange func(value interface{})

// Context identifies the function argument a field edits. Nested fields
// inherit it from their parent.
type Context struct {
	Function  string
	Argument  string
	Overrides *Overrides
}

// Field is one rendered editor
type Field interface {
	// Shape is the shape the field was rendered for
	Shape() *shape.Shape
	// Value is the value the field currently commits
	Value() interface{}
	// Sync applies an external change to the field's value
	Sync(value interface{})
}

// Render builds the field for s. A nil shape renders as Text.
func Render(s *shape.Shape, value interface{}, onChange OnChange, ctx Context) Field {
	s = shape.OrText(s)
	if onChange == nil {
		onChange = func(interface{}) {}
	}

	switch s.Kind {
	case shape.Number:
		return newNumberField(s, value, onChange)
	case shape.Boolean:
		return newBooleanField(s, value, onChange)
	case shape.List:
		return newListField(s, value, onChange, ctx)
	case shape.Dict:
		return newDictField(s, value, onChange, ctx)
	default:
		return newTextField(s, value, onChange)
	}
}

// toSlice reads any slice as []interface{}; anything else is an empty list
func toSlice(value interface{}) []interface{} {
	if typed, ok := value.([]interface{}); ok {
		out := make([]interface{}, len(typed))
		copy(out, typed)
		return out
	}

	out := []interface{}{}
	if value == nil {
		return out
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return out
	}
	for i := 0; i < rv.Len(); i++ {
		out = append(out, rv.Index(i).Interface())
	}
	return out
}

// toPairs reads any map as key-sorted pairs; anything else has no pairs
func toPairs(value interface{}) []pair {
	if value == nil {
		return nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Map {
		return nil
	}

	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, pair{
			key:   fmt.Sprint(iter.Key().Interface()),
			value: iter.Value().Interface(),
		})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].key < pairs[j].key
	})
	return pairs
}
