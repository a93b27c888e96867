// Package shape infers editor shapes for function arguments from their loose
// type hints and default values.
//
// Inference is total: every descriptor maps to exactly one of the five kinds,
// and unrecognised hints fall back to Text. Nested list and dict shapes are
// derived from the first element of the default only, so heterogeneous
// collections are inferred from whatever happens to come first.
package shape

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
)

// Kind tags an editor shape
type Kind int

const (
	Text Kind = iota
	Number
	Boolean
	List
	Dict
)

var kindNames = map[Kind]string{
	Text:    "text",
	Number:  "number",
	Boolean: "boolean",
	List:    "list",
	Dict:    "dict",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Shape is a node of the editor shape tree. Item is set for lists and
// Key/Value for dicts; a nil nested shape means the element type is not
// known yet and is edited as Text.
type Shape struct {
	Kind  Kind
	Item  *Shape
	Key   *Shape
	Value *Shape

	// Hint is the inner type token when the shape was seeded from a
	// bracketed hint such as list[int], empty otherwise.
	Hint string
}

// Descriptor is the part of an argument declaration inference looks at
type Descriptor struct {
	Type    string
	Default interface{}
}

var bracketedList = regexp.MustCompile(`list\[(.*)\]`)

// Infer maps a descriptor to its editor shape. Precedence, first match wins:
// sequence default or list/array hint, mapping default or dict/mapping/json
// hint, numeric default or int/float/number hint, bool default or bool hint,
// then Text.
func Infer(d Descriptor) *Shape {
	hint := strings.ToLower(d.Type)
	def := d.Default

	if isSequence(def) || strings.Contains(hint, "list") || strings.Contains(hint, "array") {
		s := &Shape{Kind: List}
		if first, ok := firstElement(def); ok {
			s.Item = Infer(Descriptor{Default: first})
		} else if m := bracketedList.FindStringSubmatch(hint); m != nil {
			s.Item = Infer(Descriptor{Type: m[1]})
			s.Item.Hint = m[1]
		}
		return s
	}

	if isMapping(def) || strings.Contains(hint, "dict") || strings.Contains(hint, "mapping") || strings.Contains(hint, "json") {
		s := &Shape{Kind: Dict, Key: &Shape{Kind: Text}}
		if first, ok := firstEntryValue(def); ok {
			s.Value = Infer(Descriptor{Default: first})
		}
		return s
	}

	if isNumeric(def) || strings.Contains(hint, "int") || strings.Contains(hint, "float") || strings.Contains(hint, "number") {
		return &Shape{Kind: Number}
	}

	if isBool(def) || strings.Contains(hint, "bool") {
		return &Shape{Kind: Boolean}
	}

	return &Shape{Kind: Text}
}

// EmptyValue is the value a fresh editor of this shape starts from. A nil
// shape is treated as Text.
func EmptyValue(s *Shape) interface{} {
	if s == nil {
		return ""
	}
	switch s.Kind {
	case List:
		return []interface{}{}
	case Dict:
		return map[string]interface{}{}
	case Number:
		return float64(0)
	case Boolean:
		return false
	default:
		return ""
	}
}

// OrText returns s, or a Text shape when s is unknown
func OrText(s *Shape) *Shape {
	if s == nil {
		return &Shape{Kind: Text}
	}
	return s
}

// String renders the shape tree, e.g. list[dict[text]number]. Unknown
// nested shapes print as "?".
func (s *Shape) String() string {
	if s == nil {
		return "?"
	}
	switch s.Kind {
	case List:
		return "list[" + s.Item.String() + "]"
	case Dict:
		return "dict[" + OrText(s.Key).String() + "]" + s.Value.String()
	default:
		return s.Kind.String()
	}
}

// Equal reports whether two shape trees have the same structure
func (s *Shape) Equal(other *Shape) bool {
	if s == nil || other == nil {
		return s == nil && other == nil
	}
	if s.Kind != other.Kind {
		return false
	}
	return s.Item.Equal(other.Item) && s.Value.Equal(other.Value)
}

func isSequence(v interface{}) bool {
	if v == nil {
		return false
	}
	kind := reflect.TypeOf(v).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

func isMapping(v interface{}) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Map
}

func isNumeric(v interface{}) bool {
	if v == nil {
		return false
	}
	if _, ok := v.(json.Number); ok {
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isBool(v interface{}) bool {
	_, ok := v.(bool)
	return ok
}

func firstElement(v interface{}) (interface{}, bool) {
	if !isSequence(v) {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Len() == 0 {
		return nil, false
	}
	return rv.Index(0).Interface(), true
}

// firstEntryValue picks the entry with the smallest key so inference does not
// depend on map iteration order
func firstEntryValue(v interface{}) (interface{}, bool) {
	if !isMapping(v) {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Len() == 0 {
		return nil, false
	}

	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	return rv.MapIndex(keys[0]).Interface(), true
}
