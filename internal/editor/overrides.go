package editor

import (
	"pipeline-builder/internal/common/registry"
)

// ItemFactory builds the value a new list item starts from
type ItemFactory func() interface{}

// Overrides maps (function, argument) pairs to bespoke list item factories.
// Lists consult it before falling back to the item shape's empty value.
type Overrides struct {
	factories *registry.Registry[ItemFactory]
}

// NewOverrides returns an empty table
func NewOverrides() *Overrides {
	return &Overrides{factories: registry.New[ItemFactory]()}
}

// DefaultOverrides returns a table holding the built-in entries
func DefaultOverrides() *Overrides {
	o := NewOverrides()
	o.Register("binary_classification", "questions", binaryQuestion)
	return o
}

func overrideKey(function, argument string) string {
	return function + "/" + argument
}

// Register adds or replaces the factory for an argument
func (o *Overrides) Register(function, argument string, factory ItemFactory) {
	o.factories.Register(overrideKey(function, argument), factory)
}

// Lookup finds the factory for an argument. A nil table has no entries.
func (o *Overrides) Lookup(function, argument string) (ItemFactory, bool) {
	if o == nil {
		return nil, false
	}
	return o.factories.Lookup(overrideKey(function, argument))
}

// Entries lists registered keys as "function/argument"
func (o *Overrides) Entries() []string {
	if o == nil {
		return nil
	}
	return o.factories.Names()
}

func binaryQuestion() interface{} {
	return map[string]interface{}{
		"context_prompt":      "",
		"positive_label":      "true",
		"negative_label":      "false",
		"explanation_col":     "binary_explanation",
		"label_col":           "binary_label",
		"input_data":          "call_text",
		"include_explanation": "true",
	}
}
