package editor

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"pipeline-builder/internal/shape"
)

// TextField edits a plain string
type TextField struct {
	shape    *shape.Shape
	text     string
	onChange OnChange
}

func newTextField(s *shape.Shape, value interface{}, onChange OnChange) *TextField {
	f := &TextField{shape: s, onChange: onChange}
	f.Sync(value)
	return f
}

func (f *TextField) Shape() *shape.Shape { return f.shape }

func (f *TextField) Value() interface{} { return f.text }

// Text is the displayed text
func (f *TextField) Text() string { return f.text }

func (f *TextField) Sync(value interface{}) {
	switch v := value.(type) {
	case nil:
		f.text = ""
	case string:
		f.text = v
	default:
		f.text = fmt.Sprint(v)
	}
}

// Input replaces the text and commits it
func (f *TextField) Input(text string) {
	f.text = text
	f.onChange(text)
}

// NumberField edits a float64. Text that does not parse commits nil.
type NumberField struct {
	shape    *shape.Shape
	value    interface{}
	onChange OnChange
}

func newNumberField(s *shape.Shape, value interface{}, onChange OnChange) *NumberField {
	f := &NumberField{shape: s, onChange: onChange}
	f.Sync(value)
	return f
}

func (f *NumberField) Shape() *shape.Shape { return f.shape }

func (f *NumberField) Value() interface{} { return f.value }

// Text renders the current number, or "" when unset
func (f *NumberField) Text() string {
	n, ok := f.value.(float64)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func (f *NumberField) Sync(value interface{}) {
	n, ok := toFloat(value)
	if !ok {
		f.value = nil
		return
	}
	f.value = n
}

// Input parses text and commits the number, or nil when it does not parse
func (f *NumberField) Input(text string) {
	f.value = parseNumber(text)
	f.onChange(f.value)
}

// parseNumber returns nil for anything that is not a finite number
func parseNumber(text string) interface{} {
	n, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return n
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case fmt.Stringer:
		n, ok := parseNumber(v.String()).(float64)
		return n, ok
	case string:
		n, ok := parseNumber(v).(float64)
		return n, ok
	}
	return 0, false
}

// BooleanField is tri-state while editing (unset, true, false) but only ever
// commits true or false
type BooleanField struct {
	shape    *shape.Shape
	value    interface{}
	onChange OnChange
}

func newBooleanField(s *shape.Shape, value interface{}, onChange OnChange) *BooleanField {
	f := &BooleanField{shape: s, onChange: onChange}
	f.Sync(value)
	return f
}

func (f *BooleanField) Shape() *shape.Shape { return f.shape }

func (f *BooleanField) Value() interface{} { return f.value }

// Selected returns "", "true" or "false"
func (f *BooleanField) Selected() string {
	if b, ok := f.value.(bool); ok {
		return strconv.FormatBool(b)
	}
	return ""
}

func (f *BooleanField) Sync(value interface{}) {
	if b, ok := value.(bool); ok {
		f.value = b
		return
	}
	f.value = nil
}

// Select commits "true" or "false". The unset choice and anything that is
// not a boolean leave the value alone.
func (f *BooleanField) Select(choice string) {
	b, err := strconv.ParseBool(choice)
	if err != nil {
		return
	}
	f.value = b
	f.onChange(b)
}
