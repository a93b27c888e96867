package editor

import (
	"reflect"

	"github.com/samber/lo"

	"pipeline-builder/internal/common/utils"
	"pipeline-builder/internal/shape"
)

// ListField edits an ordered sequence. Items live in a local buffer that may
// hold blank entries while the user is typing; the committed list never does.
type ListField struct {
	shape    *shape.Shape
	ctx      Context
	onChange OnChange

	items    []interface{}
	children []Field
	slots    []*slot

	lastEmitted interface{}
}

// slot keeps a child's position current after earlier items are removed
type slot struct {
	index int
}

func newListField(s *shape.Shape, value interface{}, onChange OnChange, ctx Context) *ListField {
	f := &ListField{shape: s, ctx: ctx, onChange: onChange}
	f.reset(toSlice(value))
	return f
}

func (f *ListField) Shape() *shape.Shape { return f.shape }

// Value is the committed list: the buffer without blank entries
func (f *ListField) Value() interface{} {
	return committedList(f.items)
}

// Items returns a copy of the buffer, blanks included
func (f *ListField) Items() []interface{} {
	return append([]interface{}(nil), f.items...)
}

func (f *ListField) Len() int { return len(f.items) }

// Item returns the nested editor for position i, or nil when out of range
func (f *ListField) Item(i int) Field {
	if i < 0 || i >= len(f.children) {
		return nil
	}
	return f.children[i]
}

// Sync re-mirrors the buffer when value differs from what this field last
// committed. Echoes of its own commits keep in-progress blank items.
func (f *ListField) Sync(value interface{}) {
	if f.lastEmitted != nil && reflect.DeepEqual(value, f.lastEmitted) {
		return
	}
	f.reset(toSlice(value))
}

// Reload replaces the items with value unconditionally, discarding blank
// items that were never committed
func (f *ListField) Reload(value interface{}) {
	f.lastEmitted = nil
	f.reset(toSlice(value))
}

// Add appends a new item and returns its editor. The item starts from the
// argument's override factory when one is registered, otherwise from the
// item shape's empty value. Nothing is committed until the item is edited.
func (f *ListField) Add() Field {
	var item interface{}
	if factory, ok := f.ctx.Overrides.Lookup(f.ctx.Function, f.ctx.Argument); ok {
		item = factory()
	} else {
		item = shape.EmptyValue(f.shape.Item)
	}

	f.items = append(f.items, item)
	child := f.newChild(len(f.items)-1, item)
	return child
}

// Remove drops item i and commits the remaining items
func (f *ListField) Remove(i int) {
	if i < 0 || i >= len(f.items) {
		return
	}

	f.items = append(f.items[:i], f.items[i+1:]...)
	f.children = append(f.children[:i], f.children[i+1:]...)
	f.slots = append(f.slots[:i], f.slots[i+1:]...)
	for j := i; j < len(f.slots); j++ {
		f.slots[j].index = j
	}
	f.emit()
}

func (f *ListField) update(i int, value interface{}) {
	if i < 0 || i >= len(f.items) {
		return
	}
	f.items[i] = value
	f.emit()
}

func (f *ListField) emit() {
	committed := committedList(f.items)
	f.lastEmitted = utils.DeepCopy(committed)
	f.onChange(committed)
}

func (f *ListField) reset(items []interface{}) {
	f.items = items
	f.children = make([]Field, 0, len(items))
	f.slots = make([]*slot, 0, len(items))
	for i, item := range items {
		f.newChild(i, item)
	}
}

func (f *ListField) newChild(i int, item interface{}) Field {
	s := &slot{index: i}
	child := Render(f.shape.Item, item, func(v interface{}) {
		f.update(s.index, v)
	}, f.ctx)

	f.slots = append(f.slots, s)
	f.children = append(f.children, child)
	return child
}

func committedList(items []interface{}) []interface{} {
	return lo.Filter(items, func(item interface{}, _ int) bool {
		return !isBlank(item)
	})
}

func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
