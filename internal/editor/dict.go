package editor

import (
	"reflect"

	"github.com/samber/lo"

	"pipeline-builder/internal/common/utils"
	"pipeline-builder/internal/shape"
)

type pair struct {
	key   string
	value interface{}
}

// DictField edits a string-keyed mapping as an ordered list of pairs, so
// blank and duplicate keys can exist while editing. The committed mapping
// skips blank keys and the last pair wins for a duplicated key.
type DictField struct {
	shape    *shape.Shape
	ctx      Context
	onChange OnChange

	pairs    []pair
	children []Field
	slots    []*slot

	lastEmitted interface{}
}

func newDictField(s *shape.Shape, value interface{}, onChange OnChange, ctx Context) *DictField {
	f := &DictField{shape: s, ctx: ctx, onChange: onChange}
	f.reset(toPairs(value))
	return f
}

func (f *DictField) Shape() *shape.Shape { return f.shape }

func (f *DictField) Value() interface{} {
	return committedMap(f.pairs)
}

func (f *DictField) Len() int { return len(f.pairs) }

// Key returns the key of pair i
func (f *DictField) Key(i int) string {
	if i < 0 || i >= len(f.pairs) {
		return ""
	}
	return f.pairs[i].key
}

// ValueField returns the nested editor for the value of pair i
func (f *DictField) ValueField(i int) Field {
	if i < 0 || i >= len(f.children) {
		return nil
	}
	return f.children[i]
}

// Sync re-reads the pairs when value differs from the last committed mapping
func (f *DictField) Sync(value interface{}) {
	if f.lastEmitted != nil && reflect.DeepEqual(value, f.lastEmitted) {
		return
	}
	f.reset(toPairs(value))
}

// Reload replaces the pairs with value unconditionally, discarding pairs
// with blank keys that were never committed
func (f *DictField) Reload(value interface{}) {
	f.lastEmitted = nil
	f.reset(toPairs(value))
}

// AddPair appends a pair with a blank key and the value shape's empty value.
// A blank key is never committed, so nothing is emitted.
func (f *DictField) AddPair() int {
	value := shape.EmptyValue(f.shape.Value)
	f.pairs = append(f.pairs, pair{value: value})
	f.newChild(len(f.pairs)-1, value)
	return len(f.pairs) - 1
}

// SetKey renames pair i and commits
func (f *DictField) SetKey(i int, key string) {
	if i < 0 || i >= len(f.pairs) {
		return
	}
	f.pairs[i].key = key
	f.emit()
}

// RemovePair drops pair i and commits
func (f *DictField) RemovePair(i int) {
	if i < 0 || i >= len(f.pairs) {
		return
	}

	f.pairs = append(f.pairs[:i], f.pairs[i+1:]...)
	f.children = append(f.children[:i], f.children[i+1:]...)
	f.slots = append(f.slots[:i], f.slots[i+1:]...)
	for j := i; j < len(f.slots); j++ {
		f.slots[j].index = j
	}
	f.emit()
}

func (f *DictField) updateValue(i int, value interface{}) {
	if i < 0 || i >= len(f.pairs) {
		return
	}
	f.pairs[i].value = value
	f.emit()
}

func (f *DictField) emit() {
	committed := committedMap(f.pairs)
	f.lastEmitted = utils.DeepCopy(committed)
	f.onChange(committed)
}

func (f *DictField) reset(pairs []pair) {
	f.pairs = pairs
	f.children = make([]Field, 0, len(pairs))
	f.slots = make([]*slot, 0, len(pairs))
	for i, p := range pairs {
		f.newChild(i, p.value)
	}
}

func (f *DictField) newChild(i int, value interface{}) {
	s := &slot{index: i}
	child := Render(f.shape.Value, value, func(v interface{}) {
		f.updateValue(s.index, v)
	}, f.ctx)

	f.slots = append(f.slots, s)
	f.children = append(f.children, child)
}

func committedMap(pairs []pair) map[string]interface{} {
	kept := lo.Filter(pairs, func(p pair, _ int) bool {
		return p.key != ""
	})
	return lo.Reduce(kept, func(acc map[string]interface{}, p pair, _ int) map[string]interface{} {
		acc[p.key] = p.value
		return acc
	}, map[string]interface{}{})
}
