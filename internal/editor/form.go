package editor

import (
	"pipeline-builder/internal/common/logging"
	"pipeline-builder/internal/functions"
	"pipeline-builder/internal/pipeline"
	"pipeline-builder/internal/shape"
)

// Form binds one field per declared argument of a document step. Every
// commit is written straight back to the document. A form only writes to
// the step it was opened on: once steps are deleted or the step switches
// function, its edits are dropped.
type Form struct {
	doc    *pipeline.Document
	index  int
	layout uint64
	spec   functions.FunctionSpec
	fields map[string]Field
	logger logging.Logger
}

// NewForm renders the arguments of step index against its function's
// declaration. A step whose function is unknown gets an empty form.
func NewForm(doc *pipeline.Document, index int, reg functions.Registry, overrides *Overrides) (*Form, error) {
	layout := doc.Layout()
	step, err := doc.StepAt(layout, index)
	if err != nil {
		return nil, err
	}

	f := &Form{
		doc:    doc,
		index:  index,
		layout: layout,
		spec:   reg[step.Function],
		fields: make(map[string]Field),
		logger: logging.Component("editor"),
	}

	for _, arg := range f.spec.Args {
		name := arg.Name
		s := arg.Shape()
		ctx := Context{Function: step.Function, Argument: name, Overrides: overrides}
		f.fields[name] = Render(s, currentValue(step, arg, s), func(v interface{}) {
			if err := doc.SetArgAt(layout, index, name, v); err != nil {
				f.logger.Warn("dropping edit for a step that moved or changed function",
					logging.Int("step", index), logging.String("argument", name), logging.Err(err))
			}
		}, ctx)
	}
	return f, nil
}

// Names lists the bound arguments in declaration order
func (f *Form) Names() []string {
	return f.spec.ArgNames()
}

// Field returns the editor for an argument, or nil when it is not declared
func (f *Form) Field(name string) Field {
	return f.fields[name]
}

// Refresh pushes the document's current argument values into the fields,
// for changes made outside the form such as a reset. Collection fields drop
// any uncommitted items. A form whose step moved or changed function cannot
// be refreshed; open a new one.
func (f *Form) Refresh() error {
	step, err := f.doc.StepAt(f.layout, f.index)
	if err != nil {
		return err
	}
	for _, arg := range f.spec.Args {
		field := f.fields[arg.Name]
		value := currentValue(step, arg, field.Shape())
		if r, ok := field.(reloader); ok {
			r.Reload(value)
			continue
		}
		field.Sync(value)
	}
	return nil
}

// reloader is implemented by fields that keep uncommitted state, which Sync
// preserves across echoes of their own commits
type reloader interface {
	Reload(value interface{})
}

// currentValue is the step's value, else the declared default, else an empty
// list or mapping for collection shapes
func currentValue(step pipeline.Step, arg functions.ArgumentDescriptor, s *shape.Shape) interface{} {
	if v, ok := step.Args[arg.Name]; ok && v != nil {
		return v
	}
	if arg.HasDefault() {
		return arg.Default
	}
	switch s.Kind {
	case shape.List, shape.Dict:
		return shape.EmptyValue(s)
	}
	return nil
}
