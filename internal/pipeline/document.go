package pipeline

import (
	"fmt"
	"sync"

	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/common/utils"
	"pipeline-builder/internal/common/validation"
	"pipeline-builder/internal/functions"
)

// Document owns the pipeline being edited. Steps are addressed by position;
// there is no step identity beyond the index and no reordering.
type Document struct {
	mu    sync.RWMutex
	name  string
	steps []Step
	// layout changes whenever an index may start naming a different step
	// or a step changes function
	layout uint64
}

// NewDocument creates an empty document. A blank name becomes DefaultName.
func NewDocument(name string) *Document {
	if name == "" {
		name = DefaultName
	}
	return &Document{name: name}
}

// FromPipeline creates a document holding a detached copy of p
func FromPipeline(p Pipeline) *Document {
	d := NewDocument("")
	d.Replace(p)
	return d
}

func (d *Document) Name() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.name
}

// Rename sets the pipeline name; blank names are allowed while editing
func (d *Document) Rename(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.name = name
}

func (d *Document) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.steps)
}

// Step returns a copy of the step at index
func (d *Document) Step(index int) (Step, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.checkIndex(index); err != nil {
		return Step{}, err
	}
	return d.steps[index].Clone(), nil
}

// Steps returns copies of every step in order
func (d *Document) Steps() []Step {
	return d.Snapshot().Steps
}

// Snapshot returns a detached copy of the whole pipeline
func (d *Document) Snapshot() Pipeline {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Pipeline{Name: d.name, Steps: d.steps}.Clone()
}

// Replace swaps in a detached copy of p, as when a saved graph is loaded
func (d *Document) Replace(p Pipeline) {
	copied := p.Clone()
	for i := range copied.Steps {
		if copied.Steps[i].Args == nil {
			copied.Steps[i].Args = map[string]interface{}{}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.name = copied.Name
	d.steps = copied.Steps
	d.layout++
}

// AddStep appends step and returns its index
func (d *Document) AddStep(step Step) int {
	step = step.Clone()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.steps = append(d.steps, step)
	return len(d.steps) - 1
}

// AddDefaultStep appends a blank step reading starting_df and writing
// output_<n>, where n is the number of steps before the append
func (d *Document) AddDefaultStep() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.steps = append(d.steps, NewStep(len(d.steps)))
	return len(d.steps) - 1
}

// DeleteStep removes the step at index; later steps shift down by one
func (d *Document) DeleteStep(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkIndex(index); err != nil {
		return err
	}
	d.steps = append(d.steps[:index:index], d.steps[index+1:]...)
	d.layout++
	return nil
}

// EditStep merges update into the step at index
func (d *Document) EditStep(index int, update StepUpdate) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkIndex(index); err != nil {
		return err
	}
	if update.Function != nil && *update.Function != d.steps[index].Function {
		d.layout++
	}
	d.steps[index] = update.apply(d.steps[index])
	return nil
}

// Layout identifies the current arrangement of steps. Appending a step
// keeps it; deleting a step, replacing the pipeline or switching a step's
// function moves it on.
func (d *Document) Layout() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.layout
}

// StepAt is Step for a caller that captured layout earlier. It fails with a
// precondition error once the layout has moved on.
func (d *Document) StepAt(layout uint64, index int) (Step, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.checkLayout(layout, index); err != nil {
		return Step{}, err
	}
	return d.steps[index].Clone(), nil
}

// SetArg replaces one argument value of the step at index
func (d *Document) SetArg(index int, name string, value interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkIndex(index); err != nil {
		return err
	}
	d.setArg(index, name, value)
	return nil
}

// SetArgAt is SetArg for a caller that captured layout earlier, such as an
// open editor. Nothing is written once the layout has moved on.
func (d *Document) SetArgAt(layout uint64, index int, name string, value interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.checkLayout(layout, index); err != nil {
		return err
	}
	d.setArg(index, name, value)
	return nil
}

func (d *Document) setArg(index int, name string, value interface{}) {
	args := make(map[string]interface{}, len(d.steps[index].Args)+1)
	for k, v := range d.steps[index].Args {
		args[k] = v
	}
	args[name] = utils.DeepCopy(value)
	d.steps[index].Args = args
}

// SelectFunction switches the step at index to fn and replaces its
// arguments with fn's template; nothing from the previous function survives
func (d *Document) SelectFunction(index int, fn string, reg functions.Registry) error {
	return d.EditStep(index, StepUpdate{
		Function: &fn,
		Args:     functions.BuildTemplate(fn, reg),
	})
}

// ResetArgs rebuilds the arguments of the step at index from its function's
// template
func (d *Document) ResetArgs(index int, reg functions.Registry) error {
	step, err := d.Step(index)
	if err != nil {
		return err
	}
	return d.EditStep(index, StepUpdate{Args: functions.BuildTemplate(step.Function, reg)})
}

// Validate checks the document's structure: a name, at least one step, and
// a function plus frame names on every step. Argument values are not checked.
func (d *Document) Validate() error {
	return validation.Default().Struct(d.Snapshot())
}

func (d *Document) checkLayout(layout uint64, index int) error {
	if layout != d.layout {
		return errors.PreconditionError(fmt.Sprintf("step %d changed since it was opened", index)).
			WithContext("layout", d.layout)
	}
	return d.checkIndex(index)
}

func (d *Document) checkIndex(index int) error {
	if index < 0 || index >= len(d.steps) {
		return errors.NotFoundError(fmt.Sprintf("step %d", index)).
			WithContext("steps", len(d.steps))
	}
	return nil
}
