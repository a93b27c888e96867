// Package pipeline holds the in-editor pipeline document: an ordered list of
// function steps, each with its argument bag and named input/output frames.
package pipeline

import (
	"fmt"

	"pipeline-builder/internal/common/utils"
)

const (
	// DefaultName is the name a fresh document starts with
	DefaultName = "Untitled Graph"
	// StartingFrame is the dataframe name the backend binds the dataset to
	StartingFrame = "starting_df"
)

// Step is one pipeline stage. Args keys are the selected function's argument
// names once a template has been applied.
type Step struct {
	Function     string                 `json:"function" yaml:"function" validate:"notblank"`
	Args         map[string]interface{} `json:"args" yaml:"args"`
	InputDFName  string                 `json:"input_df_name" yaml:"input_df_name" validate:"notblank"`
	OutputDFName string                 `json:"output_df_name" yaml:"output_df_name" validate:"notblank"`
}

// NewStep returns the step appended by "add step" when the document already
// holds n steps
func NewStep(n int) Step {
	return Step{
		Function:     "",
		Args:         map[string]interface{}{},
		InputDFName:  StartingFrame,
		OutputDFName: fmt.Sprintf("output_%d", n),
	}
}

// Clone returns a copy sharing no argument state with s
func (s Step) Clone() Step {
	s.Args = utils.DeepCopyMap(s.Args)
	return s
}

// StepUpdate is a partial step edit. Nil fields are left alone; a non-nil
// Args replaces the whole argument bag.
type StepUpdate struct {
	Function     *string
	Args         map[string]interface{}
	InputDFName  *string
	OutputDFName *string
}

func (u StepUpdate) apply(s Step) Step {
	if u.Function != nil {
		s.Function = *u.Function
	}
	if u.Args != nil {
		s.Args = utils.DeepCopyMap(u.Args)
	}
	if u.InputDFName != nil {
		s.InputDFName = *u.InputDFName
	}
	if u.OutputDFName != nil {
		s.OutputDFName = *u.OutputDFName
	}
	return s
}

// Pipeline is a named, ordered sequence of steps. Order is execution order.
type Pipeline struct {
	Name  string `json:"name" yaml:"name" validate:"notblank"`
	Steps []Step `json:"steps" yaml:"steps" validate:"min=1,dive"`
}

// Clone returns a detached copy of p
func (p Pipeline) Clone() Pipeline {
	steps := make([]Step, len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = s.Clone()
	}
	return Pipeline{Name: p.Name, Steps: steps}
}
