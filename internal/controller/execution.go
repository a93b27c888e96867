package controller

import (
	"context"
	"fmt"
	"sync"

	"pipeline-builder/internal/client"
	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/common/logging"
	"pipeline-builder/internal/common/validation"
	"pipeline-builder/internal/pipeline"
)

// ExecutionState is the local state of the latest submission
type ExecutionState int

const (
	StateIdle ExecutionState = iota
	StateSubmitting
	StateSubmitted
	StateSubmitFailed
)

func (s ExecutionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	case StateSubmitFailed:
		return "submit-failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// RunAPI is the part of the backend client the execution controller uses
type RunAPI interface {
	Run(ctx context.Context, datasetID string, steps []pipeline.Step) (string, error)
	Analysis(ctx context.Context, id string) (*client.Analysis, error)
}

// Execution submits pipelines for execution. Progress after submission is
// observed with Status; the controller itself never polls.
type Execution struct {
	mu         sync.Mutex
	api        RunAPI
	state      ExecutionState
	analysisID string
	lastErr    error
	logger     logging.Logger
}

// NewExecution creates an idle execution controller
func NewExecution(api RunAPI) *Execution {
	return &Execution{
		api:    api,
		logger: logging.Component("execution"),
	}
}

// Submit starts a run of steps against datasetID and returns the analysis
// id. An empty dataset id or step list is refused before any request is
// made and leaves the state untouched.
func (e *Execution) Submit(ctx context.Context, datasetID string, steps []pipeline.Step) (string, error) {
	req := client.RunRequest{DatasetID: datasetID, PathRequest: steps}
	if err := validation.Default().Precondition(req); err != nil {
		return "", err
	}

	e.mu.Lock()
	if e.state == StateSubmitting {
		e.mu.Unlock()
		return "", errors.PreconditionError("a run is already being submitted")
	}
	e.state = StateSubmitting
	e.analysisID = ""
	e.lastErr = nil
	e.mu.Unlock()

	id, err := e.api.Run(ctx, datasetID, steps)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err != nil {
		e.state = StateSubmitFailed
		e.lastErr = err
		e.logger.WithContext(ctx).Error("Run submission failed", err,
			logging.String("dataset_id", datasetID),
			logging.Int("steps", len(steps)))
		return "", err
	}

	e.state = StateSubmitted
	e.analysisID = id
	e.logger.WithContext(ctx).Info("Run started",
		logging.String("analysis_id", id),
		logging.String("dataset_id", datasetID),
		logging.Int("steps", len(steps)))
	return id, nil
}

// State returns the current submission state
func (e *Execution) State() ExecutionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// AnalysisID returns the id of the last successful submission
func (e *Execution) AnalysisID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.analysisID
}

// Err returns the error of the last failed submission
func (e *Execution) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Status fetches the submitted run from the backend
func (e *Execution) Status(ctx context.Context) (*client.Analysis, error) {
	id := e.AnalysisID()
	if id == "" {
		return nil, errors.PreconditionError("no run has been submitted")
	}
	return e.api.Analysis(ctx, id)
}
