package mockserver

import (
	"fmt"
	"time"

	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/common/logging"
)

const startingFrame = "starting_df"

// scheduleLocked arms the auto-complete timers for a new run. Caller holds s.mu.
func (s *Server) scheduleLocked(id string) {
	if s.autoComplete <= 0 {
		return
	}
	s.timers = append(s.timers,
		time.AfterFunc(s.autoComplete/2, func() { _ = s.Start(id) }),
		time.AfterFunc(s.autoComplete, func() {
			if err := s.Complete(id); err != nil {
				s.logger.Warn("Auto-complete skipped", logging.String("analysis_id", id), logging.Err(err))
			}
		}),
	)
}

// Start moves a queued run to running
func (s *Server) Start(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findAnalysis(id)
	if a == nil {
		return errors.NotFoundError("analysis " + id)
	}
	if a.status != "queued" {
		return errors.PreconditionError(fmt.Sprintf("analysis %s is %s", id, a.status))
	}
	a.status = "running"
	return nil
}

// Complete executes the run's steps. Each step copies its input frame and
// tags it with a column naming the function; every output frame becomes an
// artifact. A step reading an unknown frame fails the run.
func (s *Server) Complete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findAnalysis(id)
	if a == nil {
		return errors.NotFoundError("analysis " + id)
	}
	if a.status == "completed" || a.status == "failed" {
		return errors.PreconditionError(fmt.Sprintf("analysis %s is already %s", id, a.status))
	}
	d := s.findDataset(a.datasetID)
	if d == nil {
		s.finishLocked(a, "failed", "dataset was deleted before the run finished")
		return nil
	}

	frames := map[string]*table{startingFrame: d.data}
	artifacts := make(map[string]*table)
	for i, step := range a.path {
		function, _ := step["function"].(string)
		input, _ := step["input_df_name"].(string)
		output, _ := step["output_df_name"].(string)

		frame, ok := frames[input]
		if !ok {
			a.log = append(a.log, map[string]interface{}{"step": i, "function": function, "status": "error"})
			s.finishLocked(a, "failed", fmt.Sprintf("step %d: unknown input frame %q", i, input))
			return nil
		}

		result := frame.withColumn(fmt.Sprintf("step_%d", i), function)
		if output != "" {
			frames[output] = result
			artifacts[output] = result
		}
		a.log = append(a.log, map[string]interface{}{
			"step":           i,
			"function":       function,
			"input_df_name":  input,
			"output_df_name": output,
			"rows":           len(result.rows),
			"status":         "ok",
		})
	}

	a.artifacts = artifacts
	s.finishLocked(a, "completed", "")
	return nil
}

// Fail marks the run failed with msg
func (s *Server) Fail(id, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.findAnalysis(id)
	if a == nil {
		return errors.NotFoundError("analysis " + id)
	}
	if a.status == "completed" || a.status == "failed" {
		return errors.PreconditionError(fmt.Sprintf("analysis %s is already %s", id, a.status))
	}
	s.finishLocked(a, "failed", msg)
	return nil
}

func (s *Server) finishLocked(a *analysis, status, msg string) {
	now := s.now().UTC()
	a.status = status
	a.errMsg = msg
	a.finishedAt = &now

	s.logger.Info("Analysis finished",
		logging.String("analysis_id", a.id),
		logging.String("status", status))
}
