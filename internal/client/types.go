package client

import (
	"pipeline-builder/internal/pipeline"
)

// Row is one record of a dataset or artifact preview
type Row = map[string]interface{}

// Dataset is an uploaded table as listed by GET /datasets
type Dataset struct {
	ID               string `json:"id"`
	OriginalFilename string `json:"original_filename"`
	NumRows          int    `json:"num_rows,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
	Head             []Row  `json:"head,omitempty"`
}

// DatasetPreview is the full or truncated head of a dataset
type DatasetPreview struct {
	ID               string `json:"id,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
	NumRows          int    `json:"num_rows"`
	Head             []Row  `json:"head"`
}

// Ack is the body of a successful delete
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// AnalysisStatus is owned by the execution engine; the client only observes it
type AnalysisStatus string

const (
	StatusQueued    AnalysisStatus = "queued"
	StatusRunning   AnalysisStatus = "running"
	StatusCompleted AnalysisStatus = "completed"
	StatusFailed    AnalysisStatus = "failed"
)

// IsTerminal reports whether the run can no longer change
func (s AnalysisStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// AnalysisSummary is one entry of GET /analyses
type AnalysisSummary struct {
	ID           string                   `json:"id"`
	DatasetID    string                   `json:"dataset_id"`
	Status       AnalysisStatus           `json:"status"`
	ExecutionLog []map[string]interface{} `json:"execution_log,omitempty"`
	CreatedAt    string                   `json:"created_at,omitempty"`
	FinishedAt   string                   `json:"finished_at,omitempty"`
}

// Analysis is a run with its artifacts, from GET /analyses/{id}
type Analysis struct {
	AnalysisSummary
	Artifacts map[string]interface{} `json:"artifacts,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// RunRequest is the body of POST /compiler/run
type RunRequest struct {
	DatasetID   string          `json:"dataset_id" validate:"notblank"`
	PathRequest []pipeline.Step `json:"path_request" validate:"min=1"`
}

// RunResponse carries the id of the started analysis
type RunResponse struct {
	AnalysisID string `json:"analysis_id"`
}

// SavedGraphSummary is one entry of GET /saved-graphs
type SavedGraphSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// SavedGraph is a persisted pipeline, from GET /saved-graphs/{id}
type SavedGraph struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Path      []pipeline.Step `json:"path"`
	CreatedAt string          `json:"created_at,omitempty"`
}

// Pipeline returns the graph as a detached pipeline
func (g SavedGraph) Pipeline() pipeline.Pipeline {
	return pipeline.Pipeline{Name: g.Name, Steps: g.Path}.Clone()
}

// SaveGraphRequest is the body of POST /saved-graphs
type SaveGraphRequest struct {
	Name string          `json:"name" validate:"notblank"`
	Path []pipeline.Step `json:"path"`
}

// SaveGraphResponse carries the server-assigned graph id
type SaveGraphResponse struct {
	GraphID string `json:"graph_id"`
}

// UploadResponse carries the id of an uploaded dataset
type UploadResponse struct {
	Success   bool   `json:"success"`
	DatasetID string `json:"dataset_id"`
}
