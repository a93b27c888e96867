package controller

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"pipeline-builder/internal/client"
	"pipeline-builder/internal/common/logging"
	"pipeline-builder/internal/editor"
	"pipeline-builder/internal/functions"
	"pipeline-builder/internal/pipeline"
)

// API is everything the session needs from the backend; *client.Client
// implements it
type API interface {
	RunAPI
	GraphAPI
	DatasetAPI
	AnalysisAPI
	Functions(ctx context.Context) (functions.Registry, error)
	RefreshFunctions(ctx context.Context) (functions.Registry, error)
}

// SessionOptions configure a Session
type SessionOptions struct {
	SaveRefreshDelay time.Duration
	Monitor          MonitorOptions
	Confirmer        Confirmer
	Notifier         Notifier
	Overrides        *editor.Overrides
}

// Session is one editing session: a pipeline document plus the
// controllers around it
type Session struct {
	Document  *pipeline.Document
	Datasets  *Datasets
	Analyses  *AnalysisMonitor
	Graphs    *SavedGraphs
	Execution *Execution

	api       API
	overrides *editor.Overrides
	mu        sync.RWMutex
	registry  functions.Registry
	logger    logging.Logger
}

// NewSession creates a session with an empty document
func NewSession(api API, opts SessionOptions) *Session {
	overrides := opts.Overrides
	if overrides == nil {
		overrides = editor.DefaultOverrides()
	}
	return &Session{
		Document:  pipeline.NewDocument(pipeline.DefaultName),
		Datasets:  NewDatasets(api, opts.Confirmer, opts.Notifier),
		Analyses:  NewAnalysisMonitor(api, opts.Monitor),
		Graphs:    NewSavedGraphs(api, opts.SaveRefreshDelay),
		Execution: NewExecution(api),
		api:       api,
		overrides: overrides,
		registry:  functions.Registry{},
		logger:    logging.Component("session"),
	}
}

// Load fetches the analyses, the selected dataset's preview, the function
// registry and the saved graphs concurrently. Each fetch applies on its
// own; failures are logged and returned joined.
func (s *Session) Load(ctx context.Context) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	record := func(what string, err error) {
		if err == nil {
			return
		}
		s.logger.WithContext(ctx).Warn("Session load step failed",
			logging.String("step", what), logging.Err(err))
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	var g errgroup.Group
	g.Go(func() error {
		record("analyses", s.Analyses.Refresh(ctx))
		return nil
	})
	g.Go(func() error {
		_, err := s.Datasets.List(ctx)
		if err == nil {
			if id, _ := s.Datasets.Selected(); id != "" {
				_, err = s.Datasets.Select(ctx, id)
			}
		}
		record("datasets", err)
		return nil
	})
	g.Go(func() error {
		reg, err := s.api.Functions(ctx)
		if err == nil {
			s.setRegistry(reg)
		}
		record("functions", err)
		return nil
	})
	g.Go(func() error {
		_, err := s.Graphs.List(ctx)
		record("saved graphs", err)
		return nil
	})
	_ = g.Wait()

	return stderrors.Join(errs...)
}

// Registry returns the loaded function registry
func (s *Session) Registry() functions.Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry
}

func (s *Session) setRegistry(reg functions.Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = reg
}

// ReloadFunctions bypasses the registry cache
func (s *Session) ReloadFunctions(ctx context.Context) (functions.Registry, error) {
	reg, err := s.api.RefreshFunctions(ctx)
	if err != nil {
		return nil, err
	}
	s.setRegistry(reg)
	return reg, nil
}

// SelectFunction switches step index to fn with a fresh argument template
func (s *Session) SelectFunction(index int, fn string) error {
	return s.Document.SelectFunction(index, fn, s.Registry())
}

// Form binds an argument form to step index
func (s *Session) Form(index int) (*editor.Form, error) {
	return editor.NewForm(s.Document, index, s.Registry(), s.overrides)
}

// Run submits the document's steps against the selected dataset
func (s *Session) Run(ctx context.Context) (string, error) {
	datasetID, _ := s.Datasets.Selected()
	return s.Execution.Submit(ctx, datasetID, s.Document.Steps())
}

// Save stores the document under its current name
func (s *Session) Save(ctx context.Context) (string, error) {
	return s.Graphs.Save(ctx, s.Document.Name(), s.Document.Steps())
}

// Open loads a saved graph into the document
func (s *Session) Open(ctx context.Context, graphID string) error {
	_, err := s.Graphs.Load(ctx, graphID, s.Document)
	return err
}

// Close stops background work
func (s *Session) Close() {
	s.Analyses.Stop()
	s.Graphs.Close()
}

var _ API = (*client.Client)(nil)
