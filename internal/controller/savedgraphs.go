package controller

import (
	"context"
	"sort"
	"sync"
	"time"

	"pipeline-builder/internal/client"
	"pipeline-builder/internal/common/logging"
	"pipeline-builder/internal/common/validation"
	"pipeline-builder/internal/pipeline"
)

// refreshTimeout bounds the deferred list refresh after a save
const refreshTimeout = 30 * time.Second

// GraphAPI is the part of the backend client the saved-graph controller uses
type GraphAPI interface {
	SaveGraph(ctx context.Context, name string, steps []pipeline.Step) (string, error)
	ListSavedGraphs(ctx context.Context) ([]client.SavedGraphSummary, error)
	SavedGraph(ctx context.Context, id string) (*client.SavedGraph, error)
}

// SavedGraphs saves, lists and loads graphs. Each successful save schedules
// one refresh of the list after the refresh delay, since the backend may not
// list a graph right after storing it.
type SavedGraphs struct {
	mu        sync.Mutex
	api       GraphAPI
	delay     time.Duration
	summaries []client.SavedGraphSummary
	// pending holds refreshes that have not fired yet
	pending   map[uint64]*time.Timer
	nextTimer uint64
	closed    bool
	logger    logging.Logger
}

// NewSavedGraphs creates a controller that refreshes refreshDelay after a save
func NewSavedGraphs(api GraphAPI, refreshDelay time.Duration) *SavedGraphs {
	return &SavedGraphs{
		api:     api,
		delay:   refreshDelay,
		pending: make(map[uint64]*time.Timer),
		logger:  logging.Component("saved_graphs"),
	}
}

// Save stores steps under name and returns the graph id. A blank name is
// refused before any request is made.
func (s *SavedGraphs) Save(ctx context.Context, name string, steps []pipeline.Step) (string, error) {
	if err := validation.Default().Precondition(client.SaveGraphRequest{Name: name, Path: steps}); err != nil {
		return "", err
	}

	id, err := s.api.SaveGraph(ctx, name, steps)
	if err != nil {
		s.logger.WithContext(ctx).Error("Failed to save graph", err, logging.String("name", name))
		return "", err
	}

	s.logger.WithContext(ctx).Info("Graph saved",
		logging.String("graph_id", id),
		logging.String("name", name),
		logging.Int("steps", len(steps)))
	s.scheduleRefresh()
	return id, nil
}

func (s *SavedGraphs) scheduleRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	id := s.nextTimer
	s.nextTimer++
	s.pending[id] = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		delete(s.pending, id)
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		if _, err := s.List(ctx); err != nil {
			s.logger.Warn("Deferred saved-graph refresh failed", logging.Err(err))
		}
	})
}

// pendingRefreshes counts scheduled refreshes that have not fired
func (s *SavedGraphs) pendingRefreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// List fetches the summaries, most recent first, and keeps them for
// Summaries
func (s *SavedGraphs) List(ctx context.Context) ([]client.SavedGraphSummary, error) {
	summaries, err := s.api.ListSavedGraphs(ctx)
	if err != nil {
		return nil, err
	}
	sortByRecency(summaries)

	s.mu.Lock()
	s.summaries = summaries
	s.mu.Unlock()

	return append([]client.SavedGraphSummary(nil), summaries...), nil
}

// Summaries returns the last fetched list
func (s *SavedGraphs) Summaries() []client.SavedGraphSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]client.SavedGraphSummary(nil), s.summaries...)
}

// Load fetches a graph and, when doc is not nil, replaces its contents
func (s *SavedGraphs) Load(ctx context.Context, id string, doc *pipeline.Document) (pipeline.Pipeline, error) {
	graph, err := s.api.SavedGraph(ctx, id)
	if err != nil {
		return pipeline.Pipeline{}, err
	}

	p := graph.Pipeline()
	if doc != nil {
		doc.Replace(p)
	}
	s.logger.WithContext(ctx).Info("Graph loaded",
		logging.String("graph_id", id),
		logging.Int("steps", len(p.Steps)))
	return p, nil
}

// Close cancels pending refreshes
func (s *SavedGraphs) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.pending {
		t.Stop()
		delete(s.pending, id)
	}
}

// sortByRecency orders summaries newest first. Entries without a parsable
// created_at keep their server order after the dated ones.
func sortByRecency(summaries []client.SavedGraphSummary) {
	sort.SliceStable(summaries, func(i, j int) bool {
		ti, okI := parseTime(summaries[i].CreatedAt)
		tj, okJ := parseTime(summaries[j].CreatedAt)
		switch {
		case okI && okJ:
			return ti.After(tj)
		default:
			return okI && !okJ
		}
	})
}

func parseTime(value string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
