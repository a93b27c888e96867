package controller

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-builder/internal/client"
	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/mockserver"
	"pipeline-builder/internal/pipeline"
)

func summaryNames(summaries []client.SavedGraphSummary) []string {
	names := make([]string, len(summaries))
	for i, s := range summaries {
		names[i] = s.Name
	}
	return names
}

func TestSavedGraphs_SaveSchedulesOneRefresh(t *testing.T) {
	backend, api := newBackend(t, mockserver.Options{})
	graphs := NewSavedGraphs(api, 20*time.Millisecond)
	defer graphs.Close()

	id, err := graphs.Save(context.Background(), "demo", twoSteps())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	// no immediate refresh
	assert.Empty(t, graphs.Summaries())

	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"demo"}, summaryNames(graphs.Summaries()))
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, backend.Requests(http.MethodGet, "/saved-graphs"))
}

func TestSavedGraphs_BlankNameRefused(t *testing.T) {
	backend, api := newBackend(t, mockserver.Options{})
	graphs := NewSavedGraphs(api, time.Hour)
	defer graphs.Close()

	_, err := graphs.Save(context.Background(), "  ", twoSteps())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypePrecondition))
	assert.Equal(t, 0, backend.Requests(http.MethodPost, "/saved-graphs"))
}

func TestSavedGraphs_RefreshFailureIsNotSurfaced(t *testing.T) {
	backend, api := newBackend(t, mockserver.Options{})
	backend.InjectFault(mockserver.Fault{Method: http.MethodGet, PathPrefix: "/saved-graphs", Status: http.StatusServiceUnavailable})
	graphs := NewSavedGraphs(api, 10*time.Millisecond)
	defer graphs.Close()

	_, err := graphs.Save(context.Background(), "demo", twoSteps())
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return backend.Requests(http.MethodGet, "/saved-graphs") == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, graphs.Summaries())
}

func TestSavedGraphs_CloseCancelsRefresh(t *testing.T) {
	backend, api := newBackend(t, mockserver.Options{})
	graphs := NewSavedGraphs(api, 30*time.Millisecond)

	_, err := graphs.Save(context.Background(), "demo", twoSteps())
	require.NoError(t, err)
	graphs.Close()

	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, backend.Requests(http.MethodGet, "/saved-graphs"))

	_, err = graphs.Save(context.Background(), "again", twoSteps())
	require.NoError(t, err)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, 0, backend.Requests(http.MethodGet, "/saved-graphs"))
}

func TestSavedGraphs_FiredRefreshesAreForgotten(t *testing.T) {
	_, api := newBackend(t, mockserver.Options{})
	graphs := NewSavedGraphs(api, 5*time.Millisecond)
	defer graphs.Close()

	for i := 0; i < 5; i++ {
		_, err := graphs.Save(context.Background(), "demo", twoSteps())
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool {
		return graphs.pendingRefreshes() == 0
	}, 2*time.Second, 5*time.Millisecond)

	slow := NewSavedGraphs(api, time.Hour)
	_, err := slow.Save(context.Background(), "later", twoSteps())
	require.NoError(t, err)
	assert.Equal(t, 1, slow.pendingRefreshes())
	slow.Close()
	assert.Equal(t, 0, slow.pendingRefreshes())
}

type staticGraphs struct {
	summaries []client.SavedGraphSummary
}

func (s staticGraphs) SaveGraph(context.Context, string, []pipeline.Step) (string, error) {
	return "g", nil
}

func (s staticGraphs) ListSavedGraphs(context.Context) ([]client.SavedGraphSummary, error) {
	return append([]client.SavedGraphSummary(nil), s.summaries...), nil
}

func (s staticGraphs) SavedGraph(context.Context, string) (*client.SavedGraph, error) {
	return nil, errors.NotFoundError("graph")
}

func TestSavedGraphs_ListOrderedByRecency(t *testing.T) {
	graphs := NewSavedGraphs(staticGraphs{summaries: []client.SavedGraphSummary{
		{ID: "1", Name: "undated"},
		{ID: "2", Name: "old", CreatedAt: "2026-01-01T10:00:00Z"},
		{ID: "3", Name: "new", CreatedAt: "2026-03-01T10:00:00.123456"},
		{ID: "4", Name: "middle", CreatedAt: "2026-02-01 10:00:00"},
	}}, time.Hour)

	summaries, err := graphs.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "middle", "old", "undated"}, summaryNames(summaries))
	assert.Equal(t, summaries, graphs.Summaries())
}

func TestSavedGraphs_LoadReplacesDocument(t *testing.T) {
	_, api := newBackend(t, mockserver.Options{})
	graphs := NewSavedGraphs(api, time.Hour)
	defer graphs.Close()

	id, err := graphs.Save(context.Background(), "demo", twoSteps())
	require.NoError(t, err)

	doc := pipeline.NewDocument("scratch")
	doc.AddDefaultStep()

	p, err := graphs.Load(context.Background(), id, doc)
	require.NoError(t, err)
	assert.Equal(t, "demo", p.Name)
	assert.Equal(t, "demo", doc.Name())
	require.Equal(t, 2, doc.Len())

	step, err := doc.Step(1)
	require.NoError(t, err)
	assert.Equal(t, "sample", step.Function)
	assert.Equal(t, float64(1), step.Args["n"])

	_, err = graphs.Load(context.Background(), "graph_missing", doc)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	assert.Equal(t, "demo", doc.Name())
}
