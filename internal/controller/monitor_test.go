package controller

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-builder/internal/client"
	"pipeline-builder/internal/mockserver"
)

func startRun(t *testing.T, api *client.Client, datasetID string) string {
	t.Helper()
	id, err := api.Run(context.Background(), datasetID, twoSteps())
	require.NoError(t, err)
	return id
}

func TestMonitor_RefreshJoinsDatasetNames(t *testing.T) {
	backend, api := newBackend(t, mockserver.Options{})
	kept := seedDataset(t, backend, "calls.csv")
	dropped := seedDataset(t, backend, "old.csv")
	startRun(t, api, kept)
	startRun(t, api, dropped)
	_, err := api.DeleteDataset(context.Background(), dropped)
	require.NoError(t, err)

	monitor := NewAnalysisMonitor(api, MonitorOptions{})
	require.NoError(t, monitor.Refresh(context.Background()))

	views := monitor.Analyses()
	require.Len(t, views, 2)
	assert.Equal(t, "calls.csv", views[0].DatasetName)
	assert.Equal(t, dropped, views[1].DatasetName)
	assert.Equal(t, client.StatusQueued, views[0].Status)
}

func TestMonitor_RefreshKeepsNamesWhenDatasetsFail(t *testing.T) {
	backend, api := newBackend(t, mockserver.Options{})
	datasetID := seedDataset(t, backend, "calls.csv")
	startRun(t, api, datasetID)

	monitor := NewAnalysisMonitor(api, MonitorOptions{})
	require.NoError(t, monitor.Refresh(context.Background()))

	backend.InjectFault(mockserver.Fault{Method: http.MethodGet, PathPrefix: "/datasets", Status: http.StatusInternalServerError})
	require.NoError(t, monitor.Refresh(context.Background()))
	assert.Equal(t, "calls.csv", monitor.Analyses()[0].DatasetName)

	backend.InjectFault(mockserver.Fault{Method: http.MethodGet, PathPrefix: "/analyses", Status: http.StatusInternalServerError})
	assert.Error(t, monitor.Refresh(context.Background()))
}

func TestMonitor_SelectLoadsTruncatedPreviews(t *testing.T) {
	backend, api := newBackend(t, mockserver.Options{})
	datasetID := seedDataset(t, backend, "calls.csv")
	analysisID := startRun(t, api, datasetID)
	require.NoError(t, backend.Complete(analysisID))

	monitor := NewAnalysisMonitor(api, MonitorOptions{PreviewRows: 1, MaxCellChars: 12})
	selected, err := monitor.Select(context.Background(), analysisID)
	require.NoError(t, err)
	assert.Equal(t, client.StatusCompleted, selected.Status)
	assert.Same(t, selected, monitor.Selected())

	previews := monitor.Previews()
	require.Contains(t, previews, "filtered")
	require.Contains(t, previews, "sampled")
	require.Len(t, previews["filtered"], 1)
	assert.Equal(t, "hello there...", previews["filtered"][0]["transcript"])
	assert.Equal(t, "filter", previews["sampled"][0]["step_0"])

	csv, err := monitor.ArtifactCSV(context.Background(), analysisID, "sampled")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csv), "caller,transcript,step_0,step_1\n"))

	monitor.Deselect()
	assert.Nil(t, monitor.Selected())
	assert.Empty(t, monitor.Previews())
}

func TestMonitor_RefreshReplacesSelectionOnStatusChange(t *testing.T) {
	backend, api := newBackend(t, mockserver.Options{})
	datasetID := seedDataset(t, backend, "calls.csv")
	analysisID := startRun(t, api, datasetID)

	var changes int32
	monitor := NewAnalysisMonitor(api, MonitorOptions{
		OnChange: func(*client.Analysis) { atomic.AddInt32(&changes, 1) },
	})
	first, err := monitor.Select(context.Background(), analysisID)
	require.NoError(t, err)
	assert.Empty(t, monitor.Previews())

	// unchanged status keeps the same value
	require.NoError(t, monitor.Refresh(context.Background()))
	assert.Same(t, first, monitor.Selected())
	assert.Equal(t, int32(0), atomic.LoadInt32(&changes))

	require.NoError(t, backend.Complete(analysisID))
	require.NoError(t, monitor.Refresh(context.Background()))

	assert.Equal(t, client.StatusCompleted, monitor.Selected().Status)
	assert.Contains(t, monitor.Previews(), "sampled")
	assert.Equal(t, int32(1), atomic.LoadInt32(&changes))
}

func TestMonitor_StartStop(t *testing.T) {
	backend, api := newBackend(t, mockserver.Options{})
	datasetID := seedDataset(t, backend, "calls.csv")
	analysisID := startRun(t, api, datasetID)

	monitor := NewAnalysisMonitor(api, MonitorOptions{Interval: time.Second})
	_, err := monitor.Select(context.Background(), analysisID)
	require.NoError(t, err)
	require.NoError(t, backend.Complete(analysisID))

	require.NoError(t, monitor.Start())
	require.NoError(t, monitor.Start())
	assert.True(t, monitor.Running())

	assert.Eventually(t, func() bool {
		selected := monitor.Selected()
		return selected != nil && selected.Status == client.StatusCompleted
	}, 5*time.Second, 50*time.Millisecond)

	monitor.Stop()
	monitor.Stop()
	assert.False(t, monitor.Running())

	polls := backend.Requests(http.MethodGet, "/analyses")
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, polls, backend.Requests(http.MethodGet, "/analyses"))
}
