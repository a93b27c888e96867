package controller

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"pipeline-builder/internal/client"
	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/testutil"
)

var _ API = (*testutil.MockAPI)(nil)

func TestExecution_SubmitAgainAfterFailure(t *testing.T) {
	fixtures := testutil.NewTestFixtures()
	api := &testutil.MockAPI{}
	api.On("Run", mock.Anything, "ds_a", fixtures.Pipeline.Steps).Return("", testutil.ErrUnavailable).Once()
	api.On("Run", mock.Anything, "ds_a", fixtures.Pipeline.Steps).Return("an_1", nil).Once()

	exec := NewExecution(api)

	_, err := exec.Submit(context.Background(), "ds_a", fixtures.Pipeline.Steps)
	require.ErrorIs(t, err, testutil.ErrUnavailable)
	assert.Equal(t, StateSubmitFailed, exec.State())
	assert.ErrorIs(t, exec.Err(), testutil.ErrUnavailable)

	id, err := exec.Submit(context.Background(), "ds_a", fixtures.Pipeline.Steps)
	require.NoError(t, err)
	assert.Equal(t, "an_1", id)
	assert.Equal(t, StateSubmitted, exec.State())
	assert.NoError(t, exec.Err())

	api.AssertExpectations(t)
}

func TestExecution_StatusWithMock(t *testing.T) {
	fixtures := testutil.NewTestFixtures()
	api := &testutil.MockAPI{}
	api.On("Run", mock.Anything, "ds_a", fixtures.Pipeline.Steps).Return("an_1", nil)
	api.On("Analysis", mock.Anything, "an_1").Return(&client.Analysis{
		AnalysisSummary: client.AnalysisSummary{ID: "an_1", Status: client.StatusRunning},
	}, nil)

	exec := NewExecution(api)
	_, err := exec.Status(context.Background())
	assert.True(t, errors.IsType(err, errors.ErrTypePrecondition))

	_, err = exec.Submit(context.Background(), "ds_a", fixtures.Pipeline.Steps)
	require.NoError(t, err)

	status, err := exec.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, client.StatusRunning, status.Status)
	api.AssertNumberOfCalls(t, "Analysis", 1)
}

func TestDatasets_DeleteFailureWithMock(t *testing.T) {
	fixtures := testutil.NewTestFixtures()
	api := &testutil.MockAPI{}
	api.On("ListDatasets", mock.Anything).Return(fixtures.Datasets, nil)
	api.On("DeleteDataset", mock.Anything, "ds_b").Return(nil, testutil.ErrUnavailable)

	var alerts []string
	datasets := NewDatasets(api, nil, AlertFunc(func(msg string) { alerts = append(alerts, msg) }))
	_, err := datasets.List(context.Background())
	require.NoError(t, err)

	deleted, err := datasets.Delete(context.Background(), "ds_b")
	assert.False(t, deleted)
	assert.ErrorIs(t, err, testutil.ErrUnavailable)

	ids := make([]string, 0, 3)
	for _, d := range datasets.Items() {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"ds_a", "ds_b", "ds_c"}, ids)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0], "Failed to delete dataset b.csv")
	api.AssertExpectations(t)
}

func TestSession_LoadWithMock(t *testing.T) {
	fixtures := testutil.NewTestFixtures()
	api := &testutil.MockAPI{}
	api.On("ListAnalyses", mock.Anything).Return(nil, testutil.ErrUnavailable)
	api.On("ListDatasets", mock.Anything).Return(fixtures.Datasets, nil)
	api.On("Functions", mock.Anything).Return(fixtures.Registry, nil)
	api.On("ListSavedGraphs", mock.Anything).Return(nil, testutil.ErrTestFailure)

	session := NewSession(api, SessionOptions{})
	defer session.Close()

	err := session.Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, testutil.ErrUnavailable)
	assert.ErrorIs(t, err, testutil.ErrTestFailure)

	assert.Len(t, session.Datasets.Items(), 3)
	assert.Equal(t, fixtures.Registry.Names(), session.Registry().Names())
	api.AssertExpectations(t)
}
