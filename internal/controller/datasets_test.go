package controller

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-builder/internal/client"
	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/mockserver"
)

type recorder struct {
	mu       sync.Mutex
	prompts  []string
	alerts   []string
	approved bool
}

func (r *recorder) Confirm(prompt string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	return r.approved
}

func (r *recorder) Alert(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, message)
}

func ids(items []client.Dataset) []string {
	out := make([]string, len(items))
	for i, d := range items {
		out[i] = d.ID
	}
	return out
}

func TestDatasets_UploadAppends(t *testing.T) {
	_, api := newBackend(t, mockserver.Options{})
	datasets := NewDatasets(api, nil, nil)

	id, err := datasets.Upload(context.Background(), "calls.csv", strings.NewReader(callsCSV))
	require.NoError(t, err)

	items := datasets.Items()
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, "calls.csv", items[0].OriginalFilename)
	assert.NotNil(t, items[0].Head)
	assert.Empty(t, items[0].Head)
}

func TestDatasets_SelectUsesTruncatedPreview(t *testing.T) {
	backend, api := newBackend(t, mockserver.Options{})
	id := seedDataset(t, backend, "calls.csv")
	datasets := NewDatasets(api, nil, nil)
	datasets.SetPreviewLimits(1, 12)

	_, err := datasets.List(context.Background())
	require.NoError(t, err)

	preview, err := datasets.Select(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "calls.csv", preview.OriginalFilename)
	assert.Equal(t, 2, preview.NumRows)
	require.Len(t, preview.Head, 1)
	assert.Equal(t, "hello there...", preview.Head[0]["transcript"])

	selected, current := datasets.Selected()
	assert.Equal(t, id, selected)
	assert.Same(t, preview, current)
}

func TestDatasets_SelectFallbacks(t *testing.T) {
	backend, api := newBackend(t, mockserver.Options{})
	id := seedDataset(t, backend, "calls.csv")
	datasets := NewDatasets(api, nil, nil)
	_, err := datasets.List(context.Background())
	require.NoError(t, err)

	backend.InjectFault(mockserver.Fault{Method: http.MethodGet, PathPrefix: "/datasets/truncated/", Status: http.StatusInternalServerError})
	preview, err := datasets.Select(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, preview.Head, 2)
	assert.Equal(t, "hello there general kenobi", preview.Head[0]["transcript"])

	backend.InjectFault(mockserver.Fault{Method: http.MethodGet, PathPrefix: "/datasets/", Status: http.StatusInternalServerError})
	preview, err = datasets.Select(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, preview.ID)
	assert.Equal(t, "calls.csv", preview.OriginalFilename)
	assert.Len(t, preview.Head, 2)

	_, err = datasets.Select(context.Background(), "ds_unlisted")
	assert.Error(t, err)
}

func TestDatasets_DeleteDeclined(t *testing.T) {
	backend, api := newBackend(t, mockserver.Options{})
	id := seedDataset(t, backend, "calls.csv")
	confirm := &recorder{approved: false}
	datasets := NewDatasets(api, confirm, confirm)
	_, err := datasets.List(context.Background())
	require.NoError(t, err)

	deleted, err := datasets.Delete(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, []string{"Delete dataset calls.csv?"}, confirm.prompts)
	assert.Equal(t, []string{id}, ids(datasets.Items()))
	assert.Equal(t, 0, backend.Requests(http.MethodDelete, "/datasets/"))
}

func TestDatasets_DeleteClearsSelection(t *testing.T) {
	backend, api := newBackend(t, mockserver.Options{})
	first := seedDataset(t, backend, "a.csv")
	second := seedDataset(t, backend, "b.csv")
	confirm := &recorder{approved: true}
	datasets := NewDatasets(api, confirm, confirm)
	_, err := datasets.List(context.Background())
	require.NoError(t, err)
	_, err = datasets.Select(context.Background(), first)
	require.NoError(t, err)

	deleted, err := datasets.Delete(context.Background(), first)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []string{second}, ids(datasets.Items()))

	selected, preview := datasets.Selected()
	assert.Empty(t, selected)
	assert.Nil(t, preview)
	assert.Empty(t, confirm.alerts)

	_, err = datasets.Delete(context.Background(), first)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestDatasets_DeleteFailureRestores(t *testing.T) {
	backend, api := newBackend(t, mockserver.Options{})
	a := seedDataset(t, backend, "a.csv")
	b := seedDataset(t, backend, "b.csv")
	c := seedDataset(t, backend, "c.csv")
	confirm := &recorder{approved: true}
	datasets := NewDatasets(api, confirm, confirm)
	_, err := datasets.List(context.Background())
	require.NoError(t, err)

	backend.InjectFault(mockserver.Fault{Method: http.MethodDelete, PathPrefix: "/datasets/", Status: http.StatusInternalServerError, Detail: "disk full"})

	deleted, err := datasets.Delete(context.Background(), b)
	require.Error(t, err)
	assert.False(t, deleted)
	assert.Equal(t, []string{a, b, c}, ids(datasets.Items()))
	require.Len(t, confirm.alerts, 1)
	assert.Contains(t, confirm.alerts[0], "b.csv")
	assert.Contains(t, confirm.alerts[0], "disk full")
}

// blockingPreviews holds truncated previews for one id until released
type blockingPreviews struct {
	DatasetAPI
	blockID string
	entered chan struct{}
	release chan struct{}
}

func (b *blockingPreviews) TruncatedPreview(ctx context.Context, id string, rows, maxCellChars int) (*client.DatasetPreview, error) {
	if id == b.blockID {
		close(b.entered)
		<-b.release
	}
	return &client.DatasetPreview{ID: id, Head: []client.Row{}}, nil
}

func TestDatasets_StaleSelectionDiscarded(t *testing.T) {
	api := &blockingPreviews{blockID: "slow", entered: make(chan struct{}), release: make(chan struct{})}
	datasets := NewDatasets(api, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := datasets.Select(context.Background(), "slow")
		done <- err
	}()
	<-api.entered

	preview, err := datasets.Select(context.Background(), "fast")
	require.NoError(t, err)
	assert.Equal(t, "fast", preview.ID)

	close(api.release)
	assert.ErrorIs(t, <-done, ErrSuperseded)

	selected, current := datasets.Selected()
	assert.Equal(t, "fast", selected)
	assert.Equal(t, "fast", current.ID)
}
