package testutil

import (
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"pipeline-builder/internal/client"
	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/functions"
	"pipeline-builder/internal/pipeline"
	"pipeline-builder/internal/storage"
)

// MockStore implements storage.Store in memory for testing
type MockStore struct {
	mu     sync.RWMutex
	drafts map[string]*storage.Draft
	now    func() time.Time
	closed bool

	// Control error injection
	ErrorOnMethod map[string]error
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{
		drafts:        make(map[string]*storage.Draft),
		now:           time.Now,
		ErrorOnMethod: make(map[string]error),
	}
}

func (m *MockStore) SaveDraft(ctx context.Context, name string, p pipeline.Pipeline) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ErrorOnMethod["SaveDraft"]; err != nil {
		return err
	}
	m.drafts[name] = &storage.Draft{Name: name, Pipeline: p.Clone(), UpdatedAt: m.now()}
	return nil
}

func (m *MockStore) GetDraft(ctx context.Context, name string) (*storage.Draft, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.ErrorOnMethod["GetDraft"]; err != nil {
		return nil, err
	}
	draft, ok := m.drafts[name]
	if !ok {
		return nil, errors.NotFoundError("draft " + name)
	}
	copied := *draft
	copied.Pipeline = draft.Pipeline.Clone()
	return &copied, nil
}

func (m *MockStore) ListDrafts(ctx context.Context) ([]storage.DraftSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.ErrorOnMethod["ListDrafts"]; err != nil {
		return nil, err
	}
	summaries := make([]storage.DraftSummary, 0, len(m.drafts))
	for _, d := range m.drafts {
		summaries = append(summaries, storage.DraftSummary{Name: d.Name, Steps: len(d.Pipeline.Steps), UpdatedAt: d.UpdatedAt})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].UpdatedAt.Equal(summaries[j].UpdatedAt) {
			return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
		}
		return summaries[i].Name < summaries[j].Name
	})
	return summaries, nil
}

func (m *MockStore) DeleteDraft(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ErrorOnMethod["DeleteDraft"]; err != nil {
		return err
	}
	if _, ok := m.drafts[name]; !ok {
		return errors.NotFoundError("draft " + name)
	}
	delete(m.drafts, name)
	return nil
}

func (m *MockStore) Health(ctx context.Context) error {
	return m.ErrorOnMethod["Health"]
}

func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.ErrorOnMethod["Close"]
}

// Closed reports whether Close was called
func (m *MockStore) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// MockAPI is a testify mock of the backend client
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ListDatasets(ctx context.Context) ([]client.Dataset, error) {
	args := m.Called(ctx)
	datasets, _ := args.Get(0).([]client.Dataset)
	return datasets, args.Error(1)
}

func (m *MockAPI) UploadDataset(ctx context.Context, filename string, content io.Reader) (string, error) {
	args := m.Called(ctx, filename, content)
	return args.String(0), args.Error(1)
}

func (m *MockAPI) DatasetPreview(ctx context.Context, id string) (*client.DatasetPreview, error) {
	args := m.Called(ctx, id)
	preview, _ := args.Get(0).(*client.DatasetPreview)
	return preview, args.Error(1)
}

func (m *MockAPI) TruncatedPreview(ctx context.Context, id string, rows, maxCellChars int) (*client.DatasetPreview, error) {
	args := m.Called(ctx, id, rows, maxCellChars)
	preview, _ := args.Get(0).(*client.DatasetPreview)
	return preview, args.Error(1)
}

func (m *MockAPI) DeleteDataset(ctx context.Context, id string) (*client.Ack, error) {
	args := m.Called(ctx, id)
	ack, _ := args.Get(0).(*client.Ack)
	return ack, args.Error(1)
}

func (m *MockAPI) Run(ctx context.Context, datasetID string, steps []pipeline.Step) (string, error) {
	args := m.Called(ctx, datasetID, steps)
	return args.String(0), args.Error(1)
}

func (m *MockAPI) ListAnalyses(ctx context.Context) ([]client.AnalysisSummary, error) {
	args := m.Called(ctx)
	analyses, _ := args.Get(0).([]client.AnalysisSummary)
	return analyses, args.Error(1)
}

func (m *MockAPI) Analysis(ctx context.Context, id string) (*client.Analysis, error) {
	args := m.Called(ctx, id)
	analysis, _ := args.Get(0).(*client.Analysis)
	return analysis, args.Error(1)
}

func (m *MockAPI) ArtifactRows(ctx context.Context, analysisID, key string, nrows int) ([]client.Row, error) {
	args := m.Called(ctx, analysisID, key, nrows)
	rows, _ := args.Get(0).([]client.Row)
	return rows, args.Error(1)
}

func (m *MockAPI) ArtifactCSV(ctx context.Context, analysisID, key string) ([]byte, error) {
	args := m.Called(ctx, analysisID, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockAPI) SaveGraph(ctx context.Context, name string, steps []pipeline.Step) (string, error) {
	args := m.Called(ctx, name, steps)
	return args.String(0), args.Error(1)
}

func (m *MockAPI) ListSavedGraphs(ctx context.Context) ([]client.SavedGraphSummary, error) {
	args := m.Called(ctx)
	graphs, _ := args.Get(0).([]client.SavedGraphSummary)
	return graphs, args.Error(1)
}

func (m *MockAPI) SavedGraph(ctx context.Context, id string) (*client.SavedGraph, error) {
	args := m.Called(ctx, id)
	graph, _ := args.Get(0).(*client.SavedGraph)
	return graph, args.Error(1)
}

func (m *MockAPI) Functions(ctx context.Context) (functions.Registry, error) {
	args := m.Called(ctx)
	registry, _ := args.Get(0).(functions.Registry)
	return registry, args.Error(1)
}

func (m *MockAPI) RefreshFunctions(ctx context.Context) (functions.Registry, error) {
	args := m.Called(ctx)
	registry, _ := args.Get(0).(functions.Registry)
	return registry, args.Error(1)
}
