package controller

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pipeline-builder/internal/client"
	commonhttp "pipeline-builder/internal/common/http"
	"pipeline-builder/internal/common/logging"
	"pipeline-builder/internal/mockserver"
	"pipeline-builder/internal/pipeline"
)

const callsCSV = "caller,transcript\nann,hello there general kenobi\nbob,short\n"

func newBackend(t *testing.T, opts mockserver.Options) (*mockserver.Server, *client.Client) {
	t.Helper()
	opts.Logger = logging.NewNopLogger()
	backend := mockserver.New(opts)
	ts := httptest.NewServer(backend)
	t.Cleanup(func() {
		ts.Close()
		backend.Close()
	})

	return backend, client.New(client.Options{
		BaseURL: ts.URL,
		Timeout: 2 * time.Second,
		Retry:   commonhttp.NoRetry(),
		Logger:  logging.NewNopLogger(),
	})
}

func seedDataset(t *testing.T, backend *mockserver.Server, name string) string {
	t.Helper()
	id, err := backend.SeedDataset(name, strings.NewReader(callsCSV))
	require.NoError(t, err)
	return id
}

func twoSteps() []pipeline.Step {
	return []pipeline.Step{
		{Function: "filter", Args: map[string]interface{}{}, InputDFName: "starting_df", OutputDFName: "filtered"},
		{Function: "sample", Args: map[string]interface{}{"n": float64(1)}, InputDFName: "filtered", OutputDFName: "sampled"},
	}
}
