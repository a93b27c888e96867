package mockserver

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipeline-builder/internal/common/logging"
)

const callsCSV = "caller,transcript,duration\nann,hello there general kenobi,12\nbob,short,7\n"

func newTestServer(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	return newTestServerAt(t, opts, time.Now)
}

func newTestServerAt(t *testing.T, opts Options, now func() time.Time) (*Server, *httptest.Server) {
	t.Helper()
	opts.Logger = logging.NewNopLogger()
	s := New(opts)
	s.now = now
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func doJSON(t *testing.T, method, url string, body interface{}, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func seed(t *testing.T, s *Server) string {
	t.Helper()
	id, err := s.SeedDataset("calls.csv", strings.NewReader(callsCSV))
	require.NoError(t, err)
	return id
}

func TestUploadAndListDatasets(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "calls.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte(callsCSV))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/datasets", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var uploaded struct {
		Success   bool   `json:"success"`
		DatasetID string `json:"dataset_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))
	assert.True(t, uploaded.Success)
	assert.True(t, strings.HasPrefix(uploaded.DatasetID, "ds_"))

	var listed []map[string]interface{}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/datasets", nil, &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "calls.csv", listed[0]["original_filename"])
	assert.Equal(t, float64(2), listed[0]["num_rows"])
}

func TestUpload_MissingFile(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(ts.URL+"/datasets", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No file uploaded", body["detail"])
}

func TestTruncatedPreview(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	id := seed(t, s)

	var preview struct {
		ID      string                   `json:"id"`
		Head    []map[string]interface{} `json:"head"`
		NumRows int                      `json:"num_rows"`
	}
	status := doJSON(t, http.MethodGet, ts.URL+"/datasets/truncated/"+id+"?preview_rows=1&max_cell_chars=12", nil, &preview)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, id, preview.ID)
	assert.Equal(t, 2, preview.NumRows)
	require.Len(t, preview.Head, 1)
	assert.Equal(t, "hello there...", preview.Head[0]["transcript"])
	assert.Equal(t, float64(12), preview.Head[0]["duration"])

	var detail map[string]string
	assert.Equal(t, http.StatusUnprocessableEntity,
		doJSON(t, http.MethodGet, ts.URL+"/datasets/truncated/"+id+"?preview_rows=lots", nil, &detail))
	assert.Contains(t, detail["detail"], "preview_rows")
}

func TestDeleteDataset(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	id := seed(t, s)

	var ack map[string]interface{}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodDelete, ts.URL+"/datasets/"+id, nil, &ack))
	assert.Equal(t, true, ack["success"])

	var detail map[string]string
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodDelete, ts.URL+"/datasets/"+id, nil, &detail))
	assert.Equal(t, "Dataset not found", detail["detail"])
}

func TestFunctions_ServesCatalog(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	var registry map[string]interface{}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/functions", nil, &registry))
	assert.Contains(t, registry, "binary_classification")
}

func TestRunLifecycle(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	id := seed(t, s)

	run := map[string]interface{}{
		"dataset_id": id,
		"path_request": []map[string]interface{}{
			{"function": "filter", "args": map[string]interface{}{}, "input_df_name": "starting_df", "output_df_name": "filtered"},
			{"function": "sample", "args": map[string]interface{}{}, "input_df_name": "filtered", "output_df_name": "sampled"},
		},
	}
	var started map[string]string
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, ts.URL+"/compiler/run", run, &started))
	analysisID := started["analysis_id"]
	require.NotEmpty(t, analysisID)

	var summary map[string]interface{}
	doJSON(t, http.MethodGet, ts.URL+"/analyses/"+analysisID, nil, &summary)
	assert.Equal(t, "queued", summary["status"])

	require.NoError(t, s.Start(analysisID))
	require.NoError(t, s.Complete(analysisID))
	assert.Error(t, s.Fail(analysisID, "too late"))

	var detail map[string]interface{}
	doJSON(t, http.MethodGet, ts.URL+"/analyses/"+analysisID, nil, &detail)
	assert.Equal(t, "completed", detail["status"])
	assert.NotNil(t, detail["finished_at"])
	assert.Len(t, detail["execution_log"], 2)
	assert.Contains(t, detail["artifacts"], "sampled")

	var rows []map[string]interface{}
	require.Equal(t, http.StatusOK,
		doJSON(t, http.MethodGet, ts.URL+"/analyses/"+analysisID+"/artifacts/sampled?format=json&nrows=1", nil, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "filter", rows[0]["step_0"])
	assert.Equal(t, "sample", rows[0]["step_1"])

	resp, err := http.Get(ts.URL + "/analyses/" + analysisID + "/artifacts/sampled?format=csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	csvBody, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(string(csvBody), "caller,transcript,duration,step_0,step_1\n"))
}

func TestRun_UnknownFrameFails(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	id := seed(t, s)

	run := map[string]interface{}{
		"dataset_id":   id,
		"path_request": []map[string]interface{}{{"function": "filter", "input_df_name": "missing", "output_df_name": "out"}},
	}
	var started map[string]string
	doJSON(t, http.MethodPost, ts.URL+"/compiler/run", run, &started)
	require.NoError(t, s.Complete(started["analysis_id"]))

	var detail map[string]interface{}
	doJSON(t, http.MethodGet, ts.URL+"/analyses/"+started["analysis_id"], nil, &detail)
	assert.Equal(t, "failed", detail["status"])
	assert.Contains(t, detail["error"], `unknown input frame "missing"`)
}

func TestRun_Rejections(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	var detail map[string]string
	status := doJSON(t, http.MethodPost, ts.URL+"/compiler/run", map[string]interface{}{
		"dataset_id":   "ds_missing",
		"path_request": []map[string]interface{}{{"function": "filter"}},
	}, &detail)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Dataset not found", detail["detail"])

	status = doJSON(t, http.MethodPost, ts.URL+"/compiler/run", map[string]interface{}{"dataset_id": "ds_missing"}, &detail)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
}

func TestRun_AutoComplete(t *testing.T) {
	s, ts := newTestServer(t, Options{AutoComplete: 20 * time.Millisecond})
	id := seed(t, s)

	var started map[string]string
	doJSON(t, http.MethodPost, ts.URL+"/compiler/run", map[string]interface{}{
		"dataset_id":   id,
		"path_request": []map[string]interface{}{{"function": "filter", "input_df_name": "starting_df", "output_df_name": "out"}},
	}, &started)

	assert.Eventually(t, func() bool {
		var detail map[string]interface{}
		doJSON(t, http.MethodGet, ts.URL+"/analyses/"+started["analysis_id"], nil, &detail)
		return detail["status"] == "completed"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSavedGraphs(t *testing.T) {
	var clock atomic.Int64
	clock.Store(time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC).UnixNano())
	_, ts := newTestServerAt(t, Options{ListLag: time.Minute}, func() time.Time { return time.Unix(0, clock.Load()) })

	var saved map[string]string
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, ts.URL+"/saved-graphs",
		map[string]interface{}{"name": "demo", "path": []interface{}{map[string]interface{}{"function": "filter"}}}, &saved))
	graphID := saved["graph_id"]
	require.NotEmpty(t, graphID)

	var listed []map[string]interface{}
	doJSON(t, http.MethodGet, ts.URL+"/saved-graphs", nil, &listed)
	assert.Empty(t, listed)

	clock.Add(int64(time.Minute))
	doJSON(t, http.MethodGet, ts.URL+"/saved-graphs", nil, &listed)
	require.Len(t, listed, 1)
	assert.Equal(t, "demo", listed[0]["name"])

	var graph map[string]interface{}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/saved-graphs/"+graphID, nil, &graph))
	assert.Len(t, graph["path"], 1)

	var detail map[string]string
	assert.Equal(t, http.StatusUnprocessableEntity,
		doJSON(t, http.MethodPost, ts.URL+"/saved-graphs", map[string]interface{}{"name": " "}, &detail))
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, ts.URL+"/saved-graphs/nope", nil, &detail))
}

func TestInjectFault(t *testing.T) {
	s, ts := newTestServer(t, Options{})
	s.InjectFault(Fault{Method: http.MethodGet, PathPrefix: "/analyses", Status: http.StatusServiceUnavailable, Times: 1})

	var detail map[string]string
	assert.Equal(t, http.StatusServiceUnavailable, doJSON(t, http.MethodGet, ts.URL+"/analyses", nil, &detail))
	assert.Equal(t, "Service Unavailable", detail["detail"])

	var list []interface{}
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/analyses", nil, &list))

	s.InjectFault(Fault{PathPrefix: "/saved-graphs", Status: http.StatusInternalServerError, Detail: "boom"})
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusInternalServerError, doJSON(t, http.MethodGet, ts.URL+"/saved-graphs", nil, &detail))
	}
	s.ClearFaults()
	assert.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, ts.URL+"/saved-graphs", nil, &list))

	assert.Equal(t, 3, s.Requests(http.MethodGet, "/saved-graphs"))
	assert.Equal(t, 2, s.Requests(http.MethodGet, "/analyses"))
}

func TestUnknownRoute(t *testing.T) {
	_, ts := newTestServer(t, Options{})

	var detail map[string]string
	assert.Equal(t, http.StatusNotFound, doJSON(t, http.MethodGet, ts.URL+"/nope", nil, &detail))
	assert.Equal(t, "Not Found", detail["detail"])
}
