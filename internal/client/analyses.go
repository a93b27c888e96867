package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"pipeline-builder/internal/pipeline"
)

// ListAnalyses returns every run the backend knows about
func (c *Client) ListAnalyses(ctx context.Context) ([]AnalysisSummary, error) {
	var out []AnalysisSummary
	if err := c.getJSON(ctx, "/analyses", nil, false, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Analysis returns one run with its artifacts
func (c *Client) Analysis(ctx context.Context, id string) (*Analysis, error) {
	var out Analysis
	if err := c.getJSON(ctx, "/analyses/"+escape(id), nil, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func artifactPath(analysisID, key string) string {
	return "/analyses/" + escape(analysisID) + "/artifacts/" + escape(key)
}

// ArtifactRows returns up to nrows records of an artifact; nrows <= 0 asks
// for all of them
func (c *Client) ArtifactRows(ctx context.Context, analysisID, key string, nrows int) ([]Row, error) {
	query := url.Values{"format": {"json"}}
	if nrows > 0 {
		query.Set("nrows", strconv.Itoa(nrows))
	}

	var out []Row
	if err := c.getJSON(ctx, artifactPath(analysisID, key), query, false, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ArtifactCSV downloads an artifact as CSV
func (c *Client) ArtifactCSV(ctx context.Context, analysisID, key string) ([]byte, error) {
	resp, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   artifactPath(analysisID, key),
		query:  url.Values{"format": {"csv"}},
	})
	if err != nil {
		return nil, err
	}
	return resp.RawBody, nil
}

// Run submits a pipeline for asynchronous execution and returns the
// analysis id
func (c *Client) Run(ctx context.Context, datasetID string, steps []pipeline.Step) (string, error) {
	var out RunResponse
	req := RunRequest{DatasetID: datasetID, PathRequest: steps}
	if err := c.sendJSON(ctx, http.MethodPost, "/compiler/run", req, &out); err != nil {
		return "", err
	}
	return out.AnalysisID, nil
}
