package client

import (
	"context"
	"net/http"

	"pipeline-builder/internal/pipeline"
)

// ListSavedGraphs returns the saved graph summaries
func (c *Client) ListSavedGraphs(ctx context.Context) ([]SavedGraphSummary, error) {
	var out []SavedGraphSummary
	if err := c.getJSON(ctx, "/saved-graphs", nil, false, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SavedGraph fetches one saved graph with its full path
func (c *Client) SavedGraph(ctx context.Context, id string) (*SavedGraph, error) {
	var out SavedGraph
	if err := c.getJSON(ctx, "/saved-graphs/"+escape(id), nil, false, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		out.ID = id
	}
	return &out, nil
}

// SaveGraph persists steps under name and returns the new graph id
func (c *Client) SaveGraph(ctx context.Context, name string, steps []pipeline.Step) (string, error) {
	if steps == nil {
		steps = []pipeline.Step{}
	}

	var out SaveGraphResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/saved-graphs", SaveGraphRequest{Name: name, Path: steps}, &out); err != nil {
		return "", err
	}
	return out.GraphID, nil
}
