package client

import (
	"context"

	"pipeline-builder/internal/functions"
)

const functionsPath = "/functions"

// Functions fetches the function registry. Responses are served from the
// cache when one is configured.
func (c *Client) Functions(ctx context.Context) (functions.Registry, error) {
	var out functions.Registry
	if err := c.getJSON(ctx, functionsPath, nil, true, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = functions.Registry{}
	}
	return out, nil
}

// RefreshFunctions drops the cached registry and fetches it again
func (c *Client) RefreshFunctions(ctx context.Context) (functions.Registry, error) {
	c.http.InvalidateCache(ctx, c.url(functionsPath, nil))
	return c.Functions(ctx)
}
