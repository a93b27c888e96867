package client

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"pipeline-builder/internal/common/errors"
)

// ListDatasets returns every uploaded dataset
func (c *Client) ListDatasets(ctx context.Context) ([]Dataset, error) {
	var out []Dataset
	if err := c.getJSON(ctx, "/datasets", nil, false, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadDataset posts a CSV as multipart field "file" and returns its id
func (c *Client) UploadDataset(ctx context.Context, filename string, content io.Reader) (string, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", errors.InternalError("failed to build upload form", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return "", errors.InternalError("failed to read upload content", err)
	}
	if err := form.Close(); err != nil {
		return "", errors.InternalError("failed to build upload form", err)
	}

	resp, err := c.do(ctx, call{
		method:  http.MethodPost,
		path:    "/datasets",
		body:    &buf,
		headers: map[string]string{"Content-Type": form.FormDataContentType()},
	})
	if err != nil {
		return "", err
	}

	var out UploadResponse
	if err := resp.JSON(&out); err != nil {
		return "", err
	}
	return out.DatasetID, nil
}

// DatasetPreview returns the dataset's metadata and head
func (c *Client) DatasetPreview(ctx context.Context, id string) (*DatasetPreview, error) {
	var out DatasetPreview
	if err := c.getJSON(ctx, "/datasets/"+escape(id), nil, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// TruncatedPreview returns the first rows of a dataset with long text cells
// shortened by the backend. Non-positive limits use the backend defaults.
func (c *Client) TruncatedPreview(ctx context.Context, id string, rows, maxCellChars int) (*DatasetPreview, error) {
	query := url.Values{}
	if rows > 0 {
		query.Set("preview_rows", strconv.Itoa(rows))
	}
	if maxCellChars > 0 {
		query.Set("max_cell_chars", strconv.Itoa(maxCellChars))
	}

	var out DatasetPreview
	if err := c.getJSON(ctx, "/datasets/truncated/"+escape(id), query, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDataset removes a dataset on the backend
func (c *Client) DeleteDataset(ctx context.Context, id string) (*Ack, error) {
	var out Ack
	if err := c.sendJSON(ctx, http.MethodDelete, "/datasets/"+escape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
