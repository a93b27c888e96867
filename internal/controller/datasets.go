package controller

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/samber/lo"

	"pipeline-builder/internal/client"
	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/common/logging"
)

// Confirmer asks the user to approve a destructive action
type Confirmer interface {
	Confirm(prompt string) bool
}

// Notifier shows a dismissable message to the user
type Notifier interface {
	Alert(message string)
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// AlertFunc adapts a function to Notifier
type AlertFunc func(message string)

func (f AlertFunc) Alert(message string) { f(message) }

// DatasetAPI is the part of the backend client the dataset controller uses
type DatasetAPI interface {
	ListDatasets(ctx context.Context) ([]client.Dataset, error)
	UploadDataset(ctx context.Context, filename string, content io.Reader) (string, error)
	DatasetPreview(ctx context.Context, id string) (*client.DatasetPreview, error)
	TruncatedPreview(ctx context.Context, id string, rows, maxCellChars int) (*client.DatasetPreview, error)
	DeleteDataset(ctx context.Context, id string) (*client.Ack, error)
}

// Datasets keeps the visible dataset list and the selected dataset's
// preview
type Datasets struct {
	mu           sync.Mutex
	api          DatasetAPI
	confirmer    Confirmer
	notifier     Notifier
	items        []client.Dataset
	selected     string
	preview      *client.DatasetPreview
	generation   uint64
	previewRows  int
	maxCellChars int
	logger       logging.Logger
}

// NewDatasets creates a dataset controller. A nil confirmer approves every
// delete; a nil notifier drops alerts.
func NewDatasets(api DatasetAPI, confirmer Confirmer, notifier Notifier) *Datasets {
	if confirmer == nil {
		confirmer = ConfirmFunc(func(string) bool { return true })
	}
	if notifier == nil {
		notifier = AlertFunc(func(string) {})
	}
	return &Datasets{
		api:       api,
		confirmer: confirmer,
		notifier:  notifier,
		logger:    logging.Component("datasets"),
	}
}

// SetPreviewLimits sets the truncated preview size; zero values use the
// backend defaults
func (d *Datasets) SetPreviewLimits(rows, maxCellChars int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.previewRows = rows
	d.maxCellChars = maxCellChars
}

// List fetches the datasets and replaces the visible list
func (d *Datasets) List(ctx context.Context) ([]client.Dataset, error) {
	items, err := d.api.ListDatasets(ctx)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.items = items
	d.mu.Unlock()
	return append([]client.Dataset(nil), items...), nil
}

// Items returns the visible list
func (d *Datasets) Items() []client.Dataset {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]client.Dataset(nil), d.items...)
}

// Upload sends a CSV and appends the new dataset to the visible list
func (d *Datasets) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	id, err := d.api.UploadDataset(ctx, filename, content)
	if err != nil {
		d.logger.WithContext(ctx).Error("Dataset upload failed", err, logging.String("filename", filename))
		return "", err
	}

	d.mu.Lock()
	d.items = append(d.items, client.Dataset{ID: id, OriginalFilename: filename, Head: []client.Row{}})
	d.mu.Unlock()

	d.logger.WithContext(ctx).Info("Dataset uploaded",
		logging.String("dataset_id", id),
		logging.String("filename", filename))
	return id, nil
}

// Select makes id the selected dataset and loads its preview. The truncated
// preview is tried first, then the full one, then the head already in the
// visible list. A response for a dataset that is no longer selected is
// dropped with ErrSuperseded.
func (d *Datasets) Select(ctx context.Context, id string) (*client.DatasetPreview, error) {
	d.mu.Lock()
	d.generation++
	gen := d.generation
	d.selected = id
	d.preview = nil
	rows, maxChars := d.previewRows, d.maxCellChars
	listed, hasListed := d.findLocked(id)
	d.mu.Unlock()

	preview, err := d.fetchPreview(ctx, id, rows, maxChars)
	if err != nil {
		if !hasListed {
			return nil, err
		}
		d.logger.WithContext(ctx).Warn("Using listed head for dataset preview",
			logging.String("dataset_id", id), logging.Err(err))
		preview = &client.DatasetPreview{ID: listed.ID, NumRows: listed.NumRows, Head: listed.Head}
	}
	if preview.ID == "" {
		preview.ID = id
	}
	if preview.OriginalFilename == "" && hasListed {
		preview.OriginalFilename = listed.OriginalFilename
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.generation != gen {
		return nil, ErrSuperseded
	}
	d.preview = preview
	return preview, nil
}

func (d *Datasets) fetchPreview(ctx context.Context, id string, rows, maxChars int) (*client.DatasetPreview, error) {
	preview, err := d.api.TruncatedPreview(ctx, id, rows, maxChars)
	if err == nil {
		return preview, nil
	}
	d.logger.WithContext(ctx).Warn("Truncated preview failed, fetching full preview",
		logging.String("dataset_id", id), logging.Err(err))
	return d.api.DatasetPreview(ctx, id)
}

// Selected returns the selected dataset id and its preview, nil while it
// loads
func (d *Datasets) Selected() (string, *client.DatasetPreview) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected, d.preview
}

// Delete asks for confirmation, removes the dataset from the visible list
// and then deletes it on the backend. When the backend refuses, the dataset
// is put back where it was and the user is alerted. Returns false when the
// user declined or the delete failed.
func (d *Datasets) Delete(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	_, index, found := lo.FindIndexOf(d.items, func(item client.Dataset) bool { return item.ID == id })
	if !found {
		d.mu.Unlock()
		return false, errors.NotFoundError("dataset " + id)
	}
	item := d.items[index]
	d.mu.Unlock()

	if !d.confirmer.Confirm(fmt.Sprintf("Delete dataset %s?", displayName(item))) {
		return false, nil
	}

	d.mu.Lock()
	d.items = lo.Reject(d.items, func(it client.Dataset, _ int) bool { return it.ID == id })
	if d.selected == id {
		d.selected = ""
		d.preview = nil
		d.generation++
	}
	d.mu.Unlock()

	if _, err := d.api.DeleteDataset(ctx, id); err != nil {
		d.restore(item, index)
		d.logger.WithContext(ctx).Error("Dataset delete failed, restored", err, logging.String("dataset_id", id))
		d.notifier.Alert(fmt.Sprintf("Failed to delete dataset %s: %v", displayName(item), err))
		return false, err
	}

	d.logger.WithContext(ctx).Info("Dataset deleted", logging.String("dataset_id", id))
	return true, nil
}

// restore reinserts item at index unless a refresh already brought it back
func (d *Datasets) restore(item client.Dataset, index int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.findLocked(item.ID); exists {
		return
	}
	if index > len(d.items) {
		index = len(d.items)
	}
	d.items = append(d.items[:index], append([]client.Dataset{item}, d.items[index:]...)...)
}

func (d *Datasets) findLocked(id string) (client.Dataset, bool) {
	return lo.Find(d.items, func(item client.Dataset) bool { return item.ID == id })
}

func displayName(d client.Dataset) string {
	if d.OriginalFilename != "" {
		return d.OriginalFilename
	}
	return d.ID
}
