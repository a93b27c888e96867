package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"pipeline-builder/internal/client"
	"pipeline-builder/internal/common/errors"
	"pipeline-builder/internal/common/logging"
	"pipeline-builder/internal/common/utils"
)

const (
	defaultPollInterval  = 5 * time.Second
	defaultPreviewRows   = 20
	defaultMaxCellChars  = 200
	maxParallelArtifacts = 4
)

// AnalysisAPI is the part of the backend client the monitor uses
type AnalysisAPI interface {
	ListAnalyses(ctx context.Context) ([]client.AnalysisSummary, error)
	Analysis(ctx context.Context, id string) (*client.Analysis, error)
	ArtifactRows(ctx context.Context, analysisID, key string, nrows int) ([]client.Row, error)
	ArtifactCSV(ctx context.Context, analysisID, key string) ([]byte, error)
	ListDatasets(ctx context.Context) ([]client.Dataset, error)
}

// MonitorOptions configure an AnalysisMonitor. Zero values use the defaults.
type MonitorOptions struct {
	Interval     time.Duration
	PreviewRows  int
	MaxCellChars int
	// OnChange is called after the selected analysis was replaced because
	// its status changed
	OnChange func(*client.Analysis)
}

// AnalysisView is an analysis summary joined with its dataset's name
type AnalysisView struct {
	client.AnalysisSummary
	DatasetName string
}

// AnalysisMonitor polls the analysis list and the selected analysis on a
// fixed interval while started
type AnalysisMonitor struct {
	mu       sync.Mutex
	api      AnalysisAPI
	opts     MonitorOptions
	cron     *cron.Cron
	analyses []client.AnalysisSummary
	names    map[string]string
	selected *client.Analysis
	previews map[string][]client.Row
	selGen   uint64
	logger   logging.Logger
}

// NewAnalysisMonitor creates a stopped monitor
func NewAnalysisMonitor(api AnalysisAPI, opts MonitorOptions) *AnalysisMonitor {
	if opts.Interval <= 0 {
		opts.Interval = defaultPollInterval
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = defaultPreviewRows
	}
	if opts.MaxCellChars <= 0 {
		opts.MaxCellChars = defaultMaxCellChars
	}
	return &AnalysisMonitor{
		api:      api,
		opts:     opts,
		names:    map[string]string{},
		previews: map[string][]client.Row{},
		logger:   logging.Component("analysis_monitor"),
	}
}

// Start begins polling. Starting a running monitor is a no-op.
func (m *AnalysisMonitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cron != nil {
		return nil
	}

	c := cron.New()
	spec := fmt.Sprintf("@every %s", m.opts.Interval)
	if _, err := c.AddFunc(spec, m.poll); err != nil {
		return errors.ConfigError(fmt.Sprintf("invalid poll interval %s: %v", m.opts.Interval, err))
	}
	c.Start()
	m.cron = c

	m.logger.Debug("Analysis polling started", logging.Duration("interval", m.opts.Interval))
	return nil
}

// Stop ends polling and waits for an in-flight poll to finish
func (m *AnalysisMonitor) Stop() {
	m.mu.Lock()
	c := m.cron
	m.cron = nil
	m.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	m.logger.Debug("Analysis polling stopped")
}

// Running reports whether the monitor is polling
func (m *AnalysisMonitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cron != nil
}

func (m *AnalysisMonitor) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.Interval)
	defer cancel()

	if err := m.Refresh(ctx); err != nil {
		m.logger.Warn("Analysis poll failed", logging.Err(err))
	}
}

// Refresh fetches the analysis list and dataset names together, then the
// selected analysis. The selection is replaced only when its status
// changed; its artifact previews are reloaded at that point.
func (m *AnalysisMonitor) Refresh(ctx context.Context) error {
	var (
		analyses []client.AnalysisSummary
		datasets []client.Dataset
		dsErr    error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		analyses, err = m.api.ListAnalyses(gctx)
		return err
	})
	g.Go(func() error {
		datasets, dsErr = m.api.ListDatasets(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	m.mu.Lock()
	m.analyses = analyses
	if dsErr != nil {
		m.logger.WithContext(ctx).Warn("Dataset names not refreshed", logging.Err(dsErr))
	} else {
		m.names = lo.SliceToMap(datasets, func(d client.Dataset) (string, string) {
			return d.ID, displayName(d)
		})
	}
	current := m.selected
	gen := m.selGen
	m.mu.Unlock()

	if current == nil {
		return nil
	}

	detail, err := m.api.Analysis(ctx, current.ID)
	if err != nil {
		return err
	}
	if detail.Status == current.Status {
		return nil
	}

	previews := m.loadPreviews(ctx, detail)

	m.mu.Lock()
	if m.selGen != gen {
		m.mu.Unlock()
		return nil
	}
	m.selected = detail
	m.previews = previews
	onChange := m.opts.OnChange
	m.mu.Unlock()

	m.logger.WithContext(ctx).Info("Analysis status changed",
		logging.String("analysis_id", detail.ID),
		logging.String("from", string(current.Status)),
		logging.String("to", string(detail.Status)))
	if onChange != nil {
		onChange(detail)
	}
	return nil
}

// Analyses returns the last fetched analyses with their dataset names. A
// dataset that is not listed is named by its id.
func (m *AnalysisMonitor) Analyses() []AnalysisView {
	m.mu.Lock()
	defer m.mu.Unlock()

	return lo.Map(m.analyses, func(a client.AnalysisSummary, _ int) AnalysisView {
		name, ok := m.names[a.DatasetID]
		if !ok {
			name = a.DatasetID
		}
		return AnalysisView{AnalysisSummary: a, DatasetName: name}
	})
}

// Select loads an analysis and previews of all its artifacts. A result for
// an analysis that is no longer selected is dropped with ErrSuperseded.
func (m *AnalysisMonitor) Select(ctx context.Context, id string) (*client.Analysis, error) {
	m.mu.Lock()
	m.selGen++
	gen := m.selGen
	m.mu.Unlock()

	detail, err := m.api.Analysis(ctx, id)
	if err != nil {
		return nil, err
	}
	previews := m.loadPreviews(ctx, detail)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selGen != gen {
		return nil, ErrSuperseded
	}
	m.selected = detail
	m.previews = previews
	return detail, nil
}

// Deselect clears the selection; pending loads for it are dropped
func (m *AnalysisMonitor) Deselect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selGen++
	m.selected = nil
	m.previews = map[string][]client.Row{}
}

// Selected returns the selected analysis, nil when none
func (m *AnalysisMonitor) Selected() *client.Analysis {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

// Previews returns the artifact previews of the selected analysis keyed by
// artifact name
func (m *AnalysisMonitor) Previews() map[string][]client.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Assign(m.previews)
}

// ArtifactCSV downloads one artifact in full
func (m *AnalysisMonitor) ArtifactCSV(ctx context.Context, analysisID, key string) ([]byte, error) {
	return m.api.ArtifactCSV(ctx, analysisID, key)
}

// loadPreviews fetches the first rows of every artifact concurrently. An
// artifact that fails to load is left out.
func (m *AnalysisMonitor) loadPreviews(ctx context.Context, a *client.Analysis) map[string][]client.Row {
	var mu sync.Mutex
	previews := make(map[string][]client.Row, len(a.Artifacts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelArtifacts)
	for _, key := range lo.Keys(a.Artifacts) {
		key := key
		g.Go(func() error {
			rows, err := m.api.ArtifactRows(gctx, a.ID, key, m.opts.PreviewRows)
			if err != nil {
				m.logger.WithContext(ctx).Warn("Artifact preview failed",
					logging.String("analysis_id", a.ID),
					logging.String("artifact", key),
					logging.Err(err))
				return nil
			}

			truncated := lo.Map(rows, func(row client.Row, _ int) client.Row {
				return lo.MapValues(row, func(v interface{}, _ string) interface{} {
					return utils.TruncateCell(v, m.opts.MaxCellChars)
				})
			})
			mu.Lock()
			previews[key] = truncated
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return previews
}
