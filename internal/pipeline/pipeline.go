// Package pipeline orchestrates one run of the data-reconciliation
// pipeline: fetch, optional local load, reconcile, persist, summarize.
// The front-end resolves a config.Config, calls Run, and receives the
// final dataset plus a tagged error on failure.
package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/config"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/fngerrors"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/models"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/reconcile"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/store"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/summary"
)

// Fetcher retrieves the remote sentiment series for a closed date range.
type Fetcher interface {
	FetchHistorical(ctx context.Context, start, end time.Time) (models.Dataset, error)
}

// Pipeline runs the fetch/merge/fill/persist sequence.
type Pipeline struct {
	fetcher    Fetcher
	reconciler *reconcile.Reconciler
	logger     *slog.Logger
}

// Result is what a successful run hands back to the front-end.
type Result struct {
	// Dataset is the final reconciled dataset, ordered ascending.
	Dataset models.Dataset

	// Stats is the dataset summary, nil when the summary flag is off.
	Stats *summary.Stats

	// Unresolved lists dates the backfill policy could not resolve.
	Unresolved []time.Time

	// OutputPath is the file the dataset was written to.
	OutputPath string
}

// New creates a pipeline around the given fetcher.
func New(fetcher Fetcher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher:    fetcher,
		reconciler: reconcile.New(logger),
		logger:     logger,
	}
}

// Run executes one pipeline invocation. All failures come back as tagged
// *fngerrors.Error values; nothing is swallowed.
func (p *Pipeline) Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	log := p.logger.With("run_id", uuid.NewString())

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Validated above; these cannot fail now.
	start, end, _ := cfg.Range()
	format, _ := store.ParseFormat(cfg.Format)
	policy, _ := reconcile.ParsePolicy(cfg.Policy)

	log.Info("starting pipeline run",
		"start", start.Format(config.DateLayout),
		"end", end.Format(config.DateLayout),
		"format", string(format),
		"policy", string(policy))

	local, err := p.loadLocal(log, cfg.InputPath)
	if err != nil {
		return nil, err
	}

	remote, err := p.fetcher.FetchHistorical(ctx, start, end)
	if err != nil {
		// A remote that has nothing new is tolerable when the local data
		// already covers the whole range; it passes through under policy.
		if fngerrors.IsKind(err, fngerrors.KindEmptyResult) && coversRange(local, start, end) {
			log.Warn("remote returned no records, range covered by local data", "error", err)
			remote = nil
		} else {
			return nil, err
		}
	}

	reconciled, err := p.reconciler.Reconcile(local, remote, start, end, policy)
	if err != nil {
		return nil, err
	}

	if err := store.Write(ctx, reconciled.Dataset, cfg.OutputPath, format); err != nil {
		return nil, err
	}
	log.Info("dataset written",
		"path", cfg.OutputPath,
		"format", string(format),
		"records", len(reconciled.Dataset))

	result := &Result{
		Dataset:    reconciled.Dataset,
		Unresolved: reconciled.Unresolved,
		OutputPath: cfg.OutputPath,
	}

	if cfg.ShowSummary {
		stats, err := summary.Compute(reconciled.Dataset)
		if err != nil {
			// An empty dataset has nothing to display; anything else is real.
			if !fngerrors.IsKind(err, fngerrors.KindEmptyDataset) {
				return nil, err
			}
			log.Warn("skipping summary for empty dataset")
		} else {
			result.Stats = stats
		}
	}

	return result, nil
}

// loadLocal reads the optional pre-existing dataset. A configured path
// that does not exist is a warning, not a failure: the run proceeds with
// remote data only.
func (p *Pipeline) loadLocal(log *slog.Logger, path string) (models.Dataset, error) {
	if path == "" {
		return nil, nil
	}

	local, err := store.LoadCSV(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn("input dataset not found, continuing without local data", "path", path)
			return nil, nil
		}
		return nil, err
	}

	log.Info("loaded local dataset", "path", path, "records", len(local))
	return local, nil
}

// coversRange reports whether the dataset has a scored record for every
// day in [start, end].
func coversRange(ds models.Dataset, start, end time.Time) bool {
	if len(ds) == 0 {
		return false
	}

	scored := make(map[string]bool, len(ds))
	for i := range ds {
		if ds[i].HasScore() {
			scored[ds[i].DateKey()] = true
		}
	}
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if !scored[day.Format("2006-01-02")] {
			return false
		}
	}
	return true
}
