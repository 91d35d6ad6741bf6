// Package reconcile merges locally loaded and freshly fetched sentiment
// records into one canonical dataset: deduplicated by date with the remote
// value winning, sorted ascending, and with every date in the requested
// range given a score under the active missing-value policy.
package reconcile

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/fngerrors"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/models"
)

const component = "reconcile"

// Policy selects how dates without source data are resolved.
type Policy string

const (
	// PolicyZeroFill assigns literal zero to dates with no score.
	PolicyZeroFill Policy = "zerofill"
	// PolicyBackfill carries the nearest prior score forward; leading
	// dates with no prior value anywhere are dropped and reported, never
	// defaulted.
	PolicyBackfill Policy = "backfill"
)

// ParsePolicy normalizes a policy selector string.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", string(PolicyZeroFill), "zero-fill", "zero":
		return PolicyZeroFill, nil
	case string(PolicyBackfill):
		return PolicyBackfill, nil
	default:
		return "", fmt.Errorf("unknown missing-value policy %q (want zerofill or backfill)", s)
	}
}

// Result is the canonical dataset for a run plus any dates the active
// policy could not resolve.
type Result struct {
	// Dataset holds exactly one record per date in the requested range,
	// ascending, minus any unresolved dates.
	Dataset models.Dataset

	// Unresolved lists dates dropped under backfill because no prior
	// score existed. Empty under zero-fill.
	Unresolved []time.Time
}

// Reconciler produces the canonical dataset for a run.
type Reconciler struct {
	logger *slog.Logger
}

// New creates a reconciler.
func New(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{logger: logger.With("component", component)}
}

// Reconcile merges local and remote records and resolves every date in the
// closed interval [start, end] under the given policy. The remote record
// wins when both sources cover a date. Records outside the range still
// participate as carry-forward sources for backfill.
func (r *Reconciler) Reconcile(local, remote models.Dataset, start, end time.Time, policy Policy) (*Result, error) {
	start, end = models.Day(start), models.Day(end)
	if end.Before(start) {
		return nil, fngerrors.E(fngerrors.KindInvalidDateRange, component, "reconcile",
			fmt.Errorf("end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02")))
	}
	if policy != PolicyZeroFill && policy != PolicyBackfill {
		return nil, fngerrors.E(fngerrors.KindInvalidDateRange, component, "reconcile",
			fmt.Errorf("unknown policy %q", policy))
	}

	// Remote appended after local so the dedupe keeps the remote record.
	merged := append(local.Clone(), remote...).DedupeByDate()
	if err := merged.Validate(); err != nil {
		return nil, fngerrors.E(fngerrors.KindSchema, component, "reconcile", err)
	}

	byDate := make(map[string]models.SentimentRecord, len(merged))
	for _, record := range merged {
		byDate[record.DateKey()] = record
	}

	result := &Result{Dataset: make(models.Dataset, 0, int(end.Sub(start).Hours()/24)+1)}
	filled := 0

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if record, ok := byDate[day.Format("2006-01-02")]; ok && record.HasScore() {
			result.Dataset = append(result.Dataset, record)
			continue
		}

		switch policy {
		case PolicyZeroFill:
			result.Dataset = append(result.Dataset, models.SentimentRecord{Date: day, Score: "0"})
			filled++
		case PolicyBackfill:
			if prior, ok := nearestPrior(merged, day); ok {
				result.Dataset = append(result.Dataset,
					models.SentimentRecord{Date: day, Score: prior.Score, Rating: prior.Rating})
				filled++
			} else {
				result.Unresolved = append(result.Unresolved, day)
			}
		}
	}

	if len(result.Unresolved) > 0 {
		r.logger.Warn("dates unresolved under backfill policy",
			"count", len(result.Unresolved),
			"first", result.Unresolved[0].Format("2006-01-02"),
			"last", result.Unresolved[len(result.Unresolved)-1].Format("2006-01-02"))
	}

	r.logger.Debug("reconciled dataset",
		"records", len(result.Dataset),
		"filled", filled,
		"policy", string(policy))

	return result, nil
}

// nearestPrior returns the record with the greatest date strictly before
// day. merged must be sorted ascending with scores present.
func nearestPrior(merged models.Dataset, day time.Time) (*models.SentimentRecord, bool) {
	for i := len(merged) - 1; i >= 0; i-- {
		if merged[i].Date.Before(day) && merged[i].HasScore() {
			return &merged[i], true
		}
	}
	return nil, false
}
