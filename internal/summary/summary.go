// Package summary computes descriptive statistics over a reconciled
// dataset for display. It never mutates the dataset.
package summary

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/fngerrors"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/models"
)

const component = "summary"

// Stats describes a dataset: record count, score statistics, the most
// recent observation, per-bucket counts, and how many rows carry a zero
// or missing score (zero-filled gaps included).
type Stats struct {
	Count         int
	Mean          decimal.Decimal
	Min           decimal.Decimal
	Max           decimal.Decimal
	LatestDate    time.Time
	LatestScore   decimal.Decimal
	Buckets       map[models.Bucket]int
	ZeroOrMissing int
}

// Compute derives statistics from the dataset. The dataset must be sorted
// ascending; reconciled datasets are. Zero records is an error the caller
// is expected to handle by skipping display.
func Compute(ds models.Dataset) (*Stats, error) {
	if len(ds) == 0 {
		return nil, fngerrors.E(fngerrors.KindEmptyDataset, component, "compute",
			fmt.Errorf("no records to summarize"))
	}

	stats := &Stats{
		Count:   len(ds),
		Buckets: make(map[models.Bucket]int, 4),
	}

	sum := decimal.Zero
	for i := range ds {
		score, err := ds[i].ScoreDecimal()
		if err != nil {
			return nil, fngerrors.E(fngerrors.KindSchema, component, "compute",
				fmt.Errorf("record %s: %w", ds[i].DateKey(), err))
		}

		if i == 0 {
			stats.Min, stats.Max = score, score
		} else {
			stats.Min = decimal.Min(stats.Min, score)
			stats.Max = decimal.Max(stats.Max, score)
		}
		sum = sum.Add(score)

		bucket, err := models.ClassifyScore(score)
		if err != nil {
			return nil, fngerrors.E(fngerrors.KindSchema, component, "compute",
				fmt.Errorf("record %s: %w", ds[i].DateKey(), err))
		}
		stats.Buckets[bucket]++

		if score.IsZero() {
			stats.ZeroOrMissing++
		}
	}

	stats.Mean = sum.Div(decimal.NewFromInt(int64(stats.Count)))

	latest := ds.Latest()
	stats.LatestDate = latest.Date
	latestScore, err := latest.ScoreDecimal()
	if err != nil {
		return nil, fngerrors.E(fngerrors.KindSchema, component, "compute",
			fmt.Errorf("latest record %s: %w", latest.DateKey(), err))
	}
	stats.LatestScore = latestScore

	return stats, nil
}

// Render writes the summary as a plain-text table.
func Render(w io.Writer, stats *Stats) error {
	rows := [][2]string{
		{"Total Records", fmt.Sprintf("%d", stats.Count)},
		{"Average F&G", stats.Mean.StringFixed(2)},
		{"Min F&G", stats.Min.String()},
		{"Max F&G", stats.Max.String()},
		{"Latest", fmt.Sprintf("%s (%s)", stats.LatestDate.Format("2006-01-02"), stats.LatestScore)},
		{"Missing/Zero Values", fmt.Sprintf("%d", stats.ZeroOrMissing)},
	}
	for _, bucket := range models.Buckets() {
		rows = append(rows, [2]string{string(bucket), fmt.Sprintf("%d", stats.Buckets[bucket])})
	}

	width := 0
	for _, row := range rows {
		if len(row[0]) > width {
			width = len(row[0])
		}
	}

	if _, err := fmt.Fprintln(w, "Fear and Greed Index Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, strings.Repeat("-", width+24)); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(w, "%-*s  %s\n", width, row[0], row[1]); err != nil {
			return err
		}
	}
	return nil
}
