// Package models provides the canonical data structures for Fear & Greed
// Index observations. It defines the per-day sentiment record, the ordered
// dataset type, and the categorical sentiment buckets with their fixed
// score thresholds.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Score bounds for the composite index.
var (
	scoreMin = decimal.Zero
	scoreMax = decimal.NewFromInt(100)
)

// SentimentRecord represents one calendar day's Fear & Greed observation.
// Score is carried as a decimal string to avoid float drift between the
// upstream API, CSV files, and columnar storage. An empty Score means the
// observation is absent for that day.
type SentimentRecord struct {
	Date   time.Time `json:"date" db:"date"`
	Score  string    `json:"fear_greed" db:"fear_greed"`
	Rating string    `json:"rating,omitempty" db:"rating"`
}

// ValidationError reports a record field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %s: %s", e.Field, e.Message)
}

// Validate checks that the record has a usable date and, when a score is
// present, that it parses as a decimal within [0, 100].
func (r *SentimentRecord) Validate() error {
	if r.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "date cannot be zero"}
	}
	if r.Score == "" {
		return nil
	}

	score, err := decimal.NewFromString(r.Score)
	if err != nil {
		return &ValidationError{Field: "fear_greed", Message: fmt.Sprintf("invalid score format: %v", err)}
	}
	if score.LessThan(scoreMin) || score.GreaterThan(scoreMax) {
		return &ValidationError{Field: "fear_greed", Message: fmt.Sprintf("score %s outside [0, 100]", score)}
	}

	return nil
}

// HasScore reports whether the record carries an observation.
func (r *SentimentRecord) HasScore() bool {
	return r.Score != ""
}

// ScoreDecimal returns the score as a decimal.Decimal for precise
// calculations. Returns an error if the score is absent or malformed.
func (r *SentimentRecord) ScoreDecimal() (decimal.Decimal, error) {
	if r.Score == "" {
		return decimal.Zero, &ValidationError{Field: "fear_greed", Message: "score is absent"}
	}
	return decimal.NewFromString(r.Score)
}

// DateKey returns the record's date in YYYY-MM-DD form, the canonical
// deduplication key.
func (r *SentimentRecord) DateKey() string {
	return r.Date.Format("2006-01-02")
}

// String implements fmt.Stringer.
func (r *SentimentRecord) String() string {
	return fmt.Sprintf("SentimentRecord{Date: %s, Score: %s, Rating: %s}", r.DateKey(), r.Score, r.Rating)
}

// NewRecord builds a validated record for the given day. The date is
// normalized to UTC midnight.
func NewRecord(date time.Time, score, rating string) (*SentimentRecord, error) {
	record := &SentimentRecord{
		Date:   Day(date),
		Score:  score,
		Rating: rating,
	}

	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	return record, nil
}

// Day truncates a timestamp to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
