package models

import (
	"sort"
)

// Dataset is an ordered sequence of sentiment records, at most one per
// calendar date once reconciled. It is owned by a single pipeline run and
// never shared across goroutines.
type Dataset []SentimentRecord

// SortByDate orders the dataset ascending by date, in place.
func (d Dataset) SortByDate() {
	sort.Slice(d, func(i, j int) bool {
		return d[i].Date.Before(d[j].Date)
	})
}

// DedupeByDate collapses records sharing a calendar date, keeping the last
// occurrence in slice order. The result is sorted ascending. Callers that
// need "remote wins" semantics append the remote records after the local
// ones before calling.
func (d Dataset) DedupeByDate() Dataset {
	byDate := make(map[string]SentimentRecord, len(d))
	for _, record := range d {
		byDate[record.DateKey()] = record
	}

	out := make(Dataset, 0, len(byDate))
	for _, record := range byDate {
		out = append(out, record)
	}
	out.SortByDate()
	return out
}

// Clone returns an independent copy of the dataset.
func (d Dataset) Clone() Dataset {
	out := make(Dataset, len(d))
	copy(out, d)
	return out
}

// Equal reports whether two datasets hold the same dates and scores in the
// same order. Ratings are display metadata and do not affect equality.
func (d Dataset) Equal(other Dataset) bool {
	if len(d) != len(other) {
		return false
	}
	for i := range d {
		if !d[i].Date.Equal(other[i].Date) || d[i].Score != other[i].Score {
			return false
		}
	}
	return true
}

// Latest returns the most recent record, or nil for an empty dataset.
// Assumes the dataset is sorted ascending.
func (d Dataset) Latest() *SentimentRecord {
	if len(d) == 0 {
		return nil
	}
	return &d[len(d)-1]
}

// Validate checks every record in the dataset.
func (d Dataset) Validate() error {
	for i := range d {
		if err := d[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
