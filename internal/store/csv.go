package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/fngerrors"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/models"
)

// Column headers written by WriteCSV. LoadCSV accepts these plus the
// legacy capitalized spellings ("Date", "Fear Greed") used by older
// exports.
const (
	dateColumn   = "date"
	scoreColumn  = "fear_greed"
	ratingColumn = "rating"
)

// WriteCSV writes the dataset as delimited text with a header row, one
// data row per date, dates in YYYY-MM-DD form and scores as plain decimal
// strings.
func WriteCSV(ds models.Dataset, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fngerrors.E(fngerrors.KindIO, component, "write_csv", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{dateColumn, scoreColumn, ratingColumn}); err != nil {
		return fngerrors.E(fngerrors.KindIO, component, "write_csv", err)
	}
	for i := range ds {
		row := []string{ds[i].DateKey(), ds[i].Score, ds[i].Rating}
		if err := w.Write(row); err != nil {
			return fngerrors.E(fngerrors.KindIO, component, "write_csv", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fngerrors.E(fngerrors.KindIO, component, "write_csv", err)
	}
	if err := f.Close(); err != nil {
		return fngerrors.E(fngerrors.KindIO, component, "write_csv", err)
	}

	return nil
}

// LoadCSV reads a dataset from delimited text. The header row must carry a
// date column and a score column; extra columns are ignored. A missing
// file is an IO failure (errors.Is-matchable against fs.ErrNotExist);
// missing or mistyped columns are schema failures.
func LoadCSV(path string) (models.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fngerrors.E(fngerrors.KindIO, component, "load_csv", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // header decides, rows validated below

	header, err := r.Read()
	if err == io.EOF {
		return nil, fngerrors.E(fngerrors.KindSchema, component, "load_csv",
			fmt.Errorf("%s: empty file, header row required", path))
	}
	if err != nil {
		return nil, fngerrors.E(fngerrors.KindSchema, component, "load_csv", err)
	}

	dateIdx, scoreIdx, ratingIdx := -1, -1, -1
	for i, name := range header {
		switch normalizeColumn(name) {
		case dateColumn:
			dateIdx = i
		case scoreColumn, "fear_greed_score", "score", "value":
			scoreIdx = i
		case ratingColumn:
			ratingIdx = i
		}
	}
	if dateIdx < 0 || scoreIdx < 0 {
		return nil, fngerrors.E(fngerrors.KindSchema, component, "load_csv",
			fmt.Errorf("%s: header %v missing required date and score columns", path, header))
	}

	var ds models.Dataset
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fngerrors.E(fngerrors.KindSchema, component, "load_csv",
				fmt.Errorf("%s line %d: %w", path, line, err))
		}
		if scoreIdx >= len(row) || dateIdx >= len(row) {
			return nil, fngerrors.E(fngerrors.KindSchema, component, "load_csv",
				fmt.Errorf("%s line %d: too few columns", path, line))
		}

		date, err := parseDate(row[dateIdx])
		if err != nil {
			return nil, fngerrors.E(fngerrors.KindSchema, component, "load_csv",
				fmt.Errorf("%s line %d: %w", path, line, err))
		}

		rating := ""
		if ratingIdx >= 0 && ratingIdx < len(row) {
			rating = row[ratingIdx]
		}

		record, err := models.NewRecord(date, strings.TrimSpace(row[scoreIdx]), rating)
		if err != nil {
			return nil, fngerrors.E(fngerrors.KindSchema, component, "load_csv",
				fmt.Errorf("%s line %d: %w", path, line, err))
		}
		ds = append(ds, *record)
	}

	ds.SortByDate()
	return ds, nil
}

// normalizeColumn lowercases a header name and folds spaces and dashes to
// underscores, so "Fear Greed" matches "fear_greed".
func normalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	return name
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return models.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
}
