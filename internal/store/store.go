// Package store persists sentiment datasets and loads pre-existing ones.
// Two formats are supported: delimited text (CSV) and a columnar DuckDB
// table. Both round-trip losslessly through their matching readers.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/fngerrors"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/models"
)

// Format selects the on-disk representation of a dataset.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatDuckDB Format = "duckdb"
)

const component = "store"

// ParseFormat normalizes a format selector string.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "duckdb":
		return FormatDuckDB, nil
	default:
		return "", fngerrors.E(fngerrors.KindUnsupportedFormat, component, "parse_format",
			fmt.Errorf("unsupported format %q (want csv or duckdb)", s))
	}
}

// Write persists the dataset to path in the selected format, overwriting
// any existing file. Parent directories are not created; a missing parent
// is an IO failure.
func Write(ctx context.Context, ds models.Dataset, path string, format Format) error {
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return fngerrors.E(fngerrors.KindIO, component, "write",
			fmt.Errorf("destination directory %s: %w", filepath.Dir(path), err))
	}

	switch format {
	case FormatCSV:
		return WriteCSV(ds, path)
	case FormatDuckDB:
		return WriteDuckDB(ctx, ds, path)
	default:
		return fngerrors.E(fngerrors.KindUnsupportedFormat, component, "write",
			fmt.Errorf("unsupported format %q", format))
	}
}
