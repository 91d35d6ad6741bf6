package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/fngerrors"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/models"
)

func TestDuckDB_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fng.duckdb")
	ds := sampleDataset(t)

	require.NoError(t, WriteDuckDB(context.Background(), ds, path))

	loaded, err := ReadDuckDB(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, loaded, len(ds))
	assert.True(t, ds.Equal(loaded))
	assert.Equal(t, "fear", loaded[0].Rating)
	assert.Equal(t, "2024-01-01", loaded[0].DateKey())
}

func TestWriteDuckDB_ReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fng.duckdb")

	require.NoError(t, WriteDuckDB(context.Background(), sampleDataset(t), path))
	require.NoError(t, WriteDuckDB(context.Background(),
		models.Dataset{record(t, "2024-02-01", "50", "greed")}, path))

	loaded, err := ReadDuckDB(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "2024-02-01", loaded[0].DateKey())
}

func TestWriteDuckDB_RejectsScorelessRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fng.duckdb")
	ds := models.Dataset{
		record(t, "2024-01-01", "45", "fear"),
		{Date: record(t, "2024-01-02", "0", "").Date}, // no score
	}

	err := WriteDuckDB(context.Background(), ds, path)
	require.Error(t, err)
	assert.True(t, fngerrors.IsKind(err, fngerrors.KindIO))
}

func TestReadDuckDB_MissingFile(t *testing.T) {
	_, err := ReadDuckDB(context.Background(), filepath.Join(t.TempDir(), "nope.duckdb"))
	require.Error(t, err)
	assert.True(t, fngerrors.IsKind(err, fngerrors.KindIO))
}

func TestWriteDuckDB_EmptyDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.duckdb")

	require.NoError(t, WriteDuckDB(context.Background(), nil, path))

	loaded, err := ReadDuckDB(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
