package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/marcboeker/go-duckdb/v2"
	"github.com/shopspring/decimal"

	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/fngerrors"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/models"
)

const sentimentTable = "sentiment"

// createSentimentTable mirrors the text schema: one row per date, score
// constrained to the index range.
const createSentimentTable = `
CREATE TABLE IF NOT EXISTS sentiment (
	date TIMESTAMP NOT NULL,
	fear_greed DOUBLE NOT NULL,
	rating VARCHAR,
	CONSTRAINT sentiment_pk PRIMARY KEY (date),
	CONSTRAINT sentiment_score_range CHECK (fear_greed >= 0 AND fear_greed <= 100)
)`

// WriteDuckDB persists the dataset as a DuckDB table, replacing any
// existing file at path. Bulk loading goes through the DuckDB appender.
// Records must all carry a score; reconciled datasets do.
func WriteDuckDB(ctx context.Context, ds models.Dataset, path string) error {
	// Destination is replaced, not merged into.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fngerrors.E(fngerrors.KindIO, component, "write_duckdb", err)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fngerrors.E(fngerrors.KindIO, component, "write_duckdb",
			fmt.Errorf("open database: %w", err))
	}
	defer db.Close()

	// Single writer, as recommended for DuckDB.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, createSentimentTable); err != nil {
		return fngerrors.E(fngerrors.KindIO, component, "write_duckdb",
			fmt.Errorf("create table: %w", err))
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return fngerrors.E(fngerrors.KindIO, component, "write_duckdb",
			fmt.Errorf("get connection: %w", err))
	}
	defer conn.Close()

	var appendErr error
	err = conn.Raw(func(dc interface{}) error {
		driverConn, ok := dc.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("underlying connection is not a DuckDB connection")
		}

		appender, err := duckdb.NewAppenderFromConn(driverConn, "", sentimentTable)
		if err != nil {
			return fmt.Errorf("create appender: %w", err)
		}

		for i := range ds {
			score, err := ds[i].ScoreDecimal()
			if err != nil {
				appendErr = fmt.Errorf("record %s: %w", ds[i].DateKey(), err)
				break
			}
			if err := appender.AppendRow(ds[i].Date, score.InexactFloat64(), ds[i].Rating); err != nil {
				appendErr = fmt.Errorf("append %s: %w", ds[i].DateKey(), err)
				break
			}
		}

		if err := appender.Close(); err != nil && appendErr == nil {
			appendErr = fmt.Errorf("flush appender: %w", err)
		}
		return appendErr
	})
	if err != nil {
		return fngerrors.E(fngerrors.KindIO, component, "write_duckdb", err)
	}

	return nil
}

// ReadDuckDB loads a dataset previously written by WriteDuckDB, ordered
// ascending by date.
func ReadDuckDB(ctx context.Context, path string) (models.Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fngerrors.E(fngerrors.KindIO, component, "read_duckdb", err)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fngerrors.E(fngerrors.KindIO, component, "read_duckdb",
			fmt.Errorf("open database: %w", err))
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	rows, err := db.QueryContext(ctx,
		"SELECT date, fear_greed, rating FROM sentiment ORDER BY date ASC")
	if err != nil {
		return nil, fngerrors.E(fngerrors.KindSchema, component, "read_duckdb",
			fmt.Errorf("query sentiment table: %w", err))
	}
	defer rows.Close()

	var ds models.Dataset
	for rows.Next() {
		var (
			record models.SentimentRecord
			score  float64
			rating sql.NullString
		)
		if err := rows.Scan(&record.Date, &score, &rating); err != nil {
			return nil, fngerrors.E(fngerrors.KindSchema, component, "read_duckdb", err)
		}
		record.Date = models.Day(record.Date)
		record.Score = decimal.NewFromFloat(score).String()
		record.Rating = rating.String
		ds = append(ds, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fngerrors.E(fngerrors.KindIO, component, "read_duckdb", err)
	}

	return ds, nil
}
