// Package config provides the resolved configuration a pipeline run is
// invoked with. Values come from defaults, an optional JSON file, and
// FNG_* environment overrides, in that order. No component reads implicit
// global state; the front-end resolves a Config and hands it to the
// pipeline.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/fngerrors"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/models"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/reconcile"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/store"
)

const component = "config"

// DateLayout is the date form accepted everywhere: YYYY-MM-DD.
const DateLayout = "2006-01-02"

// Config is the resolved invocation of one pipeline run.
type Config struct {
	// StartDate is the first date of the requested range, YYYY-MM-DD.
	StartDate string `json:"start_date" env:"FNG_START_DATE"`

	// EndDate is the last date of the requested range, YYYY-MM-DD.
	// Empty means today.
	EndDate string `json:"end_date" env:"FNG_END_DATE"`

	// InputPath optionally points at an existing CSV dataset to merge
	// with the fetched data.
	InputPath string `json:"input_path" env:"FNG_INPUT_PATH"`

	// OutputPath is where the reconciled dataset is written.
	OutputPath string `json:"output_path" env:"FNG_OUTPUT_PATH"`

	// Format selects the output representation: "csv" or "duckdb".
	Format string `json:"format" env:"FNG_FORMAT"`

	// Policy selects the missing-value policy: "zerofill" or "backfill".
	Policy string `json:"policy" env:"FNG_POLICY"`

	// ShowSummary prints descriptive statistics after a run.
	ShowSummary bool `json:"show_summary" env:"FNG_SUMMARY"`

	// Logging configures the structured logger.
	Logging LoggingConfig `json:"logging"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level      string `json:"level" env:"FNG_LOG_LEVEL"`        // debug, info, warn, error
	Format     string `json:"format" env:"FNG_LOG_FORMAT"`      // json, text
	Output     string `json:"output" env:"FNG_LOG_OUTPUT"`      // stdout, stderr, file
	FilePath   string `json:"file_path" env:"FNG_LOG_FILE"`     // log file path when output is "file"
	MaxSize    int    `json:"max_size" env:"FNG_LOG_MAX_SIZE"`  // megabytes before rotation
	MaxBackups int    `json:"max_backups"`                      // rotated files kept
	MaxAge     int    `json:"max_age"`                          // days rotated files kept
	Compress   bool   `json:"compress"`                         // compress rotated files
}

// Default returns the baseline configuration: full available history,
// ending today, written as DuckDB with zero-fill and a summary.
func Default() *Config {
	return &Config{
		StartDate:   "2020-09-19", // earliest date the upstream serves
		EndDate:     "",
		OutputPath:  "fng_data.duckdb",
		Format:      string(store.FormatDuckDB),
		Policy:      string(reconcile.PolicyZeroFill),
		ShowSummary: true,
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     14,
		},
	}
}

// Load resolves the configuration from defaults, the JSON file at path if
// it exists, and environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// No config file; defaults and environment apply.
		case err != nil:
			return nil, fngerrors.E(fngerrors.KindIO, component, "load",
				fmt.Errorf("read config file %s: %w", path, err))
		default:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fngerrors.E(fngerrors.KindSchema, component, "load",
					fmt.Errorf("parse config file %s: %w", path, err))
			}
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setIfPresent := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}

	setIfPresent("FNG_START_DATE", &cfg.StartDate)
	setIfPresent("FNG_END_DATE", &cfg.EndDate)
	setIfPresent("FNG_INPUT_PATH", &cfg.InputPath)
	setIfPresent("FNG_OUTPUT_PATH", &cfg.OutputPath)
	setIfPresent("FNG_FORMAT", &cfg.Format)
	setIfPresent("FNG_POLICY", &cfg.Policy)
	setIfPresent("FNG_LOG_LEVEL", &cfg.Logging.Level)
	setIfPresent("FNG_LOG_FORMAT", &cfg.Logging.Format)
	setIfPresent("FNG_LOG_OUTPUT", &cfg.Logging.Output)
	setIfPresent("FNG_LOG_FILE", &cfg.Logging.FilePath)

	if val := os.Getenv("FNG_SUMMARY"); val != "" {
		if show, err := strconv.ParseBool(val); err == nil {
			cfg.ShowSummary = show
		}
	}
	if val := os.Getenv("FNG_LOG_MAX_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			cfg.Logging.MaxSize = size
		}
	}
}

// Validate checks dates, range order, format, and policy, returning a
// tagged error on the first problem.
func (c *Config) Validate() error {
	if _, _, err := c.Range(); err != nil {
		return err
	}

	if c.OutputPath == "" {
		return fngerrors.E(fngerrors.KindIO, component, "validate",
			fmt.Errorf("output path is required"))
	}
	if _, err := store.ParseFormat(c.Format); err != nil {
		return err
	}
	if _, err := reconcile.ParsePolicy(c.Policy); err != nil {
		return fngerrors.E(fngerrors.KindInvalidDateRange, component, "validate", err)
	}

	return nil
}

// Range parses the configured date range. An empty end date means today.
// The range is inclusive on both ends; start == end is a one-day range.
func (c *Config) Range() (start, end time.Time, err error) {
	start, err = time.Parse(DateLayout, c.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, fngerrors.E(fngerrors.KindInvalidDateRange, component, "range",
			fmt.Errorf("invalid start date %q, want YYYY-MM-DD: %w", c.StartDate, err))
	}

	if c.EndDate == "" {
		end = models.Day(time.Now())
	} else {
		end, err = time.Parse(DateLayout, c.EndDate)
		if err != nil {
			return time.Time{}, time.Time{}, fngerrors.E(fngerrors.KindInvalidDateRange, component, "range",
				fmt.Errorf("invalid end date %q, want YYYY-MM-DD: %w", c.EndDate, err))
		}
	}

	start, end = models.Day(start), models.Day(end)
	if end.Before(start) {
		return time.Time{}, time.Time{}, fngerrors.E(fngerrors.KindInvalidDateRange, component, "range",
			fmt.Errorf("end date %s before start date %s", c.EndDate, c.StartDate))
	}

	return start, end, nil
}
