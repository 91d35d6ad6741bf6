// Fear & Greed Index CLI
// This application fetches historical CNN Fear & Greed Index data, merges
// it with an optional existing CSV dataset, fills missing dates, persists
// the result, and prints a summary.
//
// Usage:
//
//	fng scrape --start-date 2024-01-01 --end-date 2024-03-01 --output fng.duckdb
//	fng scrape --input-csv fng_data.csv --format csv --output fng_data.csv --backfill
//	fng info
//
// For detailed help on any command, use: fng <command> --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/config"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/fetch"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/fngerrors"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/logger"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/pipeline"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/reconcile"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/summary"
)

const (
	Version    = "1.0.0"
	AppName    = "fng"
	ConfigFile = "fng.json"
)

// Exit codes following standard conventions
const (
	ExitSuccess     = 0
	ExitUsageError  = 1
	ExitConfigError = 2
	ExitDataError   = 4
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(ExitUsageError)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "scrape":
		if err := handleScrape(ctx, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitCodeFor(err))
		}
	case "info":
		printInfo()
	case "--version", "-v":
		fmt.Printf("%s version %s\n", AppName, Version)
	case "--help", "-h", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Error: Unknown command '%s'\n\n", command)
		printUsage()
		os.Exit(ExitUsageError)
	}
}

// exitCodeFor maps error kinds to process exit codes.
func exitCodeFor(err error) int {
	switch fngerrors.KindOf(err) {
	case fngerrors.KindInvalidDateRange, fngerrors.KindUnsupportedFormat:
		return ExitConfigError
	default:
		return ExitDataError
	}
}

// scrapeFlags represents flags for the scrape command
type scrapeFlags struct {
	StartDate string
	EndDate   string
	InputCSV  string
	Output    string
	Format    string
	Backfill  bool
	NoSummary bool
	Help      bool
}

func handleScrape(ctx context.Context, args []string) error {
	flags, err := parseScrapeFlags(args)
	if err != nil {
		return err
	}
	if flags.Help {
		printScrapeHelp()
		return nil
	}

	cfg, err := config.Load(ConfigFile)
	if err != nil {
		return err
	}
	if flags.StartDate != "" {
		cfg.StartDate = flags.StartDate
	}
	if flags.EndDate != "" {
		cfg.EndDate = flags.EndDate
	}
	if flags.InputCSV != "" {
		cfg.InputPath = flags.InputCSV
	}
	if flags.Output != "" {
		cfg.OutputPath = flags.Output
	}
	if flags.Format != "" {
		cfg.Format = flags.Format
	}
	if flags.Backfill {
		cfg.Policy = string(reconcile.PolicyBackfill)
	}
	if flags.NoSummary {
		cfg.ShowSummary = false
	}

	log, closer, err := logger.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	p := pipeline.New(fetch.NewClientWithLogger(log), log)

	result, err := p.Run(ctx, cfg)
	if err != nil {
		return err
	}

	if len(result.Unresolved) > 0 {
		fmt.Printf("Unresolved dates (no prior value to backfill from):\n")
		for _, day := range result.Unresolved {
			fmt.Printf("  %s\n", day.Format(config.DateLayout))
		}
	}

	if result.Stats != nil {
		fmt.Println()
		if err := summary.Render(os.Stdout, result.Stats); err != nil {
			return err
		}
	}

	fmt.Printf("\nProcessed %d records -> %s\n", len(result.Dataset), result.OutputPath)
	return nil
}

func parseScrapeFlags(args []string) (*scrapeFlags, error) {
	flags := &scrapeFlags{}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--start-date", "-s":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--start-date requires a value")
			}
			flags.StartDate = args[i+1]
			i++
		case "--end-date", "-e":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--end-date requires a value")
			}
			flags.EndDate = args[i+1]
			i++
		case "--input-csv", "-i":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--input-csv requires a value")
			}
			flags.InputCSV = args[i+1]
			i++
		case "--output", "-o":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--output requires a value")
			}
			flags.Output = args[i+1]
			i++
		case "--format", "-f":
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--format requires a value")
			}
			flags.Format = args[i+1]
			i++
		case "--backfill", "-b":
			flags.Backfill = true
		case "--no-summary":
			flags.NoSummary = true
		case "--help", "-h":
			flags.Help = true
		default:
			return nil, fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	return flags, nil
}

func printUsage() {
	fmt.Printf(`%s - Fear & Greed Index collector v%s

USAGE:
    %s <command> [options]

COMMANDS:
    scrape      Fetch, reconcile, and persist Fear & Greed Index data
    info        Describe the Fear & Greed Index and its scale

GLOBAL OPTIONS:
    --help, -h     Show help information
    --version, -v  Show version information

EXAMPLES:
    # Fetch everything since 2020-09-19 into a DuckDB file
    %s scrape

    # Fetch a specific range, merge with an existing CSV, write CSV
    %s scrape --start-date 2024-01-01 --end-date 2024-03-01 \
        --input-csv fng_data.csv --format csv --output fng_data.csv

    # Carry missing values forward instead of zero-filling
    %s scrape --backfill

CONFIGURATION:
    Configuration can be provided via:
    - Config file: %s (JSON format)
    - Environment variables: FNG_* (e.g. FNG_OUTPUT_PATH)

For detailed help: %s scrape --help
`, AppName, Version, AppName, AppName, AppName, AppName, ConfigFile, AppName)
}

func printScrapeHelp() {
	fmt.Printf(`%s scrape - Fetch, reconcile, and persist Fear & Greed Index data

USAGE:
    %s scrape [options]

OPTIONS:
    --start-date, -s <date>  First date of the range, YYYY-MM-DD
                             (default: 2020-09-19)
    --end-date, -e <date>    Last date of the range, YYYY-MM-DD
                             (default: today)
    --input-csv, -i <path>   Existing CSV dataset to merge with new data
    --output, -o <path>      Output file path (default: fng_data.duckdb)
    --format, -f <format>    Output format: duckdb or csv (default: duckdb)
    --backfill, -b           Carry missing values forward instead of
                             zero-filling
    --no-summary             Skip the summary table after processing
    --help, -h               Show this help message

NOTES:
    - Freshly fetched values win over local values for the same date
    - The output file is overwritten; its directory must already exist
`, AppName, AppName)
}

func printInfo() {
	fmt.Print(`Fear and Greed Index

The Fear and Greed Index is a measure of market sentiment combining
several factors:
- Stock Price Momentum: S&P 500 vs 125-day moving average
- Stock Price Strength: stocks hitting 52-week highs vs lows
- Stock Price Breadth:  volume in advancing vs declining stocks
- Put/Call Options:     put/call ratio as a fear indicator
- Junk Bond Demand:     spread between high-yield and treasury bonds
- Market Volatility:    VIX vs its 50-day moving average
- Safe Haven Demand:    performance of stocks vs bonds

Scale:
   0-24  Extreme Fear
  25-49  Fear
  50-74  Greed
  75-100 Extreme Greed

Data source: CNN Fear and Greed Index
`)
}
