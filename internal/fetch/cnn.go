// Package fetch provides the CNN Fear & Greed Index client.
//
// The upstream graphdata endpoint returns a historical series anchored at a
// start date but serves a bounded window of history per request, so longer
// ranges are fetched through consecutive anchored requests and concatenated,
// deduplicating by date. Requests are rate limited and retried with bounded
// exponential backoff.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/fngerrors"
	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/models"
)

const (
	// CNN Fear & Greed graphdata endpoint, anchored at a YYYY-MM-DD start date.
	cnnBaseURL        = "https://production.dataviz.cnn.io"
	graphDataEndpoint = "/index/fearandgreed/graphdata/%s"

	// Rate limiting configuration
	maxRequestsPerSecond = 2
	rateLimitBurst       = 1

	// Request configuration
	requestTimeout = 15 * time.Second

	// The service serves roughly a year of history per anchor date;
	// longer ranges page through fixed-size windows.
	windowDays = 365

	component = "fetch"
)

// The upstream rejects default Go client agents, so each request carries a
// browser User-Agent picked at random, as the original scraper did.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
}

// Client fetches historical sentiment series from the CNN API.
type Client struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
	logger      *slog.Logger
	retryPolicy fngerrors.RetryPolicy
}

// NewClient creates a CNN fetcher with default transport, rate limiting,
// and retry configuration.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		rateLimiter: rate.NewLimiter(rate.Limit(maxRequestsPerSecond), rateLimitBurst),
		baseURL:     cnnBaseURL,
		logger:      slog.Default(),
		retryPolicy: fngerrors.DefaultRetryPolicy(),
	}
}

// NewClientWithLogger creates a CNN fetcher with a custom logger.
func NewClientWithLogger(logger *slog.Logger) *Client {
	client := NewClient()
	client.logger = logger
	return client
}

// FetchHistorical returns the sentiment series covering the closed interval
// [start, end]. It pages through anchored windows when the range exceeds
// what the upstream serves per request, deduplicating by date.
func (c *Client) FetchHistorical(ctx context.Context, start, end time.Time) (models.Dataset, error) {
	start, end = models.Day(start), models.Day(end)
	if end.Before(start) {
		return nil, fngerrors.E(fngerrors.KindInvalidDateRange, component, "fetch_historical",
			fmt.Errorf("end %s before start %s", end.Format("2006-01-02"), start.Format("2006-01-02")))
	}

	c.logger.Debug("fetching historical sentiment",
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"))

	var all models.Dataset
	for _, anchor := range windowAnchors(start, end) {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fngerrors.E(fngerrors.KindNetwork, component, "rate_limit", err)
		}

		records, err := c.fetchWindow(ctx, anchor)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}

	// Drop out-of-range points and collapse window overlaps.
	inRange := make(models.Dataset, 0, len(all))
	for _, record := range all {
		if record.Date.Before(start) || record.Date.After(end) {
			continue
		}
		inRange = append(inRange, record)
	}
	inRange = inRange.DedupeByDate()

	if len(inRange) == 0 {
		return nil, fngerrors.E(fngerrors.KindEmptyResult, component, "fetch_historical",
			fmt.Errorf("no records returned for %s..%s",
				start.Format("2006-01-02"), end.Format("2006-01-02")))
	}

	c.logger.Debug("fetched historical sentiment", "count", len(inRange))
	return inRange, nil
}

// windowAnchors returns the anchor dates for the paged fetches covering
// [start, end].
func windowAnchors(start, end time.Time) []time.Time {
	anchors := []time.Time{start}
	for anchor := start.AddDate(0, 0, windowDays); !anchor.After(end); anchor = anchor.AddDate(0, 0, windowDays) {
		anchors = append(anchors, anchor)
	}
	return anchors
}

func (c *Client) fetchWindow(ctx context.Context, anchor time.Time) (models.Dataset, error) {
	url := c.baseURL + fmt.Sprintf(graphDataEndpoint, anchor.Format("2006-01-02"))

	body, err := c.getWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}

	return parseGraphData(body)
}

// getWithRetry issues a GET, retrying transport failures and server errors
// with the client's retry policy. Client errors are permanent.
func (c *Client) getWithRetry(ctx context.Context, url string) ([]byte, error) {
	var body []byte

	err := fngerrors.Retry(ctx, c.logger, component, "get", c.retryPolicy, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fngerrors.E(fngerrors.KindParse, component, "build_request", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", userAgents[rand.IntN(len(userAgents))])

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fngerrors.E(fngerrors.KindNetwork, component, "get", err)
		}
		defer resp.Body.Close()

		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			return fngerrors.E(fngerrors.KindNetwork, component, "read_body", err)
		}

		switch {
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return fngerrors.E(fngerrors.KindNetwork, component, "get",
				fmt.Errorf("server error %d: %s", resp.StatusCode, truncate(payload, 256)))
		case resp.StatusCode >= 400:
			return fngerrors.E(fngerrors.KindParse, component, "get",
				fmt.Errorf("client error %d: %s", resp.StatusCode, truncate(payload, 256)))
		}

		body = payload
		return nil
	})
	if err != nil {
		return nil, err
	}

	return body, nil
}

// API response structures. Unknown fields are ignored; only the historical
// series is required.

type graphDataResponse struct {
	FearAndGreedHistorical *struct {
		Data []graphDataPoint `json:"data"`
	} `json:"fear_and_greed_historical"`
}

type graphDataPoint struct {
	X      json.Number `json:"x"` // epoch timestamp, milliseconds
	Y      json.Number `json:"y"` // composite score
	Rating string      `json:"rating"`
}

// parseGraphData converts the upstream payload into records, failing closed
// when the required series or score field is missing or malformed.
func parseGraphData(body []byte) (models.Dataset, error) {
	var payload graphDataResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fngerrors.E(fngerrors.KindParse, component, "decode",
			fmt.Errorf("decode graphdata response: %w", err))
	}
	if payload.FearAndGreedHistorical == nil {
		return nil, fngerrors.E(fngerrors.KindParse, component, "decode",
			fmt.Errorf("response missing fear_and_greed_historical series"))
	}

	records := make(models.Dataset, 0, len(payload.FearAndGreedHistorical.Data))
	for i, point := range payload.FearAndGreedHistorical.Data {
		ts, err := epochInt64(point.X)
		if err != nil {
			return nil, fngerrors.E(fngerrors.KindParse, component, "decode",
				fmt.Errorf("point %d: invalid timestamp %q: %w", i, point.X, err))
		}
		if ts > 1_000_000_000_000 {
			ts /= 1000 // epoch milliseconds to seconds
		}
		if point.Y.String() == "" {
			return nil, fngerrors.E(fngerrors.KindParse, component, "decode",
				fmt.Errorf("point %d: missing score field", i))
		}

		record, err := models.NewRecord(time.Unix(ts, 0).UTC(), point.Y.String(), point.Rating)
		if err != nil {
			return nil, fngerrors.E(fngerrors.KindParse, component, "decode",
				fmt.Errorf("point %d: %w", i, err))
		}
		records = append(records, *record)
	}

	return records, nil
}

// epochInt64 parses an epoch timestamp that the upstream serves sometimes
// as an integer and sometimes as a float ("1704067200000.0").
func epochInt64(n json.Number) (int64, error) {
	if ts, err := n.Int64(); err == nil {
		return ts, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
