package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/CarloNicolini/Fear-and-Greed-Index/internal/fngerrors"
)

func day(t *testing.T, date string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", date)
	require.NoError(t, err)
	return d
}

// epochMillis renders a date as the upstream's millisecond timestamp.
func epochMillis(t *testing.T, date string) int64 {
	t.Helper()
	return day(t, date).UnixMilli()
}

func testClient(baseURL string) *Client {
	client := NewClient()
	client.baseURL = baseURL
	client.rateLimiter = rate.NewLimiter(rate.Inf, 1)
	client.retryPolicy = fngerrors.RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
	return client
}

func TestFetchHistorical_ParsesSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/index/fearandgreed/graphdata/2024-01-01")
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		fmt.Fprintf(w, `{
			"fear_and_greed": {"score": 60, "rating": "greed"},
			"fear_and_greed_historical": {"data": [
				{"x": %d, "y": 45.5, "rating": "fear"},
				{"x": %d, "y": 60, "rating": "greed"}
			]}
		}`, epochMillis(t, "2024-01-01"), epochMillis(t, "2024-01-02"))
	}))
	defer server.Close()

	client := testClient(server.URL)
	ds, err := client.FetchHistorical(context.Background(), day(t, "2024-01-01"), day(t, "2024-01-02"))
	require.NoError(t, err)

	require.Len(t, ds, 2)
	assert.Equal(t, "2024-01-01", ds[0].DateKey())
	assert.Equal(t, "45.5", ds[0].Score)
	assert.Equal(t, "fear", ds[0].Rating)
	assert.Equal(t, "60", ds[1].Score)
}

func TestFetchHistorical_FiltersOutOfRangePoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"fear_and_greed_historical": {"data": [
			{"x": %d, "y": 10, "rating": "extreme fear"},
			{"x": %d, "y": 45, "rating": "fear"},
			{"x": %d, "y": 80, "rating": "extreme greed"}
		]}}`,
			epochMillis(t, "2023-12-31"),
			epochMillis(t, "2024-01-01"),
			epochMillis(t, "2024-01-05"))
	}))
	defer server.Close()

	client := testClient(server.URL)
	ds, err := client.FetchHistorical(context.Background(), day(t, "2024-01-01"), day(t, "2024-01-02"))
	require.NoError(t, err)

	require.Len(t, ds, 1)
	assert.Equal(t, "2024-01-01", ds[0].DateKey())
}

func TestFetchHistorical_EmptySeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"fear_and_greed_historical": {"data": []}}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.FetchHistorical(context.Background(), day(t, "2024-01-01"), day(t, "2024-01-02"))
	require.Error(t, err)
	assert.True(t, fngerrors.IsKind(err, fngerrors.KindEmptyResult))
}

func TestFetchHistorical_MissingSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"fear_and_greed": {"score": 60}}`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.FetchHistorical(context.Background(), day(t, "2024-01-01"), day(t, "2024-01-02"))
	require.Error(t, err)
	assert.True(t, fngerrors.IsKind(err, fngerrors.KindParse))
}

func TestFetchHistorical_MissingScoreField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"fear_and_greed_historical": {"data": [
			{"x": %d, "rating": "fear"}
		]}}`, epochMillis(t, "2024-01-01"))
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.FetchHistorical(context.Background(), day(t, "2024-01-01"), day(t, "2024-01-01"))
	require.Error(t, err)
	assert.True(t, fngerrors.IsKind(err, fngerrors.KindParse))
}

func TestFetchHistorical_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, `{"fear_and_greed_historical": {"data": [
			{"x": %d, "y": 45, "rating": "fear"}
		]}}`, epochMillis(t, "2024-01-01"))
	}))
	defer server.Close()

	client := testClient(server.URL)
	ds, err := client.FetchHistorical(context.Background(), day(t, "2024-01-01"), day(t, "2024-01-01"))
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, ds, 1)
	assert.Equal(t, "45", ds[0].Score)
}

func TestFetchHistorical_ExhaustsRetriesOnPersistent5xx(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.FetchHistorical(context.Background(), day(t, "2024-01-01"), day(t, "2024-01-01"))
	require.Error(t, err)
	assert.True(t, fngerrors.IsKind(err, fngerrors.KindNetwork))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchHistorical_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.FetchHistorical(context.Background(), day(t, "2024-01-01"), day(t, "2024-01-01"))
	require.Error(t, err)
	assert.True(t, fngerrors.IsKind(err, fngerrors.KindParse))
	assert.Equal(t, int32(1), calls.Load(), "4xx responses must not be retried")
}

func TestFetchHistorical_PagesLongRanges(t *testing.T) {
	var anchors []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		anchor := r.URL.Path[len("/index/fearandgreed/graphdata/"):]
		anchors = append(anchors, anchor)

		// Each window answers with a single point at its anchor date.
		fmt.Fprintf(w, `{"fear_and_greed_historical": {"data": [
			{"x": %d, "y": 50, "rating": "greed"}
		]}}`, epochMillis(t, anchor))
	}))
	defer server.Close()

	client := testClient(server.URL)
	ds, err := client.FetchHistorical(context.Background(), day(t, "2022-01-01"), day(t, "2024-01-01"))
	require.NoError(t, err)

	// A two-year range needs three 365-day windows.
	require.Equal(t, []string{"2022-01-01", "2023-01-01", "2024-01-01"}, anchors)
	assert.Len(t, ds, 3)
}

func TestFetchHistorical_EndBeforeStart(t *testing.T) {
	client := testClient("http://unused")
	_, err := client.FetchHistorical(context.Background(), day(t, "2024-01-02"), day(t, "2024-01-01"))
	require.Error(t, err)
	assert.True(t, fngerrors.IsKind(err, fngerrors.KindInvalidDateRange))
}

func TestFetchHistorical_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>blocked</html>`)
	}))
	defer server.Close()

	client := testClient(server.URL)
	_, err := client.FetchHistorical(context.Background(), day(t, "2024-01-01"), day(t, "2024-01-01"))
	require.Error(t, err)
	assert.True(t, fngerrors.IsKind(err, fngerrors.KindParse))
}

func TestParseGraphData_FloatEpochMillis(t *testing.T) {
	// The upstream serves x as a float millisecond value.
	body := fmt.Sprintf(`{"fear_and_greed_historical": {"data": [
		{"x": %d.0, "y": 45.5, "rating": "fear"}
	]}}`, epochMillis(t, "2024-01-01"))

	ds, err := parseGraphData([]byte(body))
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "2024-01-01", ds[0].DateKey())
	assert.Equal(t, "45.5", ds[0].Score)
}

func TestParseGraphData_NonNumericTimestamp(t *testing.T) {
	body := `{"fear_and_greed_historical": {"data": [
		{"x": "tomorrow", "y": 45.5, "rating": "fear"}
	]}}`

	_, err := parseGraphData([]byte(body))
	require.Error(t, err)
	assert.True(t, fngerrors.IsKind(err, fngerrors.KindParse))
}

func TestParseGraphData_SecondPrecisionTimestamps(t *testing.T) {
	body := fmt.Sprintf(`{"fear_and_greed_historical": {"data": [
		{"x": %d, "y": 45, "rating": "fear"}
	]}}`, day(t, "2024-01-01").Unix())

	ds, err := parseGraphData([]byte(body))
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "2024-01-01", ds[0].DateKey())
}

func TestWindowAnchors(t *testing.T) {
	anchors := windowAnchors(day(t, "2024-01-01"), day(t, "2024-06-01"))
	require.Len(t, anchors, 1)
	assert.True(t, anchors[0].Equal(day(t, "2024-01-01")))

	anchors = windowAnchors(day(t, "2022-01-01"), day(t, "2024-01-01"))
	require.Len(t, anchors, 3)
}
