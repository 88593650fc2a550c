package twelvedata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/etnz/whatif"
	"github.com/etnz/whatif/date"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const answer = `{
	"AAPL": {"meta": {"currency": "USD"}, "values": [{"datetime": "2024-01-02", "close": "110"}, {"datetime": "2024-01-01", "close": "100"}], "status": "ok"},
	"GOOG": {"meta": {"currency": "USD"}, "values": [{"datetime": "2024-01-02", "close": "190"}, {"datetime": "2024-01-01", "close": "200"}], "status": "ok"}
}`

func decimalOf(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	return decimal.RequireFromString(s)
}

func request(symbols ...string) whatif.HistoryRequest {
	return whatif.HistoryRequest{
		Symbols:  symbols,
		Range:    date.Between(date.New(2024, 1, 1), date.New(2024, 1, 31)),
		Interval: date.Monthly,
	}
}

func TestClient_History(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/time_series", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "secret", q.Get("apikey"))
		assert.Equal(t, "AAPL,GOOG", q.Get("symbol"))
		assert.Equal(t, "1month", q.Get("interval"))
		assert.Equal(t, "2024-01-01", q.Get("start_date"))
		assert.Equal(t, "2024-01-31", q.Get("end_date"))
		assert.Equal(t, "5000", q.Get("outputsize"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, answer)
	}))
	defer server.Close()

	client := NewClient("secret", WithBaseURL(server.URL+"/"), WithRateLimit(0))
	got, err := client.History(context.Background(), request("AAPL", "GOOG"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Len(t, got["AAPL"].Observations, 2)
	assert.Len(t, got["GOOG"].Observations, 2)
}

func TestClient_HistoryDrivesValuation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, answer)
	}))
	defer server.Close()

	client := NewClient("secret", WithBaseURL(server.URL), WithRateLimit(0))
	driver := whatif.NewDriver(client, whatif.WithToday(func() date.Date { return date.New(2024, 1, 31) }))
	spec := whatif.PortfolioSpec{
		Initial: decimalOf(t, "1000"),
		Start:   date.New(2024, 1, 1),
		Assets: []whatif.Asset{
			{Symbol: "AAPL", Portion: decimalOf(t, "0.5")},
			{Symbol: "GOOG", Portion: decimalOf(t, "0.5")},
		},
	}
	res, err := driver.Submit(context.Background(), spec)
	require.NoError(t, err)
	assert.True(t, res.Valuation.FinalTotal.Equal(decimalOf(t, "1025")), "final total = %v", res.Valuation.FinalTotal)
}

func TestClient_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient("secret", WithBaseURL(server.URL), WithRateLimit(0))
	_, err := client.History(context.Background(), request("AAPL"))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusBadGateway, apiErr.Code)
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.URL
	server.Close()

	client := NewClient("secret", WithBaseURL(addr), WithRateLimit(0))
	_, err := client.History(context.Background(), request("AAPL"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot reach twelvedata")
}

func TestClient_UnsupportedInterval(t *testing.T) {
	client := NewClient("secret", WithBaseURL("http://127.0.0.1:0"), WithRateLimit(0))
	req := request("AAPL")
	req.Interval = date.Quarterly
	_, err := client.History(context.Background(), req)
	assert.ErrorContains(t, err, "quarterly")
}

func TestClient_Cache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("symbol") == "FAIL" {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, answer)
	}))
	defer server.Close()

	dir := t.TempDir()
	client := NewClient("secret", WithBaseURL(server.URL), WithRateLimit(0), WithCache(dir))

	for range 2 {
		got, err := client.History(context.Background(), request("AAPL", "GOOG"))
		require.NoError(t, err)
		assert.Len(t, got["AAPL"].Observations, 2)
	}
	assert.Equal(t, int32(1), hits.Load(), "second call must be served from the cache")

	// errors are not cached
	for range 2 {
		_, err := client.History(context.Background(), request("FAIL"))
		require.Error(t, err)
	}
	assert.Equal(t, int32(3), hits.Load())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestClient_CacheSkipsRequestErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			fmt.Fprint(w, `{"code": 429, "message": "You have run out of API credits for the current minute", "status": "error"}`)
			return
		}
		fmt.Fprint(w, answer)
	}))
	defer server.Close()

	dir := t.TempDir()
	client := NewClient("secret", WithBaseURL(server.URL), WithRateLimit(0), WithCache(dir))

	_, err := client.History(context.Background(), request("AAPL", "GOOG"))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Code)

	for range 2 {
		got, err := client.History(context.Background(), request("AAPL", "GOOG"))
		require.NoError(t, err)
		assert.Len(t, got["AAPL"].Observations, 2)
	}
	assert.Equal(t, int32(2), hits.Load(), "the retry must reach the server, then the answer is cached")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCacheable(t *testing.T) {
	testCases := []struct {
		body string
		want bool
	}{
		{answer, true},
		{`{"meta": {}, "values": [], "status": "ok"}`, true},
		{`{"code": 429, "message": "out of credits", "status": "error"}`, false},
		{`{"code": 400, "message": "**symbol** not found: XXXX", "status": "error"}`, false},
		{`not json`, false},
	}
	for _, tc := range testCases {
		if got := cacheable(nil, []byte(tc.body)); got != tc.want {
			t.Errorf("cacheable(%.40q) = %v, want %v", tc.body, got, tc.want)
		}
	}
}

func TestClient_RateLimitHonorsContext(t *testing.T) {
	client := NewClient("secret", WithBaseURL("http://127.0.0.1:0"), WithRateLimit(1))
	// consume the only token
	require.True(t, client.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.History(ctx, request("AAPL"))
	assert.ErrorContains(t, err, "rate limit")
}

func TestSample(t *testing.T) {
	got, err := Sample().History(context.Background(), request("AAPL", "GOOG", "MSFT", "TSLA"))
	require.NoError(t, err)
	for _, symbol := range []string{"AAPL", "GOOG", "MSFT"} {
		assert.Len(t, got[symbol].Observations, 12, symbol)
		assert.Equal(t, "USD", got[symbol].Currency, symbol)
	}
	assert.NotContains(t, got, "TSLA")
}

func TestOpen(t *testing.T) {
	path := t.TempDir() + "/prices.json"
	require.NoError(t, os.WriteFile(path, []byte(answer), 0o644))
	f, err := Open(path)
	require.NoError(t, err)
	got, err := f.History(context.Background(), request("GOOG"))
	require.NoError(t, err)
	assert.Len(t, got["GOOG"].Observations, 2)

	_, err = Open(path + ".missing")
	assert.Error(t, err)
}
