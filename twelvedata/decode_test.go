package twelvedata

import (
	"errors"
	"testing"

	"github.com/etnz/whatif"
	"github.com/etnz/whatif/date"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_MultipleSymbols(t *testing.T) {
	data := []byte(`{
		"AAPL": {
			"meta": {"symbol": "AAPL", "interval": "1month", "currency": "USD"},
			"values": [
				{"datetime": "2023-06-01", "close": "193.97"},
				{"datetime": "2023-05-01", "close": "177.25"}
			],
			"status": "ok"
		},
		"XXXX": {"code": 400, "message": "**symbol** not found: XXXX", "status": "error"}
	}`)

	got, err := Decode(data, []string{"AAPL", "XXXX", "MSFT"})
	require.NoError(t, err)

	aapl := got["AAPL"]
	assert.Equal(t, whatif.StatusOK, aapl.Status)
	assert.Equal(t, "USD", aapl.Currency)
	require.Len(t, aapl.Observations, 2)
	assert.Equal(t, date.New(2023, 6, 1), aapl.Observations[0].Date)
	assert.True(t, aapl.Observations[0].Close.Equal(decimal.RequireFromString("193.97")))
	assert.Equal(t, date.New(2023, 5, 1), aapl.Observations[1].Date)

	xxxx := got["XXXX"]
	assert.Equal(t, whatif.StatusError, xxxx.Status)
	assert.Equal(t, "**symbol** not found: XXXX", xxxx.Message)
	assert.Empty(t, xxxx.Observations)

	_, found := got["MSFT"]
	assert.False(t, found, "a symbol missing from the answer must be absent")
}

func TestDecode_SingleSymbol(t *testing.T) {
	data := []byte(`{
		"meta": {"symbol": "MSFT", "currency": "USD"},
		"values": [
			{"datetime": "2023-05-01 00:00:00", "close": 328.39},
			{"datetime": "2023-04-01", "close": "307.26"}
		],
		"status": "ok"
	}`)
	got, err := Decode(data, []string{"MSFT"})
	require.NoError(t, err)
	require.Contains(t, got, "MSFT")
	msft := got["MSFT"]
	assert.True(t, msft.Usable())
	require.Len(t, msft.Observations, 2)
	assert.Equal(t, date.New(2023, 5, 1), msft.Observations[0].Date)
	assert.True(t, msft.Observations[0].Close.Equal(decimal.RequireFromString("328.39")), "number close = %v", msft.Observations[0].Close)
	assert.True(t, msft.Observations[1].Close.Equal(decimal.RequireFromString("307.26")), "string close = %v", msft.Observations[1].Close)
}

func TestDecode_SingleUnknownSymbol(t *testing.T) {
	data := []byte(`{"code": 400, "message": "**symbol** not found: XXXX", "status": "error"}`)
	got, err := Decode(data, []string{"XXXX"})
	require.NoError(t, err)
	assert.Equal(t, whatif.StatusError, got["XXXX"].Status)
	assert.Contains(t, got["XXXX"].Message, "not found")
}

func TestDecode_RequestError(t *testing.T) {
	testCases := []struct {
		name    string
		data    string
		symbols []string
		code    int
	}{
		{"bad key", `{"code": 401, "message": "**apikey** parameter is incorrect", "status": "error"}`, []string{"AAPL", "GOOG"}, 401},
		{"bad key single symbol", `{"code": 401, "message": "**apikey** parameter is incorrect", "status": "error"}`, []string{"AAPL"}, 401},
		{"out of credits", `{"code": 429, "message": "You have run out of API credits", "status": "error"}`, []string{"AAPL"}, 429},
		{"bad request for many", `{"code": 400, "message": "bad request", "status": "error"}`, []string{"AAPL", "GOOG"}, 400},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.data), tc.symbols)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "got %v", err)
			assert.Equal(t, tc.code, apiErr.Code)
		})
	}
}

func TestDecode_InvalidValues(t *testing.T) {
	testCases := []struct {
		name  string
		value string
	}{
		{"close not a number", `{"datetime": "2023-05-01", "close": "n/a"}`},
		{"close missing", `{"datetime": "2023-05-01"}`},
		{"datetime invalid", `{"datetime": "May 2023", "close": "1"}`},
		{"close is an object", `{"datetime": "2023-05-01", "close": {"value": 1}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data := []byte(`{"AAPL": {"status": "ok", "values": [` + tc.value + `]}, "GOOG": {"status": "ok", "values": [{"datetime": "2023-05-01", "close": "1"}]}}`)
			got, err := Decode(data, []string{"AAPL", "GOOG"})
			require.NoError(t, err)
			assert.Equal(t, whatif.StatusError, got["AAPL"].Status)
			assert.NotEmpty(t, got["AAPL"].Message)
			assert.True(t, got["GOOG"].Usable(), "other symbols are not affected")
		})
	}
}

func TestDecode_NotJSON(t *testing.T) {
	_, err := Decode([]byte(`<html>Bad Gateway</html>`), []string{"AAPL"})
	assert.Error(t, err)
}

func TestDecode_OkWithoutValues(t *testing.T) {
	got, err := Decode([]byte(`{"AAPL": {"status": "ok"}, "GOOG": {"status": "ok", "values": []}}`), []string{"AAPL", "GOOG"})
	require.NoError(t, err)
	assert.Equal(t, whatif.StatusOK, got["AAPL"].Status)
	assert.False(t, got["AAPL"].Usable())
	assert.False(t, got["GOOG"].Usable())
}
