package twelvedata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/whatif"
	"github.com/etnz/whatif/date"
	"github.com/shopspring/decimal"
)

/*
A time_series answer for several symbols is keyed by symbol:

	{
	    "AAPL": {
	        "meta": {"symbol": "AAPL", "interval": "1month", "currency": "USD", ...},
	        "values": [
	            {"datetime": "2023-05-01", "open": "169.28", "close": "177.25", ...},
	            {"datetime": "2023-04-01", "open": "164.27", "close": "169.59", ...}
	        ],
	        "status": "ok"
	    },
	    "XXXX": {"code": 400, "message": "**symbol** not found: XXXX", "status": "error"}
	}

For a single symbol the inner object is returned at the top level, and a
request level failure looks like a symbol failure:

	{"code": 401, "message": "**apikey** parameter is incorrect", "status": "error"}
*/

// APIError is a failure reported by Twelve Data for the whole request.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twelvedata error %d: %s", e.Code, e.Message)
}

// Decode parses a time_series answer for the requested symbols.
//
// Symbols the answer says nothing about are absent from the result. An error
// is returned only when the answer as a whole is unusable.
func Decode(data []byte, symbols []string) (whatif.PriceHistory, error) {
	var jobj map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber() // keep closes exact
	if err := dec.Decode(&jobj); err != nil {
		return nil, fmt.Errorf("cannot decode time series: %w", err)
	}

	histories := make(whatif.PriceHistory, len(symbols))

	// a top level status means a single symbol answer or a request failure
	if _, single := jobj["status"]; single {
		if str(jobj, "$.status") == "error" {
			code := integer(jobj, "$.code")
			// a single unknown symbol is that symbol's problem, not the request's
			if len(symbols) == 1 && (code == http.StatusBadRequest || code == http.StatusNotFound) {
				histories[symbols[0]] = decodeSymbol(jobj)
				return histories, nil
			}
			return nil, &APIError{Code: code, Message: str(jobj, "$.message")}
		}
		if len(symbols) != 1 {
			return nil, fmt.Errorf("got a single time series for %d symbols", len(symbols))
		}
		histories[symbols[0]] = decodeSymbol(jobj)
		return histories, nil
	}

	for _, symbol := range symbols {
		jval, ok := jobj[symbol]
		if !ok {
			continue
		}
		histories[symbol] = decodeSymbol(jval)
	}
	return histories, nil
}

// decodeSymbol reads one symbol's time series. Anything unreadable turns the
// whole symbol into an error.
func decodeSymbol(jobj any) whatif.SymbolHistory {
	status := str(jobj, "$.status")
	if status != string(whatif.StatusOK) {
		msg := str(jobj, "$.message")
		if msg == "" {
			msg = fmt.Sprintf("status %q", status)
		}
		return whatif.SymbolHistory{Status: whatif.StatusError, Message: msg}
	}

	h := whatif.SymbolHistory{Status: whatif.StatusOK, Currency: str(jobj, "$.meta.currency")}
	jvalues, err := jsonpath.Get("$.values", jobj)
	if err != nil {
		// an ok symbol without values simply has no prices in range
		return h
	}
	values, ok := jvalues.([]any)
	if !ok {
		return whatif.SymbolHistory{Status: whatif.StatusError, Message: "values is not a list"}
	}
	for i, v := range values {
		o, err := decodeObservation(v)
		if err != nil {
			return whatif.SymbolHistory{Status: whatif.StatusError, Message: fmt.Sprintf("value #%d: %v", i, err)}
		}
		h.Observations = append(h.Observations, o)
	}
	return h
}

func decodeObservation(jobj any) (whatif.PriceObservation, error) {
	datetime := str(jobj, "$.datetime")
	// intraday intervals carry a time of day
	day, _, _ := strings.Cut(datetime, " ")
	on, err := date.Parse(day)
	if err != nil {
		return whatif.PriceObservation{}, fmt.Errorf("invalid datetime %q", datetime)
	}

	jclose, err := jsonpath.Get("$.close", jobj)
	if err != nil {
		return whatif.PriceObservation{}, fmt.Errorf("missing close on %s", on)
	}
	price, err := number(jclose)
	if err != nil {
		return whatif.PriceObservation{}, fmt.Errorf("invalid close on %s: %w", on, err)
	}
	return whatif.PriceObservation{Date: on, Close: price}, nil
}

// number reads a close that this API sends either as a string or as a number.
func number(jval any) (decimal.Decimal, error) {
	switch v := jval.(type) {
	case string:
		return decimal.NewFromString(strings.TrimSpace(v))
	case json.Number:
		return decimal.NewFromString(v.String())
	case float64:
		return decimal.NewFromFloat(v), nil
	default:
		return decimal.Zero, fmt.Errorf("not a number: %v", jval)
	}
}

// str returns the string at path, or "" if there is none.
// cacheable reports whether an answer can be kept for the day. Request level
// failures, like running out of credits, come with a 200 status.
func cacheable(_ *http.Response, body []byte) bool {
	var jobj map[string]any
	if err := json.Unmarshal(body, &jobj); err != nil {
		return false
	}
	return str(jobj, "$.status") != "error"
}

func str(jobj any, path string) string {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return ""
	}
	s, _ := jval.(string)
	return s
}

// integer returns the integer at path, or 0 if there is none.
func integer(jobj any, path string) int {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return 0
	}
	switch v := jval.(type) {
	case json.Number:
		i, _ := v.Int64()
		return int(i)
	case float64:
		return int(v)
	}
	return 0
}
