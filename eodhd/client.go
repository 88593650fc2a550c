// Package eodhd implements a whatif.Provider backed by the EOD Historical
// Data API. Symbols are queried one at a time.
package eodhd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/etnz/whatif"
	"github.com/etnz/whatif/date"
	"github.com/etnz/whatif/httpcache"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://eodhd.com/api"
	DefaultTimeout = 30 * time.Second
	// DefaultRateLimit is the API's allowance, in requests per minute.
	DefaultRateLimit = 1000
	// DefaultExchange is appended to symbols without an exchange.
	DefaultExchange = "US"
)

// APIError is an answer with a non 200 status.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string { return fmt.Sprintf("eodhd error %d: %s", e.Code, e.Message) }

// Client fetches price histories from EODHD.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
	limiter    *rate.Limiter
	cacheDir   string
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithHTTPClient sets the http client used for requests.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = client }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// WithRateLimit sets the number of requests allowed per minute. Zero or less
// disables the limit.
func WithRateLimit(perMinute int) ClientOption {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
	}
}

// WithCache keeps successful answers in dir until the end of the day.
func WithCache(dir string) ClientOption {
	return func(c *Client) { c.cacheDir = dir }
}

// NewClient returns a Client using apiKey. EODHD's "demo" key works for a
// handful of tickers such as AAPL.US and MCD.US.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     zerolog.Nop(),
	}
	WithRateLimit(DefaultRateLimit)(c)
	for _, opt := range opts {
		opt(c)
	}
	if c.cacheDir != "" {
		cached := *c.httpClient
		cached.Transport = &httpcache.Transport{Base: cached.Transport, Dir: c.cacheDir, Prefix: "eodhd", Logger: c.logger}
		c.httpClient = &cached
	}
	return c
}

var _ whatif.Provider = (*Client)(nil)

// Ticker returns the EODHD ticker of symbol: symbols without an exchange,
// like "AAPL", are looked up on DefaultExchange.
func Ticker(symbol string) string {
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + "." + DefaultExchange
}

// History fetches the closing prices of every requested symbol.
//
// An unknown ticker is reported in the symbol's status. Any other failure
// fails the whole request.
func (c *Client) History(ctx context.Context, req whatif.HistoryRequest) (whatif.PriceHistory, error) {
	period, err := periodOf(req.Interval)
	if err != nil {
		return nil, err
	}

	histories := make(whatif.PriceHistory, len(req.Symbols))
	for _, symbol := range req.Symbols {
		h, err := c.history(ctx, symbol, period, req.Range)
		if err != nil {
			return nil, err
		}
		c.logger.Debug().Str("symbol", symbol).Str("status", string(h.Status)).Int("values", len(h.Observations)).Msg("eod prices")
		histories[symbol] = h
	}
	return histories, nil
}

func (c *Client) history(ctx context.Context, symbol, period string, r date.Range) (whatif.SymbolHistory, error) {
	params := url.Values{}
	params.Set("from", r.From.String())
	params.Set("to", r.To.String())
	params.Set("period", period)

	data, err := c.get(ctx, "/eod/"+url.PathEscape(Ticker(symbol)), params)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return whatif.SymbolHistory{Status: whatif.StatusError, Message: apiErr.Message}, nil
	}
	if err != nil {
		return whatif.SymbolHistory{}, err
	}

	// that's the payload
	var content []struct {
		Date  string          `json:"date"`
		Close decimal.Decimal `json:"close"`
	}
	if err := json.Unmarshal(data, &content); err != nil {
		return whatif.SymbolHistory{Status: whatif.StatusError, Message: fmt.Sprintf("invalid answer: %v", err)}, nil
	}

	h := whatif.SymbolHistory{Status: whatif.StatusOK}
	for i, info := range content {
		on, err := date.Parse(info.Date)
		if err != nil {
			return whatif.SymbolHistory{Status: whatif.StatusError, Message: fmt.Sprintf("value #%d: %v", i, err)}, nil
		}
		h.Observations = append(h.Observations, whatif.PriceObservation{Date: on, Close: info.Close})
	}
	slices.SortFunc(h.Observations, func(a, b whatif.PriceObservation) int { return a.Date.Compare(b.Date) })
	return h, nil
}

// get performs a rate limited GET request and returns the body.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	params.Set("fmt", "json")
	params.Set("api_token", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create request: %w", err)
	}
	c.logger.Debug().Str("url", c.baseURL+path).Msg("eodhd request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot reach eodhd: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read eodhd answer: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// periodOf maps a sampling period to the API's period names.
func periodOf(p date.Period) (string, error) {
	switch p {
	case date.Daily:
		return "d", nil
	case date.Weekly:
		return "w", nil
	case date.Monthly:
		return "m", nil
	default:
		return "", fmt.Errorf("eodhd does not sample %s", p)
	}
}
