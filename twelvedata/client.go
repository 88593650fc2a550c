// Package twelvedata implements a whatif.Provider backed by the Twelve Data
// time_series API.
package twelvedata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/etnz/whatif"
	"github.com/etnz/whatif/date"
	"github.com/etnz/whatif/httpcache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://api.twelvedata.com"
	DefaultTimeout = 30 * time.Second
	// DefaultRateLimit is the free plan allowance, in requests per minute.
	DefaultRateLimit = 8
	// maxOutputSize is the largest number of values the API returns per symbol.
	maxOutputSize = 5000
)

// Client fetches price histories from Twelve Data.
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
// Request level errors are never kept.
func WithCache(dir string) ClientOption {
	return func(c *Client) { c.cacheDir = dir }
}

// NewClient returns a Client using apiKey.
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
		cached.Transport = &httpcache.Transport{
			Base:      cached.Transport,
			Dir:       c.cacheDir,
			Prefix:    "twelvedata",
			Logger:    c.logger,
			Cacheable: cacheable,
		}
		c.httpClient = &cached
	}
	return c
}

var _ whatif.Provider = (*Client)(nil)

// History fetches the closing prices of all requested symbols in one call.
func (c *Client) History(ctx context.Context, req whatif.HistoryRequest) (whatif.PriceHistory, error) {
	if len(req.Symbols) == 0 {
		return whatif.PriceHistory{}, nil
	}
	interval, err := intervalOf(req.Interval)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("symbol", strings.Join(req.Symbols, ","))
	params.Set("interval", interval)
	params.Set("start_date", req.Range.From.String())
	params.Set("end_date", req.Range.To.String())
	params.Set("outputsize", fmt.Sprint(maxOutputSize))

	data, err := c.get(ctx, "/time_series", params)
	if err != nil {
		return nil, err
	}
	histories, err := Decode(data, req.Symbols)
	if err != nil {
		return nil, err
	}
	for symbol, h := range histories {
		c.logger.Debug().Str("symbol", symbol).Str("status", string(h.Status)).Int("values", len(h.Observations)).Msg("time series")
	}
	return histories, nil
}

// get performs a rate limited GET request and returns the body.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	params.Set("apikey", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create request: %w", err)
	}
	c.logger.Debug().Str("url", c.baseURL+path).Str("symbol", params.Get("symbol")).Msg("twelvedata request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot reach twelvedata: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cannot read twelvedata answer: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// intervalOf maps a sampling period to the API's interval names.
func intervalOf(p date.Period) (string, error) {
	switch p {
	case date.Daily:
		return "1day", nil
	case date.Weekly:
		return "1week", nil
	case date.Monthly:
		return "1month", nil
	default:
		return "", fmt.Errorf("twelvedata does not sample %s", p)
	}
}
