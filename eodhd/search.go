package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// SearchResult matches the structure of a single item in the EODHD search API response.
type SearchResult struct {
	Code              string  `json:"Code"`
	Exchange          string  `json:"Exchange"`
	Name              string  `json:"Name"`
	Type              string  `json:"Type"`
	Country           string  `json:"Country"`
	Currency          string  `json:"Currency"`
	ISIN              string  `json:"ISIN"`
	PreviousClose     float64 `json:"previousClose"`
	PreviousCloseDate string  `json:"previousCloseDate"`
}

// Symbol returns the symbol to use in a portfolio for this result.
func (r SearchResult) Symbol() string {
	if r.Exchange == DefaultExchange {
		return r.Code
	}
	return r.Code + "." + r.Exchange
}

// Search searches for securities by name, ticker or ISIN.
func (c *Client) Search(ctx context.Context, searchTerm string) ([]SearchResult, error) {
	data, err := c.get(ctx, "/search/"+url.PathEscape(searchTerm), url.Values{})
	if err != nil {
		return nil, err
	}
	var results []SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("invalid eodhd search answer: %w", err)
	}
	return results, nil
}
