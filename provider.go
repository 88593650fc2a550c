package whatif

import (
	"context"

	"github.com/etnz/whatif/date"
)

// HistoryRequest asks a Provider for the closing prices of Symbols within
// Range, sampled every Interval.
type HistoryRequest struct {
	Symbols  []string
	Range    date.Range
	Interval date.Period
}

// Provider supplies price histories.
//
// An error means that the whole call failed. A symbol the provider knows
// nothing about is reported in the PriceHistory, either absent or with a
// status other than StatusOK.
type Provider interface {
	History(ctx context.Context, req HistoryRequest) (PriceHistory, error)
}

// ProviderFunc adapts a function into a Provider.
type ProviderFunc func(ctx context.Context, req HistoryRequest) (PriceHistory, error)

func (f ProviderFunc) History(ctx context.Context, req HistoryRequest) (PriceHistory, error) {
	return f(ctx, req)
}

// Static is a Provider that always returns the same histories, restricted to
// the requested symbols. Observations outside the requested range are kept:
// the engine values whatever window it is given.
type Static PriceHistory

func (s Static) History(_ context.Context, req HistoryRequest) (PriceHistory, error) {
	h := make(PriceHistory, len(req.Symbols))
	for _, symbol := range req.Symbols {
		if sh, ok := s[symbol]; ok {
			h[symbol] = sh
		}
	}
	return h, nil
}
