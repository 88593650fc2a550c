package whatif

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/etnz/whatif/date"
	"github.com/shopspring/decimal"
)

// TotalSeriesName names the aggregated series.
const TotalSeriesName = "Total"

// ShareHolding is the number of shares bought for a symbol on the first
// available price.
type ShareHolding struct {
	Symbol string          `json:"symbol"`
	Shares decimal.Decimal `json:"shares"`
}

// ValuePoint is the value of a holding (or of the whole portfolio) on a day.
type ValuePoint struct {
	Date  date.Date       `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// ValueSeries is a named, chronologically sorted list of values.
type ValueSeries struct {
	Name   string       `json:"name"`
	Points []ValuePoint `json:"points"`
}

// Dates returns the dates of the series, in order.
func (s ValueSeries) Dates() []date.Date {
	dates := make([]date.Date, 0, len(s.Points))
	for _, p := range s.Points {
		dates = append(dates, p.Date)
	}
	return dates
}

// Last returns the latest point of the series.
func (s ValueSeries) Last() (ValuePoint, bool) {
	if len(s.Points) == 0 {
		return ValuePoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// FinalValuation is the value of a holding on the last date of the valuation.
type FinalValuation struct {
	Symbol string          `json:"symbol"`
	Value  decimal.Decimal `json:"value"`
}

// Valuation is the result of valuing a portfolio over time.
type Valuation struct {
	Shares     []ShareHolding   `json:"shares"`
	Series     []ValueSeries    `json:"series"` // one per asset, in portfolio order
	Total      ValueSeries      `json:"total"`
	Finals     []FinalValuation `json:"finals"` // in portfolio order
	FinalTotal decimal.Decimal  `json:"finalTotal"`
	AsOf       date.Date        `json:"asOf"`
}

// ComputeValuation values the portfolio spec over the given price histories.
//
// Every asset is bought on its oldest observation. Every date for which at
// least one symbol has an observation gets a Total point. A symbol with no
// observation on a date is assumed unchanged since its previous one, and is
// worth 0 before its first one.
//
// ComputeValuation has no side effects and the same inputs always give the
// same output. On error, no partial valuation is returned.
func ComputeValuation(spec PortfolioSpec, histories PriceHistory) (*Valuation, error) {
	for i, a := range spec.Assets {
		if slices.ContainsFunc(spec.Assets[:i], func(b Asset) bool { return b.Symbol == a.Symbol }) {
			return nil, fmt.Errorf("%w: duplicate symbol %q", ErrInvalidSpec, a.Symbol)
		}
	}
	if err := checkHistories(spec, histories); err != nil {
		return nil, err
	}

	shares, err := deriveShares(spec, histories)
	if err != nil {
		return nil, err
	}

	series, daily := projectSeries(shares, histories)
	total, current := aggregate(shares, daily)

	v := &Valuation{
		Shares: shares,
		Series: series,
		Total:  total,
		Finals: make([]FinalValuation, 0, len(shares)),
	}
	for _, h := range shares {
		v.Finals = append(v.Finals, FinalValuation{Symbol: h.Symbol, Value: current[h.Symbol]})
	}
	if last, ok := total.Last(); ok {
		v.FinalTotal, v.AsOf = last.Value, last.Date
	}
	return v, nil
}

// checkHistories fails unless every asset has a usable history.
func checkHistories(spec PortfolioSpec, histories PriceHistory) error {
	var failed []string
	var causes []error
	for _, a := range spec.Assets {
		h, ok := histories[a.Symbol]
		switch {
		case !ok:
			failed = append(failed, a.Symbol)
			causes = append(causes, fmt.Errorf("%s: no data returned", a.Symbol))
		case !h.Usable():
			failed = append(failed, a.Symbol)
			switch {
			case h.Status != StatusOK && h.Message != "":
				causes = append(causes, fmt.Errorf("%s: %s", a.Symbol, h.Message))
			case h.Status != StatusOK:
				causes = append(causes, fmt.Errorf("%s: status %q", a.Symbol, h.Status))
			default:
				causes = append(causes, fmt.Errorf("%s: no prices in range", a.Symbol))
			}
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &ValuationError{Kind: SymbolValidationFailed, Symbols: failed, Err: errors.Join(causes...)}
}

// deriveShares buys each asset's portion of the initial amount at its oldest price.
func deriveShares(spec PortfolioSpec, histories PriceHistory) ([]ShareHolding, error) {
	shares := make([]ShareHolding, 0, len(spec.Assets))
	for _, a := range spec.Assets {
		first, ok := histories[a.Symbol].earliest()
		if !ok {
			return nil, &ValuationError{Kind: DivisionUndefined, Symbols: []string{a.Symbol}, Err: errors.New("no initial price")}
		}
		if !first.Close.IsPositive() {
			return nil, &ValuationError{Kind: DivisionUndefined, Symbols: []string{a.Symbol}, Err: fmt.Errorf("initial price on %s is %s", first.Date, first.Close)}
		}
		invested := a.Portion.Mul(spec.Initial)
		shares = append(shares, ShareHolding{Symbol: a.Symbol, Shares: invested.Div(first.Close)})
	}
	return shares, nil
}

// symbolValue is a holding's value as recorded on a given date.
type symbolValue struct {
	symbol string
	value  decimal.Decimal
}

// dailyValues collects, for each date, the holdings observed that day.
// Within a date, entries keep the order in which they were observed.
type dailyValues map[date.Date][]symbolValue

// projectSeries values every observation of every holding. It returns one
// series per holding, sorted by date, and the same values grouped by date.
func projectSeries(shares []ShareHolding, histories PriceHistory) ([]ValueSeries, dailyValues) {
	daily := make(dailyValues)
	series := make([]ValueSeries, 0, len(shares))
	for _, h := range shares {
		observations := histories[h.Symbol].Observations
		s := ValueSeries{Name: h.Symbol, Points: make([]ValuePoint, 0, len(observations))}
		for _, o := range observations {
			value := h.Shares.Mul(o.Close)
			s.Points = append(s.Points, ValuePoint{Date: o.Date, Value: value})
			daily[o.Date] = append(daily[o.Date], symbolValue{symbol: h.Symbol, value: value})
		}
		slices.SortStableFunc(s.Points, func(a, b ValuePoint) int { return a.Date.Compare(b.Date) })
		series = append(series, s)
	}
	return series, daily
}

// aggregate sweeps the dates in chronological order and sums the latest
// known value of every holding. It returns the Total series and the value of
// each holding at the end of the sweep.
func aggregate(shares []ShareHolding, daily dailyValues) (ValueSeries, map[string]decimal.Decimal) {
	current := make(map[string]decimal.Decimal, len(shares))
	for _, h := range shares {
		current[h.Symbol] = decimal.Zero
	}

	dates := slices.SortedFunc(maps.Keys(daily), date.Date.Compare)
	total := ValueSeries{Name: TotalSeriesName, Points: make([]ValuePoint, 0, len(dates))}
	for _, on := range dates {
		for _, sv := range daily[on] {
			current[sv.symbol] = sv.value
		}
		sum := decimal.Zero
		// sum in portfolio order so that results do not depend on map iteration
		for _, h := range shares {
			sum = sum.Add(current[h.Symbol])
		}
		total.Points = append(total.Points, ValuePoint{Date: on, Value: sum})
	}
	return total, current
}
