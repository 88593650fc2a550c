package whatif

import (
	"github.com/etnz/whatif/date"
	"github.com/shopspring/decimal"
)

// d is a helper for tests to create a date in January 2024.
func d(day int) date.Date { return date.New(2024, 1, day) }

// dec is a helper for tests to create decimals from const.
func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// obs is a helper for tests to create an observation.
func obs(day int, close float64) PriceObservation {
	return PriceObservation{Date: d(day), Close: dec(close)}
}

// ok is a helper for tests to create a usable history.
func ok(observations ...PriceObservation) SymbolHistory {
	return SymbolHistory{Status: StatusOK, Observations: observations}
}

// portfolio is a helper for tests to create a spec from symbol/portion pairs.
func portfolio(initial float64, assets ...any) PortfolioSpec {
	spec := PortfolioSpec{Initial: dec(initial), Start: d(1)}
	for i := 0; i < len(assets); i += 2 {
		spec.Assets = append(spec.Assets, Asset{Symbol: assets[i].(string), Portion: dec(assets[i+1].(float64))})
	}
	return spec
}
