package whatif

import (
	"errors"
	"fmt"
	"strings"

	"github.com/etnz/whatif/date"
	"github.com/shopspring/decimal"
)

// MaxAssets is the largest number of assets a portfolio can hold.
const MaxAssets = 7

// MaxSymbolLength is the longest symbol accepted.
const MaxSymbolLength = 10

// Bounds of the initial amount.
var (
	MinInitial = decimal.NewFromInt(1)
	MaxInitial = decimal.NewFromInt(1_000_000_000)
)

// DefaultCurrency is used to display values when the portfolio does not say otherwise.
const DefaultCurrency = "USD"

// portionTolerance is how far the sum of portions may drift from 1.
var portionTolerance = decimal.New(1, -6)

// Asset is one line of a portfolio: a symbol and the fraction of the initial
// amount invested in it.
type Asset struct {
	Symbol  string          `json:"symbol" toml:"symbol"`
	Portion decimal.Decimal `json:"portion" toml:"portion"`
}

// PortfolioSpec describes a hypothetical portfolio bought on Start.
type PortfolioSpec struct {
	Initial  decimal.Decimal `json:"initial"`
	Start    date.Date       `json:"startDate"`
	Currency string          `json:"currency,omitempty"`
	Assets   []Asset         `json:"assets"`
}

// Symbols returns the asset symbols in portfolio order.
func (s PortfolioSpec) Symbols() []string {
	symbols := make([]string, 0, len(s.Assets))
	for _, a := range s.Assets {
		symbols = append(symbols, a.Symbol)
	}
	return symbols
}

// DisplayCurrency returns the currency used to display values.
func (s PortfolioSpec) DisplayCurrency() string {
	if s.Currency == "" {
		return DefaultCurrency
	}
	return s.Currency
}

// Equal reports whether s and x describe the same portfolio, assets in the same order.
func (s PortfolioSpec) Equal(x PortfolioSpec) bool {
	if !s.Initial.Equal(x.Initial) || s.Start != x.Start || s.DisplayCurrency() != x.DisplayCurrency() {
		return false
	}
	if len(s.Assets) != len(x.Assets) {
		return false
	}
	for i, a := range s.Assets {
		if a.Symbol != x.Assets[i].Symbol || !a.Portion.Equal(x.Assets[i].Portion) {
			return false
		}
	}
	return true
}

// Validate returns an error wrapping ErrInvalidSpec listing every problem found.
//
// The valuation engine assumes a valid spec, so this check belongs to
// whoever builds the spec from user input.
func (s PortfolioSpec) Validate() error {
	var errs []error
	if s.Initial.LessThan(MinInitial) || s.Initial.GreaterThan(MaxInitial) {
		errs = append(errs, fmt.Errorf("initial amount must be between %s and %s, got %s", MinInitial, MaxInitial, s.Initial))
	}
	if s.Start.IsZero() {
		errs = append(errs, errors.New("start date is missing"))
	}
	switch {
	case len(s.Assets) == 0:
		errs = append(errs, errors.New("at least one asset is required"))
	case len(s.Assets) > MaxAssets:
		errs = append(errs, fmt.Errorf("at most %d assets are allowed, got %d", MaxAssets, len(s.Assets)))
	}

	sum := decimal.Zero
	seen := make(map[string]bool)
	for i, a := range s.Assets {
		if err := validateSymbol(a.Symbol); err != nil {
			errs = append(errs, fmt.Errorf("asset #%d: %w", i+1, err))
		} else if seen[a.Symbol] {
			errs = append(errs, fmt.Errorf("asset #%d: duplicate symbol %q", i+1, a.Symbol))
		}
		seen[a.Symbol] = true
		if a.Portion.IsNegative() || a.Portion.GreaterThan(decimal.NewFromInt(1)) {
			errs = append(errs, fmt.Errorf("asset %q: portion %s is not in [0, 1]", a.Symbol, a.Portion))
		}
		sum = sum.Add(a.Portion)
	}
	if len(s.Assets) > 0 && sum.Sub(decimal.NewFromInt(1)).Abs().GreaterThan(portionTolerance) {
		errs = append(errs, fmt.Errorf("portions add up to %s%%, want 100%%", sum.Shift(2)))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSpec, errors.Join(errs...))
}

// validateSymbol checks that a symbol can be sent in a comma separated list.
func validateSymbol(symbol string) error {
	if symbol == "" {
		return errors.New("symbol is empty")
	}
	if len(symbol) > MaxSymbolLength {
		return fmt.Errorf("symbol %q is longer than %d characters", symbol, MaxSymbolLength)
	}
	if strings.ContainsAny(symbol, ", \t\n") {
		return fmt.Errorf("symbol %q contains a separator", symbol)
	}
	return nil
}

// ParseAsset parses the command line form "SYMBOL=PERCENT", e.g. "GOOG=30".
//
// The symbol is upper cased and the percent converted to a portion.
func ParseAsset(s string) (Asset, error) {
	symbol, percent, ok := strings.Cut(s, "=")
	if !ok {
		return Asset{}, fmt.Errorf("invalid asset %q, want SYMBOL=PERCENT", s)
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if err := validateSymbol(symbol); err != nil {
		return Asset{}, fmt.Errorf("invalid asset %q: %w", s, err)
	}
	p, err := decimal.NewFromString(strings.TrimSuffix(strings.TrimSpace(percent), "%"))
	if err != nil {
		return Asset{}, fmt.Errorf("invalid percent in asset %q: %w", s, err)
	}
	return Asset{Symbol: symbol, Portion: p.Shift(-2)}, nil
}
