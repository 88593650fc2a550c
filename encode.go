package whatif

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/etnz/whatif/date"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// specFile is the on-disk form of a PortfolioSpec.
//
// Portions can be given either as a fraction ("portion = 0.3") or as a
// percentage ("percent = 30"), the latter being what users type.
type specFile struct {
	Initial  any    `toml:"initial"`
	Start    any    `toml:"start"`
	Currency string `toml:"currency"`
	Assets   []struct {
		Symbol  string `toml:"symbol"`
		Portion any    `toml:"portion"`
		Percent any    `toml:"percent"`
	} `toml:"assets"`
}

// DecodeSpecTOML reads a PortfolioSpec from TOML.
//
// The result is not validated.
func DecodeSpecTOML(r io.Reader) (PortfolioSpec, error) {
	var f specFile
	if err := toml.NewDecoder(r).Decode(&f); err != nil {
		return PortfolioSpec{}, fmt.Errorf("cannot decode portfolio: %w", err)
	}

	start, err := tomlDate(f.Start)
	if err != nil {
		return PortfolioSpec{}, fmt.Errorf("cannot decode portfolio start: %w", err)
	}

	initial, err := tomlNumber(f.Initial)
	if err != nil {
		return PortfolioSpec{}, fmt.Errorf("cannot decode portfolio initial: %w", err)
	}

	spec := PortfolioSpec{
		Initial:  initial,
		Start:    start,
		Currency: strings.ToUpper(f.Currency),
	}
	for i, a := range f.Assets {
		asset := Asset{Symbol: strings.ToUpper(strings.TrimSpace(a.Symbol))}
		switch {
		case a.Portion != nil && a.Percent != nil:
			return PortfolioSpec{}, fmt.Errorf("asset #%d %q: both portion and percent are set", i+1, a.Symbol)
		case a.Portion != nil:
			asset.Portion, err = tomlNumber(a.Portion)
		case a.Percent != nil:
			asset.Portion, err = tomlNumber(a.Percent)
			asset.Portion = asset.Portion.Shift(-2)
		default:
			return PortfolioSpec{}, fmt.Errorf("asset #%d %q: missing portion or percent", i+1, a.Symbol)
		}
		if err != nil {
			return PortfolioSpec{}, fmt.Errorf("asset #%d %q: %w", i+1, a.Symbol, err)
		}
		spec.Assets = append(spec.Assets, asset)
	}
	return spec, nil
}

// tomlNumber accepts TOML integers and floats.
func tomlNumber(v any) (decimal.Decimal, error) {
	switch v := v.(type) {
	case nil:
		return decimal.Zero, nil
	case int64:
		return decimal.NewFromInt(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		return decimal.NewFromString(v)
	default:
		return decimal.Zero, fmt.Errorf("unsupported number %v (%T)", v, v)
	}
}

// tomlDate accepts both quoted dates and TOML native dates.
func tomlDate(v any) (date.Date, error) {
	switch v := v.(type) {
	case nil:
		return date.Date{}, nil
	case string:
		return date.Parse(v)
	case time.Time:
		return date.Of(v), nil
	case toml.LocalDate:
		return date.New(v.Year, time.Month(v.Month), v.Day), nil
	case toml.LocalDateTime:
		return date.New(v.Year, time.Month(v.Month), v.Day), nil
	default:
		return date.Date{}, fmt.Errorf("unsupported date value %v (%T)", v, v)
	}
}

// DecodeSpecJSON reads a PortfolioSpec from JSON, as posted by a form.
//
// The result is not validated.
func DecodeSpecJSON(r io.Reader) (PortfolioSpec, error) {
	var spec PortfolioSpec
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&spec); err != nil {
		return PortfolioSpec{}, fmt.Errorf("cannot decode portfolio: %w", err)
	}
	for i := range spec.Assets {
		spec.Assets[i].Symbol = strings.ToUpper(strings.TrimSpace(spec.Assets[i].Symbol))
	}
	spec.Currency = strings.ToUpper(spec.Currency)
	return spec, nil
}
