package whatif

import (
	"github.com/etnz/whatif/date"
	"github.com/shopspring/decimal"
)

// Status is the provider's verdict on a symbol.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// PriceObservation is the closing price of a symbol on a given day.
type PriceObservation struct {
	Date  date.Date       `json:"date"`
	Close decimal.Decimal `json:"close"`
}

// SymbolHistory is what the provider returned for one symbol.
//
// Observations are in no particular order.
type SymbolHistory struct {
	Status       Status             `json:"status"`
	Message      string             `json:"message,omitempty"` // provider's explanation when Status is not ok
	Currency     string             `json:"currency,omitempty"`
	Observations []PriceObservation `json:"observations"`
}

// Usable reports whether the history can be valued: marked ok and not empty.
func (h SymbolHistory) Usable() bool {
	return h.Status == StatusOK && len(h.Observations) > 0
}

// earliest returns the oldest observation, the first one found on ties.
func (h SymbolHistory) earliest() (PriceObservation, bool) {
	if len(h.Observations) == 0 {
		return PriceObservation{}, false
	}
	first := h.Observations[0]
	for _, o := range h.Observations[1:] {
		if o.Date.Before(first.Date) {
			first = o
		}
	}
	return first, true
}

// PriceHistory maps each symbol to its history.
type PriceHistory map[string]SymbolHistory
