package renderer

import (
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/etnz/whatif"
	"github.com/etnz/whatif/date"
	"github.com/shopspring/decimal"
)

// Report is the view of a valuation used by the templates. All values are
// already formatted.
type Report struct {
	Initial    string      `json:"initial"`
	Start      string      `json:"start"`
	AsOf       string      `json:"asOf"`
	Range      string      `json:"range"`
	FinalTotal string      `json:"finalTotal"`
	Return     string      `json:"return"` // of the whole portfolio
	Assets     []AssetLine `json:"assets"`
	Symbols    []string    `json:"symbols"` // column headers of Rows
	Rows       []Row       `json:"rows"`
}

// AssetLine is one line of the assets table.
type AssetLine struct {
	Symbol   string `json:"symbol"`
	Portion  string `json:"portion"`
	Shares   string `json:"shares"`
	Invested string `json:"invested"`
	Value    string `json:"value"`
	Return   string `json:"return"`
}

// Row is the value of every asset and of the total on a date.
type Row struct {
	Date   string   `json:"date"`
	Values []string `json:"values"` // in Symbols order
	Total  string   `json:"total"`
}

// NewReport builds the view of a published valuation.
func NewReport(res *whatif.Result) *Report {
	spec, v := res.Spec, res.Valuation
	cur := spec.DisplayCurrency()

	r := &Report{
		Initial:    formatMoney(spec.Initial, cur),
		Start:      spec.Start.String(),
		AsOf:       v.AsOf.String(),
		Range:      res.Range.String(),
		FinalTotal: formatMoney(v.FinalTotal, cur),
		Return:     formatReturn(spec.Initial, v.FinalTotal),
	}
	if v.AsOf.IsZero() {
		r.AsOf = "-"
	}

	for i, a := range spec.Assets {
		invested := a.Portion.Mul(spec.Initial)
		final := v.Finals[i].Value
		r.Assets = append(r.Assets, AssetLine{
			Symbol:   a.Symbol,
			Portion:  a.Portion.Shift(2).Round(2).String() + "%",
			Shares:   v.Shares[i].Shares.Round(4).String(),
			Invested: formatMoney(invested, cur),
			Value:    formatMoney(final, cur),
			Return:   formatReturn(invested, final),
		})
		r.Symbols = append(r.Symbols, a.Symbol)
	}
	r.Rows = rows(v, cur)
	return r
}

// rows lays out every series on the union of their dates. An asset without
// a value on a date shows its previous one, as the total does.
func rows(v *whatif.Valuation, cur string) []Row {
	dates := make([][]date.Date, 0, len(v.Series))
	for _, s := range v.Series {
		dates = append(dates, s.Dates())
	}

	next := make([]int, len(v.Series))        // next point to consume, per series
	current := make([]string, len(v.Series)) // last shown value, per series
	for i := range current {
		current[i] = "-"
	}
	total := 0

	var rows []Row
	for on := range date.Union(dates...) {
		for i, s := range v.Series {
			for next[i] < len(s.Points) && !s.Points[next[i]].Date.After(on) {
				current[i] = formatMoney(s.Points[next[i]].Value, cur)
				next[i]++
			}
		}
		row := Row{Date: on.String(), Values: append([]string(nil), current...), Total: "-"}
		for total < len(v.Total.Points) && !v.Total.Points[total].Date.After(on) {
			row.Total = formatMoney(v.Total.Points[total].Value, cur)
			total++
		}
		rows = append(rows, row)
	}
	return rows
}

// formatMoney formats amount in the currency's usual way, e.g. "$1,025.00".
func formatMoney(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return fmt.Sprintf("%s %s", amount.StringFixed(2), currency)
	}
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}

// formatReturn formats the relative change from invested to value, e.g. "+2.50%".
func formatReturn(invested, value decimal.Decimal) string {
	if invested.IsZero() {
		return "-"
	}
	r := value.Div(invested).Sub(decimal.NewFromInt(1)).Shift(2).Round(2)
	if r.IsPositive() {
		return "+" + r.StringFixed(2) + "%"
	}
	return r.StringFixed(2) + "%"
}
