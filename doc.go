// Package whatif computes what a hypothetical stock portfolio would be worth
// today.
//
// A portfolio is described by a PortfolioSpec: an initial amount, a purchase
// date, and the fraction of the amount invested in each symbol. Its value
// over time is computed in three steps:
//   - Price histories are fetched for every symbol through a Provider. The
//     twelvedata package provides one backed by the Twelve Data API.
//   - ComputeValuation buys each symbol's shares at its oldest price, values
//     every observation, and sums the holdings on every date any of them has
//     a price, carrying forward the last known value of the others.
//   - The renderer package turns the resulting Valuation into reports and
//     charts.
//
// ComputeValuation is a pure function. The Driver ties fetching and valuing
// together and makes sure that, when portfolios are submitted in quick
// succession, only the latest submission is ever published.
package whatif
