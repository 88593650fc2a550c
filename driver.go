package whatif

import (
	"context"
	"fmt"
	"sync"

	"github.com/etnz/whatif/date"
	"github.com/rs/zerolog"
)

// Result is a published valuation and the spec it was computed for.
type Result struct {
	Seq       uint64        `json:"seq"` // submission order, starting at 1
	Spec      PortfolioSpec `json:"spec"`
	Range     date.Range    `json:"range"`
	Valuation *Valuation    `json:"valuation"`
}

// Driver fetches prices for a portfolio and values it.
//
// A Driver can be used by several goroutines. Each Submit is numbered; a
// submission that completes after a newer one was made is discarded with
// ErrSuperseded, so that a stale result never replaces a newer one.
type Driver struct {
	provider Provider
	interval date.Period
	today    func() date.Date
	logger   zerolog.Logger

	mu     sync.Mutex
	seq    uint64 // last submission number handed out
	latest *Result
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithInterval sets the sampling interval requested from the provider.
func WithInterval(p date.Period) DriverOption {
	return func(d *Driver) { d.interval = p }
}

// WithToday sets the clock used as the end of the valuation range.
func WithToday(today func() date.Date) DriverOption {
	return func(d *Driver) { d.today = today }
}

// WithDriverLogger sets the logger.
func WithDriverLogger(logger zerolog.Logger) DriverOption {
	return func(d *Driver) { d.logger = logger }
}

// NewDriver returns a Driver fetching monthly prices from p up to today.
func NewDriver(p Provider, opts ...DriverOption) *Driver {
	d := &Driver{
		provider: p,
		interval: date.Monthly,
		today:    date.Today,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Submit validates spec, fetches its prices and values it.
//
// Errors are either wrapping ErrInvalidSpec, a *ValuationError, or
// ErrSuperseded when a newer submission was made in the meantime.
func (d *Driver) Submit(ctx context.Context, spec PortfolioSpec) (*Result, error) {
	seq := d.next()
	log := d.logger.With().Uint64("seq", seq).Logger()

	res, err := d.compute(ctx, spec)
	if !d.publish(seq, res, err) {
		log.Debug().Msg("discarding superseded valuation")
		return nil, ErrSuperseded
	}
	if err != nil {
		log.Debug().Err(err).Msg("valuation failed")
		return nil, err
	}
	log.Debug().Str("as_of", res.Valuation.AsOf.String()).Msg("valuation published")
	return res, nil
}

// SubmitIfChanged returns previous when it was computed for the same spec,
// and submits spec otherwise.
func (d *Driver) SubmitIfChanged(ctx context.Context, spec PortfolioSpec, previous *Result) (*Result, error) {
	if previous != nil && previous.Spec.Equal(spec) {
		return previous, nil
	}
	return d.Submit(ctx, spec)
}

// Latest returns the most recently published result, or nil.
func (d *Driver) Latest() *Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latest
}

func (d *Driver) next() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	return d.seq
}

// publish records res as the latest result unless a newer submission exists.
// It reports whether seq is still the newest submission.
func (d *Driver) publish(seq uint64, res *Result, err error) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if seq != d.seq {
		return false
	}
	if err == nil {
		res.Seq = seq
		d.latest = res
	}
	return true
}

func (d *Driver) compute(ctx context.Context, spec PortfolioSpec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	end := d.today()
	if spec.Start.After(end) {
		return nil, fmt.Errorf("%w: start date %s is after %s", ErrInvalidSpec, spec.Start, end)
	}

	req := HistoryRequest{
		Symbols:  spec.Symbols(),
		Range:    date.Between(spec.Start, end),
		Interval: d.interval,
	}
	d.logger.Debug().Strs("symbols", req.Symbols).Str("range", req.Range.String()).Msg("requesting price history")
	histories, err := d.provider.History(ctx, req)
	if err != nil {
		return nil, &ValuationError{Kind: DataUnavailable, Err: err}
	}

	v, err := ComputeValuation(spec, histories)
	if err != nil {
		return nil, err
	}
	return &Result{Spec: spec, Range: req.Range, Valuation: v}, nil
}
