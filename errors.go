package whatif

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why a valuation could not be computed.
type Kind int

const (
	// DataUnavailable means the price provider could not be reached or
	// returned no usable answer at all.
	DataUnavailable Kind = iota + 1
	// SymbolValidationFailed means one or more symbols are missing from the
	// provider's answer or marked as not ok.
	SymbolValidationFailed
	// DivisionUndefined means an asset has no initial price to buy shares at.
	DivisionUndefined
)

func (k Kind) String() string {
	switch k {
	case DataUnavailable:
		return "data unavailable"
	case SymbolValidationFailed:
		return "symbol validation failed"
	case DivisionUndefined:
		return "division undefined"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ValuationError is returned by ComputeValuation and the Driver. All kinds
// are terminal: no partial valuation is ever returned along with it.
type ValuationError struct {
	Kind    Kind
	Symbols []string // symbols at fault, in portfolio order
	Err     error    // underlying cause, if any
}

func (e *ValuationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if len(e.Symbols) > 0 {
		fmt.Fprintf(&b, " for %s", strings.Join(e.Symbols, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ValuationError) Unwrap() error { return e.Err }

// Is matches any ValuationError of the same Kind, so that
// errors.Is(err, ErrSymbolValidationFailed) works whatever the symbols.
func (e *ValuationError) Is(target error) bool {
	t, ok := target.(*ValuationError)
	return ok && t.Kind == e.Kind
}

var (
	ErrDataUnavailable        = &ValuationError{Kind: DataUnavailable}
	ErrSymbolValidationFailed = &ValuationError{Kind: SymbolValidationFailed}
	ErrDivisionUndefined      = &ValuationError{Kind: DivisionUndefined}

	// ErrInvalidSpec is wrapped by every portfolio spec validation failure.
	ErrInvalidSpec = errors.New("invalid portfolio")

	// ErrSuperseded is returned by the Driver when a newer request was
	// submitted before this one completed.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// KindOf returns the Kind of the ValuationError in err's chain.
func KindOf(err error) (Kind, bool) {
	var verr *ValuationError
	if errors.As(err, &verr) {
		return verr.Kind, true
	}
	return 0, false
}

// SymbolsOf returns the symbols at fault in err's chain, if any.
func SymbolsOf(err error) []string {
	var verr *ValuationError
	if errors.As(err, &verr) {
		return verr.Symbols
	}
	return nil
}

// Hint returns what the user can do about err, or "" when there is nothing
// specific to say.
func Hint(err error) string {
	switch {
	case errors.Is(err, ErrDataUnavailable):
		return "the price provider could not be reached, try again later"
	case errors.Is(err, ErrSymbolValidationFailed):
		return fmt.Sprintf("one or more symbols are invalid or have no prices in range: %s", strings.Join(SymbolsOf(err), ", "))
	case errors.Is(err, ErrDivisionUndefined):
		return fmt.Sprintf("no usable initial price for %s, try a later start date", strings.Join(SymbolsOf(err), ", "))
	case errors.Is(err, ErrInvalidSpec):
		return "fix the portfolio and submit it again"
	case errors.Is(err, ErrSuperseded):
		return "a newer portfolio was submitted in the meantime"
	default:
		return ""
	}
}
