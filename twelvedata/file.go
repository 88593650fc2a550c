package twelvedata

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/etnz/whatif"
)

//go:embed sample.json
var sample []byte

// File is a Provider reading a saved time_series answer instead of calling
// the API. The request's symbols are looked up in the saved answer; its
// range and interval are ignored.
type File struct {
	data []byte
}

// Open reads a saved time_series answer from path.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read saved prices: %w", err)
	}
	return &File{data: data}, nil
}

// Sample returns a Provider over the 2023 monthly prices of AAPL, GOOG and
// MSFT. It is meant for demos and works offline.
func Sample() *File { return &File{data: sample} }

func (f *File) History(ctx context.Context, req whatif.HistoryRequest) (whatif.PriceHistory, error) {
	if len(req.Symbols) == 0 {
		return whatif.PriceHistory{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Decode(f.data, req.Symbols)
}
