package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/etnz/whatif/eodhd"
	"github.com/google/subcommands"
)

// searchCmd implements the "search" command.
type searchCmd struct{}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "search for asset symbols on EODHD" }
func (*searchCmd) Usage() string {
	return `whatif search <search term>

  Searches for securities via EOD Historical Data API and prints the
  symbols to use in a portfolio.

  Requires the EODHD_API_KEY environment variable to be set or passed as a flag.
`
}

func (c *searchCmd) SetFlags(f *flag.FlagSet) {}

func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: a search term is required.")
		return subcommands.ExitUsageError
	}
	searchTerm := strings.Join(f.Args(), " ")

	client, err := newEODHD(newLogger())
	if err != nil {
		printError(err)
		return subcommands.ExitFailure
	}
	results, err := client.Search(ctx, searchTerm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error searching securities: %v\n", err)
		return subcommands.ExitFailure
	}

	printResults(os.Stdout, searchTerm, results)
	return subcommands.ExitSuccess
}

func printResults(w io.Writer, searchTerm string, results []eodhd.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintf(w, "No results found for '%s'.\n", searchTerm)
		return
	}

	fmt.Fprintf(w, "Found %d results for '%s':\n\n", len(results), searchTerm)
	for _, item := range results {
		fmt.Fprintf(w, "➡️   Name       : %s (%s)\n", item.Name, item.Symbol())
		fmt.Fprintf(w, "    Type        : %s, Country: %s, Currency: %s\n", item.Type, item.Country, item.Currency)
		fmt.Fprintf(w, "    ISIN        : %s\n", item.ISIN)
		fmt.Fprintf(w, "    Prev. Close : %.2f on %s\n", item.PreviousClose, item.PreviousCloseDate)
		fmt.Fprintf(w, "    $ whatif -provider eodhd value -initial 1000 -start -1y %s=100\n\n", item.Symbol())
	}
}
