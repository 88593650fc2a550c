package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/whatif"
	"github.com/etnz/whatif/renderer"
	"github.com/google/subcommands"
)

// valueCmd holds the flags for the 'value' subcommand.
type valueCmd struct {
	specFlags
	format  string
	summary bool
	style   string
	width   int
}

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "value a hypothetical portfolio up to today" }
func (*valueCmd) Usage() string {
	return `whatif value [-f <portfolio.toml> | -initial <amount> -start <date> SYMBOL=PERCENT...] [-format md|term|html|json]

  Values a portfolio bought on the start date, split between assets by
  percent, and never rebalanced. Prints the value of each asset and of the
  portfolio over time.

  Example:

    whatif value -initial 30000 -start 2013-05-26 GOOG=30 AAPL=70

`
}

func (c *valueCmd) SetFlags(f *flag.FlagSet) {
	c.specFlags.SetFlags(f)
	f.StringVar(&c.format, "format", "term", "Output format: md, term, html or json")
	f.BoolVar(&c.summary, "summary", false, "Print only the final values, not the value over time")
	f.StringVar(&c.style, "style", "", "Terminal style (dark, light, notty...). Defaults to the terminal's")
	f.IntVar(&c.width, "width", 100, "Terminal width to wrap text at")
}

func (c *valueCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	switch c.format {
	case "md", "term", "html", "json":
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown format %q\n", c.format)
		return subcommands.ExitUsageError
	}

	res, status := c.evaluate(ctx, newLogger(), f.Args())
	if status != subcommands.ExitSuccess {
		return status
	}

	out, err := c.render(res)
	if err != nil {
		printError(err)
		return subcommands.ExitFailure
	}
	fmt.Print(out)
	return subcommands.ExitSuccess
}

// render formats res according to the command flags.
func (c *valueCmd) render(res *whatif.Result) (string, error) {
	if c.format == "json" {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return "", fmt.Errorf("cannot encode valuation: %w", err)
		}
		return string(data) + "\n", nil
	}

	render := renderer.RenderValuation
	if c.summary {
		render = renderer.RenderSummary
	}
	md, err := render(renderer.NewReport(res))
	if err != nil {
		return "", err
	}

	switch c.format {
	case "html":
		return renderer.HTML(md)
	case "term":
		return renderer.Terminal(md, c.style, c.width)
	default:
		return md, nil
	}
}
