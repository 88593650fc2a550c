package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/whatif/renderer"
	"github.com/google/subcommands"
)

type chartCmd struct {
	specFlags
	output string
	svg    bool
}

func (*chartCmd) Name() string     { return "chart" }
func (*chartCmd) Synopsis() string { return "draw the value of a hypothetical portfolio over time" }
func (*chartCmd) Usage() string {
	return `whatif chart [-o <file>] [-svg] [-f <portfolio.toml> | -initial <amount> -start <date> SYMBOL=PERCENT...]

  Draws the value of each asset and of the whole portfolio over time, as a
  PNG image, or SVG if -svg is set or the output file ends with .svg.
`
}

func (c *chartCmd) SetFlags(f *flag.FlagSet) {
	c.specFlags.SetFlags(f)
	f.StringVar(&c.output, "o", "chart.png", "File to write the chart to")
	f.BoolVar(&c.svg, "svg", false, "Draw an SVG image instead of a PNG")
}

func (c *chartCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	res, status := c.evaluate(ctx, newLogger(), f.Args())
	if status != subcommands.ExitSuccess {
		return status
	}

	format := renderer.PNG
	if c.svg || strings.HasSuffix(strings.ToLower(c.output), ".svg") {
		format = renderer.SVG
	}
	img, err := renderer.RenderChart(res, format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error drawing chart: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := os.WriteFile(c.output, img, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing chart %q: %v\n", c.output, err)
		return subcommands.ExitFailure
	}

	fmt.Printf("Chart written to %s\n", c.output)
	return subcommands.ExitSuccess
}
