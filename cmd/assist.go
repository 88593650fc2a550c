package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/etnz/whatif/agent"
	"github.com/etnz/whatif/date"
	"github.com/etnz/whatif/renderer"
	"github.com/google/subcommands"
)

// assistCmd is the subcommand for the AI assistant.
type assistCmd struct {
	file  string
	style string
	width int
}

// Name returns the name of the command.
func (*assistCmd) Name() string { return "assist" }

// Synopsis returns a short-one line synopsis of the command.
func (*assistCmd) Synopsis() string {
	return "start an interactive session with the AI assistant"
}

// Usage returns a long-form usage string.
func (*assistCmd) Usage() string {
	return `whatif assist [-f <portfolio.toml>] [prompt...]

  Start an interactive session with the AI assistant. It can value
  hypothetical portfolios and explain how they performed.

  The portfolio in -f, if any, is valued first and known to the assistant.
  Arguments are the first question. Gemini's key is read from $GEMINI_API_KEY.
`
}

// SetFlags sets the flags for the command.
func (c *assistCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "f", "", "TOML file describing the portfolio to start with")
	f.StringVar(&c.style, "style", "", "Terminal style (dark, light, notty...). Defaults to the terminal's")
	f.IntVar(&c.width, "width", 100, "Terminal width to wrap text at")
}

// Execute executes the command.
func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	logger := newLogger()
	initialPrompt := strings.Join(f.Args(), " ")

	driver, err := newDriver(logger, date.Date{})
	if err != nil {
		printError(err)
		return subcommands.ExitFailure
	}
	if c.file != "" {
		spec, err := (&specFlags{file: c.file}).Spec(nil)
		if err != nil {
			printError(err)
			return subcommands.ExitUsageError
		}
		if _, err := driver.Submit(ctx, spec); err != nil {
			printError(err)
			return subcommands.ExitFailure
		}
	}

	gemini, err := agent.NewGemini(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}

	trader := agent.NewTrader()
	analyst := agent.NewAnalyst(driver)
	trader.Logger, analyst.Logger = logger, logger

	a := agent.New(os.Stdout, os.Stdin, trader, analyst)
	a.Facilitator.Logger = logger
	a.Print = func(w io.Writer, md string) {
		out, err := renderer.Terminal(md, c.style, c.width)
		if err != nil {
			out = md
		}
		fmt.Fprintln(w, out)
	}

	if err := a.Run(ctx, gemini, initialPrompt); err != nil {
		fmt.Fprintln(os.Stderr, "Agent failed:", err)
		return subcommands.ExitFailure
	}

	return subcommands.ExitSuccess
}
