// Command whatif values hypothetical portfolios: what would an amount split
// between a few assets on a past date be worth today.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/etnz/whatif/cmd"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

func main() {
	completion().Complete("whatif")

	if err := cmd.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "Error loading .env:", err)
		os.Exit(int(subcommands.ExitFailure))
	}

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// completion describes the command line for shell completion.
// Install it with COMP_INSTALL=1 whatif.
func completion() *complete.Command {
	portfolio := map[string]complete.Predictor{
		"f":        predict.Files("*.toml"),
		"initial":  predict.Something,
		"start":    predict.Something,
		"end":      predict.Something,
		"currency": predict.Set{"USD", "EUR", "GBP", "JPY", "CHF"},
	}
	with := func(extra map[string]complete.Predictor) map[string]complete.Predictor {
		flags := map[string]complete.Predictor{}
		for k, v := range portfolio {
			flags[k] = v
		}
		for k, v := range extra {
			flags[k] = v
		}
		return flags
	}
	styles := predict.Set{"dark", "light", "notty", "dracula", "tokyo-night"}

	return &complete.Command{
		Flags: map[string]complete.Predictor{
			"log-level":           predict.Set{"debug", "info", "warn", "error"},
			"twelvedata-api-key":  predict.Something,
			"twelvedata-base-url": predict.Something,
			"provider":            predict.Set{"twelvedata", "eodhd"},
			"eodhd-api-key":       predict.Something,
			"cache-dir":           predict.Dirs("*"),
			"prices":              predict.Files("*.json"),
			"sample":              predict.Nothing,
			"interval":            predict.Set{"daily", "weekly", "monthly"},
		},
		Sub: map[string]*complete.Command{
			"value": {Flags: with(map[string]complete.Predictor{
				"format":  predict.Set{"md", "term", "html", "json"},
				"summary": predict.Nothing,
				"style":   styles,
				"width":   predict.Something,
			})},
			"chart": {Flags: with(map[string]complete.Predictor{
				"o":   predict.Files("*.png"),
				"svg": predict.Nothing,
			})},
			"assist": {Flags: map[string]complete.Predictor{
				"f":     predict.Files("*.toml"),
				"style": styles,
				"width": predict.Something,
			}},
			"search": {Args: predict.Something},
			"serve": {Flags: map[string]complete.Predictor{
				"addr":    predict.Something,
				"origins": predict.Something,
			}},
			"help":     {},
			"flags":    {},
			"commands": {},
		},
	}
}
