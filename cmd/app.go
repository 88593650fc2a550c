// Package cmd implements the CLI application to value hypothetical portfolios.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/etnz/whatif"
	"github.com/etnz/whatif/date"
	"github.com/etnz/whatif/eodhd"
	"github.com/etnz/whatif/twelvedata"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	EnvAPIKey      = "TWELVEDATA_API_KEY"
	EnvBaseURL     = "TWELVEDATA_BASE_URL"
	EnvEODHDAPIKey = "EODHD_API_KEY"
	EnvProvider    = "WHATIF_PROVIDER"
	EnvCacheDir    = "WHATIF_CACHE_DIR"
	EnvLogLevel    = "WHATIF_LOG_LEVEL"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&valueCmd{}, "valuation")
	c.Register(&chartCmd{}, "valuation")
	c.Register(&assistCmd{}, "valuation")

	c.Register(&searchCmd{}, "symbols")

	c.Register(&serveCmd{}, "server")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var logLevel = flag.String("log-level", "", "Log level: debug, info, warn or error. Defaults to $"+EnvLogLevel+", else warn")
var apiKey = flag.String("twelvedata-api-key", "", "Twelve Data API key. Defaults to $"+EnvAPIKey)
var baseURL = flag.String("twelvedata-base-url", "", "Twelve Data API base URL. Defaults to $"+EnvBaseURL+", else "+twelvedata.DefaultBaseURL)
var provider = flag.String("provider", "", "Price provider: twelvedata or eodhd. Defaults to $"+EnvProvider+", else twelvedata")
var eodhdAPIKey = flag.String("eodhd-api-key", "", "EODHD API key. Defaults to $"+EnvEODHDAPIKey)
var cacheDir = flag.String("cache-dir", "", "Directory where price answers are cached for the day. Defaults to $"+EnvCacheDir+", no cache if empty")
var pricesFile = flag.String("prices", "", "Read prices from a saved Twelve Data time_series answer instead of calling the API")
var sample = flag.Bool("sample", false, "Use the embedded 2023 prices of AAPL, GOOG and MSFT instead of calling the API")
var interval = date.Monthly

func init() {
	flag.Var(&interval, "interval", "Sampling interval of the prices: daily, weekly or monthly")
}

// LoadEnv loads a .env file from the working directory, if any.
func LoadEnv() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setting returns value, or the environment variable env when value is empty.
func setting(value, env string) string {
	if value != "" {
		return value
	}
	return os.Getenv(env)
}

// newLogger creates the console logger of the application.
func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(setting(*logLevel, EnvLogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// newProvider returns the price provider selected by the global flags.
func newProvider(logger zerolog.Logger) (whatif.Provider, error) {
	switch {
	case *sample:
		return twelvedata.Sample(), nil
	case *pricesFile != "":
		f, err := twelvedata.Open(*pricesFile)
		if err != nil {
			return nil, err
		}
		return f, nil
	}

	switch name := setting(*provider, EnvProvider); name {
	case "", "twelvedata":
		c, err := newTwelveData(logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "eodhd":
		c, err := newEODHD(logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown price provider %q, want twelvedata or eodhd", name)
	}
}

func newTwelveData(logger zerolog.Logger) (*twelvedata.Client, error) {
	key := setting(*apiKey, EnvAPIKey)
	if key == "" {
		return nil, fmt.Errorf("missing Twelve Data API key: use -twelvedata-api-key or $%s, or -sample to try offline", EnvAPIKey)
	}
	opts := []twelvedata.ClientOption{twelvedata.WithLogger(logger)}
	if u := setting(*baseURL, EnvBaseURL); u != "" {
		opts = append(opts, twelvedata.WithBaseURL(u))
	}
	if dir := setting(*cacheDir, EnvCacheDir); dir != "" {
		opts = append(opts, twelvedata.WithCache(dir))
	}
	return twelvedata.NewClient(key, opts...), nil
}

func newEODHD(logger zerolog.Logger) (*eodhd.Client, error) {
	key := setting(*eodhdAPIKey, EnvEODHDAPIKey)
	if key == "" {
		return nil, fmt.Errorf("missing EODHD API key: use -eodhd-api-key or $%s (\"demo\" works for a few tickers)", EnvEODHDAPIKey)
	}
	opts := []eodhd.ClientOption{eodhd.WithLogger(logger)}
	if dir := setting(*cacheDir, EnvCacheDir); dir != "" {
		opts = append(opts, eodhd.WithCache(dir))
	}
	return eodhd.NewClient(key, opts...), nil
}

// newDriver returns a driver over the selected provider. A zero end means today.
func newDriver(logger zerolog.Logger, end date.Date) (*whatif.Driver, error) {
	p, err := newProvider(logger)
	if err != nil {
		return nil, err
	}
	opts := []whatif.DriverOption{
		whatif.WithInterval(interval),
		whatif.WithDriverLogger(logger),
	}
	if !end.IsZero() {
		opts = append(opts, whatif.WithToday(func() date.Date { return end }))
	}
	return whatif.NewDriver(p, opts...), nil
}

// specFlags are the flags describing a portfolio, shared by the commands
// that value one.
type specFlags struct {
	file     string
	initial  string
	start    string
	currency string
	end      string
}

func (s *specFlags) SetFlags(f *flag.FlagSet) {
	f.StringVar(&s.file, "f", "", "TOML file describing the portfolio. Exclusive with -initial, -start and assets arguments")
	f.StringVar(&s.initial, "initial", "", "Amount initially invested")
	f.StringVar(&s.start, "start", "", "Date the assets are bought. See the user manual for supported date formats")
	f.StringVar(&s.currency, "currency", "", "Currency code used to display values. Defaults to "+whatif.DefaultCurrency)
	f.StringVar(&s.end, "end", "", "Last day of the valuation. Defaults to today")
}

// Spec returns the portfolio described by the flags, and assets args in the
// SYMBOL=PERCENT form.
func (s *specFlags) Spec(args []string) (whatif.PortfolioSpec, error) {
	if s.file != "" {
		if s.initial != "" || s.start != "" || len(args) > 0 {
			return whatif.PortfolioSpec{}, errors.New("-f cannot be combined with -initial, -start or assets")
		}
		f, err := os.Open(s.file)
		if err != nil {
			return whatif.PortfolioSpec{}, fmt.Errorf("cannot open portfolio file: %w", err)
		}
		defer f.Close()
		spec, err := whatif.DecodeSpecTOML(f)
		if err != nil {
			return whatif.PortfolioSpec{}, fmt.Errorf("%s: %w", s.file, err)
		}
		if s.currency != "" {
			spec.Currency = strings.ToUpper(s.currency)
		}
		return spec, nil
	}

	var spec whatif.PortfolioSpec
	if s.initial == "" || s.start == "" || len(args) == 0 {
		return spec, errors.New("a portfolio needs -initial, -start and at least one SYMBOL=PERCENT, or -f")
	}
	initial, err := decimal.NewFromString(s.initial)
	if err != nil {
		return spec, fmt.Errorf("invalid -initial %q: %w", s.initial, err)
	}
	start, err := date.Parse(s.start)
	if err != nil {
		return spec, fmt.Errorf("invalid -start %q: %w", s.start, err)
	}
	spec = whatif.PortfolioSpec{Initial: initial, Start: start, Currency: strings.ToUpper(s.currency)}
	for _, arg := range args {
		asset, err := whatif.ParseAsset(arg)
		if err != nil {
			return whatif.PortfolioSpec{}, err
		}
		spec.Assets = append(spec.Assets, asset)
	}
	return spec, nil
}

// End returns the -end date, zero if not set.
func (s *specFlags) End() (date.Date, error) {
	if s.end == "" {
		return date.Date{}, nil
	}
	end, err := date.Parse(s.end)
	if err != nil {
		return date.Date{}, fmt.Errorf("invalid -end %q: %w", s.end, err)
	}
	return end, nil
}

// evaluate reads the portfolio from the flags and args and values it.
//
// Errors are printed and turned into an exit status.
func (s *specFlags) evaluate(ctx context.Context, logger zerolog.Logger, args []string) (*whatif.Result, subcommands.ExitStatus) {
	spec, err := s.Spec(args)
	if err != nil {
		printError(err)
		return nil, subcommands.ExitUsageError
	}
	end, err := s.End()
	if err != nil {
		printError(err)
		return nil, subcommands.ExitUsageError
	}
	driver, err := newDriver(logger, end)
	if err != nil {
		printError(err)
		return nil, subcommands.ExitFailure
	}

	res, err := driver.Submit(ctx, spec)
	if errors.Is(err, whatif.ErrInvalidSpec) {
		printError(err)
		return nil, subcommands.ExitUsageError
	}
	if err != nil {
		printError(err)
		return nil, subcommands.ExitFailure
	}
	return res, subcommands.ExitSuccess
}

// printError prints err to stderr, with what the user can do about it.
func printError(err error) {
	if hint := whatif.Hint(err); hint != "" {
		fmt.Fprintf(os.Stderr, "Error: %v (%s)\n", err, hint)
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
