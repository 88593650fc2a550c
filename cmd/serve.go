package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/etnz/whatif/date"
	"github.com/etnz/whatif/server"
	"github.com/google/subcommands"
)

type serveCmd struct {
	addr    string
	origins string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve valuations over HTTP" }
func (*serveCmd) Usage() string {
	return `whatif serve [-addr :8080] [-origins <origin,...>]

  Starts an HTTP server valuing portfolios posted as JSON to /valuations.
  The latest valuation is served at /valuations/latest, with an HTML report
  and a chart.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", ":8080", "Address to listen on")
	f.StringVar(&c.origins, "origins", "", "Comma separated origins allowed to call the API from a browser. Defaults to any")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	logger := newLogger()
	driver, err := newDriver(logger, date.Date{})
	if err != nil {
		printError(err)
		return subcommands.ExitFailure
	}

	var origins []string
	if c.origins != "" {
		origins = strings.Split(c.origins, ",")
	}
	srv := server.New(server.Config{
		Addr:           c.addr,
		Log:            logger,
		Driver:         driver,
		AllowedOrigins: origins,
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "Error serving on %s: %v\n", c.addr, err)
			return subcommands.ExitFailure
		}
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			fmt.Fprintf(os.Stderr, "Error shutting down: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}
