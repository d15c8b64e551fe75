// Command pricing-cli inspects pricing decisions without running the API
// server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	timezone string
	verbose  bool
}

func (o *rootOptions) location() (*time.Location, error) {
	if o.timezone == "" || o.timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %q", o.timezone)
	}
	return loc, nil
}

func (o *rootOptions) context(cmd *cobra.Command) context.Context {
	lg := zap.NewNop()
	if o.verbose {
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
		if l, err := cfg.Build(); err == nil {
			lg = l
		}
	}
	return zctx.Base(cmd.Context(), lg)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "pricing-cli",
		Short:         "Inspect dynamic pricing signals and rule-based quotes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.timezone, "timezone", "Local", "IANA time zone for time-of-day factors")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	root.AddCommand(newQuoteCmd(opts), newSignalsCmd(opts))
	return root
}

func writeJSON(w io.Writer, v any) error {
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

func main() {
	ctx := context.Background()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
