package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/xenking/dynamic-pricing/internal/domain/pricing"
	"github.com/xenking/dynamic-pricing/internal/domain/signal"
)

type quoteOptions struct {
	file        string
	at          string
	condition   string
	temperature float64
	humidity    int
}

func newQuoteCmd(root *rootOptions) *cobra.Command {
	opts := &quoteOptions{}

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price dishes with the rule engine for a given moment and weather",
		Long: `quote reads a JSON array of dishes ({"id","name","price","category"})
and prints the rule-based pricing result. Weather defaults to the simulated
weather for the chosen moment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := root.location()
			if err != nil {
				return err
			}
			at := time.Now().In(loc)
			if opts.at != "" {
				at, err = time.ParseInLocation(time.RFC3339, opts.at, loc)
				if err != nil {
					return errors.Wrap(err, "parse --at")
				}
				at = at.In(loc)
			}

			dishes, err := readDishes(cmd.InOrStdin(), opts.file)
			if err != nil {
				return err
			}
			if len(dishes) == 0 {
				return pricing.ErrNoDishes
			}

			weather := signal.SimulatedWeather(at)
			if opts.condition != "" {
				weather = signal.Weather{
					Condition:   signal.Classify(opts.condition),
					Temperature: opts.temperature,
					Description: opts.condition,
					Humidity:    opts.humidity,
				}
			}

			res := pricing.ComputeFallback(dishes, weather, signal.TimeFactorsAt(at))
			res.Timestamp = at.Format(pricing.TimestampLayout)
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "-", "Dishes JSON file, - for stdin")
	f.StringVar(&opts.at, "at", "", "Moment to price at (RFC3339), defaults to now")
	f.StringVar(&opts.condition, "weather", "", "Weather condition text, e.g. \"thunderstorm\" or \"light rain\"")
	f.Float64Var(&opts.temperature, "temperature", 25, "Temperature in Celsius, used with --weather")
	f.IntVar(&opts.humidity, "humidity", 60, "Humidity percent, used with --weather")
	return cmd
}

func readDishes(stdin io.Reader, path string) ([]pricing.Dish, error) {
	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open dishes")
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var dishes []pricing.Dish
	if err := json.NewDecoder(r).Decode(&dishes); err != nil {
		return nil, errors.Wrap(err, "decode dishes")
	}
	return dishes, nil
}
