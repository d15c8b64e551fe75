package main

import (
	"os"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/xenking/dynamic-pricing/internal/domain/signal"
	"github.com/xenking/dynamic-pricing/internal/openweather"
)

type signalsOptions struct {
	lat, lon float64
	apiKey   string
	baseURL  string
}

type signalsOutput struct {
	Source      string             `json:"source"`
	Weather     signal.Weather     `json:"weather"`
	TimeFactors signal.TimeFactors `json:"time_factors"`
	Peak        bool               `json:"peak"`
}

func newSignalsCmd(root *rootOptions) *cobra.Command {
	opts := &signalsOptions{}

	cmd := &cobra.Command{
		Use:   "signals",
		Short: "Print the current weather and time-of-day signals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc, err := root.location()
			if err != nil {
				return err
			}
			if opts.apiKey == "" {
				opts.apiKey = os.Getenv("WEATHER_API_KEY")
			}

			out := signalsOutput{Source: "simulated"}
			var source signal.WeatherSource
			if opts.apiKey != "" {
				c, err := openweather.New(opts.apiKey, opts.baseURL, nil)
				if err != nil {
					return errors.Wrap(err, "create weather client")
				}
				source = c
				out.Source = "openweather"
			}

			p := signal.NewProvider(signal.ProviderConfig{Location: loc}, source)
			out.Weather = p.Weather(root.context(cmd), opts.lat, opts.lon)
			out.TimeFactors = p.TimeFactors()
			out.Peak = out.TimeFactors.IsPeak()
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&opts.lat, "lat", 28.6139, "Latitude")
	f.Float64Var(&opts.lon, "lon", 77.2090, "Longitude")
	f.StringVar(&opts.apiKey, "weather-api-key", "", "OpenWeatherMap API key, defaults to $WEATHER_API_KEY")
	f.StringVar(&opts.baseURL, "weather-base-url", openweather.DefaultBaseURL, "OpenWeatherMap base URL")
	return cmd
}
