// Package openweather fetches current conditions from the OpenWeatherMap
// current weather API.
package openweather

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/dynamic-pricing/internal/domain/signal"
)

// DefaultBaseURL is the public OpenWeatherMap API host.
const DefaultBaseURL = "https://api.openweathermap.org"

const maxResponseSize = 256 << 10

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("openweather API key is required")

var _ signal.WeatherSource = (*Client)(nil)

// Client is an OpenWeatherMap client.
type Client struct {
	http    *http.Client
	apiKey  string
	baseURL string
}

// New creates a Client. An empty baseURL means DefaultBaseURL.
func New(apiKey, baseURL string, httpClient *http.Client) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		http:    httpClient,
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Current returns the current observation at the coordinate in metric units.
func (c *Client) Current(ctx context.Context, lat, lon float64) (*signal.Observation, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/2.5/weather?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("openweather: status %d", resp.StatusCode)
	}

	obs, err := decodeObservation(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode weather")
	}
	return obs, nil
}

func decodeObservation(data []byte) (*signal.Observation, error) {
	var (
		obs     signal.Observation
		hasMain bool
	)
	d := jx.DecodeBytes(data)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "weather":
			first := true
			return d.Arr(func(d *jx.Decoder) error {
				if !first {
					return d.Skip()
				}
				first = false
				return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
					switch string(key) {
					case "main":
						v, err := d.Str()
						obs.Main = v
						return err
					case "description":
						v, err := d.Str()
						obs.Description = v
						return err
					default:
						return d.Skip()
					}
				})
			})
		case "main":
			hasMain = true
			return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
				switch string(key) {
				case "temp":
					v, err := d.Float64()
					obs.Temperature = v
					return err
				case "humidity":
					v, err := d.Float64()
					obs.Humidity = int(v)
					return err
				default:
					return d.Skip()
				}
			})
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return nil, err
	}
	if !hasMain || obs.Main == "" {
		return nil, errors.New("incomplete observation")
	}
	return &obs, nil
}
