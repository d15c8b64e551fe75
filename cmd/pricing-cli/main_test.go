package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/dynamic-pricing/internal/domain/pricing"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestQuote_Stdin(t *testing.T) {
	out, err := run(t, `[{"id": "1", "name": "Pizza", "price": 349, "category": "pizza"}]`,
		"quote", "--timezone", "UTC", "--at", "2025-06-16T19:00:00Z", "--weather", "thunderstorm with rain")
	require.NoError(t, err)

	var res pricing.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1.75, res.Multiplier)
	assert.Equal(t, "2025-06-16T19:00:00.000Z", res.Timestamp)
	require.Len(t, res.Dishes, 1)
	assert.Equal(t, int64(611), res.Dishes[0].DynamicPrice)
	assert.Equal(t, "+262", res.Dishes[0].PriceChange)
}

func TestQuote_SimulatedWeatherFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dishes.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id": "1", "name": "Soup", "price": 100}]`), 0o600))

	// Saturday 15:00 is simulated rain, lunch, moderate traffic.
	out, err := run(t, "", "quote", "-f", path, "--timezone", "UTC", "--at", "2025-06-14T15:00:00Z")
	require.NoError(t, err)

	var res pricing.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "rain", string(res.Weather.Condition))
	assert.Equal(t, "Light rain", res.Weather.Description)
	assert.Equal(t, 1.64, res.Multiplier) // 1.3 * 1.1 * 1.15 = 1.6445
	assert.Equal(t, int64(164), res.Dishes[0].DynamicPrice)
}

func TestQuote_Errors(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  string
	}{
		{"empty list", `[]`, []string{"quote", "--timezone", "UTC"}, "no dishes provided"},
		{"bad json", `{`, []string{"quote"}, "decode dishes"},
		{"bad time", `[]`, []string{"quote", "--at", "yesterday"}, "parse --at"},
		{"bad timezone", `[]`, []string{"quote", "--timezone", "Nowhere/Atlantis"}, "load timezone"},
		{"missing file", ``, []string{"quote", "-f", "/nonexistent/dishes.json"}, "open dishes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.stdin, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSignals(t *testing.T) {
	t.Run("simulated without key", func(t *testing.T) {
		t.Setenv("WEATHER_API_KEY", "")

		out, err := run(t, "", "signals", "--timezone", "UTC")
		require.NoError(t, err)

		var got signalsOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, "simulated", got.Source)
		assert.Contains(t, []string{"Clear sky", "Light rain"}, got.Weather.Description)
	})

	t.Run("live lookup", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "12.5", r.URL.Query().Get("lat"))
			assert.Equal(t, "k", r.URL.Query().Get("appid"))
			_, _ = io.WriteString(w, `{"weather": [{"main": "Snow", "description": "light snow"}], "main": {"temp": -2.5, "humidity": 93}}`)
		}))
		defer srv.Close()

		out, err := run(t, "", "signals", "--lat", "12.5", "--weather-api-key", "k", "--weather-base-url", srv.URL)
		require.NoError(t, err)

		var got signalsOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, "openweather", got.Source)
		assert.Equal(t, "snow", string(got.Weather.Condition))
		assert.Equal(t, -2.5, got.Weather.Temperature)
		assert.Equal(t, 93, got.Weather.Humidity)
		assert.Equal(t, got.TimeFactors.IsPeak(), got.Peak)
	})
}
