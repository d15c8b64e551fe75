package app

import (
	"os"
	"time"
	_ "time/tzdata"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (PRICING_ prefix), a .env file, flags, or YAML config
// files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	ServiceName string `default:"dynamic-pricing" usage:"Service name reported by the health endpoint" flag:"service-name"`
	Timezone    string `default:"Local" usage:"IANA time zone used for time-of-day pricing"`
	Oracle      OracleConfig
	Weather     WeatherConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// OracleConfig configures the generative pricing oracle.
type OracleConfig struct {
	APIKey        string        `usage:"Groq API key (PRICING_ORACLE_API_KEY or GROQ_API_KEY)" flag:"oracle-api-key"`
	BaseURL       string        `default:"https://api.groq.com/openai/v1" usage:"Oracle API base URL" flag:"oracle-base-url"`
	Model         string        `default:"llama-3.3-70b-versatile" usage:"Oracle model"`
	Timeout       time.Duration `default:"30s" usage:"Oracle request timeout"`
	EnforceBounds bool          `default:"false" usage:"Clamp oracle multipliers to the rule bounds" flag:"oracle-enforce-bounds"`
}

// WeatherConfig configures the weather lookup.
type WeatherConfig struct {
	APIKey  string        `usage:"OpenWeatherMap API key (PRICING_WEATHER_API_KEY or WEATHER_API_KEY); empty means simulated weather" flag:"weather-api-key"`
	BaseURL string        `default:"https://api.openweathermap.org" usage:"Weather API base URL" flag:"weather-base-url"`
	Timeout time.Duration `default:"5s" usage:"Weather lookup timeout"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads .env, then configuration from environment variables and
// YAML config files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	// A missing .env is fine; real environment variables take precedence.
	_ = godotenv.Load()

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "PRICING",
		Files:     []string{"config.yaml", "/etc/pricing/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports configuration errors that prevent startup.
func (c *Config) Validate() error {
	if c.Oracle.APIKey == "" {
		return errors.New("oracle API key is required: set PRICING_ORACLE_API_KEY or GROQ_API_KEY")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %q", c.Timezone)
	}
	return loc, nil
}

// applyPlatformDefaults maps conventional environment variables (GROQ_API_KEY,
// WEATHER_API_KEY, PORT) onto the PRICING_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Oracle.APIKey == "" {
		c.Oracle.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if c.Weather.APIKey == "" {
		c.Weather.APIKey = os.Getenv("WEATHER_API_KEY")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
