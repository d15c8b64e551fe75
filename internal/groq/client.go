// Package groq implements the pricing oracle on top of the Groq
// OpenAI-compatible chat completions API.
package groq

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/dynamic-pricing/internal/domain/pricing"
)

// Defaults for Config.
const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.3-70b-versatile"
	DefaultTemperature = 0.5
	DefaultMaxTokens   = 3000
	DefaultTimeout     = 30 * time.Second
)

const maxResponseSize = 1 << 20

// ErrMissingAPIKey is returned by New when no API key is configured.
var ErrMissingAPIKey = errors.New("groq API key is required")

var _ pricing.Oracle = (*Client)(nil)

// Config configures the Client. Zero values fall back to the defaults above.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// APIError is a non-2xx response from the completions API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("groq: status %d", e.StatusCode)
	}
	return fmt.Sprintf("groq: status %d: %s", e.StatusCode, e.Message)
}

// Client calls the chat completions endpoint requesting a JSON object.
type Client struct {
	http        *http.Client
	apiKey      string
	endpoint    string
	model       string
	temperature float64
	maxTokens   int
}

// New creates a Client. If httpClient is nil a client with cfg.Timeout is
// used.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		http:        httpClient,
		apiKey:      cfg.APIKey,
		endpoint:    strings.TrimSuffix(cfg.BaseURL, "/") + "/chat/completions",
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Complete sends the prompt and returns the raw message content.
func (c *Client) Complete(ctx context.Context, p pricing.Prompt) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(c.encodeRequest(p)))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    decodeErrorMessage(data),
		}
	}

	content, err := decodeContent(data)
	if err != nil {
		return nil, errors.Wrap(err, "decode completion")
	}
	return content, nil
}

func (c *Client) encodeRequest(p pricing.Prompt) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("model", func(e *jx.Encoder) { e.Str(c.model) })
		e.Field("messages", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				encodeMessage(e, "system", p.System)
				encodeMessage(e, "user", p.User)
			})
		})
		e.Field("temperature", func(e *jx.Encoder) { e.Float64(c.temperature) })
		e.Field("max_tokens", func(e *jx.Encoder) { e.Int(c.maxTokens) })
		e.Field("response_format", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("type", func(e *jx.Encoder) { e.Str("json_object") })
			})
		})
	})
	return e.Bytes()
}

func encodeMessage(e *jx.Encoder, role, content string) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("role", func(e *jx.Encoder) { e.Str(role) })
		e.Field("content", func(e *jx.Encoder) { e.Str(content) })
	})
}

// decodeContent extracts choices[0].message.content.
func decodeContent(data []byte) ([]byte, error) {
	var (
		content string
		choices int
	)
	d := jx.DecodeBytes(data)
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "choices" {
			return d.Skip()
		}
		return d.Arr(func(d *jx.Decoder) error {
			choices++
			if choices > 1 {
				return d.Skip()
			}
			return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
				if string(key) != "message" {
					return d.Skip()
				}
				return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
					if string(key) != "content" || d.Next() != jx.String {
						return d.Skip()
					}
					v, err := d.Str()
					content = v
					return err
				})
			})
		})
	})
	if err != nil {
		return nil, err
	}
	if choices == 0 {
		return nil, errors.New("no choices")
	}
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("empty content")
	}
	return []byte(content), nil
}

// decodeErrorMessage extracts error.message from an API error body. It
// returns an empty string when the body has another shape.
func decodeErrorMessage(data []byte) string {
	var msg string
	d := jx.DecodeBytes(data)
	_ = d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "error" || d.Next() != jx.Object {
			return d.Skip()
		}
		return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			if string(key) != "message" || d.Next() != jx.String {
				return d.Skip()
			}
			v, err := d.Str()
			msg = v
			return err
		})
	})
	return msg
}
