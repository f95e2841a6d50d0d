// Package geocode resolves free-text addresses to WGS84 coordinates via
// Nominatim (primary) or the Census Geocoder.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client geocodes a free-text address.
type Client interface {
	// Geocode resolves a single address. A provider that reaches the
	// upstream but finds no match returns Result{Matched: false} and a
	// nil error; transport-level and rate-limit failures return an error
	// (wrapped as transient where safe to retry).
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude    float64
	Longitude   float64
	DisplayName string // provider-formatted address, when available
	Source      string // "nominatim" or "census"
	Matched     bool
}

// Option configures a provider client.
type Option func(*clientConfig)

type clientConfig struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the provider endpoint (tests, self-hosted Nominatim).
func WithBaseURL(u string) Option {
	return func(c *clientConfig) {
		c.baseURL = u
	}
}

// WithUserAgent sets the User-Agent header. Nominatim's usage policy
// requires an identifying agent.
func WithUserAgent(ua string) Option {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

// WithRateLimit sets the requests-per-second budget for provider calls.
func WithRateLimit(rps float64) Option {
	return func(c *clientConfig) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func newClientConfig(defaultBase string, defaultRPS float64, opts ...Option) clientConfig {
	burst := int(defaultRPS)
	if burst < 1 {
		burst = 1
	}
	c := clientConfig{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBase,
		userAgent:  "geoequity-gei/1.0",
		limiter:    rate.NewLimiter(rate.Limit(defaultRPS), burst),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
