package scenario

import (
	"crypto/tls"
	"net/http"
	"time"
)

// HTTPClientConfig contains HTTP client configuration.
type HTTPClientConfig struct {
	// Timeout for a single call, from dial to the end of the body
	Timeout time.Duration

	// MaxIdleConns controls the maximum number of idle connections
	MaxIdleConns int

	// MaxIdleConnsPerHost controls the maximum idle connections per host
	MaxIdleConnsPerHost int

	// MaxConnsPerHost limits the total connections per host
	MaxConnsPerHost int

	// IdleConnTimeout is how long idle connections are kept alive
	IdleConnTimeout time.Duration

	// DisableKeepAlives disables HTTP keep-alives
	DisableKeepAlives bool

	// InsecureSkipVerify skips TLS certificate verification
	InsecureSkipVerify bool
}

// DefaultHTTPClientConfig returns sensible defaults for load testing.
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:             30 * time.Second,
		MaxIdleConns:        1000,
		MaxIdleConnsPerHost: 100,
		MaxConnsPerHost:     0, // Unlimited
		IdleConnTimeout:     90 * time.Second,
	}
}

// NewHTTPClient creates the client shared by all workers.
func NewHTTPClient(cfg HTTPClientConfig) *http.Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		DisableKeepAlives:   cfg.DisableKeepAlives,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in flag
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}
