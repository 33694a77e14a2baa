package http

import (
	"net/http"
	"time"
)

// ClientConfig holds configuration for HTTP clients
type ClientConfig struct {
	Timeout             time.Duration
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	TLSHandshakeTimeout time.Duration
}

// DefaultVendorTimeout caps vendor calls when no timeout is configured.
const DefaultVendorTimeout = 15 * time.Second

// VendorClientConfig returns the configuration used for calls against the
// payment vendor. Checkout blocks on these calls, so the timeout is short.
func VendorClientConfig(timeout time.Duration) ClientConfig {
	if timeout <= 0 {
		timeout = DefaultVendorTimeout
	}
	return ClientConfig{
		Timeout:             timeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

// AnalyticsClientConfig returns the configuration for fire-and-forget
// analytics pings. Failures here must never delay a checkout.
func AnalyticsClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:             5 * time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     60 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
}

// NewHTTPClient creates an HTTP client from the given configuration
func NewHTTPClient(cfg ClientConfig) *http.Client {
	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
			TLSHandshakeTimeout: cfg.TLSHandshakeTimeout,
		},
	}
}
