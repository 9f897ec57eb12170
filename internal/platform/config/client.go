package config

import (
	"strings"
	"time"
)

const (
	defaultClientStatePath    = ".storefront/state.db"
	defaultClientHTTPTimeout  = 10 * time.Second
	defaultClientOrderTimeout = 15 * time.Second
	defaultClientConcurrency  = 1
)

// ClientConfig configures command line tools that talk to the API.
type ClientConfig struct {
	BaseURL      string
	Token        string
	StatePath    string
	HTTPTimeout  time.Duration
	OrderTimeout time.Duration
	Concurrency  int
}

// LoadClient reads STOREFRONT_ prefixed settings with the same precedence rules as Load.
func LoadClient(opts ...Option) (ClientConfig, error) {
	lookup, _, err := newLookup(opts)
	if err != nil {
		return ClientConfig{}, err
	}

	cfg := ClientConfig{
		BaseURL:      strings.TrimRight(stringWithDefault(lookup, "STOREFRONT_BASE_URL", ""), "/"),
		Token:        stringWithDefault(lookup, "STOREFRONT_TOKEN", ""),
		StatePath:    stringWithDefault(lookup, "STOREFRONT_STATE_PATH", defaultClientStatePath),
		HTTPTimeout:  durationWithDefault(lookup, "STOREFRONT_HTTP_TIMEOUT", defaultClientHTTPTimeout),
		OrderTimeout: durationWithDefault(lookup, "STOREFRONT_ORDER_TIMEOUT", defaultClientOrderTimeout),
		Concurrency:  intWithDefault(lookup, "STOREFRONT_CONCURRENCY", defaultClientConcurrency),
	}

	var missing []string
	if cfg.BaseURL == "" {
		missing = append(missing, "Client.BaseURL")
	}
	if cfg.Concurrency <= 0 {
		missing = append(missing, "Client.Concurrency")
	}
	if len(missing) > 0 {
		return ClientConfig{}, &ValidationError{fields: missing}
	}
	return cfg, nil
}
