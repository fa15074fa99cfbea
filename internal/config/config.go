package config

import (
	"fmt"
	"net/url"
	"time"
)

const (
	DefaultHTTPTimeout       = 10 * time.Second
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = 2 * time.Second
	DefaultPollInterval      = 15 * time.Second
)

type Config struct {
	// ApiBaseURL is the base URL of the marketplace REST API.
	ApiBaseURL string
	// SocketURL is the websocket endpoint for live chat events.
	SocketURL string
	// Token is the viewer's bearer token. May be empty before login; fetch
	// operations treat a missing token as "not yet authenticated".
	Token string
	// HTTPTimeout bounds every REST call so a hung request cannot leave
	// loading state stuck.
	HTTPTimeout time.Duration
	// ReconnectAttempts bounds automatic socket reconnection.
	ReconnectAttempts int
	// ReconnectDelay is the fixed delay between reconnect attempts.
	ReconnectDelay time.Duration
	// PollInterval is the REST refresh cadence used while the socket is down.
	PollInterval time.Duration
}

func validateURL(raw, scheme string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	if scheme != "" && u.Scheme != scheme && u.Scheme != scheme+"s" {
		return fmt.Errorf("url %q must use %s or %ss scheme", raw, scheme, scheme)
	}
	return nil
}

func NewConfig(apiBaseURL, socketURL, token string) (*Config, error) {
	if apiBaseURL == "" {
		return nil, fmt.Errorf("api base URL cannot be empty")
	}
	if socketURL == "" {
		return nil, fmt.Errorf("socket URL cannot be empty")
	}

	if err := validateURL(apiBaseURL, "http"); err != nil {
		return nil, fmt.Errorf("api base URL: %w", err)
	}
	if err := validateURL(socketURL, "ws"); err != nil {
		return nil, fmt.Errorf("socket URL: %w", err)
	}

	return &Config{
		ApiBaseURL:        apiBaseURL,
		SocketURL:         socketURL,
		Token:             token,
		HTTPTimeout:       DefaultHTTPTimeout,
		ReconnectAttempts: DefaultReconnectAttempts,
		ReconnectDelay:    DefaultReconnectDelay,
		PollInterval:      DefaultPollInterval,
	}, nil
}
