// Package kite knows the URLs of the Kite Connect login portal: how to build the
// login URL for an API key and how to read the request token from the redirect
// that ends a successful login.
package kite

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/xkilldash9x/kite-autologin/internal/config"
)

// RequestTokenParam is the redirect query parameter carrying the request token.
const RequestTokenParam = "request_token"

var (
	ErrMissingAPIKey    = errors.New("api key is empty")
	ErrNoRequestToken   = errors.New("url has no request_token parameter")
	ErrInvalidLoginBase = errors.New("invalid login base url")
)

// Client is the part of the brokerage API client the login flow depends on.
type Client struct {
	apiKey  string
	baseURL string
	version string
}

// NewClient returns a client for apiKey using the portal endpoints from cfg.
func NewClient(apiKey string, cfg config.KiteConfig) *Client {
	return &Client{apiKey: apiKey, baseURL: cfg.LoginBaseURL, version: cfg.APIVersion}
}

// LoginURL returns the portal URL that starts the login flow for the client's API key.
func (c *Client) LoginURL() (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	u, err := url.Parse(c.baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidLoginBase, c.baseURL)
	}

	q := u.Query()
	q.Set("api_key", c.apiKey)
	if c.version != "" {
		q.Set("v", c.version)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// RequestToken extracts the first request_token value from rawURL's query string.
func RequestToken(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing redirect url: %w", err)
	}
	values, ok := u.Query()[RequestTokenParam]
	if !ok || len(values) == 0 || values[0] == "" {
		return "", ErrNoRequestToken
	}
	return values[0], nil
}
