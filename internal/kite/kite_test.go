package kite

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/kite-autologin/internal/config"
)

func TestLoginURL(t *testing.T) {
	cfg := config.KiteConfig{LoginBaseURL: "https://kite.zerodha.com/connect/login", APIVersion: "3"}

	t.Run("carries api key and version", func(t *testing.T) {
		raw, err := NewClient("abc123xyz", cfg).LoginURL()
		require.NoError(t, err)

		u, err := url.Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, "kite.zerodha.com", u.Host)
		assert.Equal(t, "/connect/login", u.Path)
		assert.Equal(t, "abc123xyz", u.Query().Get("api_key"))
		assert.Equal(t, "3", u.Query().Get("v"))
	})

	t.Run("empty api key", func(t *testing.T) {
		_, err := NewClient("", cfg).LoginURL()
		assert.ErrorIs(t, err, ErrMissingAPIKey)
	})

	t.Run("malformed base url", func(t *testing.T) {
		_, err := NewClient("k", config.KiteConfig{LoginBaseURL: "not a url"}).LoginURL()
		assert.ErrorIs(t, err, ErrInvalidLoginBase)
	})

	t.Run("version omitted when unset", func(t *testing.T) {
		raw, err := NewClient("k", config.KiteConfig{LoginBaseURL: "http://127.0.0.1:8080/login"}).LoginURL()
		require.NoError(t, err)
		assert.Equal(t, "http://127.0.0.1:8080/login?api_key=k", raw)
	})
}

func TestRequestToken(t *testing.T) {
	cases := map[string]string{
		"only param":    "https://example.com/cb?request_token=ABC123",
		"first":         "https://example.com/cb?request_token=ABC123&action=login&status=success",
		"middle":        "https://example.com/cb?action=login&request_token=ABC123&status=success",
		"last":          "https://example.com/cb?status=success&type=login&request_token=ABC123",
		"repeated":      "https://example.com/cb?request_token=ABC123&request_token=ZZZ",
		"with fragment": "https://example.com/cb?status=success&request_token=ABC123#top",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			token, err := RequestToken(raw)
			require.NoError(t, err)
			assert.Equal(t, "ABC123", token)
		})
	}

	t.Run("missing", func(t *testing.T) {
		_, err := RequestToken("https://example.com/cb?status=success")
		assert.ErrorIs(t, err, ErrNoRequestToken)
	})

	t.Run("empty value", func(t *testing.T) {
		_, err := RequestToken("https://example.com/cb?request_token=")
		assert.ErrorIs(t, err, ErrNoRequestToken)
	})

	t.Run("unparseable", func(t *testing.T) {
		_, err := RequestToken("://bad")
		assert.Error(t, err)
	})
}
