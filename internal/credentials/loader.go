// File: internal/credentials/loader.go
package credentials

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/zalando/go-keyring"
	"go.uber.org/zap"
)

// Loader reads credentials from a local structured file (JSON by default, or any
// format viper recognizes from the file extension). It never fails hard: every
// problem is logged and reported as an Absent result.
type Loader struct {
	logger         *zap.Logger
	keyringService string
	keyringGet     func(service, user string) (string, error)
}

// Option configures a Loader.
type Option func(*Loader)

// WithKeyring fills a missing password or PIN from the OS keyring. Secrets are
// looked up under service with the accounts "<username>:password" and "<username>:pin".
func WithKeyring(service string) Option {
	return func(l *Loader) {
		l.keyringService = service
	}
}

// NewLoader creates a credentials loader.
func NewLoader(logger *zap.Logger, opts ...Option) *Loader {
	l := &Loader{
		logger:     logger.Named("credentials"),
		keyringGet: keyring.Get,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads path and returns Loaded when all four fields end up set.
func (l *Loader) Load(path string) LoadResult {
	creds, err := l.read(path)
	if err == nil {
		err = creds.Validate()
	}
	if err != nil {
		loadErr := &LoadError{Path: path, Err: err}
		l.logger.Warn("Could not load login credentials; continuing without them.",
			zap.String("path", path), zap.Error(err))
		return Absent(loadErr)
	}

	l.logger.Debug("Login credentials loaded.", zap.Object("credentials", creds))
	return Loaded(creds)
}

func (l *Loader) read(path string) (Credentials, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("expanding path: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(expanded)
	if filepath.Ext(expanded) == "" {
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		return Credentials{}, err
	}

	creds := Credentials{
		APIKey:   v.GetString("api_key"),
		Username: v.GetString("username"),
		Password: v.GetString("password"),
		PIN:      v.GetString("pin"),
	}
	l.fillFromKeyring(&creds)
	return creds, nil
}

func (l *Loader) fillFromKeyring(c *Credentials) {
	if l.keyringService == "" || c.Username == "" {
		return
	}
	lookup := func(field string, dst *string) {
		if *dst != "" {
			return
		}
		secret, err := l.keyringGet(l.keyringService, c.Username+":"+field)
		switch {
		case err == nil:
			*dst = secret
		case errors.Is(err, keyring.ErrNotFound):
			l.logger.Debug("No keyring entry.", zap.String("field", field))
		default:
			l.logger.Warn("Keyring lookup failed.", zap.String("field", field), zap.Error(err))
		}
	}
	lookup("password", &c.Password)
	lookup("pin", &c.PIN)
}
