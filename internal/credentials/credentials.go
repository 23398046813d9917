// File: internal/credentials/credentials.go
package credentials

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// ErrIncomplete is returned by Validate when one or more fields are empty.
var ErrIncomplete = errors.New("credentials incomplete")

// Credentials are the four secrets needed for one portal login.
type Credentials struct {
	APIKey   string
	Username string
	Password string
	PIN      string
}

// Missing lists the config keys of the empty fields.
func (c Credentials) Missing() []string {
	var missing []string
	for _, f := range []struct{ key, val string }{
		{"api_key", c.APIKey},
		{"username", c.Username},
		{"password", c.Password},
		{"pin", c.PIN},
	} {
		if f.val == "" {
			missing = append(missing, f.key)
		}
	}
	return missing
}

// Validate reports the empty fields, if any.
func (c Credentials) Validate() error {
	if missing := c.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// IsZero reports whether no field is set.
func (c Credentials) IsZero() bool {
	return c == Credentials{}
}

// String never prints the secrets.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{api_key:%s username:%s password:%s pin:%s}",
		mask(c.APIKey), c.Username, redact(c.Password), redact(c.PIN))
}

// MarshalLogObject lets credentials be logged with zap.Object without leaking secrets.
func (c Credentials) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("api_key", mask(c.APIKey))
	enc.AddString("username", c.Username)
	enc.AddString("password", redact(c.Password))
	enc.AddString("pin", redact(c.PIN))
	return nil
}

func redact(s string) string {
	if s == "" {
		return "<unset>"
	}
	return "<redacted>"
}

// mask keeps the last four characters of an API key for log correlation.
func mask(s string) string {
	switch {
	case s == "":
		return "<unset>"
	case len(s) <= 4:
		return strings.Repeat("*", len(s))
	default:
		return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
	}
}
