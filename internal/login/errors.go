package login

import (
	"errors"

	"github.com/xkilldash9x/kite-autologin/internal/browser"
)

// State is a step of the login flow.
type State int

const (
	StateInitialized State = iota
	StatePageLoaded
	StateCredentialsSubmitted
	StatePinPromptVisible
	StatePinSubmitted
	StateTokenExtracted

	// Terminal failure states.
	StateInvalidAPIKey
	StateCredentialError
	StatePinError
	StateElementTimeout
	StateFailed
)

var stateNames = map[State]string{
	StateInitialized:          "Initialized",
	StatePageLoaded:           "PageLoaded",
	StateCredentialsSubmitted: "CredentialsSubmitted",
	StatePinPromptVisible:     "PinPromptVisible",
	StatePinSubmitted:         "PinSubmitted",
	StateTokenExtracted:       "TokenExtracted",
	StateInvalidAPIKey:        "InvalidApiKey",
	StateCredentialError:      "CredentialError",
	StatePinError:             "PinError",
	StateElementTimeout:       "ElementTimeout",
	StateFailed:               "Failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateTokenExtracted || s >= StateInvalidAPIKey
}

var (
	// ErrInvalidAPIKey means the portal answered the login URL with a JSON error body.
	ErrInvalidAPIKey = errors.New("invalid api key")
	// ErrCredential means the portal showed an error banner after the username and password were submitted.
	ErrCredential = errors.New("credential error")
	// ErrPin means the PIN submission did not advance the page and an error banner was shown.
	ErrPin = errors.New("pin error")
	// ErrElementTimeout means a required element never appeared.
	ErrElementTimeout = browser.ErrElementTimeout
	// ErrTokenNotFound means the final URL never carried a request token.
	ErrTokenNotFound = errors.New("request token not found")
	// ErrAlreadyRun is returned when Run is called on a machine that already made its attempt.
	ErrAlreadyRun = errors.New("login attempt already made")
)

// Error is the failure of a login attempt. When the portal supplied a message, Error()
// returns exactly that text.
type Error struct {
	State   State
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "login failed in state " + e.State.String()
}

func (e *Error) Unwrap() error { return e.Err }
