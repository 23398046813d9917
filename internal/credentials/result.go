// File: internal/credentials/result.go
package credentials

import "fmt"

// LoadError describes why credentials could not be loaded from a file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading credentials from %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadResult is the outcome of a load: either Loaded with all four fields set,
// or Absent with the reason.
type LoadResult struct {
	creds  Credentials
	reason error
}

// Loaded wraps credentials that were read successfully.
func Loaded(c Credentials) LoadResult {
	return LoadResult{creds: c}
}

// Absent records that no usable credentials are available.
func Absent(reason error) LoadResult {
	if reason == nil {
		reason = ErrIncomplete
	}
	return LoadResult{reason: reason}
}

// IsLoaded reports whether the result carries credentials.
func (r LoadResult) IsLoaded() bool {
	return r.reason == nil
}

// Credentials returns the loaded credentials. For an Absent result every field is unset.
func (r LoadResult) Credentials() (Credentials, bool) {
	return r.creds, r.IsLoaded()
}

// Reason returns why the result is Absent, or nil.
func (r LoadResult) Reason() error {
	return r.reason
}
