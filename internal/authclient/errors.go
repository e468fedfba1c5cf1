package authclient

import (
	"errors"
	"fmt"
)

// ErrRefreshFailed matches any error returned after a session refresh did
// not succeed.
var ErrRefreshFailed = errors.New("session refresh failed")

// StatusError is a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Unauthorized reports whether the response was a 401.
func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == 401
}

// RefreshFailedError is returned when a request got a 401 and the shared
// refresh that followed failed. Original is that 401; Err is why the refresh
// failed.
type RefreshFailedError struct {
	Original *StatusError
	Err      error
}

func (e *RefreshFailedError) Error() string {
	return fmt.Sprintf("%s: %v (after %v)", ErrRefreshFailed, e.Err, e.Original)
}

func (e *RefreshFailedError) Is(target error) bool {
	return target == ErrRefreshFailed
}

func (e *RefreshFailedError) Unwrap() []error {
	var errs []error
	if e.Original != nil {
		errs = append(errs, e.Original)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
