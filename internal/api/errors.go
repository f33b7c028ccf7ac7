package api

import (
	"errors"
	"fmt"

	"artist-tracker/internal/constants"

	"github.com/sethvargo/go-retry"
)

// StatusError carries a non-2xx upstream status so callers can classify the
// failure without string matching.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d for %s", e.Code, e.URL)
}

// ErrIncompletePayload marks a well-formed response missing its core section.
// The upstream occasionally serves these transiently, so it retries.
var ErrIncompletePayload = errors.New("response payload incomplete")

// IsAuthRejected reports whether the upstream refused the bearer token.
func IsAuthRejected(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && (statusErr.Code == 401 || statusErr.Code == 403)
}

// IsPermanentClient reports a non-auth 4xx, which no retry can fix.
func IsPermanentClient(err error) bool {
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.Code >= 400 && statusErr.Code < 500 &&
		statusErr.Code != 401 && statusErr.Code != 403
}

// Retryable reports whether an attempt is worth repeating: transport errors,
// 5xx, auth rejections (the next attempt mints a fresh token), incomplete
// and undecodable payloads. Only a non-auth 4xx abandons immediately.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return !IsPermanentClient(err)
}

// ParseError wraps an undecodable response body. Retried to budget like any
// other transient upstream fault.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "parse response: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// RetryPolicy builds the shared backoff: exponential from the base delay with
// jitter, capped at maxAttempts total tries.
func RetryPolicy(maxAttempts int) retry.Backoff {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	b := retry.NewExponential(constants.RetryBaseBackoff)
	b = retry.WithJitter(constants.RetryJitter, b)
	b = retry.WithMaxRetries(uint64(maxAttempts-1), b)
	return b
}
