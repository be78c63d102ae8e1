// Package provider holds what every upstream adapter shares: the failure
// taxonomy, the HTTP call path with health and metrics bookkeeping, and the
// per-domain degrade policy.
package provider

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxBodyBytes caps how much of an upstream error body is kept for diagnostics.
const MaxBodyBytes = 4096

// ErrNotConfigured is matched (via errors.Is) by every NotConfigured failure.
var ErrNotConfigured = errors.New("provider not configured")

// Kind classifies an upstream failure.
type Kind string

// Failure kinds.
const (
	KindNotConfigured Kind = "not_configured"
	KindStatus        Kind = "status"
	KindTransport     Kind = "transport"
	KindDecode        Kind = "decode"
)

// Error is the normalized failure returned by every adapter.
type Error struct {
	// Provider is the adapter name, e.g. "airnow".
	Provider string

	// Kind is the failure class.
	Kind Kind

	// StatusCode is the upstream HTTP status for KindStatus.
	StatusCode int

	// Body is the (truncated) upstream response body for KindStatus.
	Body string

	// Message is an upstream-supplied error message, when one could be parsed.
	Message string

	// Err is the underlying cause for KindTransport and KindDecode.
	Err error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotConfigured:
		return fmt.Sprintf("%s: not configured", e.Provider)
	case KindStatus:
		return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.StatusCode)
	case KindDecode:
		return fmt.Sprintf("%s: decode response: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrNotConfigured) match not-configured failures.
func (e *Error) Is(target error) bool {
	return target == ErrNotConfigured && e.Kind == KindNotConfigured
}

// Details returns the most useful diagnostic text for an error response.
func (e *Error) Details() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Body != "":
		return e.Body
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Error()
	}
}

// NotConfigured returns a failure for a missing credential or connection setting.
func NotConfigured(name string) *Error {
	return &Error{Provider: name, Kind: KindNotConfigured}
}

// Status builds a status failure from a non-2xx response, consuming up to
// MaxBodyBytes of its body.
func Status(name string, resp *http.Response) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxBodyBytes))
	return &Error{
		Provider:   name,
		Kind:       KindStatus,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}

// Transport wraps a connection-level failure.
func Transport(name string, err error) *Error {
	return &Error{Provider: name, Kind: KindTransport, Err: err}
}

// Decode wraps a response decoding failure.
func Decode(name string, err error) *Error {
	return &Error{Provider: name, Kind: KindDecode, Err: err}
}

// AsError extracts a *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr, true
	}
	return nil, false
}

// Details returns diagnostic text for any error, preferring upstream detail.
func Details(err error) string {
	if err == nil {
		return ""
	}
	if perr, ok := AsError(err); ok {
		return perr.Details()
	}
	return err.Error()
}
