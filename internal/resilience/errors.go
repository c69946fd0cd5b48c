// Package resilience classifies external-call failures and provides the
// bounded retry helper used by the knowledge-graph client.
package resilience

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// snippetLen bounds the response excerpt carried by a DecodeError.
const snippetLen = 100

// ErrNotFound reports that the knowledge-graph service has no entity for the
// requested identifier.
var ErrNotFound = errors.New("entity not found")

// TransientError wraps a failed external call (network error, timeout or
// non-200 status). Callers log it and treat the item as having no data.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// DecodeError reports a response body that could not be parsed.
type DecodeError struct {
	Err     error
	Snippet string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response: %v (body: %q)", e.Err, e.Snippet)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// NewDecodeError wraps a parse failure together with a truncated copy of the body.
func NewDecodeError(err error, body []byte) *DecodeError {
	return &DecodeError{Err: err, Snippet: Snippet(body)}
}

// Snippet returns at most the first 100 bytes of body as a string.
func Snippet(body []byte) string {
	if len(body) > snippetLen {
		return string(body[:snippetLen])
	}
	return string(body)
}

// ConfigurationError is fatal: the run aborts before anything is written.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Msg
}

// NewConfigurationError formats a ConfigurationError.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Msg: fmt.Sprintf(format, args...)}
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsDecode reports whether err is (or wraps) a DecodeError.
func IsDecode(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTransient returns true if the error (or any error in its chain) is a
// TransientError, or if it matches common transient error patterns (network
// timeouts, connection resets, DNS failures).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// server-side issue that may clear on its own.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
