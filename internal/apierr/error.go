// Package apierr defines the structured error type shared by every layer of
// the gateway, from config loading through the HTTP front end.
package apierr

import "fmt"

// Code is a stable identifier for an error kind, independent of its HTTP
// representation or message wording.
type Code string

const (
	ConfigError       Code = "CONFIG_ERROR"
	ConfigNotLoaded   Code = "CONFIG_NOT_INITIALIZED"
	UnknownModel      Code = "UNKNOWN_MODEL"
	BadParam          Code = "BAD_PARAM"
	Unauthorized      Code = "UNAUTHORIZED"
	UpstreamHTTPError Code = "UPSTREAM_HTTP_ERROR"
	Timeout           Code = "TIMEOUT"
	Transport         Code = "TRANSPORT"
	DecodeError       Code = "DECODE_ERROR"
	Canceled          Code = "CANCELED"
	Internal          Code = "INTERNAL_ERROR"
)

// Error is a structured error carrying enough metadata for the HTTP layer to
// map it to a status code and for the SSE writer to render it as an error
// frame, without either layer needing to know the originating component.
type Error struct {
	Code       Code
	Message    string
	HTTPStatus int
	Retryable  bool
	Provider   string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// As extracts an *Error from err, returning (nil, false) if err is not one.
func As(err error) (*Error, bool) {
	e, ok := err.(*Error)
	return e, ok
}

// HTTPStatusFor maps a Code to its default HTTP status, used when an Error
// was constructed without an explicit WithHTTPStatus call.
func HTTPStatusFor(code Code) int {
	switch code {
	case BadParam, UnknownModel:
		return 400
	case Unauthorized:
		return 401
	case UpstreamHTTPError:
		return 502
	case Timeout:
		return 504
	case Transport:
		return 502
	case ConfigError, ConfigNotLoaded:
		return 500
	case Canceled:
		return 499
	default:
		return 500
	}
}
