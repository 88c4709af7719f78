package usecase

import "fmt"

type ErrorCode string

const (
	ErrorInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrorMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	ErrorConfiguration    ErrorCode = "CONFIGURATION_ERROR"
	ErrorRateLimited      ErrorCode = "RATE_LIMITED"
	ErrorUpstream         ErrorCode = "UPSTREAM_ERROR"
	ErrorUpstreamTimeout  ErrorCode = "UPSTREAM_TIMEOUT"
	ErrorInternal         ErrorCode = "INTERNAL_ERROR"
)

// Error is the typed failure returned by the chat use case. Status carries the
// upstream-reported HTTP status when one was available; Message carries the
// upstream's human-readable explanation.
type Error struct {
	Code    ErrorCode
	Reason  string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// NewInputError reports a malformed request detected before the use case runs.
func NewInputError(reason string, err error) *Error {
	return newError(ErrorInvalidInput, reason, err)
}
