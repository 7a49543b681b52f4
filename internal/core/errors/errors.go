package errors

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

type ErrorCode string

const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeValidationError ErrorCode = "VALIDATION_ERROR"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeNotSupported    ErrorCode = "NOT_SUPPORTED"
	CodeUpstream        ErrorCode = "UPSTREAM_ERROR"
	CodeRateLimited     ErrorCode = "RATE_LIMITED"
)

// Well-known context keys.
const (
	CtxPath      = "path"
	CtxOperation = "operation"
	CtxRepo      = "repo"
	CtxStatus    = "status"
)

// DomainError carries a stable code, a client-safe message and optional
// diagnostic context that is logged but never streamed.
type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Context map[string]any
}

func (e *DomainError) WithContext(key string, value any) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]any, 2)
	}
	e.Context[key] = value
	return e
}

func (e *DomainError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Context[k])
		}
		b.WriteString(")")
	}
	return b.String()
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

func New(code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg}
}

func Newf(code ErrorCode, format string, args ...any) error {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(err error, code ErrorCode, msg string) error {
	return &DomainError{Code: code, Message: msg, Err: err}
}

// AddContext attaches key=value to the nearest DomainError in err's chain.
// Errors without one are wrapped as internal first.
func AddContext(err error, key string, value any) error {
	if de, ok := asDomain(err); ok {
		de.WithContext(key, value)
		return err
	}
	de := &DomainError{Code: CodeInternal, Message: "unexpected error", Err: err}
	return de.WithContext(key, value)
}

// CodeOf returns the code of the nearest DomainError, or CodeInternal.
func CodeOf(err error) ErrorCode {
	if de, ok := asDomain(err); ok {
		return de.Code
	}
	return CodeInternal
}

func IsCode(err error, code ErrorCode) bool {
	de, ok := asDomain(err)
	return ok && de.Code == code
}

// Message is the text shown to API clients: the domain message plus its cause,
// without diagnostic context. Non-domain errors fall back to err.Error().
func Message(err error) string {
	de, ok := asDomain(err)
	if !ok {
		return err.Error()
	}
	if de.Err != nil {
		return de.Message + ": " + de.Err.Error()
	}
	return de.Message
}

// HTTPStatus maps the error's code onto the status used before a stream opens.
func HTTPStatus(err error) int {
	if _, ok := asDomain(err); !ok {
		return http.StatusInternalServerError
	}
	switch CodeOf(err) {
	case CodeValidationError:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeNotSupported:
		return http.StatusNotImplemented
	case CodeUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func asDomain(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
