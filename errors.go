package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Error types carried by ClientError.Type
const (
	ErrorTypeInvalidArgument   = "InvalidArgument"
	ErrorTypeRateLimit         = "RateLimit"
	ErrorTypeTwoFactorRequired = "TwoFactorRequired"
	ErrorTypeBadRequest        = "BadRequest"
	ErrorTypeUnauthorized      = "Unauthorized"
	ErrorTypeForbidden         = "Forbidden"
	ErrorTypeNotFound          = "NotFound"
	ErrorTypeValidationFailed  = "ValidationFailed"
	ErrorTypeClient            = "ClientError"
	ErrorTypeServer            = "ServerError"
	ErrorTypeNetwork           = "NetworkError"
	ErrorTypeRedirect          = "RedirectError"
)

// Sentinel errors, matched by type through errors.Is:
//
//	if errors.Is(err, github.ErrNotFound) { ... }
var (
	ErrInvalidArgument   = &ClientError{Type: ErrorTypeInvalidArgument}
	ErrRateLimitExceeded = &ClientError{Type: ErrorTypeRateLimit}
	ErrTwoFactorRequired = &ClientError{Type: ErrorTypeTwoFactorRequired}
	ErrBadRequest        = &ClientError{Type: ErrorTypeBadRequest}
	ErrUnauthorized      = &ClientError{Type: ErrorTypeUnauthorized}
	ErrForbidden         = &ClientError{Type: ErrorTypeForbidden}
	ErrNotFound          = &ClientError{Type: ErrorTypeNotFound}
	ErrValidationFailed  = &ClientError{Type: ErrorTypeValidationFailed}
	ErrServer            = &ClientError{Type: ErrorTypeServer}
	ErrRedirect          = &ClientError{Type: ErrorTypeRedirect}
)

// RateLimit is the rate-limit state reported by GitHub response headers.
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// FieldError is one entry of the "errors" array of a 422 payload.
type FieldError struct {
	Resource string `json:"resource"`
	Field    string `json:"field"`
	Code     string `json:"code"`
	Value    any    `json:"value,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ClientError represents an error from the client
type ClientError struct {
	Type          string
	Message       string
	Cause         error
	StatusCode    int
	Method        string
	URL           string
	RequestID     string
	Response      *http.Response
	RateLimit     *RateLimit
	Errors        []FieldError
	TwoFactorType string
	Timestamp     time.Time
}

// Error implements error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}

	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s [%d %s %s]", msg, e.StatusCode, e.Method, e.URL)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// DebugInfo renders a multi-line string with diagnostic context.
func (e *ClientError) DebugInfo() string {
	if e == nil {
		return "Error: <nil>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Error Type: %s\n", e.Type)
	fmt.Fprintf(&b, "Message: %s\n", e.Message)
	if e.RequestID != "" {
		fmt.Fprintf(&b, "Request ID: %s\n", e.RequestID)
	}
	if e.Method != "" {
		fmt.Fprintf(&b, "Method: %s\n", e.Method)
	}
	if e.URL != "" {
		fmt.Fprintf(&b, "URL: %s\n", e.URL)
	}
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, "Status Code: %d\n", e.StatusCode)
	}
	if e.RateLimit != nil {
		fmt.Fprintf(&b, "Rate Limit: %d/%d (reset %s)\n", e.RateLimit.Remaining, e.RateLimit.Limit, e.RateLimit.Reset.Format(time.RFC3339))
	}
	for _, fe := range e.Errors {
		fmt.Fprintf(&b, "Field Error: %s.%s %s\n", fe.Resource, fe.Field, fe.Code)
	}
	if e.TwoFactorType != "" {
		fmt.Fprintf(&b, "Two Factor Type: %s\n", e.TwoFactorType)
	}
	if !e.Timestamp.IsZero() {
		fmt.Fprintf(&b, "Timestamp: %s\n", e.Timestamp.Format(time.RFC3339))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, "Cause: %v\n", e.Cause)
	}
	return b.String()
}

func invalidArgument(format string, args ...any) *ClientError {
	return &ClientError{
		Type:      ErrorTypeInvalidArgument,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: time.Now(),
	}
}

// IsRateLimit reports whether err is a rate-limit failure.
func IsRateLimit(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

// IsNotFound reports whether err is a 404 failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether err is a 422 validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}

// IsTransient determines if an error represents a transient failure that might succeed on retry.
// Returns true for network errors, 5xx server responses and rate limiting.
// Returns false for other 4xx responses and configuration errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		switch clientErr.Type {
		case ErrorTypeNetwork, ErrorTypeServer, ErrorTypeRateLimit:
			return true
		default:
			return false
		}
	}

	return false
}
