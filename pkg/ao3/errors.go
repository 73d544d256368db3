package ao3

import (
	"errors"
	"fmt"
)

// ErrorType classifies AO3 request failures
type ErrorType string

const (
	// ErrorTypeLogin covers missing credentials and rejected logins; fatal for the run
	ErrorTypeLogin ErrorType = "login"
	// ErrorTypeRateLimit is raised on HTTP 429/503/504; never retried by the client itself
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeFailedRequest covers any other non-200 response
	ErrorTypeFailedRequest ErrorType = "failed_request"
	// ErrorTypeFailedDownload marks a nominally successful fetch whose payload was empty
	ErrorTypeFailedDownload ErrorType = "failed_download"
	// ErrorTypePrecondition marks invalid input caught before any network activity
	ErrorTypePrecondition ErrorType = "precondition"
)

// Error represents an AO3 request error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("ao3 %s error (status %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("ao3 %s error: %s", e.Type, e.Message)
}

// NewLoginError returns a login failure
func NewLoginError(message string) *Error {
	return &Error{Type: ErrorTypeLogin, Message: message}
}

// NewRateLimitError returns a rate-limit failure for the given status code
func NewRateLimitError(code int) *Error {
	return &Error{Type: ErrorTypeRateLimit, Message: "rate limit exceeded, wait a bit and try again", Code: code}
}

// NewFailedRequest returns a generic request failure
func NewFailedRequest(message string, code int) *Error {
	return &Error{Type: ErrorTypeFailedRequest, Message: message, Code: code}
}

// NewFailedDownload returns a failed-download error
func NewFailedDownload(message string) *Error {
	return &Error{Type: ErrorTypeFailedDownload, Message: message}
}

// NewPreconditionError returns an invalid-input error raised before any network call
func NewPreconditionError(message string) *Error {
	return &Error{Type: ErrorTypePrecondition, Message: message}
}

// IsErrorType reports whether err is an *Error of the given type
func IsErrorType(err error, t ErrorType) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Type == t
}

// IsRateLimit reports whether err is a rate-limit error
func IsRateLimit(err error) bool {
	return IsErrorType(err, ErrorTypeRateLimit)
}

// IsLogin reports whether err is a login error
func IsLogin(err error) bool {
	return IsErrorType(err, ErrorTypeLogin)
}
