// Package pinerr defines the typed errors the pin core surfaces to callers.
// API handlers map them to HTTP responses, everything else stays a wrapped
// infrastructure error.
package pinerr

import (
	"errors"
	"net/http"
)

type Code string

const (
	CodeSubscriptionRequired Code = "SubscriptionRequired"
	CodeKindNotAllowed       Code = "KindNotAllowed"
	CodeFileTooLarge         Code = "FileTooLarge"
	CodeDailyQuotaExceeded   Code = "DailyQuotaExceeded"
	CodePinCodeConflict      Code = "PinCodeConflict"
	CodeSyncTimeout          Code = "SyncTimeout"
	CodeNotFound             Code = "NotFound"
	CodeUnauthorized         Code = "Unauthorized"
)

type Err struct {
	Code  Code
	msg   string
	cause error
}

func New(code Code, msg string) *Err {
	return &Err{Code: code, msg: msg}
}

func (e *Err) Error() string {
	return e.msg
}

func (e *Err) Unwrap() error {
	return e.cause
}

func (e *Err) WithCause(c error) *Err {
	e.cause = c
	return e
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var e *Err
	if errors.As(err, &e) {
		return e.Code == code
	}

	return false
}

// Retryable reports whether the caller may retry the failed operation
// without changing its input.
func (e *Err) Retryable() bool {
	return e.Code == CodeSyncTimeout || e.Code == CodePinCodeConflict
}

// StatusCode returns the HTTP status the API layer responds with for
// this error.
func (e *Err) StatusCode() int {
	switch e.Code {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeSubscriptionRequired:
		return http.StatusPaymentRequired
	case CodeKindNotAllowed, CodeDailyQuotaExceeded:
		return http.StatusForbidden
	case CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodePinCodeConflict:
		return http.StatusConflict
	case CodeSyncTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
